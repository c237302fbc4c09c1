package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/antoniostano/instagroq/internal/access"
	"github.com/antoniostano/instagroq/internal/chat"
	"github.com/antoniostano/instagroq/internal/config"
	"github.com/antoniostano/instagroq/internal/observability"
	"github.com/antoniostano/instagroq/internal/webapp"
)

const maxImageUpload = 10 << 20

// Server exposes the Mini App API and the admin access endpoints.
type Server struct {
	cfg          config.Config
	orchestrator *chat.Orchestrator
	accessStore  access.Store
	verifier     *webapp.Verifier
	metrics      *observability.Metrics
}

func New(cfg config.Config, orchestrator *chat.Orchestrator, accessStore access.Store, verifier *webapp.Verifier, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		accessStore:  accessStore,
		verifier:     verifier,
		metrics:      metrics,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/chat", s.handleChat)
	r.Post("/api/image", s.handleImage)
	r.Post("/api/memory/clear", s.handleMemoryClear)

	r.Route("/admin/access", func(r chi.Router) {
		r.Use(s.requireAdminToken)
		r.Post("/free", s.handleAccessFlag(s.accessStore.SetFree, s.accessStore.SetFreeUntil))
		r.Post("/paid", s.handleAccessFlag(s.accessStore.SetPaid, nil))
		r.Post("/block", s.handleBlock(true))
		r.Post("/unblock", s.handleBlock(false))
		r.Get("/status", s.handleAccessStatus)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type chatRequest struct {
	UserID  int64  `json:"user_id"`
	Text    string `json:"text"`
	Lang    string `json:"lang,omitempty"`
	Style   string `json:"style,omitempty"`
	Persona string `json:"persona,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.observe("chat", "invalid_input")
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	userID, ok := s.resolveUserID(w, r, req.UserID)
	if !ok {
		s.observe("chat", "invalid_initdata")
		return
	}

	res, err := s.orchestrator.Exchange(r.Context(), chat.ExchangeRequest{
		UserID:  userID,
		Text:    req.Text,
		Lang:    req.Lang,
		Style:   req.Style,
		Persona: req.Persona,
	})
	if err != nil {
		s.respondExchangeError(w, "chat", err)
		return
	}

	s.observe("chat", "ok")
	respondJSON(w, http.StatusOK, map[string]any{"reply": res.Reply})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		s.observe("image", "invalid_input")
		respondError(w, http.StatusBadRequest, "invalid_request", "expected multipart form")
		return
	}

	formUserID, _ := strconv.ParseInt(strings.TrimSpace(r.FormValue("user_id")), 10, 64)
	userID, ok := s.resolveUserID(w, r, formUserID)
	if !ok {
		s.observe("image", "invalid_initdata")
		return
	}

	var payload []byte
	if file, _, err := r.FormFile("image"); err == nil {
		defer file.Close()
		payload, err = io.ReadAll(io.LimitReader(file, maxImageUpload))
		if err != nil {
			s.observe("image", "invalid_input")
			respondError(w, http.StatusBadRequest, "invalid_request", "unreadable image payload")
			return
		}
	}

	mode := strings.TrimSpace(r.FormValue("mode"))
	if mode == "" {
		mode = "txt2img"
	}

	res, err := s.orchestrator.GenerateImage(r.Context(), chat.ImageExchangeRequest{
		UserID: userID,
		Mode:   mode,
		Prompt: r.FormValue("prompt"),
		Image:  payload,
	})
	if err != nil {
		s.respondExchangeError(w, "image", err)
		return
	}

	s.observe("image", "ok")
	respondJSON(w, http.StatusOK, map[string]any{"image_base64": res.ImageBase64})
}

func (s *Server) handleMemoryClear(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.observe("memory_clear", "invalid_input")
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	userID, ok := s.resolveUserID(w, r, req.UserID)
	if !ok {
		s.observe("memory_clear", "invalid_initdata")
		return
	}

	if err := s.orchestrator.ClearMemory(r.Context(), userID); err != nil {
		s.respondExchangeError(w, "memory_clear", err)
		return
	}

	s.observe("memory_clear", "ok")
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// resolveUserID prefers verified initData over the client-supplied id so a
// Mini App user cannot act as someone else. Requests without initData fall
// back to the explicit id (trusted callers, local dev).
func (s *Server) resolveUserID(w http.ResponseWriter, r *http.Request, explicit int64) (int64, bool) {
	raw := strings.TrimSpace(r.Header.Get("X-Telegram-Init-Data"))
	if raw == "" || s.verifier == nil {
		return explicit, true
	}
	uid, err := s.verifier.UserID(raw)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid_initdata", err.Error())
		return 0, false
	}
	return uid, true
}

type accessMutation struct {
	UserID  int64  `json:"user_id"`
	Enabled *bool  `json:"enabled,omitempty"`
	Until   *int64 `json:"until,omitempty"`
}

// handleAccessFlag serves a single-flag mutation. When the request carries an
// expiry and the flag supports one, the expiring variant is used instead.
func (s *Server) handleAccessFlag(set func(ctx context.Context, userID int64, enabled bool) error, setUntil func(ctx context.Context, userID int64, until int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req accessMutation
		if err := decodeJSON(r, &req); err != nil || req.UserID == 0 {
			respondError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
			return
		}
		enabled := true
		if req.Enabled != nil {
			enabled = *req.Enabled
		}

		var err error
		switch {
		case req.Until != nil && setUntil == nil:
			respondError(w, http.StatusBadRequest, "invalid_request", "this flag does not take an expiry")
			return
		case req.Until != nil && enabled:
			err = setUntil(r.Context(), req.UserID, *req.Until)
		default:
			err = set(r.Context(), req.UserID, enabled)
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "storage_failure", err.Error())
			return
		}
		respondJSON(w, http.StatusOK, s.accessStore.Get(r.Context(), req.UserID))
	}
}

func (s *Server) handleBlock(blocked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req accessMutation
		if err := decodeJSON(r, &req); err != nil || req.UserID == 0 {
			respondError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
			return
		}
		var err error
		if req.Until != nil && blocked {
			err = s.accessStore.SetBlockedUntil(r.Context(), req.UserID, *req.Until)
		} else {
			err = s.accessStore.SetBlocked(r.Context(), req.UserID, blocked)
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "storage_failure", err.Error())
			return
		}
		respondJSON(w, http.StatusOK, s.accessStore.Get(r.Context(), req.UserID))
	}
}

func (s *Server) handleAccessStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("user_id")), 10, 64)
	if err != nil || userID == 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "query parameter user_id is required")
		return
	}
	respondJSON(w, http.StatusOK, s.accessStore.Get(r.Context(), userID))
}

func (s *Server) requireAdminToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken != "" && r.Header.Get("X-Admin-Token") != s.cfg.AdminToken {
			respondError(w, http.StatusForbidden, "forbidden", "admin token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) respondExchangeError(w http.ResponseWriter, endpoint string, err error) {
	kind := chat.KindOf(err)
	code := chat.CodeOf(err)
	s.observe(endpoint, code)

	status := http.StatusInternalServerError
	message := "request failed"
	switch kind {
	case chat.KindInvalidInput:
		status = http.StatusBadRequest
		message = "invalid input"
	case chat.KindPaymentRequired:
		status = http.StatusPaymentRequired
		message = "payment required"
	case chat.KindForbidden:
		status = http.StatusForbidden
		message = "access blocked"
	case chat.KindUpstreamFailure:
		switch code {
		case "generation_timeout":
			status = http.StatusGatewayTimeout
		case "insufficient_balance":
			status = http.StatusBadGateway
		}
	}
	respondError(w, status, code, message)
}

func (s *Server) observe(endpoint, outcome string) {
	if s.metrics != nil {
		s.metrics.Requests.WithLabelValues(endpoint, outcome).Inc()
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
