// Package chat ties authorization, conversation memory and the external
// providers together for one exchange at a time.
package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/antoniostano/instagroq/internal/access"
	"github.com/antoniostano/instagroq/internal/audit"
	"github.com/antoniostano/instagroq/internal/memory"
	"github.com/antoniostano/instagroq/internal/observability"
	"github.com/antoniostano/instagroq/internal/prompt"
	"github.com/antoniostano/instagroq/internal/provider"
)

// ExchangeRequest is one inbound chat request.
type ExchangeRequest struct {
	UserID  int64
	Text    string
	Lang    string
	Style   string
	Persona string
}

// ExchangeResult is the reply for a successful chat exchange.
type ExchangeResult struct {
	ExchangeID string
	Reply      string
}

// ImageExchangeRequest is one inbound image-generation request.
type ImageExchangeRequest struct {
	UserID int64
	Mode   string
	Prompt string
	Image  []byte
}

// ImageExchangeResult carries the generated image with the data-URL prefix
// the Mini App renders directly.
type ImageExchangeResult struct {
	ExchangeID  string
	ImageBase64 string
}

// Orchestrator is the single entry point for chat, image and memory-clear
// exchanges. It holds no per-request state; every exchange is independent.
type Orchestrator struct {
	accessStore access.Store
	memoryStore memory.Store
	completer   provider.Completer
	images      provider.ImageGenerator
	notifier    audit.Notifier
	metrics     *observability.Metrics
	memoryLimit int
	now         func() time.Time
}

func NewOrchestrator(
	accessStore access.Store,
	memoryStore memory.Store,
	completer provider.Completer,
	images provider.ImageGenerator,
	notifier audit.Notifier,
	metrics *observability.Metrics,
	memoryLimit int,
) *Orchestrator {
	if memoryLimit <= 0 {
		memoryLimit = 24
	}
	if notifier == nil {
		notifier = audit.Nop{}
	}
	return &Orchestrator{
		accessStore: accessStore,
		memoryStore: memoryStore,
		completer:   completer,
		images:      images,
		notifier:    notifier,
		metrics:     metrics,
		memoryLimit: memoryLimit,
		now:         time.Now,
	}
}

// authorize applies the entitlement gate. An absent or unattributable user is
// treated as lacking entitlement, not as forbidden.
func (o *Orchestrator) authorize(ctx context.Context, userID int64) *Error {
	if userID <= 0 {
		return newError(KindPaymentRequired, "payment_required", "no user identity")
	}
	rec := o.accessStore.Get(ctx, userID)
	now := o.now()
	if rec.BlockedAt(now) {
		return newError(KindForbidden, "blocked", "access is blocked")
	}
	if !rec.AuthorizedAt(now) {
		return newError(KindPaymentRequired, "payment_required", "no active entitlement")
	}
	return nil
}

// Exchange runs one chat turn: gate, history read, prompt assembly, provider
// call, memory writes, best-effort audit.
func (o *Orchestrator) Exchange(ctx context.Context, req ExchangeRequest) (ExchangeResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return ExchangeResult{}, newError(KindInvalidInput, "empty_input", "text is empty")
	}
	if err := o.authorize(ctx, req.UserID); err != nil {
		return ExchangeResult{}, err
	}

	exchangeID := uuid.NewString()

	// A failed history read degrades to an empty context; the exchange
	// still goes through.
	history, err := o.memoryStore.Recent(ctx, req.UserID, o.memoryLimit)
	if err != nil {
		log.Printf("chat %s: history read for user %d failed, continuing without context: %v", exchangeID, req.UserID, err)
		history = nil
	}

	systemPrompt := prompt.System(req.Lang, req.Style, req.Persona)
	assembled := prompt.Render(history, text)

	o.appendTurn(ctx, exchangeID, req.UserID, memory.RoleUser, text)

	start := o.now()
	reply, err := o.completer.Complete(ctx, systemPrompt, assembled)
	if o.metrics != nil {
		o.metrics.ObserveProviderLatency(o.completer.Name(), o.now().Sub(start))
	}
	if err != nil {
		if o.metrics != nil {
			o.metrics.ProviderErrors.WithLabelValues(o.completer.Name(), "completion_failed").Inc()
		}
		return ExchangeResult{}, wrapError(KindUpstreamFailure, "completion_failed", err)
	}

	o.appendTurn(ctx, exchangeID, req.UserID, memory.RoleAssistant, reply)

	o.emit(ctx, audit.BuildExchangeLine(o.now(), req.UserID, exchangeID, text, reply))

	return ExchangeResult{ExchangeID: exchangeID, Reply: reply}, nil
}

// GenerateImage runs one image exchange under the same entitlement gate.
func (o *Orchestrator) GenerateImage(ctx context.Context, req ImageExchangeRequest) (ImageExchangeResult, error) {
	if !provider.ValidMode(req.Mode) {
		return ImageExchangeResult{}, newError(KindInvalidInput, "unsupported_mode", "unknown image mode")
	}
	if provider.NeedsImage(req.Mode) && len(req.Image) == 0 {
		return ImageExchangeResult{}, newError(KindInvalidInput, "image_required", "mode requires a source image")
	}
	if err := o.authorize(ctx, req.UserID); err != nil {
		return ImageExchangeResult{}, err
	}

	exchangeID := uuid.NewString()

	start := o.now()
	res, err := o.images.Generate(ctx, provider.ImageRequest{
		Mode:   req.Mode,
		Prompt: strings.TrimSpace(req.Prompt),
		Image:  req.Image,
	})
	if o.metrics != nil {
		o.metrics.ObserveProviderLatency(o.images.Name(), o.now().Sub(start))
	}
	if err != nil {
		code := "generation_failed"
		switch {
		case errors.Is(err, provider.ErrInsufficientBalance):
			code = "insufficient_balance"
		case errors.Is(err, provider.ErrGenerationTimeout):
			code = "generation_timeout"
		}
		if o.metrics != nil {
			o.metrics.ProviderErrors.WithLabelValues(o.images.Name(), code).Inc()
		}
		return ImageExchangeResult{}, wrapError(KindUpstreamFailure, code, err)
	}

	o.emit(ctx, audit.BuildImageLine(o.now(), req.UserID, exchangeID, req.Mode, req.Prompt))

	return ImageExchangeResult{
		ExchangeID:  exchangeID,
		ImageBase64: "data:image/png;base64," + res.Base64,
	}, nil
}

// ClearMemory drops the user's conversation history under the same gate.
func (o *Orchestrator) ClearMemory(ctx context.Context, userID int64) error {
	if err := o.authorize(ctx, userID); err != nil {
		return err
	}
	if err := o.memoryStore.Clear(ctx, userID); err != nil {
		return wrapError(KindStorageFailure, "storage_failure", err)
	}
	return nil
}

// appendTurn writes a turn best-effort: a failed write is logged but never
// fails the exchange.
func (o *Orchestrator) appendTurn(ctx context.Context, exchangeID string, userID int64, role, text string) {
	if err := o.memoryStore.Append(ctx, userID, role, text); err != nil {
		log.Printf("chat %s: append %s turn for user %d failed: %v", exchangeID, role, userID, err)
		return
	}
	if o.metrics != nil {
		o.metrics.TurnsAppended.Inc()
	}
}

func (o *Orchestrator) emit(ctx context.Context, line string) {
	if err := o.notifier.Notify(ctx, line); err != nil {
		if o.metrics != nil {
			o.metrics.AuditFailures.Inc()
		}
		log.Printf("audit emit failed: %v", err)
	}
}
