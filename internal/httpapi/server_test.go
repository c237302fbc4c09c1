package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/antoniostano/instagroq/internal/access"
	"github.com/antoniostano/instagroq/internal/chat"
	"github.com/antoniostano/instagroq/internal/config"
	"github.com/antoniostano/instagroq/internal/memory"
	"github.com/antoniostano/instagroq/internal/provider"
)

func newTestServer(t *testing.T) (*httptest.Server, access.Store, memory.Store) {
	t.Helper()

	accessStore := access.NewInMemoryStore()
	memoryStore := memory.NewInMemoryStore(48)
	orchestrator := chat.NewOrchestrator(
		accessStore,
		memoryStore,
		provider.NewMockCompleter(),
		provider.NewMockImageGenerator(),
		nil,
		nil,
		24,
	)

	srv := New(config.Config{}, orchestrator, accessStore, nil, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, accessStore, memoryStore
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	res, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return res
}

func decodeBody(t *testing.T, res *http.Response) map[string]any {
	t.Helper()
	defer res.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestChatPaymentRequiredWithoutGrant(t *testing.T) {
	ts, _, _ := newTestServer(t)

	res := postJSON(t, ts.URL+"/api/chat", map[string]any{"user_id": 42, "text": "hello"})
	if res.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusPaymentRequired)
	}
	body := decodeBody(t, res)
	if body["code"] != "payment_required" {
		t.Fatalf("code = %v, want payment_required", body["code"])
	}
}

func TestChatAfterGrantAndMemoryWritten(t *testing.T) {
	ts, accessStore, memoryStore := newTestServer(t)
	ctx := context.Background()
	if err := accessStore.SetFree(ctx, 42, true); err != nil {
		t.Fatalf("SetFree error = %v", err)
	}

	res := postJSON(t, ts.URL+"/api/chat", map[string]any{"user_id": 42, "text": "hello"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	body := decodeBody(t, res)
	reply, _ := body["reply"].(string)
	if reply == "" {
		t.Fatalf("empty reply: %+v", body)
	}

	turns, err := memoryStore.Recent(ctx, 42, 10)
	if err != nil {
		t.Fatalf("Recent error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	if turns[0].Role != memory.RoleUser || turns[0].Text != "hello" {
		t.Fatalf("first turn = %+v", turns[0])
	}
	if turns[1].Role != memory.RoleAssistant || turns[1].Text != reply {
		t.Fatalf("second turn = %+v", turns[1])
	}
}

func TestChatBlockedIsForbidden(t *testing.T) {
	ts, accessStore, _ := newTestServer(t)
	ctx := context.Background()
	_ = accessStore.SetFree(ctx, 42, true)
	_ = accessStore.SetBlocked(ctx, 42, true)

	res := postJSON(t, ts.URL+"/api/chat", map[string]any{"user_id": 42, "text": "hello"})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}
}

func TestChatEmptyTextIsBadRequest(t *testing.T) {
	ts, accessStore, _ := newTestServer(t)
	_ = accessStore.SetFree(context.Background(), 42, true)

	res := postJSON(t, ts.URL+"/api/chat", map[string]any{"user_id": 42, "text": "   "})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestMemoryClear(t *testing.T) {
	ts, accessStore, memoryStore := newTestServer(t)
	ctx := context.Background()
	_ = accessStore.SetFree(ctx, 42, true)
	_ = memoryStore.Append(ctx, 42, memory.RoleUser, "hello")

	res := postJSON(t, ts.URL+"/api/memory/clear", map[string]any{"user_id": 42})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	body := decodeBody(t, res)
	if body["ok"] != true {
		t.Fatalf("body = %+v", body)
	}

	turns, _ := memoryStore.Recent(ctx, 42, 10)
	if len(turns) != 0 {
		t.Fatalf("len(turns) = %d, want 0", len(turns))
	}
}

func TestImageRequiresPayload(t *testing.T) {
	ts, accessStore, _ := newTestServer(t)
	_ = accessStore.SetFree(context.Background(), 42, true)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("user_id", "42")
	_ = mw.WriteField("mode", "img2img")
	_ = mw.WriteField("prompt", "a cat")
	_ = mw.Close()

	res, err := http.Post(ts.URL+"/api/image", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /api/image error = %v", err)
	}
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
	payload := decodeBody(t, res)
	if payload["code"] != "image_required" {
		t.Fatalf("code = %v, want image_required", payload["code"])
	}
}

func TestImageTxt2Img(t *testing.T) {
	ts, accessStore, _ := newTestServer(t)
	_ = accessStore.SetFree(context.Background(), 42, true)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("user_id", "42")
	_ = mw.WriteField("mode", "txt2img")
	_ = mw.WriteField("prompt", "a cat")
	_ = mw.Close()

	res, err := http.Post(ts.URL+"/api/image", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /api/image error = %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	payload := decodeBody(t, res)
	img, _ := payload["image_base64"].(string)
	if !strings.HasPrefix(img, "data:image/png;base64,") {
		t.Fatalf("image_base64 = %q", img)
	}
}

func TestAdminAccessEndpoints(t *testing.T) {
	ts, accessStore, _ := newTestServer(t)
	ctx := context.Background()

	res := postJSON(t, ts.URL+"/admin/access/free", map[string]any{"user_id": 42})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("free status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	res.Body.Close()
	if !accessStore.Get(ctx, 42).IsFree {
		t.Fatalf("free grant did not persist")
	}

	res = postJSON(t, ts.URL+"/admin/access/block", map[string]any{"user_id": 42})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("block status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	res.Body.Close()
	if !accessStore.Get(ctx, 42).IsBlocked {
		t.Fatalf("block did not persist")
	}

	res = postJSON(t, ts.URL+"/admin/access/unblock", map[string]any{"user_id": 42})
	res.Body.Close()

	statusRes, err := http.Get(ts.URL + "/admin/access/status?user_id=42")
	if err != nil {
		t.Fatalf("GET status error = %v", err)
	}
	record := decodeBody(t, statusRes)
	if record["is_free"] != true || record["is_blocked"] != false {
		t.Fatalf("status record = %+v", record)
	}
}

func TestAdminGrantWithExpiry(t *testing.T) {
	ts, accessStore, _ := newTestServer(t)
	ctx := context.Background()

	res := postJSON(t, ts.URL+"/admin/access/free", map[string]any{"user_id": 42, "until": -1})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	res.Body.Close()

	rec := accessStore.Get(ctx, 42)
	if !rec.IsFree || rec.FreeUntil != access.Forever {
		t.Fatalf("record = %+v, want free forever", rec)
	}

	res = postJSON(t, ts.URL+"/admin/access/paid", map[string]any{"user_id": 42, "until": -1})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("paid with until status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
	res.Body.Close()
}

func TestAdminTokenGate(t *testing.T) {
	accessStore := access.NewInMemoryStore()
	memoryStore := memory.NewInMemoryStore(48)
	orchestrator := chat.NewOrchestrator(accessStore, memoryStore, provider.NewMockCompleter(), provider.NewMockImageGenerator(), nil, nil, 24)
	srv := New(config.Config{AdminToken: "s3cret"}, orchestrator, accessStore, nil, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res := postJSON(t, ts.URL+"/admin/access/free", map[string]any{"user_id": 42})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status without token = %d, want %d", res.StatusCode, http.StatusForbidden)
	}
	res.Body.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/admin/access/free", strings.NewReader(`{"user_id":42}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Token", "s3cret")
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authed request error = %v", err)
	}
	defer authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("status with token = %d, want %d", authed.StatusCode, http.StatusOK)
	}
}

func TestHealthz(t *testing.T) {
	ts, _, _ := newTestServer(t)
	res, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
}
