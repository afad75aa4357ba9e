package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/varsilias/chatpad/internal/chat"
	"github.com/varsilias/chatpad/internal/models"
	"github.com/varsilias/chatpad/internal/openai"
	"github.com/varsilias/chatpad/internal/session"
	"github.com/varsilias/chatpad/pkg/types"
)

type stubEngine struct {
	reply string
	err   error
}

func (s *stubEngine) Generate(_ context.Context, _ string, _ []types.Message, _ types.GenParams) (string, time.Duration, error) {
	if s.err != nil {
		return "", 0, s.err
	}
	return s.reply, time.Millisecond, nil
}

func newTestRouter(eng chat.Engine) (*chi.Mux, *session.MemoryStore) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewMemoryStore("You are helpful.")
	ctrl := chat.NewController(log, eng, store, types.GenParams{Temperature: 0.7, MaxTokens: 1000})
	manager := models.NewStaticManager([]string{"gpt-4o-mini", "gpt-4o"})
	h := NewHandlers(log, ctrl, manager, store, "gpt-4o-mini")

	mux := chi.NewRouter()
	RegisterRoutes(mux, h)
	return mux, store
}

func doJSON(t *testing.T, mux *chi.Mux, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestChat_OK(t *testing.T) {
	mux, store := newTestRouter(&stubEngine{reply: "Hello!"})

	rec, out := doJSON(t, mux, http.MethodPost, "/api/chat", map[string]string{"message": "Hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Hello!", out["response"])
	require.Equal(t, "gpt-4o-mini", out["model"], "model falls back to the configured default")
	require.Equal(t, "default", out["session_id"])
	require.GreaterOrEqual(t, out["latency_ms"].(float64), float64(0))

	vis, _ := store.Visible("default")
	require.Len(t, vis, 2)
}

func TestChat_ExplicitSessionAndModel(t *testing.T) {
	mux, store := newTestRouter(&stubEngine{reply: "ok"})

	rec, out := doJSON(t, mux, http.MethodPost, "/api/chat", map[string]string{
		"message":    "Hi",
		"model":      "gpt-4o",
		"session_id": "abc",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gpt-4o", out["model"])
	require.Equal(t, "abc", out["session_id"])

	vis, _ := store.Visible("abc")
	require.Len(t, vis, 2)
}

func TestChat_MissingMessage(t *testing.T) {
	mux, _ := newTestRouter(&stubEngine{reply: "ok"})

	rec, out := doJSON(t, mux, http.MethodPost, "/api/chat", map[string]string{"message": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_input", out["kind"])
}

func TestChat_InvalidJSON(t *testing.T) {
	mux, _ := newTestRouter(&stubEngine{reply: "ok"})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader([]byte("{nope")))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_UpstreamRateLimited(t *testing.T) {
	mux, store := newTestRouter(&stubEngine{err: &openai.APIError{Kind: openai.KindRateLimited, Status: 429}})

	rec, out := doJSON(t, mux, http.MethodPost, "/api/chat", map[string]string{"message": "Hi"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "rate_limited", out["kind"])
	require.NotEmpty(t, out["error"])

	vis, _ := store.Visible("default")
	require.Len(t, vis, 1, "the user message survives a failed turn")
	require.Equal(t, string(types.RoleUser), string(vis[0].Role))
}

func TestChat_UpstreamAuthError(t *testing.T) {
	mux, _ := newTestRouter(&stubEngine{err: &openai.APIError{Kind: openai.KindAuth, Status: 401}})

	rec, out := doJSON(t, mux, http.MethodPost, "/api/chat", map[string]string{"message": "Hi"})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "auth", out["kind"])
}

func TestChat_UpstreamNetworkError(t *testing.T) {
	mux, _ := newTestRouter(&stubEngine{err: &openai.APIError{Kind: openai.KindNetwork}})

	rec, out := doJSON(t, mux, http.MethodPost, "/api/chat", map[string]string{"message": "Hi"})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "network", out["kind"])
}

func TestHistory(t *testing.T) {
	mux, _ := newTestRouter(&stubEngine{reply: "Hello!"})

	_, _ = doJSON(t, mux, http.MethodPost, "/api/chat", map[string]string{"message": "Hi", "session_id": "s1"})

	rec, out := doJSON(t, mux, http.MethodGet, "/api/history/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	history := out["history"].([]any)
	require.Len(t, history, 2)
	first := history[0].(map[string]any)
	second := history[1].(map[string]any)
	require.Equal(t, "user", first["role"])
	require.Equal(t, "Hi", first["content"])
	require.Equal(t, "assistant", second["role"])
	require.Equal(t, "Hello!", second["content"])
}

func TestHistory_NeverExposesSystemPrompt(t *testing.T) {
	mux, store := newTestRouter(&stubEngine{reply: "ok"})
	require.NoError(t, store.Ensure("seeded"))

	rec, out := doJSON(t, mux, http.MethodGet, "/api/history/seeded", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, out["history"])
}

func TestHistory_UnknownSession(t *testing.T) {
	mux, _ := newTestRouter(&stubEngine{reply: "ok"})

	rec, out := doJSON(t, mux, http.MethodGet, "/api/history/ghost", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, out["history"])
}

func TestListModels(t *testing.T) {
	mux, _ := newTestRouter(&stubEngine{reply: "ok"})

	rec, out := doJSON(t, mux, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []any{"gpt-4o-mini", "gpt-4o"}, out["models"])
}

func TestChat_ConfigErrorShortCircuits(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewMemoryStore("You are helpful.")
	ctrl := chat.NewController(log, &stubEngine{reply: "never"}, store, types.GenParams{})
	h := NewHandlers(log, ctrl, models.NewStaticManager(nil), store, "gpt-4o-mini")
	h.ConfigError = "OPENAI_API_KEY is not set."

	mux := chi.NewRouter()
	RegisterRoutes(mux, h)

	rec, out := doJSON(t, mux, http.MethodPost, "/api/chat", map[string]string{"message": "Hi"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "config", out["kind"])

	vis, _ := store.Visible("default")
	require.Empty(t, vis, "no turn ran")

	rec, out = doJSON(t, mux, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "config", out["kind"])
}

func TestHealth(t *testing.T) {
	mux, _ := newTestRouter(&stubEngine{reply: "ok"})

	rec, out := doJSON(t, mux, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, out["status"])
}

func TestVersion(t *testing.T) {
	mux, _ := newTestRouter(&stubEngine{reply: "ok"})

	rec, out := doJSON(t, mux, http.MethodGet, "/version", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, out, "version")
	require.Contains(t, out, "commit")
	require.Contains(t, out, "built_at")
}
