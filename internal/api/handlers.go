package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/varsilias/chatpad/internal/buildinfo"
	"github.com/varsilias/chatpad/internal/chat"
	"github.com/varsilias/chatpad/internal/models"
	"github.com/varsilias/chatpad/internal/openai"
	"github.com/varsilias/chatpad/internal/session"
	"github.com/varsilias/chatpad/pkg/utils"
)

type Handlers struct {
	log          *slog.Logger
	chat         *chat.Controller
	models       models.Manager
	sessions     session.Store
	defaultModel string

	// ConfigError, when set, marks the upstream client as unusable. Turn and
	// model endpoints answer 503 with this message instead of calling out.
	ConfigError string
}

func NewHandlers(log *slog.Logger, chatCtrl *chat.Controller, manager models.Manager, store session.Store, defaultModel string) *Handlers {
	return &Handlers{
		log:          log,
		chat:         chatCtrl,
		models:       manager,
		sessions:     store,
		defaultModel: defaultModel,
	}
}

// Health is a basic liveness endpoint.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, map[string]any{
		"status":    true,
		"message":   "chatpad",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, map[string]any{
		"version":  buildinfo.Version,
		"commit":   buildinfo.Commit,
		"built_at": buildinfo.BuiltAt,
	})
}

// ListModels GET /api/models
func (h *Handlers) ListModels(w http.ResponseWriter, r *http.Request) {
	if h.ConfigError != "" {
		utils.JSONError(w, http.StatusServiceUnavailable, "config", h.ConfigError)
		return
	}
	items, err := h.models.List(r.Context())
	if err != nil {
		status, kind, msg := errStatus(err)
		utils.JSONError(w, status, kind, msg)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"models": items})
}

// Chat POST /api/chat runs one conversation turn.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	if h.ConfigError != "" {
		utils.JSONError(w, http.StatusServiceUnavailable, "config", h.ConfigError)
		return
	}

	var req struct {
		Model     string `json:"model"`
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid_input", "invalid json")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		utils.JSONError(w, http.StatusBadRequest, "invalid_input", "message is required")
		return
	}
	if req.Model == "" {
		req.Model = h.defaultModel
	}
	if req.SessionID == "" {
		req.SessionID = "default"
	}

	msg, latency, err := h.chat.Chat(r.Context(), req.SessionID, req.Model, req.Message)
	if err != nil {
		status, kind, userMsg := errStatus(err)
		h.log.Warn("chat turn failed", "session", req.SessionID, "kind", kind, "err", err.Error())
		utils.JSONError(w, status, kind, userMsg)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]any{
		"response":   msg.Content,
		"timestamp":  msg.Timestamp.UTC().Format(time.RFC3339),
		"latency_ms": latency.Milliseconds(),
		"model":      req.Model,
		"session_id": req.SessionID,
	})
}

// GetHistory GET /api/history/{sessionID} returns the visible conversation.
// The hidden system instruction never leaves the server.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := pathSessionID(r)
	if sessionID == "" {
		utils.JSONError(w, http.StatusBadRequest, "invalid_input", "missing session_id")
		return
	}

	history, err := h.sessions.Visible(sessionID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	out := make([]map[string]string, 0, len(history))
	for _, m := range history {
		out = append(out, map[string]string{"role": string(m.Role), "content": m.Content})
	}
	utils.JSON(w, http.StatusOK, map[string]any{"history": out})
}

// errStatus maps a turn failure onto an HTTP status, a machine-readable kind
// and a user-facing message.
func errStatus(err error) (int, string, string) {
	if errors.Is(err, chat.ErrBusy) {
		return http.StatusConflict, "busy", "A reply is still being generated for this conversation. Wait for it to finish."
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		status := http.StatusBadGateway
		if apiErr.Kind == openai.KindRateLimited {
			status = http.StatusTooManyRequests
		}
		return status, string(apiErr.Kind), apiErr.UserMessage()
	}
	if errors.Is(err, session.ErrEmptySessionID) {
		return http.StatusBadRequest, "invalid_input", err.Error()
	}
	return http.StatusInternalServerError, "internal", "something went wrong handling this turn"
}
