package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/varsilias/chatpad/internal/session"
	"github.com/varsilias/chatpad/pkg/types"
)

// ErrBusy rejects a submission while the session's previous turn is still in
// flight. Turns are strictly sequential per session; a rejected submission
// mutates nothing.
var ErrBusy = errors.New("a reply is still being generated for this conversation")

type Controller struct {
	log      *slog.Logger
	eng      Engine
	sessions session.Store
	params   types.GenParams

	inflight sync.Map // session id → struct{}
}

func NewController(log *slog.Logger, eng Engine, store session.Store, params types.GenParams) *Controller {
	return &Controller{log: log, eng: eng, sessions: store, params: params}
}

// Chat runs one synchronous turn: it seeds the conversation if new and
// persists the user message, then calls the engine with the full history
// and persists the reply. When the engine fails, the user message stays in
// the conversation and no assistant message is appended, so the input is
// never silently lost.
func (c *Controller) Chat(ctx context.Context, sessionID, model, prompt string) (types.Message, time.Duration, error) {
	if _, loaded := c.inflight.LoadOrStore(sessionID, struct{}{}); loaded {
		return types.Message{}, 0, ErrBusy
	}
	defer c.inflight.Delete(sessionID)

	if err := c.sessions.Ensure(sessionID); err != nil {
		return types.Message{}, 0, err
	}

	user := types.Message{Role: types.RoleUser, Content: prompt, Timestamp: time.Now()}
	if err := c.sessions.Append(sessionID, user); err != nil {
		return types.Message{}, 0, err
	}

	history, err := c.sessions.Get(sessionID)
	if err != nil {
		return types.Message{}, 0, err
	}

	c.log.Info("chat turn", "session", sessionID, "model", model, "history_len", len(history))
	text, latency, err := c.eng.Generate(ctx, model, history, c.params)
	if err != nil {
		c.log.Error("engine call", "session", sessionID, "err", err.Error())
		return types.Message{}, 0, err
	}

	assistant := types.Message{Role: types.RoleAssistant, Content: text, Timestamp: time.Now()}
	if err := c.sessions.Append(sessionID, assistant); err != nil {
		return types.Message{}, 0, err
	}
	return assistant, latency, nil
}
