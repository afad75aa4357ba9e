package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/varsilias/chatpad/pkg/types"
)

// Engine produces one assistant reply for a conversation. history is the full
// ordered message sequence, system message first, ending with the user turn
// being answered.
type Engine interface {
	Generate(ctx context.Context, model string, history []types.Message, p types.GenParams) (text string, latency time.Duration, err error)
}

// EchoEngine answers without a remote API by repeating the last user message.
// It backs the -echo demo mode and most tests.
type EchoEngine struct {
	minLatency time.Duration
}

func NewEchoEngine(minLatency time.Duration) *EchoEngine { return &EchoEngine{minLatency: minLatency} }

func (e *EchoEngine) Generate(ctx context.Context, model string, history []types.Message, _ types.GenParams) (string, time.Duration, error) {
	start := time.Now()
	if e.minLatency > 0 {
		select {
		case <-ctx.Done():
			return "", 0, ctx.Err()
		case <-time.After(e.minLatency):
		}
	}
	var last string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == types.RoleUser {
			last = history[i].Content
			break
		}
	}
	return fmt.Sprintf("(demo:%s) you said: %s", model, last), time.Since(start), nil
}
