package chat

import (
	"context"
	"time"

	"github.com/varsilias/chatpad/internal/openai"
	"github.com/varsilias/chatpad/pkg/types"
)

// OpenAIEngine adapts the completion client to the Engine seam.
type OpenAIEngine struct {
	c *openai.Client
}

func NewOpenAIEngine(c *openai.Client) *OpenAIEngine {
	return &OpenAIEngine{c: c}
}

func (e *OpenAIEngine) Generate(ctx context.Context, model string, history []types.Message, p types.GenParams) (string, time.Duration, error) {
	start := time.Now()
	text, err := e.c.Complete(ctx, model, history, p)
	if err != nil {
		return "", 0, err
	}
	return text, time.Since(start), nil
}
