package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/varsilias/chatpad/internal/buildinfo"
	"github.com/varsilias/chatpad/pkg/types"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client talks to an OpenAI-compatible chat-completions API. It holds no
// per-conversation state and is safe for concurrent use; construct one per
// process and share it.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	log       *slog.Logger
	http      *http.Client
}

type Option func(*Client)

// WithBaseURL points the client at a different OpenAI-compatible endpoint
// (Groq, Together, a local vLLM, ...).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if s := strings.TrimRight(strings.TrimSpace(u), "/"); s != "" {
			c.baseURL = s
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient builds a client bound to the credential. A malformed credential
// (empty, or containing whitespace or control characters) fails here, before
// any request is made.
func NewClient(apiKey string, log *slog.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: api key is empty", ErrInit)
	}
	for _, r := range apiKey {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return nil, fmt.Errorf("%w: api key contains whitespace or control characters", ErrInit)
		}
	}

	c := &Client{
		baseURL:   defaultBaseURL,
		apiKey:    apiKey,
		userAgent: "chatpad/" + buildinfo.Version,
		log:       log,
		http:      &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL reports the endpoint the client is bound to.
func (c *Client) BaseURL() string { return c.baseURL }

// Wire shapes for POST /chat/completions. Timestamps are local bookkeeping
// and never cross the wire.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// errorBody is the error envelope OpenAI-compatible APIs return on failure.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends the full ordered message history and returns the first
// choice's text. history must already include the system message and the
// latest user turn; the client forwards it as-is.
func (c *Client) Complete(ctx context.Context, model string, history []types.Message, p types.GenParams) (string, error) {
	msgs := make([]chatMessage, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	})
	if err != nil {
		return "", &APIError{Kind: KindUnknown, Endpoint: "chat/completions", Message: "marshal request", err: err}
	}

	raw, err := c.post(ctx, "chat/completions", body)
	if err != nil {
		return "", err
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &APIError{Kind: KindUnknown, Endpoint: "chat/completions", Message: "undecodable response body", err: err}
	}
	if len(out.Choices) == 0 {
		return "", &APIError{Kind: KindUnknown, Endpoint: "chat/completions", Message: "no choices in response"}
	}

	c.log.Debug("completion",
		"model", out.Model,
		"finish_reason", out.Choices[0].FinishReason,
		"prompt_tokens", out.Usage.PromptTokens,
		"completion_tokens", out.Usage.CompletionTokens,
	)
	return out.Choices[0].Message.Content, nil
}

// Models lists the model IDs the endpoint exposes via GET /models.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	raw, err := c.get(ctx, "models")
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &APIError{Kind: KindUnknown, Endpoint: "models", Message: "undecodable response body", err: err}
	}
	ids := make([]string, 0, len(out.Data))
	for _, m := range out.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Verify probes the credential with a models listing. A KindAuth failure
// means the key was rejected outright.
func (c *Client) Verify(ctx context.Context) error {
	_, err := c.Models(ctx)
	return err
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &APIError{Kind: KindUnknown, Endpoint: endpoint, Message: "build request", err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, endpoint)
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint, nil)
	if err != nil {
		return nil, &APIError{Kind: KindUnknown, Endpoint: endpoint, Message: "build request", err: err}
	}
	return c.do(req, endpoint)
}

func (c *Client) do(req *http.Request, endpoint string) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Endpoint: endpoint, Message: "request failed", err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &APIError{
			Kind:     classify(res.StatusCode),
			Status:   res.StatusCode,
			Endpoint: endpoint,
			Message:  upstreamMessage(res.Status, buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Endpoint: endpoint, Message: "read response body", err: err}
	}
	return buf, nil
}

// upstreamMessage prefers the API's own error message over the raw status.
func upstreamMessage(status string, body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error.Message != "" {
		return eb.Error.Message
	}
	return status
}
