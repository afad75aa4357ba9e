package openai

import (
	"errors"
	"fmt"
)

// Kind classifies a failed remote call for user-facing reporting.
type Kind string

const (
	KindAuth        Kind = "auth"
	KindRateLimited Kind = "rate_limited"
	KindNetwork     Kind = "network"
	KindUnknown     Kind = "unknown"
)

// Sentinels for errors.Is comparisons against APIError kinds.
var (
	ErrAuth        = errors.New("credentials rejected")
	ErrRateLimited = errors.New("rate limited")
	ErrNetwork     = errors.New("api unreachable")
	ErrUnknown     = errors.New("unexpected api error")
)

// ErrInit marks a client that could not be constructed. It is surfaced once
// at startup, never per turn.
var ErrInit = errors.New("client init")

// APIError is a failed remote call. Every error returned by Client methods is
// one of these, so callers can switch on Kind or match the sentinels above.
type APIError struct {
	Kind     Kind
	Status   int // HTTP status when one was received, 0 otherwise
	Endpoint string
	Message  string
	err      error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("openai: %s [%d] at %s: %s", e.Kind, e.Status, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("openai: %s at %s: %s", e.Kind, e.Endpoint, e.Message)
}

func (e *APIError) Unwrap() error { return e.err }

// Is matches the sentinel corresponding to the error's Kind.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuth:
		return e.Kind == KindAuth
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrUnknown:
		return e.Kind == KindUnknown
	}
	return false
}

// UserMessage is the banner text shown for this failure. It names the next
// step rather than the mechanics.
func (e *APIError) UserMessage() string {
	switch e.Kind {
	case KindAuth:
		return "The API rejected the configured credentials. Check OPENAI_API_KEY and restart the server."
	case KindRateLimited:
		return "The API is rate limiting requests right now. Wait a moment and resubmit your message."
	case KindNetwork:
		return "Could not reach the API. Check your connection and resubmit your message."
	default:
		return "The API returned an unexpected error. Resubmit your message to try again."
	}
}

// classify maps an HTTP status from the remote API onto a Kind.
func classify(status int) Kind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 429:
		return KindRateLimited
	default:
		return KindUnknown
	}
}
