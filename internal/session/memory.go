package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/varsilias/chatpad/pkg/types"
)

var (
	ErrEmptySessionID = errors.New("empty session id")

	// ErrSystemAppend guards the seeding invariant: a conversation carries
	// exactly one system message, created with the conversation itself.
	ErrSystemAppend = errors.New("system messages are seeded at creation, not appended")
)

// Store holds per-session conversations for the lifetime of the process.
// Conversations are ordered and append-only; the first message is always the
// single system instruction.
type Store interface {
	// Ensure creates the session's conversation, seeded with the system
	// message, if it does not exist yet. Repeated calls are no-ops.
	Ensure(sessionID string) error
	// Append adds a user or assistant message at the end.
	Append(sessionID string, m types.Message) error
	// Get returns the full ordered conversation including the system message
	// (the literal prompt history sent upstream).
	Get(sessionID string) ([]types.Message, error)
	// Visible returns the conversation without system messages, in original
	// order, for display.
	Visible(sessionID string) ([]types.Message, error)
}

type MemoryStore struct {
	systemPrompt string

	mu      sync.RWMutex
	data    map[string][]types.Message
	updated map[string]time.Time
}

func NewMemoryStore(systemPrompt string) *MemoryStore {
	return &MemoryStore{
		systemPrompt: systemPrompt,
		data:         make(map[string][]types.Message),
		updated:      make(map[string]time.Time),
	}
}

func (s *MemoryStore) Ensure(sessionID string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedLocked(sessionID)
	return nil
}

func (s *MemoryStore) Append(sessionID string, m types.Message) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if m.Role == types.RoleSystem {
		return ErrSystemAppend
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedLocked(sessionID)
	s.data[sessionID] = append(s.data[sessionID], m)
	s.updated[sessionID] = time.Now()
	return nil
}

func (s *MemoryStore) Get(sessionID string) ([]types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.data[sessionID]
	out := make([]types.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) Visible(sessionID string) ([]types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.data[sessionID]
	out := make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == types.RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// seedLocked creates and seeds the conversation if absent. Callers hold mu.
func (s *MemoryStore) seedLocked(sessionID string) {
	if _, ok := s.data[sessionID]; ok {
		return
	}
	s.data[sessionID] = []types.Message{{
		Role:      types.RoleSystem,
		Content:   s.systemPrompt,
		Timestamp: time.Now(),
	}}
	s.updated[sessionID] = time.Now()
}

// Summary is a lightweight session listing entry for the sidebar.
type Summary struct {
	ID      string
	Title   string
	Updated time.Time
}

func (s *MemoryStore) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.data))
	for id, msgs := range s.data {
		out = append(out, Summary{ID: id, Title: titleFrom(msgs), Updated: s.updated[id]})
	}
	return out
}

// Touch seeds the session if needed and marks it as just used, so freshly
// created sessions show up in the listing.
func (s *MemoryStore) Touch(sessionID string) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedLocked(sessionID)
	s.updated[sessionID] = time.Now()
}

// titleFrom derives a listing title from the first user message.
func titleFrom(msgs []types.Message) string {
	for _, m := range msgs {
		if m.Role == types.RoleUser {
			return truncate(strings.Join(strings.Fields(m.Content), " "), 48)
		}
	}
	return "New chat"
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
