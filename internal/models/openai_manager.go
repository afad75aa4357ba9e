package models

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Lister is the slice of the completion client the manager needs.
type Lister interface {
	Models(ctx context.Context) ([]string, error)
}

// OpenAIManager serves the remote model listing. Results are cached briefly;
// the hosted listing is large and changes rarely.
type OpenAIManager struct {
	c   Lister
	ttl time.Duration

	mu      sync.Mutex
	cached  []string
	fetched time.Time
}

func NewOpenAIManager(c Lister) *OpenAIManager {
	return &OpenAIManager{c: c, ttl: 5 * time.Minute}
}

func (m *OpenAIManager) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	if m.cached != nil && time.Since(m.fetched) < m.ttl {
		out := append([]string(nil), m.cached...)
		m.mu.Unlock()
		return out, nil
	}
	m.mu.Unlock()

	ids, err := m.c.Models(ctx)
	if err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.cached != nil {
			// a stale listing beats an empty model selector
			return append([]string(nil), m.cached...), nil
		}
		return nil, err
	}
	sort.Strings(ids)

	m.mu.Lock()
	m.cached = ids
	m.fetched = time.Now()
	m.mu.Unlock()
	return append([]string(nil), ids...), nil
}

func (m *OpenAIManager) Healthy(ctx context.Context, model string) error {
	ids, err := m.List(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == model {
			return nil
		}
	}
	return ErrUnknownModel
}
