package models

import (
	"context"
	"errors"
)

var ErrUnknownModel = errors.New("unknown model")

// Manager answers which model identifiers a chat turn may use.
type Manager interface {
	List(ctx context.Context) ([]string, error)
	Healthy(ctx context.Context, model string) error
}

// StaticManager serves a fixed list. It backs the demo engine and acts as the
// fallback when the remote listing is unavailable.
type StaticManager struct{ items []string }

func NewStaticManager(items []string) *StaticManager { return &StaticManager{items: items} }

func (m *StaticManager) List(_ context.Context) ([]string, error) {
	return append([]string(nil), m.items...), nil
}

func (m *StaticManager) Healthy(_ context.Context, model string) error {
	for _, x := range m.items {
		if x == model {
			return nil
		}
	}
	return ErrUnknownModel
}
