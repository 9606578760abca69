// Package store provides implementations of domain.MessageStore.
package store

import (
	"context"
	"slices"
	"sync"

	"creator-chat/internal/domain"
)

// Memory is an in-process MessageStore.
type Memory struct {
	mu    sync.RWMutex
	chats map[string][]domain.Message
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{chats: make(map[string][]domain.Message)}
}

// List returns a copy of the messages of chatID in canonical order.
func (m *Memory) List(_ context.Context, chatID string) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.CloneMessages(m.chats[chatID]), nil
}

// ReplaceAll swaps the messages of chatID under the write lock. The slice
// order is the insertion order used to break CreatedAt ties.
func (m *Memory) ReplaceAll(_ context.Context, chatID string, msgs []domain.Message) error {
	sorted := domain.CloneMessages(msgs)
	slices.SortStableFunc(sorted, func(a, b domain.Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(sorted) == 0 {
		delete(m.chats, chatID)
		return nil
	}
	m.chats[chatID] = sorted
	return nil
}
