package memory

import (
	"context"
	"sort"
	"sync"

	"solana-transfer-watch/internal/storage"
)

// SubscriberStore is an in-memory implementation of storage.SubscriberStore.
type SubscriberStore struct {
	mu   sync.RWMutex
	data map[int64]struct{}
}

// NewSubscriberStore creates a new in-memory subscriber store.
func NewSubscriberStore() *SubscriberStore {
	return &SubscriberStore{
		data: make(map[int64]struct{}),
	}
}

// Add registers a chat id. Adding an existing id is a no-op.
func (s *SubscriberStore) Add(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[chatID] = struct{}{}
	return nil
}

// Remove deletes a chat id. Returns ErrNotFound for unknown ids.
func (s *SubscriberStore) Remove(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[chatID]; !ok {
		return storage.ErrNotFound
	}
	delete(s.data, chatID)
	return nil
}

// List returns all subscribed chat ids in ascending order.
func (s *SubscriberStore) List(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Close is a no-op for the in-memory store.
func (s *SubscriberStore) Close() error {
	return nil
}
