package store

import (
	"context"
	"sync"

	"dossier/pkg/platform/sentinel"
)

// InMemory is a process-local slot. Useful for tests and ephemeral runs.
type InMemory struct {
	mu   sync.RWMutex
	data []byte
	set  bool
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Read(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), s.data...), nil
}

func (s *InMemory) Write(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	s.set = true
	return nil
}
