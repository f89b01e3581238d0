package state

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/logship/logship/internal/core/domain"
)

// MemoryStore is an in-process Store for tests and dry runs. State is copied
// through JSON on the way in and out so callers never share map instances.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string][]byte)}
}

func (s *MemoryStore) Load(ctx context.Context, key string) (*domain.UploadState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.states[key]
	if !ok {
		return domain.NewUploadState(), nil
	}

	st := domain.NewUploadState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *MemoryStore) Save(ctx context.Context, key string, st *domain.UploadState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[key] = data
	return nil
}
