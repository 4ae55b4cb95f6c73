package session

import (
	"context"
	"errors"
	"sync"

	"github.com/lgulliver/lodestone-backend/pkg/types"
)

// ErrRegistryUnavailable marks a session backend that can no longer be trusted
// to hold consistent state. Callers must fail the request instead of answering.
var ErrRegistryUnavailable = errors.New("session registry unavailable")

// Store holds the set of tracked upload sessions
type Store interface {
	// Add inserts the layer; adding a present layer is a no-op
	Add(ctx context.Context, layer types.Layer) error

	// Contains reports whether the layer is tracked
	Contains(ctx context.Context, layer types.Layer) (bool, error)

	// Remove deletes the layer and reports whether it was present
	Remove(ctx context.Context, layer types.Layer) (bool, error)

	// Layers returns a point-in-time copy of all tracked layers
	Layers(ctx context.Context) ([]types.Layer, error)
}

// MemoryStore keeps sessions in process memory behind a single exclusive lock
type MemoryStore struct {
	mu      sync.Mutex
	uploads map[types.Layer]struct{}
}

// NewMemoryStore creates an empty in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{uploads: make(map[types.Layer]struct{})}
}

func (s *MemoryStore) Add(_ context.Context, layer types.Layer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.uploads[layer] = struct{}{}
	return nil
}

func (s *MemoryStore) Contains(_ context.Context, layer types.Layer) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.uploads[layer]
	return ok, nil
}

func (s *MemoryStore) Remove(_ context.Context, layer types.Layer) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.uploads[layer]; !ok {
		return false, nil
	}
	delete(s.uploads, layer)
	return true, nil
}

func (s *MemoryStore) Layers(_ context.Context) ([]types.Layer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	layers := make([]types.Layer, 0, len(s.uploads))
	for layer := range s.uploads {
		layers = append(layers, layer)
	}
	return layers, nil
}
