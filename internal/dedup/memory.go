// Package dedup provides execution-key claim stores backing the engine's
// at-most-one-execution-per-key guarantee.
package dedup

import (
	"context"
	"sync"

	"github.com/gonggit/spring-batch-quartz/internal/engine"
)

// MemoryStore claims keys in process memory. Suitable for single-node
// deployments and tests; claims do not survive restarts.
type MemoryStore struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{claimed: make(map[string]struct{})}
}

func (s *MemoryStore) Claim(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.claimed[key]; exists {
		return engine.ErrDuplicateRequest
	}
	s.claimed[key] = struct{}{}
	return nil
}

// Len returns the number of claimed keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claimed)
}
