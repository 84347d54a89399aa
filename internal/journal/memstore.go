package journal

import (
	"context"
	"slices"
	"sync"

	"github.com/voxjot/voxjot/pkg/types"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// It is suitable for running without a database and for testing.
// The zero value is ready to use.
type MemStore struct {
	mu      sync.RWMutex
	records []types.Record

	// SaveErr, when set, is returned by every Save call without mutating
	// the stored list. Tests use it to simulate a storage write failure.
	SaveErr error
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Load implements [Store.Load].
func (s *MemStore) Load(ctx context.Context) ([]types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records), nil
}

// Save implements [Store.Save].
func (s *MemStore) Save(ctx context.Context, records []types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.records = slices.Clone(records)
	return nil
}
