// Package store provides the RecordStore backends: in-process memory for
// tests and single-node runs, Redis and Postgres for shared deployments.
package store

import (
	"context"
	"fmt"
	"sync"

	"tokensafe/internal/ledger"
	"tokensafe/pkg/platform/sentinel"
)

// InMemoryRecordStore keeps records in a map. Safe for concurrent use; each
// call holds the lock for its full duration so per-address operations are
// atomic.
type InMemoryRecordStore struct {
	mu      sync.RWMutex
	records map[ledger.Address][]byte
}

func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{
		records: make(map[ledger.Address][]byte),
	}
}

func (s *InMemoryRecordStore) Create(_ context.Context, addr ledger.Address, size int, data []byte) error {
	if len(data) != size {
		return fmt.Errorf("create %s: data length %d does not match declared size %d", addr, len(data), size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[addr]; exists {
		return fmt.Errorf("create %s: %w", addr, sentinel.ErrAlreadyExists)
	}
	stored := make([]byte, size)
	copy(stored, data)
	s.records[addr] = stored
	return nil
}

func (s *InMemoryRecordStore) Read(_ context.Context, addr ledger.Address) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.records[addr]
	if !exists {
		return nil, fmt.Errorf("read %s: %w", addr, sentinel.ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *InMemoryRecordStore) Write(_ context.Context, addr ledger.Address, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.records[addr]
	if !exists {
		return fmt.Errorf("write %s: %w", addr, sentinel.ErrNotFound)
	}
	if len(data) != len(existing) {
		return fmt.Errorf("write %s: data length %d does not match record size %d", addr, len(data), len(existing))
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.records[addr] = stored
	return nil
}
