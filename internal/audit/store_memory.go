package audit

import (
	"context"
	"sync"
)

// InMemoryStore keeps events in order of arrival. Suitable for tests and
// single-node runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByActor(_ context.Context, actor string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if e.Actor == actor {
			out = append(out, e)
		}
	}
	return out, nil
}
