package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"rgpdgate/pkg/domain"
	audit "rgpdgate/pkg/platform/audit"
)

// InMemoryStore is an append-only audit sink for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Write(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.Metadata = maps.Clone(event.Metadata)
	s.events = append(s.events, event)
	return nil
}

// ListBySubject returns the subject's events newest first.
func (s *InMemoryStore) ListBySubject(_ context.Context, tenantID domain.TenantID, userID domain.UserID, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target := userID.String()
	var out []audit.Event
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if e.TenantID != tenantID {
			continue
		}
		if e.ActorID != userID && e.TargetID != target {
			continue
		}
		e.Metadata = maps.Clone(e.Metadata)
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) AnonymizeActor(_ context.Context, tenantID domain.TenantID, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := userID.String()
	for i := range s.events {
		e := &s.events[i]
		if e.TenantID != tenantID {
			continue
		}
		if e.ActorID == userID {
			e.ActorID = domain.UserID{}
		}
		if e.TargetID == target {
			e.TargetID = ""
		}
	}
	return nil
}

// All returns a copy of every recorded event in write order.
func (s *InMemoryStore) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// Names returns the recorded event names in write order.
func (s *InMemoryStore) Names() []audit.EventName {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]audit.EventName, 0, len(s.events))
	for _, e := range s.events {
		names = append(names, e.EventName)
	}
	return names
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
