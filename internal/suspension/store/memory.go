package store

import (
	"context"
	"sync"

	"rgpdgate/internal/suspension/models"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
)

// InMemory keeps suspension history per tenant in append order.
type InMemory struct {
	mu      sync.RWMutex
	records map[domain.TenantID][]models.Record
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[domain.TenantID][]models.Record)}
}

func (s *InMemory) Append(ctx context.Context, r *models.Record) error {
	if err := tenancy.Ensure(ctx, r.TenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.TenantID] = append(s.records[r.TenantID], *r)
	return nil
}

func (s *InMemory) ListByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]*models.Record, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for _, r := range s.records[tenantID] {
		if r.UserID == userID {
			cp := r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemory) HardDeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (int, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[tenantID][:0]
	n := 0
	for _, r := range s.records[tenantID] {
		if r.UserID == userID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.records[tenantID] = kept
	return n, nil
}
