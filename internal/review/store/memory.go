package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"rgpdgate/internal/review/models"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	"rgpdgate/pkg/platform/sentinel"
)

type InMemory struct {
	mu    sync.RWMutex
	cases map[domain.CaseID]*models.Case
}

func NewInMemory() *InMemory {
	return &InMemory{cases: make(map[domain.CaseID]*models.Case)}
}

func (s *InMemory) Create(ctx context.Context, c *models.Case) error {
	if err := tenancy.Ensure(ctx, c.TenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[c.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *c
	s.cases[c.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, tenantID domain.TenantID, id domain.CaseID) (*models.Case, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[id]
	if !ok || c.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemory) Execute(ctx context.Context, tenantID domain.TenantID, id domain.CaseID, validate func(*models.Case) error, mutate func(*models.Case)) (*models.Case, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok || c.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	if err := validate(&cp); err != nil {
		return nil, err
	}
	mutate(&cp)
	s.cases[id] = &cp
	out := cp
	return &out, nil
}

// list returns the tenant's cases matching keep, oldest first.
func (s *InMemory) list(ctx context.Context, tenantID domain.TenantID, keep func(*models.Case) bool) ([]*models.Case, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Case
	for _, c := range s.cases {
		if c.TenantID == tenantID && keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Case) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *InMemory) ListByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, kind models.Kind) ([]*models.Case, error) {
	return s.list(ctx, tenantID, func(c *models.Case) bool { return c.UserID == userID && c.Kind == kind })
}

func (s *InMemory) ListOpen(ctx context.Context, tenantID domain.TenantID, kind models.Kind) ([]*models.Case, error) {
	return s.list(ctx, tenantID, func(c *models.Case) bool { return c.Kind == kind && !c.Status.IsTerminal() })
}

func (s *InMemory) ListOverdue(ctx context.Context, tenantID domain.TenantID, kind models.Kind, now time.Time) ([]*models.Case, error) {
	return s.list(ctx, tenantID, func(c *models.Case) bool { return c.Kind == kind && c.IsOverdue(now) })
}

func (s *InMemory) HardDeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (int, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, c := range s.cases {
		if c.TenantID == tenantID && c.UserID == userID {
			delete(s.cases, id)
			n++
		}
	}
	return n, nil
}
