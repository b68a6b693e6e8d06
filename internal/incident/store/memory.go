package store

import (
	"context"
	"slices"
	"sync"

	"rgpdgate/internal/incident/models"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	"rgpdgate/pkg/platform/sentinel"
)

// InMemory is an incident registry for tests and local runs.
type InMemory struct {
	mu        sync.RWMutex
	incidents map[domain.IncidentID]*models.Incident
	order     []domain.IncidentID
}

func NewInMemory() *InMemory {
	return &InMemory{incidents: make(map[domain.IncidentID]*models.Incident)}
}

func (s *InMemory) Create(ctx context.Context, inc *models.Incident) error {
	if err := tenancy.EnsureNullable(ctx, inc.TenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incidents[inc.ID]; ok {
		return sentinel.ErrConflict
	}
	s.incidents[inc.ID] = clone(inc)
	s.order = append(s.order, inc.ID)
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, id domain.IncidentID) (*models.Incident, error) {
	if err := tenancy.EnsurePlatform(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	inc, ok := s.incidents[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(inc), nil
}

func (s *InMemory) Execute(ctx context.Context, id domain.IncidentID, validate func(*models.Incident) error, mutate func(*models.Incident)) (*models.Incident, error) {
	if err := tenancy.EnsurePlatform(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inc, ok := s.incidents[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := clone(inc)
	if err := validate(cp); err != nil {
		return nil, err
	}
	mutate(cp)
	s.incidents[id] = clone(cp)
	return cp, nil
}

func (s *InMemory) ListUnresolved(ctx context.Context) ([]*models.Incident, error) {
	if err := tenancy.EnsurePlatform(ctx); err != nil {
		return nil, err
	}
	return s.list(func(inc *models.Incident) bool { return inc.ResolvedAt == nil }), nil
}

func (s *InMemory) ListByTenant(ctx context.Context, tenantID domain.TenantID) ([]*models.Incident, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.list(func(inc *models.Incident) bool { return inc.TenantID == tenantID }), nil
}

// list returns matching incidents, most recently detected first.
func (s *InMemory) list(keep func(*models.Incident) bool) []*models.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Incident
	for _, id := range s.order {
		if inc := s.incidents[id]; keep(inc) {
			out = append(out, clone(inc))
		}
	}
	slices.SortStableFunc(out, func(a, b *models.Incident) int {
		return b.DetectedAt.Compare(a.DetectedAt)
	})
	return out
}

func clone(inc *models.Incident) *models.Incident {
	cp := *inc
	cp.DataCategories = slices.Clone(inc.DataCategories)
	return &cp
}
