package tenant

import (
	"context"
	"slices"
	"strings"
	"sync"

	"rgpdgate/internal/tenancy"
	"rgpdgate/internal/tenant/models"
	"rgpdgate/pkg/domain"
	"rgpdgate/pkg/platform/sentinel"
)

// InMemory stores tenants in a map with a slug index.
type InMemory struct {
	mu     sync.RWMutex
	byID   map[domain.TenantID]*models.Tenant
	bySlug map[string]domain.TenantID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:   make(map[domain.TenantID]*models.Tenant),
		bySlug: make(map[string]domain.TenantID),
	}
}

// CreateIfSlugAvailable inserts the tenant unless its slug is taken.
func (s *InMemory) CreateIfSlugAvailable(ctx context.Context, t *models.Tenant) error {
	if err := tenancy.EnsurePlatform(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(t.Slug)
	if _, taken := s.bySlug[key]; taken {
		return sentinel.ErrAlreadyUsed
	}
	cp := *t
	s.byID[t.ID] = &cp
	s.bySlug[key] = t.ID
	return nil
}

// FindByID is readable from the tenant's own scope and the platform scope.
func (s *InMemory) FindByID(ctx context.Context, tenantID domain.TenantID) (*models.Tenant, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byID[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *InMemory) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	if err := tenancy.EnsurePlatform(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySlug[strings.ToLower(slug)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

// List returns all tenants ordered by creation time.
func (s *InMemory) List(ctx context.Context) ([]*models.Tenant, error) {
	if err := tenancy.EnsurePlatform(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Tenant, 0, len(s.byID))
	for _, t := range s.byID {
		cp := *t
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *models.Tenant) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

// Execute runs validate then mutate on the stored tenant under the write lock.
func (s *InMemory) Execute(ctx context.Context, tenantID domain.TenantID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error) {
	if err := tenancy.EnsurePlatform(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *t
	if err := validate(&cp); err != nil {
		return nil, err
	}
	mutate(&cp)
	s.byID[tenantID] = &cp
	out := cp
	return &out, nil
}
