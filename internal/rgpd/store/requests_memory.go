// Package store persists data-subject requests, export metadata and the
// encrypted export bundles.
package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"rgpdgate/internal/rgpd/models"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	"rgpdgate/pkg/platform/sentinel"
)

// RequestInMemory keeps requests in creation order.
type RequestInMemory struct {
	mu       sync.RWMutex
	requests []*models.Request
}

func NewRequestInMemory() *RequestInMemory {
	return &RequestInMemory{}
}

// Create rejects a second PENDING request of the same type for the subject.
func (s *RequestInMemory) Create(ctx context.Context, r *models.Request) error {
	if err := tenancy.Ensure(ctx, r.TenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.requests {
		if existing.ID == r.ID {
			return sentinel.ErrConflict
		}
		if r.Status == models.StatusPending && existing.Status == models.StatusPending &&
			existing.TenantID == r.TenantID && existing.UserID == r.UserID && existing.Type == r.Type {
			return sentinel.ErrConflict
		}
	}
	cp := *r
	s.requests = append(s.requests, &cp)
	return nil
}

func (s *RequestInMemory) FindByID(ctx context.Context, tenantID domain.TenantID, id domain.RequestID) (*models.Request, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.requests {
		if r.ID == id && r.TenantID == tenantID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// FindLatest returns the most recent request of the type for the subject.
func (s *RequestInMemory) FindLatest(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, typ models.RequestType) (*models.Request, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		r := s.requests[i]
		if r.TenantID == tenantID && r.UserID == userID && r.Type == typ {
			cp := *r
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *RequestInMemory) Execute(ctx context.Context, tenantID domain.TenantID, id domain.RequestID, validate func(*models.Request) error, mutate func(*models.Request)) (*models.Request, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.requests {
		if r.ID != id || r.TenantID != tenantID {
			continue
		}
		cp := *r
		if err := validate(&cp); err != nil {
			return nil, err
		}
		mutate(&cp)
		s.requests[i] = &cp
		out := cp
		return &out, nil
	}
	return nil, sentinel.ErrNotFound
}

// ListDue returns pending deletions whose purge date has passed, across all
// tenants, oldest schedule first. Platform scope only.
func (s *RequestInMemory) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Request, error) {
	if err := tenancy.EnsurePlatform(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Request
	for _, r := range s.requests {
		if r.IsDue(now) {
			cp := *r
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Request) int { return a.ScheduledPurgeAt.Compare(*b.ScheduledPurgeAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
