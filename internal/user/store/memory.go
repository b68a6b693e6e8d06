package store

import (
	"context"
	"sync"
	"time"

	"rgpdgate/internal/tenancy"
	"rgpdgate/internal/user/models"
	"rgpdgate/pkg/domain"
	"rgpdgate/pkg/platform/sentinel"
)

// InMemory is the development user store. Every method checks the active
// tenancy scope first, mirroring the row policies of the postgres store.
type InMemory struct {
	mu    sync.RWMutex
	users map[domain.UserID]*models.User
}

func NewInMemory() *InMemory {
	return &InMemory{users: make(map[domain.UserID]*models.User)}
}

func (s *InMemory) Create(ctx context.Context, u *models.User) error {
	if err := tenancy.EnsureNullable(ctx, u.TenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.users {
		if existing.TenantID == u.TenantID && existing.EmailHash == u.EmailHash && !existing.IsDeleted() {
			return sentinel.ErrConflict
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

// FindByID returns a live (not soft-deleted) user of the tenant.
func (s *InMemory) FindByID(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (*models.User, error) {
	u, err := s.find(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if u.IsDeleted() {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemory) FindByEmailHash(ctx context.Context, tenantID domain.TenantID, emailHash string) (*models.User, error) {
	if err := tenancy.EnsureNullable(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.TenantID == tenantID && u.EmailHash == emailHash && !u.IsDeleted() {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) SetSuspension(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, suspended bool, reason string, at time.Time) error {
	return s.mutate(ctx, tenantID, userID, func(u *models.User) {
		u.DataSuspended = suspended
		if suspended {
			u.DataSuspendedReason = reason
			u.DataSuspendedAt = &at
			return
		}
		u.DataSuspendedReason = ""
		u.DataSuspendedAt = nil
	})
}

func (s *InMemory) SoftDelete(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, at time.Time) error {
	return s.mutate(ctx, tenantID, userID, func(u *models.User) { u.DeletedAt = &at })
}

func (s *InMemory) Restore(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error {
	return s.mutate(ctx, tenantID, userID, func(u *models.User) { u.DeletedAt = nil })
}

func (s *InMemory) HardDelete(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok && u.TenantID == tenantID {
		delete(s.users, userID)
	}
	return nil
}

// SoftDeleteByTenant cascades a tenant deletion to its live users.
func (s *InMemory) SoftDeleteByTenant(ctx context.Context, tenantID domain.TenantID, at time.Time) (int, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.users {
		if u.TenantID == tenantID && !u.IsDeleted() {
			u.DeletedAt = &at
			n++
		}
	}
	return n, nil
}

func (s *InMemory) find(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (*models.User, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok || u.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	return u, nil
}

func (s *InMemory) mutate(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, fn func(*models.User)) error {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || u.TenantID != tenantID {
		return sentinel.ErrNotFound
	}
	fn(u)
	return nil
}
