package store

import (
	"context"
	"sync"
	"time"

	"rgpdgate/internal/consent/models"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	"rgpdgate/pkg/platform/sentinel"
)

type subjectKey struct {
	tenant domain.TenantID
	user   domain.UserID
}

// InMemory keeps each subject's consent history in append order.
type InMemory struct {
	mu      sync.RWMutex
	history map[subjectKey][]*models.Record
}

func NewInMemory() *InMemory {
	return &InMemory{history: make(map[subjectKey][]*models.Record)}
}

func (s *InMemory) Append(ctx context.Context, r *models.Record) error {
	if err := tenancy.Ensure(ctx, r.TenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := subjectKey{r.TenantID, r.UserID}
	for _, existing := range s.history[k] {
		if existing.ID == r.ID {
			return sentinel.ErrConflict
		}
	}
	cp := *r
	s.history[k] = append(s.history[k], &cp)
	return nil
}

// Latest returns the newest live record for the purpose.
func (s *InMemory) Latest(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, purpose domain.ConsentPurpose) (*models.Record, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.history[subjectKey{tenantID, userID}]
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if r.Purpose == purpose && r.DeletedAt == nil {
			cp := *r
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListByUser returns the live history, oldest first.
func (s *InMemory) ListByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]*models.Record, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for _, r := range s.history[subjectKey{tenantID, userID}] {
		if r.DeletedAt == nil {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemory) SoftDeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, at time.Time) (int, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.history[subjectKey{tenantID, userID}] {
		if r.DeletedAt == nil {
			r.DeletedAt = &at
			n++
		}
	}
	return n, nil
}

func (s *InMemory) RestoreByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.history[subjectKey{tenantID, userID}] {
		r.DeletedAt = nil
	}
	return nil
}

func (s *InMemory) HardDeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (int, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := subjectKey{tenantID, userID}
	n := len(s.history[k])
	delete(s.history, k)
	return n, nil
}
