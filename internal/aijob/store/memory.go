package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"rgpdgate/internal/aijob/models"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	"rgpdgate/pkg/platform/sentinel"
)

// InMemory stores AI job metadata by id.
type InMemory struct {
	mu   sync.RWMutex
	jobs map[domain.AiJobID]*models.Job
}

func NewInMemory() *InMemory {
	return &InMemory{jobs: make(map[domain.AiJobID]*models.Job)}
}

func (s *InMemory) Create(ctx context.Context, j *models.Job) error {
	if err := tenancy.Ensure(ctx, j.TenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[j.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *j
	s.jobs[j.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, tenantID domain.TenantID, jobID domain.AiJobID) (*models.Job, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	if !ok || j.TenantID != tenantID || j.DeletedAt != nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

// Execute validates and mutates a live job under the write lock.
func (s *InMemory) Execute(ctx context.Context, tenantID domain.TenantID, jobID domain.AiJobID, validate func(*models.Job) error, mutate func(*models.Job)) (*models.Job, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok || j.TenantID != tenantID || j.DeletedAt != nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *j
	if err := validate(&cp); err != nil {
		return nil, err
	}
	mutate(&cp)
	s.jobs[jobID] = &cp
	out := cp
	return &out, nil
}

// ListByUser returns live jobs, oldest first.
func (s *InMemory) ListByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]*models.Job, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Job
	for _, j := range s.jobs {
		if j.TenantID == tenantID && j.UserID == userID && j.DeletedAt == nil {
			cp := *j
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Job) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *InMemory) SoftDeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, at time.Time) (int, error) {
	return s.each(ctx, tenantID, userID, func(j *models.Job) bool {
		if j.DeletedAt != nil {
			return false
		}
		j.DeletedAt = &at
		return true
	})
}

func (s *InMemory) RestoreByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error {
	_, err := s.each(ctx, tenantID, userID, func(j *models.Job) bool {
		j.DeletedAt = nil
		return true
	})
	return err
}

func (s *InMemory) HardDeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (int, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, j := range s.jobs {
		if j.TenantID == tenantID && j.UserID == userID {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}

func (s *InMemory) each(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, fn func(*models.Job) bool) (int, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, j := range s.jobs {
		if j.TenantID == tenantID && j.UserID == userID && fn(j) {
			n++
		}
	}
	return n, nil
}
