package store

import (
	"context"
	"sync"
	"time"

	"rgpdgate/internal/rgpd/models"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	"rgpdgate/pkg/platform/sentinel"
)

// ExportInMemory indexes export metadata by id and by token hash.
type ExportInMemory struct {
	mu      sync.RWMutex
	exports map[domain.ExportID]*models.ExportMetadata
	byToken map[string]domain.ExportID
}

func NewExportInMemory() *ExportInMemory {
	return &ExportInMemory{
		exports: make(map[domain.ExportID]*models.ExportMetadata),
		byToken: make(map[string]domain.ExportID),
	}
}

func (s *ExportInMemory) Create(ctx context.Context, m *models.ExportMetadata) error {
	if err := tenancy.Ensure(ctx, m.TenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exports[m.ID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byToken[m.DownloadTokenHash]; ok {
		return sentinel.ErrConflict
	}
	cp := *m
	s.exports[m.ID] = &cp
	s.byToken[m.DownloadTokenHash] = m.ID
	return nil
}

// FindByTokenHash only sees exports of the scoped tenant; a token issued in
// another tenant is reported as not found.
func (s *ExportInMemory) FindByTokenHash(ctx context.Context, tenantID domain.TenantID, hash string) (*models.ExportMetadata, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byToken[hash]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	m := s.exports[id]
	if m.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *ExportInMemory) Execute(ctx context.Context, tenantID domain.TenantID, id domain.ExportID, validate func(*models.ExportMetadata) error, mutate func(*models.ExportMetadata)) (*models.ExportMetadata, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.exports[id]
	if !ok || m.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	cp := *m
	if err := validate(&cp); err != nil {
		return nil, err
	}
	mutate(&cp)
	s.exports[id] = &cp
	out := cp
	return &out, nil
}

func (s *ExportInMemory) Delete(ctx context.Context, tenantID domain.TenantID, id domain.ExportID) error {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.exports[id]
	if !ok || m.TenantID != tenantID {
		return sentinel.ErrNotFound
	}
	delete(s.byToken, m.DownloadTokenHash)
	delete(s.exports, id)
	return nil
}

// DeleteByUser removes every export of the subject and returns their ids so
// the bundles can be dropped too.
func (s *ExportInMemory) DeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) ([]domain.ExportID, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []domain.ExportID
	for id, m := range s.exports {
		if m.TenantID == tenantID && m.UserID == userID {
			delete(s.byToken, m.DownloadTokenHash)
			delete(s.exports, id)
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ListExpired returns exports past their expiry across all tenants.
// Platform scope only.
func (s *ExportInMemory) ListExpired(ctx context.Context, now time.Time) ([]*models.ExportMetadata, error) {
	if err := tenancy.EnsurePlatform(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ExportMetadata
	for _, m := range s.exports {
		if m.IsExpired(now) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}
