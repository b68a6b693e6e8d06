package store

import (
	"context"
	"sync"

	"rgpdgate/internal/legal/models"
	"rgpdgate/internal/tenancy"
	"rgpdgate/pkg/domain"
	"rgpdgate/pkg/platform/sentinel"
)

type InMemory struct {
	mu          sync.RWMutex
	documents   []*models.Document
	acceptances []*models.Acceptance
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) CreateDocument(ctx context.Context, d *models.Document) error {
	if err := tenancy.EnsurePlatform(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.documents {
		if existing.ID == d.ID || (existing.Type == d.Type && existing.Version == d.Version) {
			return sentinel.ErrConflict
		}
	}
	cp := *d
	s.documents = append(s.documents, &cp)
	return nil
}

// LatestDocument returns the highest version of a type.
func (s *InMemory) LatestDocument(ctx context.Context, docType models.DocumentType) (*models.Document, error) {
	if err := tenancy.EnsureScoped(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Document
	for _, d := range s.documents {
		if d.Type != docType {
			continue
		}
		if latest == nil || models.CompareVersions(d.Version, latest.Version) > 0 {
			latest = d
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *InMemory) CreateAcceptance(ctx context.Context, a *models.Acceptance) error {
	if err := tenancy.Ensure(ctx, a.TenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.acceptances {
		if existing.TenantID == a.TenantID && existing.UserID == a.UserID && existing.DocumentID == a.DocumentID {
			return sentinel.ErrConflict
		}
	}
	cp := *a
	s.acceptances = append(s.acceptances, &cp)
	return nil
}

func (s *InMemory) FindAcceptance(ctx context.Context, tenantID domain.TenantID, userID domain.UserID, documentID domain.DocumentID) (*models.Acceptance, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.acceptances {
		if a.TenantID == tenantID && a.UserID == userID && a.DocumentID == documentID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) HardDeleteByUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (int, error) {
	if err := tenancy.Ensure(ctx, tenantID); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.acceptances[:0]
	n := 0
	for _, a := range s.acceptances {
		if a.TenantID == tenantID && a.UserID == userID {
			n++
			continue
		}
		kept = append(kept, a)
	}
	s.acceptances = kept
	return n, nil
}
