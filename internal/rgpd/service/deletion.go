package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"rgpdgate/internal/rgpd/models"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/audit"
	"rgpdgate/pkg/platform/sentinel"
)

// DeleteUserData soft-deletes the subject and their consents and AI jobs in
// one unit of work and schedules the hard purge PurgeDelay later.
//
// A second call while the request is PENDING returns it unchanged. A call
// after the purge completed fails with CodeConflict.
func (s *Service) DeleteUserData(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (*models.Request, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}

	var (
		out     *models.Request
		created bool
	)
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		latest, err := s.stores.Requests.FindLatest(ctx, tenantID, userID, models.RequestDelete)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return wrap(err, "failed to read deletion request")
		}
		if latest != nil {
			switch latest.Status {
			case models.StatusPending:
				out = latest
				return nil
			case models.StatusCompleted:
				return dErrors.New(dErrors.CodeConflict, "user data already deleted")
			}
		}

		if err := s.requireLiveUser(ctx, tenantID, userID); err != nil {
			return err
		}

		now := s.clock.Now()
		if err := s.stores.Users.SoftDelete(ctx, tenantID, userID, now); err != nil {
			return wrap(err, "failed to delete user")
		}
		consents, err := s.stores.Consents.SoftDeleteByUser(ctx, tenantID, userID, now)
		if err != nil {
			return wrap(err, "failed to delete consents")
		}
		jobs, err := s.stores.Jobs.SoftDeleteByUser(ctx, tenantID, userID, now)
		if err != nil {
			return wrap(err, "failed to delete ai jobs")
		}

		req := models.NewDeletion(domain.RequestID(uuid.New()), tenantID, userID, now)
		if err := s.stores.Requests.Create(ctx, req); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "deletion already requested")
			}
			return wrap(err, "failed to record deletion request")
		}
		out = req
		created = true
		return s.emit(ctx, audit.EventDeletionRequested, tenantID, userID, map[string]any{
			"request_id":         req.ID.String(),
			"consents_deleted":   consents,
			"ai_jobs_deleted":    jobs,
			"scheduled_purge_at": req.ScheduledPurgeAt.Format(time.RFC3339),
		})
	})
	if err != nil {
		return nil, err
	}
	if created && s.metrics != nil {
		s.metrics.IncDeletionRequested()
	}
	return out, nil
}

// CancelDeletion withdraws a PENDING erasure before the purge ran and
// restores the soft-deleted rows.
func (s *Service) CancelDeletion(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (*models.Request, error) {
	var out *models.Request
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		latest, err := s.stores.Requests.FindLatest(ctx, tenantID, userID, models.RequestDelete)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "no deletion request")
			}
			return wrap(err, "failed to read deletion request")
		}
		req, err := s.stores.Requests.Execute(ctx, tenantID, latest.ID,
			func(r *models.Request) error { return r.CanCancel() },
			func(r *models.Request) { r.ApplyCancel() },
		)
		if err != nil {
			return wrap(err, "failed to cancel deletion request")
		}

		if err := s.stores.Users.Restore(ctx, tenantID, userID); err != nil {
			return wrap(err, "failed to restore user")
		}
		if err := s.stores.Consents.RestoreByUser(ctx, tenantID, userID); err != nil {
			return wrap(err, "failed to restore consents")
		}
		if err := s.stores.Jobs.RestoreByUser(ctx, tenantID, userID); err != nil {
			return wrap(err, "failed to restore ai jobs")
		}
		out = req
		return s.emit(ctx, audit.EventDeletionCancelled, tenantID, userID, map[string]any{
			"request_id": req.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetRequest returns one data-subject request of the tenant.
func (s *Service) GetRequest(ctx context.Context, tenantID domain.TenantID, id domain.RequestID) (*models.Request, error) {
	var out *models.Request
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		r, err := s.stores.Requests.FindByID(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "request not found")
			}
			return wrap(err, "failed to read request")
		}
		out = r
		return nil
	})
	return out, err
}
