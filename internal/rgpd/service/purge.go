package service

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"rgpdgate/internal/rgpd/models"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/audit"
	"rgpdgate/pkg/platform/sentinel"
)

// PurgeReport summarises one purge run.
type PurgeReport struct {
	Due     int
	Purged  int
	Skipped int
	Failed  int
}

var errNotDue = errors.New("request no longer due")

// PurgeDue hard-deletes the data of every DELETE request whose purge date has
// passed. Each request is purged in its own tenant scope; a request that was
// cancelled or completed by a concurrent run is skipped. Re-running is a
// no-op. The first failure is returned after every request was attempted.
func (s *Service) PurgeDue(ctx context.Context) (PurgeReport, error) {
	ctx, span := tracer.Start(ctx, "rgpd.purge")
	defer span.End()

	var due []*models.Request
	err := s.runner.RunInPlatformScope(ctx, func(ctx context.Context) error {
		list, err := s.stores.Requests.ListDue(ctx, s.clock.Now(), s.purgeBatchSize)
		if err != nil {
			return wrap(err, "failed to list due deletions")
		}
		due = list
		return nil
	})
	if err != nil {
		return PurgeReport{}, err
	}

	var purged, skipped, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(s.purgeConcurrency)
	for _, req := range due {
		g.Go(func() error {
			err := s.purgeOne(ctx, req)
			switch {
			case err == nil:
				purged.Add(1)
				return nil
			case errors.Is(err, errNotDue):
				skipped.Add(1)
				return nil
			default:
				failed.Add(1)
				if s.logger != nil {
					s.logger.ErrorContext(ctx, "rgpd.purge.failed",
						"request_id", req.ID.String(),
						"error", err,
					)
				}
				return err
			}
		})
	}
	err = g.Wait()

	report := PurgeReport{
		Due:     len(due),
		Purged:  int(purged.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "rgpd.purge.completed",
			"due", report.Due,
			"purged", report.Purged,
			"skipped", report.Skipped,
			"failed", report.Failed,
		)
	}
	return report, err
}

func (s *Service) purgeOne(ctx context.Context, due *models.Request) error {
	tenantID, userID := due.TenantID, due.UserID
	var exportIDs []domain.ExportID
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		now := s.clock.Now()
		current, err := s.stores.Requests.FindByID(ctx, tenantID, due.ID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return errNotDue
			}
			return wrap(err, "failed to read deletion request")
		}
		if !current.IsDue(now) {
			return errNotDue
		}

		if _, err := s.stores.Consents.HardDeleteByUser(ctx, tenantID, userID); err != nil {
			return wrap(err, "failed to purge consents")
		}
		if _, err := s.stores.Jobs.HardDeleteByUser(ctx, tenantID, userID); err != nil {
			return wrap(err, "failed to purge ai jobs")
		}
		for _, p := range s.stores.Purgeables {
			if _, err := p.HardDeleteByUser(ctx, tenantID, userID); err != nil {
				return wrap(err, "failed to purge user records")
			}
		}
		ids, err := s.stores.Exports.DeleteByUser(ctx, tenantID, userID)
		if err != nil {
			return wrap(err, "failed to purge exports")
		}
		exportIDs = ids
		if err := s.stores.Users.HardDelete(ctx, tenantID, userID); err != nil {
			return wrap(err, "failed to purge user")
		}
		if err := s.stores.Actors.AnonymizeActor(ctx, tenantID, userID); err != nil {
			return wrap(err, "failed to anonymize audit trail")
		}

		_, err = s.stores.Requests.Execute(ctx, tenantID, due.ID,
			func(r *models.Request) error { return r.CanComplete(now) },
			func(r *models.Request) { r.ApplyComplete(now) },
		)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				return errNotDue
			}
			return wrap(err, "failed to complete deletion request")
		}

		// The completion event targets no one: the subject no longer exists.
		return s.audit.Emit(ctx, audit.Event{
			EventName: audit.EventDeletionCompleted,
			TenantID:  tenantID,
			Metadata: map[string]any{
				"request_id":      due.ID.String(),
				"exports_dropped": len(ids),
			},
		})
	})
	if err != nil {
		return err
	}
	s.dropBundles(ctx, exportIDs...)
	if s.metrics != nil {
		s.metrics.IncDeletionPurged()
	}
	return nil
}
