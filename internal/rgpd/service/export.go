package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"rgpdgate/internal/rgpd/models"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/audit"
	"rgpdgate/pkg/platform/bundlecrypt"
	"rgpdgate/pkg/platform/sentinel"
)

// bundleGrace keeps the blob readable for a moment past the metadata expiry so
// a download racing the boundary sees "expired" rather than "access denied".
const bundleGrace = time.Hour

// Download is what a successful download hands back: the envelope stays
// encrypted, the requester holds the password.
type Download struct {
	ExportID           domain.ExportID
	Envelope           bundlecrypt.Envelope
	DownloadsRemaining int
}

// ExportUserData collects the subject's consents, AI job metadata and most
// recent audit events into an encrypted bundle. The password and download
// token are returned once and never stored in plaintext.
func (s *Service) ExportUserData(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) (*models.ExportResult, error) {
	ctx, span := tracer.Start(ctx, "rgpd.export.create")
	defer span.End()

	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	password, err := bundlecrypt.GeneratePassword()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to prepare export")
	}
	token, err := models.NewDownloadToken()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to prepare export")
	}

	exportID := domain.ExportID(uuid.New())
	stored := false
	var result *models.ExportResult
	err = s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		if err := s.requireLiveUser(ctx, tenantID, userID); err != nil {
			return err
		}
		now := s.clock.Now()
		bundle, err := s.collect(ctx, exportID, tenantID, userID)
		if err != nil {
			return err
		}
		bundle.GeneratedAt = now

		plaintext, err := json.Marshal(bundle)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode export")
		}
		env, err := bundlecrypt.Encrypt(plaintext, password)
		if err != nil {
			return wrap(err, "failed to encrypt export")
		}

		meta := models.NewExportMetadata(exportID, tenantID, userID, token, now)
		if err := s.stores.Exports.Create(ctx, meta); err != nil {
			return wrap(err, "failed to store export")
		}
		req := models.NewCompletedExport(domain.RequestID(uuid.New()), tenantID, userID, now)
		if err := s.stores.Requests.Create(ctx, req); err != nil {
			return wrap(err, "failed to record export request")
		}
		if err := s.stores.Bundles.Put(ctx, exportID, env, models.ExportTTL+bundleGrace); err != nil {
			return wrap(err, "failed to store export")
		}
		stored = true

		result = &models.ExportResult{
			ExportID:      exportID,
			DownloadToken: token,
			Password:      password,
			ExpiresAt:     meta.ExpiresAt,
		}
		return s.emit(ctx, audit.EventExportCreated, tenantID, userID, map[string]any{
			"export_id": exportID.String(),
		})
	})
	if err != nil {
		if stored {
			_ = s.stores.Bundles.Delete(context.WithoutCancel(ctx), exportID)
		}
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}
	span.SetAttributes(attribute.String("export_id", exportID.String()))
	return result, nil
}

func (s *Service) collect(ctx context.Context, exportID domain.ExportID, tenantID domain.TenantID, userID domain.UserID) (*models.Bundle, error) {
	consents, err := s.stores.Consents.ListByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, wrap(err, "failed to collect consents")
	}
	jobs, err := s.stores.Jobs.ListByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, wrap(err, "failed to collect ai jobs")
	}
	events, err := s.stores.Trail.ListBySubject(ctx, tenantID, userID, models.MaxExportAuditEvents)
	if err != nil {
		return nil, wrap(err, "failed to collect audit trail")
	}
	return &models.Bundle{
		ExportID:    exportID,
		TenantID:    tenantID,
		UserID:      userID,
		Consents:    consents,
		AiJobs:      jobs,
		AuditEvents: events,
	}, nil
}

// DownloadExport checks, in order: the token belongs to the requester, the
// export has not expired, and fewer than MaxDownloads downloads happened.
// Unknown and foreign tokens both yield access_denied. An expired export is
// deleted as a side effect and the deletion is kept even though the call
// fails.
func (s *Service) DownloadExport(ctx context.Context, token string, userID domain.UserID, tenantID domain.TenantID) (*Download, error) {
	ctx, span := tracer.Start(ctx, "rgpd.export.download")
	defer span.End()

	if token == "" || userID.IsNil() {
		s.countDownload(dErrors.CodeAccessDenied)
		return nil, models.ErrAccessDenied()
	}

	var (
		out       *Download
		expired   error
		expiredID domain.ExportID
	)
	err := s.runner.RunInTenantScope(ctx, tenantID, func(ctx context.Context) error {
		meta, err := s.stores.Exports.FindByTokenHash(ctx, tenantID, models.HashToken(token))
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return models.ErrAccessDenied()
			}
			return wrap(err, "failed to read export")
		}
		if meta.UserID != userID {
			return models.ErrAccessDenied()
		}

		now := s.clock.Now()
		if meta.IsExpired(now) {
			if err := s.expire(ctx, meta); err != nil {
				return err
			}
			expired = dErrors.New(dErrors.CodeExpired, "export has expired")
			expiredID = meta.ID
			return nil
		}

		env, err := s.stores.Bundles.Get(ctx, meta.ID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return models.ErrAccessDenied()
			}
			return wrap(err, "failed to read export")
		}

		updated, err := s.stores.Exports.Execute(ctx, tenantID, meta.ID,
			func(m *models.ExportMetadata) error { return m.CanDownload(tenantID, userID, now) },
			func(m *models.ExportMetadata) { m.ApplyDownload() },
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return models.ErrAccessDenied()
			}
			return wrap(err, "failed to record download")
		}

		out = &Download{
			ExportID:           updated.ID,
			Envelope:           env,
			DownloadsRemaining: models.MaxDownloads - updated.DownloadCount,
		}
		return s.emit(ctx, audit.EventExportDownloaded, tenantID, userID, map[string]any{
			"export_id":      updated.ID.String(),
			"download_count": updated.DownloadCount,
		})
	})
	if err == nil && expired != nil {
		s.dropBundles(ctx, expiredID)
		err = expired
	}
	if err != nil {
		s.countDownload(dErrors.CodeOf(err))
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		if s.logger != nil {
			s.logger.InfoContext(ctx, "rgpd.export.download.rejected", "error", err)
		}
		return nil, err
	}
	s.countDownload("ok")
	return out, nil
}

// ReadEncryptedBundle returns the stored envelope of an export. It does not
// count as a download.
func (s *Service) ReadEncryptedBundle(ctx context.Context, exportID domain.ExportID) (bundlecrypt.Envelope, error) {
	env, err := s.stores.Bundles.Get(ctx, exportID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return env, dErrors.New(dErrors.CodeNotFound, "export bundle not found")
		}
		return env, wrap(err, "failed to read export bundle")
	}
	return env, nil
}

// SweepExpiredExports reclaims storage of expired exports across tenants.
// Running it twice is harmless.
func (s *Service) SweepExpiredExports(ctx context.Context) (int, error) {
	var expired []*models.ExportMetadata
	err := s.runner.RunInPlatformScope(ctx, func(ctx context.Context) error {
		list, err := s.stores.Exports.ListExpired(ctx, s.clock.Now())
		if err != nil {
			return wrap(err, "failed to list expired exports")
		}
		expired = list
		return nil
	})
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, meta := range expired {
		err := s.runner.RunInTenantScope(ctx, meta.TenantID, func(ctx context.Context) error {
			return s.expire(ctx, meta)
		})
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return swept, err
		}
		s.dropBundles(ctx, meta.ID)
		swept++
	}
	return swept, nil
}

// expire removes the metadata of an expired export inside the caller's tenant
// scope. The bundle is dropped by the caller once that scope has committed.
func (s *Service) expire(ctx context.Context, meta *models.ExportMetadata) error {
	if err := s.stores.Exports.Delete(ctx, meta.TenantID, meta.ID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		return wrap(err, "failed to delete expired export")
	}
	return s.emit(ctx, audit.EventExportExpired, meta.TenantID, meta.UserID, map[string]any{
		"export_id": meta.ID.String(),
	})
}

// dropBundles deletes bundles whose metadata is already committed as gone.
// A failure leaves them to their TTL.
func (s *Service) dropBundles(ctx context.Context, ids ...domain.ExportID) {
	if len(ids) == 0 {
		return
	}
	if err := s.stores.Bundles.Delete(context.WithoutCancel(ctx), ids...); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "rgpd.export.bundle_cleanup_failed", "exports", len(ids), "error", err)
	}
}

func (s *Service) countDownload(outcome dErrors.Code) {
	if s.metrics != nil {
		s.metrics.IncExportDownload(string(outcome))
	}
}

func (s *Service) requireLiveUser(ctx context.Context, tenantID domain.TenantID, userID domain.UserID) error {
	if _, err := s.stores.Users.FindByID(ctx, tenantID, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return wrap(err, "failed to read user")
	}
	return nil
}
