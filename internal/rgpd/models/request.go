package models

import (
	"time"

	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
)

// RequestType is the data-subject right exercised.
type RequestType string

const (
	RequestExport RequestType = "EXPORT"
	RequestDelete RequestType = "DELETE"
)

type RequestStatus string

const (
	StatusPending   RequestStatus = "PENDING"
	StatusCompleted RequestStatus = "COMPLETED"
	StatusCancelled RequestStatus = "CANCELLED"
)

// Request tracks one data-subject request. At most one PENDING request exists
// per (tenant, user, type).
type Request struct {
	ID               domain.RequestID `json:"id"`
	TenantID         domain.TenantID  `json:"tenant_id"`
	UserID           domain.UserID    `json:"user_id"`
	Type             RequestType      `json:"type"`
	Status           RequestStatus    `json:"status"`
	ScheduledPurgeAt *time.Time       `json:"scheduled_purge_at,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// NewDeletion schedules a hard purge PurgeDelay after now.
func NewDeletion(id domain.RequestID, tenantID domain.TenantID, userID domain.UserID, now time.Time) *Request {
	purgeAt := now.Add(PurgeDelay)
	return &Request{
		ID:               id,
		TenantID:         tenantID,
		UserID:           userID,
		Type:             RequestDelete,
		Status:           StatusPending,
		ScheduledPurgeAt: &purgeAt,
		CreatedAt:        now,
	}
}

// NewCompletedExport records an export that was generated synchronously.
func NewCompletedExport(id domain.RequestID, tenantID domain.TenantID, userID domain.UserID, now time.Time) *Request {
	return &Request{
		ID:          id,
		TenantID:    tenantID,
		UserID:      userID,
		Type:        RequestExport,
		Status:      StatusCompleted,
		CompletedAt: &now,
		CreatedAt:   now,
	}
}

// IsDue reports whether a pending deletion may be purged at now.
func (r *Request) IsDue(now time.Time) bool {
	return r.Type == RequestDelete &&
		r.Status == StatusPending &&
		r.ScheduledPurgeAt != nil &&
		!r.ScheduledPurgeAt.After(now)
}

func (r *Request) CanCancel() error {
	if r.Status != StatusPending {
		return dErrors.New(dErrors.CodeConflict, "only pending requests can be cancelled")
	}
	return nil
}

func (r *Request) ApplyCancel() {
	r.Status = StatusCancelled
}

// CanComplete guards the purge: a request that was cancelled or already
// completed by a concurrent run is skipped.
func (r *Request) CanComplete(now time.Time) error {
	if !r.IsDue(now) {
		return dErrors.New(dErrors.CodeConflict, "request is not due for purge")
	}
	return nil
}

func (r *Request) ApplyComplete(now time.Time) {
	r.Status = StatusCompleted
	r.CompletedAt = &now
}
