package models

import (
	"time"

	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
)

// Record is one entry in a subject's consent history for a purpose. History
// is append-only: a revocation is a new record, never an update. Only the
// latest live record is authoritative.
type Record struct {
	ID        domain.ConsentID      `json:"id"`
	TenantID  domain.TenantID       `json:"tenant_id"`
	UserID    domain.UserID         `json:"user_id"`
	Purpose   domain.ConsentPurpose `json:"purpose"`
	Granted   bool                  `json:"granted"`
	GrantedAt *time.Time            `json:"granted_at,omitempty"`
	RevokedAt *time.Time            `json:"revoked_at,omitempty"`
	DeletedAt *time.Time            `json:"-"`
	CreatedAt time.Time             `json:"created_at"`
}

func NewGrant(id domain.ConsentID, tenantID domain.TenantID, userID domain.UserID, purpose domain.ConsentPurpose, now time.Time) *Record {
	return &Record{
		ID:        id,
		TenantID:  tenantID,
		UserID:    userID,
		Purpose:   purpose,
		Granted:   true,
		GrantedAt: &now,
		CreatedAt: now,
	}
}

// NewRevocation records the withdrawal of a prior grant. GrantedAt is carried
// over so the history shows which grant was withdrawn.
func NewRevocation(id domain.ConsentID, prior *Record, now time.Time) *Record {
	return &Record{
		ID:        id,
		TenantID:  prior.TenantID,
		UserID:    prior.UserID,
		Purpose:   prior.Purpose,
		Granted:   false,
		GrantedAt: prior.GrantedAt,
		RevokedAt: &now,
		CreatedAt: now,
	}
}

// IsEffective reports whether the record allows processing. A revocation
// timestamp wins over the stored flag.
func (r *Record) IsEffective() bool {
	return r.RevokedAt == nil && r.Granted
}

// DenialReason says why a consent check failed.
type DenialReason string

const (
	ReasonMissing    DenialReason = "missing"
	ReasonRevoked    DenialReason = "revoked"
	ReasonNotGranted DenialReason = "not_granted"
)

// ConsentError is returned by the gate when processing is not allowed.
type ConsentError struct {
	Reason  DenialReason
	Purpose domain.ConsentPurpose
}

func (e *ConsentError) Error() string {
	return "consent required: " + string(e.Reason)
}

func (e *ConsentError) ErrorCode() dErrors.Code { return dErrors.CodeConsentRequired }

// Evaluate applies the gate rules to the latest record, which may be nil.
// Revocation is checked before the granted flag because it is the more
// specific reason.
func Evaluate(purpose domain.ConsentPurpose, latest *Record) error {
	switch {
	case latest == nil:
		return &ConsentError{Reason: ReasonMissing, Purpose: purpose}
	case latest.RevokedAt != nil:
		return &ConsentError{Reason: ReasonRevoked, Purpose: purpose}
	case !latest.Granted:
		return &ConsentError{Reason: ReasonNotGranted, Purpose: purpose}
	}
	return nil
}
