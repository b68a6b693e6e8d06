package models

import (
	"regexp"
	"strings"
	"time"

	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

const (
	maxNameLength   = 128
	maxReasonLength = 500
)

// Tenant is the isolation boundary aggregate.
//
// Invariants:
//   - Slug is unique and immutable after creation
//   - SuspendedAt and SuspensionReason are set and cleared together
//   - DeletedAt is terminal: a deleted tenant cannot be suspended or reactivated
//
// A suspended or deleted tenant blocks AI invocation for all of its users;
// the check happens at invocation time rather than by cascading state.
type Tenant struct {
	ID               domain.TenantID `json:"id"`
	Slug             string          `json:"slug"`
	Name             string          `json:"name"`
	SuspendedAt      *time.Time      `json:"suspended_at,omitempty"`
	SuspensionReason string          `json:"suspension_reason,omitempty"`
	DeletedAt        *time.Time      `json:"deleted_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

func NewTenant(id domain.TenantID, slug, name string, now time.Time) (*Tenant, error) {
	slug = strings.TrimSpace(slug)
	name = strings.TrimSpace(name)
	if !slugPattern.MatchString(slug) {
		return nil, dErrors.New(dErrors.CodeValidation, "slug must be 2-63 lowercase letters, digits or hyphens")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant name cannot be empty")
	}
	if len(name) > maxNameLength {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant name must be 128 characters or less")
	}
	return &Tenant{
		ID:        id,
		Slug:      slug,
		Name:      name,
		CreatedAt: now,
	}, nil
}

func (t *Tenant) IsDeleted() bool   { return t.DeletedAt != nil }
func (t *Tenant) IsSuspended() bool { return t.SuspendedAt != nil }

// IsActive reports whether the tenant may process personal data.
func (t *Tenant) IsActive() bool {
	return !t.IsDeleted() && !t.IsSuspended()
}

// CanSuspend validates a suspension. Use with ApplySuspension in Execute callbacks.
func (t *Tenant) CanSuspend(reason string) error {
	if t.IsDeleted() {
		return dErrors.New(dErrors.CodeConflict, "tenant is deleted")
	}
	if t.IsSuspended() {
		return dErrors.New(dErrors.CodeConflict, "tenant is already suspended")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return dErrors.New(dErrors.CodeValidation, "suspension reason is required")
	}
	if len(reason) > maxReasonLength {
		return dErrors.New(dErrors.CodeValidation, "suspension reason must be 500 characters or less")
	}
	return nil
}

func (t *Tenant) ApplySuspension(reason string, now time.Time) {
	t.SuspendedAt = &now
	t.SuspensionReason = strings.TrimSpace(reason)
}

// CanReactivate validates a reactivation. Use with ApplyReactivation.
func (t *Tenant) CanReactivate() error {
	if t.IsDeleted() {
		return dErrors.New(dErrors.CodeConflict, "tenant is deleted")
	}
	if !t.IsSuspended() {
		return dErrors.New(dErrors.CodeConflict, "tenant is not suspended")
	}
	return nil
}

func (t *Tenant) ApplyReactivation() {
	t.SuspendedAt = nil
	t.SuspensionReason = ""
}

// CanDelete validates a soft delete. Use with ApplyDeletion.
func (t *Tenant) CanDelete() error {
	if t.IsDeleted() {
		return dErrors.New(dErrors.CodeConflict, "tenant is already deleted")
	}
	return nil
}

func (t *Tenant) ApplyDeletion(now time.Time) {
	t.DeletedAt = &now
}
