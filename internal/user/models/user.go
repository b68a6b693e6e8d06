package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
)

const maxDisplayNameLength = 128

// User is a data subject or operator account. The email address is never
// stored; EmailHash is a SHA-256 of the normalised address used for lookup.
//
// Invariants:
//   - Scope TENANT or MEMBER implies a non-nil TenantID
//   - PLATFORM and SYSTEM users carry no tenant
//   - DataSuspendedReason and DataSuspendedAt are set only while DataSuspended
type User struct {
	ID                  domain.UserID     `json:"id"`
	TenantID            domain.TenantID   `json:"tenant_id"`
	EmailHash           string            `json:"-"`
	DisplayName         string            `json:"display_name"`
	Role                domain.Role       `json:"role"`
	Scope               domain.ActorScope `json:"scope"`
	DataSuspended       bool              `json:"data_suspended"`
	DataSuspendedReason string            `json:"data_suspended_reason,omitempty"`
	DataSuspendedAt     *time.Time        `json:"data_suspended_at,omitempty"`
	DeletedAt           *time.Time        `json:"deleted_at,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
}

// HashEmail normalises (trim, lower-case) and hashes an address.
func HashEmail(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

func NewUser(
	id domain.UserID,
	tenantID domain.TenantID,
	email, displayName string,
	role domain.Role,
	scope domain.ActorScope,
	now time.Time,
) (*User, error) {
	if !scope.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown scope")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown role")
	}
	if scope.TenantBound() && tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant users require a tenant")
	}
	if !scope.TenantBound() && !tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "platform and system users cannot belong to a tenant")
	}
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" || len(displayName) > maxDisplayNameLength {
		return nil, dErrors.New(dErrors.CodeValidation, "display name must be 1-128 characters")
	}
	return &User{
		ID:          id,
		TenantID:    tenantID,
		EmailHash:   HashEmail(email),
		DisplayName: displayName,
		Role:        role,
		Scope:       scope,
		CreatedAt:   now,
	}, nil
}

func (u *User) IsDeleted() bool { return u.DeletedAt != nil }
