package domain

import dErrors "rgpdgate/pkg/domain-errors"

// ActorScope is the authority level an authenticated principal operates at.
type ActorScope string

const (
	ScopePlatform ActorScope = "PLATFORM"
	ScopeTenant   ActorScope = "TENANT"
	ScopeMember   ActorScope = "MEMBER"
	ScopeSystem   ActorScope = "SYSTEM"
)

// IsValid reports whether the scope is one of the known values.
func (s ActorScope) IsValid() bool {
	switch s {
	case ScopePlatform, ScopeTenant, ScopeMember, ScopeSystem:
		return true
	}
	return false
}

// TenantBound reports whether actors of this scope must belong to a tenant.
func (s ActorScope) TenantBound() bool {
	return s == ScopeTenant || s == ScopeMember
}

// Role refines what an actor may do within its scope.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleDPO    Role = "DPO"
	RoleMember Role = "MEMBER"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleDPO || r == RoleMember
}

// Actor is the already-authenticated (tenant, user, scope, role) tuple the
// compliance core consumes. TenantID is nil for platform and system actors.
type Actor struct {
	TenantID TenantID
	UserID   UserID
	Scope    ActorScope
	Role     Role
}

// Validate enforces the actor invariants: a known scope, and a tenant for
// TENANT/MEMBER scopes.
func (a Actor) Validate() error {
	if !a.Scope.IsValid() {
		return dErrors.New(dErrors.CodeUnauthorized, "unknown actor scope")
	}
	if a.Scope.TenantBound() && a.TenantID.IsNil() {
		return dErrors.New(dErrors.CodeTenantIsolation, "tenant-scoped actor without tenant")
	}
	if a.Scope != ScopeSystem && a.UserID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "actor without user")
	}
	return nil
}
