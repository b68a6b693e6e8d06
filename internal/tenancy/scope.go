// Package tenancy scopes units of work to one tenant. Every read or write of a
// tenant-owned table runs inside RunInTenantScope or RunInPlatformScope; stores
// call Ensure before touching data.
package tenancy

import (
	"context"

	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
)

// Scope is the unit-of-work marker carried in the context.
type Scope struct {
	TenantID domain.TenantID
	Platform bool
}

type scopeKey struct{}

func withScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the active scope, if any.
func FromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(Scope)
	return s, ok
}

// IsolationError reports an attempt to cross or escape a tenant boundary. It
// is fatal for the request and must never be swallowed.
type IsolationError struct {
	Reason string
}

func (e *IsolationError) Error() string {
	return "tenant isolation violation: " + e.Reason
}

func (e *IsolationError) ErrorCode() dErrors.Code { return dErrors.CodeTenantIsolation }

func isolation(reason string) error {
	return &IsolationError{Reason: reason}
}

// Ensure checks that ctx is inside a scope allowed to touch tenantID's rows:
// the same tenant scope, or the platform scope.
func Ensure(ctx context.Context, tenantID domain.TenantID) error {
	if tenantID.IsNil() {
		return isolation("empty tenant id")
	}
	s, ok := FromContext(ctx)
	if !ok {
		return isolation("no active scope")
	}
	if s.Platform {
		return nil
	}
	if s.TenantID != tenantID {
		return isolation("cross-tenant access")
	}
	return nil
}

// EnsurePlatform checks that ctx is inside the platform scope.
func EnsurePlatform(ctx context.Context) error {
	s, ok := FromContext(ctx)
	if !ok || !s.Platform {
		return isolation("platform scope required")
	}
	return nil
}

// EnsureScoped checks that ctx carries any scope. Platform-owned reference
// tables readable from every tenant use it.
func EnsureScoped(ctx context.Context) error {
	if _, ok := FromContext(ctx); !ok {
		return isolation("no active scope")
	}
	return nil
}

// EnsureNullable is Ensure for rows whose tenant may be nil (platform users,
// platform-wide incidents). A nil tenant requires the platform scope.
func EnsureNullable(ctx context.Context, tenantID domain.TenantID) error {
	if tenantID.IsNil() {
		return EnsurePlatform(ctx)
	}
	return Ensure(ctx, tenantID)
}

// join decides whether a nested call can reuse the scope already in ctx.
// It returns (true, nil) to join, (false, nil) to open a new scope, or an
// error when the nesting would cross a boundary.
func join(ctx context.Context, want Scope) (bool, error) {
	have, ok := FromContext(ctx)
	if !ok {
		return false, nil
	}
	if have == want {
		return true, nil
	}
	if have.Platform {
		return false, isolation("tenant scope nested in platform scope")
	}
	if want.Platform {
		return false, isolation("platform scope nested in tenant scope")
	}
	return false, isolation("nested scope for a different tenant")
}
