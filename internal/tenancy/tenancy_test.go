package tenancy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
)

var (
	tenantA = domain.TenantID(uuid.New())
	tenantB = domain.TenantID(uuid.New())
)

func TestMemoryRunner_TenantScope(t *testing.T) {
	r := NewMemoryRunner()
	ctx := context.Background()

	t.Run("empty tenant id is an isolation error", func(t *testing.T) {
		called := false
		err := r.RunInTenantScope(ctx, domain.TenantID{}, func(context.Context) error {
			called = true
			return nil
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTenantIsolation))
		assert.False(t, called)
	})

	t.Run("work sees the scope", func(t *testing.T) {
		err := r.RunInTenantScope(ctx, tenantA, func(ctx context.Context) error {
			s, ok := FromContext(ctx)
			require.True(t, ok)
			assert.Equal(t, tenantA, s.TenantID)
			assert.False(t, s.Platform)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("work errors propagate unchanged", func(t *testing.T) {
		boom := errors.New("boom")
		err := r.RunInTenantScope(ctx, tenantA, func(context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("nested call for the same tenant joins", func(t *testing.T) {
		err := r.RunInTenantScope(ctx, tenantA, func(ctx context.Context) error {
			return r.RunInTenantScope(ctx, tenantA, func(ctx context.Context) error {
				return Ensure(ctx, tenantA)
			})
		})
		require.NoError(t, err)
	})

	t.Run("nested call for another tenant is rejected", func(t *testing.T) {
		err := r.RunInTenantScope(ctx, tenantA, func(ctx context.Context) error {
			return r.RunInTenantScope(ctx, tenantB, func(context.Context) error {
				t.Fatal("inner work must not run")
				return nil
			})
		})
		var iso *IsolationError
		require.ErrorAs(t, err, &iso)
	})

	t.Run("platform scope cannot open inside a tenant scope", func(t *testing.T) {
		err := r.RunInTenantScope(ctx, tenantA, func(ctx context.Context) error {
			return r.RunInPlatformScope(ctx, func(context.Context) error { return nil })
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTenantIsolation))
	})
}

func TestEnsure(t *testing.T) {
	ctx := context.Background()

	t.Run("outside any scope", func(t *testing.T) {
		assert.True(t, dErrors.HasCode(Ensure(ctx, tenantA), dErrors.CodeTenantIsolation))
	})

	t.Run("empty tenant", func(t *testing.T) {
		scoped := withScope(ctx, Scope{TenantID: tenantA})
		assert.Error(t, Ensure(scoped, domain.TenantID{}))
	})

	t.Run("same tenant", func(t *testing.T) {
		scoped := withScope(ctx, Scope{TenantID: tenantA})
		assert.NoError(t, Ensure(scoped, tenantA))
	})

	t.Run("cross tenant", func(t *testing.T) {
		scoped := withScope(ctx, Scope{TenantID: tenantA})
		err := Ensure(scoped, tenantB)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cross-tenant")
	})

	t.Run("platform scope reaches any tenant", func(t *testing.T) {
		scoped := withScope(ctx, Scope{Platform: true})
		assert.NoError(t, Ensure(scoped, tenantA))
		assert.NoError(t, Ensure(scoped, tenantB))
		assert.NoError(t, EnsurePlatform(scoped))
	})

	t.Run("nil tenant rows need the platform scope", func(t *testing.T) {
		tenantScoped := withScope(ctx, Scope{TenantID: tenantA})
		assert.Error(t, EnsureNullable(tenantScoped, domain.TenantID{}))
		assert.NoError(t, EnsureNullable(tenantScoped, tenantA))
		assert.NoError(t, EnsureNullable(withScope(ctx, Scope{Platform: true}), domain.TenantID{}))
	})

	t.Run("tenant scope is not platform", func(t *testing.T) {
		scoped := withScope(ctx, Scope{TenantID: tenantA})
		assert.Error(t, EnsurePlatform(scoped))
	})

	t.Run("any scope", func(t *testing.T) {
		assert.Error(t, EnsureScoped(ctx))
		assert.NoError(t, EnsureScoped(withScope(ctx, Scope{TenantID: tenantA})))
		assert.NoError(t, EnsureScoped(withScope(ctx, Scope{Platform: true})))
	})
}
