package tenancy

import (
	"context"
	"sync"

	"rgpdgate/pkg/domain"
)

// Runner executes work inside a tenant or platform scope. The postgres runner
// maps a scope to one transaction; nested calls for the same scope join it.
type Runner interface {
	RunInTenantScope(ctx context.Context, tenantID domain.TenantID, fn func(ctx context.Context) error) error
	RunInPlatformScope(ctx context.Context, fn func(ctx context.Context) error) error
}

// Observer records how long scoped units of work take.
type Observer interface {
	ObserveScope(scope string, seconds float64)
}

// MemoryRunner scopes work for the in-memory stores. Scopes are serialized by
// a single mutex, standing in for transaction isolation. There is no rollback:
// in-memory stores validate before they mutate.
type MemoryRunner struct {
	mu sync.Mutex
}

func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{}
}

func (r *MemoryRunner) RunInTenantScope(ctx context.Context, tenantID domain.TenantID, fn func(ctx context.Context) error) error {
	if tenantID.IsNil() {
		return isolation("empty tenant id")
	}
	return r.run(ctx, Scope{TenantID: tenantID}, fn)
}

func (r *MemoryRunner) RunInPlatformScope(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.run(ctx, Scope{Platform: true}, fn)
}

func (r *MemoryRunner) run(ctx context.Context, s Scope, fn func(ctx context.Context) error) error {
	joined, err := join(ctx, s)
	if err != nil {
		return err
	}
	if joined {
		return fn(ctx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(withScope(ctx, s))
}
