// Package tenant manages the tenant lifecycle: creation, suspension,
// reactivation and soft deletion with a cascade to the tenant's users.
package tenant

import (
	"rgpdgate/internal/tenancy"
	"rgpdgate/internal/tenant/service"
)

// Service exposes tenant lifecycle orchestration.
type Service = service.Service

// NewService constructs the tenant service with required dependencies.
func NewService(tenants service.TenantStore, users service.UserCascade, runner tenancy.Runner, emitter service.AuditEmitter, opts ...service.Option) *Service {
	return service.New(tenants, users, runner, emitter, opts...)
}
