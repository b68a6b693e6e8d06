package policy_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgpdgate/internal/policy"
	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
)

type denyCounter struct{ denied []string }

func (d *denyCounter) IncPolicyDenied(action string) { d.denied = append(d.denied, action) }

func TestAuthorize(t *testing.T) {
	tenantA := domain.TenantID(uuid.New())
	tenantB := domain.TenantID(uuid.New())
	member := domain.Actor{TenantID: tenantA, UserID: domain.UserID(uuid.New()), Scope: domain.ScopeMember, Role: domain.RoleMember}
	admin := domain.Actor{TenantID: tenantA, UserID: domain.UserID(uuid.New()), Scope: domain.ScopeTenant, Role: domain.RoleAdmin}
	dpo := domain.Actor{TenantID: tenantA, UserID: domain.UserID(uuid.New()), Scope: domain.ScopeTenant, Role: domain.RoleDPO}
	platform := domain.Actor{UserID: domain.UserID(uuid.New()), Scope: domain.ScopePlatform, Role: domain.RoleAdmin}
	system := domain.Actor{Scope: domain.ScopeSystem}
	otherUser := domain.UserID(uuid.New())

	own := policy.Resource{TenantID: tenantA, OwnerID: member.UserID}
	colleague := policy.Resource{TenantID: tenantA, OwnerID: otherUser}
	foreign := policy.Resource{TenantID: tenantB, OwnerID: member.UserID}

	tests := []struct {
		name     string
		actor    domain.Actor
		action   policy.Action
		res      policy.Resource
		wantCode dErrors.Code
	}{
		{"member grants own consent", member, policy.ActionConsentGrant, own, ""},
		{"member cannot grant for colleague", member, policy.ActionConsentGrant, colleague, dErrors.CodeForbidden},
		{"member crossing tenants is isolation", member, policy.ActionConsentGrant, foreign, dErrors.CodeTenantIsolation},
		{"admin cannot grant consent for a subject", admin, policy.ActionConsentGrant, colleague, dErrors.CodeForbidden},
		{"admin lists a subject's consents", admin, policy.ActionConsentList, colleague, ""},
		{"dpo requests deletion for a subject", dpo, policy.ActionDeletionRequest, colleague, ""},
		{"admin cannot request deletion for a subject", admin, policy.ActionDeletionRequest, colleague, dErrors.CodeForbidden},
		{"admin toggles a subject's suspension", admin, policy.ActionSuspensionToggle, colleague, ""},
		{"admin decides reviews", admin, policy.ActionReviewDecide, colleague, ""},
		{"member cannot decide reviews", member, policy.ActionReviewDecide, own, dErrors.CodeForbidden},
		{"admin of another tenant is isolated", admin, policy.ActionReviewDecide, policy.Resource{TenantID: tenantB}, dErrors.CodeTenantIsolation},
		{"tenant actor cannot touch platform-wide incidents", dpo, policy.ActionIncidentManage, policy.Resource{}, dErrors.CodeTenantIsolation},
		{"platform manages any tenant", platform, policy.ActionTenantManage, policy.Resource{TenantID: tenantB}, ""},
		{"platform manages platform-wide incidents", platform, policy.ActionIncidentManage, policy.Resource{}, ""},
		{"platform cannot invoke AI for a subject", platform, policy.ActionAIInvoke, own, dErrors.CodeForbidden},
		{"system runs purge", system, policy.ActionPurgeRun, policy.Resource{}, ""},
		{"system cannot manage tenants", system, policy.ActionTenantManage, policy.Resource{}, dErrors.CodeForbidden},
		{"tenant admin cannot manage tenants", admin, policy.ActionTenantManage, policy.Resource{TenantID: tenantA}, dErrors.CodeForbidden},
		{"tenant admin registers users", admin, policy.ActionUserRegister, policy.Resource{TenantID: tenantA}, ""},
		{"dpo cannot register users", dpo, policy.ActionUserRegister, policy.Resource{TenantID: tenantA}, dErrors.CodeForbidden},
		{"member reads own account", member, policy.ActionUserRead, own, ""},
		{"unknown action is forbidden", platform, policy.Action("nope"), policy.Resource{}, dErrors.CodeForbidden},
		{"malformed actor is unauthorized", domain.Actor{Scope: "ROOT"}, policy.ActionConsentList, own, dErrors.CodeUnauthorized},
	}

	engine := policy.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.Authorize(context.Background(), tt.actor, tt.action, tt.res)
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestAuthorizeCountsDenials(t *testing.T) {
	counter := &denyCounter{}
	engine := policy.New(policy.WithMetrics(counter))
	member := domain.Actor{TenantID: domain.TenantID(uuid.New()), UserID: domain.UserID(uuid.New()), Scope: domain.ScopeMember, Role: domain.RoleMember}

	err := engine.Authorize(context.Background(), member, policy.ActionTenantManage, policy.Resource{TenantID: member.TenantID})
	require.Error(t, err)
	assert.Equal(t, []string{"tenant.manage"}, counter.denied)
}
