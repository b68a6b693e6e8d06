package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
)

const signingKey = "test-signing-key-with-enough-bytes!!"

var (
	tenantID = domain.TenantID(uuid.New())
	userID   = domain.UserID(uuid.New())
	member   = domain.Actor{TenantID: tenantID, UserID: userID, Scope: domain.ScopeMember, Role: domain.RoleMember}
)

func Test_IssueAndValidate(t *testing.T) {
	svc := NewJWTService(signingKey, "rgpdgate")

	token, err := svc.IssueToken(member, time.Hour)
	require.NoError(t, err)

	actor, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, member, actor)
}

func Test_PlatformActorHasNoTenant(t *testing.T) {
	svc := NewJWTService(signingKey, "rgpdgate")
	platform := domain.Actor{UserID: userID, Scope: domain.ScopePlatform, Role: domain.RoleAdmin}

	token, err := svc.IssueToken(platform, time.Hour)
	require.NoError(t, err)

	actor, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, actor.TenantID.IsNil())
	assert.Equal(t, domain.ScopePlatform, actor.Scope)
}

func Test_ValidateToken_Invalid(t *testing.T) {
	svc := NewJWTService(signingKey, "rgpdgate")

	_, err := svc.ValidateToken("invalid-token-string")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_Expired(t *testing.T) {
	svc := NewJWTService(signingKey, "rgpdgate")

	token, err := svc.IssueToken(member, -time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func Test_ValidateToken_WrongIssuer(t *testing.T) {
	other := NewJWTService(signingKey, "someone-else")
	token, err := other.IssueToken(member, time.Hour)
	require.NoError(t, err)

	_, err = NewJWTService(signingKey, "rgpdgate").ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_TenantScopeWithoutTenant(t *testing.T) {
	// A hand-built token claiming a tenant scope with no tenant must be rejected.
	claims := Claims{
		UserID: userID.String(),
		Scope:  string(domain.ScopeTenant),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "rgpdgate",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	require.NoError(t, err)

	_, err = NewJWTService(signingKey, "rgpdgate").ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTenantIsolation))
}

func Test_IssueToken_RejectsInvalidActor(t *testing.T) {
	svc := NewJWTService(signingKey, "rgpdgate")

	_, err := svc.IssueToken(domain.Actor{Scope: "ROOT"}, time.Hour)
	assert.Error(t, err)
}
