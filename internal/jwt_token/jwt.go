package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
)

// Claims carries the authenticated actor tuple. The token is the only place
// the tuple is transported; services read it from the request context.
type Claims struct {
	TenantID string `json:"tenant_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Scope    string `json:"scope"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies HS256 bearer tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		now:        time.Now,
	}
}

// IssueToken signs a token for the actor. Used by operator tooling and tests;
// end-user login lives outside this service.
func (s *JWTService) IssueToken(actor domain.Actor, expiresIn time.Duration) (string, error) {
	if err := actor.Validate(); err != nil {
		return "", err
	}
	now := s.now()
	claims := Claims{
		Scope: string(actor.Scope),
		Role:  string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	}
	if !actor.TenantID.IsNil() {
		claims.TenantID = actor.TenantID.String()
	}
	if !actor.UserID.IsNil() {
		claims.UserID = actor.UserID.String()
		claims.Subject = claims.UserID
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sign token")
	}
	return signed, nil
}

// ValidateToken verifies the signature, issuer and expiry and returns the
// actor tuple the token carries.
func (s *JWTService) ValidateToken(tokenString string) (domain.Actor, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims.actor()
}

func (c *Claims) actor() (domain.Actor, error) {
	a := domain.Actor{
		Scope: domain.ActorScope(c.Scope),
		Role:  domain.Role(c.Role),
	}
	if c.TenantID != "" {
		id, err := domain.ParseTenantID(c.TenantID)
		if err != nil {
			return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
		}
		a.TenantID = id
	}
	if c.UserID != "" {
		id, err := domain.ParseUserID(c.UserID)
		if err != nil {
			return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
		}
		a.UserID = id
	}
	if err := a.Validate(); err != nil {
		return domain.Actor{}, err
	}
	return a, nil
}
