package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	grant := NewGrant(domain.ConsentID(uuid.New()), domain.TenantID(uuid.New()), domain.UserID(uuid.New()), domain.ConsentPurposeAIProcessing, now)
	revoked := NewRevocation(domain.ConsentID(uuid.New()), grant, now.Add(time.Hour))

	// A record revoked but still flagged granted must read as revoked.
	inconsistent := *grant
	inconsistent.RevokedAt = &now

	notGranted := *grant
	notGranted.Granted = false

	tests := []struct {
		name   string
		latest *Record
		want   DenialReason
	}{
		{"no record", nil, ReasonMissing},
		{"revocation record", revoked, ReasonRevoked},
		{"revoked wins over stored flag", &inconsistent, ReasonRevoked},
		{"not granted", &notGranted, ReasonNotGranted},
		{"granted", grant, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Evaluate(domain.ConsentPurposeAIProcessing, tt.latest)
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			var ce *ConsentError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.want, ce.Reason)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeConsentRequired))
		})
	}
}

func TestNewRevocationKeepsGrantTime(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	grant := NewGrant(domain.ConsentID(uuid.New()), domain.TenantID(uuid.New()), domain.UserID(uuid.New()), domain.ConsentPurposeAnalytics, now)
	rev := NewRevocation(domain.ConsentID(uuid.New()), grant, now.Add(time.Minute))

	assert.Equal(t, grant.GrantedAt, rev.GrantedAt)
	assert.False(t, rev.IsEffective())
	assert.True(t, grant.IsEffective())
	assert.NotEqual(t, grant.ID, rev.ID)
}
