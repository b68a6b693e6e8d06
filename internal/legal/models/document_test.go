package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1.2.3", "1.2.3", true},
		{"v2.0.0", "2.0.0", true},
		{"1.2", "1.2.0", true},
		{"1.0.0-rc.1", "1.0.0-rc.1", true},
		{"latest", "", false},
		{"", "", false},
		{"1.2.3.4", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVersion(tt.in)
			if !tt.ok {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSupersedes(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	doc := func(v string) *Document {
		d, err := NewDocument(domain.DocumentID(uuid.New()), TypePrivacyPolicy, v, "terms text", now)
		require.NoError(t, err)
		return d
	}

	assert.NoError(t, doc("1.0.0").Supersedes(nil))
	assert.NoError(t, doc("1.10.0").Supersedes(doc("1.9.0")))
	assert.True(t, dErrors.HasCode(doc("1.0.0").Supersedes(doc("1.0.0")), dErrors.CodeConflict))
	assert.True(t, dErrors.HasCode(doc("1.0.0-rc.1").Supersedes(doc("1.0.0")), dErrors.CodeConflict))
}

func TestNewDocumentHashesText(t *testing.T) {
	now := time.Now()
	a, err := NewDocument(domain.DocumentID(uuid.New()), TypeTermsOfService, "1.0.0", "wording A", now)
	require.NoError(t, err)
	b, err := NewDocument(domain.DocumentID(uuid.New()), TypeTermsOfService, "1.0.0", "wording B", now)
	require.NoError(t, err)

	assert.Len(t, a.ContentHash, 64)
	assert.NotEqual(t, a.ContentHash, b.ContentHash)

	_, err = NewDocument(domain.DocumentID(uuid.New()), "eula", "1.0.0", "x", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = NewDocument(domain.DocumentID(uuid.New()), TypeTermsOfService, "1.0.0", "  ", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
