package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "rgpdgate/pkg/domain-errors"
)

func TestValidateNotes(t *testing.T) {
	t.Run("trims", func(t *testing.T) {
		got, err := ValidateNotes("  see ticket  ")
		require.NoError(t, err)
		assert.Equal(t, "see ticket", got)
	})

	t.Run("limit counts characters not bytes", func(t *testing.T) {
		_, err := ValidateNotes(strings.Repeat("é", MaxNotesLength))
		require.NoError(t, err)
	})

	t.Run("over the limit", func(t *testing.T) {
		_, err := ValidateNotes(strings.Repeat("a", MaxNotesLength+1))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestReasonIsValid(t *testing.T) {
	assert.True(t, ReasonLegalClaim.IsValid())
	assert.False(t, Reason("because").IsValid())
}

func TestDataSuspensionErrorCode(t *testing.T) {
	err := error(&DataSuspensionError{Reason: DenialSuspended})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeProcessingSuspended))
}
