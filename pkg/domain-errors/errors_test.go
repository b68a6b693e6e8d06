package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type customCoded struct{}

func (customCoded) Error() string   { return "custom" }
func (customCoded) ErrorCode() Code { return CodeConsentRequired }

func TestHasCode(t *testing.T) {
	t.Run("direct error", func(t *testing.T) {
		err := New(CodeNotFound, "missing")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("wrapped with fmt", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(CodeConflict, "dup"))
		assert.True(t, HasCode(err, CodeConflict))
	})

	t.Run("inner code is still visible under an outer code", func(t *testing.T) {
		inner := New(CodeTenantIsolation, "cross tenant")
		err := Wrap(inner, CodeInternal, "store failed")
		assert.True(t, HasCode(err, CodeInternal))
		assert.True(t, HasCode(err, CodeTenantIsolation))
	})

	t.Run("typed coder", func(t *testing.T) {
		err := fmt.Errorf("gate: %w", customCoded{})
		assert.True(t, HasCode(err, CodeConsentRequired))
		assert.Equal(t, CodeConsentRequired, CodeOf(err))
	})

	t.Run("joined errors", func(t *testing.T) {
		err := errors.Join(errors.New("plain"), New(CodeForbidden, "no"))
		assert.True(t, HasCode(err, CodeForbidden))
	})

	t.Run("plain error defaults to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("pq: duplicate key")
	err := Wrap(cause, CodeConflict, "tenant slug taken")

	assert.Equal(t, "tenant slug taken: pq: duplicate key", err.Error())
	assert.Equal(t, "tenant slug taken", Message(err))
	assert.ErrorIs(t, err, cause)
}
