package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgpdgate/internal/platform/config"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/eventguard"
)

var fixedTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type countingViolations struct{ n int }

func (c *countingViolations) IncGuardViolation(string) { c.n++ }

func newTestLogger(t *testing.T) (*slog.Logger, *bytes.Buffer, *countingViolations) {
	t.Helper()
	var buf bytes.Buffer
	counter := &countingViolations{}
	l := New(config.LogConfig{Level: "debug", Format: "json"},
		WithOutput(&buf),
		WithViolationCounter(counter),
	)
	return l, &buf, counter
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestGuardHandler_PassesSafeRecords(t *testing.T) {
	l, buf, counter := newTestLogger(t)

	l.InfoContext(context.Background(), "consent.granted", "purpose", "ai_processing", "attempt", 2)

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "consent.granted", got[0]["msg"])
	assert.Equal(t, "ai_processing", got[0]["purpose"])
	assert.Zero(t, counter.n)
}

func TestGuardHandler_DropsUnsafeValue(t *testing.T) {
	l, buf, counter := newTestLogger(t)

	l.Info("user.lookup", "subject", "jane.doe@example.com")

	out := buf.String()
	assert.NotContains(t, out, "jane.doe")
	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, ViolationEvent, got[0]["msg"])
	assert.Equal(t, string(eventguard.RuleEmailValue), got[0]["rule"])
	assert.Equal(t, "subject", got[0]["field"])
	assert.Equal(t, "user.lookup", got[0]["event"])
	assert.Equal(t, 1, counter.n)
}

func TestGuardHandler_OmitsUnsafeFieldName(t *testing.T) {
	l, buf, _ := newTestLogger(t)

	l.Info("user.lookup", "email", "x")

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, string(eventguard.RuleForbiddenKey), got[0]["rule"])
	_, hasField := got[0]["field"]
	assert.False(t, hasField)
}

func TestGuardHandler_RejectsProseMessage(t *testing.T) {
	l, buf, _ := newTestLogger(t)

	l.Info("Something went wrong!")

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, string(eventguard.RuleEventName), got[0]["rule"])
	_, hasEvent := got[0]["event"]
	assert.False(t, hasEvent)
}

func TestGuardHandler_ChecksBoundAttrsAndGroups(t *testing.T) {
	t.Run("bound attribute is checked on every record", func(t *testing.T) {
		l, buf, _ := newTestLogger(t)
		l.With("auth_header", "Bearer eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig").Info("request.received")

		assert.NotContains(t, buf.String(), "eyJ")
		got := lines(t, buf)
		require.Len(t, got, 1)
		assert.Equal(t, ViolationEvent, got[0]["msg"])
	})

	t.Run("grouped keys are flattened", func(t *testing.T) {
		l, buf, _ := newTestLogger(t)
		l.WithGroup("http").Info("request.received", "status", 200, slog.Group("user", "email", "x"))

		got := lines(t, buf)
		require.Len(t, got, 1)
		assert.Equal(t, ViolationEvent, got[0]["msg"])
	})

	t.Run("safe groups pass", func(t *testing.T) {
		l, buf, _ := newTestLogger(t)
		l.WithGroup("http").Info("request.received", "status", 200)

		got := lines(t, buf)
		require.Len(t, got, 1)
		assert.Equal(t, "request.received", got[0]["msg"])
		assert.Equal(t, map[string]any{"status": float64(200)}, got[0]["http"])
	})
}

func TestGuardHandler_ReducesErrorsToCode(t *testing.T) {
	l, buf, _ := newTestLogger(t)

	err := dErrors.Wrap(errors.New("duplicate key for jane@example.com"), dErrors.CodeConflict, "conflict")
	l.Error("consent.grant.failed", "error", err)

	assert.NotContains(t, buf.String(), "jane")
	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "consent.grant.failed", got[0]["msg"])
	assert.Equal(t, string(dErrors.CodeConflict), got[0]["error"])
}

func TestGuardHandler_HandleReturnsViolation(t *testing.T) {
	var buf bytes.Buffer
	h := NewGuardHandler(slog.NewJSONHandler(&buf, nil), eventguard.New(), nil)

	r := slog.NewRecord(fixedTime, slog.LevelInfo, "audit.write", 0)
	r.AddAttrs(slog.String("password", "hunter2"))

	err := h.Handle(context.Background(), r)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeLogGuardViolation))
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel(" warn "))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
