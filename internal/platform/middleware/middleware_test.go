package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgpdgate/pkg/domain"
	dErrors "rgpdgate/pkg/domain-errors"
	"rgpdgate/pkg/platform/clock"
	"rgpdgate/pkg/requestcontext"
)

type stubValidator struct {
	actor domain.Actor
	err   error
}

func (s stubValidator) ValidateToken(string) (domain.Actor, error) { return s.actor, s.err }

func TestRequireActor(t *testing.T) {
	member := domain.Actor{
		TenantID: domain.TenantID(uuid.New()),
		UserID:   domain.UserID(uuid.New()),
		Scope:    domain.ScopeMember,
		Role:     domain.RoleMember,
	}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("valid token stores actor", func(t *testing.T) {
		var got domain.Actor
		h := RequireActor(stubValidator{actor: member}, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var ok bool
			got, ok = requestcontext.Actor(r.Context())
			require.True(t, ok)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, member, got)
	})

	t.Run("missing header is unauthorized", func(t *testing.T) {
		h := RequireActor(stubValidator{actor: member}, logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("handler must not run")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejected token is unauthorized", func(t *testing.T) {
		h := RequireActor(stubValidator{err: dErrors.New(dErrors.CodeUnauthorized, "invalid token")}, logger)(
			http.HandlerFunc(func(http.ResponseWriter, *http.Request) { t.Fatal("handler must not run") }))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequestContext(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var (
		gotID   string
		gotTime time.Time
	)
	h := chimw.RequestID(RequestContext(clock.Func(func() time.Time { return at }))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotID = requestcontext.RequestID(r.Context())
			gotTime, _ = requestcontext.Time(r.Context())
		})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, gotID)
	assert.Equal(t, at, gotTime)
}
