package health

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleLiveness(t *testing.T) {
	h := New("test")

	rec := httptest.NewRecorder()
	h.HandleLiveness(rec, httptest.NewRequest(http.MethodGet, "/healthz/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}

func TestHandleReadiness_AllChecksPass(t *testing.T) {
	h := New("test")
	h.RegisterCheck("database", func() error { return nil })
	h.RegisterCheck("redis", func() error { return nil })

	rec := httptest.NewRecorder()
	h.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/healthz/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready"`)
	assert.Contains(t, rec.Body.String(), `"database":"up"`)
}

func TestHandleReadiness_FailingCheckReturns503(t *testing.T) {
	h := New("test")
	h.RegisterCheck("database", func() error { return nil })
	h.RegisterCheck("redis", func() error { return errors.New("connection refused") })

	rec := httptest.NewRecorder()
	h.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/healthz/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestHandleStatus(t *testing.T) {
	h := New("dev")

	rec := httptest.NewRecorder()
	h.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"environment":"dev"`)
}

func TestRegisterMountsRoutes(t *testing.T) {
	h := New("test")
	r := chi.NewRouter()
	h.Register(r)

	for _, path := range []string{"/healthz", "/healthz/live", "/healthz/ready"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}
