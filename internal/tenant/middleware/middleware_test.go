package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atrium/internal/identity/claims"
	platformmw "atrium/internal/platform/middleware"
	"atrium/internal/tenant/cache"
	"atrium/internal/tenant/directory"
	"atrium/internal/tenant/models"
	"atrium/internal/tenant/resolver"
	"atrium/internal/tenant/scope"
)

type failingDirectory struct{}

func (failingDirectory) Lookup(context.Context, int64) (*models.Descriptor, error) {
	return nil, errors.New("connection refused")
}

func testResolver(t *testing.T) *resolver.Resolver {
	t.Helper()
	dir := directory.NewInMemory()
	require.NoError(t, dir.Upsert(context.Background(), &models.Descriptor{
		CompanyID: 7, CompanyName: "Acme", DSN: "postgres://u:p@db-7/acme", Active: true,
	}))
	require.NoError(t, dir.Upsert(context.Background(), &models.Descriptor{
		CompanyID: 9, CompanyName: "Initech", DSN: "postgres://u:p@db-9/initech", Active: false,
	}))
	return resolver.New(dir, cache.NewMemory(30*time.Minute, 10*time.Minute))
}

func authedRequest(t *testing.T, c *claims.AccessClaims) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	if c != nil {
		req = req.WithContext(platformmw.WithClaims(req.Context(), c))
	}
	return req
}

// boundProbe records the tenant scope observed by the downstream handler.
type boundProbe struct {
	called    bool
	companyID int64
	bound     bool
}

func (p *boundProbe) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.called = true
		p.companyID, p.bound = scope.CompanyID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func errorField(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestResolve_BindsActiveTenant(t *testing.T) {
	probe := &boundProbe{}
	mw := Resolve(testResolver(t), RequireTenant, slog.Default())
	rec := httptest.NewRecorder()

	mw(probe.handler()).ServeHTTP(rec, authedRequest(t, &claims.AccessClaims{
		UserID: 41, PrimaryCompany: 7,
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, probe.called)
	assert.True(t, probe.bound)
	assert.Equal(t, int64(7), probe.companyID)
}

func TestResolve_UnknownCompanyIs404(t *testing.T) {
	probe := &boundProbe{}
	mw := Resolve(testResolver(t), RequireTenant, slog.Default())
	rec := httptest.NewRecorder()

	mw(probe.handler()).ServeHTTP(rec, authedRequest(t, &claims.AccessClaims{
		UserID: 41, PrimaryCompany: 404,
	}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "tenant_not_found", errorField(t, rec))
	assert.False(t, probe.called)
}

func TestResolve_DeactivatedCompanyIsAccessDenied(t *testing.T) {
	probe := &boundProbe{}
	mw := Resolve(testResolver(t), RequireTenant, slog.Default())
	rec := httptest.NewRecorder()

	mw(probe.handler()).ServeHTTP(rec, authedRequest(t, &claims.AccessClaims{
		UserID: 41, PrimaryCompany: 9,
	}))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "access_denied", errorField(t, rec))
	assert.False(t, probe.called)
}

func TestResolve_MissingCompanyClaimRequired(t *testing.T) {
	probe := &boundProbe{}
	mw := Resolve(testResolver(t), RequireTenant, slog.Default())
	rec := httptest.NewRecorder()

	mw(probe.handler()).ServeHTTP(rec, authedRequest(t, &claims.AccessClaims{UserID: 41}))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", errorField(t, rec))
	assert.False(t, probe.called)
}

func TestResolve_MissingCompanyClaimOptional(t *testing.T) {
	probe := &boundProbe{}
	mw := Resolve(testResolver(t), TenantOptional, slog.Default())
	rec := httptest.NewRecorder()

	mw(probe.handler()).ServeHTTP(rec, authedRequest(t, &claims.AccessClaims{UserID: 41}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, probe.called)
	assert.False(t, probe.bound, "no tenant must be bound without a company claim")
}

func TestResolve_LegacyCompanyClaimStillBinds(t *testing.T) {
	probe := &boundProbe{}
	mw := Resolve(testResolver(t), RequireTenant, slog.Default())
	rec := httptest.NewRecorder()

	mw(probe.handler()).ServeHTTP(rec, authedRequest(t, &claims.AccessClaims{
		UserID: 41, LegacyCompanyID: 7,
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), probe.companyID)
}

func TestResolve_UnauthenticatedRequestRejected(t *testing.T) {
	probe := &boundProbe{}
	mw := Resolve(testResolver(t), RequireTenant, slog.Default())
	rec := httptest.NewRecorder()

	mw(probe.handler()).ServeHTTP(rec, authedRequest(t, nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, probe.called)
}

func TestResolve_DirectoryOutageIs503(t *testing.T) {
	probe := &boundProbe{}
	r := resolver.New(failingDirectory{}, cache.NewMemory(30*time.Minute, 10*time.Minute))
	mw := Resolve(r, RequireTenant, slog.Default())
	rec := httptest.NewRecorder()

	mw(probe.handler()).ServeHTTP(rec, authedRequest(t, &claims.AccessClaims{
		UserID: 41, PrimaryCompany: 7,
	}))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "store_unreachable", errorField(t, rec))
	assert.False(t, probe.called)
}
