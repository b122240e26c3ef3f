package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atrium/internal/identity/claims"
	"atrium/internal/platform/metrics"
	platformmw "atrium/internal/platform/middleware"
	"atrium/internal/tenant/models"
	"atrium/internal/tenant/scope"
	domainerrors "atrium/pkg/domain-errors"
)

func operatorClaims() *claims.AccessClaims {
	return &claims.AccessClaims{
		UserID:      41,
		UserName:    "jdoe",
		Roles:       []string{"Operator"},
		Permissions: []string{"orders.read", "orders.write"},
		Companies: []claims.CompanyGrant{
			{ID: 7, Name: "Acme"},
		},
		PrimaryCompany: 7,
	}
}

func TestRequirePermission_AllMustHold(t *testing.T) {
	c := operatorClaims()
	ctx := context.Background()

	assert.NoError(t, RequirePermission("orders.read").Satisfied(ctx, c))
	assert.NoError(t, RequirePermission("orders.read", "orders.write").Satisfied(ctx, c))

	err := RequirePermission("orders.read", "orders.delete").Satisfied(ctx, c)
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeForbidden))
	assert.Contains(t, err.Error(), "orders.delete")
}

func TestRequirePermission_CaseSensitive(t *testing.T) {
	err := RequirePermission("Orders.Read").Satisfied(context.Background(), operatorClaims())
	assert.Error(t, err)
}

func TestRequireAnyRole_OrSemantics(t *testing.T) {
	c := operatorClaims()
	ctx := context.Background()

	assert.NoError(t, RequireAnyRole("Manager", "Operator").Satisfied(ctx, c))

	err := RequireAnyRole("Manager", "SystemAdmin").Satisfied(ctx, c)
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeForbidden))
}

func TestRequireCompanyAccess_ExplicitTarget(t *testing.T) {
	c := operatorClaims()
	ctx := context.Background()

	assert.NoError(t, RequireCompanyAccess(7).Satisfied(ctx, c))

	err := RequireCompanyAccess(9).Satisfied(ctx, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company 9")
}

func TestRequireCompanyAccess_AnyCompanyIgnoresBoundTenant(t *testing.T) {
	c := operatorClaims()
	req := RequireCompanyAccess(AnyCompany)

	boundToGranted := scope.WithCurrent(context.Background(), &models.Descriptor{CompanyID: 7, Active: true})
	assert.NoError(t, req.Satisfied(boundToGranted, c))

	// The sentinel asks for a non-empty grant list, nothing more; which
	// tenant the request is bound to does not change the answer.
	boundToOther := scope.WithCurrent(context.Background(), &models.Descriptor{CompanyID: 9, Active: true})
	assert.NoError(t, req.Satisfied(boundToOther, c))
}

func TestRequireCompanyAccess_AnyCompanyUnboundScope(t *testing.T) {
	req := RequireCompanyAccess(AnyCompany)

	assert.NoError(t, req.Satisfied(context.Background(), operatorClaims()))

	noGrants := &claims.AccessClaims{UserID: 41}
	assert.Error(t, req.Satisfied(context.Background(), noGrants))
}

func TestRequireCompanyAccess_SystemRoleGrantsNothing(t *testing.T) {
	admin := &claims.AccessClaims{
		UserID:     1,
		Roles:      []string{"SystemAdmin"},
		SystemRole: true,
	}

	// A system role is a role fact, not a company grant; with an empty
	// company claim set every company-access check fails.
	assert.Error(t, RequireCompanyAccess(9).Satisfied(context.Background(), admin))
	assert.Error(t, RequireCompanyAccess(AnyCompany).Satisfied(context.Background(), admin))
}

func TestAuthorize_StopsAtFirstDenial(t *testing.T) {
	a := New(WithMetrics(metrics.NewWith(prometheus.NewRegistry())))
	c := operatorClaims()

	err := a.Authorize(context.Background(), c,
		RequireAnyRole("Operator"),
		RequirePermission("orders.delete"),
		RequireCompanyAccess(7),
	)

	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeForbidden))
}

func TestAuthorize_AllPass(t *testing.T) {
	a := New()

	err := a.Authorize(context.Background(), operatorClaims(),
		RequireAnyRole("Operator"),
		RequirePermission("orders.read"),
		RequireCompanyAccess(7),
	)

	assert.NoError(t, err)
}

func TestRequire_MiddlewareDeniesCrossCompanyRequest(t *testing.T) {
	// A user granted company 7 asks for a resource scoped to company 9.
	a := New()
	var reached bool
	handler := Require(a, RequireCompanyAccess(9))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/companies/9/orders", nil)
	req = req.WithContext(platformmw.WithClaims(req.Context(), operatorClaims()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
	assert.Contains(t, rec.Body.String(), `"error":"forbidden"`)
}

func TestRequire_MiddlewareAllowsGrantedCompany(t *testing.T) {
	a := New()
	handler := Require(a, RequireAnyRole("Operator"), RequireCompanyAccess(7))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	req := httptest.NewRequest(http.MethodGet, "/companies/7/orders", nil)
	req = req.WithContext(platformmw.WithClaims(req.Context(), operatorClaims()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequire_MiddlewareRejectsMissingClaims(t *testing.T) {
	a := New()
	handler := Require(a, RequireAnyRole("Operator"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without claims")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
