// Package httptransport is the thin HTTP layer. Handlers delegate to domain
// services; the authorization pipeline is assembled here so every protected
// route gets authentication, tenant resolution, and requirement checks in
// that order.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"atrium/internal/authz"
	"atrium/internal/platform/health"
	"atrium/internal/platform/metrics"
	platformmw "atrium/internal/platform/middleware"
	tenantmw "atrium/internal/tenant/middleware"
	"atrium/internal/tenant/resolver"
)

// RoleSystemAdmin guards the company administration endpoints.
const RoleSystemAdmin = "SystemAdmin"

// RouterConfig carries everything the route table needs.
type RouterConfig struct {
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Validator  platformmw.TokenValidator
	Resolver   *resolver.Resolver
	Authorizer *authz.Authorizer
	Auth       *AuthHandler
	Tenant     *TenantHandler
	Health     *health.Handler

	// RequestTimeout bounds every request. Zero means 30s.
	RequestTimeout time.Duration
}

// NewRouter wires all endpoints with the shared middleware stack.
func NewRouter(cfg RouterConfig) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(platformmw.Recovery(cfg.Logger))
	r.Use(platformmw.RequestID)
	r.Use(platformmw.Logger(cfg.Logger, cfg.Metrics))
	r.Use(platformmw.Timeout(timeout))
	r.Use(platformmw.ContentTypeJSON)

	// Public endpoints
	cfg.Health.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/auth/login", cfg.Auth.handleLogin)
	r.Post("/auth/refresh", cfg.Auth.handleRefresh)

	// Authenticated, tenant-agnostic endpoints
	r.Group(func(r chi.Router) {
		r.Use(cfg.protect(tenantmw.TenantOptional))
		r.Get("/auth/profile", cfg.Auth.handleProfile)
		r.Get("/auth/validate-company-access", cfg.Auth.handleValidateCompanyAccess)
	})

	// Tenant-scoped endpoints
	r.Group(func(r chi.Router) {
		r.Use(cfg.protect(tenantmw.RequireTenant, authz.RequireCompanyAccess(authz.AnyCompany)))
		r.Get("/tenant/store/health", cfg.Tenant.handleStoreHealth)
	})

	// Company administration
	r.Group(func(r chi.Router) {
		r.Use(cfg.protect(tenantmw.TenantOptional, authz.RequireAnyRole(RoleSystemAdmin)))
		r.Get("/admin/companies/{companyID}", cfg.Tenant.handleGetCompany)
		r.Post("/admin/companies/{companyID}/activate", cfg.Tenant.handleActivate)
		r.Post("/admin/companies/{companyID}/deactivate", cfg.Tenant.handleDeactivate)
	})

	return r
}

// protect composes the request pipeline: authenticate, resolve the tenant,
// then evaluate requirements. Built as one helper so no route can mount the
// stages out of order.
func (cfg RouterConfig) protect(mode tenantmw.Mode, reqs ...authz.Requirement) func(http.Handler) http.Handler {
	authn := platformmw.RequireAuth(cfg.Validator, cfg.Logger)
	tenant := tenantmw.Resolve(cfg.Resolver, mode, cfg.Logger)
	return func(next http.Handler) http.Handler {
		if len(reqs) > 0 {
			next = authz.Require(cfg.Authorizer, reqs...)(next)
		}
		return authn(tenant(next))
	}
}
