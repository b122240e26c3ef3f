// Package middleware binds the resolved tenant to the request context.
// It must sit below RequireAuth: it reads the company claim the auth layer
// verified, never anything client-controlled like a header.
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	platformmw "atrium/internal/platform/middleware"
	"atrium/internal/tenant/resolver"
	"atrium/internal/tenant/scope"
	"atrium/internal/transport/http/shared"
	domainerrors "atrium/pkg/domain-errors"
)

// Mode controls how requests without a company claim are treated.
type Mode int

const (
	// RequireTenant rejects tokens that carry no company claim.
	RequireTenant Mode = iota
	// TenantOptional lets claim-less tokens through with no tenant bound.
	// Handlers under this mode must tolerate an unbound scope.
	TenantOptional
)

// Resolve returns middleware that resolves the authenticated user's company
// claim to a tenant descriptor and binds it to the request context.
func Resolve(r *resolver.Resolver, mode Mode, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			c, ok := platformmw.ClaimsFrom(ctx)
			if !ok {
				// Pipeline bug: Resolve mounted without RequireAuth above it.
				logger.ErrorContext(ctx, "tenant resolution reached without authenticated claims",
					"path", req.URL.Path,
					"request_id", platformmw.GetRequestID(ctx),
				)
				shared.WriteError(w, req, domainerrors.New(domainerrors.CodeUnauthorized,
					"authentication required"))
				return
			}

			companyID, ok := c.CompanyID()
			if !ok {
				if mode == TenantOptional {
					next.ServeHTTP(w, req)
					return
				}
				logger.WarnContext(ctx, "token carries no company claim",
					"user_id", c.UserID,
					"request_id", platformmw.GetRequestID(ctx),
				)
				shared.WriteError(w, req, domainerrors.New(domainerrors.CodeForbidden,
					"token is not bound to a company"))
				return
			}

			res := r.Resolve(ctx, companyID)
			switch res.Outcome {
			case resolver.OutcomeFound:
				next.ServeHTTP(w, req.WithContext(scope.WithCurrent(ctx, res.Descriptor)))
			case resolver.OutcomeNotFound:
				shared.WriteError(w, req, domainerrors.New(domainerrors.CodeTenantNotFound,
					fmt.Sprintf("company %d does not exist", companyID)))
			case resolver.OutcomeInactive:
				logger.WarnContext(ctx, "request for deactivated company",
					"company_id", companyID,
					"user_id", c.UserID,
				)
				shared.WriteError(w, req, domainerrors.New(domainerrors.CodeTenantInactive,
					fmt.Sprintf("company %d is deactivated", companyID)))
			default:
				logger.ErrorContext(ctx, "tenant resolution failed",
					"company_id", companyID,
					"error", res.Err,
				)
				shared.WriteError(w, req, res.Err)
			}
		})
	}
}
