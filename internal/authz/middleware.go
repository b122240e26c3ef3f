package authz

import (
	"net/http"

	platformmw "atrium/internal/platform/middleware"
	"atrium/internal/transport/http/shared"
	domainerrors "atrium/pkg/domain-errors"
)

// Require returns middleware enforcing the given requirements. It must sit
// below RequireAuth so claims are present; a request arriving without claims
// is rejected rather than waved through.
func Require(a *Authorizer, reqs ...Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := platformmw.ClaimsFrom(r.Context())
			if !ok {
				shared.WriteError(w, r, domainerrors.New(domainerrors.CodeUnauthorized,
					"authentication required"))
				return
			}
			if err := a.Authorize(r.Context(), c, reqs...); err != nil {
				shared.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
