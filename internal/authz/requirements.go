// Package authz evaluates claims-based access requirements. Decisions are
// made entirely from the token's claims and the bound tenant scope; the
// directory is never consulted here.
package authz

import (
	"context"
	"fmt"
	"strings"

	"atrium/internal/identity/claims"
	domainerrors "atrium/pkg/domain-errors"
)

// AnyCompany is the sentinel target for RequireCompanyAccess: the holder
// needs at least one company grant, no matter which.
const AnyCompany int64 = 0

// Requirement is a single access condition. Satisfied returns nil to allow
// and a domain error explaining the denial otherwise.
type Requirement interface {
	// Kind labels the requirement for logs and metrics.
	Kind() string
	Satisfied(ctx context.Context, c *claims.AccessClaims) error
}

// permissionRequirement demands every named permission.
type permissionRequirement struct {
	names []string
}

// RequirePermission builds a requirement that the holder carries all of the
// named permissions. Matching is exact and case-sensitive.
func RequirePermission(names ...string) Requirement {
	return &permissionRequirement{names: names}
}

func (r *permissionRequirement) Kind() string { return "permission" }

func (r *permissionRequirement) Satisfied(_ context.Context, c *claims.AccessClaims) error {
	for _, name := range r.names {
		if !c.HasPermission(name) {
			return domainerrors.New(domainerrors.CodeForbidden,
				fmt.Sprintf("missing permission %s", name))
		}
	}
	return nil
}

// roleRequirement demands at least one of the named roles.
type roleRequirement struct {
	roles []string
}

// RequireAnyRole builds a requirement that the holder has at least one of the
// named roles.
func RequireAnyRole(roles ...string) Requirement {
	return &roleRequirement{roles: roles}
}

func (r *roleRequirement) Kind() string { return "role" }

func (r *roleRequirement) Satisfied(_ context.Context, c *claims.AccessClaims) error {
	if c.HasAnyRole(r.roles...) {
		return nil
	}
	return domainerrors.New(domainerrors.CodeForbidden,
		fmt.Sprintf("requires one of roles: %s", strings.Join(r.roles, ", ")))
}

// companyAccessRequirement demands access to a specific company, or any
// company at all for the AnyCompany sentinel.
type companyAccessRequirement struct {
	target int64
}

// RequireCompanyAccess builds a requirement that the holder's company grants
// include the target company. The decision is made from the company claim set
// alone; the bound tenant scope and system roles never widen or narrow it.
func RequireCompanyAccess(target int64) Requirement {
	return &companyAccessRequirement{target: target}
}

func (r *companyAccessRequirement) Kind() string { return "company_access" }

func (r *companyAccessRequirement) Satisfied(_ context.Context, c *claims.AccessClaims) error {
	if r.target == AnyCompany {
		if len(c.Companies) > 0 {
			return nil
		}
		return domainerrors.New(domainerrors.CodeForbidden,
			"no company access granted")
	}

	if c.CanAccessCompany(r.target) {
		return nil
	}
	return domainerrors.New(domainerrors.CodeForbidden,
		fmt.Sprintf("no access to company %d", r.target))
}
