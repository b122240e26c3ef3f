// Package claims defines the identity facts carried on every authenticated
// request. The claim names below are a wire contract shared with older token
// consumers and must not change.
package claims

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claim names embedded in access tokens.
const (
	ClaimUserID         = "user_id"
	ClaimUserName       = "user_name"
	ClaimFullName       = "full_name"
	ClaimRole           = "role"       // repeatable
	ClaimPermission     = "permission" // repeatable, "{module}.{action}"
	ClaimCompany        = "company"    // repeatable, id + display name
	ClaimPrimaryCompany = "company_id" // the tenant this token targets
	ClaimLegacyCompany  = "CompanyId"  // pre-rename fallback, still issued by old tokens
	ClaimSystemRole     = "is_system_role"
)

// CompanyIDClaimKeys is the ordered list of claim keys tried when extracting
// the target company id: primary first, then the legacy fallback.
var CompanyIDClaimKeys = []string{ClaimPrimaryCompany, ClaimLegacyCompany}

// CompanyGrant pairs an accessible company id with its display name.
type CompanyGrant struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AccessClaims is the full set of signed identity facts on a request.
// It is constructed once at login/refresh, embedded in the token, and is
// immutable for the token's lifetime; nothing here is re-checked against the
// directory per request (the trust boundary is signature + expiry).
type AccessClaims struct {
	UserID          int64          `json:"user_id"`
	UserName        string         `json:"user_name"`
	FullName        string         `json:"full_name,omitempty"`
	Roles           []string       `json:"role,omitempty"`
	Permissions     []string       `json:"permission,omitempty"`
	Companies       []CompanyGrant `json:"company,omitempty"`
	PrimaryCompany  int64          `json:"company_id,omitempty"`
	LegacyCompanyID int64          `json:"CompanyId,omitempty"`
	SystemRole      bool           `json:"is_system_role,omitempty"`
	jwt.RegisteredClaims
}

// CompanyID extracts the target company id, trying the primary claim first and
// falling back to the legacy key. ok is false when neither is present; that is
// not an error by itself, since tenant-agnostic endpoints carry no company claim.
func (c *AccessClaims) CompanyID() (companyID int64, ok bool) {
	if c.PrimaryCompany != 0 {
		return c.PrimaryCompany, true
	}
	if c.LegacyCompanyID != 0 {
		return c.LegacyCompanyID, true
	}
	return 0, false
}

// HasPermission reports whether the permission claim set contains name.
// Exact, case-sensitive match; no prefix or wildcard semantics.
func (c *AccessClaims) HasPermission(name string) bool {
	for _, p := range c.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the principal holds at least one of the given roles.
func (c *AccessClaims) HasAnyRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range c.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// CanAccessCompany reports whether the company-access claim set contains companyID.
func (c *AccessClaims) CanAccessCompany(companyID int64) bool {
	for _, g := range c.Companies {
		if g.ID == companyID {
			return true
		}
	}
	return false
}

// CompanyAccessIDs returns the accessible company ids in claim order.
func (c *AccessClaims) CompanyAccessIDs() []int64 {
	ids := make([]int64, 0, len(c.Companies))
	for _, g := range c.Companies {
		ids = append(ids, g.ID)
	}
	return ids
}
