package claims

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompanyID_PrimaryClaimWins(t *testing.T) {
	c := &AccessClaims{PrimaryCompany: 7, LegacyCompanyID: 3}

	got, ok := c.CompanyID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), got)
}

func TestCompanyID_LegacyFallback(t *testing.T) {
	c := &AccessClaims{LegacyCompanyID: 3}

	got, ok := c.CompanyID()
	assert.True(t, ok)
	assert.Equal(t, int64(3), got)
}

func TestCompanyID_AbsentIsNotAnError(t *testing.T) {
	c := &AccessClaims{}

	_, ok := c.CompanyID()
	assert.False(t, ok)
}

func TestHasPermission_ExactCaseSensitiveMatch(t *testing.T) {
	c := &AccessClaims{Permissions: []string{"product.write", "employee.read"}}

	assert.True(t, c.HasPermission("product.write"))
	assert.False(t, c.HasPermission("Product.Write"))
	assert.False(t, c.HasPermission("product"))
	assert.False(t, c.HasPermission("product.write.extra"))
}

func TestHasAnyRole_ORSemantics(t *testing.T) {
	c := &AccessClaims{Roles: []string{"CompanyAdmin"}}

	assert.True(t, c.HasAnyRole("Administrator", "CompanyAdmin"))
	assert.False(t, c.HasAnyRole("Administrator", "SystemAdmin"))
	assert.False(t, c.HasAnyRole())
}

func TestCanAccessCompany(t *testing.T) {
	c := &AccessClaims{Companies: []CompanyGrant{{ID: 7, Name: "Acme"}}}

	assert.True(t, c.CanAccessCompany(7))
	assert.False(t, c.CanAccessCompany(9))
}
