package token

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atrium/internal/identity/models"
	dErrors "atrium/pkg/domain-errors"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	iss, err := New("test-signing-key", "atrium-test", "atrium-api", time.Hour)
	require.NoError(t, err)
	return iss
}

func testUser() *models.User {
	return &models.User{
		ID:       42,
		UserName: "m.tan",
		FirstName: "Mei",
		LastName:  "Tan",
		Active:    true,
	}
}

func TestNew_EmptySigningKeyFails(t *testing.T) {
	_, err := New("", "iss", "aud", time.Hour)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
}

func TestIssueAndValidate_RoundTrip(t *testing.T) {
	iss := newTestIssuer(t)

	signed, _, err := iss.Issue(context.Background(), testUser(),
		[]models.Role{{Name: "Manager"}},
		[]string{"employee.read", "product.write"},
		[]models.CompanyMembership{
			{CompanyID: 7, CompanyName: "Acme", Active: true, Default: true},
			{CompanyID: 9, CompanyName: "Globex", Active: false},
		},
		7,
	)
	require.NoError(t, err)

	c, err := iss.Validate(signed)
	require.NoError(t, err)

	assert.Equal(t, int64(42), c.UserID)
	assert.Equal(t, "m.tan", c.UserName)
	assert.Equal(t, "Mei Tan", c.FullName)
	assert.Equal(t, []string{"Manager"}, c.Roles)
	assert.True(t, c.HasPermission("employee.read"))
	assert.False(t, c.SystemRole)
	assert.NotEmpty(t, c.ID, "jti must be set")

	companyID, ok := c.CompanyID()
	require.True(t, ok)
	assert.Equal(t, int64(7), companyID)

	// Inactive memberships are not embedded.
	assert.True(t, c.CanAccessCompany(7))
	assert.False(t, c.CanAccessCompany(9))
}

func TestIssue_SystemRoleDerivedFromRoleFlag(t *testing.T) {
	iss := newTestIssuer(t)

	signed, _, err := iss.Issue(context.Background(), testUser(),
		[]models.Role{{Name: "Employee"}, {Name: "SystemAdmin", System: true}},
		nil, nil, 0)
	require.NoError(t, err)

	c, err := iss.Validate(signed)
	require.NoError(t, err)
	assert.True(t, c.SystemRole)
}

func TestValidate_ExpiredToken(t *testing.T) {
	iss := newTestIssuer(t)
	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	signed, _, err := iss.Issue(context.Background(), testUser(), nil, nil, nil, 0)
	require.NoError(t, err)

	_, err = iss.Validate(signed)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidate_WrongKeyRejected(t *testing.T) {
	iss := newTestIssuer(t)
	other, err := New("different-key", "atrium-test", "atrium-api", time.Hour)
	require.NoError(t, err)

	signed, _, err := iss.Issue(context.Background(), testUser(), nil, nil, nil, 0)
	require.NoError(t, err)

	_, err = other.Validate(signed)
	require.Error(t, err)
}

func TestValidate_WrongIssuerOrAudienceRejected(t *testing.T) {
	iss := newTestIssuer(t)

	signed, _, err := iss.Issue(context.Background(), testUser(), nil, nil, nil, 0)
	require.NoError(t, err)

	wrongIssuer, err := New("test-signing-key", "someone-else", "atrium-api", time.Hour)
	require.NoError(t, err)
	_, err = wrongIssuer.Validate(signed)
	require.Error(t, err)

	wrongAudience, err := New("test-signing-key", "atrium-test", "other-api", time.Hour)
	require.NoError(t, err)
	_, err = wrongAudience.Validate(signed)
	require.Error(t, err)
}

func TestIssue_UniqueJTIPerToken(t *testing.T) {
	iss := newTestIssuer(t)

	first, _, err := iss.Issue(context.Background(), testUser(), nil, nil, nil, 0)
	require.NoError(t, err)
	second, _, err := iss.Issue(context.Background(), testUser(), nil, nil, nil, 0)
	require.NoError(t, err)

	c1, err := iss.Validate(first)
	require.NoError(t, err)
	c2, err := iss.Validate(second)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)
}
