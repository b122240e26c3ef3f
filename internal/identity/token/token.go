// Package token issues and validates the signed access tokens that carry
// the claims model. Signing is symmetric HS256; issuer and audience are
// pinned on both ends.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"atrium/internal/identity/claims"
	"atrium/internal/identity/models"
	dErrors "atrium/pkg/domain-errors"
)

// Issuer builds and validates signed access tokens.
type Issuer struct {
	signingKey []byte
	issuer     string
	audience   string
	tokenTTL   time.Duration
	now        func() time.Time
}

// New constructs an Issuer. An empty signing key is a configuration error;
// callers treat it as fatal at startup.
func New(signingKey, issuer, audience string, tokenTTL time.Duration) (*Issuer, error) {
	if signingKey == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, "token signing key is not configured")
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Issuer{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		tokenTTL:   tokenTTL,
		now:        time.Now,
	}, nil
}

// TTL returns the configured token lifetime.
func (s *Issuer) TTL() time.Duration {
	return s.tokenTTL
}

// Issue signs a token embedding the principal's identity facts: one role claim
// per role, one permission claim per permission, one company claim per active
// membership, the primary company id, and the derived is_system_role flag.
func (s *Issuer) Issue(
	ctx context.Context,
	user *models.User,
	roles []models.Role,
	permissions []string,
	memberships []models.CompanyMembership,
	primaryCompanyID int64,
) (string, *claims.AccessClaims, error) {
	if user == nil {
		return "", nil, dErrors.New(dErrors.CodeInvalidInput, "user is required")
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", nil, fmt.Errorf("generate jti: %w", err)
	}
	jti := hex.EncodeToString(b)
	now := s.now()

	roleNames := make([]string, 0, len(roles))
	systemRole := false
	for _, r := range roles {
		roleNames = append(roleNames, r.Name)
		if r.System {
			systemRole = true
		}
	}

	grants := make([]claims.CompanyGrant, 0, len(memberships))
	for _, m := range memberships {
		if !m.Active {
			continue
		}
		grants = append(grants, claims.CompanyGrant{ID: m.CompanyID, Name: m.CompanyName})
	}

	ac := &claims.AccessClaims{
		UserID:         user.ID,
		UserName:       user.UserName,
		FullName:       user.FullName(),
		Roles:          roleNames,
		Permissions:    permissions,
		Companies:      grants,
		PrimaryCompany: primaryCompanyID,
		SystemRole:     systemRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, ac).SignedString(s.signingKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, ac, nil
}

// Validate parses a token, enforcing signature, algorithm, issuer, audience,
// and expiry before any claim is trusted downstream.
func (s *Issuer) Validate(tokenString string) (*claims.AccessClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims.AccessClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	c, ok := parsed.Claims.(*claims.AccessClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return c, nil
}
