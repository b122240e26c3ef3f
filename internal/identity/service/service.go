// Package service implements login, refresh, and profile flows over the user
// store and token issuer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"atrium/internal/identity/claims"
	"atrium/internal/identity/device"
	"atrium/internal/identity/models"
	"atrium/internal/identity/store"
	"atrium/internal/platform/metrics"
	"atrium/internal/sentinel"
	domainerrors "atrium/pkg/domain-errors"
)

// TokenIssuer signs access tokens from a user's grant set.
type TokenIssuer interface {
	Issue(ctx context.Context, user *models.User, roles []models.Role,
		permissions []string, memberships []models.CompanyMembership,
		primaryCompanyID int64) (string, *claims.AccessClaims, error)
	Validate(tokenString string) (*claims.AccessClaims, error)
	TTL() time.Duration
}

// LoginRequest carries the credentials and client context of a login attempt.
type LoginRequest struct {
	UserName  string
	Password  string
	CompanyID int64 // optional; zero picks the default membership
	UserAgent string
	RemoteIP  string
}

// LoginResult is a successful authentication outcome.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Claims    *claims.AccessClaims
}

// Service wires credential verification, grant loading, and token issuance.
type Service struct {
	users   store.UserStore
	issuer  TokenIssuer
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches auth metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service.
func New(users store.UserStore, issuer TokenIssuer, opts ...Option) *Service {
	s := &Service{
		users:  users,
		issuer: issuer,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies credentials and issues an access token embedding the user's
// full grant set. Unknown users and wrong passwords produce the same error so
// the response does not reveal which part failed.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	user, err := s.users.FindByUserName(ctx, req.UserName)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.recordFailure(ctx, req, "unknown user")
			return nil, domainerrors.New(domainerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, fmt.Errorf("login lookup: %w", err)
	}
	if !user.Active {
		s.recordFailure(ctx, req, "user deactivated")
		return nil, domainerrors.New(domainerrors.CodeUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.recordFailure(ctx, req, "wrong password")
		return nil, domainerrors.New(domainerrors.CodeUnauthorized, "invalid credentials")
	}

	grants, err := s.loadGrants(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	primary, err := pickPrimaryCompany(grants.memberships, req.CompanyID)
	if err != nil {
		return nil, err
	}

	result, err := s.issue(ctx, user, grants, primary)
	if err != nil {
		return nil, err
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		// The token is already issued; a failed timestamp update is not
		// worth failing the login over.
		s.logger.WarnContext(ctx, "failed to record last login",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()))
	}

	client := device.Describe(req.UserAgent)
	s.logger.InfoContext(ctx, "login succeeded",
		slog.Int64("user_id", user.ID),
		slog.Int64("company_id", primary),
		slog.String("client", client.String()),
		slog.String("remote_ip", req.RemoteIP),
	)
	return result, nil
}

// Refresh validates an existing token and issues a fresh one from the user's
// current grants. Grants are reloaded so revoked roles or memberships drop
// out of the new token.
func (s *Service) Refresh(ctx context.Context, tokenString string) (*LoginResult, error) {
	old, err := s.issuer.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, old.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, fmt.Errorf("refresh lookup: %w", err)
	}
	if !user.Active {
		return nil, domainerrors.New(domainerrors.CodeUnauthorized, "invalid credentials")
	}

	grants, err := s.loadGrants(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	// Keep the token targeting the same company unless that membership is gone.
	primaryReq := int64(0)
	if id, ok := old.CompanyID(); ok && hasActiveMembership(grants.memberships, id) {
		primaryReq = id
	}
	primary, err := pickPrimaryCompany(grants.memberships, primaryReq)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user, grants, primary)
}

// Profile returns the stored user for authenticated claims.
func (s *Service) Profile(ctx context.Context, userID int64) (*models.User, []models.CompanyMembership, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, domainerrors.New(domainerrors.CodeNotFound, "user not found")
		}
		return nil, nil, fmt.Errorf("load profile: %w", err)
	}
	memberships, err := s.users.Memberships(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load profile memberships: %w", err)
	}
	return user, memberships, nil
}

// grantSet holds the three grant collections a token is built from.
// Each errgroup goroutine writes to its own field, avoiding data races.
type grantSet struct {
	roles       []models.Role
	permissions []string
	memberships []models.CompanyMembership
}

func (s *Service) loadGrants(ctx context.Context, userID int64) (*grantSet, error) {
	g, ctx := errgroup.WithContext(ctx)
	var grants grantSet

	g.Go(func() error {
		roles, err := s.users.Roles(ctx, userID)
		if err != nil {
			return fmt.Errorf("load roles: %w", err)
		}
		grants.roles = roles
		return nil
	})
	g.Go(func() error {
		permissions, err := s.users.Permissions(ctx, userID)
		if err != nil {
			return fmt.Errorf("load permissions: %w", err)
		}
		grants.permissions = permissions
		return nil
	})
	g.Go(func() error {
		memberships, err := s.users.Memberships(ctx, userID)
		if err != nil {
			return fmt.Errorf("load memberships: %w", err)
		}
		grants.memberships = memberships
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &grants, nil
}

func (s *Service) issue(ctx context.Context, user *models.User, grants *grantSet, primary int64) (*LoginResult, error) {
	token, issued, err := s.issuer.Issue(ctx, user, grants.roles, grants.permissions, grants.memberships, primary)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	if s.metrics != nil {
		s.metrics.TokensIssued.Inc()
	}
	return &LoginResult{
		Token:     token,
		ExpiresAt: issued.ExpiresAt.Time,
		Claims:    issued,
	}, nil
}

func (s *Service) recordFailure(ctx context.Context, req LoginRequest, reason string) {
	if s.metrics != nil {
		s.metrics.AuthFailures.Inc()
	}
	s.logger.WarnContext(ctx, "login failed",
		slog.String("user_name", req.UserName),
		slog.String("reason", reason),
		slog.String("remote_ip", req.RemoteIP),
	)
}

// pickPrimaryCompany selects the company a token targets: the requested one
// when the user holds an active membership in it, otherwise the default
// membership, otherwise the first active one. Users with no active
// memberships still log in; their tokens just carry no company claim.
func pickPrimaryCompany(memberships []models.CompanyMembership, requested int64) (int64, error) {
	if requested != 0 {
		if hasActiveMembership(memberships, requested) {
			return requested, nil
		}
		return 0, domainerrors.New(domainerrors.CodeForbidden,
			fmt.Sprintf("no access to company %d", requested))
	}

	var first int64
	for _, m := range memberships {
		if !m.Active {
			continue
		}
		if m.Default {
			return m.CompanyID, nil
		}
		if first == 0 {
			first = m.CompanyID
		}
	}
	return first, nil
}

func hasActiveMembership(memberships []models.CompanyMembership, companyID int64) bool {
	for _, m := range memberships {
		if m.CompanyID == companyID && m.Active {
			return true
		}
	}
	return false
}
