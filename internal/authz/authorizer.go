package authz

import (
	"context"
	"log/slog"

	"atrium/internal/identity/claims"
	"atrium/internal/platform/metrics"
)

// Authorizer evaluates requirement sets against a request's claims.
// All requirements must pass; evaluation stops at the first denial.
type Authorizer struct {
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures an Authorizer.
type Option func(*Authorizer)

// WithMetrics attaches decision metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Authorizer) { a.metrics = m }
}

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Authorizer) { a.logger = l }
}

// New creates an Authorizer.
func New(opts ...Option) *Authorizer {
	a := &Authorizer{logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authorize evaluates every requirement against the claims. It returns nil
// when all pass, or the first denial as a domain error.
func (a *Authorizer) Authorize(ctx context.Context, c *claims.AccessClaims, reqs ...Requirement) error {
	for _, req := range reqs {
		if err := req.Satisfied(ctx, c); err != nil {
			a.record(req.Kind(), "deny")
			a.logger.InfoContext(ctx, "access denied",
				slog.Int64("user_id", c.UserID),
				slog.String("requirement", req.Kind()),
				slog.String("reason", err.Error()),
			)
			return err
		}
		a.record(req.Kind(), "allow")
	}
	return nil
}

func (a *Authorizer) record(kind, result string) {
	if a.metrics != nil {
		a.metrics.AuthzDecisions.WithLabelValues(kind, result).Inc()
	}
}
