// Package resolver turns an authenticated request's company claim into a
// tenant descriptor, consulting the cache before the directory.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	domainerrors "atrium/pkg/domain-errors"
	"atrium/internal/platform/metrics"
	"atrium/internal/sentinel"
	"atrium/internal/tenant/cache"
	"atrium/internal/tenant/directory"
	"atrium/internal/tenant/models"
)

var tracer = otel.Tracer("atrium/tenant")

// Outcome classifies the result of a resolution attempt. Callers switch on
// the outcome instead of unwrapping errors; Err is only set for OutcomeError.
type Outcome int

const (
	// OutcomeFound means an active tenant was resolved and may be bound.
	OutcomeFound Outcome = iota
	// OutcomeNotFound means no company with the claimed id exists.
	OutcomeNotFound
	// OutcomeInactive means the company exists but has been deactivated.
	OutcomeInactive
	// OutcomeError means the directory could not be consulted.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeInactive:
		return "inactive"
	default:
		return "error"
	}
}

// Resolution is the typed result of Resolve. Descriptor is non-nil only for
// OutcomeFound and OutcomeInactive.
type Resolution struct {
	Outcome    Outcome
	Descriptor *models.Descriptor
	Err        error
}

// Resolver resolves company ids to tenant descriptors with a cache-aside
// read path. Concurrent misses for the same company are coalesced so the
// directory sees at most one lookup per key at a time.
type Resolver struct {
	directory     directory.Directory
	cache         cache.TenantCache
	lookupTimeout time.Duration
	metrics       *metrics.Metrics
	logger        *slog.Logger
	group         singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLookupTimeout bounds each directory lookup. Zero disables the bound.
func WithLookupTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.lookupTimeout = d }
}

// WithMetrics attaches resolution metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a Resolver over the given directory and cache.
func New(dir directory.Directory, c cache.TenantCache, opts ...Option) *Resolver {
	r := &Resolver{
		directory: dir,
		cache:     c,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve looks up the tenant for companyID. Cached descriptors are served
// without touching the directory; misses fall through and, on success,
// populate the cache. Failed lookups are never cached so a recovering
// directory is observed immediately.
func (r *Resolver) Resolve(ctx context.Context, companyID int64) Resolution {
	ctx, span := tracer.Start(ctx, "tenant.resolve",
		trace.WithAttributes(attribute.Int64("tenant.company_id", companyID)))
	res := r.resolve(ctx, companyID)
	span.SetAttributes(attribute.String("tenant.outcome", res.Outcome.String()))
	if res.Err != nil {
		span.RecordError(res.Err)
	}
	span.End()

	if r.metrics != nil {
		r.metrics.TenantResolutions.WithLabelValues(res.Outcome.String()).Inc()
		if res.Outcome == OutcomeInactive {
			r.metrics.InactiveRejections.Inc()
		}
	}
	return res
}

func (r *Resolver) resolve(ctx context.Context, companyID int64) Resolution {
	if d, ok := r.cache.Get(ctx, companyID); ok {
		if r.metrics != nil {
			r.metrics.TenantCacheHits.Inc()
		}
		return classify(d)
	}
	if r.metrics != nil {
		r.metrics.TenantCacheMisses.Inc()
	}

	v, err, _ := r.group.Do(fmt.Sprintf("%d", companyID), func() (any, error) {
		lookupCtx := ctx
		if r.lookupTimeout > 0 {
			var cancel context.CancelFunc
			lookupCtx, cancel = context.WithTimeout(ctx, r.lookupTimeout)
			defer cancel()
		}
		d, err := r.directory.Lookup(lookupCtx, companyID)
		if err != nil {
			return nil, err
		}
		r.cache.Set(ctx, companyID, d)
		return d, nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Resolution{Outcome: OutcomeNotFound}
		}
		r.logger.Error("tenant lookup failed",
			slog.Int64("company_id", companyID),
			slog.String("error", err.Error()))
		return Resolution{
			Outcome: OutcomeError,
			Err: domainerrors.Wrap(err, domainerrors.CodeStoreUnreachable,
				fmt.Sprintf("tenant directory lookup for company %d", companyID)),
		}
	}
	return classify(v.(*models.Descriptor))
}

// Invalidate evicts the cached descriptor so the next resolution re-reads
// the directory. Call after administrative changes such as deactivation.
func (r *Resolver) Invalidate(ctx context.Context, companyID int64) {
	r.cache.Invalidate(ctx, companyID)
}

func classify(d *models.Descriptor) Resolution {
	if !d.Active {
		return Resolution{Outcome: OutcomeInactive, Descriptor: d}
	}
	return Resolution{Outcome: OutcomeFound, Descriptor: d}
}
