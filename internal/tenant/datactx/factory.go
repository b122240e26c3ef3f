// Package datactx hands out database handles bound to the request's tenant
// store. Pools are shared per connection string and created lazily.
package datactx

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	domainerrors "atrium/pkg/domain-errors"
	"atrium/internal/platform/metrics"
	"atrium/internal/tenant/models"
	"atrium/internal/tenant/scope"
)

// Handle is a ready-to-use connection to one tenant's store. The underlying
// pool is shared; Handle itself is cheap and per-request.
type Handle struct {
	db        *sql.DB
	companyID int64
}

// DB returns the tenant store's connection pool.
func (h *Handle) DB() *sql.DB {
	return h.db
}

// CompanyID returns the tenant the handle is bound to.
func (h *Handle) CompanyID() int64 {
	return h.companyID
}

// OpenFunc opens a connection pool for a DSN. Overridable in tests.
type OpenFunc func(dsn string) (*sql.DB, error)

func defaultOpen(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// Factory creates tenant store handles. Each distinct connection string gets
// one pool for the life of the factory; a handle is only returned after the
// store answered a liveness probe, so callers never receive a dead pool.
type Factory struct {
	mu    sync.Mutex
	pools map[string]*sql.DB

	open           OpenFunc
	connectTimeout time.Duration
	retries        int
	backoffBase    time.Duration
	backoffCap     time.Duration
	maxOpenConns   int
	maxIdleConns   int

	metrics *metrics.Metrics
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures a Factory.
type Option func(*Factory)

// WithOpenFunc replaces the pool opener. Tests inject fakes here.
func WithOpenFunc(fn OpenFunc) Option {
	return func(f *Factory) { f.open = fn }
}

// WithConnectTimeout bounds each individual probe attempt.
func WithConnectTimeout(d time.Duration) Option {
	return func(f *Factory) { f.connectTimeout = d }
}

// WithRetries sets the total number of probe attempts per Open call.
func WithRetries(n int) Option {
	return func(f *Factory) {
		if n > 0 {
			f.retries = n
		}
	}
}

// WithBackoff sets the base delay and cap for the retry schedule.
func WithBackoff(base, ceiling time.Duration) Option {
	return func(f *Factory) {
		f.backoffBase = base
		f.backoffCap = ceiling
	}
}

// WithPoolLimits sets per-store pool sizing.
func WithPoolLimits(maxOpen, maxIdle int) Option {
	return func(f *Factory) {
		f.maxOpenConns = maxOpen
		f.maxIdleConns = maxIdle
	}
}

// WithMetrics attaches store-open metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Factory) { f.metrics = m }
}

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Factory) { f.logger = l }
}

// New creates a Factory with the default pgx opener and a three-attempt
// probe schedule.
func New(opts ...Option) *Factory {
	f := &Factory{
		pools:          make(map[string]*sql.DB),
		open:           defaultOpen,
		connectTimeout: 5 * time.Second,
		retries:        3,
		backoffBase:    250 * time.Millisecond,
		backoffCap:     5 * time.Second,
		maxOpenConns:   10,
		maxIdleConns:   2,
		logger:         slog.Default(),
		sleep:          sleepCtx,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Open returns a handle to the store described by d, probing the store until
// it answers or the attempts are exhausted. Error messages carry the company
// id only; the connection string stays out of logs and error chains.
func (f *Factory) Open(ctx context.Context, d *models.Descriptor) (*Handle, error) {
	if d == nil || d.DSN == "" {
		return nil, domainerrors.New(domainerrors.CodeConfiguration,
			"tenant descriptor has no store connection")
	}

	db, err := f.pool(d.DSN)
	if err != nil {
		f.recordOpen("open_failed")
		return nil, domainerrors.Wrap(err, domainerrors.CodeStoreUnreachable,
			fmt.Sprintf("open tenant store for company %d", d.CompanyID))
	}

	var lastErr error
	for attempt := 0; attempt < f.retries; attempt++ {
		if attempt > 0 {
			if err := f.sleep(ctx, f.backoff(attempt)); err != nil {
				lastErr = err
				break
			}
		}
		probeCtx, cancel := context.WithTimeout(ctx, f.connectTimeout)
		err := db.PingContext(probeCtx)
		cancel()
		if err == nil {
			f.recordOpen("ok")
			return &Handle{db: db, companyID: d.CompanyID}, nil
		}
		lastErr = err
		f.logger.Warn("tenant store probe failed",
			slog.Int64("company_id", d.CompanyID),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))
	}

	f.recordOpen("unreachable")
	return nil, domainerrors.Wrap(lastErr, domainerrors.CodeStoreUnreachable,
		fmt.Sprintf("tenant store for company %d did not answer after %d attempts", d.CompanyID, f.retries))
}

// OpenCurrent opens the store for the tenant bound to ctx. Calling it on a
// request with no bound tenant is a programming error in the pipeline and
// fails loudly rather than guessing a default store.
func (f *Factory) OpenCurrent(ctx context.Context) (*Handle, error) {
	d, ok := scope.Current(ctx)
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeMissingTenantContext,
			"no tenant bound to request context")
	}
	if !d.Active {
		return nil, domainerrors.New(domainerrors.CodeTenantInactive,
			fmt.Sprintf("company %d is deactivated", d.CompanyID))
	}
	return f.Open(ctx, d)
}

// Close closes every pool the factory has opened.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var firstErr error
	for dsn, db := range f.pools {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(f.pools, dsn)
	}
	return firstErr
}

func (f *Factory) pool(dsn string) (*sql.DB, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if db, ok := f.pools[dsn]; ok {
		return db, nil
	}
	db, err := f.open(dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(f.maxOpenConns)
	db.SetMaxIdleConns(f.maxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	f.pools[dsn] = db
	return db, nil
}

// backoff returns the delay before the given attempt: exponential from the
// base, capped, with up to half the step of jitter to spread thundering herds.
func (f *Factory) backoff(attempt int) time.Duration {
	d := f.backoffBase << (attempt - 1)
	if d > f.backoffCap {
		d = f.backoffCap
	}
	if d <= 0 {
		return 0
	}
	return d + time.Duration(rand.Int63n(int64(d/2)+1))
}

func (f *Factory) recordOpen(result string) {
	if f.metrics != nil {
		f.metrics.TenantStoreOpens.WithLabelValues(result).Inc()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
