package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Auth metrics
	TokensIssued    prometheus.Counter
	AuthFailures    prometheus.Counter
	EndpointLatency *prometheus.HistogramVec

	// Tenant metrics
	TenantResolutions  *prometheus.CounterVec
	TenantCacheHits    prometheus.Counter
	TenantCacheMisses  prometheus.Counter
	TenantStoreOpens   *prometheus.CounterVec
	InactiveRejections prometheus.Counter

	// Authorization metrics
	AuthzDecisions *prometheus.CounterVec
}

// New creates all metrics and registers them on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on the given registerer. Tests pass a fresh
// prometheus.NewRegistry so parallel packages do not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "atrium_tokens_issued_total",
			Help: "Total number of access tokens issued",
		}),
		AuthFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "atrium_auth_failures_total",
			Help: "Total number of authentication failures",
		}),
		EndpointLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atrium_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		TenantResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atrium_tenant_resolutions_total",
			Help: "Tenant resolution attempts by outcome",
		}, []string{"outcome"}),
		TenantCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "atrium_tenant_cache_hits_total",
			Help: "Tenant descriptor cache hits",
		}),
		TenantCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "atrium_tenant_cache_misses_total",
			Help: "Tenant descriptor cache misses",
		}),
		TenantStoreOpens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atrium_tenant_store_opens_total",
			Help: "Tenant store connection attempts by result",
		}, []string{"result"}),
		InactiveRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "atrium_tenant_inactive_rejections_total",
			Help: "Requests rejected because the resolved tenant is inactive",
		}),
		AuthzDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atrium_authz_decisions_total",
			Help: "Authorization decisions by requirement kind and result",
		}, []string{"requirement", "result"}),
	}
}
