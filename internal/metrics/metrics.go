// Package metrics exposes Prometheus instrumentation for the catalog
// cache: lookup outcomes, upstream provider traffic and search backfills.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup results.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupStale = "stale"
)

// CacheLookups counts catalog resolutions by outcome.
var CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalog_cache_lookups_total",
	Help: "Catalog cache resolutions by result (hit, miss, stale).",
}, []string{"result"})

// ProviderRequests counts upstream provider calls by operation and outcome.
var ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalog_provider_requests_total",
	Help: "Upstream provider requests by operation and outcome.",
}, []string{"op", "outcome"})

// ProviderLatency tracks upstream provider latency.
var ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "catalog_provider_latency_seconds",
	Help:    "Upstream provider request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"op"})

// Backfills counts search backfills by outcome.
var Backfills = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalog_backfill_total",
	Help: "Search backfills from the upstream provider by outcome.",
}, []string{"outcome"})

// ProviderQuotaRemaining is the shared provider budget left in the current window.
var ProviderQuotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "catalog_provider_quota_remaining",
	Help: "Provider requests left in the current shared quota window.",
})
