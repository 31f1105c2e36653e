package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts HTTP requests by route and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks HTTP latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "directory_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// CMSFetchDuration tracks fetch time per CMS collection
	CMSFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "directory_cms_fetch_duration_seconds",
			Help:    "Time to fetch every page of one CMS collection",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20},
		},
		[]string{"collection", "outcome"},
	)

	// CMSRecordsFetched counts raw records per collection
	CMSRecordsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_cms_records_fetched_total",
			Help: "Raw records fetched from the CMS",
		},
		[]string{"collection"},
	)

	// SnapshotCacheResults counts snapshot lookups by result
	SnapshotCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_snapshot_cache_total",
			Help: "Snapshot cache lookups by result",
		},
		[]string{"result"}, // "hit", "l2_hit", "miss", "stale", "error"
	)

	// SnapshotBuildDuration tracks the full fetch and aggregate cycle
	SnapshotBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "directory_snapshot_build_duration_seconds",
			Help:    "Time to fetch and aggregate a snapshot",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40},
		},
	)

	// OrphanedReferences tracks dropped references in the latest snapshot
	OrphanedReferences = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "directory_orphaned_references",
			Help: "Dangling CMS references dropped while building the latest snapshot",
		},
	)

	// SubmissionsTotal counts form submissions by kind and outcome
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_submissions_total",
			Help: "Form submissions by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
)

// RecordHTTPRequest records Prometheus metrics for an HTTP request
func RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCMSFetch records one collection fetch
func RecordCMSFetch(collection string, records int, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	CMSFetchDuration.WithLabelValues(collection, outcome).Observe(duration.Seconds())
	if err == nil {
		CMSRecordsFetched.WithLabelValues(collection).Add(float64(records))
	}
}

// RecordSnapshotLookup records the result of a snapshot cache lookup
func RecordSnapshotLookup(result string) {
	SnapshotCacheResults.WithLabelValues(result).Inc()
}

// RecordSubmission records a form submission outcome
func RecordSubmission(kind, outcome string) {
	SubmissionsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordSnapshotBuild records a completed snapshot build
func RecordSnapshotBuild(duration time.Duration, orphans int) {
	SnapshotBuildDuration.Observe(duration.Seconds())
	OrphanedReferences.Set(float64(orphans))
}
