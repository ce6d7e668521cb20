// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Admission metrics
	ClaimsAdmitted     prometheus.Counter
	ClaimsRejected     *prometheus.CounterVec
	ClaimsDropped      prometheus.Counter
	ClaimsBumped       prometheus.Counter
	IngestDelaySeconds prometheus.Histogram

	// Market data metrics
	MarketLookups      *prometheus.CounterVec
	MarketCacheEntries prometheus.Gauge
	ProviderLatency    prometheus.Histogram
	ProviderErrors     prometheus.Counter

	// Lifecycle metrics
	RecordsRefreshed   prometheus.Counter
	RecordsStashed     *prometheus.CounterVec
	RecordsReactivated prometheus.Counter
	RecordsArchived    prometheus.Counter

	// Alert and digest metrics
	StreakAlertsSent *prometheus.CounterVec
	DigestsSent      prometheus.Counter

	// Scheduler metrics
	HeartbeatRuns     *prometheus.CounterVec
	HeartbeatDuration prometheus.Histogram
	GroupsTracked     prometheus.Gauge

	// Ranking metrics
	LeaderboardQueries prometheus.Counter
	SessionsLive       prometheus.Gauge
	SessionsExpired    prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "yabai_bot"
	}

	return &Metrics{
		// Admission metrics
		ClaimsAdmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "claims_admitted_total",
			Help:      "Total number of claims accepted",
		}),
		ClaimsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "claims_rejected_total",
			Help:      "Total number of claims rejected by reason",
		}, []string{"reason"}),
		ClaimsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "claims_dropped_total",
			Help:      "Total number of identifiers dropped for unresolved valuation",
		}),
		ClaimsBumped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "claims_bumped_total",
			Help:      "Total number of existing records bumped by a re-mention",
		}),
		IngestDelaySeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "ingest_delay_seconds",
			Help:      "Delay between message time and admission in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),

		// Market data metrics
		MarketLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "lookups_total",
			Help:      "Total number of quote lookups by cache outcome",
		}, []string{"outcome"}),
		MarketCacheEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "cache_entries",
			Help:      "Current number of cached quote entries",
		}),
		ProviderLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "provider_latency_seconds",
			Help:      "Upstream quote provider latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ProviderErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "provider_errors_total",
			Help:      "Total number of failed provider batches",
		}),

		// Lifecycle metrics
		RecordsRefreshed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "records_refreshed_total",
			Help:      "Total number of records with re-resolved valuations",
		}),
		RecordsStashed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "records_stashed_total",
			Help:      "Total number of records moved to the cold tier by reason",
		}, []string{"reason"}),
		RecordsReactivated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "records_reactivated_total",
			Help:      "Total number of cold records moved back to the hot tier",
		}),
		RecordsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "records_archived_total",
			Help:      "Total number of records migrated to the archive",
		}),

		// Alert and digest metrics
		StreakAlertsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "streak_alerts_sent_total",
			Help:      "Total number of streak alerts sent by kind",
		}, []string{"kind"}),
		DigestsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "digests_sent_total",
			Help:      "Total number of daily digests sent",
		}),

		// Scheduler metrics
		HeartbeatRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "heartbeat_runs_total",
			Help:      "Total number of per-group heartbeat runs by status",
		}, []string{"status"}),
		HeartbeatDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "heartbeat_duration_seconds",
			Help:      "Per-group heartbeat duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		GroupsTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "groups_tracked",
			Help:      "Number of groups covered by the last heartbeat",
		}),

		// Ranking metrics
		LeaderboardQueries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "leaderboard_queries_total",
			Help:      "Total number of leaderboard computations",
		}),
		SessionsLive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "sessions_live",
			Help:      "Current number of live pagination sessions",
		}),
		SessionsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "sessions_expired_total",
			Help:      "Total number of pagination requests hitting an expired session",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordAdmission records the outcome counts of one submission.
func RecordAdmission(accepted, dropped, bumped int, rejectedByReason map[string]int) {
	DefaultMetrics.ClaimsAdmitted.Add(float64(accepted))
	DefaultMetrics.ClaimsDropped.Add(float64(dropped))
	DefaultMetrics.ClaimsBumped.Add(float64(bumped))
	for reason, n := range rejectedByReason {
		DefaultMetrics.ClaimsRejected.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordIngestDelay records the message-to-admission delay of one claim.
func RecordIngestDelay(seconds float64) {
	DefaultMetrics.IngestDelaySeconds.Observe(seconds)
}

// RecordMarketLookup records cache hit/miss counts for one lookup batch.
func RecordMarketLookup(hits, misses int) {
	DefaultMetrics.MarketLookups.WithLabelValues("hit").Add(float64(hits))
	DefaultMetrics.MarketLookups.WithLabelValues("miss").Add(float64(misses))
}

// RecordProviderCall records one upstream provider batch.
func RecordProviderCall(seconds float64, err error) {
	DefaultMetrics.ProviderLatency.Observe(seconds)
	if err != nil {
		DefaultMetrics.ProviderErrors.Inc()
	}
}

// UpdateCacheSize updates the quote cache size gauge.
func UpdateCacheSize(entries int) {
	DefaultMetrics.MarketCacheEntries.Set(float64(entries))
}

// RecordLifecyclePass records the counters of one lifecycle pass.
func RecordLifecyclePass(refreshed, stashedLow, stashedOld, reactivated, archived int) {
	DefaultMetrics.RecordsRefreshed.Add(float64(refreshed))
	DefaultMetrics.RecordsStashed.WithLabelValues("low_volume").Add(float64(stashedLow))
	DefaultMetrics.RecordsStashed.WithLabelValues("older_call").Add(float64(stashedOld))
	DefaultMetrics.RecordsReactivated.Add(float64(reactivated))
	DefaultMetrics.RecordsArchived.Add(float64(archived))
}

// RecordStreakAlerts records sent streak alerts.
func RecordStreakAlerts(kind string, n int) {
	DefaultMetrics.StreakAlertsSent.WithLabelValues(kind).Add(float64(n))
}

// RecordDigestSent increments the digest counter.
func RecordDigestSent() {
	DefaultMetrics.DigestsSent.Inc()
}

// RecordHeartbeat records one per-group heartbeat run.
func RecordHeartbeat(status string, seconds float64) {
	DefaultMetrics.HeartbeatRuns.WithLabelValues(status).Inc()
	DefaultMetrics.HeartbeatDuration.Observe(seconds)
}

// UpdateGroupsTracked updates the tracked-groups gauge.
func UpdateGroupsTracked(n int) {
	DefaultMetrics.GroupsTracked.Set(float64(n))
}

// RecordLeaderboardQuery increments the leaderboard computation counter.
func RecordLeaderboardQuery() {
	DefaultMetrics.LeaderboardQueries.Inc()
}

// UpdateSessionsLive updates the live pagination session gauge.
func UpdateSessionsLive(n int) {
	DefaultMetrics.SessionsLive.Set(float64(n))
}

// RecordSessionExpired increments the expired-session counter.
func RecordSessionExpired() {
	DefaultMetrics.SessionsExpired.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
