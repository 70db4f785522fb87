// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinoapp_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kinoapp_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	AuthFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kinoapp_auth_failures_total",
			Help: "Rejected credential checks.",
		},
	)

	UsersRegisteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kinoapp_users_registered_total",
			Help: "Successfully registered users.",
		},
	)

	MoviesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kinoapp_movies_created_total",
			Help: "Successfully created movies.",
		},
	)

	ReviewsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kinoapp_reviews_created_total",
			Help: "Successfully created reviews.",
		},
	)

	// ConflictsTotal counts uniqueness rejections; source is "check" when the
	// prior lookup caught it and "constraint" when the unique index did.
	ConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinoapp_conflicts_total",
			Help: "Create requests rejected because the unique key already exists.",
		},
		[]string{"entity", "source"},
	)

	MetadataLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kinoapp_metadata_lookups_total",
			Help: "Release-date lookups against the metadata upstream by result.",
		},
		[]string{"result"}, // "hit", "miss", "error", "rejected"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kinoapp_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		},
		[]string{"name"},
	)
)

// RegisterPoolStats exposes pgxpool statistics through stat, which is called
// on every scrape. It must be called at most once per registry.
func RegisterPoolStats(reg prometheus.Registerer, stat func() *pgxpool.Stat) error {
	gauge := func(name, help string, value func(*pgxpool.Stat) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			s := stat()
			if s == nil {
				return 0
			}
			return value(s)
		})
	}

	collectors := []prometheus.Collector{
		gauge("kinoapp_db_pool_total_conns", "Total connections in the pool.",
			func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
		gauge("kinoapp_db_pool_acquired_conns", "Connections currently checked out.",
			func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
		gauge("kinoapp_db_pool_idle_conns", "Idle connections in the pool.",
			func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
		gauge("kinoapp_db_pool_max_conns", "Configured maximum pool size.",
			func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
