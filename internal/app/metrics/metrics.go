// Package metrics exposes the registry's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "registry",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "registry",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "registry",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	packagesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "registry",
			Subsystem: "packages",
			Name:      "created_total",
			Help:      "Total number of packages created.",
		},
	)

	buildStageTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "registry",
			Subsystem: "builds",
			Name:      "stage_transitions_total",
			Help:      "Total number of build stage transitions.",
		},
		[]string{"stage", "action"},
	)

	autoloadFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "registry",
			Subsystem: "seed",
			Name:      "autoload_fetches_total",
			Help:      "Total number of upstream registry fetches during autoload.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		packagesCreated,
		buildStageTransitions,
		autoloadFetches,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordPackageCreated bumps the package creation counter.
func RecordPackageCreated() {
	packagesCreated.Inc()
}

// RecordBuildStageTransition records one build stage transition.
func RecordBuildStageTransition(stage, action string) {
	buildStageTransitions.WithLabelValues(stage, action).Inc()
}

// RecordAutoloadFetch records one upstream registry fetch outcome.
func RecordAutoloadFetch(success bool) {
	result := "error"
	if success {
		result = "ok"
	}
	autoloadFetches.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses RPC-style API paths to their first two segments so
// metrics label cardinality stays bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/api"
	}
	if len(parts) == 2 {
		return "/api/" + parts[1]
	}
	return "/api/" + parts[1] + "/" + parts[2]
}
