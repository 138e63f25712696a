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
			Namespace: "labmanager",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labmanager",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "labmanager",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	sheetsCommitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "labmanager",
			Subsystem: "results",
			Name:      "sheets_committed_total",
			Help:      "Total number of result sheets committed.",
		},
	)

	amendments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labmanager",
			Subsystem: "results",
			Name:      "amendments_total",
			Help:      "Total number of post-commit amendments to result sheets.",
		},
		[]string{"action"},
	)

	reportsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "labmanager",
			Subsystem: "reports",
			Name:      "generated_total",
			Help:      "Total number of reports generated.",
		},
	)

	reportsFinalized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "labmanager",
			Subsystem: "reports",
			Name:      "finalized_total",
			Help:      "Total number of reports finalized.",
		},
	)

	publicReportViews = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labmanager",
			Subsystem: "reports",
			Name:      "public_views_total",
			Help:      "Total number of public report fetch attempts.",
		},
		[]string{"found"},
	)

	activitiesRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labmanager",
			Subsystem: "activities",
			Name:      "recorded_total",
			Help:      "Total number of activity ledger entries recorded.",
		},
		[]string{"type"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		sheetsCommitted,
		amendments,
		reportsGenerated,
		reportsFinalized,
		publicReportViews,
		activitiesRecorded,
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

// RecordSheetCommit counts a committed result sheet.
func RecordSheetCommit() {
	sheetsCommitted.Inc()
}

// RecordAmendment counts a post-commit amendment by action
// (added, updated, deleted).
func RecordAmendment(action string) {
	if action == "" {
		action = "unknown"
	}
	amendments.WithLabelValues(action).Inc()
}

// RecordReportGenerated counts a generated report.
func RecordReportGenerated() {
	reportsGenerated.Inc()
}

// RecordReportFinalized counts a finalized report.
func RecordReportFinalized() {
	reportsFinalized.Inc()
}

// RecordPublicView counts a public report fetch attempt.
func RecordPublicView(found bool) {
	publicReportViews.WithLabelValues(strconv.FormatBool(found)).Inc()
}

// RecordActivity counts a recorded ledger entry by type.
func RecordActivity(activityType string) {
	if activityType == "" {
		activityType = "unknown"
	}
	activitiesRecorded.WithLabelValues(activityType).Inc()
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

// canonicalPath collapses concrete IDs so label cardinality stays
// bounded.
func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 && isIdentifier(p) {
			out = append(out, ":id")
			continue
		}
		out = append(out, p)
	}
	if len(out) > 3 {
		out = out[:3]
	}
	return "/" + strings.Join(out, "/")
}

// isIdentifier matches numeric ids and generated entity codes so they
// collapse into one label value.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	numeric := true
	for _, r := range s {
		if r < '0' || r > '9' {
			numeric = false
			break
		}
	}
	if numeric {
		return true
	}
	if len(s) < 5 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
