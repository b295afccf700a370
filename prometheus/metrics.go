package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counters
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskhub_login_total",
			Help: "Total number of login attempts",
		},
	)

	// Registration counters
	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskhub_tenant_register_total",
			Help: "Total number of tenant registrations",
		},
	)

	// Tenant operation counter
	TenantOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_tenant_operations_total",
			Help: "Total number of tenant operations",
		},
		[]string{"operation"}, // "read", "update", "list"
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // "invalid_credentials", "invalid_token", "rate_limited" etc.
	)

	AuthzDenialCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_authz_denials_total",
			Help: "Total number of denied authorization decisions",
		},
		[]string{"resource", "operation", "effect"},
	)

	QuotaRejectionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_quota_rejections_total",
			Help: "Total number of creations rejected by a subscription limit",
		},
		[]string{"resource"},
	)

	AuditWriteCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_audit_writes_total",
			Help: "Total number of audit entries written",
		},
		[]string{"action"},
	)

	AuditWriteFailureCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskhub_audit_write_failures_total",
			Help: "Total number of audit entries that could not be written",
		},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskhub_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskhub_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Gauge metrics
var (
	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "taskhub_info",
			Help: "Information about the taskhub service",
		},
		[]string{"version"},
	)

	AuditInFlightGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskhub_audit_in_flight",
			Help: "Number of audit writes not yet finished",
		},
	)
)

func init() {
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(TenantOperationCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(AuthzDenialCounter)
	prometheus.MustRegister(QuotaRejectionCounter)
	prometheus.MustRegister(AuditWriteCounter)
	prometheus.MustRegister(AuditWriteFailureCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(InfoGauge)
	prometheus.MustRegister(AuditInFlightGauge)
}

// SetInfo publishes the running version on the info gauge
func SetInfo(version string) {
	InfoGauge.Reset()
	InfoGauge.With(prometheus.Labels{"version": version}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations:
//
//	defer prometheus.TrackDBOperation("count_users")(time.Now())
func TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(time.Since(start).Seconds())
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			labels := prometheus.Labels{
				"endpoint": c.Path(),
				"method":   c.Request().Method,
				"status":   strconv.Itoa(status),
			}
			RequestDuration.With(labels).Observe(time.Since(start).Seconds())
			HTTPRequestCounter.With(labels).Inc()

			return err
		}
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordAuthzDenial records a denied authorization decision
func RecordAuthzDenial(resource, operation, effect string) {
	AuthzDenialCounter.With(prometheus.Labels{
		"resource":  resource,
		"operation": operation,
		"effect":    effect,
	}).Inc()
}

// RecordQuotaRejection records a creation refused by a plan limit
func RecordQuotaRejection(resource string) {
	QuotaRejectionCounter.With(prometheus.Labels{"resource": resource}).Inc()
}

// RecordAuditWrite records a persisted audit entry
func RecordAuditWrite(action string) {
	AuditWriteCounter.With(prometheus.Labels{"action": action}).Inc()
}

// RecordAuditFailure records an audit entry that was dropped
func RecordAuditFailure() {
	AuditWriteFailureCounter.Inc()
}

// RecordTenantOperation records a tenant operation
func RecordTenantOperation(operation string) {
	TenantOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}
