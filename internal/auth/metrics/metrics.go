// Package metrics exposes Prometheus instrumentation for the authorization
// server. A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tollgate"

// Login outcomes.
const (
	LoginSuccess            = "success"
	LoginTwoFactorRequired  = "two_factor_required"
	LoginInvalidCredentials = "invalid_credentials"
	LoginInvalidCode        = "invalid_code"
	LoginExpired            = "expired"
	LoginRejected           = "rejected"
	LoginError              = "error"
)

type Recorder struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge

	grants *prometheus.CounterVec
	logins *prometheus.CounterVec
	sms    *prometheus.CounterVec
	swept  *prometheus.CounterVec
}

// New builds a Recorder on its own registry, with the Go runtime and process
// collectors included.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests processed, by route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_inflight_requests",
			Help:      "HTTP requests currently being served.",
		}),
		grants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_grants_total",
			Help:      "Token endpoint exchanges, by grant type and OAuth2 outcome.",
		}, []string{"grant_type", "outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts, by outcome.",
		}, []string{"outcome"}),
		sms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "two_factor_codes_sent_total",
			Help:      "One-time codes handed to the SMS gateway, by result.",
		}, []string{"result"}),
		swept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "housekeeping_deleted_total",
			Help:      "Expired entries reclaimed by housekeeping, by kind.",
		}, []string{"kind"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.requests, r.duration, r.inflight,
		r.grants, r.logins, r.sms, r.swept,
	)
	return r
}

// Registry exposes the underlying registry, mostly for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Middleware records request counts and latency. It must wrap the ServeMux
// directly so the matched pattern is visible after the handler runs.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		r.inflight.Inc()
		defer r.inflight.Dec()

		next.ServeHTTP(rec, req)

		route := req.Pattern
		if route == "" {
			route = "unmatched"
		}
		r.duration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
		r.requests.WithLabelValues(req.Method, route, strconv.Itoa(rec.status)).Inc()
	})
}

// Grant counts a token endpoint outcome. outcome is "success" or an OAuth2
// error code.
func (r *Recorder) Grant(grantType, outcome string) {
	if r == nil {
		return
	}
	r.grants.WithLabelValues(grantType, outcome).Inc()
}

func (r *Recorder) Login(outcome string) {
	if r == nil {
		return
	}
	r.logins.WithLabelValues(outcome).Inc()
}

func (r *Recorder) CodeSent(delivered bool) {
	if r == nil {
		return
	}
	result := "delivered"
	if !delivered {
		result = "failed"
	}
	r.sms.WithLabelValues(result).Inc()
}

func (r *Recorder) Swept(kind string, n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.swept.WithLabelValues(kind).Add(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
