package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RatesRefreshTotal    *prometheus.CounterVec
	RatesFetchAttempts   prometheus.Counter
	RatesSnapshotTime    prometheus.Gauge
	HTTPRequestDurations *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		RatesRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_rates_refresh_total",
				Help: "Rate table refreshes by result",
			},
			[]string{"result"},
		),
		RatesFetchAttempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wallet_rates_fetch_attempts_total",
				Help: "HTTP attempts made against the rate provider",
			},
		),
		RatesSnapshotTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wallet_rates_snapshot_timestamp_seconds",
				Help: "Unix time of the last successful rate refresh",
			},
		),
		HTTPRequestDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}

	reg.MustRegister(
		m.RatesRefreshTotal,
		m.RatesFetchAttempts,
		m.RatesSnapshotTime,
		m.HTTPRequestDurations,
		prometheus.NewGoCollector(),
	)

	return m
}

func (m *Metrics) ObserveRefresh(result string, at time.Time) {
	if m == nil {
		return
	}
	m.RatesRefreshTotal.WithLabelValues(result).Inc()
	if result == ResultSuccess {
		m.RatesSnapshotTime.Set(float64(at.Unix()))
	}
}

func (m *Metrics) ObserveFetchAttempt() {
	if m == nil {
		return
	}
	m.RatesFetchAttempts.Inc()
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request latency labelled by the matched chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.HTTPRequestDurations.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
