package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// httpMetrics are the RED series for the user API, labelled by matched route
// template (e.g. /api/users/:id) so cardinality stays bounded.
type httpMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
	inFlight *prometheus.GaugeVec
	size     *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

var routeLabels = []string{"method", "route", "status"}

var metrics = httpMetrics{
	duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latency of user API requests.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2.5, 9),
	}, routeLabels),
	requests: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "User API requests by route and status.",
	}, routeLabels),
	inFlight: promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "User API requests currently being served.",
	}, []string{"method", "route"}),
	size: promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_response_size_bytes",
		Help:    "Size of user API response bodies.",
		Buckets: prometheus.ExponentialBuckets(100, 10, 5),
	}, routeLabels),
	errors: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_server_errors_total",
		Help: "User API requests that ended with a 5xx status.",
	}, routeLabels),
}

// unmeteredPaths are probe and scrape endpoints.
var unmeteredPaths = []string{"/health", "/ready", "/metrics"}

func shouldCollectMetrics(path string) bool {
	for _, p := range unmeteredPaths {
		if strings.HasPrefix(path, p) {
			return false
		}
	}
	return true
}

// routeOf returns the matched route template, or "unmatched" for NoRoute
// requests so arbitrary paths never become label values.
func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return "unmatched"
}

// PrometheusMiddleware records latency, volume, size and 5xx counts per route.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !shouldCollectMetrics(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		method, route := c.Request.Method, routeOf(c)

		inFlight := metrics.inFlight.WithLabelValues(method, route)
		inFlight.Inc()
		defer inFlight.Dec()

		c.Next()

		status := c.Writer.Status()
		labels := []string{method, route, strconv.Itoa(status)}
		metrics.duration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		metrics.requests.WithLabelValues(labels...).Inc()
		metrics.size.WithLabelValues(labels...).Observe(float64(max(c.Writer.Size(), 0)))
		if status >= http.StatusInternalServerError {
			metrics.errors.WithLabelValues(labels...).Inc()
		}
	}
}

// PoolStatsCollector exports connection pool utilisation read from stat on
// every scrape.
type PoolStatsCollector struct {
	stat func() *pgxpool.Stat

	maxConns      *prometheus.Desc
	totalConns    *prometheus.Desc
	acquiredConns *prometheus.Desc
	idleConns     *prometheus.Desc
	acquireCount  *prometheus.Desc
	emptyAcquire  *prometheus.Desc
	acquireWait   *prometheus.Desc
}

// NewPoolStatsCollector creates a collector for the given stat source.
func NewPoolStatsCollector(stat func() *pgxpool.Stat) *PoolStatsCollector {
	return &PoolStatsCollector{
		stat:          stat,
		maxConns:      prometheus.NewDesc("db_pool_max_connections", "Maximum size of the connection pool", nil, nil),
		totalConns:    prometheus.NewDesc("db_pool_total_connections", "Connections currently open", nil, nil),
		acquiredConns: prometheus.NewDesc("db_pool_acquired_connections", "Connections currently checked out", nil, nil),
		idleConns:     prometheus.NewDesc("db_pool_idle_connections", "Connections currently idle", nil, nil),
		acquireCount:  prometheus.NewDesc("db_pool_acquire_total", "Successful connection acquisitions", nil, nil),
		emptyAcquire:  prometheus.NewDesc("db_pool_empty_acquire_total", "Acquisitions that had to wait for a connection", nil, nil),
		acquireWait:   prometheus.NewDesc("db_pool_acquire_wait_seconds_total", "Time spent waiting for a connection", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (p *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.maxConns
	ch <- p.totalConns
	ch <- p.acquiredConns
	ch <- p.idleConns
	ch <- p.acquireCount
	ch <- p.emptyAcquire
	ch <- p.acquireWait
}

// Collect implements prometheus.Collector.
func (p *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := p.stat()
	if s == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(p.maxConns, prometheus.GaugeValue, float64(s.MaxConns()))
	ch <- prometheus.MustNewConstMetric(p.totalConns, prometheus.GaugeValue, float64(s.TotalConns()))
	ch <- prometheus.MustNewConstMetric(p.acquiredConns, prometheus.GaugeValue, float64(s.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(p.idleConns, prometheus.GaugeValue, float64(s.IdleConns()))
	ch <- prometheus.MustNewConstMetric(p.acquireCount, prometheus.CounterValue, float64(s.AcquireCount()))
	ch <- prometheus.MustNewConstMetric(p.emptyAcquire, prometheus.CounterValue, float64(s.EmptyAcquireCount()))
	ch <- prometheus.MustNewConstMetric(p.acquireWait, prometheus.CounterValue, s.AcquireDuration().Seconds())
}
