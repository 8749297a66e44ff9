package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/duynhne/user-management/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext(headers map[string]string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/users", nil)
	for k, v := range headers {
		c.Request.Header.Set(k, v)
	}
	return c
}

func TestGetTraceID(t *testing.T) {
	t.Run("traceparent wins", func(t *testing.T) {
		c := newContext(map[string]string{
			TraceParentHeader: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
			TraceIDHeader:     "ignored",
		})
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(c))
	})

	t.Run("falls back to X-Trace-ID", func(t *testing.T) {
		c := newContext(map[string]string{TraceIDHeader: "abc123"})
		assert.Equal(t, "abc123", GetTraceID(c))
	})

	t.Run("generates when absent", func(t *testing.T) {
		id := GetTraceID(newContext(nil))
		assert.Len(t, id, 32)
		assert.NotContains(t, id, "-")
	})
}

func TestLoggingMiddleware_LevelByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	r := gin.New()
	r.Use(LoggingMiddleware(logger))
	r.GET("/ok", func(c *gin.Context) {
		GetLoggerFromGinContext(c).Info("inside handler")
		c.Status(http.StatusOK)
	})
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/missing", "/boom"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set(TraceIDHeader, "trace-"+path)
		r.ServeHTTP(w, req)
		assert.Equal(t, "trace-"+path, w.Header().Get(TraceIDHeader))
	}

	inside := logs.FilterMessage("inside handler").All()
	require.Len(t, inside, 1)
	assert.Equal(t, "trace-/ok", inside[0].ContextMap()["trace_id"])

	requests := logs.FilterMessage("HTTP request").All()
	require.Len(t, requests, 3)
	assert.Equal(t, zapcore.InfoLevel, requests[0].Level)
	assert.Equal(t, zapcore.WarnLevel, requests[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, requests[2].Level)
}

func TestGetLoggerFromGinContext_FallsBackToGlobal(t *testing.T) {
	assert.Same(t, zap.L(), GetLoggerFromGinContext(newContext(nil)))
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = NewLogger(config.LoggingConfig{Level: "warn", Format: "console"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))

	_, err = NewLogger(config.LoggingConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}

func TestShouldCollectMetrics(t *testing.T) {
	assert.False(t, shouldCollectMetrics("/health"))
	assert.False(t, shouldCollectMetrics("/ready"))
	assert.False(t, shouldCollectMetrics("/metrics"))
	assert.True(t, shouldCollectMetrics("/api/users"))
	assert.True(t, shouldCollectMetrics("/users/1"))
}

func TestPoolStatsCollector(t *testing.T) {
	c := NewPoolStatsCollector(func() *pgxpool.Stat { return nil })

	descs := make(chan *prometheus.Desc, 16)
	c.Describe(descs)
	close(descs)
	assert.Len(t, descs, 7)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families, "no samples without a pool")
}

func TestResolveIdentity(t *testing.T) {
	svc := config.ServiceConfig{Name: "user-service", Version: "1.2.3", Env: "staging"}

	t.Run("config name and attribute namespace", func(t *testing.T) {
		t.Setenv("OTEL_SERVICE_NAME", "")
		t.Setenv("OTEL_RESOURCE_ATTRIBUTES", "team=core, service.namespace=identity")
		id := resolveIdentity(svc)
		assert.Equal(t, "user-service", id.Name)
		assert.Equal(t, "identity", id.Namespace)
		assert.Equal(t, "1.2.3", id.Version)
		assert.Equal(t, "staging", id.Environment)
	})

	t.Run("OTEL_SERVICE_NAME overrides", func(t *testing.T) {
		t.Setenv("OTEL_SERVICE_NAME", "users-api")
		t.Setenv("OTEL_RESOURCE_ATTRIBUTES", "")
		t.Setenv("POD_NAMESPACE", "apps")
		id := resolveIdentity(svc)
		assert.Equal(t, "users-api", id.Name)
		assert.NotEmpty(t, id.Namespace)
	})

	t.Run("empty name", func(t *testing.T) {
		t.Setenv("OTEL_SERVICE_NAME", "")
		assert.Equal(t, unknownService, resolveIdentity(config.ServiceConfig{}).Name)
	})
}

func TestResourceAttribute(t *testing.T) {
	assert.Equal(t, "b", resourceAttribute("a=1,k=b", "k"))
	assert.Equal(t, "", resourceAttribute("a=1,broken", "broken"))
	assert.Equal(t, "", resourceAttribute("", "k"))
}

func TestShouldTrace(t *testing.T) {
	assert.False(t, shouldTrace("/health"))
	assert.False(t, shouldTrace("/favicon.ico"))
	assert.True(t, shouldTrace("/api/users/1"))
}

func TestPrometheusMiddleware_LabelsByRoute(t *testing.T) {
	r := gin.New()
	r.Use(PrometheusMiddleware())
	r.GET("/api/users/:id", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	requests := metrics.requests.WithLabelValues(http.MethodGet, "/api/users/:id", "500")
	errs := metrics.errors.WithLabelValues(http.MethodGet, "/api/users/:id", "500")
	unmatched := metrics.requests.WithLabelValues(http.MethodGet, "unmatched", "404")
	beforeReq, beforeErr, beforeUnmatched := testutil.ToFloat64(requests), testutil.ToFloat64(errs), testutil.ToFloat64(unmatched)

	for _, path := range []string{"/api/users/1", "/api/users/2", "/health", "/nope/123"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, beforeReq+2, testutil.ToFloat64(requests))
	assert.Equal(t, beforeErr+2, testutil.ToFloat64(errs))
	assert.Equal(t, beforeUnmatched+1, testutil.ToFloat64(unmatched))
}
