package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/user-management/config"
)

// instrumentationName scopes every span this module creates.
const instrumentationName = "github.com/duynhne/user-management"

// serverName is the otelgin server name, set by InitTracing.
var serverName = unknownService

// InitTracing installs an OTLP/HTTP tracer provider and the W3C propagators.
// The caller owns the returned provider and must Shutdown it to flush spans.
func InitTracing(cfg *config.Config) (*sdktrace.TracerProvider, error) {
	if !cfg.Tracing.Enabled {
		return nil, errors.New("tracing is disabled (TRACING_ENABLED=false)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Tracing.Endpoint),
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	id := resolveIdentity(cfg.Service)
	// a partially detected resource is still usable
	res, _ := newResource(ctx, id)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Tracing.SampleRate))),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(cfg.Tracing.MaxExportBatchSize),
		),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	serverName = id.Name

	return tp, nil
}

// untracedPaths are probe and scrape endpoints.
var untracedPaths = []string{"/health", "/ready", "/metrics", "/favicon.ico"}

func shouldTrace(path string) bool {
	for _, p := range untracedPaths {
		if strings.HasPrefix(path, p) {
			return false
		}
	}
	return true
}

// TracingMiddleware extracts the incoming trace context and opens the server
// span for each request. Call it after InitTracing.
func TracingMiddleware() gin.HandlerFunc {
	traced := otelgin.Middleware(serverName, otelgin.WithTracerProvider(otel.GetTracerProvider()))

	return func(c *gin.Context) {
		if !shouldTrace(c.Request.URL.Path) {
			c.Next()
			return
		}
		traced(c)
	}
}

// StartSpan starts a child span from the global provider, a no-op until
// InitTracing has run.
//
//	ctx, span := middleware.StartSpan(ctx, "user.get")
//	defer span.End()
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	//nolint:spancheck // the caller ends the span
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// RecordError marks span failed with err.
func RecordError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
}
