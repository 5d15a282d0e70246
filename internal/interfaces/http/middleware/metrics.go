package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/telemetry"
)

// HTTPMetricsConfig holds configuration for HTTP metrics middleware.
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	Logger        *zap.Logger
}

// httpInstruments are the per-request server instruments
type httpInstruments struct {
	requests *telemetry.Counter
	duration *telemetry.Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	requests, err := telemetry.NewCounter(meter, "http_server_request_total", "HTTP requests served", "{request}")
	if err != nil {
		return nil, err
	}
	duration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests currently being served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return &httpInstruments{requests: requests, duration: duration, inFlight: inFlight}, nil
}

// observe records a finished request. The account attribute only goes on the
// counter; the histogram stays keyed by method and route.
func (m *httpInstruments) observe(ctx context.Context, c *gin.Context, elapsed time.Duration) {
	method := telemetry.AttrHTTPMethod.String(c.Request.Method)
	route := telemetry.AttrHTTPRoute.String(routePattern(c))

	attrs := []attribute.KeyValue{method, route, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status())}
	if accountID := c.Param("account_id"); isValidAccountID(accountID) {
		attrs = append(attrs, telemetry.AttrAccountID.String(accountID))
	}
	m.requests.Inc(ctx, attrs...)
	m.duration.RecordDuration(ctx, elapsed, method, route)
}

// HTTPMetrics records request count, latency and in-flight requests. It is a
// pass-through when metrics are disabled.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return passThrough
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"), cfg.Logger)
}

// HTTPMetricsWithMeter is HTTPMetrics on an explicit meter.
func HTTPMetricsWithMeter(meter metric.Meter, logger *zap.Logger) gin.HandlerFunc {
	instruments, err := newHTTPInstruments(meter)
	if err != nil {
		if logger != nil {
			logger.Warn("HTTP metrics disabled", zap.Error(err))
		}
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		instruments.inFlight.Add(ctx, 1)
		defer instruments.inFlight.Add(ctx, -1)

		c.Next()
		instruments.observe(ctx, c, time.Since(start))
	}
}

// routePattern is the matched route template, so raw IDs never become labels
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}

func passThrough(c *gin.Context) {
	c.Next()
}
