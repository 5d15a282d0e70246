// Package middleware provides the Gin middleware of the inventory sync API.
package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/logger"
)

// MaxRequestIDLength caps the request ID copied from headers onto spans.
const MaxRequestIDLength = 128

var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing starts a server span per request using the global tracer provider.
// Span names follow "METHOD route", e.g. "POST /api/v1/accounts/:account_id/sync".
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// SpanEnricher adds request_id and account_id to the server span and marks
// 4xx and 5xx responses as failed. Register it after Tracing.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if requestID := requestID(c); requestID != "" {
				span.SetAttributes(attribute.String("request_id", requestID))
			}
			if accountID := c.Param("account_id"); isValidAccountID(accountID) {
				span.SetAttributes(attribute.String("account_id", accountID))
			}
		}

		c.Next()

		if !span.IsRecording() {
			return
		}
		if status := c.Writer.Status(); status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(status))
			span.SetAttributes(attribute.Int("http.status_code", status))
		}
	}
}

func requestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	headerID := c.GetHeader(logger.RequestIDHeader)
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}

// isValidAccountID keeps arbitrary path input out of span and metric attributes
func isValidAccountID(id string) bool {
	return id != "" && uuidRegex.MatchString(id)
}
