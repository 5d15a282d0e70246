package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/telemetry"
)

func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})
	return mp, reader
}

func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func newMeteredRouter(mp *sdkmetric.MeterProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("test"), zap.NewNop()))
	router.POST("/api/v1/accounts/:account_id/sync", func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})
	router.GET("/api/v1/accounts/:account_id/sync", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})
	return router
}

func TestHTTPMetrics_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	for _, cfg := range []HTTPMetricsConfig{{}, {MeterProvider: mp}} {
		router := gin.New()
		router.Use(HTTPMetrics(cfg))
		router.GET("/health/live", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestHTTPMetricsWithMeter_RequestCounter(t *testing.T) {
	mp, reader := setupTestMeter(t)
	router := newMeteredRouter(mp)
	accountID := uuid.New()
	path := "/api/v1/accounts/" + accountID.String() + "/sync"

	for i := 0; i < 3; i++ {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))

	m := findMetric(t, reader, "http_server_request_total")
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	counts := map[int64]int64{}
	for _, dp := range sum.DataPoints {
		status, _ := dp.Attributes.Value(telemetry.AttrHTTPStatusCode)
		route, _ := dp.Attributes.Value(telemetry.AttrHTTPRoute)
		account, _ := dp.Attributes.Value(telemetry.AttrAccountID)
		assert.Equal(t, "/api/v1/accounts/:account_id/sync", route.AsString())
		assert.Equal(t, accountID.String(), account.AsString())
		counts[status.AsInt64()] += dp.Value
	}
	assert.Equal(t, int64(3), counts[http.StatusAccepted])
	assert.Equal(t, int64(1), counts[http.StatusNotFound])
}

func TestHTTPMetricsWithMeter_Duration(t *testing.T) {
	mp, reader := setupTestMeter(t)
	router := newMeteredRouter(mp)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/accounts/"+uuid.NewString()+"/sync", nil))

	m := findMetric(t, reader, "http_server_request_duration_seconds")
	require.NotNil(t, m)
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	_, hasAccount := hist.DataPoints[0].Attributes.Value(telemetry.AttrAccountID)
	assert.False(t, hasAccount)
}

func TestHTTPMetricsWithMeter_ActiveRequests(t *testing.T) {
	mp, reader := setupTestMeter(t)
	router := newMeteredRouter(mp)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/accounts/"+uuid.NewString()+"/sync", nil))

	m := findMetric(t, reader, "http_server_active_requests")
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(0), total)
}

func TestHTTPMetricsWithMeter_UnmatchedRoute(t *testing.T) {
	mp, reader := setupTestMeter(t)
	router := newMeteredRouter(mp)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope/"+uuid.NewString(), nil))

	m := findMetric(t, reader, "http_server_request_total")
	require.NotNil(t, m)
	sum := m.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	route, _ := sum.DataPoints[0].Attributes.Value(telemetry.AttrHTTPRoute)
	assert.Equal(t, "unknown", route.AsString())
	status, _ := sum.DataPoints[0].Attributes.Value(telemetry.AttrHTTPStatusCode)
	assert.Equal(t, int64(http.StatusNotFound), status.AsInt64())
}
