package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/persistence"
)

type stubDatabase struct {
	pingErr error
	stats   persistence.ConnectionStats
}

func (s *stubDatabase) Ping(context.Context) error { return s.pingErr }

func (s *stubDatabase) Stats() (persistence.ConnectionStats, error) { return s.stats, nil }

func TestSystemHandler_Live(t *testing.T) {
	engine := newTestEngine(NewSystemHandler("inventory-sync", "test", nil))

	w := serve(engine, http.MethodGet, "/api/v1/health/live")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSystemHandler_Ready(t *testing.T) {
	t.Run("database reachable", func(t *testing.T) {
		db := &stubDatabase{stats: persistence.ConnectionStats{MaxOpenConnections: 25, OpenConnections: 3, InUse: 1, Idle: 2}}
		engine := newTestEngine(NewSystemHandler("inventory-sync", "test", db))

		w := serve(engine, http.MethodGet, "/api/v1/health/ready")

		assert.Equal(t, http.StatusOK, w.Code)
		var body HealthResponse
		decodeResponse(t, w, &body)
		assert.Equal(t, "ok", body.Database)
		require.NotNil(t, body.Pool)
		assert.Equal(t, 25, body.Pool.MaxOpenConnections)
	})

	t.Run("database down", func(t *testing.T) {
		engine := newTestEngine(NewSystemHandler("inventory-sync", "test", &stubDatabase{pingErr: errors.New("dial tcp: refused")}))

		w := serve(engine, http.MethodGet, "/api/v1/health/ready")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var body HealthResponse
		decodeResponse(t, w, &body)
		assert.Equal(t, "unavailable", body.Status)
		assert.Nil(t, body.Pool)
	})

	t.Run("no database", func(t *testing.T) {
		engine := newTestEngine(NewSystemHandler("inventory-sync", "test", nil))

		w := serve(engine, http.MethodGet, "/api/v1/health/ready")

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestSystemHandler_Info(t *testing.T) {
	engine := newTestEngine(NewSystemHandler("inventory-sync", "1.2.3", nil))

	w := serve(engine, http.MethodGet, "/api/v1/system/info")

	assert.Equal(t, http.StatusOK, w.Code)
	var body SystemInfoResponse
	decodeResponse(t, w, &body)
	assert.Equal(t, "inventory-sync", body.Name)
	assert.Equal(t, "1.2.3", body.Version)
	assert.NotEmpty(t, body.GoVersion)
}
