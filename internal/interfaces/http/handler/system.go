package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/logger"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/persistence"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/interfaces/http/dto"
)

// readinessTimeout bounds the database ping behind /health/ready
const readinessTimeout = 2 * time.Second

// DatabaseHealth is implemented by persistence.Database
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Stats() (persistence.ConnectionStats, error)
}

// SystemHandler serves liveness, readiness and build information
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	db        DatabaseHealth
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. db may be nil.
func NewSystemHandler(name, version string, db DatabaseHealth) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		db:        db,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// HealthResponse is the readiness report
type HealthResponse struct {
	Status   string                       `json:"status"`
	Database string                       `json:"database"`
	Pool     *persistence.ConnectionStats `json:"pool,omitempty"`
}

// RegisterRoutes registers the system routes on the root engine group
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health/live", h.Live)
	rg.GET("/health/ready", h.Ready)
	rg.GET("/system/info", h.Info)
}

// Live reports that the process is serving requests
func (h *SystemHandler) Live(c *gin.Context) {
	h.Success(c, gin.H{"status": "ok"})
}

// Ready reports whether the database is reachable; 503 otherwise
func (h *SystemHandler) Ready(c *gin.Context) {
	if h.db == nil {
		h.Success(c, HealthResponse{Status: "ok", Database: "not configured"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		logger.FromContext(c.Request.Context()).Warn("Readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.NewSuccessResponse(HealthResponse{
			Status:   "unavailable",
			Database: "unreachable",
		}))
		return
	}

	resp := HealthResponse{Status: "ok", Database: "ok"}
	if stats, err := h.db.Stats(); err == nil {
		resp.Pool = &stats
	}
	h.Success(c, resp)
}

// Info returns basic build and uptime information
func (h *SystemHandler) Info(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}
