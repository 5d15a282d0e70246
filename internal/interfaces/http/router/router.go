// Package router assembles the Gin engine of the inventory sync API.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/infrastructure/logger"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/interfaces/http/middleware"
)

// DefaultMaxBodyBytes is used when EngineConfig.MaxBodyBytes is unset
const DefaultMaxBodyBytes = 1 << 20

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// EngineConfig configures the middleware chain of NewEngine
type EngineConfig struct {
	Logger         *zap.Logger
	ServiceName    string
	ReleaseMode    bool
	TracingEnabled bool
	MaxBodyBytes   int64
	CORS           middleware.CORSConfig
	Metrics        middleware.HTTPMetricsConfig
}

// NewEngine creates a gin engine with the standard middleware chain:
// request ID, tracing, access log, recovery, metrics, CORS, security headers
// and body limit.
func NewEngine(cfg EngineConfig) *gin.Engine {
	if cfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Metrics.Logger == nil {
		cfg.Metrics.Logger = cfg.Logger
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(
		logger.RequestID(),
		middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.TracingEnabled}),
		middleware.SpanEnricher(),
		logger.GinMiddleware(cfg.Logger),
		logger.Recovery(cfg.Logger),
		middleware.HTTPMetrics(cfg.Metrics),
		middleware.CORS(cfg.CORS),
		middleware.SecureHeaders(),
		middleware.BodyLimit(cfg.MaxBodyBytes),
	)
	return engine
}

// Router manages HTTP route registration
type Router struct {
	engine         *gin.Engine
	apiVersion     string
	registrars     []RouteRegistrar
	rootRegistrars []RouteRegistrar
	metricsHandler http.Handler
	metricsGuards  []gin.HandlerFunc
	apiMiddleware  []gin.HandlerFunc
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithMetricsHandler serves h on GET /metrics behind the optional guards.
// A nil handler is ignored.
func WithMetricsHandler(h http.Handler, guards ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.metricsHandler = h
		r.metricsGuards = guards
	}
}

// WithAPIMiddleware adds middleware that runs only on /api/{version} routes
func WithAPIMiddleware(handlers ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.apiMiddleware = append(r.apiMiddleware, handlers...)
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a registrar mounted under /api/{version}
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// RegisterRoot adds a registrar mounted at the engine root, e.g. health checks
func (r *Router) RegisterRoot(registrar RouteRegistrar) *Router {
	r.rootRegistrars = append(r.rootRegistrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	root := &r.engine.RouterGroup
	for _, registrar := range r.rootRegistrars {
		registrar.RegisterRoutes(root)
	}
	if r.metricsHandler != nil {
		handlers := append(append([]gin.HandlerFunc{}, r.metricsGuards...), gin.WrapH(r.metricsHandler))
		r.engine.GET("/metrics", handlers...)
	}

	api := r.engine.Group("/api/"+r.apiVersion, r.apiMiddleware...)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// Engine returns the underlying gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
