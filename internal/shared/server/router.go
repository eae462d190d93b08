package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/ratelimit"
	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/telemetry"
)

// RouteRegistrar attaches a feature's public and admin routes.
type RouteRegistrar interface {
	RegisterRoutes(public, admin *gin.RouterGroup)
}

// GroupRegistrar attaches routes that sit outside the storage and admin gates.
type GroupRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries the handlers NewRouter mounts. Nil entries are skipped.
type RouterDeps struct {
	Config config.Config
	// Store is checked before every storage-backed request. Nil means storage
	// is in process.
	Store      middleware.Ensurer
	Health     GroupRegistrar
	GoogleAuth GroupRegistrar
	Profile    RouteRegistrar
	Assets     RouteRegistrar
	Contacts   RouteRegistrar
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	cfg := deps.Config

	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		telemetry.Warn("router.trusted_proxies_invalid", map[string]any{"error": err.Error()})
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.AllowedOrigins()),
		middleware.RateLimit(middleware.RateLimitConfig{
			Window: ratelimit.New(cfg.APIRateLimit, cfg.APIRateWindow, nil),
			Name:   "api",
			Skip:   skipAPILimit,
		}),
	)

	r.GET("/metrics", metrics.Handler())
	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "Route not found", nil)
	})

	api := r.Group("/api")
	if deps.Health != nil {
		deps.Health.RegisterRoutes(api)
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}

	admin := api.Group("", middleware.RequireAdmin())
	registerMeRoutes(admin)

	// Admin routes authenticate before the storage check.
	public := api.Group("", middleware.RequireStore(deps.Store))
	admin = admin.Group("", middleware.RequireStore(deps.Store))
	for _, reg := range []RouteRegistrar{deps.Profile, deps.Assets, deps.Contacts} {
		if reg != nil {
			reg.RegisterRoutes(public, admin)
		}
	}

	return r
}

func skipAPILimit(c *gin.Context) bool {
	path := c.Request.URL.Path
	return c.Request.Method == http.MethodOptions || !strings.HasPrefix(path, "/api/") || path == "/api/health"
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
