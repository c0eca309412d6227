package http

import (
	"context"
	"fmt"
	"net"
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/08star/my-auth-app/config"
	"github.com/08star/my-auth-app/internal/application/services"
	"github.com/08star/my-auth-app/internal/interfaces/http/handlers"
	"github.com/08star/my-auth-app/internal/interfaces/http/middleware"
	"github.com/08star/my-auth-app/pkg/logger"
)

// login and registration share a tighter budget per client and path
const (
	authRateLimitRPS   = 10.0 / 60
	authRateLimitBurst = 5
)

// Router wraps the Gin engine with application dependencies.
type Router struct {
	engine   *gin.Engine
	limiters []*middleware.RateLimiter
}

// RouterDeps contains dependencies needed by the router.
type RouterDeps struct {
	Accounts *services.AccountService
	Devices  *services.DeviceService
	Logger   logger.Logger

	// LogStore backs /admin/logs; nil disables the endpoint.
	LogStore *logger.SQLiteWriter

	// HealthChecks are reported by /health and gate /ready.
	HealthChecks map[string]handlers.HealthChecker
}

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg *config.Config, deps *RouterDeps) (*Router, error) {
	if cfg.Logging.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	engine.Use(gin.Recovery())
	engine.Use(middleware.NewRequestLoggerMiddleware(deps.Logger).Handler())
	engine.Use(cors.New(corsConfig(cfg.Security.AllowedOrigins)))

	r := &Router{engine: engine}

	authHandler := handlers.NewAuthHandler(deps.Accounts)
	deviceHandler := handlers.NewDeviceHandler(deps.Devices)
	adminHandler := handlers.NewAdminHandler(deps.Accounts, deps.Devices, deps.LogStore)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)

	authMiddleware := middleware.NewAuthMiddleware(deps.Accounts)

	// Health endpoints (no rate limiting)
	engine.GET("/health", healthHandler.Health)
	engine.GET("/ready", healthHandler.Ready)
	engine.GET("/live", healthHandler.Live)

	var authLimiter *middleware.RateLimiter
	if cfg.Security.RateLimitEnabled {
		global := middleware.NewRateLimiter(float64(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst)
		authLimiter = middleware.NewRateLimiter(authRateLimitRPS, authRateLimitBurst)
		r.limiters = append(r.limiters, global, authLimiter)
		engine.Use(global.Middleware())
	}

	auth := engine.Group("/auth")
	{
		credentials := auth.Group("")
		if authLimiter != nil {
			credentials.Use(authLimiter.AuthMiddleware())
		}
		credentials.POST("/register", authHandler.Register)
		credentials.POST("/login", authHandler.Login)

		session := auth.Group("")
		session.Use(authMiddleware.RequireAuth())
		session.POST("/logout", authHandler.Logout)
		session.GET("/me", authHandler.Me)
	}

	devices := engine.Group("/devices")
	devices.Use(authMiddleware.RequireAuth())
	{
		devices.GET("", deviceHandler.List)
		devices.POST("/register", deviceHandler.Register)
		devices.POST("/verify", deviceHandler.Verify)
		devices.GET("/status", deviceHandler.Status)
	}

	if cfg.Security.AdminAPIKey != "" {
		admin := engine.Group("/admin")
		admin.Use(middleware.RequireAdminKey(cfg.Security.AdminAPIKey))
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.POST("/users/:user_id/disable", adminHandler.DisableUser)
			admin.POST("/users/:user_id/enable", adminHandler.EnableUser)
			admin.GET("/users/:user_id/devices", adminHandler.ListDevices)
			admin.POST("/users/:user_id/devices/verify", adminHandler.VerifyDevice)
			admin.GET("/logs", adminHandler.QueryLogs)
		}
	}

	return r, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", "X-Request-ID", "X-Admin-Key"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// Engine returns the underlying Gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Run evicts idle rate limiter state until ctx is done.
func (r *Router) Run(ctx context.Context) {
	for _, l := range r.limiters {
		go l.Run(ctx)
	}
	<-ctx.Done()
}

// NewServer creates an HTTP server for the router.
func NewServer(cfg *config.ServerConfig, router *Router) *nethttp.Server {
	return &nethttp.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
