package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/welltrack/welltrack-api/internal/app"
	"github.com/welltrack/welltrack-api/internal/app/maintenance"
	"github.com/welltrack/welltrack-api/internal/app/reminders"
	iauth "github.com/welltrack/welltrack-api/internal/auth"
	"github.com/welltrack/welltrack-api/internal/handlers"
	"github.com/welltrack/welltrack-api/internal/middleware"
	"github.com/welltrack/welltrack-api/internal/realtime"
	"github.com/welltrack/welltrack-api/internal/services"
)

// Dependencies bundles the services the router exposes.
type Dependencies struct {
	DB            *gorm.DB
	JWT           *iauth.JWTService
	Accounts      *services.AccountService
	Wellness      *services.WellnessService
	Notifications *services.NotificationService
	Motivation    *services.MotivationService
	Hub           *realtime.Hub
	Sweeper       *reminders.Sweeper
	Cleaner       *maintenance.Cleaner
	RateStore     middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(cfg *app.Config, deps Dependencies) (*gin.Engine, error) {
	switch {
	case cfg == nil:
		return nil, fmt.Errorf("config must be provided")
	case deps.JWT == nil:
		return nil, fmt.Errorf("jwt service must be provided")
	case deps.Accounts == nil:
		return nil, fmt.Errorf("account service must be provided")
	case deps.Wellness == nil:
		return nil, fmt.Errorf("wellness service must be provided")
	case deps.Notifications == nil:
		return nil, fmt.Errorf("notification service must be provided")
	case deps.Motivation == nil:
		return nil, fmt.Errorf("motivation service must be provided")
	}

	rateStore := deps.RateStore
	if rateStore == nil {
		rateStore = middleware.NewMemoryRateStore()
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins...))

	registerHealthRoutes(r, deps.DB)
	registerMetricsRoutes(r, cfg.Monitoring.Prometheus)

	limited := middleware.RateLimitWithStore(rateStore, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window)
	requireAuth := middleware.Auth(deps.JWT)

	api := r.Group("/api")
	protected := api.Group("")
	protected.Use(requireAuth)

	registerAuthRoutes(api.Group("/auth", limited), protected, handlers.NewAuthHandler(deps.Accounts))
	registerWellnessRoutes(protected, handlers.NewWellnessHandler(deps.Wellness))
	registerNotificationRoutes(protected, handlers.NewNotificationHandler(deps.Notifications))
	protected.GET("/motivation/today", handlers.NewMotivationHandler(deps.Motivation).Today)
	protected.GET("/realtime", handlers.NewRealtimeHandler(deps.Hub).Stream)
	registerAdminRoutes(protected, handlers.NewAdminHandler(deps.Sweeper, deps.Cleaner))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func registerMetricsRoutes(r *gin.Engine, cfg app.PrometheusConfig) {
	if !cfg.Enabled {
		return
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "/metrics"
	}
	r.GET(endpoint, gin.WrapH(promhttp.Handler()))
}
