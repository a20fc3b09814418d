package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/jadwal-sholat/internal/middleware"
	"github.com/noah-isme/jadwal-sholat/internal/service"
	"github.com/noah-isme/jadwal-sholat/pkg/logger"
	corsmiddleware "github.com/noah-isme/jadwal-sholat/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/jadwal-sholat/pkg/middleware/requestid"
)

// RouterConfig holds edge-level switches.
type RouterConfig struct {
	APIPrefix   string
	CORSOrigins []string
	HSTS        bool
	Docs        bool
}

// Handlers groups the route handlers. Nil handlers leave their routes out.
type Handlers struct {
	Cities   *CityHandler
	Schedule *ScheduleHandler
	Mosques  *MosqueHandler
	Prayer   *PrayerHandler
	Exports  *ExportHandler
	Health   *HealthHandler
}

// NewRouter assembles the gin engine with the shared middleware chain.
func NewRouter(cfg RouterConfig, h Handlers, limiter *middleware.RateLimiter, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	if logr == nil {
		logr = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders(cfg.HSTS))

	if h.Health != nil {
		r.GET("/health", h.Health.Health)
		r.GET("/ready", h.Health.Ready)
		r.GET("/metrics", h.Health.Prometheus)
	}
	if cfg.Docs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	mosqueChain := []gin.HandlerFunc{}
	if limiter != nil {
		api.Use(limiter.General())
		mosqueChain = append(mosqueChain, limiter.Mosque())
	}

	if h.Cities != nil {
		api.GET("/cities", h.Cities.Search)
	}
	if h.Schedule != nil {
		api.GET("/schedule", h.Schedule.Month)
	}
	if h.Mosques != nil {
		api.GET("/mosques", append(mosqueChain, h.Mosques.Nearby)...)
	}
	if h.Prayer != nil {
		api.GET("/next-prayer", h.Prayer.NextPrayer)
		api.GET("/countdown/stream", h.Prayer.Stream)
		api.GET("/time", h.Prayer.Time)
	}
	if h.Exports != nil {
		api.POST("/exports", h.Exports.Create)
		api.GET("/exports/:token", h.Exports.Download)
	}
	return r
}
