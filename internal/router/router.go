// Package router assembles the gin engine for the trial registry API.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/trial-registry-api/api/swagger"
	"github.com/noah-isme/trial-registry-api/internal/handler"
	internalmiddleware "github.com/noah-isme/trial-registry-api/internal/middleware"
	"github.com/noah-isme/trial-registry-api/internal/service"
	"github.com/noah-isme/trial-registry-api/pkg/config"
	"github.com/noah-isme/trial-registry-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/trial-registry-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/trial-registry-api/pkg/middleware/requestid"
)

// Deps carries everything the router wires into routes.
type Deps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *service.MetricsService
	Trials  *handler.TrialHandler
	Probes  *handler.MetricsHandler
}

// New builds the engine with the standard middleware chain and all routes registered.
func New(deps Deps) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Metrics.Enabled {
		r.Use(internalmiddleware.Metrics(deps.Metrics, "/metrics"))
	}
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", deps.Probes.Health)
	r.GET("/ready", deps.Probes.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", deps.Probes.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	trials := api.Group("/trials")
	trials.POST("", deps.Trials.Add)
	trials.PUT("", deps.Trials.Update)
	trials.GET("", deps.Trials.List)
	trials.GET("/status", deps.Trials.ListByStatus)
	if cfg.Exports.Enabled {
		trials.GET("/export", deps.Trials.Export)
	}
	trials.GET("/:trialId", deps.Trials.Get)

	return r
}
