package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/trial-registry-api/internal/handler"
	"github.com/noah-isme/trial-registry-api/internal/repository"
	"github.com/noah-isme/trial-registry-api/internal/router"
	"github.com/noah-isme/trial-registry-api/internal/service"
	"github.com/noah-isme/trial-registry-api/internal/validation"
	"github.com/noah-isme/trial-registry-api/pkg/cache"
	"github.com/noah-isme/trial-registry-api/pkg/config"
	"github.com/noah-isme/trial-registry-api/pkg/database"
	"github.com/noah-isme/trial-registry-api/pkg/export"
	"github.com/noah-isme/trial-registry-api/pkg/logger"
)

// @title Clinical Trial Registry API
// @version 1.0.0
// @description Register, update and query clinical trials uploaded as JSON documents
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	db, err := database.Open(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if err := database.EnsureSchema(ctx, db); err != nil {
		logr.Fatal("failed to prepare schema", zap.Error(err))
	}

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	cacheRepo := repository.NewCacheRepository(nil)
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, trial cache disabled", zap.Error(err))
		} else {
			defer client.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(client)
		}
	}
	trialCache := service.NewTrialCache(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	schema, err := validation.LoadTrialSchema(cfg.Uploads.SchemaPath)
	if err != nil {
		logr.Fatal("failed to load trial schema", zap.Error(err))
	}
	queries, err := validation.NewQueryValidator(validator.New())
	if err != nil {
		logr.Fatal("failed to register validators", zap.Error(err))
	}

	trialRepo := repository.NewTrialRepository(db, metrics)
	trialSvc := service.NewTrialService(trialRepo, queries, trialCache, metrics, logr, export.NewCSVExporter(), export.NewPDFExporter())

	r := router.New(router.Deps{
		Config:  cfg,
		Logger:  logr,
		Metrics: metrics,
		Trials:  handler.NewTrialHandler(trialSvc, validation.NewUploadValidator(schema, cfg.Uploads.MaxFileSizeBytes)),
		Probes:  handler.NewMetricsHandler(metrics, trialRepo),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "db_driver", cfg.Database.Driver, "trial_cache", trialCache.Enabled())
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
