package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/slotswap/slotswap-api/api/swagger"
	"github.com/slotswap/slotswap-api/internal/handler"
	"github.com/slotswap/slotswap-api/internal/middleware"
	"github.com/slotswap/slotswap-api/internal/realtime"
	"github.com/slotswap/slotswap-api/internal/repository"
	"github.com/slotswap/slotswap-api/internal/service"
	"github.com/slotswap/slotswap-api/migrations"
	"github.com/slotswap/slotswap-api/pkg/cache"
	"github.com/slotswap/slotswap-api/pkg/config"
	"github.com/slotswap/slotswap-api/pkg/database"
	"github.com/slotswap/slotswap-api/pkg/logger"
	corsmiddleware "github.com/slotswap/slotswap-api/pkg/middleware/cors"
	reqidmiddleware "github.com/slotswap/slotswap-api/pkg/middleware/requestid"
)

// @title SlotSwap API
// @version 1.0.0
// @description Time-slot trading with real-time swap notifications
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		migrator, err := migrations.NewMigrator(db, cfg.Database.MigrationsDir)
		if err != nil {
			logr.Sugar().Fatalw("migrator init failed", "error", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := migrator.Up(ctx); err != nil {
			cancel()
			logr.Sugar().Fatalw("migrations failed", "error", err)
		}
		cancel()
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("redis connection failed", "error", err)
	}
	if redisClient == nil {
		logr.Sugar().Infow("redis disabled, swappable listing served uncached")
	}

	userRepo := repository.NewUserRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	swapRepo := repository.NewSwapRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	metricsSvc := service.NewMetricsService()
	hub := realtime.NewHub(cfg.Realtime, metricsSvc, logr)

	authSvc := service.NewAuthService(userRepo, nil, logr, cfg.JWT)
	slotSvc := service.NewSlotService(slotRepo, cacheRepo, metricsSvc, cfg.Cache, nil, logr)
	swapSvc := service.NewSwapService(swapRepo, slotRepo, userRepo, hub, cacheRepo, metricsSvc, cfg.Swaps, nil, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.Register(r, cfg.APIPrefix, handler.Routers{
		Auth:    handler.NewAuthHandler(authSvc),
		Slots:   handler.NewSlotHandler(slotSvc),
		Swaps:   handler.NewSwapHandler(swapSvc, slotSvc),
		WS:      handler.NewWSHandler(hub, authSvc, logr),
		Metrics: handler.NewMetricsHandler(metricsSvc),
	}, authSvc)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
