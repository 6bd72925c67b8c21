package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/trainova/classtrack-api/api/swagger"
	"github.com/trainova/classtrack-api/internal/handler"
	"github.com/trainova/classtrack-api/internal/middleware"
	"github.com/trainova/classtrack-api/internal/models"
	"github.com/trainova/classtrack-api/internal/repository"
	"github.com/trainova/classtrack-api/internal/service"
	"github.com/trainova/classtrack-api/pkg/cache"
	"github.com/trainova/classtrack-api/pkg/config"
	"github.com/trainova/classtrack-api/pkg/database"
	"github.com/trainova/classtrack-api/pkg/jobs"
	"github.com/trainova/classtrack-api/pkg/logger"
	corsmiddleware "github.com/trainova/classtrack-api/pkg/middleware/cors"
	reqidmiddleware "github.com/trainova/classtrack-api/pkg/middleware/requestid"
	"github.com/trainova/classtrack-api/pkg/storage"
)

// @title ClassTrack API
// @version 1.0.0
// @description Training class records service: capture, validation, reporting and exports.
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, cacheRepo != nil)

	classRepo := repository.NewClassRepository(db)
	refdataRepo := repository.NewRefdataRepository(db)

	classSvc := service.NewClassService(classRepo, cacheSvc, metricsSvc, validator.New(), logr, cfg.Stats.CacheTTL)
	refdataSvc := service.NewRefdataService(refdataRepo, cacheSvc, logr, cfg.Refdata.CacheTTL)
	identitySvc := service.NewIdentityService(service.IdentityConfig{
		JWTSecret:  cfg.Auth.JWTSecret,
		Issuer:     cfg.Auth.Issuer,
		APIKeyHash: cfg.Auth.APIKeyHash,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		exportHandler *handler.ExportHandler
		exportQueue   *jobs.Queue
	)
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc := service.NewExportService(classRepo, refdataRepo, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, nil, nil)

		exportRepo := repository.NewExportRepository(db)
		worker := service.NewExportWorker(exportRepo, exportSvc, cfg.Exports.WorkerRetries, logr)
		exportQueue = jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportQueue.Start(ctx)

		exportJobSvc := service.NewExportJobService(exportRepo, exportQueue, exportSvc, logr, service.ExportJobConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: time.Hour,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})
		exportJobSvc.RecoverPendingJobs(ctx)
		exportJobSvc.StartCleanup(ctx)

		exportHandler = handler.NewExportHandler(exportJobSvc)
	}

	classHandler := handler.NewClassHandler(classSvc)
	refdataHandler := handler.NewRefdataHandler(refdataSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "database"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Download links are pre-signed, the token is the credential.
	public := r.Group(cfg.APIPrefix)
	if exportHandler != nil {
		public.GET("/exports/download/:token", exportHandler.Download)
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Auth(identitySvc))
	api.Use(middleware.WithResponseMeta())

	readRoles := middleware.RequireRoles(models.RoleAdmin, models.RoleCoordinator, models.RoleAgent, models.RoleService)
	writeRoles := middleware.RequireRoles(models.RoleAdmin, models.RoleCoordinator)
	noteRoles := middleware.RequireRoles(models.RoleAdmin, models.RoleCoordinator, models.RoleAgent)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	classes := api.Group("/classes")
	{
		classes.GET("", readRoles, classHandler.List)
		classes.POST("", writeRoles, classHandler.Create)
		classes.GET("/:id", readRoles, classHandler.Get)
		classes.PUT("/:id", writeRoles, classHandler.Update)
		classes.DELETE("/:id", adminOnly, classHandler.Delete)
		classes.POST("/:id/notes", noteRoles, classHandler.AppendNote)
		classes.PUT("/:id/schedule", writeRoles, classHandler.ReplaceSchedule)
	}

	api.GET("/class-code/:code", readRoles, classHandler.GetByCode)
	api.GET("/class-codes/generate", writeRoles, classHandler.GenerateCode)
	api.GET("/statistics/classes", readRoles, classHandler.Statistics)
	api.GET("/schedule/upcoming", readRoles, classHandler.Upcoming)
	api.GET("/agents/:id/classes", readRoles, classHandler.ByAgent)
	api.GET("/supervisors/:id/classes", readRoles, classHandler.BySupervisor)
	api.GET("/clients/:id/classes", readRoles, classHandler.ByClient)
	api.GET("/learners/:id/classes", readRoles, classHandler.ByLearner)

	refdata := api.Group("/refdata")
	{
		refdata.GET("/clients", readRoles, refdataHandler.Clients)
		refdata.GET("/agents", readRoles, refdataHandler.Agents)
		refdata.GET("/supervisors", readRoles, refdataHandler.Supervisors)
		refdata.GET("/learners", readRoles, refdataHandler.Learners)
		refdata.GET("/seta-bodies", readRoles, refdataHandler.SetaBodies)
		refdata.GET("/class-types", readRoles, refdataHandler.ClassTypes)
		refdata.GET("/class-subjects", readRoles, refdataHandler.ClassSubjects)
		refdata.GET("/holidays", readRoles, refdataHandler.Holidays)
		refdata.POST("/invalidate", adminOnly, refdataHandler.Invalidate)
	}

	if exportHandler != nil {
		api.POST("/exports/generate", readRoles, exportHandler.Create)
		api.GET("/exports/status/:id", readRoles, exportHandler.Status)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "exports", cfg.Exports.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
}
