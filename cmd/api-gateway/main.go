package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/edsonosf/gdp/api/swagger"
	"github.com/edsonosf/gdp/internal/handler"
	"github.com/edsonosf/gdp/internal/middleware"
	"github.com/edsonosf/gdp/internal/notify"
	"github.com/edsonosf/gdp/internal/repository"
	"github.com/edsonosf/gdp/internal/router"
	"github.com/edsonosf/gdp/internal/seed"
	"github.com/edsonosf/gdp/internal/service"
	"github.com/edsonosf/gdp/pkg/ai"
	"github.com/edsonosf/gdp/pkg/cache"
	"github.com/edsonosf/gdp/pkg/config"
	"github.com/edsonosf/gdp/pkg/database"
	"github.com/edsonosf/gdp/pkg/export"
	"github.com/edsonosf/gdp/pkg/jobs"
	"github.com/edsonosf/gdp/pkg/logger"
	"github.com/edsonosf/gdp/pkg/storage"
)

// @title GDP API
// @version 1.0.0
// @description Disciplinary and pedagogical occurrence records for schools
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	migrator := database.NewMigrator(database.URL(cfg.Database), logr)
	if cfg.Database.MigrateOnStart {
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := service.NewValidator()
	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Reports.CacheTTL, logr, cacheRepo.Enabled())

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	occurrenceRepo := repository.NewOccurrenceRepository(db)
	accessLogRepo := repository.NewAccessLogRepository(db)
	reportRepo := repository.NewReportRepository(db)
	systemRepo := repository.NewSystemRepository(db)

	accessLogSvc := service.NewAccessLogService(accessLogRepo, nil, validate, logr)
	accessQueue := jobs.NewQueue("access_log", accessLogSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.AccessLog.Workers,
		BufferSize: cfg.AccessLog.BufferSize,
		MaxRetries: 2,
		Logger:     logr,
	})
	accessQueue.Start(context.WithoutCancel(ctx))
	accessLogSvc.UseQueue(accessQueue)

	seeder := seed.New(userRepo, studentRepo, cfg.Seed.AdminPassword, logr)
	if cfg.Seed.OnStart {
		if err := seeder.Run(ctx); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	hub := notify.NewHub(metrics, logr)

	var generator ai.Generator
	if cfg.Gemini.APIKey != "" {
		gemini, err := ai.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Timeout)
		if err != nil {
			logr.Warn("gemini client unavailable, behaviour analysis disabled", zap.Error(err))
		} else {
			defer gemini.Close() //nolint:errcheck
			generator = gemini
		}
	}

	snapshots, err := storage.NewLocalStorage(cfg.Backups.StorageDir)
	if err != nil {
		return fmt.Errorf("backup storage: %w", err)
	}

	authSvc := service.NewAuthService(userRepo, accessLogSvc, metrics, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, occurrenceRepo, cacheSvc, validate, logr)
	occurrenceSvc := service.NewOccurrenceService(occurrenceRepo, studentRepo, cacheSvc, metrics, hub, validate, logr)
	reportSvc := service.NewReportService(reportRepo, occurrenceRepo, studentRepo, cacheSvc, service.ReportRenderers{
		CSV:  export.NewCSVExporter(),
		PDF:  export.NewPDFExporter(),
		XLSX: export.NewXLSXExporter(),
	}, logr)
	analysisSvc := service.NewAnalysisService(studentRepo, occurrenceRepo, generator, logr)
	systemSvc := service.NewSystemService(service.SystemDeps{
		Repo: systemRepo,
		Source: service.BackupSources{
			Students:    studentRepo,
			Occurrences: occurrenceRepo,
			Users:       userRepo,
			Logs:        accessLogRepo,
		},
		Users:    userRepo,
		Migrator: migrator,
		Seeder:   seeder,
		Storage:  snapshots,
		Signer:   storage.NewSignedURLSigner(cfg.Backups.SignedURLSecret, cfg.Backups.SignedURLTTL),
		Cache:    cacheSvc,
		Metrics:  metrics,
	}, service.SystemConfig{APIPrefix: cfg.APIPrefix, Retention: cfg.Backups.Retention}, validate, logr)

	engine := router.Setup(router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		User:       handler.NewUserHandler(userSvc),
		Student:    handler.NewStudentHandler(studentSvc, analysisSvc),
		Occurrence: handler.NewOccurrenceHandler(occurrenceSvc),
		Report:     handler.NewReportHandler(reportSvc),
		AccessLog:  handler.NewAccessLogHandler(accessLogSvc),
		System:     handler.NewSystemHandler(systemSvc),
		WS:         handler.NewWSHandler(hub, cfg.CORS.AllowedOrigins, logr),
		Metrics:    handler.NewMetricsHandler(metrics.Handler()),
	}, router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Observer:       metrics,
		Tokens:         authSvc,
		Access:         accessLogSvc,
		LoginLimiter:   middleware.NewRateLimiter(cfg.Login.MaxAttempts, cfg.Login.Window),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logr.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http server shutdown", zap.Error(err))
	}
	accessQueue.Stop()
	logr.Info("shutdown complete")
	return nil
}
