package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carecall-backend/internal/config"
	intDatabase "carecall-backend/internal/database"
	callHandler "carecall-backend/internal/handler/http/call"
	dashboardHandler "carecall-backend/internal/handler/http/dashboard"
	issueHandler "carecall-backend/internal/handler/http/issue"
	profileHandler "carecall-backend/internal/handler/http/profile"
	wsHandler "carecall-backend/internal/handler/ws"
	"carecall-backend/internal/middleware"
	"carecall-backend/internal/provider/elevenlabs"
	"carecall-backend/internal/repository/postgres"
	redisRepo "carecall-backend/internal/repository/redis"
	callService "carecall-backend/internal/service/call"
	dashboardService "carecall-backend/internal/service/dashboard"
	issueService "carecall-backend/internal/service/issue"
	profileService "carecall-backend/internal/service/profile"
	storageService "carecall-backend/internal/service/storage"
	"carecall-backend/internal/voice"
	pkgDatabase "carecall-backend/pkg/database"
	"carecall-backend/pkg/logger"
	"carecall-backend/pkg/metrics"
)

const serviceName = "care-service"

func main() {
	logger.InitDefault()
	defer logger.Sync()

	cfg := config.Load()

	// 1. Provider configuration is required before any call can be placed
	if err := cfg.ValidateProvider(); err != nil {
		logger.Fatal("invalid provider configuration", zap.Error(err))
	}

	// 2. Connect to Postgres, retrying while the database comes up
	postgresDB := connectPostgres(cfg)
	defer postgresDB.Close()
	logger.Info("connected to postgres", zap.String("database", cfg.DBName))

	// 3. Connect to Redis; a failure degrades the stats cache, not the service
	redisDB, err := intDatabase.NewRedisDB(&intDatabase.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       0,
		PoolSize: 10,
		Timeout:  5 * time.Second,
	})
	if err != nil {
		logger.Warn("redis unavailable, stats cache degraded", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}
	defer redisDB.Close()

	go redisDB.StartHealthCheck(context.Background(), 10*time.Second)

	// 4. Repositories
	profileRepo := postgres.NewProfileRepository(postgresDB.Pool)
	callRepo := postgres.NewCallRepository(postgresDB.Pool)
	transcriptRepo := postgres.NewTranscriptRepository(postgresDB.Pool)
	summaryRepo := postgres.NewSummaryRepository(postgresDB.Pool)
	issueRepo := postgres.NewIssueRepository(postgresDB.Pool)
	overrideRepo := postgres.NewOverrideRepository(postgresDB.Pool)
	statsCache := redisRepo.NewStatsCache(redisDB.Client)

	// 5. Metrics
	appMetrics := metrics.NewMetrics(serviceName)
	prometheusMiddleware := middleware.NewPrometheusMiddleware(appMetrics)

	// 6. Provider client and services
	providerClient := elevenlabs.NewClient(&elevenlabs.Config{
		APIKey:        cfg.Provider.APIKey,
		AgentID:       cfg.Provider.AgentID,
		PhoneNumberID: cfg.Provider.PhoneNumberID,
		BaseURL:       cfg.Provider.BaseURL,
		Timeout:       cfg.Provider.Timeout,
	})

	callSvc := callService.NewService(profileRepo, callRepo, transcriptRepo, summaryRepo, providerClient, appMetrics)
	profileSvc := profileService.NewService(profileRepo, overrideRepo)
	issueSvc := issueService.NewService(issueRepo)
	dashboardSvc := dashboardService.NewService(profileRepo, callRepo, issueRepo, statsCache, appMetrics)

	var storageSvc *storageService.Service
	if cfg.MinIOAccessKey != "" && cfg.MinIOSecretKey != "" {
		storageSvc, err = storageService.NewMinioService(
			cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket,
			cfg.Env == "production", profileRepo,
		)
		if err != nil {
			logger.Fatal("failed to connect to minio", zap.Error(err))
		}
		logger.Info("connected to minio", zap.String("bucket", cfg.MinIOBucket))
	} else {
		logger.Warn("minio credentials not set, avatar storage disabled")
	}

	// 7. Handlers
	callHdlr := callHandler.NewHandler(callSvc)
	profileHdlr := profileHandler.NewHandler(profileSvc, storageSvc)
	issueHdlr := issueHandler.NewHandler(issueSvc)
	dashboardHdlr := dashboardHandler.NewHandler(dashboardSvc)
	voiceHdlr := wsHandler.NewVoiceHandler(
		profileRepo,
		voice.Config{APIKey: cfg.Provider.APIKey},
		cfg.Provider.AgentID,
		appMetrics,
	)

	// 8. Router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.SetTrustedProxies(nil)

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORSMiddleware())
	router.Use(prometheusMiddleware.Handler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
			"time":    time.Now().UTC(),
		})
	})

	router.GET("/metrics", middleware.MetricsHandler(appMetrics))

	v1 := router.Group("/v1")
	{
		v1.POST("/calls/initiate", callHdlr.InitiateCall)
		v1.GET("/calls", callHdlr.ListCalls)
		v1.GET("/calls/:id", callHdlr.GetCall)
		v1.POST("/calls/:id/outcome", callHdlr.ApplyOutcome)
		v1.POST("/calls/:id/transcript", callHdlr.AppendTranscript)
		v1.PUT("/calls/:id/summary", callHdlr.SaveSummary)

		v1.POST("/profiles", profileHdlr.CreateProfile)
		v1.GET("/profiles", profileHdlr.ListProfiles)
		v1.GET("/profiles/:id", profileHdlr.GetProfile)
		v1.PATCH("/profiles/:id", profileHdlr.UpdateProfile)
		v1.DELETE("/profiles/:id", profileHdlr.DeleteProfile)
		v1.POST("/profiles/:id/avatar", profileHdlr.UploadAvatar)
		v1.POST("/profiles/:id/overrides", profileHdlr.CreateOverride)
		v1.GET("/profiles/:id/overrides", profileHdlr.ListOverrides)
		v1.DELETE("/overrides/:id", profileHdlr.DeleteOverride)

		v1.POST("/issues", issueHdlr.CreateIssue)
		v1.GET("/issues", issueHdlr.ListIssues)
		v1.GET("/issues/open", issueHdlr.ListOpenIssues)
		v1.GET("/issues/:id", issueHdlr.GetIssue)
		v1.PATCH("/issues/:id", issueHdlr.UpdateIssue)
		v1.DELETE("/issues/:id", issueHdlr.DeleteIssue)

		v1.GET("/dashboard/stats", dashboardHdlr.GetStats)

		v1.GET("/voice/session", voiceHdlr.HandleVoice)
	}

	// 9. Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("care service starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// 10. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

// connectPostgres retries with backoff so the service survives the
// database starting after it in compose environments
func connectPostgres(cfg *config.Config) *pkgDatabase.PostgresDB {
	pgConfig := &pkgDatabase.PostgresConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}

	var db *pkgDatabase.PostgresDB
	var err error

	backoff := time.Second
	for attempt := 1; attempt <= 5; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		db, err = pkgDatabase.NewPostgresDB(ctx, pgConfig)
		cancel()
		if err == nil {
			return db
		}

		logger.Warn("postgres connection failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		time.Sleep(backoff)
		backoff *= 2
	}

	logger.Fatal("could not connect to postgres", zap.Error(err))
	return nil
}
