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
	"go.uber.org/zap"

	_ "github.com/smartstudenthub/activity-api/api/swagger"
	"github.com/smartstudenthub/activity-api/internal/authz"
	"github.com/smartstudenthub/activity-api/internal/handler"
	"github.com/smartstudenthub/activity-api/internal/middleware"
	"github.com/smartstudenthub/activity-api/internal/models"
	"github.com/smartstudenthub/activity-api/internal/repository"
	"github.com/smartstudenthub/activity-api/internal/service"
	"github.com/smartstudenthub/activity-api/pkg/cache"
	"github.com/smartstudenthub/activity-api/pkg/config"
	"github.com/smartstudenthub/activity-api/pkg/database"
	"github.com/smartstudenthub/activity-api/pkg/export"
	"github.com/smartstudenthub/activity-api/pkg/logger"
	corsmiddleware "github.com/smartstudenthub/activity-api/pkg/middleware/cors"
	reqidmiddleware "github.com/smartstudenthub/activity-api/pkg/middleware/requestid"
	"github.com/smartstudenthub/activity-api/pkg/storage"
)

// staleReportCutoff bounds how old a generating row must be before startup
// recovery re-enqueues it.
const staleReportCutoff = 5 * time.Minute

// @title Smart Student Hub Activity API
// @version 1.0.0
// @description Role-based student activity tracking with approvals, portfolios, and reports
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, stats caching disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, true)
	}

	validate := validator.New()
	policy := authz.New(cfg.Approval.RestrictFacultyDepartment)

	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	reportRepo := repository.NewReportRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to init report storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "activity-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	activitySvc := service.NewActivityService(activityRepo, userRepo, policy, cacheSvc, cfg.Stats.CacheTTL, validate, logr)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, cacheSvc, metricsSvc, logr)
	reportSvc := service.NewReportService(
		reportRepo, activityRepo, userRepo,
		export.NewPortfolioRenderer(), export.NewCSVExporter(), export.NewPDFExporter(),
		reportStore, signer, policy, validate, logr,
		service.ReportServiceConfig{
			SignedURLTTL: cfg.Reports.SignedURLTTL,
			ResultTTL:    cfg.Reports.ResultTTL,
			Workers:      cfg.Reports.WorkerConcurrency,
			MaxRetries:   cfg.Reports.WorkerRetries,
		},
	)

	reportSvc.Start(ctx)
	defer reportSvc.Stop()
	if err := reportSvc.RecoverStale(ctx, staleReportCutoff); err != nil {
		logr.Warn("stale report recovery failed", zap.Error(err))
	}
	go runArtifactCleanup(ctx, reportSvc, cfg.Reports.CleanupInterval)

	authHandler := handler.NewAuthHandler(authSvc, userSvc)
	userHandler := handler.NewUserHandler(userSvc)
	activityHandler := handler.NewActivityHandler(activitySvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		protected := auth.Group("", middleware.JWT(authSvc))
		protected.POST("/logout", authHandler.Logout)
		protected.GET("/me", authHandler.Me)
		protected.PUT("/change-password", authHandler.ChangePassword)
	}

	users := api.Group("/users", middleware.JWT(authSvc))
	{
		users.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty), userHandler.List)
		users.GET("/faculty/all", middleware.RequireRoles(models.RoleAdmin), userHandler.Faculty)
		users.GET("/students/:department", middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty), userHandler.StudentsByDepartment)
		users.GET("/:id", userHandler.Get)
		users.PUT("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), userHandler.Update)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Deactivate)
		users.PATCH("/:id/status", middleware.RequireRoles(models.RoleAdmin), userHandler.SetStatus)
	}

	activities := api.Group("/activities", middleware.JWT(authSvc))
	{
		activities.POST("", middleware.RequireRoles(models.RoleStudent), activityHandler.Create)
		activities.GET("", activityHandler.List)
		activities.GET("/pending/approval", middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty), activityHandler.Pending)
		activities.GET("/stats/summary", activityHandler.Stats)
		activities.GET("/:id", activityHandler.Get)
		activities.PUT("/:id", activityHandler.Update)
		activities.DELETE("/:id", activityHandler.Delete)
		activities.PATCH("/:id/approve", middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty), activityHandler.Decide)
		activities.POST("/:id/comments", activityHandler.AddComment)
	}

	reports := api.Group("/reports", middleware.JWT(authSvc))
	{
		reports.POST("/portfolio/:studentId", reportHandler.GeneratePortfolio)
		reports.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty), reportHandler.Generate)
		reports.GET("", reportHandler.List)
		reports.GET("/analytics/department", middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty), analyticsHandler.Department)
		reports.GET("/:id", reportHandler.Get)
		reports.GET("/:id/download", reportHandler.DownloadLink)
		reports.DELETE("/:id", reportHandler.Delete)
		reports.POST("/:id/share", reportHandler.Share)
	}

	// The signed token authorizes the request, so this route stays outside
	// the JWT middleware.
	api.GET("/export/:token",
		middleware.Audit(userRepo, models.AuditActionReportDownload, "report"),
		reportHandler.Download)

	api.GET("/admin/metrics", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// runArtifactCleanup periodically deletes report artifacts older than the
// configured result TTL.
func runArtifactCleanup(ctx context.Context, reports *service.ReportService, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reports.CleanupArtifacts()
		}
	}
}
