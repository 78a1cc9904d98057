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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/horizon-etudes/backoffice-api/api/swagger"
	"github.com/horizon-etudes/backoffice-api/internal/handler"
	"github.com/horizon-etudes/backoffice-api/internal/middleware"
	"github.com/horizon-etudes/backoffice-api/internal/models"
	"github.com/horizon-etudes/backoffice-api/internal/repository"
	"github.com/horizon-etudes/backoffice-api/internal/scheduler"
	"github.com/horizon-etudes/backoffice-api/internal/service"
	"github.com/horizon-etudes/backoffice-api/migrations"
	"github.com/horizon-etudes/backoffice-api/pkg/cache"
	"github.com/horizon-etudes/backoffice-api/pkg/config"
	"github.com/horizon-etudes/backoffice-api/pkg/database"
	"github.com/horizon-etudes/backoffice-api/pkg/holidays"
	"github.com/horizon-etudes/backoffice-api/pkg/logger"
	"github.com/horizon-etudes/backoffice-api/pkg/mail"
	corsmiddleware "github.com/horizon-etudes/backoffice-api/pkg/middleware/cors"
	reqidmiddleware "github.com/horizon-etudes/backoffice-api/pkg/middleware/requestid"
	"github.com/horizon-etudes/backoffice-api/pkg/storage"
)

// @title Horizon Études Back Office API
// @version 1.0.0
// @description Appointment booking, admission procedures and contact desk for the agency back office.
// @BasePath /api/v1
// @schemes http https
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, migrations.FS, logr); err != nil {
		logr.Fatal("database migration failed", zap.Error(err))
	}

	metrics := service.NewMetricsService()

	// Redis is optional: without it the availability and dashboard caches
	// simply pass through to Postgres.
	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Stats.CacheTTL, logr, true)
	}

	var sender mail.Sender
	if cfg.Mail.Enabled && cfg.Mail.SendGridKey != "" {
		sgSender, err := mail.NewSendGridSender(mail.SendGridConfig{
			APIKey:      cfg.Mail.SendGridKey,
			FromAddress: cfg.Mail.FromAddress,
			FromName:    cfg.Mail.FromName,
		}, logr)
		if err != nil {
			logr.Fatal("sendgrid setup failed", zap.Error(err))
		}
		sender = sgSender
	} else {
		sender = mail.NewLogSender(logr)
	}

	notifier := service.NewNotificationService(sender, cfg.Mail, logr)
	notifier.Start(ctx)
	defer notifier.Stop()

	userRepo := repository.NewUserRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	procedureRepo := repository.NewProcedureRepository(db)
	contactRepo := repository.NewContactRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	holidaySrc := holidays.NewCombined(logr,
		holidays.NewAPISource(cfg.Holidays.APIURL, cfg.Holidays.APITimeout),
		holidays.NewStaticSource(cfg.Holidays.Closures),
	)

	calendarSvc := service.NewCalendarService(appointmentRepo, holidaySrc, cacheSvc, cfg.Booking, logr)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userSvc := service.NewUserService(userRepo, logr)

	procedureSvc := service.NewProcedureService(procedureRepo, appointmentRepo, notifier, nil, logr)
	appointmentSvc := service.NewAppointmentService(
		appointmentRepo, userRepo, calendarSvc, notifier, procedureSvc,
		cfg.Booking, cfg.Jobs, nil, logr,
	)
	contactSvc := service.NewContactService(contactRepo, notifier, nil, logr)

	var exportFiles *storage.LocalStorage
	var exportSigner *storage.SignedURLSigner
	if cfg.Exports.Enabled {
		exportFiles, err = storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("export storage setup failed", zap.Error(err))
		}
		exportSigner = storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	}
	statsSvc := service.NewStatsService(statsRepo, cacheSvc, metrics, exportFiles, exportSigner, cfg.Stats, cfg.Exports, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc, userSvc)
	userHandler := handler.NewUserHandler(userSvc)
	availabilityHandler := handler.NewAvailabilityHandler(calendarSvc)
	appointmentHandler := handler.NewAppointmentHandler(appointmentSvc)
	procedureHandler := handler.NewProcedureHandler(procedureSvc)
	contactHandler := handler.NewContactHandler(contactSvc)
	statsHandler := handler.NewStatsHandler(statsSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

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

	registerRoutes(r, cfg, authSvc,
		authHandler, userHandler, availabilityHandler,
		appointmentHandler, procedureHandler, contactHandler, statsHandler)

	var sched *scheduler.Scheduler
	if cfg.Jobs.Enabled {
		var cleaner scheduler.ExportCleaner
		if cfg.Exports.Enabled {
			cleaner = statsSvc
		}
		sched = scheduler.New(appointmentSvc, cleaner, metrics, cfg.Jobs, calendarSvc.Location(), logr)
		sched.Start(ctx)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	case err := <-errCh:
		logr.Error("server failed", zap.Error(err))
	}

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func registerRoutes(
	r *gin.Engine,
	cfg *config.Config,
	authSvc *service.AuthService,
	auth *handler.AuthHandler,
	users *handler.UserHandler,
	availability *handler.AvailabilityHandler,
	appointments *handler.AppointmentHandler,
	procedures *handler.ProcedureHandler,
	contact *handler.ContactHandler,
	stats *handler.StatsHandler,
) {
	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/register", auth.Register)
	api.POST("/auth/login", auth.Login)
	api.POST("/auth/refresh", auth.Refresh)

	api.GET("/availability/slots", availability.Slots)
	api.GET("/availability/dates", availability.Dates)

	api.POST("/contact", contact.Submit)

	// Export downloads authenticate through the signed token in the URL.
	api.GET("/stats/exports/download", stats.Download)

	authed := api.Group("", middleware.JWT(authSvc))
	{
		authed.GET("/auth/me", auth.Me)
		authed.POST("/auth/logout", auth.Logout)
		authed.POST("/auth/change-password", auth.ChangePassword)

		authed.POST("/appointments", appointments.Create)
		authed.GET("/appointments", appointments.List)
		authed.GET("/appointments/:id", appointments.Get)
		authed.PATCH("/appointments/:id", appointments.Update)
		authed.POST("/appointments/:id/cancel", appointments.Cancel)

		authed.GET("/procedures", procedures.List)
		authed.GET("/procedures/:id", procedures.Get)
		authed.POST("/procedures/:id/cancel", procedures.Cancel)
	}

	admin := api.Group("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/users", users.List)
		admin.GET("/users/:id", users.Get)
		admin.PATCH("/users/:id/active", users.SetActive)

		admin.PATCH("/appointments/:id/status", appointments.UpdateStatus)
		admin.POST("/appointments/:id/confirm", appointments.Confirm)

		admin.POST("/procedures", procedures.Create)
		admin.PATCH("/procedures/:id/steps/:step", procedures.UpdateStep)
		admin.POST("/procedures/:id/reject", procedures.Reject)
		admin.DELETE("/procedures/:id", procedures.Delete)

		admin.GET("/contact", contact.List)
		admin.GET("/contact/:id", contact.Get)
		admin.PATCH("/contact/:id/status", contact.UpdateStatus)

		admin.GET("/stats/dashboard", stats.Dashboard)
		admin.GET("/stats/system", stats.System)
		admin.POST("/stats/exports", stats.Export)
	}
}
