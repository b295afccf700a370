package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/suteetoe/taskhub/internal/audit"
	"github.com/suteetoe/taskhub/internal/handler"
	"github.com/suteetoe/taskhub/internal/middleware"
	"github.com/suteetoe/taskhub/internal/quota"
	"github.com/suteetoe/taskhub/internal/service"
	"github.com/suteetoe/taskhub/internal/store"
	"github.com/suteetoe/taskhub/pkg/config"
	"github.com/suteetoe/taskhub/pkg/database"
	"github.com/suteetoe/taskhub/pkg/jwtutil"
	"github.com/suteetoe/taskhub/pkg/logger"
	"github.com/suteetoe/taskhub/pkg/password"
	"github.com/suteetoe/taskhub/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger.InitLogger(cfg)
	log := logger.GetLogger()
	defer log.Sync() //nolint:errcheck
	log.Info("Starting taskhub...", cfg.LogConfig()...)

	db, err := database.Open(database.DBConfig{
		DSN:             cfg.DB.GetDSN(),
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		LogLevel:        cfg.DB.GormLogLevel(),
	})
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database connection established")

	cache, closeCache := openCache(cfg, log)
	defer closeCache()

	prometheus.SetInfo(cfg.Metrics.Version)

	gormStore := store.NewGormStore(db)
	st := store.NewCachedStore(gormStore, cache, cfg.Redis.TTL, log)
	recorder := audit.NewRecorder(gormStore, log, cfg.Audit.WriteTimeout)
	hasher := password.NewBcrypt(cfg.Security.BcryptCost)
	tokens := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})
	checker := quota.NewChecker(st)

	authService := service.NewAuthService(st, hasher, tokens, recorder, log)
	if cfg.SuperAdmin.Email != "" && cfg.SuperAdmin.Password != "" {
		created, err := authService.EnsureSuperAdmin(context.Background(), cfg.SuperAdmin.Email, cfg.SuperAdmin.Password, cfg.SuperAdmin.FullName)
		if err != nil {
			log.Fatal("Failed to seed super admin", zap.Error(err))
		}
		if !created {
			log.Info("Super admin already present", zap.String("email", cfg.SuperAdmin.Email))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// X-Forwarded-For only counts when the peer is a loopback or private-network proxy
	ipExtractor := echo.ExtractIPFromXFFHeader()

	loginLimiter := middleware.NewRateLimiter(cfg.Security.LoginRateLimit, cfg.Security.LoginRateBurst, 10*time.Minute).
		WithIPExtractor(ipExtractor)
	go loginLimiter.Run(ctx, time.Minute)

	e := echo.New()
	e.HideBanner = true
	e.IPExtractor = ipExtractor

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(middleware.OriginMiddleware)
	e.Use(prometheus.MetricsMiddleware())

	handler.RegisterRoutes(e, handler.Handlers{
		Health:   handler.NewHealthHandler(func(ctx context.Context) error { return database.Ping(ctx, db) }),
		Auth:     handler.NewAuthHandler(authService),
		Tenants:  handler.NewTenantHandler(service.NewTenantService(st, recorder, log)),
		Users:    handler.NewUserHandler(service.NewUserService(st, hasher, checker, recorder, log)),
		Projects: handler.NewProjectHandler(service.NewProjectService(st, checker, recorder, log)),
		Tasks:    handler.NewTaskHandler(service.NewTaskService(st, recorder, log)),
	}, tokens, loginLimiter.Middleware())

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Received shutdown signal")
	case err := <-errCh:
		log.Error("Server error", zap.Error(err))
	}

	shutdown(cfg.Server.ShutdownTimeout, e, recorder, db, log)
}

// openCache picks Redis when configured and the process-local cache otherwise
func openCache(cfg *config.Config, log *zap.Logger) (store.Cache, func()) {
	if cfg.Redis.Addr == "" {
		c := store.NewInMemoryCache(1000)
		log.Info("Using in-memory tenant cache")
		return c, c.Close
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := store.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "taskhub:")
	if err != nil {
		log.Fatal("Failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	log.Info("Using redis tenant cache", zap.String("addr", cfg.Redis.Addr))
	return c, func() {
		if err := c.Close(); err != nil {
			log.Warn("Failed to close redis client", zap.Error(err))
		}
	}
}

// shutdown stops accepting requests, drains audit writes, then closes the database
func shutdown(timeout time.Duration, e *echo.Echo, recorder *audit.Recorder, db *gorm.DB, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Error("Failed to shutdown HTTP server", zap.Error(err))
	}
	if err := recorder.Close(ctx); err != nil {
		log.Warn("Audit writes still pending at shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}
	log.Info("Shutdown complete")
}
