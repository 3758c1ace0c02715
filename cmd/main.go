package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"agencydesk/internal/caching"
	"agencydesk/internal/config"
	"agencydesk/internal/handlers"
	"agencydesk/internal/jobs/background"
	"agencydesk/internal/middleware"
	"agencydesk/internal/repositories"
	"agencydesk/internal/services"
	"agencydesk/pkg/database"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h).With("service", "agencydesk", "version", version)
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	now := time.Now

	userRepo := repositories.NewUserRepo(pool)
	tenantRepo := repositories.NewTenantRepo(pool)
	sessionRepo := repositories.NewSessionRepo(pool, cfg.RefreshTokenTTL, now)
	bootstrapRepo := repositories.NewBootstrapRepo(pool)
	auditRepo := repositories.NewAuditLogRepo(pool, now)

	hasher, err := services.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	codec, err := services.NewTokenCodec(services.TokenCodecConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshSecret: cfg.RefreshTokenSecret,
		RefreshTTL:    cfg.RefreshTokenTTL,
	}, now)
	if err != nil {
		return err
	}

	cache := caching.NewNoopCache()
	limiter := caching.NewNoopLoginLimiter()
	var cachePinger handlers.Pinger
	if cfg.CacheEnabled() {
		redisClient := caching.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			// The cache is optional; requests keep working against postgres.
			logger.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "error", err)
		}
		cache = caching.NewRedisCache(redisClient, logger)
		limiter = caching.NewRedisLoginLimiter(redisClient, cfg.LoginMaxAttempts, cfg.LoginWindow, logger)
		cachePinger = redisPinger(redisClient)
	} else {
		logger.Info("cache disabled, REDIS_ADDR not set")
	}

	auditService := services.NewAuditLogService(auditRepo, cfg.AuditRetention, now, logger)
	bootstrapService := services.NewBootstrapService(bootstrapRepo, hasher, cfg.SystemTenantName, logger)
	tenantService := services.NewTenantService(tenantRepo, userRepo, cache, cfg.CacheTTL)
	userService := services.NewUserService(userRepo, bootstrapService, hasher)
	authService := services.NewAuthService(services.AuthDeps{
		Users:     userRepo,
		Sessions:  sessionRepo,
		Codec:     codec,
		Hasher:    hasher,
		Issuer:    services.NewSessionIssuer(sessionRepo, codec),
		Rotator:   services.NewRefreshRotator(sessionRepo, userRepo, codec, now, logger),
		Bootstrap: bootstrapService,
		Tenants:   tenantService,
		Limiter:   limiter,
		Now:       now,
		Logger:    logger,
	})

	if cfg.BootstrapEnabled() {
		created, err := bootstrapService.EnsureStartupAdmin(ctx, &services.SetupAdminRequest{
			Name:     cfg.BootstrapAdminName,
			Email:    cfg.BootstrapAdminEmail,
			Password: cfg.BootstrapAdminPassword,
		})
		if err != nil {
			return err
		}
		logger.Info("startup bootstrap finished", "admin_created", created)
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handlers.ErrorHandler(logger)

	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.AuditRequests(logger))
	e.Use(echoMiddleware.Recover())
	e.Pre(echoMiddleware.RemoveTrailingSlash())

	handlers.Routes{
		Auth:         handlers.NewAuthHandlers(authService),
		Bootstrap:    handlers.NewBootstrapHandlers(bootstrapService),
		Tenants:      handlers.NewTenantHandlers(tenantService),
		Users:        handlers.NewUserHandlers(userService),
		Health:       handlers.NewHealthHandlers(pool, cachePinger),
		AuditLogs:    handlers.NewAuditLogsHandlers(auditService),
		AuthService:  authService,
		AuditService: auditService,
		Gate:         services.NewTenantGate(tenantService),
	}.Register(e)

	js, err := background.NewJobScheduler(sessionRepo, auditService, cfg.SessionSweepInterval, now, logger)
	if err != nil {
		return err
	}
	js.Start()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			_ = js.Stop()
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := js.Stop(); err != nil {
		logger.Error("scheduler shutdown", "error", err)
	}
	logger.Info("server stopped")
	return nil
}

func redisPinger(client *redis.Client) handlers.Pinger {
	return handlers.PingFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}
