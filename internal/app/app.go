package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"go-token-auth/internal/config"
	"go-token-auth/internal/database"
	"go-token-auth/internal/handler"
	"go-token-auth/internal/metrics"
	"go-token-auth/internal/middleware"
	"go-token-auth/internal/rbac"
	"go-token-auth/internal/repository"
	"go-token-auth/internal/router"
	"go-token-auth/internal/service"
	"go-token-auth/internal/token"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			a.cleanup()
		}
	}()

	codec, err := token.NewCodec(cfg.JWTKey, token.WithPrefix(cfg.JWTPrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}

	m := metrics.New()
	health := map[string]handler.Pinger{}

	var db *database.DB
	if cfg.DatabaseURL != "" {
		slog.Info("connecting to PostgreSQL")
		db, err = database.New(ctx, database.Options{
			URL:              cfg.DatabaseURL,
			MaxConns:         cfg.DBMaxConns,
			MinConns:         cfg.DBMinConns,
			StatementTimeout: cfg.DBStatementTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.cleanupFuncs = append(a.cleanupFuncs, db.Close)

		if err := db.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		health["database"] = db
	}

	var users repository.UserStore
	if db != nil {
		users = repository.NewUserRepository(db.Pool)
	} else {
		slog.Warn("DATABASE_URL not set; users are kept in memory and lost on restart")
		users = repository.NewMemoryUserRepository()
	}

	tokens, err := a.refreshStore(ctx, cfg, db, health)
	if err != nil {
		return nil, err
	}
	slog.Info("refresh token store ready", "backend", cfg.RefreshStore, "rotation", cfg.RefreshRotation)

	authService, err := service.NewAuthService(users, tokens, codec, cfg.JWTAccessTTL, cfg.JWTRefreshTTL,
		service.WithHasher(service.NewBcryptHasher(cfg.BcryptCost)),
		service.WithRefreshRotation(cfg.RefreshRotation),
		service.WithMetrics(m),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}

	if cfg.AdminUsername != "" {
		if err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return nil, fmt.Errorf("failed to seed admin account: %w", err)
		}
	}

	authMiddleware := middleware.NewAuthMiddleware(codec, cfg.JWTHeader, rbac.DefaultPolicy(), rbac.DefaultHierarchy(), m)

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:   handler.NewAuthHandler(authService),
		Probe:  handler.NewProbeHandler(),
		Health: handler.NewHealthHandler(health),
	}, m)

	purgeCtx, purgeCancel := context.WithCancel(context.Background())
	a.cleanupFuncs = append(a.cleanupFuncs, purgeCancel)
	go service.StartRefreshPurge(purgeCtx, tokens, cfg.RefreshPurgeInterval)

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	ok = true
	return a, nil
}

func (a *App) refreshStore(ctx context.Context, cfg *config.Config, db *database.DB, health map[string]handler.Pinger) (repository.RefreshTokenStore, error) {
	switch cfg.RefreshStore {
	case config.RefreshStorePostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres refresh store requires DATABASE_URL")
		}
		return repository.NewTokenRepository(db.Pool), nil

	case config.RefreshStoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		a.cleanupFuncs = append(a.cleanupFuncs, func() { _ = client.Close() })

		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		store := repository.NewRedisTokenRepository(client, cfg.RedisKeyPrefix)
		health["redis"] = store
		return store, nil

	default:
		return repository.NewMemoryTokenRepository(nil), nil
	}
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.cleanup()

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

// cleanup releases resources in reverse acquisition order.
func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}

// Handler exposes the routed handler for in-process servers.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Close releases every resource New acquired without starting the server.
func (a *App) Close() {
	a.cleanup()
}
