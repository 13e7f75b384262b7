package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationName = "go-token-auth"

// Options sizes the pool backing the user and refresh token tables.
type Options struct {
	URL      string
	MaxConns int32
	MinConns int32
	// StatementTimeout caps each query server-side; zero leaves the server
	// default in place.
	StatementTimeout time.Duration
}

type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, opts Options) (*DB, error) {
	cfg, err := poolConfig(opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database connected",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database,
		"max_conns", cfg.MaxConns,
		"min_conns", cfg.MinConns,
	)
	return &DB{Pool: pool}, nil
}

func poolConfig(opts Options) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if cfg.MinConns > cfg.MaxConns {
		return nil, fmt.Errorf("min connections %d exceed max %d", cfg.MinConns, cfg.MaxConns)
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	params := cfg.ConnConfig.RuntimeParams
	if params["application_name"] == "" {
		params["application_name"] = applicationName
	}
	if opts.StatementTimeout > 0 {
		params["statement_timeout"] = fmt.Sprint(opts.StatementTimeout.Milliseconds())
	}

	return cfg, nil
}

func (db *DB) Close() {
	if db.Pool != nil {
		stat := db.Pool.Stat()
		slog.Info("closing database pool",
			"acquired", stat.AcquiredConns(),
			"total", stat.TotalConns(),
		)
		db.Pool.Close()
	}
}

var errSchemaMissing = errors.New("refresh_tokens table is missing")

// Health reports whether the server is reachable and the auth schema has
// been applied.
func (db *DB) Health(ctx context.Context) error {
	var present bool
	err := db.Pool.QueryRow(ctx, `SELECT to_regclass('refresh_tokens') IS NOT NULL`).Scan(&present)
	if err != nil {
		return fmt.Errorf("query database: %w", err)
	}
	if !present {
		return errSchemaMissing
	}
	return nil
}
