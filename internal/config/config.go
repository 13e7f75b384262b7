package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"go-token-auth/internal/token"
)

const (
	RefreshStorePostgres = "postgres"
	RefreshStoreRedis    = "redis"
	RefreshStoreMemory   = "memory"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	DBStatementTimeout time.Duration

	RefreshStore         string
	RedisURL             string
	RedisKeyPrefix       string
	RefreshRotation      bool
	RefreshPurgeInterval time.Duration

	JWTSecret     string
	JWTKey        []byte
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration
	JWTHeader     string
	JWTPrefix     string

	BcryptCost    int
	AdminUsername string
	AdminPassword string

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment (and a .env file when
// present). Missing signing settings are fatal.
func Load() (*Config, error) {
	_ = godotenv.Load()

	accessTTL, err := getRequiredMillis("JWT_ACCESS_TTL_MS")
	if err != nil {
		return nil, err
	}
	refreshTTL, err := getRequiredMillis("JWT_REFRESH_TTL_MS")
	if err != nil {
		return nil, err
	}

	databaseURL := getEnv("DATABASE_URL", "")
	defaultStore := RefreshStoreMemory
	if databaseURL != "" {
		defaultStore = RefreshStorePostgres
	}

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseURL:             databaseURL,
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 1)),
		DBStatementTimeout:      getDuration("DB_STATEMENT_TIMEOUT", 5*time.Second),
		RefreshStore:            strings.ToLower(getEnv("REFRESH_STORE", defaultStore)),
		RedisURL:                getEnv("REDIS_URL", ""),
		RedisKeyPrefix:          getEnv("REDIS_KEY_PREFIX", "auth"),
		RefreshRotation:         getBool("REFRESH_ROTATION", false),
		RefreshPurgeInterval:    getDuration("REFRESH_PURGE_INTERVAL", 0),
		JWTSecret:               strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTAccessTTL:            accessTTL,
		JWTRefreshTTL:           refreshTTL,
		JWTHeader:               strings.TrimSpace(os.Getenv("JWT_HEADER")),
		JWTPrefix:               os.Getenv("JWT_TOKEN_PREFIX"),
		BcryptCost:              getInt("BCRYPT_COST", 12),
		AdminUsername:           getEnv("ADMIN_USERNAME", ""),
		AdminPassword:           strings.TrimSpace(os.Getenv("ADMIN_PASSWORD")),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 10),
		LogLevel:                strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:               strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration and decodes the signing key into JWTKey.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	key, err := token.DecodeSecret(c.JWTSecret)
	if err != nil {
		return fmt.Errorf("JWT_SECRET: %w", err)
	}
	if len(key) < token.MinKeyLength {
		return fmt.Errorf("JWT_SECRET must decode to at least %d bytes", token.MinKeyLength)
	}
	c.JWTKey = key

	if c.JWTAccessTTL < token.MinTTL {
		return fmt.Errorf("JWT_ACCESS_TTL_MS must be at least %d", token.MinTTL.Milliseconds())
	}

	if c.JWTRefreshTTL < token.MinTTL {
		return fmt.Errorf("JWT_REFRESH_TTL_MS must be at least %d", token.MinTTL.Milliseconds())
	}

	if c.JWTRefreshTTL <= c.JWTAccessTTL {
		return fmt.Errorf("JWT_REFRESH_TTL_MS must be longer than JWT_ACCESS_TTL_MS")
	}

	if c.JWTHeader == "" {
		return fmt.Errorf("JWT_HEADER is required")
	}

	if strings.TrimSpace(c.JWTPrefix) == "" {
		return fmt.Errorf("JWT_TOKEN_PREFIX is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	switch c.RefreshStore {
	case RefreshStorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("REFRESH_STORE=postgres requires DATABASE_URL")
		}
	case RefreshStoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REFRESH_STORE=redis requires REDIS_URL")
		}
	case RefreshStoreMemory:
	default:
		return fmt.Errorf("REFRESH_STORE must be one of postgres, redis, memory")
	}

	if c.RefreshPurgeInterval < 0 {
		return fmt.Errorf("REFRESH_PURGE_INTERVAL cannot be negative")
	}

	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}

	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

// getRequiredMillis reads a mandatory millisecond count. Unlike the optional
// getters it does not fall back on bad input.
func getRequiredMillis(key string) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, fmt.Errorf("%s is required", key)
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer number of milliseconds: %w", key, err)
	}

	if ms > math.MaxInt64/int64(time.Millisecond) {
		return 0, fmt.Errorf("%s is too large: %d", key, ms)
	}

	return time.Duration(ms) * time.Millisecond, nil
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
