//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"go-token-auth/internal/app"
	"go-token-auth/internal/config"
	"go-token-auth/internal/model"
)

const (
	adminUsername = "admin"
	adminPassword = "admin123"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "auth",
				"POSTGRES_PASSWORD": "auth",
				"POSTGRES_DB":       "auth",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://auth:auth@%s:%s/auth?sslmode=disable", host, port.Port())
}

// newServer boots the whole application against the given refresh store
// backend and returns an in-process HTTP server.
func newServer(t *testing.T, store string, rotation bool) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		ServerPort:       "0",
		RequestTimeout:   10 * time.Second,
		DatabaseURL:      startPostgres(t),
		DBMaxConns:       4,
		DBMinConns:       1,
		RefreshStore:     store,
		RedisKeyPrefix:   "it",
		RefreshRotation:  rotation,
		JWTSecret:        base64.StdEncoding.EncodeToString([]byte("integration-secret-0123456789abcdef")),
		JWTAccessTTL:     15 * time.Minute,
		JWTRefreshTTL:    24 * time.Hour,
		JWTHeader:        "Authorization",
		JWTPrefix:        "Bearer ",
		BcryptCost:       4,
		AdminUsername:    adminUsername,
		AdminPassword:    adminPassword,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
		LogLevel:         "info",
		LogFormat:        "text",
	}
	if store == config.RefreshStoreRedis {
		cfg.RedisURL = "redis://" + miniredis.RunT(t).Addr()
	}
	require.NoError(t, cfg.Validate())

	application, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(application.Close)

	server := httptest.NewServer(application.Handler())
	t.Cleanup(server.Close)
	return server
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, method string, url string, payload any, accessToken string) (int, envelope) {
	t.Helper()

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp.StatusCode, parsed
}

func login(t *testing.T, server *httptest.Server, username string, password string) model.TokenPair {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, server.URL+"/api/login",
		model.LoginRequest{Username: username, Password: password}, "")
	require.Equal(t, http.StatusOK, status)
	require.True(t, body.Success)

	var pair model.TokenPair
	require.NoError(t, json.Unmarshal(body.Data, &pair))
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	return pair
}
