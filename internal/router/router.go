package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-token-auth/internal/config"
	"go-token-auth/internal/handler"
	"go-token-auth/internal/metrics"
	"go-token-auth/internal/middleware"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	Probe  *handler.ProbeHandler
	Health *handler.HealthHandler
}

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	handlers Handlers,
	m *metrics.Metrics,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.ClientIP)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins, cfg.JWTHeader))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", handlers.Health.Health)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))
		api.Use(authMiddleware.Authenticate)
		api.Use(authMiddleware.Authorize)

		api.Post("/register", handlers.Auth.Register)
		api.Post("/login", handlers.Auth.Login)
		api.Post("/refresh-token", handlers.Auth.Refresh)
		api.Post("/logout", handlers.Auth.Logout)
		api.Get("/me", handlers.Auth.Me)

		api.Get("/test", handlers.Probe.Test)
		api.Route("/path", func(path chi.Router) {
			path.Get("/admin", handlers.Probe.Admin)
			path.Get("/manager", handlers.Probe.Manager)
			path.Get("/user", handlers.Probe.User)
		})
	})

	return r
}
