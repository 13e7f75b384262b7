package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// CORS allows the configured token header alongside the standard ones.
func CORS(origins []string, tokenHeader string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	allowed := []string{"Authorization", "Content-Type", "X-Request-ID"}
	if tokenHeader != "" && !strings.EqualFold(tokenHeader, "Authorization") {
		allowed = append(allowed, tokenHeader)
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   allowed,
		ExposedHeaders:   []string{"X-Request-ID"},
		MaxAge:           3600,
		AllowCredentials: false,
	})

	return handler.Handler
}
