package middleware

import (
	"encoding/json"
	"net/http"
	"time"
)

const defaultRequestTimeout = 30 * time.Second

// Timeout bounds the time a request may spend in the auth chain and its
// handler. An overrun answers 503 with the REQUEST_TIMEOUT envelope.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	body, _ := json.Marshal(errorResponse("REQUEST_TIMEOUT", "request timed out"))

	return func(next http.Handler) http.Handler {
		bounded := http.TimeoutHandler(next, timeout, string(body))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// TimeoutHandler writes its message without a content type.
			w.Header().Set("Content-Type", "application/json")
			bounded.ServeHTTP(w, r)
		})
	}
}
