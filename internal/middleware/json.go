package middleware

import (
	"encoding/json"
	"net/http"

	"go-token-auth/internal/model"
)

// errorResponse is the failure envelope the middleware chain answers with,
// the same shape the handlers produce.
func errorResponse(code string, message string) model.APIResponse {
	return model.APIResponse{
		Success: false,
		Message: message,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	}
}

func writeJSONError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse(code, message))
}
