package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"go-token-auth/internal/metrics"
	"go-token-auth/internal/model"
	"go-token-auth/internal/rbac"
	"go-token-auth/internal/reqctx"
	"go-token-auth/internal/token"
)

const reasonBadScheme = "bad_scheme"

type AuthMiddleware struct {
	codec     *token.Codec
	header    string
	policy    *rbac.Policy
	hierarchy *rbac.Hierarchy
	metrics   *metrics.Metrics
}

func NewAuthMiddleware(codec *token.Codec, header string, policy *rbac.Policy, hierarchy *rbac.Hierarchy, m *metrics.Metrics) *AuthMiddleware {
	if header == "" {
		header = "Authorization"
	}
	if policy == nil {
		policy = rbac.DefaultPolicy()
	}
	if hierarchy == nil {
		hierarchy = rbac.DefaultHierarchy()
	}

	return &AuthMiddleware{
		codec:     codec,
		header:    header,
		policy:    policy,
		hierarchy: hierarchy,
		metrics:   m,
	}
}

// Authenticate attaches a principal for requests that carry a valid access
// token. It never rejects: a missing or bad token leaves the request
// anonymous and Authorize decides what that means for the route.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.policy.IsPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		raw := strings.TrimSpace(r.Header.Get(m.header))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		trace := reqctx.AuthTraceFrom(r.Context())

		if !m.codec.HasScheme(raw) {
			m.metrics.TokenValidation(reasonBadScheme)
			trace.TokenChecked(reasonBadScheme, 0)
			slog.Debug("authorization header without expected scheme", "path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.codec.ValidateAs(raw, token.TypeAccess)
		m.metrics.TokenValidation(token.Reason(err))
		if err != nil {
			trace.TokenChecked(token.Reason(err), 0)
			m.logRejected(r, raw, err)
			next.ServeHTTP(w, r)
			return
		}
		trace.TokenChecked(token.Reason(nil), claims.UserIdx)

		principal := &model.Principal{
			UserIdx:     claims.UserIdx,
			UserID:      claims.UserID,
			UserName:    claims.UserName,
			Role:        claims.Role,
			Authorities: claims.Authorities(),
			IP:          claims.IP,
		}
		next.ServeHTTP(w, r.WithContext(reqctx.WithPrincipal(r.Context(), principal)))
	})
}

// Authorize enforces the route policy against the principal left by
// Authenticate.
func (m *AuthMiddleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access := m.policy.Match(r.URL.Path)
		principal, authenticated := reqctx.PrincipalFrom(r.Context())

		var authorities []string
		if authenticated {
			authorities = principal.Authorities
		}

		trace := reqctx.AuthTraceFrom(r.Context())

		switch access.Decide(m.hierarchy, authenticated, authorities) {
		case rbac.DenyUnauthenticated:
			m.metrics.Decision("unauthenticated")
			trace.Decided("unauthenticated", access.String())
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		case rbac.DenyForbidden:
			m.metrics.Decision("forbidden")
			trace.Decided("forbidden", access.String())
			writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
		default:
			m.metrics.Decision("allow")
			trace.Decided("allow", access.String())
			next.ServeHTTP(w, r)
		}
	})
}
