// Package reqctx carries per-request values (client IP, authenticated
// principal) through context.Context instead of ambient globals.
package reqctx

import (
	"context"
	"sync"

	"go-token-auth/internal/model"
)

type contextKey string

const (
	clientIPKey  contextKey = "client_ip"
	principalKey contextKey = "principal"
	requestIDKey contextKey = "request_id"
	authTraceKey contextKey = "auth_trace"
)

// UnknownIP is reported when no client address was attached.
const UnknownIP = "unknown"

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

func ClientIP(ctx context.Context) string {
	ip, ok := ctx.Value(clientIPKey).(string)
	if !ok || ip == "" {
		return UnknownIP
	}
	return ip
}

func WithPrincipal(ctx context.Context, principal *model.Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// PrincipalFrom returns the authenticated caller, or false for anonymous
// requests.
func PrincipalFrom(ctx context.Context) (*model.Principal, bool) {
	principal, ok := ctx.Value(principalKey).(*model.Principal)
	return principal, ok && principal != nil
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// AuthTrace is filled in by the auth middleware and read back by the request
// logger, which installs it before authentication runs. Methods are safe on
// a nil trace and from the timeout handler's goroutine.
type AuthTrace struct {
	mu          sync.Mutex
	userIdx     int64
	tokenResult string
	decision    string
	required    string
}

func WithAuthTrace(ctx context.Context) (context.Context, *AuthTrace) {
	trace := &AuthTrace{}
	return context.WithValue(ctx, authTraceKey, trace), trace
}

func AuthTraceFrom(ctx context.Context) *AuthTrace {
	trace, _ := ctx.Value(authTraceKey).(*AuthTrace)
	return trace
}

// TokenChecked records the outcome of validating the presented access token
// and, when it was valid, whose it was.
func (t *AuthTrace) TokenChecked(result string, userIdx int64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.tokenResult = result
	t.userIdx = userIdx
	t.mu.Unlock()
}

func (t *AuthTrace) Decided(decision string, required string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.decision = decision
	t.required = required
	t.mu.Unlock()
}

// Attrs renders the trace as slog key/value pairs, omitting unset fields.
func (t *AuthTrace) Attrs() []any {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	var attrs []any
	if t.userIdx != 0 {
		attrs = append(attrs, "user_idx", t.userIdx)
	}
	if t.tokenResult != "" {
		attrs = append(attrs, "token_check", t.tokenResult)
	}
	if t.decision != "" {
		attrs = append(attrs, "authz", t.decision, "access", t.required)
	}
	return attrs
}
