package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-token-auth/internal/metrics"
	"go-token-auth/internal/model"
	"go-token-auth/internal/rbac"
	"go-token-auth/internal/repository"
	"go-token-auth/internal/reqctx"
	"go-token-auth/internal/token"
	"go-token-auth/pkg/apierror"
)

const (
	maxUsernameLength = 50
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
)

type AuthService struct {
	users      repository.UserStore
	tokens     repository.RefreshTokenStore
	codec      *token.Codec
	hasher     PasswordHasher
	accessTTL  time.Duration
	refreshTTL time.Duration
	rotate     bool
	metrics    *metrics.Metrics
	dummyHash  string
}

type Option func(*AuthService)

// WithRefreshRotation makes Refresh mint and store a new refresh token
// instead of echoing the presented one.
func WithRefreshRotation(enabled bool) Option {
	return func(s *AuthService) {
		s.rotate = enabled
	}
}

func WithHasher(h PasswordHasher) Option {
	return func(s *AuthService) {
		if h != nil {
			s.hasher = h
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *AuthService) {
		s.metrics = m
	}
}

func NewAuthService(
	users repository.UserStore,
	tokens repository.RefreshTokenStore,
	codec *token.Codec,
	accessTTL time.Duration,
	refreshTTL time.Duration,
	opts ...Option,
) (*AuthService, error) {
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token ttls must be positive")
	}

	s := &AuthService{
		users:      users,
		tokens:     tokens,
		codec:      codec,
		hasher:     NewBcryptHasher(12),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Unknown usernames are compared against this hash so a miss costs the
	// same as a wrong password.
	dummy, err := s.hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	s.dummyHash = dummy

	return s, nil
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthUser, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	userID := strings.TrimSpace(req.UserID)

	if username == "" || req.Password == "" {
		return model.AuthUser{}, apierror.BadRequest("username and password are required", "")
	}
	if len(username) > maxUsernameLength {
		return model.AuthUser{}, apierror.BadRequest("username is too long", "")
	}
	if len(req.Password) > maxPasswordBytes {
		return model.AuthUser{}, apierror.BadRequest("password is too long", "")
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return model.AuthUser{}, apierror.BadRequest("invalid email address", "")
		}
	}
	if userID == "" {
		userID = uuid.NewString()
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.AuthUser{}, internalError(fmt.Errorf("hash password: %w", err))
	}

	user, err := s.users.Create(ctx, model.User{
		UserID:       userID,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         rbac.DefaultRole.String(),
	})
	if errors.Is(err, model.ErrUserAlreadyExists) {
		return model.AuthUser{}, apierror.Wrap(err, "ALREADY_EXISTS", "user already exists", http.StatusConflict)
	}
	if err != nil {
		return model.AuthUser{}, internalError(err)
	}

	slog.Info("user registered", "user_idx", user.ID, "username", user.Username)
	return user.Public(), nil
}

// Login verifies credentials and replaces the user's refresh record with a
// freshly minted one. Failed attempts never touch the store.
func (s *AuthService) Login(ctx context.Context, username string, password string) (model.TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		s.metrics.Login(metrics.OutcomeInvalid)
		return model.TokenPair{}, apierror.BadRequest("username and password are required", "")
	}

	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, model.ErrUserNotFound) {
		_ = s.hasher.Compare(s.dummyHash, password)
		s.metrics.Login(metrics.OutcomeInvalid)
		return model.TokenPair{}, invalidCredentials()
	}
	if err != nil {
		s.metrics.Login(metrics.OutcomeError)
		return model.TokenPair{}, internalError(err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.metrics.Login(metrics.OutcomeInvalid)
		return model.TokenPair{}, invalidCredentials()
	}

	now := s.codec.Now()
	claims := s.claimsFor(ctx, user)

	accessToken, err := s.codec.Issue(claims, s.accessTTL)
	if err != nil {
		s.metrics.Login(metrics.OutcomeError)
		return model.TokenPair{}, internalError(err)
	}
	refreshToken, err := s.issueRefresh(ctx, claims, now)
	if err != nil {
		s.metrics.Login(metrics.OutcomeError)
		return model.TokenPair{}, internalError(err)
	}

	s.metrics.Login(metrics.OutcomeSuccess)
	slog.Info("user logged in", "user_idx", user.ID, "ip", claims.IP)
	return s.pair(accessToken, refreshToken), nil
}

// Refresh exchanges a refresh token for a new access token. The token must
// verify, carry the refresh type, and equal the stored record for its user,
// and that record must not have expired.
func (s *AuthService) Refresh(ctx context.Context, raw string) (model.TokenPair, error) {
	presented := s.codec.StripPrefix(raw)

	claims, err := s.codec.ValidateAs(presented, token.TypeRefresh)
	if err != nil {
		s.metrics.Refresh(metrics.OutcomeInvalid)
		slog.Debug("refresh token rejected", "reason", err.Error())
		return model.TokenPair{}, apierror.Unauthorized(
			fmt.Errorf("%w: %w", model.ErrRefreshTokenInvalid, err), "invalid refresh token")
	}

	now := s.codec.Now()
	rec, err := s.tokens.FindByUserID(ctx, claims.UserIdx)
	if err != nil && !errors.Is(err, model.ErrTokenNotFound) {
		s.metrics.Refresh(metrics.OutcomeError)
		return model.TokenPair{}, internalError(err)
	}
	if err != nil ||
		subtle.ConstantTimeCompare([]byte(rec.Token), []byte(presented)) != 1 ||
		rec.Expired(now) {
		s.metrics.Refresh(metrics.OutcomeMismatch)
		return model.TokenPair{}, refreshMismatch(model.ErrRefreshTokenMismatch)
	}

	user, err := s.users.FindByID(ctx, claims.UserIdx)
	if errors.Is(err, model.ErrUserNotFound) {
		s.metrics.Refresh(metrics.OutcomeMismatch)
		slog.Info("refresh for deleted user", "user_idx", claims.UserIdx)
		return model.TokenPair{}, refreshMismatch(err)
	}
	if err != nil {
		s.metrics.Refresh(metrics.OutcomeError)
		return model.TokenPair{}, internalError(err)
	}

	next := s.claimsFor(ctx, user)
	accessToken, err := s.codec.Issue(next, s.accessTTL)
	if err != nil {
		s.metrics.Refresh(metrics.OutcomeError)
		return model.TokenPair{}, internalError(err)
	}

	refreshToken := presented
	if s.rotate {
		refreshToken, err = s.rotateRefresh(ctx, next, presented, now)
		if errors.Is(err, model.ErrRefreshTokenMismatch) {
			s.metrics.Refresh(metrics.OutcomeMismatch)
			slog.Info("refresh lost to a newer session", "user_idx", claims.UserIdx)
			return model.TokenPair{}, refreshMismatch(err)
		}
		if err != nil {
			s.metrics.Refresh(metrics.OutcomeError)
			return model.TokenPair{}, internalError(err)
		}
	}

	s.metrics.Refresh(metrics.OutcomeSuccess)
	return s.pair(accessToken, refreshToken), nil
}

// Logout drops the user's refresh record. Access tokens already issued stay
// valid until they expire.
func (s *AuthService) Logout(ctx context.Context, userIdx int64) error {
	if err := s.tokens.Delete(ctx, userIdx); err != nil {
		return internalError(err)
	}
	slog.Info("user logged out", "user_idx", userIdx)
	return nil
}

func (s *AuthService) GetUserByID(ctx context.Context, userIdx int64) (model.AuthUser, error) {
	user, err := s.users.FindByID(ctx, userIdx)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.AuthUser{}, apierror.Wrap(err, "NOT_FOUND", "user not found", http.StatusNotFound)
	}
	if err != nil {
		return model.AuthUser{}, internalError(err)
	}
	return user.Public(), nil
}

// EnsureAdmin creates an ROLE_ADMIN account with the given credentials
// unless the username is already taken.
func (s *AuthService) EnsureAdmin(ctx context.Context, username string, password string) error {
	_, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return fmt.Errorf("look up admin: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	user, err := s.users.Create(ctx, model.User{
		UserID:       uuid.NewString(),
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		Role:         rbac.RoleAdmin.String(),
	})
	if err != nil && !errors.Is(err, model.ErrUserAlreadyExists) {
		return fmt.Errorf("create admin: %w", err)
	}
	if err == nil {
		slog.Info("admin account created", "user_idx", user.ID, "username", user.Username)
	}
	return nil
}

func (s *AuthService) claimsFor(ctx context.Context, user model.User) token.Claims {
	return token.Claims{
		UserIdx:  user.ID,
		UserID:   user.UserID,
		UserName: user.Username,
		Role:     user.Role,
		IP:       reqctx.ClientIP(ctx),
	}
}

func (s *AuthService) issueRefresh(ctx context.Context, claims token.Claims, now time.Time) (string, error) {
	claims.Type = token.TypeRefresh
	refreshToken, err := s.codec.Issue(claims, s.refreshTTL)
	if err != nil {
		return "", err
	}

	if err := s.tokens.Replace(ctx, claims.UserIdx, refreshToken, now.Add(s.refreshTTL)); err != nil {
		return "", err
	}
	return refreshToken, nil
}

// rotateRefresh stores a fresh refresh token only if the record still holds
// the presented one; a login that replaced it in the meantime wins.
func (s *AuthService) rotateRefresh(ctx context.Context, claims token.Claims, presented string, now time.Time) (string, error) {
	claims.Type = token.TypeRefresh
	refreshToken, err := s.codec.Issue(claims, s.refreshTTL)
	if err != nil {
		return "", err
	}

	swapped, err := s.tokens.ReplaceIf(ctx, claims.UserIdx, presented, refreshToken, now.Add(s.refreshTTL))
	if err != nil {
		return "", err
	}
	if !swapped {
		return "", model.ErrRefreshTokenMismatch
	}
	return refreshToken, nil
}

func (s *AuthService) pair(accessToken string, refreshToken string) model.TokenPair {
	return model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    strings.TrimSpace(s.codec.Prefix()),
		ExpiresIn:    int64(s.accessTTL / time.Millisecond),
	}
}

func invalidCredentials() *apierror.APIError {
	return apierror.Unauthorized(model.ErrCredentialInvalid, "invalid credentials")
}

// refreshMismatch is the single answer for every stored-state refresh
// failure, so callers cannot tell which check rejected them.
func refreshMismatch(cause error) *apierror.APIError {
	return apierror.Unauthorized(cause, model.ErrRefreshTokenMismatch.Error())
}

func internalError(err error) *apierror.APIError {
	return apierror.Wrap(err, "INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
}
