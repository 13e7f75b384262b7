package repository

import (
	"context"
	"time"

	"go-token-auth/internal/model"
)

// RefreshTokenStore keeps at most one refresh token per user. Replace is
// last-writer-wins and atomic per user id in every implementation.
type RefreshTokenStore interface {
	Replace(ctx context.Context, userIdx int64, token string, expiresAt time.Time) error
	// ReplaceIf swaps the record to token only while it still holds
	// expected. It reports false, with no error, when the record is missing
	// or another writer got there first.
	ReplaceIf(ctx context.Context, userIdx int64, expected string, token string, expiresAt time.Time) (bool, error)
	// FindByUserID returns model.ErrTokenNotFound when the user has no record.
	// Expired records are returned as-is; callers decide what expiry means.
	FindByUserID(ctx context.Context, userIdx int64) (model.RefreshTokenRecord, error)
	Delete(ctx context.Context, userIdx int64) error
	CleanExpired(ctx context.Context) (int64, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	// Create assigns the identity and timestamps and returns the stored user.
	// A taken username yields model.ErrUserAlreadyExists.
	Create(ctx context.Context, u model.User) (model.User, error)
}
