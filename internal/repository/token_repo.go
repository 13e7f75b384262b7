package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-token-auth/internal/model"
)

type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) Replace(ctx context.Context, userIdx int64, token string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (user_id, token, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE
		 SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at`,
		userIdx, token, expiresAt.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("replace refresh token: %w", err)
	}
	return nil
}

func (r *TokenRepository) ReplaceIf(ctx context.Context, userIdx int64, expected string, token string, expiresAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE refresh_tokens
		 SET token = $3, expires_at = $4, created_at = $5
		 WHERE user_id = $1 AND token = $2`,
		userIdx, expected, token, expiresAt.UTC(), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TokenRepository) FindByUserID(ctx context.Context, userIdx int64) (model.RefreshTokenRecord, error) {
	rec := model.RefreshTokenRecord{UserIdx: userIdx}
	err := r.pool.QueryRow(ctx,
		`SELECT token, expires_at, created_at FROM refresh_tokens WHERE user_id = $1`, userIdx).
		Scan(&rec.Token, &rec.ExpiresAt, &rec.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.RefreshTokenRecord{}, model.ErrTokenNotFound
	}
	if err != nil {
		return model.RefreshTokenRecord{}, fmt.Errorf("find refresh token: %w", err)
	}
	return rec, nil
}

func (r *TokenRepository) Delete(ctx context.Context, userIdx int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userIdx)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (r *TokenRepository) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
