package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"go-token-auth/internal/model"
)

// RedisTokenRepository stores each user's record as one JSON value under
// "<prefix>:refresh:<userIdx>". Redis key expiry removes stale records, so
// CleanExpired has nothing to do.
type RedisTokenRepository struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisTokenRepository(client *redis.Client, prefix string) *RedisTokenRepository {
	return &RedisTokenRepository{client: client, prefix: prefix, now: time.Now}
}

func (r *RedisTokenRepository) key(userIdx int64) string {
	return fmt.Sprintf("%s:refresh:%d", r.prefix, userIdx)
}

func (r *RedisTokenRepository) Replace(ctx context.Context, userIdx int64, token string, expiresAt time.Time) error {
	payload, ttl, err := r.encode(userIdx, token, expiresAt)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.key(userIdx), payload, ttl).Err(); err != nil {
		return fmt.Errorf("replace refresh token: %w", err)
	}
	return nil
}

// ReplaceIf runs the compare and the write inside WATCH/MULTI, so a Replace
// landing in between aborts the transaction.
func (r *RedisTokenRepository) ReplaceIf(ctx context.Context, userIdx int64, expected string, token string, expiresAt time.Time) (bool, error) {
	payload, ttl, err := r.encode(userIdx, token, expiresAt)
	if err != nil {
		return false, err
	}

	key := r.key(userIdx)
	swapped := false
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := decodeRecord(tx.Get(ctx, key).Bytes())
		if errors.Is(err, model.ErrTokenNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if current.Token != expected {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		swapped = true
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	return swapped, nil
}

func (r *RedisTokenRepository) encode(userIdx int64, token string, expiresAt time.Time) ([]byte, time.Duration, error) {
	now := r.now()
	payload, err := json.Marshal(model.RefreshTokenRecord{
		UserIdx:   userIdx,
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now.UTC(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("encode refresh token: %w", err)
	}

	// A record that is already expired is still written so the previous
	// token stops matching; it is dropped shortly after.
	ttl := expiresAt.Sub(now)
	if ttl < time.Second {
		ttl = time.Second
	}
	return payload, ttl, nil
}

func (r *RedisTokenRepository) FindByUserID(ctx context.Context, userIdx int64) (model.RefreshTokenRecord, error) {
	rec, err := decodeRecord(r.client.Get(ctx, r.key(userIdx)).Bytes())
	if err != nil && !errors.Is(err, model.ErrTokenNotFound) {
		return model.RefreshTokenRecord{}, fmt.Errorf("find refresh token: %w", err)
	}
	return rec, err
}

func decodeRecord(raw []byte, err error) (model.RefreshTokenRecord, error) {
	if errors.Is(err, redis.Nil) {
		return model.RefreshTokenRecord{}, model.ErrTokenNotFound
	}
	if err != nil {
		return model.RefreshTokenRecord{}, err
	}

	var rec model.RefreshTokenRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return model.RefreshTokenRecord{}, fmt.Errorf("decode refresh token: %w", err)
	}
	return rec, nil
}

func (r *RedisTokenRepository) Delete(ctx context.Context, userIdx int64) error {
	if err := r.client.Del(ctx, r.key(userIdx)).Err(); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (r *RedisTokenRepository) CleanExpired(context.Context) (int64, error) {
	return 0, nil
}

// Health pings the Redis server.
func (r *RedisTokenRepository) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
