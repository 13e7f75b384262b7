package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-token-auth/internal/model"
)

func newRedisRepo(t *testing.T) (*RedisTokenRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisTokenRepository(client, "test"), mr
}

func TestRedisTokenRepositoryContract(t *testing.T) {
	repo, _ := newRedisRepo(t)
	runRefreshStoreContract(t, repo, 1, 2)
}

func TestRedisTokenRepositoryKeyAndTTL(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Replace(ctx, 7, "tok", now.Add(time.Hour)))

	assert.True(t, mr.Exists("test:refresh:7"))
	assert.Equal(t, time.Hour, mr.TTL("test:refresh:7"))

	mr.FastForward(time.Hour + time.Second)

	_, err := repo.FindByUserID(ctx, 7)
	require.ErrorIs(t, err, model.ErrTokenNotFound)
}

func TestRedisTokenRepositoryExpiredRecordStillReplaces(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, 3, "old", time.Now().Add(time.Hour)))
	require.NoError(t, repo.Replace(ctx, 3, "new", time.Now().Add(-time.Minute)))

	rec, err := repo.FindByUserID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "new", rec.Token)
	assert.True(t, rec.Expired(time.Now()))
	assert.Equal(t, time.Second, mr.TTL("test:refresh:3"))
}

func TestRedisTokenRepositoryCorruptValue(t *testing.T) {
	repo, mr := newRedisRepo(t)
	require.NoError(t, mr.Set("test:refresh:9", "{not json"))

	_, err := repo.FindByUserID(context.Background(), 9)
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrTokenNotFound)
}

func TestRedisTokenRepositoryHealth(t *testing.T) {
	repo, mr := newRedisRepo(t)
	require.NoError(t, repo.Health(context.Background()))

	mr.SetError("LOADING")
	require.Error(t, repo.Health(context.Background()))
}
