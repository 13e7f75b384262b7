package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-token-auth/internal/model"
)

// runRefreshStoreContract exercises the behaviour every RefreshTokenStore
// must share. userIdx values must exist in the backing user table, if any.
func runRefreshStoreContract(t *testing.T, store RefreshTokenStore, userA, userB int64) {
	t.Helper()
	ctx := context.Background()
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	t.Run("missing record", func(t *testing.T) {
		_, err := store.FindByUserID(ctx, userA)
		require.ErrorIs(t, err, model.ErrTokenNotFound)
	})

	t.Run("replace is last writer wins", func(t *testing.T) {
		require.NoError(t, store.Replace(ctx, userA, "first", expires))
		require.NoError(t, store.Replace(ctx, userA, "second", expires.Add(time.Minute)))

		rec, err := store.FindByUserID(ctx, userA)
		require.NoError(t, err)
		assert.Equal(t, "second", rec.Token)
		assert.Equal(t, userA, rec.UserIdx)
		assert.True(t, rec.ExpiresAt.Equal(expires.Add(time.Minute)))
	})

	t.Run("records are per user", func(t *testing.T) {
		require.NoError(t, store.Replace(ctx, userB, "other", expires))

		rec, err := store.FindByUserID(ctx, userA)
		require.NoError(t, err)
		assert.Equal(t, "second", rec.Token)
	})

	t.Run("concurrent replace leaves one record", func(t *testing.T) {
		var wg sync.WaitGroup
		tokens := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8"}
		for _, tok := range tokens {
			wg.Add(1)
			go func(tok string) {
				defer wg.Done()
				assert.NoError(t, store.Replace(ctx, userA, tok, expires))
			}(tok)
		}
		wg.Wait()

		rec, err := store.FindByUserID(ctx, userA)
		require.NoError(t, err)
		assert.Contains(t, tokens, rec.Token)
	})

	t.Run("replace if swaps only the expected token", func(t *testing.T) {
		require.NoError(t, store.Replace(ctx, userA, "current", expires))

		ok, err := store.ReplaceIf(ctx, userA, "current", "swapped", expires.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.ReplaceIf(ctx, userA, "current", "late", expires)
		require.NoError(t, err)
		assert.False(t, ok)

		rec, err := store.FindByUserID(ctx, userA)
		require.NoError(t, err)
		assert.Equal(t, "swapped", rec.Token)
		assert.True(t, rec.ExpiresAt.Equal(expires.Add(time.Hour)))
	})

	t.Run("concurrent replace if has one winner", func(t *testing.T) {
		require.NoError(t, store.Replace(ctx, userA, "shared", expires))

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins []string
		)
		for _, tok := range []string{"r1", "r2", "r3", "r4", "r5", "r6"} {
			wg.Add(1)
			go func(tok string) {
				defer wg.Done()
				ok, err := store.ReplaceIf(ctx, userA, "shared", tok, expires)
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					wins = append(wins, tok)
					mu.Unlock()
				}
			}(tok)
		}
		wg.Wait()

		require.Len(t, wins, 1)
		rec, err := store.FindByUserID(ctx, userA)
		require.NoError(t, err)
		assert.Equal(t, wins[0], rec.Token)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, userA))
		require.NoError(t, store.Delete(ctx, userA))

		_, err := store.FindByUserID(ctx, userA)
		require.ErrorIs(t, err, model.ErrTokenNotFound)

		_, err = store.FindByUserID(ctx, userB)
		require.NoError(t, err)
	})

	t.Run("replace if on missing record", func(t *testing.T) {
		ok, err := store.ReplaceIf(ctx, userA, "", "ghost", expires)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = store.FindByUserID(ctx, userA)
		require.ErrorIs(t, err, model.ErrTokenNotFound)
	})
}
