package service

import (
	"context"
	"log/slog"
	"time"

	"go-token-auth/internal/repository"
)

// StartRefreshPurge removes expired refresh records every interval until ctx
// is cancelled. A non-positive interval disables the purge.
func StartRefreshPurge(ctx context.Context, store repository.RefreshTokenStore, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purgeRefreshTokens(ctx, store)
		}
	}
}

func purgeRefreshTokens(ctx context.Context, store repository.RefreshTokenStore) {
	removed, err := store.CleanExpired(ctx)
	if err != nil {
		slog.Warn("refresh token purge failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("purged expired refresh tokens", "count", removed)
	}
}
