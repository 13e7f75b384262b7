package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"go-token-auth/internal/model"
)

// MemoryTokenRepository is the single-process refresh store.
type MemoryTokenRepository struct {
	mu      sync.RWMutex
	records map[int64]model.RefreshTokenRecord
	now     func() time.Time
}

func NewMemoryTokenRepository(now func() time.Time) *MemoryTokenRepository {
	if now == nil {
		now = time.Now
	}
	return &MemoryTokenRepository{records: map[int64]model.RefreshTokenRecord{}, now: now}
}

func (r *MemoryTokenRepository) Replace(_ context.Context, userIdx int64, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[userIdx] = model.RefreshTokenRecord{
		UserIdx:   userIdx,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: r.now(),
	}
	return nil
}

func (r *MemoryTokenRepository) ReplaceIf(_ context.Context, userIdx int64, expected string, token string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[userIdx]
	if !ok || rec.Token != expected {
		return false, nil
	}

	r.records[userIdx] = model.RefreshTokenRecord{
		UserIdx:   userIdx,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: r.now(),
	}
	return true, nil
}

func (r *MemoryTokenRepository) FindByUserID(_ context.Context, userIdx int64) (model.RefreshTokenRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[userIdx]
	if !ok {
		return model.RefreshTokenRecord{}, model.ErrTokenNotFound
	}
	return rec, nil
}

func (r *MemoryTokenRepository) Delete(_ context.Context, userIdx int64) error {
	r.mu.Lock()
	delete(r.records, userIdx)
	r.mu.Unlock()
	return nil
}

func (r *MemoryTokenRepository) CleanExpired(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var removed int64
	for id, rec := range r.records {
		if rec.Expired(now) {
			delete(r.records, id)
			removed++
		}
	}
	return removed, nil
}

// MemoryUserRepository backs users when no database is configured.
type MemoryUserRepository struct {
	mu         sync.RWMutex
	nextID     int64
	byID       map[int64]model.User
	byUsername map[string]int64
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:       map[int64]model.User{},
		byUsername: map[string]int64{},
	}
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id int64) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (r *MemoryUserRepository) FindByUsername(_ context.Context, username string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[usernameKey(username)]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryUserRepository) Create(_ context.Context, u model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := usernameKey(u.Username)
	if _, exists := r.byUsername[key]; exists {
		return model.User{}, model.ErrUserAlreadyExists
	}
	for _, existing := range r.byID {
		if existing.UserID == u.UserID {
			return model.User{}, model.ErrUserAlreadyExists
		}
	}

	r.nextID++
	now := time.Now().UTC()
	u.ID = r.nextID
	u.CreatedAt = now
	u.UpdatedAt = now

	r.byID[u.ID] = u
	r.byUsername[key] = u.ID
	return u, nil
}

func usernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
