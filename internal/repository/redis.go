package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"propchat/internal/model"
	"propchat/internal/observability"
)

const bookmarkKeyPrefix = "propchat:saved:"

// RedisBookmarkStore keeps one sorted set per session, scored by save time
type RedisBookmarkStore struct {
	c *redis.Client
}

// NewRedisBookmarkStore connects to Redis
func NewRedisBookmarkStore(addr, pass string, db int) *RedisBookmarkStore {
	return &RedisBookmarkStore{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

// Ping checks the connection
func (r *RedisBookmarkStore) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

// Close closes the client
func (r *RedisBookmarkStore) Close() error {
	return r.c.Close()
}

// Backend names this store in metrics
func (r *RedisBookmarkStore) Backend() string { return "redis" }

func bookmarkKey(sessionID string) string {
	return bookmarkKeyPrefix + sessionID
}

// Save adds the property to the session's set unless already present
func (r *RedisBookmarkStore) Save(ctx context.Context, propertyID, sessionID string) (bool, error) {
	added, err := r.c.ZAddNX(ctx, bookmarkKey(sessionID), redis.Z{
		Score:  float64(time.Now().UnixMilli()),
		Member: propertyID,
	}).Result()
	if err != nil {
		return false, fmt.Errorf("failed to save property: %w", err)
	}

	if added == 0 {
		observability.ObserveBookmark(r.Backend(), "duplicate")
		return false, nil
	}
	observability.ObserveBookmark(r.Backend(), "save")
	return true, nil
}

// Exists reports whether the bookmark is present
func (r *RedisBookmarkStore) Exists(ctx context.Context, propertyID, sessionID string) (bool, error) {
	err := r.c.ZScore(ctx, bookmarkKey(sessionID), propertyID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check saved property: %w", err)
	}
	return true, nil
}

// Delete removes a bookmark
func (r *RedisBookmarkStore) Delete(ctx context.Context, propertyID, sessionID string) error {
	removed, err := r.c.ZRem(ctx, bookmarkKey(sessionID), propertyID).Result()
	if err != nil {
		return fmt.Errorf("failed to delete saved property: %w", err)
	}
	if removed == 0 {
		return model.ErrBookmarkNotFound
	}
	observability.ObserveBookmark(r.Backend(), "delete")
	return nil
}

// ListBySession returns a session's bookmarks, oldest first
func (r *RedisBookmarkStore) ListBySession(ctx context.Context, sessionID string) ([]model.Bookmark, error) {
	members, err := r.c.ZRangeWithScores(ctx, bookmarkKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list saved properties: %w", err)
	}

	bookmarks := make([]model.Bookmark, 0, len(members))
	for _, z := range members {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		bookmarks = append(bookmarks, model.Bookmark{
			PropertyID: id,
			SessionID:  sessionID,
			SavedAt:    time.UnixMilli(int64(z.Score)).UTC(),
		})
	}
	observability.ObserveBookmark(r.Backend(), "list")
	return bookmarks, nil
}

var _ BookmarkStore = (*RedisBookmarkStore)(nil)
