package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propchat/internal/model"
)

func bookmarkIDs(bookmarks []model.Bookmark) []string {
	out := make([]string, len(bookmarks))
	for i, b := range bookmarks {
		out[i] = b.PropertyID
	}
	return out
}

func TestMemoryBookmarkStore_SaveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBookmarkStore()

	created, err := store.Save(ctx, "3", "s1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.Save(ctx, "3", "s1")
	require.NoError(t, err)
	assert.False(t, created)

	list, err := store.ListBySession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, bookmarkIDs(list))
}

func TestMemoryBookmarkStore_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBookmarkStore()

	_, err := store.Save(ctx, "1", "alice")
	require.NoError(t, err)
	_, err = store.Save(ctx, "2", "bob")
	require.NoError(t, err)

	ok, err := store.Exists(ctx, "1", "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Exists(ctx, "1", "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := store.ListBySession(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryBookmarkStore_ListOrdersBySaveTime(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBookmarkStore()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for _, id := range []string{"9", "2", "5"} {
		_, err := store.Save(ctx, id, "s")
		require.NoError(t, err)
	}

	list, err := store.ListBySession(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"9", "2", "5"}, bookmarkIDs(list))
	assert.Equal(t, base.Add(time.Second), list[0].SavedAt)
}

func TestMemoryBookmarkStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBookmarkStore()

	_, err := store.Save(ctx, "1", "s")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "1", "s"))
	require.ErrorIs(t, store.Delete(ctx, "1", "s"), model.ErrBookmarkNotFound)
	require.ErrorIs(t, store.Delete(ctx, "1", "other"), model.ErrBookmarkNotFound)

	ok, err := store.Exists(ctx, "1", "s")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryBookmarkStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBookmarkStore()

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			_, _ = store.Save(ctx, fmt.Sprint(i%5), "s")
		}(i)
	}
	for i := 0; i < 20; i++ {
		<-done
	}

	list, err := store.ListBySession(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, list, 5)
}

func TestMemorySearchLog(t *testing.T) {
	ctx := context.Background()
	log := NewMemorySearchLog(2)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, log.LogSearch(ctx, model.SearchLogEntry{SearchID: id, Query: "q-" + id}))
	}

	recent, err := log.RecentSearches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].SearchID)
	assert.Equal(t, "b", recent[1].SearchID)

	recent, err = log.RecentSearches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "c", recent[0].SearchID)

	// "a" was evicted
	require.ErrorIs(t, log.LogFeedback(ctx, "a", "1", "click"), model.ErrSearchNotFound)

	require.NoError(t, log.LogFeedback(ctx, "b", "7", "save"))
	prop, action, ok := log.Feedback("b")
	assert.True(t, ok)
	assert.Equal(t, "7", prop)
	assert.Equal(t, "save", action)

	_, _, ok = log.Feedback("c")
	assert.False(t, ok)
}
