package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propchat/internal/config"
)

func testConfig(backend string) *config.Config {
	return &config.Config{
		Data: config.DataConfig{
			Dir:                 "../../data_sources",
			BasicsFile:          "property_basics.json",
			CharacteristicsFile: "property_characteristics.json",
			ImagesFile:          "property_images.json",
		},
		LLM: config.LLMConfig{
			APIBase:        "http://127.0.0.1:1",
			ChatModel:      "test-model",
			Timeout:        1,
			MaxConcurrency: 1,
			RatePerSec:     10,
		},
		Bookmarks: config.BookmarkConfig{Backend: backend},
	}
}

func TestNew_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig("memory"))
	require.NoError(t, err)

	result, err := a.Search.Search(ctx, "anything in Austin")
	require.NoError(t, err)
	assert.Len(t, result.Properties, 8)

	created, err := a.Search.SaveProperty(ctx, "3", "")
	require.NoError(t, err)
	assert.True(t, created)

	saved, err := a.Search.SavedProperties(ctx, "")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "3", saved[0].ID.String())

	require.NoError(t, a.Close())

	recent, err := a.Search.RecentSearches(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, result.SearchID, recent[0].SearchID)
}

func TestNew_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig("redis")
	cfg.Bookmarks.RedisAddr = mr.Addr()

	ctx := context.Background()
	a, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, err = a.Search.SaveProperty(ctx, "1", "s")
	require.NoError(t, err)
	assert.True(t, mr.Exists("propchat:saved:s"))
}

func TestNew_RedisUnavailable(t *testing.T) {
	cfg := testConfig("redis")
	cfg.Bookmarks.RedisAddr = "127.0.0.1:1"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}
