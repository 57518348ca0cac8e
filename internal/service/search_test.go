package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"propchat/internal/model"
	"propchat/internal/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type searchFixture struct {
	client    *fakeAIClient
	catalog   *staticCatalog
	bookmarks *repository.MemoryBookmarkStore
	searchLog *repository.MemorySearchLog
	svc       *SearchService
}

func newSearchFixture(client *fakeAIClient) *searchFixture {
	f := &searchFixture{
		client:    client,
		catalog:   &staticCatalog{records: sampleCatalog()},
		bookmarks: repository.NewMemoryBookmarkStore(),
		searchLog: repository.NewMemorySearchLog(10),
	}
	cfg := testLLMConfig()
	f.svc = NewSearchService(
		f.catalog,
		NewIntentExtractor(client, cfg),
		NewResponseComposer(client, cfg),
		f.bookmarks,
		f.searchLog,
		client,
	)
	return f
}

func TestSearchService_Search(t *testing.T) {
	f := newSearchFixture(newFakeAIClient(
		`{"location":"austin","bedrooms":2,"maxPrice":null,"amenities":["pool"]}`,
		"I found two lovely homes in Austin!",
	))
	f.client.embedding = []float32{0.5, 0.25}

	result, err := f.svc.Search(context.Background(), "  2 bedroom place in Austin with a pool  ")
	require.NoError(t, err)
	f.svc.Wait()

	assert.Equal(t, "I found two lovely homes in Austin!", result.Reply)
	assert.Equal(t, []string{"1", "p-4"}, ids(result.Properties))
	assert.Equal(t, "austin", result.Filters.Location)
	assert.Equal(t, intPtr(2), result.Filters.Bedrooms)
	assert.Contains(t, result.MatchedReasons["1"], "Has Swimming Pool")
	_, err = uuid.Parse(result.SearchID)
	assert.NoError(t, err)

	assert.Contains(t, f.client.request(0).Messages[0].Content, `"2 bedroom place in Austin with a pool"`)
	assert.Contains(t, f.client.request(1).Messages[0].Content, "Results found: 2")

	logged, err := f.searchLog.RecentSearches(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, result.SearchID, logged[0].SearchID)
	assert.Equal(t, []string{"1", "p-4"}, logged[0].PropertyIDs)
	assert.Equal(t, []float32{0.5, 0.25}, logged[0].QueryEmbedding)
}

func TestSearchService_InvalidInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		f := newSearchFixture(newFakeAIClient())

		result, err := f.svc.Search(context.Background(), text)
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, model.ErrInvalidInput))
		assert.Equal(t, 0, f.client.calls(), "model must not be called")
		assert.Equal(t, 0, f.catalog.loads)
	}
}

func TestSearchService_ModelDownStillAnswers(t *testing.T) {
	f := newSearchFixture(&fakeAIClient{enabled: true, err: model.ErrModelUnavailable})

	result, err := f.svc.Search(context.Background(), "anything")
	require.NoError(t, err)
	f.svc.Wait()

	assert.Equal(t, model.UnconstrainedFilter(), result.Filters)
	assert.Len(t, result.Properties, 4)
	assert.Equal(t, FallbackReply(4), result.Reply)
}

func TestSearchService_DataSourceFailure(t *testing.T) {
	f := newSearchFixture(newFakeAIClient(`{"location":""}`))
	f.catalog.err = fmt.Errorf("%w: read property_images.json: no such file", model.ErrDataSourceUnavailable)

	result, err := f.svc.Search(context.Background(), "homes")
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, model.ErrDataSourceUnavailable))
	assert.Equal(t, 1, f.client.calls(), "reply composition must not run")
}

func TestSearchService_SearchStream(t *testing.T) {
	f := newSearchFixture(newFakeAIClient(`{"bedrooms":3}`, "One ranch fits"))

	var events []string
	var reply string
	result, err := f.svc.SearchStream(context.Background(), "3 bedrooms", func(event string, data any) error {
		events = append(events, event)
		if event == "reply" {
			reply += data.(map[string]any)["content"].(string)
		}
		return nil
	})
	require.NoError(t, err)
	f.svc.Wait()

	assert.Equal(t, []string{"parsing", "intent", "searching"}, events[:3])
	assert.Equal(t, "reply", events[len(events)-1])
	assert.Equal(t, "One ranch fits", reply)
	assert.Equal(t, reply, result.Reply)
	assert.Equal(t, []string{"2"}, ids(result.Properties))
}

func TestSearchService_SearchStreamCallbackError(t *testing.T) {
	f := newSearchFixture(newFakeAIClient())
	stop := errors.New("client disconnected")

	_, err := f.svc.SearchStream(context.Background(), "x", func(string, any) error { return stop })
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 0, f.client.calls())
}

func TestSearchService_Bookmarks(t *testing.T) {
	f := newSearchFixture(newFakeAIClient())
	ctx := context.Background()

	created, err := f.svc.SaveProperty(ctx, "p-4", "")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.SaveProperty(ctx, "p-4", model.DefaultSessionID)
	require.NoError(t, err)
	assert.False(t, created, "duplicate save")

	_, err = f.svc.SaveProperty(ctx, "1", "")
	require.NoError(t, err)
	_, err = f.svc.SaveProperty(ctx, "404", "")
	require.NoError(t, err)
	_, err = f.svc.SaveProperty(ctx, "2", "other")
	require.NoError(t, err)

	saved, err := f.svc.SavedProperties(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "p-4"}, ids(saved), "catalog order, unknown ids skipped")

	require.NoError(t, f.svc.RemoveProperty(ctx, "1", ""))
	assert.ErrorIs(t, f.svc.RemoveProperty(ctx, "1", ""), model.ErrBookmarkNotFound)

	_, err = f.svc.SaveProperty(ctx, "  ", "")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	empty, err := f.svc.SavedProperties(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSearchService_Feedback(t *testing.T) {
	f := newSearchFixture(newFakeAIClient(`{}`, "ok"))
	ctx := context.Background()

	result, err := f.svc.Search(ctx, "homes")
	require.NoError(t, err)
	f.svc.Wait()

	require.NoError(t, f.svc.LogFeedback(ctx, result.SearchID, "2", "click"))
	propertyID, action, ok := f.searchLog.Feedback(result.SearchID)
	assert.True(t, ok)
	assert.Equal(t, "2", propertyID)
	assert.Equal(t, "click", action)

	assert.ErrorIs(t, f.svc.LogFeedback(ctx, "unknown", "2", "click"), model.ErrSearchNotFound)
}

// recordingSearchLog remembers what reached the store
type recordingSearchLog struct {
	feedbackCalls []string
	limits        []int
}

func (r *recordingSearchLog) LogSearch(context.Context, model.SearchLogEntry) error { return nil }

func (r *recordingSearchLog) LogFeedback(_ context.Context, searchID, _, _ string) error {
	r.feedbackCalls = append(r.feedbackCalls, searchID)
	return nil
}

func (r *recordingSearchLog) RecentSearches(_ context.Context, limit int) ([]model.SearchLogEntry, error) {
	r.limits = append(r.limits, limit)
	return []model.SearchLogEntry{}, nil
}

func TestSearchService_FeedbackRejectsMalformedSearchID(t *testing.T) {
	searchLog := &recordingSearchLog{}
	cfg := testLLMConfig()
	client := newFakeAIClient()
	svc := NewSearchService(
		&staticCatalog{records: sampleCatalog()},
		NewIntentExtractor(client, cfg),
		NewResponseComposer(client, cfg),
		repository.NewMemoryBookmarkStore(),
		searchLog,
		nil,
	)
	ctx := context.Background()

	for _, id := range []string{"abc", "", "123", "not-a-uuid-at-all"} {
		assert.ErrorIs(t, svc.LogFeedback(ctx, id, "2", "click"), model.ErrSearchNotFound, id)
	}
	assert.Empty(t, searchLog.feedbackCalls)

	valid := uuid.NewString()
	require.NoError(t, svc.LogFeedback(ctx, valid, "2", "click"))
	assert.Equal(t, []string{valid}, searchLog.feedbackCalls)
}

func TestSearchService_RecentSearchesLimit(t *testing.T) {
	searchLog := &recordingSearchLog{}
	cfg := testLLMConfig()
	client := newFakeAIClient()
	svc := NewSearchService(
		&staticCatalog{records: sampleCatalog()},
		NewIntentExtractor(client, cfg),
		NewResponseComposer(client, cfg),
		repository.NewMemoryBookmarkStore(),
		searchLog,
		nil,
	)
	ctx := context.Background()

	for _, limit := range []int{0, -5, 7, 1_000_000} {
		_, err := svc.RecentSearches(ctx, limit)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{defaultRecentSearches, defaultRecentSearches, 7, maxRecentSearches}, searchLog.limits)
}
