package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"propchat/internal/model"
	"propchat/internal/repository"
)

const (
	searchLogTimeout = 10 * time.Second

	defaultRecentSearches = 20
	maxRecentSearches     = 1000
)

// SearchService runs the query pipeline: extract, load, filter, compose
type SearchService struct {
	catalog   CatalogSource
	intent    *IntentExtractor
	composer  *ResponseComposer
	bookmarks repository.BookmarkStore
	searchLog repository.SearchLogger
	embedder  AIClient

	wg sync.WaitGroup
}

// NewSearchService creates a new search service. searchLog and embedder may be nil.
func NewSearchService(
	catalog CatalogSource,
	intent *IntentExtractor,
	composer *ResponseComposer,
	bookmarks repository.BookmarkStore,
	searchLog repository.SearchLogger,
	embedder AIClient,
) *SearchService {
	return &SearchService{
		catalog:   catalog,
		intent:    intent,
		composer:  composer,
		bookmarks: bookmarks,
		searchLog: searchLog,
		embedder:  embedder,
	}
}

// SearchEventCallback is called for streaming search events
type SearchEventCallback func(event string, data any) error

// Search answers one natural-language query. Only invalid input and catalog
// failures are returned as errors; model failures degrade to fallbacks.
func (s *SearchService) Search(ctx context.Context, text string) (*model.ChatResult, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return nil, fmt.Errorf("%w: message is required", model.ErrInvalidInput)
	}
	startTime := time.Now()

	filters := s.intent.Extract(ctx, query)

	properties, err := s.find(ctx, filters)
	if err != nil {
		return nil, err
	}

	reply := s.composer.Compose(ctx, filters, len(properties))

	result := s.buildResult(reply, properties, filters, startTime)
	s.logSearch(query, result)

	log.Info().
		Str("search_id", result.SearchID).
		Int("results", len(properties)).
		Int64("took_ms", result.Took).
		Msg("search completed")
	return result, nil
}

// SearchStream runs the same pipeline, reporting each stage through callback
// and streaming the reply text as "reply" events.
func (s *SearchService) SearchStream(ctx context.Context, text string, callback SearchEventCallback) (*model.ChatResult, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return nil, fmt.Errorf("%w: message is required", model.ErrInvalidInput)
	}
	startTime := time.Now()

	if err := callback("parsing", map[string]any{
		"status": "Understanding your request...",
	}); err != nil {
		return nil, err
	}

	filters := s.intent.Extract(ctx, query)
	if err := callback("intent", filters); err != nil {
		return nil, err
	}

	if err := callback("searching", map[string]any{
		"status": "Searching properties...",
	}); err != nil {
		return nil, err
	}

	properties, err := s.find(ctx, filters)
	if err != nil {
		return nil, err
	}

	reply, err := s.composer.ComposeStream(ctx, filters, len(properties), func(delta string) error {
		return callback("reply", map[string]any{"content": delta})
	})
	if err != nil {
		return nil, err
	}

	result := s.buildResult(reply, properties, filters, startTime)
	s.logSearch(query, result)
	return result, nil
}

// SavedProperties returns the catalog records bookmarked in a session,
// in catalog order. Bookmarks for ids missing from the catalog are skipped.
func (s *SearchService) SavedProperties(ctx context.Context, sessionID string) ([]model.PropertyRecord, error) {
	bookmarks, err := s.bookmarks.ListBySession(ctx, sessionOrDefault(sessionID))
	if err != nil {
		return nil, err
	}
	if len(bookmarks) == 0 {
		return []model.PropertyRecord{}, nil
	}

	catalog, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(bookmarks))
	for i, b := range bookmarks {
		ids[i] = b.PropertyID
	}
	return FilterByIDs(catalog, ids), nil
}

// SaveProperty bookmarks a property; created is false if it was already saved
func (s *SearchService) SaveProperty(ctx context.Context, propertyID, sessionID string) (bool, error) {
	if strings.TrimSpace(propertyID) == "" {
		return false, fmt.Errorf("%w: property ID is required", model.ErrInvalidInput)
	}
	return s.bookmarks.Save(ctx, propertyID, sessionOrDefault(sessionID))
}

// RemoveProperty deletes a bookmark
func (s *SearchService) RemoveProperty(ctx context.Context, propertyID, sessionID string) error {
	if strings.TrimSpace(propertyID) == "" {
		return fmt.Errorf("%w: property ID is required", model.ErrInvalidInput)
	}
	return s.bookmarks.Delete(ctx, propertyID, sessionOrDefault(sessionID))
}

// Catalog returns the freshly merged catalog
func (s *SearchService) Catalog(ctx context.Context) ([]model.PropertyRecord, error) {
	return s.catalog.Load(ctx)
}

// LogFeedback logs user feedback/action on a search result
func (s *SearchService) LogFeedback(ctx context.Context, searchID, propertyID, action string) error {
	// search ids are always uuids; anything else was never logged
	if s.searchLog == nil || uuid.Validate(searchID) != nil {
		return model.ErrSearchNotFound
	}
	return s.searchLog.LogFeedback(ctx, searchID, propertyID, action)
}

// RecentSearches lists logged searches, newest first. A non-positive limit
// means the default page size.
func (s *SearchService) RecentSearches(ctx context.Context, limit int) ([]model.SearchLogEntry, error) {
	if s.searchLog == nil {
		return []model.SearchLogEntry{}, nil
	}
	switch {
	case limit <= 0:
		limit = defaultRecentSearches
	case limit > maxRecentSearches:
		limit = maxRecentSearches
	}
	return s.searchLog.RecentSearches(ctx, limit)
}

// Wait blocks until background search logging has finished
func (s *SearchService) Wait() {
	s.wg.Wait()
}

func (s *SearchService) find(ctx context.Context, filters model.SearchFilter) ([]model.PropertyRecord, error) {
	catalog, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(catalog, filters), nil
}

func (s *SearchService) buildResult(reply string, properties []model.PropertyRecord, filters model.SearchFilter, startTime time.Time) *model.ChatResult {
	return &model.ChatResult{
		Reply:          reply,
		Properties:     properties,
		Filters:        filters,
		MatchedReasons: ExplainAll(properties, filters),
		SearchID:       uuid.NewString(),
		Took:           time.Since(startTime).Milliseconds(),
	}
}

// logSearch records the search in the background; failures are only logged
func (s *SearchService) logSearch(query string, result *model.ChatResult) {
	if s.searchLog == nil {
		return
	}

	ids := make([]string, len(result.Properties))
	for i, p := range result.Properties {
		ids[i] = p.ID.String()
	}
	entry := model.SearchLogEntry{
		SearchID:       result.SearchID,
		Query:          query,
		Filters:        result.Filters,
		ResultCount:    len(result.Properties),
		PropertyIDs:    ids,
		ResponseTimeMs: int(result.Took),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), searchLogTimeout)
		defer cancel()

		if s.embedder != nil && s.embedder.IsEnabled() {
			embeddings, err := s.embedder.CreateEmbeddings(ctx, []string{query})
			if err != nil {
				log.Debug().Err(err).Msg("query embedding skipped")
			} else if len(embeddings) == 1 {
				entry.QueryEmbedding = embeddings[0]
			}
		}

		if err := s.searchLog.LogSearch(ctx, entry); err != nil {
			log.Warn().Err(err).Str("search_id", entry.SearchID).Msg("failed to log search")
		}
	}()
}

func sessionOrDefault(sessionID string) string {
	if s := strings.TrimSpace(sessionID); s != "" {
		return s
	}
	return model.DefaultSessionID
}
