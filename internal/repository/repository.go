package repository

import (
	"context"

	"propchat/internal/model"
)

// BookmarkStore persists saved (propertyId, sessionId) pairs
type BookmarkStore interface {
	// Save creates the bookmark if absent; created is false for a duplicate
	Save(ctx context.Context, propertyID, sessionID string) (created bool, err error)
	Exists(ctx context.Context, propertyID, sessionID string) (bool, error)
	// Delete returns model.ErrBookmarkNotFound when nothing was removed
	Delete(ctx context.Context, propertyID, sessionID string) error
	// ListBySession returns bookmarks oldest first
	ListBySession(ctx context.Context, sessionID string) ([]model.Bookmark, error)
	Backend() string
}

// SearchLogger records completed searches and feedback on their results
type SearchLogger interface {
	LogSearch(ctx context.Context, entry model.SearchLogEntry) error
	// LogFeedback returns model.ErrSearchNotFound for an unknown search id
	LogFeedback(ctx context.Context, searchID, propertyID, action string) error
	// RecentSearches returns the latest entries, newest first
	RecentSearches(ctx context.Context, limit int) ([]model.SearchLogEntry, error)
}
