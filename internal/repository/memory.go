package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"propchat/internal/model"
	"propchat/internal/observability"
)

// MemoryBookmarkStore keeps bookmarks in process memory
type MemoryBookmarkStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]time.Time
	now      func() time.Time
}

// NewMemoryBookmarkStore creates an empty in-memory store
func NewMemoryBookmarkStore() *MemoryBookmarkStore {
	return &MemoryBookmarkStore{
		sessions: make(map[string]map[string]time.Time),
		now:      time.Now,
	}
}

// Backend names this store in metrics
func (m *MemoryBookmarkStore) Backend() string { return "memory" }

func (m *MemoryBookmarkStore) Save(_ context.Context, propertyID, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved, ok := m.sessions[sessionID]
	if !ok {
		saved = make(map[string]time.Time)
		m.sessions[sessionID] = saved
	}
	if _, dup := saved[propertyID]; dup {
		observability.ObserveBookmark(m.Backend(), "duplicate")
		return false, nil
	}
	saved[propertyID] = m.now()
	observability.ObserveBookmark(m.Backend(), "save")
	return true, nil
}

func (m *MemoryBookmarkStore) Exists(_ context.Context, propertyID, sessionID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[sessionID][propertyID]
	return ok, nil
}

func (m *MemoryBookmarkStore) Delete(_ context.Context, propertyID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := m.sessions[sessionID]
	if _, ok := saved[propertyID]; !ok {
		return model.ErrBookmarkNotFound
	}
	delete(saved, propertyID)
	if len(saved) == 0 {
		delete(m.sessions, sessionID)
	}
	observability.ObserveBookmark(m.Backend(), "delete")
	return nil
}

func (m *MemoryBookmarkStore) ListBySession(_ context.Context, sessionID string) ([]model.Bookmark, error) {
	m.mu.RLock()
	bookmarks := make([]model.Bookmark, 0, len(m.sessions[sessionID]))
	for id, at := range m.sessions[sessionID] {
		bookmarks = append(bookmarks, model.Bookmark{PropertyID: id, SessionID: sessionID, SavedAt: at})
	}
	m.mu.RUnlock()

	sort.Slice(bookmarks, func(i, j int) bool {
		if bookmarks[i].SavedAt.Equal(bookmarks[j].SavedAt) {
			return bookmarks[i].PropertyID < bookmarks[j].PropertyID
		}
		return bookmarks[i].SavedAt.Before(bookmarks[j].SavedAt)
	})
	observability.ObserveBookmark(m.Backend(), "list")
	return bookmarks, nil
}

// MemorySearchLog keeps the most recent searches in a bounded buffer
type MemorySearchLog struct {
	mu       sync.Mutex
	capacity int
	entries  []memorySearch
}

type memorySearch struct {
	entry    model.SearchLogEntry
	property string
	action   string
}

// NewMemorySearchLog creates a log holding at most capacity entries
func NewMemorySearchLog(capacity int) *MemorySearchLog {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemorySearchLog{capacity: capacity}
}

func (m *MemorySearchLog) LogSearch(_ context.Context, entry model.SearchLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) == m.capacity {
		m.entries = append(m.entries[:0], m.entries[1:]...)
	}
	m.entries = append(m.entries, memorySearch{entry: entry})
	return nil
}

func (m *MemorySearchLog) LogFeedback(_ context.Context, searchID, propertyID, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].entry.SearchID == searchID {
			m.entries[i].property = propertyID
			m.entries[i].action = action
			return nil
		}
	}
	return model.ErrSearchNotFound
}

func (m *MemorySearchLog) RecentSearches(_ context.Context, limit int) ([]model.SearchLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]model.SearchLogEntry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i].entry)
	}
	return out, nil
}

// Feedback returns the action recorded for a search, if any
func (m *MemorySearchLog) Feedback(searchID string) (propertyID, action string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.entry.SearchID == searchID {
			return e.property, e.action, e.action != ""
		}
	}
	return "", "", false
}

var (
	_ BookmarkStore = (*MemoryBookmarkStore)(nil)
	_ SearchLogger  = (*MemorySearchLog)(nil)
)
