package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"propchat/internal/model"
	"propchat/internal/observability"
)

const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS saved_properties (
	property_id TEXT        NOT NULL,
	session_id  TEXT        NOT NULL DEFAULT 'default-session',
	saved_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS saved_properties_property_session_idx
	ON saved_properties (property_id, session_id);

CREATE INDEX IF NOT EXISTS saved_properties_session_idx
	ON saved_properties (session_id, saved_at);

CREATE TABLE IF NOT EXISTS search_logs (
	search_id             UUID        PRIMARY KEY,
	query                 TEXT        NOT NULL,
	filters               JSONB       NOT NULL,
	result_count          INTEGER     NOT NULL,
	returned_property_ids TEXT[]      NOT NULL DEFAULT '{}',
	response_time_ms      INTEGER     NOT NULL,
	query_embedding       vector,
	clicked_property_id   TEXT,
	action                TEXT,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresRepository stores bookmarks and search logs in PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// NewPostgresRepositoryFromDB wraps an existing connection
func NewPostgresRepositoryFromDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InitSchema creates tables and indexes if they do not exist
func (r *PostgresRepository) InitSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Backend names this store in metrics
func (r *PostgresRepository) Backend() string { return "postgres" }

// Save inserts a bookmark; the unique index turns a duplicate into a no-op
func (r *PostgresRepository) Save(ctx context.Context, propertyID, sessionID string) (bool, error) {
	query := `
		INSERT INTO saved_properties (property_id, session_id)
		VALUES ($1, $2)
		ON CONFLICT (property_id, session_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, propertyID, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to save property: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to save property: %w", err)
	}

	if n == 0 {
		observability.ObserveBookmark(r.Backend(), "duplicate")
		return false, nil
	}
	observability.ObserveBookmark(r.Backend(), "save")
	return true, nil
}

// Exists reports whether the bookmark is present
func (r *PostgresRepository) Exists(ctx context.Context, propertyID, sessionID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM saved_properties WHERE property_id = $1 AND session_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, propertyID, sessionID); err != nil {
		return false, fmt.Errorf("failed to check saved property: %w", err)
	}
	return exists, nil
}

// Delete removes a bookmark
func (r *PostgresRepository) Delete(ctx context.Context, propertyID, sessionID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM saved_properties WHERE property_id = $1 AND session_id = $2`,
		propertyID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete saved property: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete saved property: %w", err)
	}
	if n == 0 {
		return model.ErrBookmarkNotFound
	}
	observability.ObserveBookmark(r.Backend(), "delete")
	return nil
}

// ListBySession returns a session's bookmarks, oldest first
func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string) ([]model.Bookmark, error) {
	bookmarks := []model.Bookmark{}
	query := `
		SELECT property_id, session_id, saved_at
		FROM saved_properties
		WHERE session_id = $1
		ORDER BY saved_at, property_id
	`
	if err := r.db.SelectContext(ctx, &bookmarks, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list saved properties: %w", err)
	}
	observability.ObserveBookmark(r.Backend(), "list")
	return bookmarks, nil
}

// LogSearch records one completed search
func (r *PostgresRepository) LogSearch(ctx context.Context, entry model.SearchLogEntry) error {
	filters, err := json.Marshal(entry.Filters)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}

	var embedding *pgvector.Vector
	if len(entry.QueryEmbedding) > 0 {
		v := pgvector.NewVector(entry.QueryEmbedding)
		embedding = &v
	}

	ids := entry.PropertyIDs
	if ids == nil {
		ids = []string{}
	}

	query := `
		INSERT INTO search_logs (search_id, query, filters, result_count, returned_property_ids, response_time_ms, query_embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.ExecContext(ctx, query,
		entry.SearchID, entry.Query, filters, entry.ResultCount,
		pq.Array(ids), entry.ResponseTimeMs, embedding)
	if err != nil {
		return fmt.Errorf("failed to log search: %w", err)
	}
	return nil
}

// LogFeedback attaches a user action to a logged search
func (r *PostgresRepository) LogFeedback(ctx context.Context, searchID, propertyID, action string) error {
	query := `
		UPDATE search_logs
		SET clicked_property_id = $2, action = $3
		WHERE search_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, searchID, propertyID, action)
	if err != nil {
		return fmt.Errorf("failed to log feedback: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to log feedback: %w", err)
	}
	if n == 0 {
		return model.ErrSearchNotFound
	}
	return nil
}

// RecentSearches returns the latest logged searches, newest first
func (r *PostgresRepository) RecentSearches(ctx context.Context, limit int) ([]model.SearchLogEntry, error) {
	rows := []struct {
		SearchID       string         `db:"search_id"`
		Query          string         `db:"query"`
		Filters        []byte         `db:"filters"`
		ResultCount    int            `db:"result_count"`
		PropertyIDs    pq.StringArray `db:"returned_property_ids"`
		ResponseTimeMs int            `db:"response_time_ms"`
	}{}
	query := `
		SELECT search_id, query, filters, result_count, returned_property_ids, response_time_ms
		FROM search_logs
		ORDER BY created_at DESC
		LIMIT $1
	`
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}

	entries := make([]model.SearchLogEntry, 0, len(rows))
	for _, row := range rows {
		entry := model.SearchLogEntry{
			SearchID:       row.SearchID,
			Query:          row.Query,
			ResultCount:    row.ResultCount,
			PropertyIDs:    []string(row.PropertyIDs),
			ResponseTimeMs: row.ResponseTimeMs,
		}
		if err := json.Unmarshal(row.Filters, &entry.Filters); err != nil {
			return nil, fmt.Errorf("failed to decode filters: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

var (
	_ BookmarkStore = (*PostgresRepository)(nil)
	_ SearchLogger  = (*PostgresRepository)(nil)
)
