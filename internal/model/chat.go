package model

import "time"

// DefaultSessionID scopes bookmarks when the client sends no session
const DefaultSessionID = "default-session"

// ChatRequest represents a natural-language search request
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResult is the outcome of one query through the pipeline
type ChatResult struct {
	Reply          string              `json:"reply"`
	Properties     []PropertyRecord    `json:"properties"`
	Filters        SearchFilter        `json:"filters"`
	MatchedReasons map[string][]string `json:"matched_reasons,omitempty"`
	SearchID       string              `json:"search_id,omitempty"`
	Took           int64               `json:"took_ms"`
}

// ErrorResponse is the JSON error body
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// SavePropertyRequest represents a bookmark create/delete request
type SavePropertyRequest struct {
	PropertyID *PropertyID `json:"propertyId"`
	SessionID  string      `json:"sessionId"`
}

// SavePropertyResponse represents the bookmark operation result
type SavePropertyResponse struct {
	Message string `json:"message"`
	Saved   bool   `json:"saved"`
}

// SavedPropertiesResponse lists bookmarked properties with full details
type SavedPropertiesResponse struct {
	Properties []PropertyRecord `json:"properties"`
}

// Bookmark is a saved (propertyId, sessionId) pair
type Bookmark struct {
	PropertyID string    `json:"propertyId" db:"property_id"`
	SessionID  string    `json:"sessionId" db:"session_id"`
	SavedAt    time.Time `json:"savedAt" db:"saved_at"`
}

// SearchLogEntry records one completed query
type SearchLogEntry struct {
	SearchID       string       `json:"search_id"`
	Query          string       `json:"query"`
	Filters        SearchFilter `json:"filters"`
	ResultCount    int          `json:"result_count"`
	PropertyIDs    []string     `json:"property_ids"`
	ResponseTimeMs int          `json:"response_time_ms"`
	QueryEmbedding []float32    `json:"-"` // optional
}

// FeedbackRequest records what the user did with a search result
type FeedbackRequest struct {
	SearchID   string      `json:"search_id" binding:"required"`
	PropertyID *PropertyID `json:"property_id" binding:"required"`
	Action     string      `json:"action" binding:"required"`
}

// FeedbackResponse represents the feedback submission response
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
