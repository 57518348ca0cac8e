package model

import "errors"

var (
	// ErrInvalidInput is returned for empty or whitespace-only queries
	ErrInvalidInput = errors.New("invalid input")
	// ErrDataSourceUnavailable is returned when a catalog source cannot be read or parsed
	ErrDataSourceUnavailable = errors.New("data source unavailable")
	// ErrModelUnavailable marks a failed or timed-out language-model call
	ErrModelUnavailable = errors.New("language model unavailable")
	// ErrModelMalformedOutput marks model text that could not be parsed
	ErrModelMalformedOutput = errors.New("language model returned malformed output")
	// ErrBookmarkNotFound is returned when deleting a bookmark that does not exist
	ErrBookmarkNotFound = errors.New("bookmark not found")
	// ErrSearchNotFound is returned when feedback references an unknown search id
	ErrSearchNotFound = errors.New("search not found")
)

// Error kinds exposed to API callers
const (
	KindInvalidInput          = "invalid_input"
	KindDataSourceUnavailable = "data_source_unavailable"
	KindModelUnavailable      = "model_unavailable"
	KindModelMalformedOutput  = "model_malformed_output"
	KindNotFound              = "not_found"
	KindInternal              = "internal"
)

// ErrorKind maps an error to a stable kind string
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrDataSourceUnavailable):
		return KindDataSourceUnavailable
	case errors.Is(err, ErrModelMalformedOutput):
		return KindModelMalformedOutput
	case errors.Is(err, ErrModelUnavailable):
		return KindModelUnavailable
	case errors.Is(err, ErrBookmarkNotFound), errors.Is(err, ErrSearchNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
