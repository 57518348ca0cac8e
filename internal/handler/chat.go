package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"propchat/internal/model"
	"propchat/internal/service"
)

// ChatHandler handles natural-language search requests
type ChatHandler struct {
	searchService *service.SearchService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(searchService *service.SearchService) *ChatHandler {
	return &ChatHandler{
		searchService: searchService,
	}
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request: " + err.Error(), Kind: model.KindInvalidInput})
		return
	}

	result, err := h.searchService.Search(c.Request.Context(), req.Message)
	if err != nil {
		respondError(c, err, "Failed to process message")
		return
	}

	c.JSON(http.StatusOK, result)
}

// ChatStream handles POST /api/chat/stream - SSE streaming search
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request: " + err.Error(), Kind: model.KindInvalidInput})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Streaming not supported", Kind: model.KindInternal})
		return
	}

	sendSSE(c, "start", map[string]any{"message": req.Message})
	flusher.Flush()

	result, err := h.searchService.SearchStream(c.Request.Context(), req.Message, func(event string, data any) error {
		if err := c.Request.Context().Err(); err != nil {
			return err
		}
		sendSSE(c, event, data)
		flusher.Flush()
		return nil
	})
	if err != nil {
		sendSSE(c, "error", errorBody(err, "Failed to process message"))
		flusher.Flush()
		return
	}

	sendSSE(c, "results", result)
	flusher.Flush()

	sendSSE(c, "done", nil)
	flusher.Flush()
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
	} else {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
	}
}

// statusFor maps error kinds to HTTP status codes
func statusFor(err error) int {
	switch model.ErrorKind(err) {
	case model.KindInvalidInput:
		return http.StatusBadRequest
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindDataSourceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error, summary string) model.ErrorResponse {
	kind := model.ErrorKind(err)
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return model.ErrorResponse{Error: invalidInputMessage(err), Kind: kind}
	case errors.Is(err, model.ErrDataSourceUnavailable):
		return model.ErrorResponse{Error: "Failed to load property data", Kind: kind, Message: err.Error()}
	default:
		return model.ErrorResponse{Error: summary, Kind: kind, Message: err.Error()}
	}
}

// invalidInputMessage turns "invalid input: message is required" into "Message is required"
func invalidInputMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), model.ErrInvalidInput.Error()+": ")
	if msg == "" || msg == model.ErrInvalidInput.Error() {
		return "Invalid input"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func respondError(c *gin.Context, err error, summary string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(summary)
	}
	c.JSON(status, errorBody(err, summary))
}
