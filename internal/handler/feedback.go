package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"propchat/internal/model"
	"propchat/internal/service"
)

var validActions = map[string]bool{
	"click":        true,
	"save":         true,
	"view_details": true,
}

// FeedbackHandler handles feedback-related HTTP requests
type FeedbackHandler struct {
	searchService *service.SearchService
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(searchService *service.SearchService) *FeedbackHandler {
	return &FeedbackHandler{
		searchService: searchService,
	}
}

// Submit handles POST /api/feedback
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request: " + err.Error(), Kind: model.KindInvalidInput})
		return
	}

	if !validActions[req.Action] {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error: "Invalid action. Must be one of: click, save, view_details",
			Kind:  model.KindInvalidInput,
		})
		return
	}

	err := h.searchService.LogFeedback(c.Request.Context(), req.SearchID, req.PropertyID.String(), req.Action)
	if err != nil {
		respondError(c, err, "Failed to log feedback")
		return
	}

	c.JSON(http.StatusOK, model.FeedbackResponse{
		Success: true,
		Message: "Feedback logged successfully",
	})
}
