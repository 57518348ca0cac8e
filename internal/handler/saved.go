package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"propchat/internal/model"
	"propchat/internal/service"
)

// SavedHandler handles saved-property bookmarks
type SavedHandler struct {
	searchService *service.SearchService
}

// NewSavedHandler creates a new saved-property handler
func NewSavedHandler(searchService *service.SearchService) *SavedHandler {
	return &SavedHandler{
		searchService: searchService,
	}
}

// Save handles POST /api/save-property
func (h *SavedHandler) Save(c *gin.Context) {
	var req model.SavePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request: " + err.Error(), Kind: model.KindInvalidInput})
		return
	}
	if req.PropertyID == nil || req.PropertyID.String() == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Property ID is required", Kind: model.KindInvalidInput})
		return
	}

	created, err := h.searchService.SaveProperty(c.Request.Context(), req.PropertyID.String(), req.SessionID)
	if err != nil {
		respondError(c, err, "Failed to save property")
		return
	}

	if !created {
		c.JSON(http.StatusOK, model.SavePropertyResponse{Message: "Property already saved", Saved: true})
		return
	}

	log.Info().Str("property_id", req.PropertyID.String()).Msg("saved property")
	c.JSON(http.StatusOK, model.SavePropertyResponse{Message: "Property saved successfully", Saved: true})
}

// Delete handles DELETE /api/save-property/:propertyId.
// Removing a property that is not saved still succeeds.
func (h *SavedHandler) Delete(c *gin.Context) {
	propertyID := c.Param("propertyId")
	sessionID := c.Query("sessionId")
	if sessionID == "" && c.Request.ContentLength > 0 {
		var body struct {
			SessionID string `json:"sessionId"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			sessionID = body.SessionID
		}
	}

	err := h.searchService.RemoveProperty(c.Request.Context(), propertyID, sessionID)
	if err != nil && !errors.Is(err, model.ErrBookmarkNotFound) {
		respondError(c, err, "Failed to remove property")
		return
	}

	c.JSON(http.StatusOK, model.SavePropertyResponse{Message: "Property removed from saved", Saved: false})
}

// List handles GET /api/saved
func (h *SavedHandler) List(c *gin.Context) {
	properties, err := h.searchService.SavedProperties(c.Request.Context(), c.Query("sessionId"))
	if err != nil {
		respondError(c, err, "Failed to retrieve saved properties")
		return
	}

	c.JSON(http.StatusOK, model.SavedPropertiesResponse{Properties: properties})
}
