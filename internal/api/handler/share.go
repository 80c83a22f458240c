package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/gifforge/internal/domain"
	"github.com/timmy/gifforge/internal/service"
)

// ShareHandler handles shareable link endpoints.
type ShareHandler struct {
	shareService *service.ShareService
}

// NewShareHandler creates a new share handler.
// Parameters:
//   - shareService: share service instance.
//
// Returns:
//   - *ShareHandler: initialized handler.
func NewShareHandler(shareService *service.ShareService) *ShareHandler {
	return &ShareHandler{
		shareService: shareService,
	}
}

// Create handles POST /api/v1/share.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *ShareHandler) Create(c *gin.Context) {
	var gif domain.ProcessedGif
	if err := c.ShouldBindJSON(&gif); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	shared, err := h.shareService.CreateShareableLink(c.Request.Context(), &gif)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, shared)
}

// Get handles GET /api/v1/share/:id.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *ShareHandler) Get(c *gin.Context) {
	shared, err := h.shareService.GetSharedGif(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if shared == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Share link not found or expired",
		})
		return
	}

	c.JSON(http.StatusOK, shared)
}
