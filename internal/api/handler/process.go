package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/gifforge/internal/domain"
	"github.com/timmy/gifforge/internal/service"
)

// ProcessHandler handles GIF processing endpoints.
type ProcessHandler struct {
	processingService *service.ProcessingService
}

// NewProcessHandler creates a new processing handler.
// Parameters:
//   - processingService: processing orchestrator instance.
//
// Returns:
//   - *ProcessHandler: initialized handler.
func NewProcessHandler(processingService *service.ProcessingService) *ProcessHandler {
	return &ProcessHandler{
		processingService: processingService,
	}
}

// ProcessRequest is the body of POST /api/v1/process.
type ProcessRequest struct {
	Gif      domain.GifDescriptor `json:"gif" binding:"required"`
	Overlays []domain.TextOverlay `json:"overlays" binding:"required"`
}

// Process handles POST /api/v1/process.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *ProcessHandler) Process(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	processed, err := h.processingService.ProcessGif(c.Request.Context(), req.Gif, req.Overlays)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, processed)
}

// Progress handles GET /api/v1/process/progress. It returns the latest
// progress snapshot for polling clients.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *ProcessHandler) Progress(c *gin.Context) {
	progress := h.processingService.GetProcessingProgress()
	if progress == nil {
		c.JSON(http.StatusOK, gin.H{
			"processing": h.processingService.IsProcessing(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"processing": h.processingService.IsProcessing(),
		"progress":   progress,
	})
}

// Events handles GET /api/v1/process/events. It streams progress updates as
// server-sent events until the client disconnects.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (streams SSE).
func (h *ProcessHandler) Events(c *gin.Context) {
	updates := make(chan domain.ProcessingProgress, 16)
	unsubscribe := h.processingService.OnProgressUpdate(func(p domain.ProcessingProgress) {
		// Drop updates the client cannot keep up with; the stream stays
		// monotonic either way.
		select {
		case updates <- p:
		default:
		}
	})
	defer unsubscribe()

	// Replay the current state so late subscribers see where the job is.
	if current := h.processingService.GetProcessingProgress(); current != nil {
		select {
		case updates <- *current:
		default:
		}
	}

	c.Stream(func(w io.Writer) bool {
		select {
		case p := <-updates:
			c.SSEvent("progress", p)
			return p.Stage != domain.StageComplete && p.Error == ""
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Cancel handles POST /api/v1/process/cancel.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *ProcessHandler) Cancel(c *gin.Context) {
	h.processingService.CancelProcessing()
	c.JSON(http.StatusOK, gin.H{
		"canceled": true,
	})
}

// Memory handles GET /api/v1/process/memory.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *ProcessHandler) Memory(c *gin.Context) {
	c.JSON(http.StatusOK, h.processingService.GetMemoryUsage())
}

// Artifact handles GET /api/v1/artifacts/:id, serving rendered GIF bytes.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes image data).
func (h *ProcessHandler) Artifact(c *gin.Context) {
	data, ok := h.processingService.GetArtifact(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Artifact not found or expired",
		})
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/gif", data)
}
