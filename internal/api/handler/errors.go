package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/gifforge/internal/domain"
)

// writeError maps a normalized pipeline error onto an HTTP response. Only the
// user-facing message and suggestions are exposed; technical detail stays in
// the logs.
func writeError(c *gin.Context, err error) {
	e := domain.Classify(err)

	status := http.StatusInternalServerError
	switch e.Type {
	case domain.ErrValidation, domain.ErrFormat:
		status = http.StatusBadRequest
	case domain.ErrTimeout:
		status = http.StatusGatewayTimeout
	case domain.ErrNetwork, domain.ErrAPI:
		status = http.StatusBadGateway
	case domain.ErrMemory:
		status = http.StatusInsufficientStorage
	case domain.ErrProcessing:
		if !e.Retryable {
			// Single-flight rejection: one job at a time.
			status = http.StatusConflict
		}
	}

	c.JSON(status, gin.H{
		"error":       e.Message,
		"type":        e.Type,
		"retryable":   e.Retryable,
		"suggestions": e.Suggestions,
	})
}
