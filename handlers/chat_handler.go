package handlers

import (
	"errors"
	"net/http"

	"avokati-backend/models"
	"avokati-backend/service"

	"github.com/gin-gonic/gin"
)

// ChatHandler handles conversations and the selection mode
type ChatHandler struct {
	chat      *service.ChatService
	selection *service.SelectionService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *service.ChatService, selection *service.SelectionService) *ChatHandler {
	return &ChatHandler{chat: chat, selection: selection}
}

type sendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// SendMessage handles POST /api/chat/:session/messages. The response
// is an SSE stream: one "chunk" event per text increment, then a
// single "done" event carrying the finalized turn. Recovered streaming
// failures still end in "done"; the error text is inline in the turn.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	session := c.Param("session")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	result, err := h.chat.Send(c.Request.Context(), session, req.Text, func(chunk string) {
		c.SSEvent("chunk", chunk)
		c.Writer.Flush()
	})
	if err != nil {
		// Send fails before any chunk is written, so a JSON error
		// response is still possible here.
		switch {
		case errors.Is(err, service.ErrQueryInFlight):
			errorResponse(c, http.StatusConflict, "QUERY_IN_FLIGHT", err.Error())
		case errors.Is(err, service.ErrEmptyQuery):
			errorResponse(c, http.StatusBadRequest, "EMPTY_QUERY", err.Error())
		default:
			errorResponse(c, http.StatusInternalServerError, "SEND_FAILED", err.Error())
		}
		return
	}

	c.SSEvent("done", result)
	c.Writer.Flush()
}

// ListMessages handles GET /api/chat/:session/messages
func (h *ChatHandler) ListMessages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.chat.Messages(c.Param("session")),
	})
}

// GetMode handles GET /api/mode
func (h *ChatHandler) GetMode(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"mode": h.selection.Mode()},
	})
}

type setModeRequest struct {
	Mode models.Mode `json:"mode" binding:"required"`
}

// SetMode handles PUT /api/mode
func (h *ChatHandler) SetMode(c *gin.Context) {
	var req setModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	if err := h.selection.SetMode(req.Mode); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_MODE",
			"Mode must be 'manual' or 'automatic'")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"mode": req.Mode},
	})
}
