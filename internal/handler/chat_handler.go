package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vantor/ragserve/internal/model"
	"github.com/vantor/ragserve/internal/pkg/errs"
	"github.com/vantor/ragserve/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Stream handles POST /chat. The response body is a sequence of content
// frames flushed as they arrive from the model.
func (h *ChatHandler) Stream(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "message must not be empty"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	emit := func(frame string) error {
		select {
		case <-c.Request.Context().Done():
			return errs.ErrClientGone
		default:
		}
		if _, err := io.WriteString(c.Writer, frame); err != nil {
			return errs.ErrClientGone
		}
		c.Writer.Flush()
		return nil
	}

	err := h.chat.StreamChat(c.Request.Context(), &req, emit)
	switch {
	case err == nil, errs.IsClientGone(err):
		return
	case errors.Is(err, errs.ErrGeneration):
		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "An error occurred while processing your request"})
		}
	default:
		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "An internal server error occurred."})
		}
	}
}
