package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/hr-rag/internal/api/dto"
	"github.com/cuongbtq/hr-rag/internal/rag"
)

// Chat handles POST /api/v1/chat
// Answers from the caller's tenant documents; backend failures come back as
// a fallback response, not an error status
func (h *Handler) Chat(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}

	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "message is required",
		})
		return
	}

	answer, err := h.answerer.Answer(c.Request.Context(), id, req.Message, req.ConversationID)
	if err != nil {
		if errors.Is(err, rag.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "conversation not found",
			})
			return
		}
		h.logger.Error("Failed to answer query", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to answer query",
		})
		return
	}

	sources := make([]dto.SourceDTO, len(answer.Sources))
	for i, s := range answer.Sources {
		sources[i] = dto.SourceDTO{DocumentID: s.ID, Filename: s.Filename, Distance: s.Distance}
	}
	c.JSON(http.StatusOK, dto.ChatResponse{
		Response:       answer.Text,
		ConversationID: answer.ConversationID,
		Grounded:       answer.Grounded,
		Sources:        sources,
	})
}

// ListMessages handles GET /api/v1/conversations/:id/messages
func (h *Handler) ListMessages(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	convID, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.storage.GetConversation(ctx, id.UserID, convID); err != nil {
		h.respondLookupError(c, err, "conversation")
		return
	}

	msgs, err := h.storage.ListMessages(ctx, convID)
	if err != nil {
		h.logger.Error("Failed to list messages", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list messages",
		})
		return
	}

	resp := make([]dto.MessageDTO, len(msgs))
	for i, m := range msgs {
		resp[i] = dto.MessageDTO{
			ID:        m.ID,
			Sender:    m.Sender,
			Content:   m.Content,
			CreatedAt: formatTime(m.CreatedAt),
		}
	}
	c.JSON(http.StatusOK, resp)
}
