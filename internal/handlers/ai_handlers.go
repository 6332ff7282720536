package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//
// --- AI Handlers ---
//

// AskAIInput defines the JSON body for the assistant endpoint.
type AskAIInput struct {
	Question string `json:"question" binding:"required"`
}

// AskAI is the handler for POST /api/ai/ask
func (h *Handlers) AskAI(c *gin.Context) {
	if h.AI == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI assistant is not configured"})
		return
	}

	var input AskAIInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.MustGet("userID").(int64)
	userRole := c.MustGet("userRole").(string)

	answer, err := h.AI.Ask(c.Request.Context(), input.Question, userID, userRole)
	if err != nil {
		h.Log.Error("AI request failed", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "The assistant could not answer right now"})
		return
	}

	// History is best-effort; a failed insert never fails the request.
	_, err = h.DB.Exec(
		"INSERT INTO ai_chat_history (user_id, user_message, ai_response, created_at) VALUES (?, ?, ?, ?)",
		userID, input.Question, answer, time.Now())
	if err != nil {
		h.Log.Warn("failed to save chat history", zap.Int64("user_id", userID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer})
}
