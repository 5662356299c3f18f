package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat_server/internal/service"
	apperrors "chat_server/pkg/errors"
	"chat_server/pkg/logger"
)

type ChatHandler struct {
	historyService service.HistoryService
	log            logger.Logger
}

func NewChatHandler(historyService service.HistoryService, log logger.Logger) *ChatHandler {
	return &ChatHandler{historyService: historyService, log: log}
}

// GetHistory serves the merged, cursor-paginated feed for a room. Limits
// above the ceiling are clamped, not rejected.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	roomID := c.Param("roomId")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room ID is required"})
		return
	}

	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	limit := service.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	page, err := h.historyService.GetHistory(c.Request.Context(), roomID, userID, c.Query("cursor"), limit)
	if err != nil {
		h.log.Error("Failed to get history", "room_id", roomID, "error", err)
		status := apperrors.HTTPStatusFromError(err)
		c.JSON(status, apperrors.NewAPIError("failed to load history", status))
		return
	}

	c.JSON(http.StatusOK, page)
}
