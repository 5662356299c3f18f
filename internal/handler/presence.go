package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat_server/internal/service"
	"chat_server/pkg/logger"
)

type PresenceHandler struct {
	presenceService service.PresenceService
	log             logger.Logger
}

func NewPresenceHandler(presenceService service.PresenceService, log logger.Logger) *PresenceHandler {
	return &PresenceHandler{presenceService: presenceService, log: log}
}

func (h *PresenceHandler) Online(c *gin.Context) {
	users, err := h.presenceService.OnlineUsers(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to list online users", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load online users"})
		return
	}
	if users == nil {
		users = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"online": users})
}

func (h *PresenceHandler) LastSeen(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user ID is required"})
		return
	}

	lastSeen, err := h.presenceService.LastSeen(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("Failed to get last seen", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load last seen"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"userId": userID, "lastSeen": lastSeen})
}
