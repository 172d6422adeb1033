package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"local-services-server/middleware"
	"local-services-server/services"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// RegisterNotificationRoutes registers the admin notification inbox and device tokens
func RegisterNotificationRoutes(api *gin.RouterGroup, h *NotificationHandler, auth gin.HandlerFunc) {
	notifications := api.Group("/notifications")
	notifications.Use(auth)
	{
		notifications.POST("/register-token", h.RegisterToken)
		notifications.GET("", h.List)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.PUT("/read-all", h.MarkAllRead)
		notifications.PUT("/:id/read", h.MarkRead)
	}
}

type registerTokenRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform"`
}

func (h *NotificationHandler) RegisterToken(c *gin.Context) {
	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "token is required")
		return
	}
	if req.Platform == "" {
		req.Platform = "web"
	}

	var adminID *uint
	if id, ok := middleware.GetAdminID(c); ok {
		adminID = &id
	}
	token, err := h.notifications.RegisterToken(c.Request.Context(), adminID, req.Token, req.Platform)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Push token registered successfully",
		"tokenId": token.ID,
	})
}

func (h *NotificationHandler) List(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	items, total, err := h.notifications.List(c.Request.Context(), unreadOnly, queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"notifications": items,
		"count":         total,
	})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notifications.UnreadCount(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "unreadCount": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		badRequest(c, "invalid notification id")
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "All notifications marked as read",
		"updated": n,
	})
}
