package api

import (
	"context"
	"net/http"
	"strconv"

	"killua-service-provider/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

const maxNotificationLimit = 500

// NotificationUsecase is what the notification handler needs
type NotificationUsecase interface {
	List(ctx context.Context, filter entity.NotificationFilter) ([]*entity.Notification, error)
	UnreadCount(ctx context.Context) (int64, error)
	MarkAsRead(ctx context.Context, id string) error
	Deliveries(ctx context.Context, notificationID string) ([]*entity.Delivery, error)
}

// NotificationHandler serves /api/v1/notifications
type NotificationHandler struct {
	notifications NotificationUsecase
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications NotificationUsecase) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	var filter entity.NotificationFilter

	if raw := c.Query("unread"); raw != "" {
		unread, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(c, &entity.ValidationError{Field: "unread", Reason: "must be a boolean"})
			return
		}
		filter.UnreadOnly = unread
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxNotificationLimit {
			writeError(c, &entity.ValidationError{Field: "limit", Reason: "must be between 1 and " + strconv.Itoa(maxNotificationLimit)})
			return
		}
		filter.Limit = limit
	}

	notifications, err := h.notifications.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	data := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		data = append(data, toNotificationResponse(n))
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(data),
		"data":  data,
	})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notifications.UnreadCount(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	if err := h.notifications.MarkAsRead(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification marked as read"})
}

func (h *NotificationHandler) ListDeliveries(c *gin.Context) {
	deliveries, err := h.notifications.Deliveries(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(deliveries),
		"data":  deliveries,
	})
}
