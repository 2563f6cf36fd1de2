package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
	"github.com/gamefrenza/AI-Legal-Agent/internal/service"
	"github.com/gamefrenza/AI-Legal-Agent/internal/store"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/logger"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/util"
)

// NotificationHandler exposes the notification feed over HTTP.
type NotificationHandler struct {
	notifier *service.Notifier
	logger   *zap.Logger
}

func NewNotificationHandler(notifier *service.Notifier, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifier: notifier,
		logger:   logger,
	}
}

// getIdentity reads the identity stored by the auth middleware.
func (h *NotificationHandler) getIdentity(c *gin.Context) (util.Identity, bool) {
	v, ok := c.Get("identity")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return util.Identity{}, false
	}
	return v.(util.Identity), true
}

// GetUnread handles GET /api/notifications/unread
// Returns the caller's unread notifications, newest first.
func (h *NotificationHandler) GetUnread(c *gin.Context) {
	identity, ok := h.getIdentity(c)
	if !ok {
		return
	}

	notifications, err := h.notifier.ListUnread(c.Request.Context(), identity.RecipientID)
	if err != nil {
		logger.WithTrace(c.Request.Context(), h.logger).Error("Failed to list unread notifications",
			zap.String("recipient_id", identity.RecipientID),
			zap.Error(err),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

// MarkRead handles POST /api/notifications/:id/read
// Transitions one owned notification to read. Repeat calls succeed with
// status already_read; unknown and foreign ids both return 404.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	identity, ok := h.getIdentity(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "notification id required"})
		return
	}

	err := h.notifier.MarkRead(c.Request.Context(), identity.RecipientID, id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "read"})
	case errors.Is(err, store.ErrAlreadyRead):
		c.JSON(http.StatusOK, gin.H{"status": "already_read"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
	default:
		logger.WithTrace(c.Request.Context(), h.logger).Error("Failed to mark notification read",
			zap.String("recipient_id", identity.RecipientID),
			zap.String("notification_id", id),
			zap.Error(err),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
	}
}

type sendRequest struct {
	RecipientID string          `json:"recipient_id" binding:"required"`
	Type        string          `json:"type" binding:"required"`
	Severity    string          `json:"severity" binding:"required"`
	Message     string          `json:"message" binding:"required"`
	Details     json.RawMessage `json:"details"`
}

// Send handles POST /api/notifications/send
// Producer-scoped: creates and pushes one notification.
func (h *NotificationHandler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	notif, err := h.notifier.Create(c.Request.Context(), store.CreateParams{
		RecipientID: req.RecipientID,
		Type:        req.Type,
		Severity:    model.Severity(req.Severity),
		Message:     req.Message,
		Details:     req.Details,
	})
	if err != nil {
		var invalid *service.ErrInvalidParams
		if errors.As(err, &invalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Reason})
			return
		}
		logger.WithTrace(c.Request.Context(), h.logger).Error("Failed to create notification", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"notification": notif})
}

type broadcastRequest struct {
	Type     string          `json:"type" binding:"required"`
	Severity string          `json:"severity" binding:"required"`
	Message  string          `json:"message" binding:"required"`
	Details  json.RawMessage `json:"details"`
}

// Broadcast handles POST /api/notifications/broadcast
// Producer-scoped: creates one notification per connected recipient.
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	created, err := h.notifier.Broadcast(c.Request.Context(), store.CreateParams{
		Type:     req.Type,
		Severity: model.Severity(req.Severity),
		Message:  req.Message,
		Details:  req.Details,
	})
	if err != nil {
		var invalid *service.ErrInvalidParams
		if errors.As(err, &invalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Reason})
			return
		}
		logger.WithTrace(c.Request.Context(), h.logger).Error("Failed to broadcast notification", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "broadcast complete",
		"delivered": len(created),
	})
}
