package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meliznube/backend/internal/application/annotation"
	"github.com/meliznube/backend/internal/infrastructure/logger"
)

// WebhookHandler receives marketplace order notifications.
type WebhookHandler struct {
	processor *annotation.Processor
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(processor *annotation.Processor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// webhookPayload is the marketplace notification body. Only the resource
// path matters; topic and the rest are informational.
type webhookPayload struct {
	Resource string `json:"resource" binding:"required,resource_path"`
	Topic    string `json:"topic"`
}

// HandleOrderNotification processes one order notification. The
// marketplace retries deliveries that do not get a 2xx, and every
// skip outcome here is final, so the handler answers 200 for anything
// that parses. Only transport-level failures bubble up as 500 to get a
// redelivery.
func (h *WebhookHandler) HandleOrderNotification(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Warn("malformed webhook payload", zap.Error(err))
		// malformed payloads will never parse on redelivery either
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	orderID := lastPathSegment(payload.Resource)
	if orderID == "" {
		log.Warn("webhook resource carries no order id", zap.String("resource", payload.Resource))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	result, err := h.processor.Process(ctx, orderID)
	if err != nil {
		log.Error("order processing failed", zap.String("order_id", orderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "processing failed",
			"request_id": logger.GetRequestID(ctx),
		})
		return
	}

	log.Info("order notification processed",
		zap.String("order_id", result.OrderID),
		zap.String("status", string(result.Status)),
	)
	c.JSON(http.StatusOK, gin.H{"status": string(result.Status), "order_id": result.OrderID})
}

// lastPathSegment extracts the trailing segment of a resource path like
// "/orders/123456".
func lastPathSegment(resource string) string {
	trimmed := strings.Trim(strings.TrimSpace(resource), "/")
	if trimmed == "" {
		return ""
	}
	parts := strings.Split(trimmed, "/")
	return parts[len(parts)-1]
}
