package api

import (
	"encoding/json"
	"io"
	"net/http"

	"booking-service/internal/gateway"
	"booking-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// paymentWebhook receives asynchronous settlement events from the
// payment gateway. The signature is verified over the exact raw body
// bytes before anything is parsed; a missing or bad signature is
// rejected with no state mutation. Processed, ignored and unmatched
// events are all acknowledged with 200 so the gateway does not
// retry-storm deliveries we cannot act on.
func (h *Handler) paymentWebhook(c *gin.Context) {
	logger := util.GetLogger()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	signature := c.GetHeader(gateway.SignatureHeader)
	if !gateway.VerifyWebhookSignature(body, signature, h.webhookSecret) {
		util.WebhookRejectedTotal.Inc()
		logger.Warn("Rejected webhook with invalid signature",
			zap.Bool("signature_present", signature != ""),
			zap.String("remote_addr", c.ClientIP()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook signature"})
		return
	}

	var event gateway.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		logger.Warn("Authenticated webhook with malformed payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
		return
	}

	eventID := c.GetHeader(gateway.EventIDHeader)

	if err := h.settlement.HandleEvent(c.Request.Context(), &event, eventID); err != nil {
		logger.Error("Webhook settlement failed",
			zap.String("event", event.Event),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
