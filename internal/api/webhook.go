package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/util"
)

const maxWebhookBody = 64 * 1024

// stripeWebhook verifies and dispatches Stripe events. The response code is
// the retry contract: 400 for bad signatures, 500 only when the outcome is
// unknown and Stripe should redeliver, 200 for everything handled or
// deliberately ignored.
func (h *Handler) stripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues("invalid_signature").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	eventType := string(event.Type)
	util.WebhookEventsTotal.WithLabelValues(eventType).Inc()
	ctx := c.Request.Context()

	switch eventType {
	case "payment_intent.succeeded":
		pi, ok := unmarshalIntent(event.Data.Raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed event payload"})
			return
		}
		err = h.orchestrator.HandlePaymentIntentSucceeded(ctx, event.ID, pi.ID)

	case "payment_intent.payment_failed":
		pi, ok := unmarshalIntent(event.Data.Raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed event payload"})
			return
		}
		err = h.orchestrator.HandlePaymentIntentFailed(ctx, event.ID, pi.ID, failureReason(pi))

	case "payment_intent.canceled":
		pi, ok := unmarshalIntent(event.Data.Raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed event payload"})
			return
		}
		err = h.orchestrator.HandlePaymentIntentCanceled(ctx, event.ID, pi.ID, "canceled")

	case "charge.refunded":
		var charge stripe.Charge
		if jsonErr := json.Unmarshal(event.Data.Raw, &charge); jsonErr != nil || charge.PaymentIntent == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed event payload"})
			return
		}
		err = h.orchestrator.HandleChargeRefunded(ctx, event.ID,
			charge.PaymentIntent.ID, charge.AmountRefunded, charge.Refunded)

	default:
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
		return
	}

	if err != nil {
		util.GetLogger().Error("Webhook handling failed",
			zap.String("event_id", event.ID),
			zap.String("type", eventType),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Event handling failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func unmarshalIntent(raw json.RawMessage) (*stripe.PaymentIntent, bool) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(raw, &pi); err != nil || pi.ID == "" {
		return nil, false
	}
	return &pi, true
}

func failureReason(pi *stripe.PaymentIntent) string {
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		return pi.LastPaymentError.Msg
	}
	return "payment_failed"
}
