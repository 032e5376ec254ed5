package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/models"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/tasks"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/util"
)

// SettlementOrchestrator applies verified payment outcomes to bookings.
// It trusts only the payment provider's API, never the webhook payload: a
// succeeded event settles a booking only after the PaymentIntent has been
// re-fetched and shows succeeded with a nonzero amount received.
type SettlementOrchestrator struct {
	bookings  BookingStore
	vouchers  VoucherStore
	events    EventStore
	gateway   PaymentGateway
	orders    *OrderService
	loyalty   LoyaltyService
	publisher EventPublisher
	runner    *tasks.Runner
	logger    *zap.Logger
}

// NewSettlementOrchestrator creates a new settlement orchestrator
func NewSettlementOrchestrator(
	bookings BookingStore,
	vouchers VoucherStore,
	events EventStore,
	gateway PaymentGateway,
	orders *OrderService,
	loyalty LoyaltyService,
	publisher EventPublisher,
	runner *tasks.Runner,
) *SettlementOrchestrator {
	return &SettlementOrchestrator{
		bookings:  bookings,
		vouchers:  vouchers,
		events:    events,
		gateway:   gateway,
		orders:    orders,
		loyalty:   loyalty,
		publisher: publisher,
		runner:    runner,
		logger:    util.GetLogger(),
	}
}

// HandlePaymentIntentSucceeded settles a booking for a payment_intent.succeeded
// event. A returned error means the outcome is unknown and the webhook should
// be redelivered; every verified-and-rejected case returns nil.
func (so *SettlementOrchestrator) HandlePaymentIntentSucceeded(ctx context.Context, eventID, intentID string) error {
	ctx, span := util.StartSpan(ctx, "SettlementOrchestrator.HandlePaymentIntentSucceeded")
	defer span.End()

	processed, err := so.events.IsEventProcessed(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		so.logger.Info("Event already processed", zap.String("event_id", eventID))
		return nil
	}

	booking, err := so.bookings.GetBookingByPaymentReference(ctx, intentID)
	if err != nil {
		return fmt.Errorf("failed to load booking for intent %s: %w", intentID, err)
	}
	if booking == nil {
		util.PaymentVerificationRejected.WithLabelValues("unknown_intent").Inc()
		so.logger.Warn("Webhook for unknown payment intent", zap.String("intent_id", intentID))
		return nil
	}

	if booking.PaymentStatus == models.PaymentStatusCompleted {
		so.logger.Info("Booking already settled",
			zap.Int64("booking_id", booking.ID),
			zap.String("intent_id", intentID))
		so.markProcessed(ctx, eventID, "payment_intent.succeeded")
		return nil
	}

	// Independent verification. The webhook payload is only a hint.
	intent, err := so.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		util.PaymentVerificationRejected.WithLabelValues("retrieve_failed").Inc()
		return fmt.Errorf("failed to verify payment intent %s: %w", intentID, err)
	}
	if intent.Status != "succeeded" {
		util.PaymentVerificationRejected.WithLabelValues("status_" + intent.Status).Inc()
		so.logger.Warn("Succeeded event contradicted by provider",
			zap.String("intent_id", intentID),
			zap.String("status", intent.Status))
		return nil
	}
	if intent.AmountReceived == 0 {
		util.PaymentVerificationRejected.WithLabelValues("zero_amount").Inc()
		so.logger.Warn("Succeeded intent has no amount received", zap.String("intent_id", intentID))
		return nil
	}

	info := models.PaymentInfo{
		IntentID:       intent.ID,
		AmountReceived: intent.AmountReceived,
		Currency:       intent.Currency,
		Status:         intent.Status,
		Verified:       true,
		VerifiedAt:     time.Now().UTC(),
	}

	updated, err := so.bookings.UpdateBookingPayment(ctx, booking.ID,
		models.BookingStatusConfirmed, models.PaymentStatusCompleted, info,
		models.BookingStatusPending, models.BookingStatusPaymentPending)
	if err != nil {
		return fmt.Errorf("failed to settle booking %d: %w", booking.ID, err)
	}
	if !updated {
		so.logger.Info("Settlement raced another transition",
			zap.Int64("booking_id", booking.ID),
			zap.String("status", string(booking.Status)))
		so.markProcessed(ctx, eventID, "payment_intent.succeeded")
		return nil
	}

	util.PaymentsVerifiedTotal.Inc()
	so.logger.Info("Booking settled",
		zap.Int64("booking_id", booking.ID),
		zap.String("reference", booking.Reference),
		zap.Int64("amount_received", intent.AmountReceived))

	so.markProcessed(ctx, eventID, "payment_intent.succeeded")

	// Post-settlement side effects never delay or fail the webhook response.
	bookingID := booking.ID
	so.runner.Go("provider_order", func(ctx context.Context) error {
		return so.orders.CreateProviderOrder(ctx, bookingID)
	})
	if booking.VoucherID.Valid {
		voucherID := booking.VoucherID.Int64
		so.runner.Go("voucher_consume", func(ctx context.Context) error {
			return so.consumeVoucher(ctx, voucherID, bookingID)
		})
	}
	settled := *booking
	so.runner.Go("loyalty_accrual", func(ctx context.Context) error {
		return so.loyalty.EarnPointsFromBooking(ctx, &settled)
	})

	event := &models.PaymentCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentCompleted,
			Timestamp: time.Now(),
		},
		BookingID:   booking.ID,
		Reference:   booking.Reference,
		ProductType: booking.ProductType,
		AmountMinor: intent.AmountReceived,
		Currency:    intent.Currency,
		IntentID:    intent.ID,
		Email:       booking.ContactEmail,
	}
	so.runner.Go("publish_payment_completed", func(ctx context.Context) error {
		return so.publisher.PublishPaymentCompleted(ctx, event)
	})

	return nil
}

// HandlePaymentIntentFailed marks the booking failed for a
// payment_intent.payment_failed event.
func (so *SettlementOrchestrator) HandlePaymentIntentFailed(ctx context.Context, eventID, intentID, reason string) error {
	return so.recordPaymentFailure(ctx, eventID, intentID, reason,
		"payment_intent.payment_failed", models.BookingStatusFailed)
}

// HandlePaymentIntentCanceled marks the booking cancelled for a
// payment_intent.canceled event.
func (so *SettlementOrchestrator) HandlePaymentIntentCanceled(ctx context.Context, eventID, intentID, reason string) error {
	return so.recordPaymentFailure(ctx, eventID, intentID, reason,
		"payment_intent.canceled", models.BookingStatusCancelled)
}

func (so *SettlementOrchestrator) recordPaymentFailure(
	ctx context.Context,
	eventID, intentID, reason, eventType string,
	status models.BookingStatus,
) error {
	ctx, span := util.StartSpan(ctx, "SettlementOrchestrator.recordPaymentFailure")
	defer span.End()

	processed, err := so.events.IsEventProcessed(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		return nil
	}

	booking, err := so.bookings.GetBookingByPaymentReference(ctx, intentID)
	if err != nil {
		return fmt.Errorf("failed to load booking for intent %s: %w", intentID, err)
	}
	if booking == nil {
		so.logger.Warn("Failure event for unknown payment intent", zap.String("intent_id", intentID))
		return nil
	}

	info := booking.PaymentInfo
	info.IntentID = intentID
	info.Status = "failed"
	info.FailureReason = reason

	updated, err := so.bookings.UpdateBookingPayment(ctx, booking.ID,
		status, models.PaymentStatusFailed, info,
		models.BookingStatusPending, models.BookingStatusPaymentPending)
	if err != nil {
		return fmt.Errorf("failed to record payment failure for booking %d: %w", booking.ID, err)
	}
	so.markProcessed(ctx, eventID, eventType)
	if !updated {
		so.logger.Info("Payment failure arrived after a final state",
			zap.Int64("booking_id", booking.ID),
			zap.String("status", string(booking.Status)))
		return nil
	}

	util.PaymentsFailedTotal.Inc()
	so.logger.Warn("Payment failed",
		zap.Int64("booking_id", booking.ID),
		zap.String("intent_id", intentID),
		zap.String("reason", reason))

	event := &models.PaymentFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentFailed,
			Timestamp: time.Now(),
		},
		BookingID: booking.ID,
		Reference: booking.Reference,
		Reason:    reason,
		Email:     booking.ContactEmail,
	}
	so.runner.Go("publish_payment_failed", func(ctx context.Context) error {
		return so.publisher.PublishPaymentFailed(ctx, event)
	})

	return nil
}

// HandleChargeRefunded applies a charge.refunded event. Refunds are accepted
// in any settled state; a partial refund keeps PARTIALLY_REFUNDED as the
// payment status.
func (so *SettlementOrchestrator) HandleChargeRefunded(ctx context.Context, eventID, intentID string, amountRefunded int64, full bool) error {
	ctx, span := util.StartSpan(ctx, "SettlementOrchestrator.HandleChargeRefunded")
	defer span.End()

	processed, err := so.events.IsEventProcessed(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		return nil
	}

	booking, err := so.bookings.GetBookingByPaymentReference(ctx, intentID)
	if err != nil {
		return fmt.Errorf("failed to load booking for intent %s: %w", intentID, err)
	}
	if booking == nil {
		so.logger.Warn("Refund event for unknown payment intent", zap.String("intent_id", intentID))
		return nil
	}

	paymentStatus := models.PaymentStatusRefunded
	kind := "full"
	if !full {
		paymentStatus = models.PaymentStatusPartiallyRefunded
		kind = "partial"
	}

	info := booking.PaymentInfo
	info.AmountRefunded = amountRefunded

	if _, err := so.bookings.UpdateBookingPayment(ctx, booking.ID,
		models.BookingStatusRefunded, paymentStatus, info); err != nil {
		return fmt.Errorf("failed to record refund for booking %d: %w", booking.ID, err)
	}
	so.markProcessed(ctx, eventID, "charge.refunded")

	util.RefundsTotal.WithLabelValues(kind).Inc()
	so.logger.Info("Booking refunded",
		zap.Int64("booking_id", booking.ID),
		zap.String("kind", kind),
		zap.Int64("amount_refunded", amountRefunded))

	event := &models.BookingRefundedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBookingRefunded,
			Timestamp: time.Now(),
		},
		BookingID:     booking.ID,
		Reference:     booking.Reference,
		AmountMinor:   amountRefunded,
		Currency:      booking.Currency,
		Partial:       !full,
		Email:         booking.ContactEmail,
		PaymentIntent: intentID,
	}
	so.runner.Go("publish_booking_refunded", func(ctx context.Context) error {
		return so.publisher.PublishBookingRefunded(ctx, event)
	})

	return nil
}

func (so *SettlementOrchestrator) consumeVoucher(ctx context.Context, voucherID, bookingID int64) error {
	used, err := so.vouchers.MarkVoucherUsed(ctx, voucherID, bookingID)
	if err != nil {
		return fmt.Errorf("failed to consume voucher %d: %w", voucherID, err)
	}
	if !used {
		so.logger.Warn("Voucher was already consumed",
			zap.Int64("voucher_id", voucherID),
			zap.Int64("booking_id", bookingID))
		return nil
	}
	util.VouchersConsumedTotal.Inc()
	return nil
}

func (so *SettlementOrchestrator) markProcessed(ctx context.Context, eventID, eventType string) {
	if err := so.events.MarkEventProcessed(ctx, eventID, eventType); err != nil {
		so.logger.Error("Failed to mark event processed",
			zap.String("event_id", eventID),
			zap.Error(err))
	}
}
