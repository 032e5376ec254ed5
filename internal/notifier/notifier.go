package notifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/jobqueue"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/models"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/pricing"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/util"
)

// Email job kinds, used both as queue payload kinds and metric labels.
const (
	KindConfirmation = "booking_confirmation"
	KindReceipt      = "payment_receipt"
	KindRefund       = "refund_notice"
	KindFailure      = "payment_failure"
)

// Deliverer sends a fully built email. Implementations must be safe for
// concurrent use because the job queue invokes them from its worker loop.
type Deliverer interface {
	Deliver(ctx context.Context, job jobqueue.EmailJob) error
}

// LogDeliverer writes emails to the log instead of an SMTP relay. It keeps
// local and test environments from needing mail credentials.
type LogDeliverer struct {
	logger *zap.Logger
}

func NewLogDeliverer() *LogDeliverer {
	return &LogDeliverer{logger: util.GetLogger()}
}

func (d *LogDeliverer) Deliver(_ context.Context, job jobqueue.EmailJob) error {
	d.logger.Info("Delivering email",
		zap.String("kind", job.Kind),
		zap.String("to", job.To),
		zap.String("subject", job.Subject),
		zap.String("reference", job.Reference))
	return nil
}

func formatAmount(amountMinor int64, currency string) string {
	amount := pricing.FromMinorUnits(amountMinor, currency)
	return fmt.Sprintf("%s %s", amount.StringFixed(pricing.Exponent(currency)), currency)
}

// BuildConfirmation builds the booking confirmation email sent shortly after
// settlement.
func BuildConfirmation(event *models.PaymentCompletedEvent) jobqueue.EmailJob {
	return jobqueue.EmailJob{
		Kind:      KindConfirmation,
		To:        event.Email,
		Subject:   fmt.Sprintf("Your booking %s is confirmed", event.Reference),
		Reference: event.Reference,
		Body: fmt.Sprintf(
			"Good news! Your %s booking %s is confirmed.\n\nAmount paid: %s\n",
			event.ProductType, event.Reference, formatAmount(event.AmountMinor, event.Currency)),
	}
}

// BuildReceipt builds the payment receipt email.
func BuildReceipt(event *models.PaymentCompletedEvent) jobqueue.EmailJob {
	return jobqueue.EmailJob{
		Kind:      KindReceipt,
		To:        event.Email,
		Subject:   fmt.Sprintf("Payment receipt for booking %s", event.Reference),
		Reference: event.Reference,
		Body: fmt.Sprintf(
			"We received your payment of %s for booking %s.\nPayment reference: %s\n",
			formatAmount(event.AmountMinor, event.Currency), event.Reference, event.IntentID),
	}
}

// BuildRefundNotice builds the refund notification email.
func BuildRefundNotice(event *models.BookingRefundedEvent) jobqueue.EmailJob {
	kind := "full"
	if event.Partial {
		kind = "partial"
	}
	return jobqueue.EmailJob{
		Kind:      KindRefund,
		To:        event.Email,
		Subject:   fmt.Sprintf("Refund processed for booking %s", event.Reference),
		Reference: event.Reference,
		Body: fmt.Sprintf(
			"A %s refund of %s has been processed for booking %s.\n",
			kind, formatAmount(event.AmountMinor, event.Currency), event.Reference),
	}
}

// BuildPaymentFailure builds the email sent when the payment provider reports
// a failed or cancelled payment.
func BuildPaymentFailure(event *models.PaymentFailedEvent) jobqueue.EmailJob {
	body := fmt.Sprintf("Your payment for booking %s did not go through.\n", event.Reference)
	if event.Reason != "" {
		body += fmt.Sprintf("Reason: %s\n", event.Reason)
	}
	body += "No charge was made. You can retry the payment from your booking page.\n"
	return jobqueue.EmailJob{
		Kind:      KindFailure,
		To:        event.Email,
		Subject:   fmt.Sprintf("Payment failed for booking %s", event.Reference),
		Reference: event.Reference,
		Body:      body,
	}
}
