package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/models"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/pricing"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/stripeclient"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/util"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/vault"
)

var (
	// ErrInvalidChargeAmount is returned when the amount to charge is not
	// positive. Nothing is sent to the payment provider.
	ErrInvalidChargeAmount = errors.New("charge amount must be positive")

	// ErrPaymentModelMismatch is returned when an operation belongs to the
	// other payment model.
	ErrPaymentModelMismatch = errors.New("operation not available under this payment model")

	// ErrMarginChargeFailed wraps a margin charge failure that happened after
	// the provider order had already been placed. The booking stays confirmed
	// with the provider; the charge is reconciled manually.
	ErrMarginChargeFailed = errors.New("margin charge failed after provider order")
)

// PaymentService runs the customer-facing charge flows for both payment
// models.
type PaymentService struct {
	bookings BookingStore
	gateway  PaymentGateway
	orders   *OrderService
	vault    *vault.Vault
	model    PaymentModel
	logger   *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	bookings BookingStore,
	gateway PaymentGateway,
	orders *OrderService,
	cardVault *vault.Vault,
	model PaymentModel,
) *PaymentService {
	return &PaymentService{
		bookings: bookings,
		gateway:  gateway,
		orders:   orders,
		vault:    cardVault,
		model:    model,
		logger:   util.GetLogger(),
	}
}

// PaymentIntentResponse is returned to the client so it can confirm the
// payment with Stripe.js.
type PaymentIntentResponse struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	AmountMinor  int64  `json:"amount_minor"`
	Currency     string `json:"currency"`
}

// CreatePaymentIntent creates (or returns the already-attached) PaymentIntent
// for the booking's full total, net of any voucher discount. Merchant model
// only; settlement happens later, through the verified webhook.
func (p *PaymentService) CreatePaymentIntent(ctx context.Context, bookingID int64) (*PaymentIntentResponse, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.CreatePaymentIntent")
	defer span.End()

	if p.model != ModelMerchant {
		return nil, fmt.Errorf("%w: payment intents belong to the merchant model", ErrPaymentModelMismatch)
	}

	booking, err := p.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.PaymentReference.Valid {
		intent, err := p.gateway.RetrieveIntent(ctx, booking.PaymentReference.String)
		if err != nil {
			return nil, err
		}
		return &PaymentIntentResponse{
			IntentID:     intent.ID,
			ClientSecret: intent.ClientSecret,
			AmountMinor:  intent.Amount,
			Currency:     intent.Currency,
		}, nil
	}

	amountMinor := pricing.MinorUnits(booking.TotalAmount, booking.Currency)
	if amountMinor <= 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrInvalidChargeAmount, booking.TotalAmount, booking.Currency)
	}

	intent, err := p.gateway.CreateIntent(ctx, amountMinor, booking.Currency, map[string]string{
		"booking_id":        strconv.FormatInt(booking.ID, 10),
		"booking_reference": booking.Reference,
	})
	if err != nil {
		return nil, err
	}

	if err := p.bookings.SetPaymentReference(ctx, booking.ID, intent.ID); err != nil {
		return nil, fmt.Errorf("failed to attach payment reference: %w", err)
	}

	util.PaymentIntentsCreatedTotal.Inc()
	p.logger.Info("PaymentIntent created",
		zap.Int64("booking_id", booking.ID),
		zap.String("intent_id", intent.ID),
		zap.Int64("amount_minor", amountMinor),
		zap.String("currency", booking.Currency))

	return &PaymentIntentResponse{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		AmountMinor:  amountMinor,
		Currency:     booking.Currency,
	}, nil
}

// MarginChargeResponse reports the outcome of the one-step flow.
type MarginChargeResponse struct {
	ProviderOrderID string `json:"provider_order_id"`
	IntentID        string `json:"intent_id"`
	AmountMinor     int64  `json:"amount_minor"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
}

// ChargeMargin runs the agency-model one-step flow: the guest's vaulted card
// pays the provider for the inventory, then the same card is charged only the
// agency margin. The margin amount is validated before any side effect.
func (p *PaymentService) ChargeMargin(ctx context.Context, bookingID int64) (*MarginChargeResponse, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.ChargeMargin")
	defer span.End()

	if p.model != ModelAgency {
		return nil, fmt.Errorf("%w: one-step charge belongs to the agency model", ErrPaymentModelMismatch)
	}

	booking, err := p.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ProviderBookingID.Valid {
		return nil, fmt.Errorf("booking %d already has a provider order", bookingID)
	}

	margin := MarginAmount(booking)
	amountMinor := pricing.MinorUnits(margin, booking.Currency)
	if amountMinor <= 0 {
		return nil, fmt.Errorf("%w: margin %s %s", ErrInvalidChargeAmount, margin, booking.Currency)
	}

	if !booking.HasVaultedCard() {
		return nil, fmt.Errorf("%w for the one-step charge", ErrPaymentMethodRequired)
	}

	// Decrypt once. SetProviderOrder clears the blob, so the margin charge
	// below works from this local copy only.
	card, err := p.vault.Decrypt(*booking.BookingData.PaymentCardInfo.Encrypted)
	if err != nil {
		return nil, err
	}

	order, err := p.orders.PlaceOrder(ctx, booking, &card)
	if err != nil {
		return nil, err
	}

	intent, err := p.chargeCard(ctx, booking, card, amountMinor)
	if err != nil {
		util.MarginChargeFailuresTotal.Inc()
		p.recordChargeFailure(ctx, booking, err)
		return nil, fmt.Errorf("%w: %v", ErrMarginChargeFailed, err)
	}

	info := models.PaymentInfo{
		IntentID:       intent.ID,
		AmountReceived: intent.AmountReceived,
		Currency:       booking.Currency,
		Status:         intent.Status,
		Verified:       true,
		VerifiedAt:     time.Now().UTC(),
	}
	if _, err := p.bookings.UpdateBookingPayment(ctx, booking.ID,
		models.BookingStatusConfirmed, models.PaymentStatusCompleted, info); err != nil {
		return nil, fmt.Errorf("failed to record margin payment: %w", err)
	}

	util.MarginChargesTotal.Inc()
	p.logger.Info("Margin charged",
		zap.Int64("booking_id", booking.ID),
		zap.String("intent_id", intent.ID),
		zap.Int64("amount_minor", amountMinor),
		zap.String("provider_order_id", order.ID))

	return &MarginChargeResponse{
		ProviderOrderID: order.ID,
		IntentID:        intent.ID,
		AmountMinor:     amountMinor,
		Currency:        booking.Currency,
		Status:          intent.Status,
	}, nil
}

func (p *PaymentService) chargeCard(ctx context.Context, booking *models.Booking, card vault.Card, amountMinor int64) (*stripeclient.Intent, error) {
	methodID, err := p.gateway.CreatePaymentMethod(ctx, card)
	if err != nil {
		return nil, err
	}

	created, err := p.gateway.CreateIntent(ctx, amountMinor, booking.Currency, map[string]string{
		"booking_id":        strconv.FormatInt(booking.ID, 10),
		"booking_reference": booking.Reference,
		"charge_kind":       "margin",
	})
	if err != nil {
		return nil, err
	}

	if err := p.bookings.SetPaymentReference(ctx, booking.ID, created.ID); err != nil {
		p.logger.Error("Failed to attach payment reference",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err))
	}

	confirmed, err := p.gateway.ConfirmIntent(ctx, created.ID, methodID)
	if err != nil {
		return nil, err
	}
	if confirmed.Status != "succeeded" {
		return nil, fmt.Errorf("margin intent %s ended in status %s", confirmed.ID, confirmed.Status)
	}
	return confirmed, nil
}

// recordChargeFailure marks the margin failure on the booking. The provider
// order stands: inventory is committed, so the booking stays CONFIRMED and
// the charge is left to reconciliation.
func (p *PaymentService) recordChargeFailure(ctx context.Context, booking *models.Booking, cause error) {
	p.logger.Error("Margin charge failed after provider order",
		zap.Int64("booking_id", booking.ID),
		zap.Error(cause))

	oe := models.OrderError{
		Code:       "margin_charge_failed",
		Title:      "margin charge failed",
		Detail:     cause.Error(),
		OccurredAt: time.Now().UTC(),
	}
	if err := p.bookings.RecordMarginChargeError(ctx, booking.ID, oe); err != nil {
		p.logger.Error("Failed to record margin charge error",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err))
	}

	if err := p.bookings.UpdateBookingStatus(ctx, booking.ID, models.BookingStatusConfirmed); err != nil {
		p.logger.Error("Failed to confirm booking after margin failure",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err))
	}
}

// MarginAmount is the agency's take: markup plus service fee, pro-rated by
// any voucher discount so the discount is carried by the margin, not the
// provider's share.
func MarginAmount(b *models.Booking) decimal.Decimal {
	margin := b.MarkupAmount.Add(b.ServiceFee)
	if b.VoucherDiscount.Valid && b.TotalAmount.IsPositive() {
		factor := decimal.NewFromInt(1).Sub(b.VoucherDiscount.Decimal.Div(b.TotalAmount))
		margin = margin.Mul(factor)
	}
	return pricing.Round(margin, b.Currency)
}
