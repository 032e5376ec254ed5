package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/models"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/providers"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/store"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/util"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/vault"
)

// ErrNoProviderCard is returned when a provider order needs a card and the
// booking has none left to decrypt.
var ErrNoProviderCard = errors.New("no card available for provider payment")

// OrderService places orders with the travel providers after payment has
// settled (or, in the one-step flow, before the margin charge). A failure
// here is recorded on the booking and never touches payment state.
type OrderService struct {
	bookings   BookingStore
	flights    FlightProvider
	hotels     HotelProvider
	vault      *vault.Vault
	publisher  EventPublisher
	model      PaymentModel
	agencyCard *vault.Card
	logger     *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	bookings BookingStore,
	flights FlightProvider,
	hotels HotelProvider,
	cardVault *vault.Vault,
	publisher EventPublisher,
	model PaymentModel,
	agencyCard *vault.Card,
) *OrderService {
	return &OrderService{
		bookings:   bookings,
		flights:    flights,
		hotels:     hotels,
		vault:      cardVault,
		publisher:  publisher,
		model:      model,
		agencyCard: agencyCard,
		logger:     util.GetLogger(),
	}
}

// CreateProviderOrder loads the booking, resolves the paying card and places
// the order. Safe to call again after a partial failure: an already-set
// provider order id makes it a no-op.
func (o *OrderService) CreateProviderOrder(ctx context.Context, bookingID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateProviderOrder")
	defer span.End()

	booking, err := o.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.ProviderBookingID.Valid {
		o.logger.Info("Provider order already exists",
			zap.Int64("booking_id", bookingID),
			zap.String("provider_order_id", booking.ProviderBookingID.String))
		return nil
	}

	card, err := o.resolveCard(booking)
	if err != nil {
		o.recordFailure(ctx, booking, err)
		return err
	}

	_, err = o.PlaceOrder(ctx, booking, card)
	return err
}

// PlaceOrder calls the provider for an already-resolved card. The one-step
// flow uses it directly because it has to decrypt the card before the blob
// is cleared.
func (o *OrderService) PlaceOrder(ctx context.Context, booking *models.Booking, card *vault.Card) (*providers.Order, error) {
	payment := providers.Payment{
		Card:     card,
		Amount:   booking.BasePrice.String(),
		Currency: booking.Currency,
	}

	start := time.Now()
	order, err := o.dispatch(ctx, booking, payment)
	util.ProviderOrderLatency.WithLabelValues(string(booking.Provider)).Observe(time.Since(start).Seconds())
	if err != nil {
		o.recordFailure(ctx, booking, err)
		return nil, err
	}

	data := models.ProviderData{Response: order.Raw}
	if err := o.bookings.SetProviderOrder(ctx, booking.ID, order.ID, data); err != nil {
		if errors.Is(err, store.ErrProviderOrderAlreadySet) {
			o.logger.Warn("Provider order raced an existing one",
				zap.Int64("booking_id", booking.ID),
				zap.String("provider_order_id", order.ID))
			return order, nil
		}
		return nil, fmt.Errorf("failed to record provider order: %w", err)
	}

	util.ProviderOrdersCreatedTotal.WithLabelValues(string(booking.Provider)).Inc()
	o.logger.Info("Provider order created",
		zap.Int64("booking_id", booking.ID),
		zap.String("provider", string(booking.Provider)),
		zap.String("provider_order_id", order.ID))

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		BookingID:       booking.ID,
		Reference:       booking.Reference,
		Provider:        booking.Provider,
		ProviderOrderID: order.ID,
	}
	if err := o.publisher.PublishOrderCreated(ctx, event); err != nil {
		o.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return order, nil
}

func (o *OrderService) dispatch(ctx context.Context, booking *models.Booking, payment providers.Payment) (*providers.Order, error) {
	data := booking.BookingData

	switch booking.ProductType {
	case models.ProductFlightDomestic, models.ProductFlightInternational:
		return o.flights.CreateOrder(ctx, providers.FlightOrderRequest{
			OfferID:    data.OfferID,
			Passengers: data.Passengers,
			Payment:    payment,
		})
	case models.ProductHotel:
		return o.hotels.CreateHotelOrder(ctx, providers.HotelOrderRequest{
			OfferID: data.OfferID,
			Guests:  data.Guests,
			Rooms:   data.Rooms,
			Payment: payment,
		})
	case models.ProductCarRental:
		return o.hotels.CreateTransferOrder(ctx, providers.TransferOrderRequest{
			OfferID:    data.OfferID,
			Passengers: data.Guests,
			Payment:    payment,
		})
	default:
		return nil, fmt.Errorf("unsupported product type %q", booking.ProductType)
	}
}

// resolveCard picks the paying card: the configured agency card under the
// merchant model, the booking's vaulted guest card under the agency model.
func (o *OrderService) resolveCard(booking *models.Booking) (*vault.Card, error) {
	if o.model == ModelMerchant {
		if o.agencyCard == nil {
			return nil, fmt.Errorf("%w: agency card not configured", ErrNoProviderCard)
		}
		return o.agencyCard, nil
	}

	if !booking.HasVaultedCard() {
		return nil, fmt.Errorf("%w: booking %d has no vaulted card", ErrNoProviderCard, booking.ID)
	}
	card, err := o.vault.Decrypt(*booking.BookingData.PaymentCardInfo.Encrypted)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// recordFailure writes the sanitized error onto the booking and emits the
// order_failed event. Payment state is not touched.
func (o *OrderService) recordFailure(ctx context.Context, booking *models.Booking, cause error) {
	util.ProviderOrderFailuresTotal.WithLabelValues(string(booking.Provider)).Inc()
	o.logger.Error("Provider order failed",
		zap.Int64("booking_id", booking.ID),
		zap.String("provider", string(booking.Provider)),
		zap.Error(cause))

	oe := sanitizeOrderError(cause)
	if err := o.bookings.RecordOrderError(ctx, booking.ID, oe); err != nil {
		o.logger.Error("Failed to record order error",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err))
	}

	event := &models.OrderFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderFailed,
			Timestamp: time.Now(),
		},
		BookingID: booking.ID,
		Reference: booking.Reference,
		Provider:  booking.Provider,
		Reason:    oe.Title,
	}
	if err := o.publisher.PublishOrderFailed(ctx, event); err != nil {
		o.logger.Error("Failed to publish OrderFailed event", zap.Error(err))
	}
}

// sanitizeOrderError maps any failure to the shape stored on the booking.
// Provider API errors keep their status/code/title; everything else becomes
// a generic internal failure so card material can never leak into the row.
func sanitizeOrderError(err error) models.OrderError {
	var apiErr *providers.APIError
	if errors.As(err, &apiErr) {
		return models.OrderError{
			Status:     apiErr.StatusCode,
			Code:       apiErr.Code,
			Title:      apiErr.Title,
			Detail:     apiErr.Detail,
			OccurredAt: time.Now().UTC(),
		}
	}
	return models.OrderError{
		Code:       "internal_error",
		Title:      "provider order failed",
		OccurredAt: time.Now().UTC(),
	}
}
