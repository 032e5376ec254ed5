package service

import (
	"context"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/broker"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/models"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/providers"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/store"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/stripeclient"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/vault"
)

// Narrow store views so each service declares only the queries it runs and
// tests can mock them.

type BookingStore interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBookingByID(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	GetBookingByPaymentReference(ctx context.Context, paymentRef string) (*models.Booking, error)
	SetPaymentReference(ctx context.Context, bookingID int64, paymentRef string) error
	UpdateBookingPayment(ctx context.Context, bookingID int64, status models.BookingStatus, paymentStatus models.PaymentStatus, info models.PaymentInfo, fromStatuses ...models.BookingStatus) (bool, error)
	UpdateBookingStatus(ctx context.Context, bookingID int64, status models.BookingStatus) error
	SetProviderOrder(ctx context.Context, bookingID int64, orderID string, data models.ProviderData) error
	RecordOrderError(ctx context.Context, bookingID int64, oe models.OrderError) error
	RecordMarginChargeError(ctx context.Context, bookingID int64, oe models.OrderError) error
}

type VoucherStore interface {
	GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error)
	MarkVoucherUsed(ctx context.Context, voucherID, bookingID int64) (bool, error)
}

type MarkupStore interface {
	FindActiveMarkup(ctx context.Context, productType models.ProductType, currency string) (*models.MarkupConfig, error)
}

type UserStore interface {
	FindOrCreateUserByEmail(ctx context.Context, email, name string) (*models.User, error)
}

type EventStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// PaymentGateway is the payment provider surface the engine depends on.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*stripeclient.Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*stripeclient.Intent, error)
	CreatePaymentMethod(ctx context.Context, card vault.Card) (string, error)
	ConfirmIntent(ctx context.Context, id, paymentMethodID string) (*stripeclient.Intent, error)
}

// FlightProvider places flight orders against priced offers.
type FlightProvider interface {
	CreateOrder(ctx context.Context, req providers.FlightOrderRequest) (*providers.Order, error)
}

// HotelProvider places hotel and ground-transfer orders.
type HotelProvider interface {
	CreateHotelOrder(ctx context.Context, req providers.HotelOrderRequest) (*providers.Order, error)
	CreateTransferOrder(ctx context.Context, req providers.TransferOrderRequest) (*providers.Order, error)
}

// LoyaltyService accrues reward points once a booking settles.
type LoyaltyService interface {
	EarnPointsFromBooking(ctx context.Context, b *models.Booking) error
}

// EventPublisher emits settlement domain events.
type EventPublisher interface {
	PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error
	PublishPaymentCompleted(ctx context.Context, event *models.PaymentCompletedEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
	PublishBookingRefunded(ctx context.Context, event *models.BookingRefundedEvent) error
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderFailed(ctx context.Context, event *models.OrderFailedEvent) error
}

var (
	_ BookingStore   = (*store.Store)(nil)
	_ VoucherStore   = (*store.Store)(nil)
	_ MarkupStore    = (*store.Store)(nil)
	_ UserStore      = (*store.Store)(nil)
	_ EventStore     = (*store.Store)(nil)
	_ PaymentGateway = (*stripeclient.Client)(nil)
	_ FlightProvider = (*providers.DuffelClient)(nil)
	_ HotelProvider  = (*providers.AmadeusClient)(nil)
	_ EventPublisher = (*broker.EventPublisher)(nil)
)
