package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/models"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/providers"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/stripeclient"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/vault"
)

type MockBookingStore struct {
	mock.Mock
}

func (m *MockBookingStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBookingStore) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingStore) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingStore) GetBookingByPaymentReference(ctx context.Context, paymentRef string) (*models.Booking, error) {
	args := m.Called(ctx, paymentRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingStore) SetPaymentReference(ctx context.Context, bookingID int64, paymentRef string) error {
	args := m.Called(ctx, bookingID, paymentRef)
	return args.Error(0)
}

func (m *MockBookingStore) UpdateBookingPayment(ctx context.Context, bookingID int64, status models.BookingStatus, paymentStatus models.PaymentStatus, info models.PaymentInfo, fromStatuses ...models.BookingStatus) (bool, error) {
	callArgs := []interface{}{ctx, bookingID, status, paymentStatus, info}
	for _, st := range fromStatuses {
		callArgs = append(callArgs, st)
	}
	args := m.Called(callArgs...)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingStore) UpdateBookingStatus(ctx context.Context, bookingID int64, status models.BookingStatus) error {
	args := m.Called(ctx, bookingID, status)
	return args.Error(0)
}

func (m *MockBookingStore) SetProviderOrder(ctx context.Context, bookingID int64, orderID string, data models.ProviderData) error {
	args := m.Called(ctx, bookingID, orderID, data)
	return args.Error(0)
}

func (m *MockBookingStore) RecordOrderError(ctx context.Context, bookingID int64, oe models.OrderError) error {
	args := m.Called(ctx, bookingID, oe)
	return args.Error(0)
}

func (m *MockBookingStore) RecordMarginChargeError(ctx context.Context, bookingID int64, oe models.OrderError) error {
	args := m.Called(ctx, bookingID, oe)
	return args.Error(0)
}

type MockVoucherStore struct {
	mock.Mock
}

func (m *MockVoucherStore) GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Voucher), args.Error(1)
}

func (m *MockVoucherStore) MarkVoucherUsed(ctx context.Context, voucherID, bookingID int64) (bool, error) {
	args := m.Called(ctx, voucherID, bookingID)
	return args.Bool(0), args.Error(1)
}

type MockMarkupStore struct {
	mock.Mock
}

func (m *MockMarkupStore) FindActiveMarkup(ctx context.Context, productType models.ProductType, currency string) (*models.MarkupConfig, error) {
	args := m.Called(ctx, productType, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MarkupConfig), args.Error(1)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindOrCreateUserByEmail(ctx context.Context, email, name string) (*models.User, error) {
	args := m.Called(ctx, email, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockEventStore struct {
	mock.Mock
}

func (m *MockEventStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEventStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	args := m.Called(ctx, eventID, eventType)
	return args.Error(0)
}

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*stripeclient.Intent, error) {
	args := m.Called(ctx, amountMinor, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripeclient.Intent), args.Error(1)
}

func (m *MockPaymentGateway) RetrieveIntent(ctx context.Context, id string) (*stripeclient.Intent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripeclient.Intent), args.Error(1)
}

func (m *MockPaymentGateway) CreatePaymentMethod(ctx context.Context, card vault.Card) (string, error) {
	args := m.Called(ctx, card)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentGateway) ConfirmIntent(ctx context.Context, id, paymentMethodID string) (*stripeclient.Intent, error) {
	args := m.Called(ctx, id, paymentMethodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripeclient.Intent), args.Error(1)
}

type MockFlightProvider struct {
	mock.Mock
}

func (m *MockFlightProvider) CreateOrder(ctx context.Context, req providers.FlightOrderRequest) (*providers.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.Order), args.Error(1)
}

type MockHotelProvider struct {
	mock.Mock
}

func (m *MockHotelProvider) CreateHotelOrder(ctx context.Context, req providers.HotelOrderRequest) (*providers.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.Order), args.Error(1)
}

func (m *MockHotelProvider) CreateTransferOrder(ctx context.Context, req providers.TransferOrderRequest) (*providers.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.Order), args.Error(1)
}

type MockLoyaltyService struct {
	mock.Mock
}

func (m *MockLoyaltyService) EarnPointsFromBooking(ctx context.Context, b *models.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishPaymentCompleted(ctx context.Context, event *models.PaymentCompletedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBookingRefunded(ctx context.Context, event *models.BookingRefundedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishOrderFailed(ctx context.Context, event *models.OrderFailedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
