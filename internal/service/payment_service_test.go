package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/models"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/pricing"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/providers"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/stripeclient"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/vault"
)

const testVaultKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func newTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	cipher, err := vault.NewAESCipher(testVaultKey)
	require.NoError(t, err)
	return vault.New(cipher)
}

// vaultedBooking returns an agency-model booking carrying an encrypted guest
// card: base 100, markup 10, fee 5, voucher 15, total net 100.
func vaultedBooking(t *testing.T, v *vault.Vault) *models.Booking {
	t.Helper()
	blob, err := v.Encrypt(vault.Card{
		Number: "4242424242424242", ExpMonth: 9, ExpYear: 2031, CVC: "314", Holder: "T Traveller",
	})
	require.NoError(t, err)

	b := pendingBooking()
	b.TotalAmount = decimal.NewFromInt(100)
	b.VoucherID = sql.NullInt64{Int64: 9, Valid: true}
	b.VoucherDiscount = decimal.NullDecimal{Decimal: decimal.NewFromInt(15), Valid: true}
	b.BookingData.PaymentCardInfo = &models.CardInfo{
		Encrypted: &blob, Last4: "4242", ExpMonth: 9, ExpYear: 2031, Holder: "T Traveller",
	}
	return b
}

func TestMarginAmountProRatesVoucher(t *testing.T) {
	b := pendingBooking()
	b.TotalAmount = decimal.NewFromInt(100)
	b.VoucherDiscount = decimal.NullDecimal{Decimal: decimal.NewFromInt(15), Valid: true}

	margin := MarginAmount(b)

	// (10 + 5) * (1 - 15/100) = 12.75
	assert.True(t, margin.Equal(decimal.RequireFromString("12.75")), "got %s", margin)
	assert.Equal(t, int64(1275), pricing.MinorUnits(margin, "USD"))
}

func TestMarginAmountWithoutVoucher(t *testing.T) {
	b := pendingBooking()
	margin := MarginAmount(b)
	assert.True(t, margin.Equal(decimal.NewFromInt(15)), "got %s", margin)
}

func TestChargeMarginRejectsZeroAmount(t *testing.T) {
	bookings := &MockBookingStore{}
	gateway := &MockPaymentGateway{}
	flights := &MockFlightProvider{}
	hotels := &MockHotelProvider{}
	publisher := &MockEventPublisher{}

	orders := NewOrderService(bookings, flights, hotels, nil, publisher, ModelAgency, nil)
	svc := NewPaymentService(bookings, gateway, orders, nil, ModelAgency)

	booking := pendingBooking()
	booking.MarkupAmount = decimal.Zero
	booking.ServiceFee = decimal.Zero
	bookings.On("GetBookingByID", mock.Anything, int64(42)).Return(booking, nil).Once()

	_, err := svc.ChargeMargin(context.Background(), 42)
	assert.ErrorIs(t, err, ErrInvalidChargeAmount)

	flights.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	gateway.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChargeMarginWrongModel(t *testing.T) {
	svc := NewPaymentService(&MockBookingStore{}, &MockPaymentGateway{}, nil, nil, ModelMerchant)

	_, err := svc.ChargeMargin(context.Background(), 42)
	assert.ErrorIs(t, err, ErrPaymentModelMismatch)
}

func TestChargeMarginOneStepSuccess(t *testing.T) {
	v := newTestVault(t)
	bookings := &MockBookingStore{}
	gateway := &MockPaymentGateway{}
	flights := &MockFlightProvider{}
	hotels := &MockHotelProvider{}
	publisher := &MockEventPublisher{}

	orders := NewOrderService(bookings, flights, hotels, v, publisher, ModelAgency, nil)
	svc := NewPaymentService(bookings, gateway, orders, v, ModelAgency)

	booking := vaultedBooking(t, v)
	ctx := context.Background()

	bookings.On("GetBookingByID", mock.Anything, int64(42)).Return(booking, nil).Once()
	flights.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req providers.FlightOrderRequest) bool {
		return req.OfferID == "off_1" && req.Payment.Card != nil && req.Payment.Card.Number == "4242424242424242"
	})).Return(&providers.Order{ID: "ord_7"}, nil).Once()
	bookings.On("SetProviderOrder", mock.Anything, int64(42), "ord_7", mock.AnythingOfType("models.ProviderData")).Return(nil).Once()
	publisher.On("PublishOrderCreated", mock.Anything, mock.AnythingOfType("*models.OrderCreatedEvent")).Return(nil).Once()

	gateway.On("CreatePaymentMethod", mock.Anything, mock.AnythingOfType("vault.Card")).Return("pm_1", nil).Once()
	gateway.On("CreateIntent", mock.Anything, int64(1275), "USD", mock.Anything).Return(&stripeclient.Intent{
		ID: "pi_margin", ClientSecret: "cs", Status: "requires_confirmation", Amount: 1275,
	}, nil).Once()
	bookings.On("SetPaymentReference", mock.Anything, int64(42), "pi_margin").Return(nil).Once()
	gateway.On("ConfirmIntent", mock.Anything, "pi_margin", "pm_1").Return(&stripeclient.Intent{
		ID: "pi_margin", Status: "succeeded", Amount: 1275, AmountReceived: 1275, Currency: "USD",
	}, nil).Once()
	bookings.On("UpdateBookingPayment", mock.Anything, int64(42),
		models.BookingStatusConfirmed, models.PaymentStatusCompleted, mock.AnythingOfType("models.PaymentInfo")).Return(true, nil).Once()

	resp, err := svc.ChargeMargin(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "ord_7", resp.ProviderOrderID)
	assert.Equal(t, "pi_margin", resp.IntentID)
	assert.Equal(t, int64(1275), resp.AmountMinor)

	bookings.AssertExpectations(t)
	gateway.AssertExpectations(t)
	flights.AssertExpectations(t)
}

func TestChargeMarginFailureAfterOrderStaysConfirmed(t *testing.T) {
	v := newTestVault(t)
	bookings := &MockBookingStore{}
	gateway := &MockPaymentGateway{}
	flights := &MockFlightProvider{}
	hotels := &MockHotelProvider{}
	publisher := &MockEventPublisher{}

	orders := NewOrderService(bookings, flights, hotels, v, publisher, ModelAgency, nil)
	svc := NewPaymentService(bookings, gateway, orders, v, ModelAgency)

	booking := vaultedBooking(t, v)
	ctx := context.Background()

	bookings.On("GetBookingByID", mock.Anything, int64(42)).Return(booking, nil).Once()
	flights.On("CreateOrder", mock.Anything, mock.Anything).Return(&providers.Order{ID: "ord_8"}, nil).Once()
	bookings.On("SetProviderOrder", mock.Anything, int64(42), "ord_8", mock.Anything).Return(nil).Once()
	publisher.On("PublishOrderCreated", mock.Anything, mock.Anything).Return(nil).Once()

	gateway.On("CreatePaymentMethod", mock.Anything, mock.Anything).Return("", errors.New("raw card rejected")).Once()
	bookings.On("RecordMarginChargeError", mock.Anything, int64(42), mock.MatchedBy(func(oe models.OrderError) bool {
		return oe.Code == "margin_charge_failed"
	})).Return(nil).Once()
	bookings.On("UpdateBookingStatus", mock.Anything, int64(42), models.BookingStatusConfirmed).Return(nil).Once()

	_, err := svc.ChargeMargin(ctx, 42)
	assert.ErrorIs(t, err, ErrMarginChargeFailed)

	bookings.AssertExpectations(t)
	bookings.AssertNotCalled(t, "UpdateBookingPayment",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreatePaymentIntentFullTotal(t *testing.T) {
	bookings := &MockBookingStore{}
	gateway := &MockPaymentGateway{}
	svc := NewPaymentService(bookings, gateway, nil, nil, ModelMerchant)

	booking := pendingBooking()
	booking.PaymentReference = sql.NullString{}
	ctx := context.Background()

	bookings.On("GetBookingByID", mock.Anything, int64(42)).Return(booking, nil).Once()
	gateway.On("CreateIntent", mock.Anything, int64(11500), "USD", mock.MatchedBy(func(md map[string]string) bool {
		return md["booking_reference"] == "BK-TEST42"
	})).Return(&stripeclient.Intent{ID: "pi_new", ClientSecret: "cs_new", Amount: 11500, Currency: "USD"}, nil).Once()
	bookings.On("SetPaymentReference", mock.Anything, int64(42), "pi_new").Return(nil).Once()

	resp, err := svc.CreatePaymentIntent(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "pi_new", resp.IntentID)
	assert.Equal(t, int64(11500), resp.AmountMinor)

	bookings.AssertExpectations(t)
	gateway.AssertExpectations(t)
}

func TestCreatePaymentIntentReturnsExisting(t *testing.T) {
	bookings := &MockBookingStore{}
	gateway := &MockPaymentGateway{}
	svc := NewPaymentService(bookings, gateway, nil, nil, ModelMerchant)

	booking := pendingBooking()
	ctx := context.Background()

	bookings.On("GetBookingByID", mock.Anything, int64(42)).Return(booking, nil).Once()
	gateway.On("RetrieveIntent", mock.Anything, "pi_123").Return(&stripeclient.Intent{
		ID: "pi_123", ClientSecret: "cs_old", Amount: 11500, Currency: "USD",
	}, nil).Once()

	resp, err := svc.CreatePaymentIntent(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "pi_123", resp.IntentID)

	gateway.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProviderOrderFailureRecordsError(t *testing.T) {
	bookings := &MockBookingStore{}
	flights := &MockFlightProvider{}
	hotels := &MockHotelProvider{}
	publisher := &MockEventPublisher{}

	orders := NewOrderService(bookings, flights, hotels, nil, publisher,
		ModelMerchant, &vault.Card{Number: "4111111111111111", ExpMonth: 12, ExpYear: 2030, CVC: "123"})

	booking := pendingBooking()
	booking.Status = models.BookingStatusConfirmed
	booking.PaymentStatus = models.PaymentStatusCompleted
	ctx := context.Background()

	apiErr := &providers.APIError{StatusCode: 422, Code: "offer_expired", Title: "Offer expired"}
	bookings.On("GetBookingByID", mock.Anything, int64(42)).Return(booking, nil).Once()
	flights.On("CreateOrder", mock.Anything, mock.Anything).Return(nil, apiErr).Once()
	bookings.On("RecordOrderError", mock.Anything, int64(42), mock.MatchedBy(func(oe models.OrderError) bool {
		return oe.Status == 422 && oe.Code == "offer_expired"
	})).Return(nil).Once()
	publisher.On("PublishOrderFailed", mock.Anything, mock.AnythingOfType("*models.OrderFailedEvent")).Return(nil).Once()

	err := orders.CreateProviderOrder(ctx, 42)
	assert.Error(t, err)

	bookings.AssertExpectations(t)
	// Payment state is never touched by a fulfillment failure.
	bookings.AssertNotCalled(t, "UpdateBookingPayment",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	bookings.AssertNotCalled(t, "UpdateBookingStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestProviderOrderNoOpWhenAlreadySet(t *testing.T) {
	bookings := &MockBookingStore{}
	orders := NewOrderService(bookings, &MockFlightProvider{}, &MockHotelProvider{}, nil,
		&MockEventPublisher{}, ModelMerchant, &vault.Card{Number: "4111111111111111"})

	booking := pendingBooking()
	booking.ProviderBookingID = sql.NullString{String: "ord_existing", Valid: true}
	ctx := context.Background()

	bookings.On("GetBookingByID", mock.Anything, int64(42)).Return(booking, nil).Once()

	err := orders.CreateProviderOrder(ctx, 42)
	assert.NoError(t, err)

	bookings.AssertNotCalled(t, "SetProviderOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
