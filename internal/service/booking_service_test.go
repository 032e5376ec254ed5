package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/models"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/pricing"
)

func activeMarkup() *models.MarkupConfig {
	return &models.MarkupConfig{
		ID:               1,
		ProductType:      models.ProductFlightDomestic,
		Currency:         "USD",
		MarkupPercentage: decimal.NewFromInt(10),
		ServiceFeeAmount: decimal.NewFromInt(5),
		IsActive:         true,
	}
}

func flightRequest() *CreateFlightBookingRequest {
	return &CreateFlightBookingRequest{
		BookingRequest: BookingRequest{
			Currency:             "USD",
			BasePrice:            "100",
			ContactEmail:         "Traveller@Example.com",
			ContactName:          "T Traveller",
			PolicyAccepted:       true,
			PolicySnapshot:       "Non-refundable after 2026-09-01",
			CancellationDeadline: time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		},
		OfferID: "off_1",
		Passengers: []models.Passenger{
			{Type: "adult", GivenName: "T", FamilyName: "Traveller", DateOfBirth: "1990-01-01"},
		},
	}
}

type bookingFixture struct {
	bookings  *MockBookingStore
	vouchers  *MockVoucherStore
	markups   *MockMarkupStore
	users     *MockUserStore
	publisher *MockEventPublisher
	svc       *BookingService
}

func newBookingFixture(t *testing.T, model PaymentModel) *bookingFixture {
	t.Helper()
	f := &bookingFixture{
		bookings:  &MockBookingStore{},
		vouchers:  &MockVoucherStore{},
		markups:   &MockMarkupStore{},
		users:     &MockUserStore{},
		publisher: &MockEventPublisher{},
	}
	f.svc = NewBookingService(f.bookings, f.vouchers, f.markups, f.users,
		newTestVault(t), f.publisher, model)
	return f
}

func TestCreateFlightBookingSuccess(t *testing.T) {
	f := newBookingFixture(t, ModelMerchant)
	ctx := context.Background()
	req := flightRequest()

	f.markups.On("FindActiveMarkup", mock.Anything, models.ProductFlightDomestic, "USD").
		Return(activeMarkup(), nil).Once()
	f.bookings.On("CreateBooking", mock.Anything, mock.MatchedBy(func(b *models.Booking) bool {
		return b.Status == models.BookingStatusPending &&
			b.PaymentStatus == models.PaymentStatusPending &&
			b.TotalAmount.Equal(decimal.NewFromInt(115)) &&
			b.ContactEmail == "traveller@example.com" &&
			b.BookingData.OfferID == "off_1"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Booking).ID = 42
	}).Return(nil).Once()
	f.publisher.On("PublishBookingCreated", mock.Anything, mock.AnythingOfType("*models.BookingCreatedEvent")).Return(nil).Once()

	resp, err := f.svc.CreateFlightBooking(ctx, 7, req)
	require.NoError(t, err)
	assert.Equal(t, int64(42), resp.BookingID)
	assert.Equal(t, string(models.BookingStatusPending), resp.Status)
	assert.Equal(t, "115", resp.TotalAmount)
	assert.NotEmpty(t, resp.Reference)

	f.bookings.AssertExpectations(t)
	f.markups.AssertExpectations(t)
}

func TestCreateBookingRejectsPolicyNotAccepted(t *testing.T) {
	f := newBookingFixture(t, ModelMerchant)
	req := flightRequest()
	req.PolicyAccepted = false

	_, err := f.svc.CreateFlightBooking(context.Background(), 7, req)
	assert.ErrorIs(t, err, ErrPolicyNotAccepted)

	// No booking row, not even a markup lookup.
	f.markups.AssertNotCalled(t, "FindActiveMarkup", mock.Anything, mock.Anything, mock.Anything)
	f.bookings.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestCreateBookingRejectsBadDeadline(t *testing.T) {
	f := newBookingFixture(t, ModelMerchant)
	req := flightRequest()
	req.CancellationDeadline = "next tuesday"

	_, err := f.svc.CreateFlightBooking(context.Background(), 7, req)
	assert.ErrorIs(t, err, ErrInvalidDeadline)

	f.bookings.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestCreateBookingRequiresMarkupConfig(t *testing.T) {
	f := newBookingFixture(t, ModelMerchant)
	req := flightRequest()

	f.markups.On("FindActiveMarkup", mock.Anything, models.ProductFlightDomestic, "USD").
		Return(nil, nil).Once()

	_, err := f.svc.CreateFlightBooking(context.Background(), 7, req)
	assert.ErrorIs(t, err, pricing.ErrConfigNotFound)

	f.bookings.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestCreateBookingAgencyModelRequiresCard(t *testing.T) {
	f := newBookingFixture(t, ModelAgency)
	req := flightRequest()
	req.Card = nil

	f.markups.On("FindActiveMarkup", mock.Anything, models.ProductFlightDomestic, "USD").
		Return(activeMarkup(), nil).Once()

	_, err := f.svc.CreateFlightBooking(context.Background(), 7, req)
	assert.ErrorIs(t, err, ErrPaymentMethodRequired)

	f.bookings.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestCreateBookingVaultsCard(t *testing.T) {
	f := newBookingFixture(t, ModelAgency)
	req := flightRequest()
	req.Card = &CardRequest{Number: "4242424242424242", ExpMonth: 9, ExpYear: 2031, CVC: "314", Holder: "T Traveller"}

	f.markups.On("FindActiveMarkup", mock.Anything, models.ProductFlightDomestic, "USD").
		Return(activeMarkup(), nil).Once()
	f.bookings.On("CreateBooking", mock.Anything, mock.MatchedBy(func(b *models.Booking) bool {
		info := b.BookingData.PaymentCardInfo
		return info != nil && info.Encrypted != nil && *info.Encrypted != "" &&
			info.Last4 == "4242" && b.HasVaultedCard()
	})).Return(nil).Once()
	f.publisher.On("PublishBookingCreated", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.svc.CreateFlightBooking(context.Background(), 7, req)
	require.NoError(t, err)

	f.bookings.AssertExpectations(t)
}

func TestCreateBookingAppliesVoucher(t *testing.T) {
	f := newBookingFixture(t, ModelMerchant)
	req := flightRequest()
	req.VoucherCode = "SAVE15"

	f.markups.On("FindActiveMarkup", mock.Anything, models.ProductFlightDomestic, "USD").
		Return(activeMarkup(), nil).Once()
	f.vouchers.On("GetVoucherByCode", mock.Anything, "SAVE15").Return(&models.Voucher{
		ID:            9,
		Code:          "SAVE15",
		DiscountType:  models.DiscountFixedAmount,
		DiscountValue: decimal.NewFromInt(15),
		Currency:      "USD",
		Status:        models.VoucherStatusActive,
	}, nil).Once()
	f.bookings.On("CreateBooking", mock.Anything, mock.MatchedBy(func(b *models.Booking) bool {
		return b.VoucherID.Valid && b.VoucherID.Int64 == 9 &&
			b.VoucherDiscount.Decimal.Equal(decimal.NewFromInt(15)) &&
			b.TotalAmount.Equal(decimal.NewFromInt(100))
	})).Return(nil).Once()
	f.publisher.On("PublishBookingCreated", mock.Anything, mock.Anything).Return(nil).Once()

	resp, err := f.svc.CreateFlightBooking(context.Background(), 7, req)
	require.NoError(t, err)
	assert.Equal(t, "100", resp.TotalAmount)
	assert.Equal(t, "15", resp.VoucherDiscount)

	f.vouchers.AssertExpectations(t)
}

func TestCreateBookingRejectsUsedVoucher(t *testing.T) {
	f := newBookingFixture(t, ModelMerchant)
	req := flightRequest()
	req.VoucherCode = "USED1"

	f.markups.On("FindActiveMarkup", mock.Anything, models.ProductFlightDomestic, "USD").
		Return(activeMarkup(), nil).Once()
	f.vouchers.On("GetVoucherByCode", mock.Anything, "USED1").Return(&models.Voucher{
		ID: 10, Code: "USED1", Status: models.VoucherStatusUsed,
	}, nil).Once()

	_, err := f.svc.CreateFlightBooking(context.Background(), 7, req)
	assert.ErrorIs(t, err, ErrVoucherInvalid)

	f.bookings.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestCreateBookingDerivesBaseFromQuotedTotal(t *testing.T) {
	f := newBookingFixture(t, ModelMerchant)
	req := flightRequest()
	req.BasePrice = ""
	req.QuotedTotal = "115"

	f.markups.On("FindActiveMarkup", mock.Anything, models.ProductFlightDomestic, "USD").
		Return(activeMarkup(), nil).Once()
	f.bookings.On("CreateBooking", mock.Anything, mock.MatchedBy(func(b *models.Booking) bool {
		return b.BasePrice.Equal(decimal.NewFromInt(100)) &&
			b.TotalAmount.Equal(decimal.NewFromInt(115))
	})).Return(nil).Once()
	f.publisher.On("PublishBookingCreated", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.svc.CreateFlightBooking(context.Background(), 7, req)
	require.NoError(t, err)

	f.bookings.AssertExpectations(t)
}

func TestCreateGuestBookingResolvesUser(t *testing.T) {
	f := newBookingFixture(t, ModelMerchant)
	req := flightRequest()

	f.users.On("FindOrCreateUserByEmail", mock.Anything, "traveller@example.com", "T Traveller").
		Return(&models.User{ID: 77, Email: "traveller@example.com", IsGuest: true}, nil).Once()
	f.markups.On("FindActiveMarkup", mock.Anything, models.ProductFlightDomestic, "USD").
		Return(activeMarkup(), nil).Once()
	f.bookings.On("CreateBooking", mock.Anything, mock.MatchedBy(func(b *models.Booking) bool {
		return b.UserID == 77
	})).Return(nil).Once()
	f.publisher.On("PublishBookingCreated", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.svc.CreateGuestFlightBooking(context.Background(), req)
	require.NoError(t, err)

	f.users.AssertExpectations(t)
	f.bookings.AssertExpectations(t)
}
