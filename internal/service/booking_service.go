package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/models"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/pricing"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/util"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/vault"
)

var (
	// ErrPolicyNotAccepted is returned when the fare rules were not accepted.
	// No booking row is created.
	ErrPolicyNotAccepted = errors.New("cancellation policy must be accepted")

	// ErrInvalidDeadline is returned when the cancellation deadline is not a
	// valid RFC3339 timestamp.
	ErrInvalidDeadline = errors.New("invalid cancellation deadline")

	// ErrPaymentMethodRequired is returned when no card was supplied and the
	// deployment's payment model cannot settle without one.
	ErrPaymentMethodRequired = errors.New("a payment card is required")

	// ErrPriceRequired is returned when neither a base price nor a quoted
	// total was supplied.
	ErrPriceRequired = errors.New("base_price or quoted_total is required")

	// ErrVoucherInvalid is returned for an unknown, used or cancelled voucher
	// code.
	ErrVoucherInvalid = errors.New("voucher is not valid")
)

// BookingService creates bookings: pricing, voucher attachment, card
// vaulting and persistence. It never talks to a travel provider; provider
// orders happen after payment settles.
type BookingService struct {
	bookings  BookingStore
	vouchers  VoucherStore
	markups   MarkupStore
	users     UserStore
	vault     *vault.Vault
	publisher EventPublisher
	model     PaymentModel
	logger    *zap.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookings BookingStore,
	vouchers VoucherStore,
	markups MarkupStore,
	users UserStore,
	cardVault *vault.Vault,
	publisher EventPublisher,
	model PaymentModel,
) *BookingService {
	return &BookingService{
		bookings:  bookings,
		vouchers:  vouchers,
		markups:   markups,
		users:     users,
		vault:     cardVault,
		publisher: publisher,
		model:     model,
		logger:    util.GetLogger(),
	}
}

// CardRequest carries raw card fields from the client. It is encrypted into
// the vault blob immediately and never persisted in the clear.
type CardRequest struct {
	Number   string `json:"number" binding:"required"`
	ExpMonth int    `json:"exp_month" binding:"required,min=1,max=12"`
	ExpYear  int    `json:"exp_year" binding:"required"`
	CVC      string `json:"cvc" binding:"required"`
	Holder   string `json:"holder,omitempty"`
}

// BookingRequest holds the fields common to every product type.
type BookingRequest struct {
	Currency             string       `json:"currency" binding:"required,len=3"`
	BasePrice            string       `json:"base_price,omitempty"`
	QuotedTotal          string       `json:"quoted_total,omitempty"`
	ContactEmail         string       `json:"contact_email" binding:"required,email"`
	ContactName          string       `json:"contact_name" binding:"required"`
	VoucherCode          string       `json:"voucher_code,omitempty"`
	Card                 *CardRequest `json:"card,omitempty"`
	PolicyAccepted       bool         `json:"policy_accepted"`
	PolicySnapshot       string       `json:"policy_snapshot" binding:"required"`
	CancellationDeadline string       `json:"cancellation_deadline" binding:"required"`

	// Set from the request context by the handler, not bound from JSON.
	ClientIP  string `json:"-"`
	UserAgent string `json:"-"`
}

// CreateFlightBookingRequest creates a flight booking from a Duffel offer.
type CreateFlightBookingRequest struct {
	BookingRequest
	OfferID       string             `json:"offer_id" binding:"required"`
	Passengers    []models.Passenger `json:"passengers" binding:"required,min=1"`
	International bool               `json:"international"`
}

// CreateHotelBookingRequest creates a hotel booking from an Amadeus offer.
type CreateHotelBookingRequest struct {
	BookingRequest
	OfferID string                   `json:"offer_id" binding:"required"`
	Guests  []models.Guest           `json:"guests" binding:"required,min=1"`
	Rooms   []models.RoomAssociation `json:"rooms" binding:"required,min=1"`
}

// CreateCarBookingRequest creates a transfer booking from an Amadeus offer.
type CreateCarBookingRequest struct {
	BookingRequest
	OfferID    string         `json:"offer_id" binding:"required"`
	Passengers []models.Guest `json:"passengers" binding:"required,min=1"`
}

// BookingResponse is returned to the client after creation.
type BookingResponse struct {
	BookingID       int64  `json:"booking_id"`
	Reference       string `json:"reference"`
	Status          string `json:"status"`
	TotalAmount     string `json:"total_amount"`
	Currency        string `json:"currency"`
	VoucherDiscount string `json:"voucher_discount,omitempty"`
}

// CreateFlightBooking creates a flight booking for an authenticated user.
func (s *BookingService) CreateFlightBooking(ctx context.Context, userID int64, req *CreateFlightBookingRequest) (*BookingResponse, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.CreateFlightBooking")
	defer span.End()

	productType := models.ProductFlightDomestic
	if req.International {
		productType = models.ProductFlightInternational
	}

	data := models.BookingData{
		OfferID:    req.OfferID,
		Passengers: req.Passengers,
	}
	return s.create(ctx, userID, productType, models.ProviderDuffel, &req.BookingRequest, data)
}

// CreateHotelBooking creates a hotel booking for an authenticated user.
func (s *BookingService) CreateHotelBooking(ctx context.Context, userID int64, req *CreateHotelBookingRequest) (*BookingResponse, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.CreateHotelBooking")
	defer span.End()

	data := models.BookingData{
		OfferID: req.OfferID,
		Guests:  req.Guests,
		Rooms:   req.Rooms,
	}
	return s.create(ctx, userID, models.ProductHotel, models.ProviderAmadeus, &req.BookingRequest, data)
}

// CreateCarBooking creates a ground-transfer booking for an authenticated user.
func (s *BookingService) CreateCarBooking(ctx context.Context, userID int64, req *CreateCarBookingRequest) (*BookingResponse, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.CreateCarBooking")
	defer span.End()

	data := models.BookingData{
		OfferID: req.OfferID,
		Guests:  req.Passengers,
	}
	return s.create(ctx, userID, models.ProductCarRental, models.ProviderAmadeus, &req.BookingRequest, data)
}

// CreateGuestFlightBooking resolves or creates a guest user by contact email
// and then creates the booking.
func (s *BookingService) CreateGuestFlightBooking(ctx context.Context, req *CreateFlightBookingRequest) (*BookingResponse, error) {
	user, err := s.guestUser(ctx, &req.BookingRequest)
	if err != nil {
		return nil, err
	}
	return s.CreateFlightBooking(ctx, user.ID, req)
}

// CreateGuestHotelBooking is the guest variant of CreateHotelBooking.
func (s *BookingService) CreateGuestHotelBooking(ctx context.Context, req *CreateHotelBookingRequest) (*BookingResponse, error) {
	user, err := s.guestUser(ctx, &req.BookingRequest)
	if err != nil {
		return nil, err
	}
	return s.CreateHotelBooking(ctx, user.ID, req)
}

// CreateGuestCarBooking is the guest variant of CreateCarBooking.
func (s *BookingService) CreateGuestCarBooking(ctx context.Context, req *CreateCarBookingRequest) (*BookingResponse, error) {
	user, err := s.guestUser(ctx, &req.BookingRequest)
	if err != nil {
		return nil, err
	}
	return s.CreateCarBooking(ctx, user.ID, req)
}

// GetBooking retrieves a booking by its customer-facing reference.
func (s *BookingService) GetBooking(ctx context.Context, reference string) (*models.Booking, error) {
	return s.bookings.GetBookingByReference(ctx, reference)
}

func (s *BookingService) guestUser(ctx context.Context, req *BookingRequest) (*models.User, error) {
	user, err := s.users.FindOrCreateUserByEmail(ctx, strings.ToLower(req.ContactEmail), req.ContactName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve guest user: %w", err)
	}
	return user, nil
}

func (s *BookingService) create(
	ctx context.Context,
	userID int64,
	productType models.ProductType,
	provider models.Provider,
	req *BookingRequest,
	data models.BookingData,
) (*BookingResponse, error) {
	if !req.PolicyAccepted {
		util.BookingsRejectedTotal.WithLabelValues("policy_not_accepted").Inc()
		return nil, ErrPolicyNotAccepted
	}

	deadline, err := time.Parse(time.RFC3339, req.CancellationDeadline)
	if err != nil {
		util.BookingsRejectedTotal.WithLabelValues("invalid_deadline").Inc()
		return nil, fmt.Errorf("%w: %q", ErrInvalidDeadline, req.CancellationDeadline)
	}

	currency := strings.ToUpper(req.Currency)

	cfg, err := s.markups.FindActiveMarkup(ctx, productType, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve markup config: %w", err)
	}
	if cfg == nil {
		util.BookingsRejectedTotal.WithLabelValues("no_markup_config").Inc()
		return nil, fmt.Errorf("%w: %s/%s", pricing.ErrConfigNotFound, productType, currency)
	}

	quote, err := s.price(req, cfg, currency)
	if err != nil {
		util.BookingsRejectedTotal.WithLabelValues("invalid_price").Inc()
		return nil, err
	}

	booking := &models.Booking{
		Reference:            newReference(),
		UserID:               userID,
		ProductType:          productType,
		Provider:             provider,
		BasePrice:            quote.BasePrice,
		MarkupAmount:         quote.MarkupAmount,
		ServiceFee:           quote.ServiceFee,
		TotalAmount:          quote.TotalAmount,
		Currency:             currency,
		Status:               models.BookingStatusPending,
		PaymentStatus:        models.PaymentStatusPending,
		PaymentProvider:      "STRIPE",
		BookingData:          data,
		ContactEmail:         strings.ToLower(req.ContactEmail),
		ContactName:          req.ContactName,
		CancellationDeadline: deadline.UTC(),
		PolicySnapshot:       req.PolicySnapshot,
		PolicyAcceptedAt:     time.Now().UTC(),
		ClientIP:             req.ClientIP,
		UserAgent:            req.UserAgent,
	}

	if req.VoucherCode != "" {
		if err := s.attachVoucher(ctx, booking, req.VoucherCode); err != nil {
			util.BookingsRejectedTotal.WithLabelValues("invalid_voucher").Inc()
			return nil, err
		}
	}

	if req.Card != nil {
		if err := s.vaultCard(booking, req.Card); err != nil {
			return nil, err
		}
	} else if s.model == ModelAgency {
		util.BookingsRejectedTotal.WithLabelValues("no_payment_method").Inc()
		return nil, fmt.Errorf("%w under the agency payment model", ErrPaymentMethodRequired)
	}

	if err := s.bookings.CreateBooking(ctx, booking); err != nil {
		util.BookingsRejectedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	util.BookingsCreatedTotal.WithLabelValues(string(productType)).Inc()
	s.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.String("reference", booking.Reference),
		zap.String("product_type", string(productType)),
		zap.String("total", booking.TotalAmount.String()),
		zap.String("currency", currency))

	event := &models.BookingCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBookingCreated,
			Timestamp: time.Now(),
		},
		BookingID:   booking.ID,
		Reference:   booking.Reference,
		ProductType: productType,
		TotalAmount: booking.TotalAmount.String(),
		Currency:    currency,
		Email:       booking.ContactEmail,
	}
	if err := s.publisher.PublishBookingCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookingCreated event", zap.Error(err))
	}

	resp := &BookingResponse{
		BookingID:   booking.ID,
		Reference:   booking.Reference,
		Status:      string(booking.Status),
		TotalAmount: booking.TotalAmount.String(),
		Currency:    currency,
	}
	if booking.VoucherDiscount.Valid {
		resp.VoucherDiscount = booking.VoucherDiscount.Decimal.String()
	}
	return resp, nil
}

// price resolves the quote either from a supplied base price or by reversing
// the markup out of a provider-quoted total.
func (s *BookingService) price(req *BookingRequest, cfg *models.MarkupConfig, currency string) (pricing.Quote, error) {
	switch {
	case req.BasePrice != "":
		base, err := decimal.NewFromString(req.BasePrice)
		if err != nil {
			return pricing.Quote{}, fmt.Errorf("%w: base_price %q", pricing.ErrInvalidPrice, req.BasePrice)
		}
		return pricing.CalculateTotal(base, cfg, currency)

	case req.QuotedTotal != "":
		final, err := decimal.NewFromString(req.QuotedTotal)
		if err != nil {
			return pricing.Quote{}, fmt.Errorf("%w: quoted_total %q", pricing.ErrInvalidPrice, req.QuotedTotal)
		}
		base, err := pricing.DeriveBasePrice(final, cfg, currency)
		if err != nil {
			return pricing.Quote{}, err
		}
		return pricing.CalculateTotal(base, cfg, currency)

	default:
		return pricing.Quote{}, ErrPriceRequired
	}
}

// attachVoucher validates the code and applies the discount to the booking
// total. The voucher itself is consumed later, at settlement.
func (s *BookingService) attachVoucher(ctx context.Context, booking *models.Booking, code string) error {
	voucher, err := s.vouchers.GetVoucherByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to look up voucher: %w", err)
	}
	if voucher == nil || voucher.Status != models.VoucherStatusActive {
		return fmt.Errorf("%w: %s", ErrVoucherInvalid, code)
	}

	discount := pricing.DiscountFor(voucher, booking.TotalAmount, booking.Currency)
	booking.VoucherID = sql.NullInt64{Int64: voucher.ID, Valid: true}
	booking.VoucherDiscount = decimal.NullDecimal{Decimal: discount, Valid: true}
	booking.TotalAmount = booking.TotalAmount.Sub(discount)
	return nil
}

// vaultCard encrypts the raw card and stores the blob plus display fields in
// booking_data. Raw fields never leave this scope.
func (s *BookingService) vaultCard(booking *models.Booking, req *CardRequest) error {
	card := vault.Card{
		Number:   req.Number,
		ExpMonth: req.ExpMonth,
		ExpYear:  req.ExpYear,
		CVC:      req.CVC,
		Holder:   req.Holder,
	}

	blob, err := s.vault.Encrypt(card)
	if err != nil {
		return fmt.Errorf("failed to encrypt card: %w", err)
	}

	booking.BookingData.PaymentCardInfo = &models.CardInfo{
		Encrypted: &blob,
		Last4:     card.LastFour(),
		ExpMonth:  card.ExpMonth,
		ExpYear:   card.ExpYear,
		Holder:    card.Holder,
	}
	return nil
}

func newReference() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return "BK-" + id[:12]
}
