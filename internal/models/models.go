package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type ProductType string

const (
	ProductFlightDomestic      ProductType = "FLIGHT_DOMESTIC"
	ProductFlightInternational ProductType = "FLIGHT_INTERNATIONAL"
	ProductHotel               ProductType = "HOTEL"
	ProductCarRental           ProductType = "CAR_RENTAL"
)

type Provider string

const (
	ProviderDuffel  Provider = "DUFFEL"
	ProviderAmadeus Provider = "AMADEUS"
)

type BookingStatus string

const (
	BookingStatusPending        BookingStatus = "PENDING"
	BookingStatusPaymentPending BookingStatus = "PAYMENT_PENDING"
	BookingStatusConfirmed      BookingStatus = "CONFIRMED"
	BookingStatusFailed         BookingStatus = "FAILED"
	BookingStatusCancelled      BookingStatus = "CANCELLED"
	BookingStatusRefunded       BookingStatus = "REFUNDED"
)

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "PENDING"
	PaymentStatusCompleted         PaymentStatus = "COMPLETED"
	PaymentStatusFailed            PaymentStatus = "FAILED"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
	PaymentStatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

// Booking is the system of record for one reservation attempt.
// TotalAmount is net of any voucher discount:
// TotalAmount = BasePrice + MarkupAmount + ServiceFee - VoucherDiscount.
type Booking struct {
	ID        int64  `db:"id" json:"id"`
	Reference string `db:"reference" json:"reference"`
	UserID    int64  `db:"user_id" json:"user_id"`

	ProductType ProductType `db:"product_type" json:"product_type"`
	Provider    Provider    `db:"provider" json:"provider"`

	BasePrice       decimal.Decimal     `db:"base_price" json:"base_price"`
	MarkupAmount    decimal.Decimal     `db:"markup_amount" json:"markup_amount"`
	ServiceFee      decimal.Decimal     `db:"service_fee" json:"service_fee"`
	TotalAmount     decimal.Decimal     `db:"total_amount" json:"total_amount"`
	Currency        string              `db:"currency" json:"currency"`
	VoucherID       sql.NullInt64       `db:"voucher_id" json:"-"`
	VoucherDiscount decimal.NullDecimal `db:"voucher_discount" json:"voucher_discount,omitempty"`

	Status           BookingStatus  `db:"status" json:"status"`
	PaymentStatus    PaymentStatus  `db:"payment_status" json:"payment_status"`
	PaymentProvider  string         `db:"payment_provider" json:"payment_provider"`
	PaymentReference sql.NullString `db:"payment_reference" json:"payment_reference,omitempty"`
	PaymentInfo      PaymentInfo    `db:"payment_info" json:"payment_info"`

	ProviderBookingID sql.NullString `db:"provider_booking_id" json:"provider_booking_id,omitempty"`
	ProviderData      ProviderData   `db:"provider_data" json:"provider_data"`
	BookingData       BookingData    `db:"booking_data" json:"-"`

	ContactEmail string `db:"contact_email" json:"contact_email"`
	ContactName  string `db:"contact_name" json:"contact_name"`

	CancellationDeadline time.Time `db:"cancellation_deadline" json:"cancellation_deadline"`
	PolicySnapshot       string    `db:"policy_snapshot" json:"-"`
	PolicyAcceptedAt     time.Time `db:"policy_accepted_at" json:"policy_accepted_at"`

	ClientIP  string `db:"client_ip" json:"-"`
	UserAgent string `db:"user_agent" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasVaultedCard reports whether an encrypted guest card is still held for
// this booking.
func (b *Booking) HasVaultedCard() bool {
	return b.BookingData.PaymentCardInfo != nil && b.BookingData.PaymentCardInfo.Encrypted != nil
}

type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

type VoucherStatus string

const (
	VoucherStatusActive    VoucherStatus = "ACTIVE"
	VoucherStatusUsed      VoucherStatus = "USED"
	VoucherStatusCancelled VoucherStatus = "CANCELLED"
)

// Voucher is created by the rewards subsystem and consumed at most once,
// at settlement time.
type Voucher struct {
	ID                int64               `db:"id" json:"id"`
	Code              string              `db:"code" json:"code"`
	DiscountType      DiscountType        `db:"discount_type" json:"discount_type"`
	DiscountValue     decimal.Decimal     `db:"discount_value" json:"discount_value"`
	Currency          string              `db:"currency" json:"currency"`
	MaxDiscountAmount decimal.NullDecimal `db:"max_discount_amount" json:"max_discount_amount,omitempty"`
	Status            VoucherStatus       `db:"status" json:"status"`
	UsedOnBookingID   sql.NullInt64       `db:"used_on_booking_id" json:"used_on_booking_id,omitempty"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updated_at"`
}

// MarkupConfig is resolved at booking-creation time; the values used are
// frozen into the booking so later config changes never affect it.
type MarkupConfig struct {
	ID               int64           `db:"id" json:"id"`
	ProductType      ProductType     `db:"product_type" json:"product_type"`
	Currency         string          `db:"currency" json:"currency"`
	MarkupPercentage decimal.Decimal `db:"markup_percentage" json:"markup_percentage"`
	ServiceFeeAmount decimal.Decimal `db:"service_fee_amount" json:"service_fee_amount"`
	IsActive         bool            `db:"is_active" json:"is_active"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

type User struct {
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	IsGuest   bool      `db:"is_guest" json:"is_guest"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Passenger is a traveller on a flight order.
type Passenger struct {
	Type        string `json:"type"`
	Title       string `json:"title,omitempty"`
	GivenName   string `json:"given_name"`
	FamilyName  string `json:"family_name"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// Guest is an occupant on a hotel or transfer order.
type Guest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// RoomAssociation maps guests onto a priced room offer.
type RoomAssociation struct {
	HotelOfferID string `json:"hotel_offer_id"`
	GuestIndexes []int  `json:"guest_indexes"`
}

// ProcessedEvent records a handled webhook event id for dedup.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
