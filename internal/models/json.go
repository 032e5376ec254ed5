package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// The bookings table keeps provider-specific payloads in JSONB columns so a
// new provider never needs a schema migration. These types give those columns
// a fixed shape instead of stringly-typed map lookups.

// CardInfo lives inside BookingData. Encrypted is the vault blob; it is set
// to nil once a provider order has consumed the card, while the display
// fields are retained.
type CardInfo struct {
	Encrypted *string `json:"encrypted"`
	Last4     string  `json:"last4"`
	ExpMonth  int     `json:"exp_month"`
	ExpYear   int     `json:"exp_year"`
	Holder    string  `json:"holder"`
}

// BookingData is the provider-specific reservation payload captured at
// creation time.
type BookingData struct {
	OfferID         string            `json:"offer_id"`
	Passengers      []Passenger       `json:"passengers,omitempty"`
	Guests          []Guest           `json:"guests,omitempty"`
	Rooms           []RoomAssociation `json:"rooms,omitempty"`
	PaymentCardInfo *CardInfo         `json:"payment_card_info,omitempty"`
}

// OrderError is the sanitized shape recorded when a post-payment step fails.
// It never carries card data.
type OrderError struct {
	Status     int       `json:"status"`
	Code       string    `json:"code"`
	Title      string    `json:"title"`
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ProviderData holds the provider response or the last fulfillment error.
type ProviderData struct {
	OrderID            string          `json:"order_id,omitempty"`
	Response           json.RawMessage `json:"response,omitempty"`
	OrderCreationError *OrderError     `json:"order_creation_error,omitempty"`
	MarginChargeError  *OrderError     `json:"margin_charge_error,omitempty"`
	UpdatedAt          time.Time       `json:"updated_at,omitempty"`
}

// PaymentInfo is the verified payment snapshot. It is written only after the
// PaymentIntent has been independently re-fetched from the payment provider.
type PaymentInfo struct {
	IntentID       string    `json:"intent_id,omitempty"`
	AmountReceived int64     `json:"amount_received,omitempty"`
	AmountRefunded int64     `json:"amount_refunded,omitempty"`
	Currency       string    `json:"currency,omitempty"`
	Status         string    `json:"status,omitempty"`
	Verified       bool      `json:"verified,omitempty"`
	VerifiedAt     time.Time `json:"verified_at,omitempty"`
	FailureReason  string    `json:"failure_reason,omitempty"`
}

func (d BookingData) Value() (driver.Value, error)  { return jsonValue(d) }
func (d *BookingData) Scan(src interface{}) error   { return jsonScan(d, src) }
func (d ProviderData) Value() (driver.Value, error) { return jsonValue(d) }
func (d *ProviderData) Scan(src interface{}) error  { return jsonScan(d, src) }
func (p PaymentInfo) Value() (driver.Value, error)  { return jsonValue(p) }
func (p *PaymentInfo) Scan(src interface{}) error   { return jsonScan(p, src) }

func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func jsonScan(dst interface{}, src interface{}) error {
	if src == nil {
		return nil
	}
	switch s := src.(type) {
	case []byte:
		return json.Unmarshal(s, dst)
	case string:
		return json.Unmarshal([]byte(s), dst)
	default:
		return fmt.Errorf("unsupported scan type %T for json column", src)
	}
}
