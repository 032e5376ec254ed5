package models

import "time"

// Event types published on the settlement topic
const (
	EventTypeBookingCreated   = "BOOKING_CREATED"
	EventTypePaymentCompleted = "PAYMENT_COMPLETED"
	EventTypePaymentFailed    = "PAYMENT_FAILED"
	EventTypeBookingRefunded  = "BOOKING_REFUNDED"
	EventTypeOrderCreated     = "ORDER_CREATED"
	EventTypeOrderFailed      = "ORDER_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingCreatedEvent published when a booking row is persisted
type BookingCreatedEvent struct {
	BaseEvent
	BookingID   int64       `json:"booking_id"`
	Reference   string      `json:"reference"`
	ProductType ProductType `json:"product_type"`
	TotalAmount string      `json:"total_amount"`
	Currency    string      `json:"currency"`
	Email       string      `json:"email"`
}

// PaymentCompletedEvent published after a verified payment settles a booking
type PaymentCompletedEvent struct {
	BaseEvent
	BookingID   int64       `json:"booking_id"`
	Reference   string      `json:"reference"`
	ProductType ProductType `json:"product_type"`
	AmountMinor int64       `json:"amount_minor"`
	Currency    string      `json:"currency"`
	IntentID    string      `json:"intent_id"`
	Email       string      `json:"email"`
}

// PaymentFailedEvent published when the payment provider reports failure
type PaymentFailedEvent struct {
	BaseEvent
	BookingID int64  `json:"booking_id"`
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
	Email     string `json:"email"`
}

// BookingRefundedEvent published on full or partial refund
type BookingRefundedEvent struct {
	BaseEvent
	BookingID     int64  `json:"booking_id"`
	Reference     string `json:"reference"`
	AmountMinor   int64  `json:"amount_minor"`
	Currency      string `json:"currency"`
	Partial       bool   `json:"partial"`
	Email         string `json:"email"`
	ProductTitle  string `json:"product_title,omitempty"`
	PaymentIntent string `json:"payment_intent"`
}

// OrderCreatedEvent published when the travel provider confirms an order
type OrderCreatedEvent struct {
	BaseEvent
	BookingID       int64    `json:"booking_id"`
	Reference       string   `json:"reference"`
	Provider        Provider `json:"provider"`
	ProviderOrderID string   `json:"provider_order_id"`
}

// OrderFailedEvent published when provider order creation fails after payment
type OrderFailedEvent struct {
	BaseEvent
	BookingID int64    `json:"booking_id"`
	Reference string   `json:"reference"`
	Provider  Provider `json:"provider"`
	Reason    string   `json:"reason"`
}
