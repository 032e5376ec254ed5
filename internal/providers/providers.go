// Package providers holds the REST clients for the third-party travel
// inventory systems. They are thin collaborators: build the request, call
// the API, map the response or a sanitized error.
package providers

import (
	"encoding/json"
	"fmt"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/models"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/vault"
)

// Order is a confirmed provider order: the id we link to the booking plus
// the raw response kept for the audit blob.
type Order struct {
	ID  string
	Raw json.RawMessage
}

// Payment carries the card paying for provider inventory. The card lives
// only for the duration of the call.
type Payment struct {
	Card     *vault.Card
	Amount   string
	Currency string
}

// FlightOrderRequest creates a Duffel order from a priced offer.
type FlightOrderRequest struct {
	OfferID    string
	Passengers []models.Passenger
	Payment    Payment
}

// HotelOrderRequest creates an Amadeus hotel booking from a priced offer.
type HotelOrderRequest struct {
	OfferID string
	Guests  []models.Guest
	Rooms   []models.RoomAssociation
	Payment Payment
}

// TransferOrderRequest creates an Amadeus transfer (car) order.
type TransferOrderRequest struct {
	OfferID    string
	Passengers []models.Guest
	Payment    Payment
}

// APIError is the sanitized provider failure shape recorded on the booking.
// It deliberately has no room for card data.
type APIError struct {
	StatusCode int    `json:"status"`
	Code       string `json:"code"`
	Title      string `json:"title"`
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider error %d %s: %s", e.StatusCode, e.Code, e.Title)
}
