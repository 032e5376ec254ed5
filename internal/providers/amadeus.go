package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/util"
)

// AmadeusClient creates hotel bookings and transfer orders against the
// Amadeus self-service APIs. OAuth tokens are cached until shortly before
// expiry.
type AmadeusClient struct {
	baseURL   string
	apiKey    string
	apiSecret string
	httpc     *http.Client
	logger    *zap.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewAmadeusClient(baseURL, apiKey, apiSecret string) *AmadeusClient {
	return &AmadeusClient{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpc:     &http.Client{Timeout: 60 * time.Second},
		logger:    util.GetLogger(),
	}
}

// CreateHotelOrder books the hotel offer, paying with the supplied card.
func (c *AmadeusClient) CreateHotelOrder(ctx context.Context, req HotelOrderRequest) (*Order, error) {
	guests := make([]map[string]interface{}, 0, len(req.Guests))
	for i, g := range req.Guests {
		guests = append(guests, map[string]interface{}{
			"tid": i + 1,
			"name": map[string]string{
				"firstName": g.FirstName,
				"lastName":  g.LastName,
			},
			"contact": map[string]string{
				"email": g.Email,
				"phone": g.Phone,
			},
		})
	}

	rooms := make([]map[string]interface{}, 0, len(req.Rooms))
	for _, r := range req.Rooms {
		refs := make([]map[string]int, 0, len(r.GuestIndexes))
		for _, gi := range r.GuestIndexes {
			refs = append(refs, map[string]int{"guestReference": gi + 1})
		}
		rooms = append(rooms, map[string]interface{}{
			"hotelOfferId":    r.HotelOfferID,
			"guestReferences": refs,
		})
	}
	if len(rooms) == 0 {
		rooms = append(rooms, map[string]interface{}{"hotelOfferId": req.OfferID})
	}

	body := map[string]interface{}{
		"data": map[string]interface{}{
			"type":             "hotel-order",
			"guests":           guests,
			"roomAssociations": rooms,
			"payment":          amadeusPayment(req.Payment),
		},
	}

	raw, err := c.post(ctx, "/v3/booking/hotel-orders", body)
	if err != nil {
		return nil, err
	}
	return orderFromAmadeus(raw, c.logger, "hotel")
}

// CreateTransferOrder books a car/transfer offer.
func (c *AmadeusClient) CreateTransferOrder(ctx context.Context, req TransferOrderRequest) (*Order, error) {
	passengers := make([]map[string]interface{}, 0, len(req.Passengers))
	for _, p := range req.Passengers {
		passengers = append(passengers, map[string]interface{}{
			"firstName": p.FirstName,
			"lastName":  p.LastName,
			"contacts": map[string]string{
				"email": p.Email,
				"phone": p.Phone,
			},
		})
	}

	body := map[string]interface{}{
		"data": map[string]interface{}{
			"note":       "",
			"passengers": passengers,
			"payment":    amadeusPayment(req.Payment),
		},
	}

	raw, err := c.post(ctx, "/v1/ordering/transfer-orders?offerId="+url.QueryEscape(req.OfferID), body)
	if err != nil {
		return nil, err
	}
	return orderFromAmadeus(raw, c.logger, "transfer")
}

func amadeusPayment(p Payment) map[string]interface{} {
	payment := map[string]interface{}{
		"method": "CREDIT_CARD",
	}
	if p.Card != nil {
		payment["paymentCard"] = map[string]interface{}{
			"paymentCardInfo": map[string]interface{}{
				"vendorCode": "VI",
				"cardNumber": p.Card.Number,
				"expiryDate": fmt.Sprintf("%04d-%02d", p.Card.ExpYear, p.Card.ExpMonth),
				"holderName": p.Card.Holder,
			},
		}
	}
	return payment
}

func orderFromAmadeus(raw json.RawMessage, logger *zap.Logger, kind string) (*Order, error) {
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode amadeus %s response: %w", kind, err)
	}
	if resp.Data.ID == "" {
		return nil, &APIError{StatusCode: 502, Code: "empty_order", Title: "amadeus returned no order id"}
	}

	logger.Info("Amadeus order created", zap.String("kind", kind), zap.String("order_id", resp.Data.ID))
	return &Order{ID: resp.Data.ID, Raw: raw}, nil
}

func (c *AmadeusClient) post(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("amadeus request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read amadeus response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, amadeusError(resp.StatusCode, raw)
	}
	return raw, nil
}

func (c *AmadeusClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.apiKey)
	form.Set("client_secret", c.apiSecret)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("amadeus token request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", amadeusError(resp.StatusCode, raw)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &tok); err != nil || tok.AccessToken == "" {
		return "", fmt.Errorf("failed to decode amadeus token response")
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn-60) * time.Second)
	return c.token, nil
}

func amadeusError(status int, raw []byte) *APIError {
	var body struct {
		Errors []struct {
			Status int    `json:"status"`
			Code   json.Number `json:"code"`
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	apiErr := &APIError{StatusCode: status, Code: "amadeus_error", Title: "order creation failed"}
	if err := json.Unmarshal(raw, &body); err == nil && len(body.Errors) > 0 {
		apiErr.Code = body.Errors[0].Code.String()
		apiErr.Title = body.Errors[0].Title
		apiErr.Detail = body.Errors[0].Detail
	}
	return apiErr
}
