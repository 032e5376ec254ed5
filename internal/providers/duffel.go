package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/util"
)

// DuffelClient creates flight orders against the Duffel API.
type DuffelClient struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *zap.Logger
}

func NewDuffelClient(baseURL, token string) *DuffelClient {
	return &DuffelClient{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 60 * time.Second},
		logger:  util.GetLogger(),
	}
}

type duffelOrderBody struct {
	Data struct {
		Type           string            `json:"type"`
		SelectedOffers []string          `json:"selected_offers"`
		Passengers     []duffelPassenger `json:"passengers"`
		Payments       []duffelPayment   `json:"payments"`
	} `json:"data"`
}

type duffelPassenger struct {
	Type        string `json:"type"`
	Title       string `json:"title,omitempty"`
	GivenName   string `json:"given_name"`
	FamilyName  string `json:"family_name"`
	BornOn      string `json:"born_on"`
	Gender      string `json:"gender,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type duffelPayment struct {
	Type     string `json:"type"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// CreateOrder reserves the flight inventory for a priced offer. Card details
// in req.Payment are used for the call only and never echoed into errors.
func (c *DuffelClient) CreateOrder(ctx context.Context, req FlightOrderRequest) (*Order, error) {
	var body duffelOrderBody
	body.Data.Type = "instant"
	body.Data.SelectedOffers = []string{req.OfferID}
	for _, p := range req.Passengers {
		body.Data.Passengers = append(body.Data.Passengers, duffelPassenger{
			Type:        p.Type,
			Title:       p.Title,
			GivenName:   p.GivenName,
			FamilyName:  p.FamilyName,
			BornOn:      p.DateOfBirth,
			Gender:      p.Gender,
			Email:       p.Email,
			PhoneNumber: p.Phone,
		})
	}
	body.Data.Payments = []duffelPayment{{
		Type:     "balance",
		Amount:   req.Payment.Amount,
		Currency: req.Payment.Currency,
	}}

	raw, err := c.post(ctx, "/air/orders", body)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode duffel order response: %w", err)
	}
	if resp.Data.ID == "" {
		return nil, &APIError{StatusCode: 502, Code: "empty_order", Title: "duffel returned no order id"}
	}

	c.logger.Info("Duffel order created", zap.String("order_id", resp.Data.ID))
	return &Order{ID: resp.Data.ID, Raw: raw}, nil
}

func (c *DuffelClient) post(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Duffel-Version", "v2")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("duffel request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read duffel response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, duffelError(resp.StatusCode, raw)
	}
	return raw, nil
}

func duffelError(status int, raw []byte) *APIError {
	var body struct {
		Errors []struct {
			Code   string `json:"code"`
			Title  string `json:"title"`
			Detail string `json:"message"`
		} `json:"errors"`
	}
	apiErr := &APIError{StatusCode: status, Code: "duffel_error", Title: "order creation failed"}
	if err := json.Unmarshal(raw, &body); err == nil && len(body.Errors) > 0 {
		apiErr.Code = body.Errors[0].Code
		apiErr.Title = body.Errors[0].Title
		apiErr.Detail = body.Errors[0].Detail
	}
	return apiErr
}
