// Package stripeclient wraps the Stripe SDK behind the small surface the
// settlement engine needs: PaymentIntent create/retrieve/confirm and
// PaymentMethod creation from raw card fields.
package stripeclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/vault"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// ErrRawCardDataRejected means the Stripe account is not enabled for raw
// card data APIs. The caller surfaces a remediation error instead of
// pretending success.
var ErrRawCardDataRejected = errors.New("stripe rejected raw card data")

// Intent is the slice of a PaymentIntent the engine cares about.
type Intent struct {
	ID             string
	ClientSecret   string
	Status         string
	Amount         int64
	AmountReceived int64
	Currency       string
}

type Client struct {
	api *client.API
}

func New(secretKey string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{api: api}
}

// CreateIntent creates a PaymentIntent for an amount already expressed in
// the currency's smallest unit.
func (c *Client) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return fromStripeIntent(pi), nil
}

// RetrieveIntent re-fetches a PaymentIntent from Stripe's API. The webhook
// handler relies on this, never on the webhook payload alone.
func (c *Client) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	pi, err := c.api.PaymentIntents.Get(id, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve payment intent %s: %w", id, err)
	}
	return fromStripeIntent(pi), nil
}

// CreatePaymentMethod builds a PaymentMethod from raw card fields. The card
// is taken by value and only handed to the SDK; it is never stored here.
func (c *Client) CreatePaymentMethod(ctx context.Context, card vault.Card) (string, error) {
	params := &stripe.PaymentMethodParams{
		Params: stripe.Params{Context: ctx},
		Type:   stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(card.Number),
			ExpMonth: stripe.Int64(int64(card.ExpMonth)),
			ExpYear:  stripe.Int64(int64(card.ExpYear)),
			CVC:      stripe.String(card.CVC),
		},
	}
	if card.Holder != "" {
		params.BillingDetails = &stripe.PaymentMethodBillingDetailsParams{
			Name: stripe.String(card.Holder),
		}
	}

	pm, err := c.api.PaymentMethods.New(params)
	if err != nil {
		if isRawCardRejection(err) {
			return "", fmt.Errorf("%w: enable raw card data APIs for this account or switch to tokenized collection", ErrRawCardDataRejected)
		}
		return "", fmt.Errorf("failed to create payment method: %w", err)
	}
	return pm.ID, nil
}

// ConfirmIntent confirms a PaymentIntent server-side with an attached
// payment method.
func (c *Client) ConfirmIntent(ctx context.Context, id, paymentMethodID string) (*Intent, error) {
	pi, err := c.api.PaymentIntents.Confirm(id, &stripe.PaymentIntentConfirmParams{
		Params:        stripe.Params{Context: ctx},
		PaymentMethod: stripe.String(paymentMethodID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to confirm payment intent %s: %w", id, err)
	}
	return fromStripeIntent(pi), nil
}

func fromStripeIntent(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:             pi.ID,
		ClientSecret:   pi.ClientSecret,
		Status:         string(pi.Status),
		Amount:         pi.Amount,
		AmountReceived: pi.AmountReceived,
		Currency:       strings.ToUpper(string(pi.Currency)),
	}
}

func isRawCardRejection(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	if stripeErr.Type != stripe.ErrorTypeInvalidRequest {
		return false
	}
	return stripeErr.Param == "card[number]" ||
		strings.Contains(strings.ToLower(stripeErr.Msg), "raw card data")
}
