// Package provider wraps the Stripe client: PaymentIntent creation for the
// lifecycle service and native webhook signature verification for the
// reconciliation path.
package provider

import (
	"context"
	"encoding/json"
	"fmt"

	stripe "github.com/stripe/stripe-go/v74"
	stripeclient "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/KarimBkr/MyTsango/internal/payment"
	"github.com/KarimBkr/MyTsango/internal/platform/config"
	"github.com/KarimBkr/MyTsango/internal/recon/signature"
	"github.com/KarimBkr/MyTsango/pkg/platform/sentinel"
)

// Client talks to Stripe.
type Client struct {
	api           *stripeclient.API
	webhookSecret string
	mode          signature.Mode
}

func NewClient(cfg config.StripeConfig, mode signature.Mode) *Client {
	api := &stripeclient.API{}
	api.Init(cfg.SecretKey, nil)
	return &Client{api: api, webhookSecret: cfg.WebhookSecret, mode: mode}
}

// CreateIntent creates a PaymentIntent in minor currency units.
func (c *Client) CreateIntent(ctx context.Context, amountCents int64, description string, metadata map[string]string) (*payment.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(string(stripe.CurrencyEUR)),
		Description: stripe.String(description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create payment intent: %v", sentinel.ErrUnavailable, err)
	}
	return &payment.Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// VerifyEvent authenticates a webhook delivery with Stripe's signature
// scheme and decodes the event envelope. In bypassed mode the envelope is
// decoded without verification; that mode never ships to production.
func (c *Client) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	if c.mode == signature.Bypassed {
		var event stripe.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return stripe.Event{}, fmt.Errorf("decode event envelope: %w", err)
		}
		return event, nil
	}
	event, err := webhook.ConstructEvent(payload, sigHeader, c.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("verify stripe signature: %w", err)
	}
	return event, nil
}

// IntentFromEvent extracts the payment intent carried in an event envelope.
func IntentFromEvent(event stripe.Event) (*stripe.PaymentIntent, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	return &pi, nil
}

// ReceiptURLFromIntent returns the receipt link when the event carried an
// expanded charge; deliveries with only a charge id yield an empty string.
func ReceiptURLFromIntent(pi *stripe.PaymentIntent) string {
	if pi.LatestCharge == nil {
		return ""
	}
	return pi.LatestCharge.ReceiptURL
}
