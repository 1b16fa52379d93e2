// Package billing integrates Stripe: checkout session creation and the
// webhook that keeps family subscription status in sync.
package billing

import (
	"fmt"
	"strconv"

	stripe "github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

type Config struct {
	SecretKey      string
	WebhookSecret  string
	PremiumPriceID string
	SuccessURL     string
	CancelURL      string
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	stripe.Key = cfg.SecretKey
	return &Client{cfg: cfg}
}

// Configured reports whether the secret key is set.
func (c *Client) Configured() bool {
	return c.cfg.SecretKey != ""
}

// CreateCheckoutSession starts a subscription checkout for a family and
// returns the hosted payment URL. The family ID travels as the client
// reference so the completion webhook can find its way back.
func (c *Client) CreateCheckoutSession(familyID int64, email string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("billing not configured: missing secret key")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail:     stripe.String(email),
		ClientReferenceID: stripe.String(strconv.FormatInt(familyID, 10)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(c.cfg.PremiumPriceID),
				Quantity: stripe.Int64(1),
			},
		},
		AllowPromotionCodes: stripe.Bool(true),
		SuccessURL:          stripe.String(c.cfg.SuccessURL),
		CancelURL:           stripe.String(c.cfg.CancelURL),
	}
	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// ConstructWebhookEvent verifies the signature and returns the parsed event.
func (c *Client) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, c.cfg.WebhookSecret)
}
