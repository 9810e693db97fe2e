package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
)

// Gateway is the external payment provider.
type Gateway interface {
	GenerateReference(ctx context.Context) (string, error)
	CreateHostedCheckout(ctx context.Context, amountMinor int64, email, reference string) (string, error)
}

type sessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeGateway opens Stripe hosted checkout sessions. The payment reference travels as the
// session's client reference id and metadata so the webhook can find the payment again.
type StripeGateway struct {
	sessions   sessionCreator
	currency   string
	successURL string
	cancelURL  string
}

type StripeConfig struct {
	SecretKey  string
	Currency   string
	SuccessURL string
	CancelURL  string
}

func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is empty")
	}
	sc := &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: cfg.SecretKey}
	return newStripeGateway(sc, cfg), nil
}

func newStripeGateway(sessions sessionCreator, cfg StripeConfig) *StripeGateway {
	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &StripeGateway{
		sessions:   sessions,
		currency:   currency,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}
}

func (g *StripeGateway) GenerateReference(ctx context.Context) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGateway, err)
	}
	return "SF_" + strings.ReplaceAll(id.String(), "-", ""), nil
}

func (g *StripeGateway) CreateHostedCheckout(ctx context.Context, amountMinor int64, email, reference string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SubmitType:        stripe.String("pay"),
		CustomerEmail:     stripe.String(email),
		ClientReferenceID: stripe.String(reference),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(g.currency),
					UnitAmount: stripe.Int64(amountMinor),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Order " + reference),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"reference": reference},
		},
	}
	params.Context = ctx
	params.AddMetadata("reference", reference)

	s, err := g.sessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGateway, err)
	}
	return s.URL, nil
}
