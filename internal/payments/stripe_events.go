package payments

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

// StripeSignatureHeader carries Stripe's timestamped webhook signature.
const StripeSignatureHeader = "Stripe-Signature"

const (
	stripeSessionCompleted      = "checkout.session.completed"
	stripeSessionAsyncSucceeded = "checkout.session.async_payment_succeeded"
)

var ErrStripeSignature = errors.New("invalid stripe webhook signature")

// StripeEvent is what the storefront reads from a Stripe webhook delivery.
type StripeEvent struct {
	ID        string
	Type      string
	Reference string
	Paid      bool
}

// ParseStripeEvent verifies a delivery against the endpoint secret and extracts the payment
// reference of a checkout session. Only paid sessions complete a payment; every other event
// comes back with Paid false.
func ParseStripeEvent(body []byte, header, secret string) (StripeEvent, error) {
	if err := webhook.ValidatePayload(body, header, secret); err != nil {
		return StripeEvent{}, fmt.Errorf("%w: %w", ErrStripeSignature, err)
	}

	var event stripe.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return StripeEvent{}, fmt.Errorf("failed to decode stripe event: %w", err)
	}
	out := StripeEvent{ID: event.ID, Type: string(event.Type)}
	if out.Type != stripeSessionCompleted && out.Type != stripeSessionAsyncSucceeded {
		return out, nil
	}
	if event.Data == nil {
		return StripeEvent{}, fmt.Errorf("stripe event %s has no data", event.ID)
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return StripeEvent{}, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	out.Reference = session.ClientReferenceID
	if out.Reference == "" {
		out.Reference = session.Metadata["reference"]
	}
	out.Paid = session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid
	return out, nil
}
