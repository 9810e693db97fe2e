package payments

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"storefront-service/internal/identity"
	"storefront-service/internal/orders"
)

var (
	ErrGateway  = errors.New("could not generate reference, try again")
	ErrNotFound = errors.New("payment not found")
)

const (
	StatusPending    = "pending"
	StatusSuccessful = "successful"
)

// EventChargeSuccess is the only webhook event that completes a payment.
const EventChargeSuccess = "charge.success"

// Channel is how the shopper pays: a hosted checkout page (web) or the gateway's client SDK (mobile).
type Channel string

const (
	ChannelWeb    Channel = "web"
	ChannelMobile Channel = "mobile"
)

func (c Channel) Valid() bool {
	return c == ChannelWeb || c == ChannelMobile
}

// Line is a cart line frozen at checkout time.
type Line struct {
	CartItemID      int64           `json:"cart_item_id"`
	ProductID       int64           `json:"product_id"`
	Name            string          `json:"name"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	Quantity        int             `json:"quantity"`
}

// Snapshot is stored as the payment's meta. The webhook builds the order from it, never from the live cart.
type Snapshot struct {
	Shipping      orders.Shipping `json:"shipping"`
	UserID        int64           `json:"user_id,omitempty"`
	GuestKey      string          `json:"guest_key,omitempty"`
	Authenticated bool            `json:"authenticated"`
	Lines         []Line          `json:"items"`
	Reference     string          `json:"reference"`
	Amount        decimal.Decimal `json:"amount"`
	Charge        decimal.Decimal `json:"charge"`
}

// Owner is the identity that checked out.
func (s Snapshot) Owner() identity.Identity {
	if s.Authenticated {
		return identity.User(s.UserID)
	}
	return identity.Guest(s.GuestKey)
}

// Payment is a checkout intent. Status moves from pending to successful once.
type Payment struct {
	ID        int64
	Reference string
	UserID    int64
	GuestKey  string
	Amount    decimal.Decimal
	Charge    decimal.Decimal
	Status    string
	Meta      Snapshot
	CreatedAt time.Time
}
