package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"storefront-service/internal/cart"
	"storefront-service/internal/identity"
	"storefront-service/internal/orders"
	"storefront-service/internal/payments"
	"storefront-service/internal/pricing"
	"storefront-service/internal/validation"
	"storefront-service/pkg/ctxmanage"
	"storefront-service/pkg/logkey"
)

var (
	ErrInvalidChannel = errors.New("invalid checkout type, allowed methods are web or mobile")
	ErrEmptyCart      = errors.New("cart is empty")
)

// Carts loads the cart being checked out.
type Carts interface {
	Get(ctx context.Context, owner identity.Identity) (cart.Cart, error)
}

// Result is what the shopper needs to complete payment.
type Result struct {
	Channel     payments.Channel
	Reference   string
	Email       string
	SubTotal    decimal.Decimal
	Charge      decimal.Decimal
	Amount      decimal.Decimal
	RedirectURL string
}

type Service struct {
	carts    Carts
	payments payments.Store
	gateway  payments.Gateway
}

func NewService(carts Carts, store payments.Store, gateway payments.Gateway) *Service {
	return &Service{carts: carts, payments: store, gateway: gateway}
}

// Initiate freezes the cart into a pending payment. The live cart is left untouched; it is
// consumed from the snapshot when the gateway confirms the charge.
func (s *Service) Initiate(ctx context.Context, owner identity.Identity, channel payments.Channel, shipping orders.Shipping) (Result, error) {
	if !channel.Valid() {
		return Result{}, ErrInvalidChannel
	}
	if owner.IsZero() {
		return Result{}, identity.ErrInvalidIdentity
	}
	if err := validation.Struct(shipping); err != nil {
		return Result{}, err
	}

	c, err := s.carts.Get(ctx, owner)
	if err != nil {
		return Result{}, err
	}
	if len(c.Items) == 0 {
		return Result{}, ErrEmptyCart
	}

	amount := c.DiscountedTotal()
	charge := pricing.ServiceCharge(amount)
	total := amount.Add(charge)

	reference, err := s.gateway.GenerateReference(ctx)
	if err != nil {
		return Result{}, gatewayError(err)
	}

	payment := payments.Payment{
		Reference: reference,
		UserID:    owner.UserID,
		GuestKey:  owner.GuestKey,
		Amount:    amount,
		Charge:    charge,
		Status:    payments.StatusPending,
		Meta:      snapshot(c, owner, shipping, reference, amount, charge),
	}
	if err := s.payments.CreatePayment(ctx, &payment); err != nil {
		return Result{}, fmt.Errorf("failed to save payment: %w", err)
	}

	res := Result{
		Channel:   channel,
		Reference: reference,
		Email:     shipping.Email,
		SubTotal:  amount,
		Charge:    charge,
		Amount:    total,
	}
	// The pending payment must exist before the hosted page does.
	if channel == payments.ChannelWeb {
		res.RedirectURL, err = s.gateway.CreateHostedCheckout(ctx, pricing.MinorUnits(total), shipping.Email, reference)
		if err != nil {
			return Result{}, gatewayError(err)
		}
	}

	slog.Info("checkout initiated",
		slog.String(logkey.TraceID, ctxmanage.TraceIdFromContext(ctx)),
		slog.String(logkey.Reference, reference),
		slog.String("channel", string(channel)))
	return res, nil
}

func snapshot(c cart.Cart, owner identity.Identity, shipping orders.Shipping, reference string, amount, charge decimal.Decimal) payments.Snapshot {
	lines := make([]payments.Line, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, payments.Line{
			CartItemID:      item.ID,
			ProductID:       item.ProductID,
			Name:            item.Product.Name,
			DiscountedPrice: item.Product.DiscountedPrice(),
			Quantity:        item.Quantity,
		})
	}
	return payments.Snapshot{
		Shipping:      shipping,
		UserID:        owner.UserID,
		GuestKey:      owner.GuestKey,
		Authenticated: owner.IsAuthenticated(),
		Lines:         lines,
		Reference:     reference,
		Amount:        amount,
		Charge:        charge,
	}
}

func gatewayError(err error) error {
	if errors.Is(err, payments.ErrGateway) {
		return err
	}
	return fmt.Errorf("%w: %w", payments.ErrGateway, err)
}
