package checkout_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/checkout"
	"storefront-service/internal/identity"
	"storefront-service/internal/orders"
	"storefront-service/internal/payments"
	"storefront-service/internal/stores/memory"
	"storefront-service/internal/validation"
)

type fakeGateway struct {
	refErr      error
	checkoutErr error
	amountMinor int64
	email       string
	calls       int
}

func (g *fakeGateway) GenerateReference(ctx context.Context) (string, error) {
	if g.refErr != nil {
		return "", g.refErr
	}
	return "SF_test", nil
}

func (g *fakeGateway) CreateHostedCheckout(ctx context.Context, amountMinor int64, email, reference string) (string, error) {
	g.calls++
	g.amountMinor, g.email = amountMinor, email
	if g.checkoutErr != nil {
		return "", g.checkoutErr
	}
	return "https://pay.test/" + reference, nil
}

var validShipping = orders.Shipping{
	FirstName: "Ada", LastName: "Obi", Email: "ada@example.com", Phone: "0800",
	Country: "NG", State: "Lagos", City: "Ikeja", Address: "1 Allen Ave", Note: "leave at gate",
}

func newService(t *testing.T, gw payments.Gateway) (*checkout.Service, *cart.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	carts := cart.NewService(store.Carts())
	return checkout.NewService(carts, store.Payments(), gw), carts, store
}

func TestInitiateWeb(t *testing.T) {
	gw := &fakeGateway{}
	svc, carts, store := newService(t, gw)
	ctx := context.Background()
	owner := identity.User(9)

	p := store.AddProduct(catalog.Product{Name: "Lamp", Price: decimal.RequireFromString("1000"), Discount: decimal.RequireFromString("10")})
	_, err := carts.Add(ctx, owner, p.ID, 2)
	require.NoError(t, err)

	res, err := svc.Initiate(ctx, owner, payments.ChannelWeb, validShipping)
	require.NoError(t, err)

	// 2 * 900 = 1800, charge 0.015 * 1800 = 27.
	assert.True(t, decimal.RequireFromString("1800").Equal(res.SubTotal), res.SubTotal.String())
	assert.True(t, decimal.RequireFromString("27").Equal(res.Charge), res.Charge.String())
	assert.True(t, decimal.RequireFromString("1827").Equal(res.Amount), res.Amount.String())
	assert.Equal(t, "https://pay.test/SF_test", res.RedirectURL)
	assert.Equal(t, int64(182700), gw.amountMinor)
	assert.Equal(t, "ada@example.com", gw.email)

	payment, ok := store.Payment("SF_test")
	require.True(t, ok)
	assert.Equal(t, payments.StatusPending, payment.Status)
	assert.True(t, payment.Meta.Authenticated)
	assert.Equal(t, int64(9), payment.Meta.UserID)
	require.Len(t, payment.Meta.Lines, 1)
	assert.True(t, decimal.RequireFromString("900").Equal(payment.Meta.Lines[0].DiscountedPrice))
	assert.Equal(t, 2, payment.Meta.Lines[0].Quantity)
	assert.Equal(t, validShipping, payment.Meta.Shipping)

	// The live cart is untouched.
	assert.Equal(t, map[int64]int{p.ID: 2}, store.CartItems(owner))
}

func TestInitiateMobileSkipsHostedCheckout(t *testing.T) {
	gw := &fakeGateway{}
	svc, carts, store := newService(t, gw)
	ctx := context.Background()
	owner := identity.Guest("DFS0011700000000")

	p := store.AddProduct(catalog.Product{Name: "Lamp", Price: decimal.RequireFromString("3000")})
	_, err := carts.Add(ctx, owner, p.ID, 1)
	require.NoError(t, err)

	res, err := svc.Initiate(ctx, owner, payments.ChannelMobile, validShipping)
	require.NoError(t, err)
	assert.Empty(t, res.RedirectURL)
	assert.Zero(t, gw.calls)
	assert.True(t, decimal.RequireFromString("145").Equal(res.Charge), res.Charge.String())

	payment, ok := store.Payment("SF_test")
	require.True(t, ok)
	assert.False(t, payment.Meta.Authenticated)
	assert.Equal(t, owner.GuestKey, payment.Meta.GuestKey)
}

func TestInitiateEmptyCart(t *testing.T) {
	svc, _, store := newService(t, &fakeGateway{})

	_, err := svc.Initiate(context.Background(), identity.User(9), payments.ChannelWeb, validShipping)
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
	_, ok := store.Payment("SF_test")
	assert.False(t, ok)
}

func TestInitiateRejectsInput(t *testing.T) {
	svc, _, _ := newService(t, &fakeGateway{})
	ctx := context.Background()

	_, err := svc.Initiate(ctx, identity.User(9), payments.Channel("pos"), validShipping)
	assert.ErrorIs(t, err, checkout.ErrInvalidChannel)

	bad := validShipping
	bad.FirstName = ""
	bad.Email = "not-an-email"
	_, err = svc.Initiate(ctx, identity.User(9), payments.ChannelWeb, bad)
	var vErrs validation.Errors
	require.True(t, errors.As(err, &vErrs))
	assert.Equal(t, []string{"email", "first_name"}, vErrs.Fields())
}

func TestInitiateGatewayFailure(t *testing.T) {
	tests := []struct {
		name        string
		gw          *fakeGateway
		wantPayment bool
	}{
		{name: "reference", gw: &fakeGateway{refErr: errors.New("down")}},
		{name: "checkout", gw: &fakeGateway{checkoutErr: errors.New("down")}, wantPayment: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, carts, store := newService(t, tt.gw)
			owner := identity.User(9)
			p := store.AddProduct(catalog.Product{Name: "Lamp", Price: decimal.RequireFromString("10")})
			_, err := carts.Add(context.Background(), owner, p.ID, 1)
			require.NoError(t, err)

			_, err = svc.Initiate(context.Background(), owner, payments.ChannelWeb, validShipping)
			assert.ErrorIs(t, err, payments.ErrGateway)
			payment, ok := store.Payment("SF_test")
			require.Equal(t, tt.wantPayment, ok)
			if ok {
				assert.Equal(t, payments.StatusPending, payment.Status)
			}
		})
	}
}

type failingPayments struct {
	payments.Store
}

func (failingPayments) CreatePayment(ctx context.Context, p *payments.Payment) error {
	return errors.New("db down")
}

func TestInitiateSavesPaymentBeforeHostedCheckout(t *testing.T) {
	gw := &fakeGateway{}
	store := memory.New()
	carts := cart.NewService(store.Carts())
	svc := checkout.NewService(carts, failingPayments{store.Payments()}, gw)

	owner := identity.User(9)
	p := store.AddProduct(catalog.Product{Name: "Lamp", Price: decimal.RequireFromString("10")})
	_, err := carts.Add(context.Background(), owner, p.ID, 1)
	require.NoError(t, err)

	_, err = svc.Initiate(context.Background(), owner, payments.ChannelWeb, validShipping)
	require.Error(t, err)
	assert.NotErrorIs(t, err, payments.ErrGateway)
	assert.Zero(t, gw.calls)
}
