package cart_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/identity"
	"storefront-service/internal/stores/memory"
)

const guestKey = "DFS1231700000000"

func setup(t *testing.T) (*cart.Service, *memory.Store, catalog.Product, catalog.Product) {
	t.Helper()
	store := memory.New()
	a := store.AddProduct(catalog.Product{Name: "Kettle", Price: decimal.RequireFromString("100"), Discount: decimal.RequireFromString("10"), InStock: true})
	b := store.AddProduct(catalog.Product{Name: "Toaster", Price: decimal.RequireFromString("250.50"), InStock: true})
	return cart.NewService(store.Carts()), store, a, b
}

func TestAddIncrementsExistingLine(t *testing.T) {
	svc, _, a, _ := setup(t)
	ctx := context.Background()
	owner := identity.Guest(guestKey)

	_, err := svc.Add(ctx, owner, a.ID, 2)
	require.NoError(t, err)
	c, err := svc.Add(ctx, owner, a.ID, 3)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("500").Equal(c.Total), c.Total.String())
	assert.True(t, decimal.RequireFromString("450").Equal(c.DiscountedTotal()), c.DiscountedTotal().String())
}

func TestAddRejectsBadInput(t *testing.T) {
	svc, _, a, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, identity.Guest(guestKey), a.ID, 0)
	assert.ErrorIs(t, err, cart.ErrInvalidQuantity)

	_, err = svc.Add(ctx, identity.Guest(guestKey), 9999, 1)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = svc.Add(ctx, identity.Identity{}, a.ID, 1)
	assert.ErrorIs(t, err, identity.ErrInvalidIdentity)
}

func TestGetCreatesEmptyCart(t *testing.T) {
	svc, store, _, _ := setup(t)
	owner := identity.User(7)

	c, err := svc.Get(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.True(t, c.Total.IsZero())
	assert.True(t, store.HasCart(owner))
}

func TestRemoveIsIdempotent(t *testing.T) {
	svc, _, a, b := setup(t)
	ctx := context.Background()
	owner := identity.User(7)

	_, err := svc.Add(ctx, owner, a.ID, 1)
	require.NoError(t, err)

	c, err := svc.Remove(ctx, owner, b.ID)
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)

	c, err = svc.Remove(ctx, owner, a.ID)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.True(t, c.Total.IsZero())

	_, err = svc.Remove(ctx, owner, a.ID)
	require.NoError(t, err)
}

func TestClearKeepsCart(t *testing.T) {
	svc, store, a, b := setup(t)
	ctx := context.Background()
	owner := identity.User(7)

	_, err := svc.Add(ctx, owner, a.ID, 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, owner, b.ID, 2)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, owner))
	assert.True(t, store.HasCart(owner))
	assert.Empty(t, store.CartItems(owner))
}

func TestMergeGuestIntoUser(t *testing.T) {
	svc, store, a, b := setup(t)
	ctx := context.Background()
	guest := identity.Guest(guestKey)
	user := identity.User(42)

	_, err := svc.Add(ctx, guest, a.ID, 2)
	require.NoError(t, err)
	_, err = svc.Add(ctx, user, a.ID, 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, user, b.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Merge(ctx, guest, user))

	assert.Equal(t, map[int64]int{a.ID: 3, b.ID: 1}, store.CartItems(user))
	assert.False(t, store.HasCart(guest))

	c, err := svc.Get(ctx, user)
	require.NoError(t, err)
	// 3*100 + 250.50, undiscounted.
	assert.True(t, decimal.RequireFromString("550.50").Equal(c.Total), c.Total.String())
}

func TestMergeCreatesUserCart(t *testing.T) {
	svc, store, a, _ := setup(t)
	ctx := context.Background()
	guest := identity.Guest(guestKey)
	user := identity.User(42)

	_, err := svc.Add(ctx, guest, a.ID, 4)
	require.NoError(t, err)

	require.NoError(t, svc.Merge(ctx, guest, user))
	assert.Equal(t, map[int64]int{a.ID: 4}, store.CartItems(user))
	assert.False(t, store.HasCart(guest))
}

func TestMergeWithoutGuestCart(t *testing.T) {
	svc, store, _, _ := setup(t)
	user := identity.User(42)

	require.NoError(t, svc.Merge(context.Background(), identity.Guest(guestKey), user))
	assert.True(t, store.HasCart(user))
	assert.Empty(t, store.CartItems(user))
}

func TestMergeWishlist(t *testing.T) {
	svc, _, a, b := setup(t)
	ctx := context.Background()
	guest := identity.Guest(guestKey)
	user := identity.User(42)

	_, err := svc.AddToWishlist(ctx, guest, a.ID)
	require.NoError(t, err)
	_, err = svc.AddToWishlist(ctx, guest, b.ID)
	require.NoError(t, err)
	_, err = svc.AddToWishlist(ctx, user, a.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Merge(ctx, guest, user))

	items, err := svc.Wishlist(ctx, user)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.ElementsMatch(t, []int64{a.ID, b.ID}, []int64{items[0].ProductID, items[1].ProductID})

	items, err = svc.Wishlist(ctx, guest)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestWishlist(t *testing.T) {
	svc, _, a, _ := setup(t)
	ctx := context.Background()
	owner := identity.User(3)

	items, err := svc.AddToWishlist(ctx, owner, a.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Kettle", items[0].Product.Name)

	_, err = svc.AddToWishlist(ctx, owner, a.ID)
	assert.ErrorIs(t, err, cart.ErrAlreadyInWishlist)

	_, err = svc.AddToWishlist(ctx, owner, 9999)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	items, err = svc.RemoveFromWishlist(ctx, owner, a.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = svc.RemoveFromWishlist(ctx, owner, a.ID)
	require.NoError(t, err)
}

func TestDiscardDropsGuestData(t *testing.T) {
	svc, store, a, _ := setup(t)
	ctx := context.Background()
	guest := identity.Guest(guestKey)

	_, err := svc.Add(ctx, guest, a.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddToWishlist(ctx, guest, a.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Discard(ctx, guest))
	assert.False(t, store.HasCart(guest))
	items, err := svc.Wishlist(ctx, guest)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, svc.Discard(ctx, guest))
}

func TestView(t *testing.T) {
	svc, _, a, _ := setup(t)
	c, err := svc.Add(context.Background(), identity.User(1), a.ID, 2)
	require.NoError(t, err)

	v := c.View()
	require.Len(t, v.Items, 1)
	assert.True(t, decimal.RequireFromString("90").Equal(v.Items[0].Product.DiscountedPrice))
	assert.True(t, decimal.RequireFromString("200").Equal(v.SubTotal))
	assert.True(t, decimal.RequireFromString("180").Equal(v.Total))
}
