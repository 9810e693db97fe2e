package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/identity"
)

func (s *Store) Carts() cart.Store { return cartStore{s} }

type cartStore struct {
	s *Store
}

func (c cartStore) WithTx(ctx context.Context, fn func(tx cart.Tx) error) error {
	return c.s.withTx(func() error {
		return fn(cartTx{c.s})
	})
}

// cartTx runs with the store lock held.
type cartTx struct {
	s *Store
}

func (t cartTx) Product(ctx context.Context, id int64) (catalog.Product, error) {
	p, ok := t.s.st.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (t cartTx) LockCart(ctx context.Context, owner identity.Identity) (cart.Cart, error) {
	row, ok := t.s.cartOf(owner)
	if !ok {
		return cart.Cart{}, cart.ErrNoCart
	}
	return cart.Cart{ID: row.id, Owner: row.owner, Total: row.total}, nil
}

func (t cartTx) CreateCart(ctx context.Context, owner identity.Identity) (cart.Cart, error) {
	if _, ok := t.s.cartOf(owner); !ok {
		id := t.s.id()
		t.s.st.carts[id] = cartRow{id: id, owner: owner, total: decimal.Zero}
	}
	return t.LockCart(ctx, owner)
}

func (t cartTx) Items(ctx context.Context, cartID int64) ([]cart.Item, error) {
	var out []cart.Item
	for _, row := range t.s.st.items {
		if row.cartID != cartID {
			continue
		}
		out = append(out, cart.Item{
			ID:        row.id,
			CartID:    row.cartID,
			ProductID: row.productID,
			Quantity:  row.quantity,
			Product:   t.s.st.products[row.productID],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t cartTx) InsertItem(ctx context.Context, cartID, productID int64, quantity int) (int64, error) {
	for _, row := range t.s.st.items {
		if row.cartID == cartID && row.productID == productID {
			return 0, errDuplicate
		}
	}
	id := t.s.id()
	t.s.st.items[id] = itemRow{id: id, cartID: cartID, productID: productID, quantity: quantity}
	return id, nil
}

func (t cartTx) SetItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	row, ok := t.s.st.items[itemID]
	if !ok {
		return nil
	}
	row.quantity = quantity
	t.s.st.items[itemID] = row
	return nil
}

func (t cartTx) DeleteItem(ctx context.Context, itemID int64) error {
	delete(t.s.st.items, itemID)
	return nil
}

func (t cartTx) DeleteItems(ctx context.Context, cartID int64) error {
	for id, row := range t.s.st.items {
		if row.cartID == cartID {
			delete(t.s.st.items, id)
		}
	}
	return nil
}

func (t cartTx) SetTotal(ctx context.Context, cartID int64, total decimal.Decimal) error {
	row, ok := t.s.st.carts[cartID]
	if !ok {
		return nil
	}
	row.total = total
	t.s.st.carts[cartID] = row
	return nil
}

func (t cartTx) DeleteCart(ctx context.Context, cartID int64) error {
	delete(t.s.st.carts, cartID)
	return t.DeleteItems(ctx, cartID)
}

func (t cartTx) WishlistItems(ctx context.Context, owner identity.Identity) ([]cart.WishlistItem, error) {
	var out []cart.WishlistItem
	for _, row := range t.s.st.wishlists {
		if row.owner != owner {
			continue
		}
		out = append(out, cart.WishlistItem{
			ID:        row.id,
			ProductID: row.productID,
			Product:   t.s.st.products[row.productID],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t cartTx) InsertWishlistItem(ctx context.Context, owner identity.Identity, productID int64) error {
	for _, row := range t.s.st.wishlists {
		if row.owner == owner && row.productID == productID {
			return cart.ErrAlreadyInWishlist
		}
	}
	id := t.s.id()
	t.s.st.wishlists[id] = wishlistRow{id: id, owner: owner, productID: productID}
	return nil
}

func (t cartTx) DeleteWishlistItem(ctx context.Context, id int64) error {
	delete(t.s.st.wishlists, id)
	return nil
}

func (t cartTx) DeleteWishlist(ctx context.Context, owner identity.Identity) error {
	for id, row := range t.s.st.wishlists {
		if row.owner == owner {
			delete(t.s.st.wishlists, id)
		}
	}
	return nil
}
