package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"storefront-service/internal/catalog"
	"storefront-service/internal/identity"
)

// Tx is the set of storage operations the cart service needs inside one transaction.
// Implementations must make LockCart hold the owner's cart row until the transaction ends.
type Tx interface {
	Product(ctx context.Context, id int64) (catalog.Product, error)

	LockCart(ctx context.Context, owner identity.Identity) (Cart, error)
	CreateCart(ctx context.Context, owner identity.Identity) (Cart, error)
	Items(ctx context.Context, cartID int64) ([]Item, error)
	InsertItem(ctx context.Context, cartID, productID int64, quantity int) (int64, error)
	SetItemQuantity(ctx context.Context, itemID int64, quantity int) error
	DeleteItem(ctx context.Context, itemID int64) error
	DeleteItems(ctx context.Context, cartID int64) error
	SetTotal(ctx context.Context, cartID int64, total decimal.Decimal) error
	DeleteCart(ctx context.Context, cartID int64) error

	WishlistItems(ctx context.Context, owner identity.Identity) ([]WishlistItem, error)
	InsertWishlistItem(ctx context.Context, owner identity.Identity, productID int64) error
	DeleteWishlistItem(ctx context.Context, id int64) error
	DeleteWishlist(ctx context.Context, owner identity.Identity) error
}

// Store runs fn in a transaction.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Service implements the cart and wishlist of every identity.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get returns the owner's cart, creating an empty one on first use.
func (s *Service) Get(ctx context.Context, owner identity.Identity) (Cart, error) {
	if owner.IsZero() {
		return Cart{}, identity.ErrInvalidIdentity
	}
	var cart Cart
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		cart, err = lockOrCreate(ctx, tx, owner)
		if err != nil {
			return err
		}
		return loadItems(ctx, tx, &cart)
	})
	if err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// Add puts quantity units of a product in the cart, incrementing the existing line if there is one.
func (s *Service) Add(ctx context.Context, owner identity.Identity, productID int64, quantity int) (Cart, error) {
	if owner.IsZero() {
		return Cart{}, identity.ErrInvalidIdentity
	}
	if quantity < 1 {
		return Cart{}, ErrInvalidQuantity
	}
	var cart Cart
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.Product(ctx, productID); err != nil {
			return err
		}
		var err error
		cart, err = lockOrCreate(ctx, tx, owner)
		if err != nil {
			return err
		}
		if err := loadItems(ctx, tx, &cart); err != nil {
			return err
		}
		if item, ok := cart.itemFor(productID); ok {
			if err := tx.SetItemQuantity(ctx, item.ID, item.Quantity+quantity); err != nil {
				return fmt.Errorf("failed to update cart item quantity: %w", err)
			}
		} else if _, err := tx.InsertItem(ctx, cart.ID, productID, quantity); err != nil {
			return fmt.Errorf("failed to add product to cart: %w", err)
		}
		return loadItems(ctx, tx, &cart)
	})
	if err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// Remove deletes the product's line. Removing a product that is not in the cart is not an error.
func (s *Service) Remove(ctx context.Context, owner identity.Identity, productID int64) (Cart, error) {
	if owner.IsZero() {
		return Cart{}, identity.ErrInvalidIdentity
	}
	var cart Cart
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		cart, err = lockOrCreate(ctx, tx, owner)
		if err != nil {
			return err
		}
		if err := loadItems(ctx, tx, &cart); err != nil {
			return err
		}
		if item, ok := cart.itemFor(productID); ok {
			if err := tx.DeleteItem(ctx, item.ID); err != nil {
				return fmt.Errorf("failed to remove cart item: %w", err)
			}
		}
		return loadItems(ctx, tx, &cart)
	})
	if err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// Clear empties the cart but keeps the cart row.
func (s *Service) Clear(ctx context.Context, owner identity.Identity) error {
	if owner.IsZero() {
		return identity.ErrInvalidIdentity
	}
	return s.store.WithTx(ctx, func(tx Tx) error {
		cart, err := lockOrCreate(ctx, tx, owner)
		if err != nil {
			return err
		}
		if err := tx.DeleteItems(ctx, cart.ID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return tx.SetTotal(ctx, cart.ID, decimal.Zero)
	})
}

// Discard deletes a guest's cart and wishlist. It is used on logout, after which the key is dead.
func (s *Service) Discard(ctx context.Context, guest identity.Identity) error {
	if !guest.IsGuest() {
		return nil
	}
	return s.store.WithTx(ctx, func(tx Tx) error {
		cart, err := tx.LockCart(ctx, guest)
		switch {
		case errors.Is(err, ErrNoCart):
		case err != nil:
			return err
		default:
			if err := tx.DeleteCart(ctx, cart.ID); err != nil {
				return fmt.Errorf("failed to delete guest cart: %w", err)
			}
		}
		if err := tx.DeleteWishlist(ctx, guest); err != nil {
			return fmt.Errorf("failed to delete guest wishlist: %w", err)
		}
		return nil
	})
}

func lockOrCreate(ctx context.Context, tx Tx, owner identity.Identity) (Cart, error) {
	cart, err := tx.LockCart(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, ErrNoCart) {
		return Cart{}, fmt.Errorf("failed to query cart: %w", err)
	}
	cart, err = tx.CreateCart(ctx, owner)
	if err != nil {
		return Cart{}, fmt.Errorf("failed to create new cart: %w", err)
	}
	return cart, nil
}

// loadItems reloads the lines and refreshes the cached undiscounted total when it drifted.
func loadItems(ctx context.Context, tx Tx, cart *Cart) error {
	items, err := tx.Items(ctx, cart.ID)
	if err != nil {
		return fmt.Errorf("failed to query cart items: %w", err)
	}
	cart.Items = items
	if total := cart.Subtotal(); !total.Equal(cart.Total) {
		if err := tx.SetTotal(ctx, cart.ID, total); err != nil {
			return fmt.Errorf("failed to update cart total: %w", err)
		}
		cart.Total = total
	}
	return nil
}
