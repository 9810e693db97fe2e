package cart

import (
	"context"
	"fmt"

	"storefront-service/internal/identity"
)

func (s *Service) Wishlist(ctx context.Context, owner identity.Identity) ([]WishlistItem, error) {
	if owner.IsZero() {
		return nil, identity.ErrInvalidIdentity
	}
	var items []WishlistItem
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		items, err = tx.WishlistItems(ctx, owner)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query wishlist: %w", err)
	}
	return items, nil
}

// AddToWishlist saves a product once per owner; a second add returns ErrAlreadyInWishlist.
func (s *Service) AddToWishlist(ctx context.Context, owner identity.Identity, productID int64) ([]WishlistItem, error) {
	if owner.IsZero() {
		return nil, identity.ErrInvalidIdentity
	}
	var items []WishlistItem
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.Product(ctx, productID); err != nil {
			return err
		}
		current, err := tx.WishlistItems(ctx, owner)
		if err != nil {
			return fmt.Errorf("failed to query wishlist: %w", err)
		}
		if _, ok := wishlistEntry(current, productID); ok {
			return ErrAlreadyInWishlist
		}
		if err := tx.InsertWishlistItem(ctx, owner, productID); err != nil {
			return err
		}
		items, err = tx.WishlistItems(ctx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// RemoveFromWishlist deletes the product from the wishlist if present.
func (s *Service) RemoveFromWishlist(ctx context.Context, owner identity.Identity, productID int64) ([]WishlistItem, error) {
	if owner.IsZero() {
		return nil, identity.ErrInvalidIdentity
	}
	var items []WishlistItem
	err := s.store.WithTx(ctx, func(tx Tx) error {
		current, err := tx.WishlistItems(ctx, owner)
		if err != nil {
			return fmt.Errorf("failed to query wishlist: %w", err)
		}
		if entry, ok := wishlistEntry(current, productID); ok {
			if err := tx.DeleteWishlistItem(ctx, entry.ID); err != nil {
				return fmt.Errorf("failed to remove wishlist item: %w", err)
			}
		}
		items, err = tx.WishlistItems(ctx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) ClearWishlist(ctx context.Context, owner identity.Identity) error {
	if owner.IsZero() {
		return identity.ErrInvalidIdentity
	}
	return s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.DeleteWishlist(ctx, owner); err != nil {
			return fmt.Errorf("failed to clear wishlist: %w", err)
		}
		return nil
	})
}

func wishlistEntry(items []WishlistItem, productID int64) (WishlistItem, bool) {
	for _, item := range items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return WishlistItem{}, false
}
