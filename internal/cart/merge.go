package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"storefront-service/internal/identity"
	"storefront-service/pkg/logkey"
)

// Merge moves a guest's cart and wishlist into the user's. Cart and wishlist are merged in
// separate transactions; a failure in one does not roll back the other.
func (s *Service) Merge(ctx context.Context, guest, user identity.Identity) error {
	if !guest.IsGuest() || !user.IsAuthenticated() {
		return nil
	}
	cartErr := s.store.WithTx(ctx, func(tx Tx) error {
		return mergeCart(ctx, tx, guest, user)
	})
	if cartErr != nil {
		cartErr = fmt.Errorf("failed to merge cart: %w", cartErr)
	}
	wishlistErr := s.store.WithTx(ctx, func(tx Tx) error {
		return mergeWishlist(ctx, tx, guest, user)
	})
	if wishlistErr != nil {
		wishlistErr = fmt.Errorf("failed to merge wishlist: %w", wishlistErr)
	}
	return errors.Join(cartErr, wishlistErr)
}

// MergeQuietly runs Merge and only logs the failure, so login is never blocked by it.
func (s *Service) MergeQuietly(ctx context.Context, guest, user identity.Identity) {
	if err := s.Merge(ctx, guest, user); err != nil {
		slog.Error("guest merge failed",
			slog.String(logkey.GuestKey, guest.GuestKey),
			slog.Int64(logkey.UserID, user.UserID),
			slog.String(logkey.ERROR, err.Error()))
	}
}

func mergeCart(ctx context.Context, tx Tx, guest, user identity.Identity) error {
	userCart, err := lockOrCreate(ctx, tx, user)
	if err != nil {
		return err
	}
	guestCart, err := tx.LockCart(ctx, guest)
	if errors.Is(err, ErrNoCart) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to lock guest cart: %w", err)
	}

	userItems, err := tx.Items(ctx, userCart.ID)
	if err != nil {
		return fmt.Errorf("failed to query user cart items: %w", err)
	}
	userCart.Items = userItems
	guestItems, err := tx.Items(ctx, guestCart.ID)
	if err != nil {
		return fmt.Errorf("failed to query guest cart items: %w", err)
	}

	total := userCart.Total
	for _, line := range guestItems {
		if existing, ok := userCart.itemFor(line.ProductID); ok {
			if err := tx.SetItemQuantity(ctx, existing.ID, existing.Quantity+line.Quantity); err != nil {
				return err
			}
		} else if _, err := tx.InsertItem(ctx, userCart.ID, line.ProductID, line.Quantity); err != nil {
			return err
		}
		// The cached total takes the undiscounted price, as every other cart total does.
		total = total.Add(line.Product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		if err := tx.DeleteItem(ctx, line.ID); err != nil {
			return err
		}
	}
	if err := tx.SetTotal(ctx, userCart.ID, total); err != nil {
		return err
	}
	return tx.DeleteCart(ctx, guestCart.ID)
}

func mergeWishlist(ctx context.Context, tx Tx, guest, user identity.Identity) error {
	guestItems, err := tx.WishlistItems(ctx, guest)
	if err != nil {
		return err
	}
	if len(guestItems) == 0 {
		return nil
	}
	userItems, err := tx.WishlistItems(ctx, user)
	if err != nil {
		return err
	}
	for _, item := range guestItems {
		if _, ok := wishlistEntry(userItems, item.ProductID); !ok {
			if err := tx.InsertWishlistItem(ctx, user, item.ProductID); err != nil {
				return err
			}
		}
		if err := tx.DeleteWishlistItem(ctx, item.ID); err != nil {
			return err
		}
	}
	return nil
}
