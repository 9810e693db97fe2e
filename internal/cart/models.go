package cart

import (
	"errors"

	"github.com/shopspring/decimal"

	"storefront-service/internal/catalog"
	"storefront-service/internal/identity"
	"storefront-service/internal/pricing"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrAlreadyInWishlist = errors.New("product already added to wishlist")
	// ErrNoCart is returned by Tx.LockCart when the owner has no cart row yet.
	ErrNoCart = errors.New("no cart for owner")
)

// Cart is the single cart of an identity. Total caches the undiscounted subtotal.
type Cart struct {
	ID    int64
	Owner identity.Identity
	Total decimal.Decimal
	Items []Item
}

// Item is one cart line; Product is the live catalog row it points at.
type Item struct {
	ID        int64
	CartID    int64
	ProductID int64
	Quantity  int
	Product   catalog.Product
}

func (c Cart) lines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, pricing.Line{
			Price:    item.Product.Price,
			Discount: item.Product.Discount,
			Quantity: item.Quantity,
		})
	}
	return lines
}

// Subtotal is Σ price*quantity without discounts.
func (c Cart) Subtotal() decimal.Decimal {
	return pricing.Subtotal(c.lines())
}

// DiscountedTotal is Σ discountedPrice*quantity, the amount charged at checkout.
func (c Cart) DiscountedTotal() decimal.Decimal {
	return pricing.DiscountedTotal(c.lines())
}

func (c Cart) itemFor(productID int64) (Item, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return Item{}, false
}

// WishlistItem is one product saved by an identity.
type WishlistItem struct {
	ID        int64
	ProductID int64
	Product   catalog.Product
}

// View is the JSON shape of a cart: subTotal is the cached undiscounted total,
// total the discounted one.
type View struct {
	Items    []ItemView      `json:"items"`
	SubTotal decimal.Decimal `json:"subTotal"`
	Total    decimal.Decimal `json:"total"`
}

type ItemView struct {
	ID       int64        `json:"id"`
	Product  catalog.View `json:"product"`
	Quantity int          `json:"quantity"`
}

func (c Cart) View() View {
	items := make([]ItemView, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, ItemView{ID: item.ID, Product: item.Product.View(), Quantity: item.Quantity})
	}
	return View{Items: items, SubTotal: c.Total, Total: c.DiscountedTotal()}
}

// WishlistView renders wishlist entries as products.
func WishlistView(items []WishlistItem) []catalog.View {
	out := make([]catalog.View, 0, len(items))
	for _, item := range items {
		out = append(out, item.Product.View())
	}
	return out
}
