package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"storefront-service/internal/pricing"
)

var (
	ErrNotFound            = errors.New("product not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrSubCategoryNotFound = errors.New("subcategory not found")
)

// Product is a sellable catalog entry. Price and Discount (a percentage) are decimals.
type Product struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
	SKU         string          `json:"sku"`
	InStock     bool            `json:"in_stock"`
	Quantity    int             `json:"quantity"`
	Sold        int             `json:"sold"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (p Product) DiscountedPrice() decimal.Decimal {
	return pricing.DiscountedPrice(p.Price, p.Discount)
}

// View is the JSON shape of a product in API responses.
type View struct {
	Product
	DiscountedPrice decimal.Decimal `json:"discountedPrice"`
}

func (p Product) View() View {
	return View{Product: p, DiscountedPrice: p.DiscountedPrice()}
}

// Category groups products. Listings include its subcategories.
type Category struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Slug          string        `json:"slug"`
	SubCategories []SubCategory `json:"sub_categories,omitempty"`
}

// SubCategory belongs to one Category, which is attached when it is listed on its own.
type SubCategory struct {
	ID         int64     `json:"id"`
	CategoryID int64     `json:"category_id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	Category   *Category `json:"category,omitempty"`
}

// Sort orders accepted by ListProducts.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortName      = "name"
	SortTopSold   = "top"
	SortDiscount  = "discount"
)

// PriceRange bounds the undiscounted price, both ends inclusive.
type PriceRange struct {
	From decimal.Decimal
	To   decimal.Decimal
}

// Filter narrows ListProducts. Category matches a category by name; CategoryID and SubCategoryID by id.
type Filter struct {
	Search        string
	DealsOnly     bool
	InStockOnly   bool
	Category      string
	CategoryID    int64
	SubCategoryID int64
	Price         *PriceRange
	Sort          string
	Limit         int
	Offset        int
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
	RelatedLimit = 12
)

// Normalize applies the default and maximum page sizes and rejects unknown sort orders.
func (f Filter) Normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Price != nil && f.Price.From.GreaterThan(f.Price.To) {
		f.Price = &PriceRange{From: f.Price.To, To: f.Price.From}
	}
	switch f.Sort {
	case SortNewest, SortPriceAsc, SortPriceDesc, SortName, SortTopSold, SortDiscount:
	default:
		f.Sort = SortNewest
	}
	return f
}
