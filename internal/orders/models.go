package orders

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("order not found")

const StatusPending = "pending"

// Tracking codes are 7-digit numbers.
const (
	minCode = 1000000
	maxCode = 9999999
)

// NewTrackingCode returns a random 7-digit code. Uniqueness is enforced by the store.
func NewTrackingCode() string {
	return fmt.Sprintf("%d", minCode+rand.Intn(maxCode-minCode+1))
}

// Shipping holds the delivery details collected at checkout.
type Shipping struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	Country   string `json:"country" validate:"required"`
	State     string `json:"state" validate:"required"`
	City      string `json:"city" validate:"required"`
	Address   string `json:"address" validate:"required"`
	Postcode  string `json:"postcode"`
	Note      string `json:"note"`
}

// Order is created once from a successful payment. UserID is zero for guest orders.
type Order struct {
	ID          int64
	PaymentID   int64
	UserID      int64
	Code        string
	Status      string
	Shipping    Shipping
	ShippingFee decimal.Decimal
	Amount      decimal.Decimal
	Items       []Item
	CreatedAt   time.Time
}

// Item keeps the discounted unit price paid; it is never recomputed.
type Item struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

type View struct {
	ID              int64           `json:"id"`
	TrackingCode    string          `json:"tracking_code"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
	ShippingDetails Shipping        `json:"shipping_details"`
	ShippingFee     decimal.Decimal `json:"shipping_fee"`
	Items           []ItemView      `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
}

type ItemView struct {
	Product       ProductRef      `json:"product"`
	Quantity      int             `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
}

type ProductRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (o Order) View() View {
	items := make([]ItemView, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, ItemView{
			Product:       ProductRef{ID: item.ProductID, Name: item.ProductName},
			Quantity:      item.Quantity,
			PurchasePrice: item.Price,
		})
	}
	return View{
		ID:              o.ID,
		TrackingCode:    o.Code,
		Amount:          o.Amount,
		Status:          o.Status,
		ShippingDetails: o.Shipping,
		ShippingFee:     o.ShippingFee,
		Items:           items,
		CreatedAt:       o.CreatedAt,
	}
}
