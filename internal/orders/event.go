package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// TopicOrderCreated is the Kafka topic OrderCreated events are published to.
const TopicOrderCreated = "storefront.order-created"

// CreatedEvent is published after an order has been committed.
type CreatedEvent struct {
	OrderID     int64           `json:"order_id"`
	Code        string          `json:"code"`
	UserID      int64           `json:"user_id,omitempty"`
	Email       string          `json:"email"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Amount      decimal.Decimal `json:"amount"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Items       []EventItem     `json:"items"`
	CreatedAt   time.Time       `json:"created_at"`
}

type EventItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Total is the order amount plus shipping.
func (e CreatedEvent) Total() decimal.Decimal {
	return e.Amount.Add(e.ShippingFee)
}

func NewCreatedEvent(o Order) CreatedEvent {
	items := make([]EventItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, EventItem{
			ProductID: item.ProductID,
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return CreatedEvent{
		OrderID:     o.ID,
		Code:        o.Code,
		UserID:      o.UserID,
		Email:       o.Shipping.Email,
		FirstName:   o.Shipping.FirstName,
		LastName:    o.Shipping.LastName,
		Amount:      o.Amount,
		ShippingFee: o.ShippingFee,
		Items:       items,
		CreatedAt:   o.CreatedAt,
	}
}
