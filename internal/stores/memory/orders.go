package memory

import (
	"context"
	"sort"
	"strings"

	"storefront-service/internal/orders"
)

type orderStore struct {
	s *Store
}

func (o orderStore) ListByUser(ctx context.Context, userID int64) ([]orders.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	var out []orders.Order
	for _, order := range o.s.st.orders {
		if order.UserID == userID {
			out = append(out, o.withNames(order))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (o orderStore) GetByID(ctx context.Context, id int64) (orders.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	order, ok := o.s.st.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return o.withNames(order), nil
}

func (o orderStore) GetByCodeAndEmail(ctx context.Context, code, email string) (orders.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	for _, order := range o.s.st.orders {
		if order.Code == code && strings.EqualFold(order.Shipping.Email, email) {
			return o.withNames(order), nil
		}
	}
	return orders.Order{}, orders.ErrNotFound
}

// withNames fills item names from the catalog, as the SQL store does with a join.
func (o orderStore) withNames(order orders.Order) orders.Order {
	items := make([]orders.Item, len(order.Items))
	for i, item := range order.Items {
		if p, ok := o.s.st.products[item.ProductID]; ok {
			item.ProductName = p.Name
		}
		items[i] = item
	}
	order.Items = items
	return order
}
