package memory

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"storefront-service/internal/orders"
	"storefront-service/internal/payments"
)

var errDuplicate = errors.New("duplicate key")

type paymentStore struct {
	s *Store
}

func (p paymentStore) CreatePayment(ctx context.Context, payment *payments.Payment) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if _, ok := p.s.st.payments[payment.Reference]; ok {
		return errDuplicate
	}
	payment.ID = p.s.id()
	payment.CreatedAt = p.s.now()
	p.s.st.payments[payment.Reference] = *payment
	return nil
}

func (p paymentStore) GetByReference(ctx context.Context, reference string) (payments.Payment, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	payment, ok := p.s.st.payments[reference]
	if !ok {
		return payments.Payment{}, payments.ErrNotFound
	}
	return payment, nil
}

func (p paymentStore) WithTx(ctx context.Context, fn func(tx payments.Tx) error) error {
	return p.s.withTx(func() error {
		return fn(paymentTx{p.s})
	})
}

type paymentTx struct {
	s *Store
}

func (t paymentTx) MarkSuccessful(ctx context.Context, reference string) (payments.Payment, bool, error) {
	payment, ok := t.s.st.payments[reference]
	if !ok || payment.Status != payments.StatusPending {
		return payments.Payment{}, false, nil
	}
	payment.Status = payments.StatusSuccessful
	t.s.st.payments[reference] = payment
	return payment, true, nil
}

func (t paymentTx) OrderCodeExists(ctx context.Context, code string) (bool, error) {
	for _, o := range t.s.st.orders {
		if o.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (t paymentTx) CreateOrder(ctx context.Context, o *orders.Order) error {
	for _, existing := range t.s.st.orders {
		if existing.Code == o.Code || existing.PaymentID == o.PaymentID {
			return errDuplicate
		}
	}
	o.ID = t.s.id()
	o.CreatedAt = t.s.now()
	items := make([]orders.Item, len(o.Items))
	for i, item := range o.Items {
		item.ID = t.s.id()
		item.OrderID = o.ID
		items[i] = item
	}
	o.Items = items
	t.s.st.orders[o.ID] = *o
	return nil
}

func (t paymentTx) DeleteCartItem(ctx context.Context, id int64) error {
	delete(t.s.st.items, id)
	return nil
}

func (t paymentTx) RefreshUserCartTotal(ctx context.Context, userID int64) error {
	for id, row := range t.s.st.carts {
		if row.owner.UserID != userID {
			continue
		}
		total := decimal.Zero
		for _, item := range t.s.st.items {
			if item.cartID == id {
				price := t.s.st.products[item.productID].Price
				total = total.Add(price.Mul(decimal.NewFromInt(int64(item.quantity))))
			}
		}
		row.total = total
		t.s.st.carts[id] = row
	}
	return nil
}

func (t paymentTx) DeleteGuestCart(ctx context.Context, guestKey string) error {
	for id, row := range t.s.st.carts {
		if row.owner.GuestKey == guestKey && row.owner.UserID == 0 {
			return cartTx{t.s}.DeleteCart(ctx, id)
		}
	}
	return nil
}
