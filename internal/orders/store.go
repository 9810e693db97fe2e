package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Conf is the PostgreSQL Store.
type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const orderColumns = `o.id, o.payment_id, COALESCE(o.user_id, 0), o.code, o.status,
	o.first_name, o.last_name, o.email, o.phone, o.country, o.state, o.city, o.address, o.postcode, o.note,
	o.shipping, o.amount, o.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner, o *Order) error {
	s := &o.Shipping
	return row.Scan(&o.ID, &o.PaymentID, &o.UserID, &o.Code, &o.Status,
		&s.FirstName, &s.LastName, &s.Email, &s.Phone, &s.Country, &s.State, &s.City, &s.Address, &s.Postcode, &s.Note,
		&o.ShippingFee, &o.Amount, &o.CreatedAt)
}

func (c Conf) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id DESC`
	rows, err := c.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	for i := range out {
		if out[i].Items, err = items(ctx, c.db, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c Conf) GetByID(ctx context.Context, id int64) (Order, error) {
	return c.getOne(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id)
}

func (c Conf) GetByCodeAndEmail(ctx context.Context, code, email string) (Order, error) {
	return c.getOne(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.code = $1 AND LOWER(o.email) = LOWER($2)`, code, email)
}

func (c Conf) getOne(ctx context.Context, query string, args ...any) (Order, error) {
	var o Order
	if err := scanOrder(c.db.QueryRowContext(ctx, query, args...), &o); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("failed to query order: %w", err)
	}
	var err error
	if o.Items, err = items(ctx, c.db, o.ID); err != nil {
		return Order{}, err
	}
	return o, nil
}

func items(ctx context.Context, q querier, orderID int64) ([]Item, error) {
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`
	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return out, nil
}

// CodeExistsTx reports whether a tracking code is already taken.
func CodeExistsTx(ctx context.Context, tx *sql.Tx, code string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE code = $1)`, code).Scan(&exists)
	return exists, err
}

// InsertTx stores o and its items inside tx, filling in the generated ids and timestamps.
func InsertTx(ctx context.Context, tx *sql.Tx, o *Order) error {
	var userID sql.NullInt64
	if o.UserID != 0 {
		userID = sql.NullInt64{Int64: o.UserID, Valid: true}
	}
	s := o.Shipping
	query := `
		INSERT INTO orders (payment_id, user_id, code, status, first_name, last_name, email, phone,
			country, state, city, address, postcode, note, shipping, amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
		RETURNING id, created_at
	`
	err := tx.QueryRowContext(ctx, query, o.PaymentID, userID, o.Code, o.Status, s.FirstName, s.LastName, s.Email,
		s.Phone, s.Country, s.State, s.City, s.Address, s.Postcode, s.Note, o.ShippingFee, o.Amount).
		Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, quantity, price, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id
	`
	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		if err := tx.QueryRowContext(ctx, itemQuery, o.ID, item.ProductID, item.Quantity, item.Price).Scan(&item.ID); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return nil
}
