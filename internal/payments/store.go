package payments

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"storefront-service/internal/orders"
	"storefront-service/internal/stores/postgres"
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

const paymentColumns = `id, reference, COALESCE(user_id, 0), COALESCE(guest_key, ''), amount, charge, status, meta, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (Payment, error) {
	var (
		p    Payment
		meta []byte
	)
	err := row.Scan(&p.ID, &p.Reference, &p.UserID, &p.GuestKey, &p.Amount, &p.Charge, &p.Status, &meta, &p.CreatedAt)
	if err != nil {
		return Payment{}, err
	}
	if err := json.Unmarshal(meta, &p.Meta); err != nil {
		return Payment{}, fmt.Errorf("failed to decode payment meta: %w", err)
	}
	return p, nil
}

func (c Conf) CreatePayment(ctx context.Context, p *Payment) error {
	meta, err := json.Marshal(p.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode payment meta: %w", err)
	}
	var (
		userID   sql.NullInt64
		guestKey sql.NullString
	)
	if p.UserID != 0 {
		userID = sql.NullInt64{Int64: p.UserID, Valid: true}
	}
	if p.GuestKey != "" {
		guestKey = sql.NullString{String: p.GuestKey, Valid: true}
	}
	query := `
		INSERT INTO payments (reference, user_id, guest_key, amount, charge, status, meta, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at
	`
	err = c.db.QueryRowContext(ctx, query, p.Reference, userID, guestKey, p.Amount, p.Charge, p.Status, meta).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (c Conf) GetByReference(ctx context.Context, reference string) (Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reference = $1`
	p, err := scanPayment(c.db.QueryRowContext(ctx, query, reference))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Payment{}, ErrNotFound
		}
		return Payment{}, fmt.Errorf("failed to query payment: %w", err)
	}
	return p, nil
}

func (c Conf) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		return fn(sqlTx{tx: tx})
	})
}

type sqlTx struct {
	tx *sql.Tx
}

func (t sqlTx) MarkSuccessful(ctx context.Context, reference string) (Payment, bool, error) {
	query := `
		UPDATE payments
		SET status = 'successful', updated_at = NOW()
		WHERE reference = $1 AND status = 'pending'
		RETURNING ` + paymentColumns
	p, err := scanPayment(t.tx.QueryRowContext(ctx, query, reference))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Payment{}, false, nil
		}
		return Payment{}, false, err
	}
	return p, true, nil
}

func (t sqlTx) OrderCodeExists(ctx context.Context, code string) (bool, error) {
	return orders.CodeExistsTx(ctx, t.tx, code)
}

func (t sqlTx) CreateOrder(ctx context.Context, o *orders.Order) error {
	return orders.InsertTx(ctx, t.tx, o)
}

func (t sqlTx) DeleteCartItem(ctx context.Context, id int64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	return err
}

func (t sqlTx) RefreshUserCartTotal(ctx context.Context, userID int64) error {
	query := `
		UPDATE carts c
		SET total = COALESCE((
			SELECT SUM(p.price * ci.quantity)
			FROM cart_items ci
			JOIN products p ON p.id = ci.product_id
			WHERE ci.cart_id = c.id
		), 0), updated_at = NOW()
		WHERE c.user_id = $1
	`
	_, err := t.tx.ExecContext(ctx, query, userID)
	return err
}

func (t sqlTx) DeleteGuestCart(ctx context.Context, guestKey string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM carts WHERE guest_key = $1`, guestKey)
	return err
}
