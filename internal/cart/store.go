package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"storefront-service/internal/catalog"
	"storefront-service/internal/identity"
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

func (c Conf) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return postgres.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		return fn(sqlTx{tx: tx})
	})
}

type sqlTx struct {
	tx *sql.Tx
}

// ownerClause returns the WHERE fragment and argument selecting rows of owner.
func ownerClause(owner identity.Identity, placeholder string) (string, any) {
	if owner.IsAuthenticated() {
		return "user_id = " + placeholder, owner.UserID
	}
	return "guest_key = " + placeholder, owner.GuestKey
}

func ownerColumns(owner identity.Identity) (sql.NullInt64, sql.NullString) {
	if owner.IsAuthenticated() {
		return sql.NullInt64{Int64: owner.UserID, Valid: true}, sql.NullString{}
	}
	return sql.NullInt64{}, sql.NullString{String: owner.GuestKey, Valid: true}
}

func (t sqlTx) Product(ctx context.Context, id int64) (catalog.Product, error) {
	query := `SELECT ` + catalog.Columns("") + ` FROM products WHERE id = $1 AND deleted_at IS NULL`
	var p catalog.Product
	if err := catalog.ScanProduct(t.tx.QueryRowContext(ctx, query, id), &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, fmt.Errorf("failed to query product %d: %w", id, err)
	}
	return p, nil
}

func (t sqlTx) LockCart(ctx context.Context, owner identity.Identity) (Cart, error) {
	where, arg := ownerClause(owner, "$1")
	query := `
		SELECT id, total
		FROM carts
		WHERE ` + where + `
		FOR UPDATE
	`
	cart := Cart{Owner: owner}
	err := t.tx.QueryRowContext(ctx, query, arg).Scan(&cart.ID, &cart.Total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cart{}, ErrNoCart
		}
		return Cart{}, fmt.Errorf("failed to lock cart: %w", err)
	}
	return cart, nil
}

// CreateCart inserts the owner's cart and locks it. A concurrent insert for the same owner
// is absorbed by the unique owner columns.
func (t sqlTx) CreateCart(ctx context.Context, owner identity.Identity) (Cart, error) {
	userID, guestKey := ownerColumns(owner)
	query := `
		INSERT INTO carts (user_id, guest_key, total, created_at, updated_at)
		VALUES ($1, $2, 0, NOW(), NOW())
		ON CONFLICT DO NOTHING
	`
	if _, err := t.tx.ExecContext(ctx, query, userID, guestKey); err != nil {
		return Cart{}, err
	}
	return t.LockCart(ctx, owner)
}

func (t sqlTx) Items(ctx context.Context, cartID int64) ([]Item, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ` + catalog.Columns("p") + `
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id
	`
	rows, err := t.tx.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		p := &item.Product
		err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity,
			&p.ID, &p.Code, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Discount, &p.SKU,
			&p.InStock, &p.Quantity, &p.Sold, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}
	return items, nil
}

func (t sqlTx) InsertItem(ctx context.Context, cartID, productID int64, quantity int) (int64, error) {
	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id
	`
	var id int64
	if err := t.tx.QueryRowContext(ctx, query, cartID, productID, quantity).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (t sqlTx) SetItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE cart_items SET quantity = $1, updated_at = NOW() WHERE id = $2`, quantity, itemID)
	return err
}

func (t sqlTx) DeleteItem(ctx context.Context, itemID int64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	return err
}

func (t sqlTx) DeleteItems(ctx context.Context, cartID int64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	return err
}

func (t sqlTx) SetTotal(ctx context.Context, cartID int64, total decimal.Decimal) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE carts SET total = $1, updated_at = NOW() WHERE id = $2`, total, cartID)
	return err
}

func (t sqlTx) DeleteCart(ctx context.Context, cartID int64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	return err
}

func (t sqlTx) WishlistItems(ctx context.Context, owner identity.Identity) ([]WishlistItem, error) {
	where, arg := ownerClause(owner, "$1")
	query := `
		SELECT w.id, w.product_id, ` + catalog.Columns("p") + `
		FROM wishlists w
		JOIN products p ON p.id = w.product_id
		WHERE w.` + where + `
		ORDER BY w.id
	`
	rows, err := t.tx.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []WishlistItem
	for rows.Next() {
		var item WishlistItem
		p := &item.Product
		err := rows.Scan(&item.ID, &item.ProductID,
			&p.ID, &p.Code, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Discount, &p.SKU,
			&p.InStock, &p.Quantity, &p.Sold, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wishlist items: %w", err)
	}
	return items, nil
}

func (t sqlTx) InsertWishlistItem(ctx context.Context, owner identity.Identity, productID int64) error {
	userID, guestKey := ownerColumns(owner)
	query := `
		INSERT INTO wishlists (user_id, guest_key, product_id, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	_, err := t.tx.ExecContext(ctx, query, userID, guestKey, productID)
	if postgres.IsUniqueViolation(err) {
		return ErrAlreadyInWishlist
	}
	return err
}

func (t sqlTx) DeleteWishlistItem(ctx context.Context, id int64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM wishlists WHERE id = $1`, id)
	return err
}

func (t sqlTx) DeleteWishlist(ctx context.Context, owner identity.Identity) error {
	where, arg := ownerClause(owner, "$1")
	_, err := t.tx.ExecContext(ctx, `DELETE FROM wishlists WHERE `+where, arg)
	return err
}
