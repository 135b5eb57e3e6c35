package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const getCartByUser = `SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`

func (q *Queries) GetCartByUser(ctx context.Context, userID pgtype.UUID) (Cart, error) {
	var c Cart
	err := q.db.QueryRow(ctx, getCartByUser, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const ensureCart = `INSERT INTO carts (user_id) VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
RETURNING id, user_id, created_at, updated_at`

// EnsureCart returns the user's cart, creating it on first use.
func (q *Queries) EnsureCart(ctx context.Context, userID pgtype.UUID) (Cart, error) {
	var c Cart
	err := q.db.QueryRow(ctx, ensureCart, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const cartItemColumns = `ci.id, ci.cart_id, ci.product_id, p.name, ci.unit_price, ci.quantity, ci.created_at`

func scanCartItem(row pgx.Row) (CartItem, error) {
	var it CartItem
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.Quantity, &it.CreatedAt)
	return it, err
}

const listCartItems = `SELECT ` + cartItemColumns + `
FROM cart_items ci JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1
ORDER BY ci.created_at, ci.id`

func (q *Queries) ListCartItems(ctx context.Context, cartID pgtype.UUID) ([]CartItem, error) {
	rows, err := q.db.Query(ctx, listCartItems, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CartItem
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const getCartItem = `SELECT ` + cartItemColumns + `
FROM cart_items ci JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1 AND ci.id = $2`

func (q *Queries) GetCartItem(ctx context.Context, cartID, itemID pgtype.UUID) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, getCartItem, cartID, itemID))
}

type AddCartItemParams struct {
	CartID    pgtype.UUID
	ProductID pgtype.UUID
	UnitPrice decimal.Decimal
	Quantity  int32
}

// addCartItem inserts a line or increments the existing one, refreshing the
// unit price snapshot.
const addCartItem = `WITH upserted AS (
  INSERT INTO cart_items (cart_id, product_id, unit_price, quantity)
  VALUES ($1, $2, $3, $4)
  ON CONFLICT (cart_id, product_id)
  DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, unit_price = EXCLUDED.unit_price
  RETURNING id, cart_id, product_id, unit_price, quantity, created_at
)
SELECT u.id, u.cart_id, u.product_id, p.name, u.unit_price, u.quantity, u.created_at
FROM upserted u JOIN products p ON p.id = u.product_id`

func (q *Queries) AddCartItem(ctx context.Context, arg AddCartItemParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, addCartItem, arg.CartID, arg.ProductID, arg.UnitPrice, arg.Quantity))
}

const setCartItemQuantity = `UPDATE cart_items SET quantity = $3 WHERE cart_id = $1 AND id = $2`

func (q *Queries) SetCartItemQuantity(ctx context.Context, cartID, itemID pgtype.UUID, quantity int32) (int64, error) {
	tag, err := q.db.Exec(ctx, setCartItemQuantity, cartID, itemID, quantity)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteCartItem = `DELETE FROM cart_items WHERE cart_id = $1 AND id = $2`

func (q *Queries) DeleteCartItem(ctx context.Context, cartID, itemID pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCartItem, cartID, itemID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const clearCart = `DELETE FROM cart_items WHERE cart_id = $1`

func (q *Queries) ClearCart(ctx context.Context, cartID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, clearCart, cartID)
	return err
}
