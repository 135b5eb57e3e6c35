package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, user_id, tier, status, subtotal, total_discount, subtotal_after_discount,
delivery_charge, grand_total, delivery_rule_id, address_note, created_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Tier, &o.Status, &o.Subtotal, &o.TotalDiscount,
		&o.SubtotalAfterDiscount, &o.DeliveryCharge, &o.GrandTotal, &o.DeliveryRuleID,
		&o.AddressNote, &o.CreatedAt)
	return o, err
}

type CreateOrderParams struct {
	UserID                pgtype.UUID
	Tier                  string
	Subtotal              decimal.Decimal
	TotalDiscount         decimal.Decimal
	SubtotalAfterDiscount decimal.Decimal
	DeliveryCharge        decimal.Decimal
	GrandTotal            decimal.Decimal
	DeliveryRuleID        pgtype.UUID
	AddressNote           string
}

const createOrder = `INSERT INTO orders (user_id, tier, subtotal, total_discount, subtotal_after_discount,
  delivery_charge, grand_total, delivery_rule_id, address_note)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder, arg.UserID, arg.Tier, arg.Subtotal, arg.TotalDiscount,
		arg.SubtotalAfterDiscount, arg.DeliveryCharge, arg.GrandTotal, arg.DeliveryRuleID, arg.AddressNote))
}

type CreateOrderItemParams struct {
	OrderID           pgtype.UUID
	ProductID         pgtype.UUID
	ProductName       string
	UnitPrice         decimal.Decimal
	Quantity          int32
	LineSubtotal      decimal.Decimal
	ApplicablePercent decimal.Decimal
	LineDiscount      decimal.Decimal
}

const orderItemColumns = `id, order_id, product_id, product_name, unit_price, quantity, line_subtotal, applicable_percent, line_discount`

func scanOrderItem(row pgx.Row) (OrderItem, error) {
	var it OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.Quantity,
		&it.LineSubtotal, &it.ApplicablePercent, &it.LineDiscount)
	return it, err
}

const createOrderItem = `INSERT INTO order_items (order_id, product_id, product_name, unit_price, quantity,
  line_subtotal, applicable_percent, line_discount)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + orderItemColumns

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, createOrderItem, arg.OrderID, arg.ProductID, arg.ProductName,
		arg.UnitPrice, arg.Quantity, arg.LineSubtotal, arg.ApplicablePercent, arg.LineDiscount))
}

const listOrdersByUser = `SELECT ` + orderColumns + ` FROM orders
WHERE user_id = $1
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3`

func (q *Queries) ListOrdersByUser(ctx context.Context, userID pgtype.UUID, limit, offset int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByUser, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const getOrderForUser = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2`

func (q *Queries) GetOrderForUser(ctx context.Context, id, userID pgtype.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUser, id, userID))
}

const listOrderItems = `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY id`

func (q *Queries) ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
