package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store adds transactional operations on top of Queries.
type Store struct {
	*Queries
	pool *pgxpool.Pool
}

// NewStore wraps pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Queries: New(pool), pool: pool}
}

// ExecTx runs fn inside a transaction, committing when fn returns nil.
func (s *Store) ExecTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(s.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// PlaceOrderParams is an order header with its items and the cart to empty.
type PlaceOrderParams struct {
	Order  CreateOrderParams
	Items  []CreateOrderItemParams
	CartID pgtype.UUID
}

// PlaceOrder persists the order and its items and clears the cart atomically.
func (s *Store) PlaceOrder(ctx context.Context, arg PlaceOrderParams) (Order, []OrderItem, error) {
	var (
		order Order
		items []OrderItem
	)
	err := s.ExecTx(ctx, func(q *Queries) error {
		var err error
		order, err = q.CreateOrder(ctx, arg.Order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		items = make([]OrderItem, 0, len(arg.Items))
		for _, it := range arg.Items {
			it.OrderID = order.ID
			row, err := q.CreateOrderItem(ctx, it)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
			items = append(items, row)
		}
		if arg.CartID.Valid {
			if err := q.ClearCart(ctx, arg.CartID); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, nil, err
	}
	return order, items, nil
}
