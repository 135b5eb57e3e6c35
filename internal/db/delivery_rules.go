package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const deliveryRuleColumns = `id, min_amount, max_amount, charge, is_active, created_at, updated_at`

func scanDeliveryRule(row pgx.Row) (DeliveryRule, error) {
	var r DeliveryRule
	err := row.Scan(&r.ID, &r.MinAmount, &r.MaxAmount, &r.Charge, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// ListDeliveryRules orders rules so that the first matching rule for an amount
// is also the one with the smallest max_amount.
const listDeliveryRules = `SELECT ` + deliveryRuleColumns + ` FROM delivery_rules
WHERE (NOT $1 OR is_active)
ORDER BY max_amount, min_amount, created_at, id`

func (q *Queries) ListDeliveryRules(ctx context.Context, onlyActive bool) ([]DeliveryRule, error) {
	rows, err := q.db.Query(ctx, listDeliveryRules, onlyActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DeliveryRule
	for rows.Next() {
		r, err := scanDeliveryRule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getDeliveryRule = `SELECT ` + deliveryRuleColumns + ` FROM delivery_rules WHERE id = $1`

func (q *Queries) GetDeliveryRule(ctx context.Context, id pgtype.UUID) (DeliveryRule, error) {
	return scanDeliveryRule(q.db.QueryRow(ctx, getDeliveryRule, id))
}

type CreateDeliveryRuleParams struct {
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
	Charge    decimal.Decimal
	IsActive  bool
}

const createDeliveryRule = `INSERT INTO delivery_rules (min_amount, max_amount, charge, is_active)
VALUES ($1, $2, $3, $4)
RETURNING ` + deliveryRuleColumns

func (q *Queries) CreateDeliveryRule(ctx context.Context, arg CreateDeliveryRuleParams) (DeliveryRule, error) {
	return scanDeliveryRule(q.db.QueryRow(ctx, createDeliveryRule, arg.MinAmount, arg.MaxAmount, arg.Charge, arg.IsActive))
}

type UpdateDeliveryRuleParams struct {
	ID        pgtype.UUID
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
	Charge    decimal.Decimal
}

const updateDeliveryRule = `UPDATE delivery_rules
SET min_amount = $2, max_amount = $3, charge = $4, updated_at = now()
WHERE id = $1
RETURNING ` + deliveryRuleColumns

func (q *Queries) UpdateDeliveryRule(ctx context.Context, arg UpdateDeliveryRuleParams) (DeliveryRule, error) {
	return scanDeliveryRule(q.db.QueryRow(ctx, updateDeliveryRule, arg.ID, arg.MinAmount, arg.MaxAmount, arg.Charge))
}

const setDeliveryRuleActive = `UPDATE delivery_rules SET is_active = $2, updated_at = now()
WHERE id = $1
RETURNING ` + deliveryRuleColumns

func (q *Queries) SetDeliveryRuleActive(ctx context.Context, id pgtype.UUID, active bool) (DeliveryRule, error) {
	return scanDeliveryRule(q.db.QueryRow(ctx, setDeliveryRuleActive, id, active))
}
