package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, slug, price, entrepreneur_discount_percent, trainee_discount_percent, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Price, &p.EntrepreneurDiscountPercent,
		&p.TraineeDiscountPercent, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectProducts(rows pgx.Rows, err error) ([]Product, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

type ListProductsParams struct {
	Query      string
	OnlyActive bool
	Limit      int32
	Offset     int32
}

const listProducts = `SELECT ` + productColumns + ` FROM products
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
  AND (NOT $2 OR is_active)
ORDER BY name, id
LIMIT $3 OFFSET $4`

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	return collectProducts(q.db.Query(ctx, listProducts, arg.Query, arg.OnlyActive, arg.Limit, arg.Offset))
}

const countProducts = `SELECT count(*) FROM products
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
  AND (NOT $2 OR is_active)`

func (q *Queries) CountProducts(ctx context.Context, query string, onlyActive bool) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countProducts, query, onlyActive).Scan(&n)
	return n, err
}

const getProduct = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

func (q *Queries) GetProduct(ctx context.Context, id pgtype.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const getProductsByIDs = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1::uuid[])`

func (q *Queries) GetProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]Product, error) {
	return collectProducts(q.db.Query(ctx, getProductsByIDs, ids))
}

type CreateProductParams struct {
	Name                        string
	Slug                        string
	Price                       decimal.Decimal
	EntrepreneurDiscountPercent decimal.Decimal
	TraineeDiscountPercent      decimal.Decimal
	IsActive                    bool
}

const createProduct = `INSERT INTO products (name, slug, price, entrepreneur_discount_percent, trainee_discount_percent, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + productColumns

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, createProduct, arg.Name, arg.Slug, arg.Price,
		arg.EntrepreneurDiscountPercent, arg.TraineeDiscountPercent, arg.IsActive))
}

type UpdateProductParams struct {
	ID       pgtype.UUID
	Name     string
	Slug     string
	Price    decimal.Decimal
	IsActive bool
}

const updateProduct = `UPDATE products
SET name = $2, slug = $3, price = $4, is_active = $5, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, updateProduct, arg.ID, arg.Name, arg.Slug, arg.Price, arg.IsActive))
}

type UpdateProductDiscountsParams struct {
	ID                          pgtype.UUID
	EntrepreneurDiscountPercent decimal.Decimal
	TraineeDiscountPercent      decimal.Decimal
}

const updateProductDiscounts = `UPDATE products
SET entrepreneur_discount_percent = $2, trainee_discount_percent = $3, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

func (q *Queries) UpdateProductDiscounts(ctx context.Context, arg UpdateProductDiscountsParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, updateProductDiscounts, arg.ID,
		arg.EntrepreneurDiscountPercent, arg.TraineeDiscountPercent))
}
