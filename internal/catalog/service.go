package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-apotek/internal/cache"
	"github.com/noah-isme/backend-apotek/internal/db"
	"github.com/noah-isme/backend-apotek/internal/pricing"
)

var (
	// ErrNotFound indicates the requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInvalidInput is returned when a product payload is invalid.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSlugTaken is returned when another product already uses the slug.
	ErrSlugTaken = errors.New("slug already in use")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type queryProvider interface {
	ListProducts(ctx context.Context, arg db.ListProductsParams) ([]db.Product, error)
	CountProducts(ctx context.Context, query string, onlyActive bool) (int64, error)
	GetProduct(ctx context.Context, id db.UUID) (db.Product, error)
	GetProductsByIDs(ctx context.Context, ids []db.UUID) ([]db.Product, error)
	CreateProduct(ctx context.Context, arg db.CreateProductParams) (db.Product, error)
	UpdateProduct(ctx context.Context, arg db.UpdateProductParams) (db.Product, error)
	UpdateProductDiscounts(ctx context.Context, arg db.UpdateProductDiscountsParams) (db.Product, error)
}

// Product is the catalog view of a product including its discount profile.
type Product struct {
	ID                          string          `json:"id"`
	Name                        string          `json:"name"`
	Slug                        string          `json:"slug"`
	Price                       decimal.Decimal `json:"price"`
	EntrepreneurDiscountPercent decimal.Decimal `json:"entrepreneurDiscountPercent"`
	TraineeDiscountPercent      decimal.Decimal `json:"traineeDiscountPercent"`
	IsActive                    bool            `json:"isActive"`
}

// Profile returns the product's discount profile.
func (p Product) Profile() pricing.DiscountProfile {
	return pricing.DiscountProfile{
		EntrepreneurPercent: p.EntrepreneurDiscountPercent,
		TraineePercent:      p.TraineeDiscountPercent,
	}
}

// ListParams captures filters for product listing.
type ListParams struct {
	Query      string
	OnlyActive bool
	Page       int
	Limit      int
}

// ListResult contains list data and pagination metadata.
type ListResult struct {
	Items []Product
	Total int64
	Page  int
	Limit int
}

// ProductInput is the admin payload for creating or replacing a product.
type ProductInput struct {
	Name     string          `json:"name" validate:"required,max=200"`
	Slug     string          `json:"slug" validate:"required,max=200"`
	Price    decimal.Decimal `json:"price"`
	IsActive *bool           `json:"isActive"`
	// Percent fields are only read on create; updates go through UpdateDiscounts.
	EntrepreneurDiscountPercent decimal.Decimal `json:"entrepreneurDiscountPercent"`
	TraineeDiscountPercent      decimal.Decimal `json:"traineeDiscountPercent"`
}

// DiscountInput is the admin payload for changing a product's discount profile.
type DiscountInput struct {
	EntrepreneurDiscountPercent decimal.Decimal `json:"entrepreneurDiscountPercent"`
	TraineeDiscountPercent      decimal.Decimal `json:"traineeDiscountPercent"`
}

// Service orchestrates catalog queries and the profile cache.
type Service struct {
	queries      queryProvider
	cache        *cache.JSON
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries      queryProvider
	Cache        *cache.JSON
	DefaultLimit int
	MaxLimit     int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &Service{queries: cfg.Queries, cache: cfg.Cache, defaultLimit: defaultLimit, maxLimit: maxLimit}, nil
}

// Limits returns the default and maximum page sizes.
func (s *Service) Limits() (int, int) { return s.defaultLimit, s.maxLimit }

// List returns a page of products.
func (s *Service) List(ctx context.Context, params ListParams) (ListResult, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	query := strings.TrimSpace(params.Query)
	total, err := s.queries.CountProducts(ctx, query, params.OnlyActive)
	if err != nil {
		return ListResult{}, fmt.Errorf("count products: %w", err)
	}
	rows, err := s.queries.ListProducts(ctx, db.ListProductsParams{
		Query:      query,
		OnlyActive: params.OnlyActive,
		Limit:      int32(limit),
		Offset:     int32((page - 1) * limit),
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("list products: %w", err)
	}
	items := make([]Product, 0, len(rows))
	for _, row := range rows {
		items = append(items, toProduct(row))
	}
	return ListResult{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	pid, err := db.ParseUUID(id)
	if err != nil {
		return Product{}, ErrNotFound
	}
	row, err := s.queries.GetProduct(ctx, pid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return toProduct(row), nil
}

// Create inserts a product. Discount percents are clamped to [0,100] before storage.
func (s *Service) Create(ctx context.Context, in ProductInput) (Product, error) {
	if err := validateInput(in); err != nil {
		return Product{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	row, err := s.queries.CreateProduct(ctx, db.CreateProductParams{
		Name:                        strings.TrimSpace(in.Name),
		Slug:                        in.Slug,
		Price:                       in.Price,
		EntrepreneurDiscountPercent: pricing.ClampPercent(in.EntrepreneurDiscountPercent),
		TraineeDiscountPercent:      pricing.ClampPercent(in.TraineeDiscountPercent),
		IsActive:                    active,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Product{}, ErrSlugTaken
		}
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	return toProduct(row), nil
}

// Update replaces name, slug, price and active flag of a product.
func (s *Service) Update(ctx context.Context, id string, in ProductInput) (Product, error) {
	pid, err := db.ParseUUID(id)
	if err != nil {
		return Product{}, ErrNotFound
	}
	if err := validateInput(in); err != nil {
		return Product{}, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	active := current.IsActive
	if in.IsActive != nil {
		active = *in.IsActive
	}
	row, err := s.queries.UpdateProduct(ctx, db.UpdateProductParams{
		ID:       pid,
		Name:     strings.TrimSpace(in.Name),
		Slug:     in.Slug,
		Price:    in.Price,
		IsActive: active,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Product{}, ErrSlugTaken
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	s.invalidate(ctx, id)
	return toProduct(row), nil
}

// UpdateDiscounts changes a product's discount profile, clamping both percents.
func (s *Service) UpdateDiscounts(ctx context.Context, id string, in DiscountInput) (Product, error) {
	pid, err := db.ParseUUID(id)
	if err != nil {
		return Product{}, ErrNotFound
	}
	row, err := s.queries.UpdateProductDiscounts(ctx, db.UpdateProductDiscountsParams{
		ID:                          pid,
		EntrepreneurDiscountPercent: pricing.ClampPercent(in.EntrepreneurDiscountPercent),
		TraineeDiscountPercent:      pricing.ClampPercent(in.TraineeDiscountPercent),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("update discounts: %w", err)
	}
	s.invalidate(ctx, id)
	return toProduct(row), nil
}

// Profiles returns the discount profiles for the given product ids, read
// through the redis cache. Results are keyed by the ids exactly as requested,
// so non-canonical UUID spellings still resolve. Unknown ids are simply absent.
func (s *Service) Profiles(ctx context.Context, ids []string) (pricing.MapCatalog, error) {
	out := make(pricing.MapCatalog, len(ids))
	aliases := make(map[string][]string, len(ids))
	var missing []db.UUID
	for _, id := range ids {
		if _, seen := out[id]; seen {
			continue
		}
		pid, err := db.ParseUUID(id)
		if err != nil {
			continue
		}
		canonical := db.UUIDString(pid)
		var profile pricing.DiscountProfile
		if hit, err := s.cache.Get(ctx, cache.KeyProduct(canonical), &profile); err == nil && hit {
			out[id] = profile.Clamped()
			continue
		}
		if _, queued := aliases[canonical]; !queued {
			missing = append(missing, pid)
		}
		aliases[canonical] = append(aliases[canonical], id)
	}
	if len(missing) == 0 {
		return out, nil
	}
	rows, err := s.queries.GetProductsByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	for _, row := range rows {
		p := toProduct(row)
		profile := p.Profile().Clamped()
		for _, id := range aliases[p.ID] {
			out[id] = profile
		}
		_ = s.cache.Set(ctx, cache.KeyProduct(p.ID), profile)
	}
	return out, nil
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if pid, err := db.ParseUUID(id); err == nil {
		id = db.UUIDString(pid)
	}
	_ = s.cache.Delete(ctx, cache.KeyProduct(id))
}

func validateInput(in ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !slugPattern.MatchString(in.Slug) {
		return fmt.Errorf("%w: slug must be lowercase words joined by dashes", ErrInvalidInput)
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	return nil
}

func toProduct(row db.Product) Product {
	return Product{
		ID:                          db.UUIDString(row.ID),
		Name:                        row.Name,
		Slug:                        row.Slug,
		Price:                       row.Price,
		EntrepreneurDiscountPercent: row.EntrepreneurDiscountPercent,
		TraineeDiscountPercent:      row.TraineeDiscountPercent,
		IsActive:                    row.IsActive,
	}
}
