package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-apotek/internal/catalog"
	"github.com/noah-isme/backend-apotek/internal/db"
	"github.com/noah-isme/backend-apotek/internal/pricing"
)

var (
	// ErrNotFound indicates the requested cart line could not be located.
	ErrNotFound = errors.New("cart item not found")
	// ErrInvalidInput is returned when the provided payload is invalid.
	ErrInvalidInput = errors.New("invalid input")
	// ErrProductUnavailable is returned when adding an unknown or inactive product.
	ErrProductUnavailable = errors.New("product unavailable")
)

type queryProvider interface {
	EnsureCart(ctx context.Context, userID db.UUID) (db.Cart, error)
	ListCartItems(ctx context.Context, cartID db.UUID) ([]db.CartItem, error)
	GetCartItem(ctx context.Context, cartID, itemID db.UUID) (db.CartItem, error)
	AddCartItem(ctx context.Context, arg db.AddCartItemParams) (db.CartItem, error)
	SetCartItemQuantity(ctx context.Context, cartID, itemID db.UUID, quantity int32) (int64, error)
	DeleteCartItem(ctx context.Context, cartID, itemID db.UUID) (int64, error)
	ClearCart(ctx context.Context, cartID db.UUID) error
}

// ProductSource resolves the current catalog price of a product.
type ProductSource interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
}

// Item is one cart line with its unit price snapshot.
type Item struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// Cart is a buyer's cart. Subtotal is before any tier discount.
type Cart struct {
	ID       string          `json:"id"`
	UserID   string          `json:"userId"`
	Items    []Item          `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Lines converts the cart into engine input, keyed by product id.
func (c Cart) Lines() []pricing.CartLine {
	lines := make([]pricing.CartLine, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, pricing.CartLine{
			ProductRef: it.ProductID,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
		})
	}
	return lines
}

// ProductIDs returns the distinct product ids in the cart.
func (c Cart) ProductIDs() []string {
	seen := make(map[string]struct{}, len(c.Items))
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

// Service encapsulates cart domain operations.
type Service struct {
	Q        queryProvider
	Products ProductSource
}

// EnsureCart loads or creates the cart owned by userID.
func (s *Service) EnsureCart(ctx context.Context, userID string) (db.Cart, error) {
	if s == nil || s.Q == nil {
		return db.Cart{}, errors.New("cart service not configured")
	}
	uid, err := db.ParseUUID(userID)
	if err != nil {
		return db.Cart{}, fmt.Errorf("parse user id: %w", ErrInvalidInput)
	}
	return s.Q.EnsureCart(ctx, uid)
}

// Get returns the user's cart with its lines.
func (s *Service) Get(ctx context.Context, userID string) (Cart, error) {
	header, err := s.EnsureCart(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	return s.load(ctx, header)
}

// MaxQuantity bounds a single line's quantity. It keeps every accepted value
// inside the int32 column.
const MaxQuantity = 100000

func checkQuantity(qty int) error {
	if qty > MaxQuantity {
		return fmt.Errorf("quantity must be at most %d: %w", MaxQuantity, ErrInvalidInput)
	}
	return nil
}

// AddItem inserts a line or increments an existing one. The unit price is
// snapshotted from the catalog at the time of the call.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (Cart, error) {
	if qty < 1 {
		return Cart{}, fmt.Errorf("quantity must be at least 1: %w", ErrInvalidInput)
	}
	if err := checkQuantity(qty); err != nil {
		return Cart{}, err
	}
	header, err := s.EnsureCart(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	if s.Products == nil {
		return Cart{}, errors.New("cart product source not configured")
	}
	product, err := s.Products.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Cart{}, ErrProductUnavailable
		}
		return Cart{}, err
	}
	if !product.IsActive {
		return Cart{}, ErrProductUnavailable
	}
	pid, err := db.ParseUUID(product.ID)
	if err != nil {
		return Cart{}, err
	}
	if _, err := s.Q.AddCartItem(ctx, db.AddCartItemParams{
		CartID:    header.ID,
		ProductID: pid,
		UnitPrice: pricing.SafeNonNegative(product.Price),
		Quantity:  int32(qty),
	}); err != nil {
		return Cart{}, fmt.Errorf("add cart item: %w", err)
	}
	return s.load(ctx, header)
}

// Decrement lowers a line's quantity by one, removing the line instead of
// letting it fall below 1.
func (s *Service) Decrement(ctx context.Context, userID, itemID string) (Cart, error) {
	header, iid, item, err := s.item(ctx, userID, itemID)
	if err != nil {
		return Cart{}, err
	}
	if item.Quantity <= 1 {
		return s.remove(ctx, header, iid)
	}
	if _, err := s.Q.SetCartItemQuantity(ctx, header.ID, iid, item.Quantity-1); err != nil {
		return Cart{}, fmt.Errorf("decrement cart item: %w", err)
	}
	return s.load(ctx, header)
}

// SetQuantity replaces a line's quantity. A quantity below 1 removes the line.
func (s *Service) SetQuantity(ctx context.Context, userID, itemID string, qty int) (Cart, error) {
	if err := checkQuantity(qty); err != nil {
		return Cart{}, err
	}
	header, iid, _, err := s.item(ctx, userID, itemID)
	if err != nil {
		return Cart{}, err
	}
	if qty < 1 {
		return s.remove(ctx, header, iid)
	}
	if _, err := s.Q.SetCartItemQuantity(ctx, header.ID, iid, int32(qty)); err != nil {
		return Cart{}, fmt.Errorf("set cart item quantity: %w", err)
	}
	return s.load(ctx, header)
}

// RemoveItem deletes a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) (Cart, error) {
	header, iid, _, err := s.item(ctx, userID, itemID)
	if err != nil {
		return Cart{}, err
	}
	return s.remove(ctx, header, iid)
}

// Clear removes every line from the user's cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	header, err := s.EnsureCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.Q.ClearCart(ctx, header.ID)
}

func (s *Service) item(ctx context.Context, userID, itemID string) (db.Cart, db.UUID, db.CartItem, error) {
	header, err := s.EnsureCart(ctx, userID)
	if err != nil {
		return db.Cart{}, db.UUID{}, db.CartItem{}, err
	}
	iid, err := db.ParseUUID(itemID)
	if err != nil {
		return db.Cart{}, db.UUID{}, db.CartItem{}, ErrNotFound
	}
	item, err := s.Q.GetCartItem(ctx, header.ID, iid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Cart{}, db.UUID{}, db.CartItem{}, ErrNotFound
		}
		return db.Cart{}, db.UUID{}, db.CartItem{}, err
	}
	return header, iid, item, nil
}

func (s *Service) remove(ctx context.Context, header db.Cart, iid db.UUID) (Cart, error) {
	n, err := s.Q.DeleteCartItem(ctx, header.ID, iid)
	if err != nil {
		return Cart{}, fmt.Errorf("remove cart item: %w", err)
	}
	if n == 0 {
		return Cart{}, ErrNotFound
	}
	return s.load(ctx, header)
}

func (s *Service) load(ctx context.Context, header db.Cart) (Cart, error) {
	rows, err := s.Q.ListCartItems(ctx, header.ID)
	if err != nil {
		return Cart{}, fmt.Errorf("list cart items: %w", err)
	}
	out := Cart{
		ID:     db.UUIDString(header.ID),
		UserID: db.UUIDString(header.UserID),
		Items:  make([]Item, 0, len(rows)),
	}
	out.Subtotal = decimal.Zero
	for _, row := range rows {
		lineTotal := row.UnitPrice.Mul(decimal.NewFromInt32(row.Quantity))
		out.Subtotal = out.Subtotal.Add(lineTotal)
		out.Items = append(out.Items, Item{
			ID:          db.UUIDString(row.ID),
			ProductID:   db.UUIDString(row.ProductID),
			ProductName: row.ProductName,
			UnitPrice:   row.UnitPrice,
			Quantity:    int(row.Quantity),
			LineTotal:   lineTotal,
		})
	}
	return out, nil
}
