package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-apotek/internal/cache"
	"github.com/noah-isme/backend-apotek/internal/cart"
	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/db"
	"github.com/noah-isme/backend-apotek/internal/events"
	"github.com/noah-isme/backend-apotek/internal/lock"
	"github.com/noah-isme/backend-apotek/internal/normalize"
	"github.com/noah-isme/backend-apotek/internal/obs"
	"github.com/noah-isme/backend-apotek/internal/pricing"
)

var (
	// ErrEmptyCart is returned when placing an order from a cart with no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrOrderNotFound indicates the order does not exist or belongs to someone else.
	ErrOrderNotFound = errors.New("order not found")
	// ErrBusy is returned when another checkout holds the cart lock.
	ErrBusy = errors.New("checkout already in progress")
)

// CartSource loads the buyer's cart snapshot.
type CartSource interface {
	Get(ctx context.Context, userID string) (cart.Cart, error)
}

// TierSource resolves the buyer's pricing tier.
type TierSource interface {
	Tier(ctx context.Context, userID string) (pricing.Tier, error)
}

// CatalogSource resolves discount profiles by product id.
type CatalogSource interface {
	Profiles(ctx context.Context, ids []string) (pricing.MapCatalog, error)
}

// RuleSource returns the active delivery ruleset.
type RuleSource interface {
	ActiveRules(ctx context.Context) ([]pricing.DeliveryRule, error)
}

// OrderStore persists and reads orders.
type OrderStore interface {
	PlaceOrder(ctx context.Context, arg db.PlaceOrderParams) (db.Order, []db.OrderItem, error)
	ListOrdersByUser(ctx context.Context, userID pgtype.UUID, limit, offset int32) ([]db.Order, error)
	GetOrderForUser(ctx context.Context, id, userID pgtype.UUID) (db.Order, error)
	ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]db.OrderItem, error)
}

// Locker serialises work on a key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic string, aggregateID pgtype.UUID, payload any) (db.DomainEvent, error)
}

// Service prices carts and turns them into orders.
type Service struct {
	Carts   CartSource
	Tiers   TierSource
	Catalog CatalogSource
	Rules   RuleSource
	Store   OrderStore
	Locker  Locker
	LockTTL time.Duration
	Events  Emitter
	Cache   *cache.JSON
	Engine  pricing.Engine
	Logger  zerolog.Logger
}

// Summary is the wire form of pricing.OrderPriceSummary.
type Summary struct {
	Subtotal              decimal.Decimal `json:"subtotal"`
	TotalDiscount         decimal.Decimal `json:"totalDiscount"`
	SubtotalAfterDiscount decimal.Decimal `json:"subtotalAfterDiscount"`
	DeliveryCharge        decimal.Decimal `json:"deliveryCharge"`
	GrandTotal            decimal.Decimal `json:"grandTotal"`
}

// QuoteLine is one priced cart line.
type QuoteLine struct {
	ProductID         string          `json:"productId"`
	ProductName       string          `json:"productName,omitempty"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	Quantity          int             `json:"quantity"`
	LineSubtotal      decimal.Decimal `json:"lineSubtotal"`
	ApplicablePercent decimal.Decimal `json:"applicablePercent"`
	LineDiscount      decimal.Decimal `json:"lineDiscount"`
}

// Quote is a priced cart.
type Quote struct {
	Tier           pricing.Tier `json:"tier"`
	Lines          []QuoteLine  `json:"lines"`
	Summary        Summary      `json:"summary"`
	DeliveryRuleID string       `json:"deliveryRuleId,omitempty"`
}

// PreviewInput is an ad-hoc pricing request in any of the accepted upstream shapes.
type PreviewInput struct {
	Tier   string           `json:"tier"`
	Items  []map[string]any `json:"items"`
	Rules  []map[string]any `json:"deliveryRules"`
	Strict *bool            `json:"strict"`
}

// Order is a placed order with its frozen pricing.
type Order struct {
	ID             string      `json:"id"`
	Status         string      `json:"status"`
	Tier           string      `json:"tier"`
	Lines          []QuoteLine `json:"lines,omitempty"`
	Summary        Summary     `json:"summary"`
	DeliveryRuleID string      `json:"deliveryRuleId,omitempty"`
	AddressNote    string      `json:"addressNote,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// Quote prices the user's current cart.
func (s *Service) Quote(ctx context.Context, userID string) (Quote, error) {
	c, err := s.Carts.Get(ctx, userID)
	if err != nil {
		return Quote{}, err
	}
	q, _, err := s.quoteCart(ctx, userID, c)
	return q, err
}

// Preview prices ad-hoc input without touching the cart. Profiles embedded in
// the items win over the catalog; rules default to the active ruleset.
func (s *Service) Preview(ctx context.Context, in PreviewInput) (Quote, error) {
	engine := s.Engine
	if in.Strict != nil {
		engine.Policy = pricing.Lenient
		if *in.Strict {
			engine.Policy = pricing.Strict
		}
	}
	tier, _ := pricing.ParseTier(in.Tier)

	lines, embedded, err := normalize.CartLines(in.Items, engine.Policy)
	if err != nil {
		obs.ObserveQuote(tier.String(), "malformed")
		return Quote{}, err
	}
	var rules []pricing.DeliveryRule
	if in.Rules != nil {
		rules, err = normalize.DeliveryRules(in.Rules, engine.Policy)
		if err != nil {
			obs.ObserveQuote(tier.String(), "malformed")
			return Quote{}, err
		}
	} else if rules, err = s.Rules.ActiveRules(ctx); err != nil {
		return Quote{}, err
	}

	var missing []string
	for _, l := range lines {
		if _, ok := embedded[l.ProductRef]; !ok {
			missing = append(missing, l.ProductRef)
		}
	}
	profiles := embedded
	if len(missing) > 0 {
		fromCatalog, err := s.Catalog.Profiles(ctx, missing)
		if err != nil {
			return Quote{}, err
		}
		for ref, p := range fromCatalog {
			profiles[ref] = p
		}
	}
	return s.compute(engine, lines, nil, profiles, tier, rules)
}

// PlaceOrder prices the cart under the cart lock and persists the order.
// The cart is emptied in the same transaction.
func (s *Service) PlaceOrder(ctx context.Context, userID, addressNote string) (Order, error) {
	c, err := s.Carts.Get(ctx, userID)
	if err != nil {
		return Order{}, err
	}
	var placed Order
	err = s.Locker.WithLock(ctx, lock.CartKey(c.ID), s.LockTTL, func(ctx context.Context) error {
		// re-read under the lock so a concurrent edit is not lost
		c, err := s.Carts.Get(ctx, userID)
		if err != nil {
			return err
		}
		if len(c.Items) == 0 {
			return ErrEmptyCart
		}
		q, rule, err := s.quoteCart(ctx, userID, c)
		if err != nil {
			return err
		}
		params, err := orderParams(userID, c, q, rule, addressNote)
		if err != nil {
			return err
		}
		order, items, err := s.Store.PlaceOrder(ctx, params)
		if err != nil {
			return fmt.Errorf("place order: %w", err)
		}
		placed = toOrder(order, items)
		return nil
	})
	if err != nil {
		result := "error"
		switch {
		case errors.Is(err, ErrEmptyCart):
			result = "empty_cart"
		case errors.Is(err, lock.ErrNotAcquired):
			result = "busy"
			err = ErrBusy
		}
		obs.ObserveOrder(result)
		return Order{}, err
	}
	obs.ObserveOrder("ok")

	if s.Events != nil {
		payload := map[string]any{
			"orderId":    placed.ID,
			"userId":     userID,
			"tier":       placed.Tier,
			"grandTotal": placed.Summary.GrandTotal.String(),
			"items":      len(placed.Lines),
		}
		orderID, _ := db.ParseUUID(placed.ID)
		if _, err := s.Events.Emit(ctx, events.TopicOrderCreated, orderID, payload); err != nil {
			s.Logger.Warn().Err(err).Str("order_id", placed.ID).Msg("emit order.created")
		}
	}
	return placed, nil
}

// Orders lists the user's orders, newest first.
func (s *Service) Orders(ctx context.Context, userID string, p common.Pagination) ([]Order, error) {
	uid, err := db.ParseUUID(userID)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	rows, err := s.Store.ListOrdersByUser(ctx, uid, int32(p.PerPage), int32(p.Offset()))
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, toOrder(row, nil))
	}
	return out, nil
}

// Order returns one of the user's orders with its lines.
func (s *Service) Order(ctx context.Context, userID, orderID string) (Order, error) {
	uid, err := db.ParseUUID(userID)
	if err != nil {
		return Order{}, ErrOrderNotFound
	}
	oid, err := db.ParseUUID(orderID)
	if err != nil {
		return Order{}, ErrOrderNotFound
	}
	row, err := s.Store.GetOrderForUser(ctx, oid, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	items, err := s.Store.ListOrderItems(ctx, row.ID)
	if err != nil {
		return Order{}, fmt.Errorf("list order items: %w", err)
	}
	return toOrder(row, items), nil
}

func (s *Service) quoteCart(ctx context.Context, userID string, c cart.Cart) (Quote, *pricing.DeliveryRule, error) {
	tier, err := s.Tiers.Tier(ctx, userID)
	if err != nil {
		return Quote{}, nil, err
	}
	profiles, err := s.Catalog.Profiles(ctx, c.ProductIDs())
	if err != nil {
		return Quote{}, nil, err
	}
	rules, err := s.Rules.ActiveRules(ctx)
	if err != nil {
		return Quote{}, nil, err
	}
	lines := c.Lines()

	key := cache.KeyQuote(quoteHash(tier, lines, profiles, rules))
	var cached cachedQuote
	if hit, err := s.Cache.Get(ctx, key, &cached); err == nil && hit {
		obs.ObserveQuote(tier.String(), "cached")
		return cached.Quote, cached.Rule, nil
	}

	names := make(map[string]string, len(c.Items))
	for _, it := range c.Items {
		names[it.ProductID] = it.ProductName
	}
	q, err := s.compute(s.Engine, lines, names, profiles, tier, rules)
	if err != nil {
		return Quote{}, nil, err
	}
	var rule *pricing.DeliveryRule
	if q.DeliveryRuleID != "" {
		for i := range rules {
			if rules[i].ID == q.DeliveryRuleID {
				rule = &rules[i]
				break
			}
		}
	}
	if err := s.Cache.Set(ctx, key, cachedQuote{Quote: q, Rule: rule}); err != nil {
		s.Logger.Warn().Err(err).Msg("quote cache write failed")
	}
	return q, rule, nil
}

type cachedQuote struct {
	Quote Quote                 `json:"quote"`
	Rule  *pricing.DeliveryRule `json:"rule,omitempty"`
}

func (s *Service) compute(engine pricing.Engine, lines []pricing.CartLine, names map[string]string, profiles pricing.MapCatalog, tier pricing.Tier, rules []pricing.DeliveryRule) (Quote, error) {
	res, err := engine.Compute(lines, profiles, tier, rules)
	if err != nil {
		obs.ObserveQuote(tier.String(), "malformed")
		return Quote{}, err
	}
	obs.ObserveQuote(tier.String(), "ok")
	obs.ObserveDeliveryMatch(res.DeliveryRule != nil)

	q := Quote{
		Tier:    tier,
		Lines:   make([]QuoteLine, 0, len(res.Lines)),
		Summary: toSummary(res.Summary),
	}
	for _, pl := range res.Lines {
		q.Lines = append(q.Lines, QuoteLine{
			ProductID:         pl.Line.ProductRef,
			ProductName:       names[pl.Line.ProductRef],
			UnitPrice:         pl.Line.UnitPrice,
			Quantity:          pl.Line.Quantity,
			LineSubtotal:      pl.LineSubtotal,
			ApplicablePercent: pl.ApplicablePercent,
			LineDiscount:      pl.LineDiscount,
		})
	}
	if res.DeliveryRule != nil {
		q.DeliveryRuleID = res.DeliveryRule.ID
	}
	return q, nil
}

// quoteHash fingerprints every input the engine reads. Profiles and rules are
// part of the key so admin edits never serve a stale quote.
func quoteHash(tier pricing.Tier, lines []pricing.CartLine, profiles pricing.MapCatalog, rules []pricing.DeliveryRule) string {
	parts := []string{"v1", tier.String()}
	for _, l := range lines {
		parts = append(parts, l.ProductRef, l.UnitPrice.String(), strconv.Itoa(l.Quantity))
	}
	refs := make([]string, 0, len(profiles))
	for ref := range profiles {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	for _, ref := range refs {
		p := profiles[ref]
		parts = append(parts, ref, p.EntrepreneurPercent.String(), p.TraineePercent.String())
	}
	for _, r := range rules {
		parts = append(parts, r.ID, r.MinAmount.String(), r.MaxAmount.String(), r.Charge.String(), strconv.FormatBool(r.Active()))
	}
	return common.HashParts(parts...)
}

func orderParams(userID string, c cart.Cart, q Quote, rule *pricing.DeliveryRule, addressNote string) (db.PlaceOrderParams, error) {
	uid, err := db.ParseUUID(userID)
	if err != nil {
		return db.PlaceOrderParams{}, err
	}
	cid, err := db.ParseUUID(c.ID)
	if err != nil {
		return db.PlaceOrderParams{}, err
	}
	header := db.CreateOrderParams{
		UserID:                uid,
		Tier:                  q.Tier.String(),
		Subtotal:              q.Summary.Subtotal,
		TotalDiscount:         q.Summary.TotalDiscount,
		SubtotalAfterDiscount: q.Summary.SubtotalAfterDiscount,
		DeliveryCharge:        q.Summary.DeliveryCharge,
		GrandTotal:            q.Summary.GrandTotal,
		AddressNote:           addressNote,
	}
	if rule != nil {
		if rid, err := db.ParseUUID(rule.ID); err == nil {
			header.DeliveryRuleID = rid
		}
	}
	items := make([]db.CreateOrderItemParams, 0, len(q.Lines))
	for _, l := range q.Lines {
		pid, err := db.ParseUUID(l.ProductID)
		if err != nil {
			return db.PlaceOrderParams{}, err
		}
		items = append(items, db.CreateOrderItemParams{
			ProductID:         pid,
			ProductName:       l.ProductName,
			UnitPrice:         l.UnitPrice,
			Quantity:          int32(l.Quantity),
			LineSubtotal:      l.LineSubtotal,
			ApplicablePercent: l.ApplicablePercent,
			LineDiscount:      l.LineDiscount,
		})
	}
	return db.PlaceOrderParams{Order: header, Items: items, CartID: cid}, nil
}

func toSummary(s pricing.OrderPriceSummary) Summary {
	return Summary{
		Subtotal:              s.Subtotal,
		TotalDiscount:         s.TotalDiscount,
		SubtotalAfterDiscount: s.SubtotalAfterDiscount,
		DeliveryCharge:        s.DeliveryCharge,
		GrandTotal:            s.GrandTotal,
	}
}

func toOrder(o db.Order, items []db.OrderItem) Order {
	out := Order{
		ID:     db.UUIDString(o.ID),
		Status: o.Status,
		Tier:   o.Tier,
		Summary: Summary{
			Subtotal:              o.Subtotal,
			TotalDiscount:         o.TotalDiscount,
			SubtotalAfterDiscount: o.SubtotalAfterDiscount,
			DeliveryCharge:        o.DeliveryCharge,
			GrandTotal:            o.GrandTotal,
		},
		DeliveryRuleID: db.UUIDString(o.DeliveryRuleID),
		AddressNote:    o.AddressNote,
	}
	if o.CreatedAt.Valid {
		out.CreatedAt = o.CreatedAt.Time
	}
	for _, it := range items {
		out.Lines = append(out.Lines, QuoteLine{
			ProductID:         db.UUIDString(it.ProductID),
			ProductName:       it.ProductName,
			UnitPrice:         it.UnitPrice,
			Quantity:          int(it.Quantity),
			LineSubtotal:      it.LineSubtotal,
			ApplicablePercent: it.ApplicablePercent,
			LineDiscount:      it.LineDiscount,
		})
	}
	return out
}
