package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-apotek/internal/cache"
	"github.com/noah-isme/backend-apotek/internal/db"
	"github.com/noah-isme/backend-apotek/internal/pricing"
)

var (
	// ErrNotFound indicates the delivery rule does not exist.
	ErrNotFound = errors.New("delivery rule not found")
	// ErrInvalidRule wraps the validation failure of a rule payload.
	ErrInvalidRule = errors.New("invalid delivery rule")
)

type queryProvider interface {
	ListDeliveryRules(ctx context.Context, onlyActive bool) ([]db.DeliveryRule, error)
	GetDeliveryRule(ctx context.Context, id db.UUID) (db.DeliveryRule, error)
	CreateDeliveryRule(ctx context.Context, arg db.CreateDeliveryRuleParams) (db.DeliveryRule, error)
	UpdateDeliveryRule(ctx context.Context, arg db.UpdateDeliveryRuleParams) (db.DeliveryRule, error)
	SetDeliveryRuleActive(ctx context.Context, id db.UUID, active bool) (db.DeliveryRule, error)
}

// Invalidator schedules cache invalidation in other processes.
type Invalidator interface {
	EnqueueCacheInvalidation(ctx context.Context, names ...string) error
}

// Rule is the API view of a delivery rule.
type Rule struct {
	ID        string          `json:"id"`
	MinAmount decimal.Decimal `json:"minAmount"`
	MaxAmount decimal.Decimal `json:"maxAmount"`
	Charge    decimal.Decimal `json:"charge"`
	IsActive  bool            `json:"isActive"`
}

// Pricing converts the rule to engine input.
func (r Rule) Pricing() pricing.DeliveryRule {
	active := r.IsActive
	return pricing.DeliveryRule{
		ID:        r.ID,
		MinAmount: r.MinAmount,
		MaxAmount: r.MaxAmount,
		Charge:    r.Charge,
		IsActive:  &active,
	}
}

// RuleInput is the admin payload for creating or replacing a rule.
type RuleInput struct {
	MinAmount decimal.Decimal `json:"minAmount"`
	MaxAmount decimal.Decimal `json:"maxAmount"`
	Charge    decimal.Decimal `json:"charge"`
	IsActive  *bool           `json:"isActive"`
}

// PreviewResult explains which rule an amount resolves to. Overlapping lists
// every other active rule that also covers the amount; a non-empty list usually
// points at a misconfigured ruleset.
type PreviewResult struct {
	Amount      decimal.Decimal `json:"amount"`
	Charge      decimal.Decimal `json:"charge"`
	Rule        *Rule           `json:"rule,omitempty"`
	Overlapping []Rule          `json:"overlapping,omitempty"`
}

// Service manages delivery rules and serves the active ruleset to pricing.
type Service struct {
	Q           queryProvider
	Cache       *cache.JSON
	Invalidator Invalidator
	Logger      zerolog.Logger
}

// List returns rules in resolution order. With all=false only active rules are returned.
func (s *Service) List(ctx context.Context, all bool) ([]Rule, error) {
	rows, err := s.Q.ListDeliveryRules(ctx, !all)
	if err != nil {
		return nil, fmt.Errorf("list delivery rules: %w", err)
	}
	out := make([]Rule, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRule(row))
	}
	return out, nil
}

// ActiveRules returns the active ruleset ordered by max amount, read through the cache.
func (s *Service) ActiveRules(ctx context.Context) ([]pricing.DeliveryRule, error) {
	var cached []Rule
	hit, err := s.Cache.Get(ctx, cache.KeyActiveDeliveryRules, &cached)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("delivery rule cache read failed")
	}
	if !hit {
		cached, err = s.List(ctx, false)
		if err != nil {
			return nil, err
		}
		if err := s.Cache.Set(ctx, cache.KeyActiveDeliveryRules, cached); err != nil {
			s.Logger.Warn().Err(err).Msg("delivery rule cache write failed")
		}
	}
	rules := make([]pricing.DeliveryRule, 0, len(cached))
	for _, r := range cached {
		rules = append(rules, r.Pricing())
	}
	return rules, nil
}

// Create validates and stores a new rule.
func (s *Service) Create(ctx context.Context, in RuleInput) (Rule, error) {
	active := in.IsActive == nil || *in.IsActive
	if err := validate(in); err != nil {
		return Rule{}, err
	}
	row, err := s.Q.CreateDeliveryRule(ctx, db.CreateDeliveryRuleParams{
		MinAmount: in.MinAmount,
		MaxAmount: in.MaxAmount,
		Charge:    in.Charge,
		IsActive:  active,
	})
	if err != nil {
		if db.IsCheckViolation(err) {
			return Rule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
		return Rule{}, fmt.Errorf("create delivery rule: %w", err)
	}
	s.invalidate(ctx)
	return toRule(row), nil
}

// Update replaces the amounts and charge of a rule.
func (s *Service) Update(ctx context.Context, id string, in RuleInput) (Rule, error) {
	rid, err := db.ParseUUID(id)
	if err != nil {
		return Rule{}, ErrNotFound
	}
	if err := validate(in); err != nil {
		return Rule{}, err
	}
	row, err := s.Q.UpdateDeliveryRule(ctx, db.UpdateDeliveryRuleParams{
		ID:        rid,
		MinAmount: in.MinAmount,
		MaxAmount: in.MaxAmount,
		Charge:    in.Charge,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, ErrNotFound
		}
		return Rule{}, fmt.Errorf("update delivery rule: %w", err)
	}
	if in.IsActive != nil && *in.IsActive != row.IsActive {
		return s.SetActive(ctx, id, *in.IsActive)
	}
	s.invalidate(ctx)
	return toRule(row), nil
}

// SetActive enables or disables a rule. Rules are never deleted so past
// orders keep a valid reference.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (Rule, error) {
	rid, err := db.ParseUUID(id)
	if err != nil {
		return Rule{}, ErrNotFound
	}
	row, err := s.Q.SetDeliveryRuleActive(ctx, rid, active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, ErrNotFound
		}
		return Rule{}, fmt.Errorf("set delivery rule active: %w", err)
	}
	s.invalidate(ctx)
	return toRule(row), nil
}

// Preview resolves the delivery charge for amount against the active ruleset.
func (s *Service) Preview(ctx context.Context, amount decimal.Decimal) (PreviewResult, error) {
	rules, err := s.ActiveRules(ctx)
	if err != nil {
		return PreviewResult{}, err
	}
	amount = pricing.SafeNonNegative(amount)
	res := PreviewResult{Amount: amount, Charge: pricing.ResolveDeliveryCharge(rules, amount)}
	if match, ok := pricing.MatchDeliveryRule(rules, amount); ok {
		r := fromPricing(match)
		res.Rule = &r
		for _, c := range pricing.CoveringDeliveryRules(rules, amount) {
			if c.ID != match.ID {
				res.Overlapping = append(res.Overlapping, fromPricing(c))
			}
		}
	}
	if len(res.Overlapping) > 0 {
		s.Logger.Warn().Str("amount", amount.String()).Int("overlapping", len(res.Overlapping)).Msg("delivery rules overlap")
	}
	return res, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.Cache.Delete(ctx, cache.KeyActiveDeliveryRules); err != nil {
		s.Logger.Warn().Err(err).Msg("drop delivery rule cache")
	}
	if s.Invalidator == nil {
		return
	}
	// quotes embed the delivery charge, so they go stale with the ruleset
	if err := s.Invalidator.EnqueueCacheInvalidation(ctx, cache.NameDelivery, cache.NameQuote); err != nil {
		s.Logger.Warn().Err(err).Msg("enqueue delivery cache invalidation")
	}
}

func validate(in RuleInput) error {
	candidate := pricing.DeliveryRule{MinAmount: in.MinAmount, MaxAmount: in.MaxAmount, Charge: in.Charge}
	if err := pricing.ValidateRule(0, candidate); err != nil {
		var mie *pricing.MalformedInputError
		if errors.As(err, &mie) {
			return fmt.Errorf("%w: %s %s", ErrInvalidRule, mie.Field, mie.Reason)
		}
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return nil
}

func toRule(row db.DeliveryRule) Rule {
	return Rule{
		ID:        db.UUIDString(row.ID),
		MinAmount: row.MinAmount,
		MaxAmount: row.MaxAmount,
		Charge:    row.Charge,
		IsActive:  row.IsActive,
	}
}

func fromPricing(r pricing.DeliveryRule) Rule {
	return Rule{ID: r.ID, MinAmount: r.MinAmount, MaxAmount: r.MaxAmount, Charge: r.Charge, IsActive: r.Active()}
}
