// Package pricing computes price, duration and staff reward of an order of
// car wash services.
package pricing

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"carwash/internal/cache"
	"carwash/internal/model"
	"carwash/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ServiceRequest struct {
	ServiceID   uuid.UUID        `json:"service_id"`
	CustomPrice *decimal.Decimal `json:"custom_price,omitempty"`
}

type Input struct {
	CarWashID uuid.UUID        `json:"car_wash_id"`
	CarID     uuid.UUID        `json:"car_id"`
	Services  []ServiceRequest `json:"services"`
}

type AppliedModifier struct {
	ServiceID uuid.UUID       `json:"service_id"`
	Type      string          `json:"type"`
	Value     decimal.Decimal `json:"value"`
}

type AppliedCustomPrice struct {
	ServiceID uuid.UUID       `json:"service_id"`
	Price     decimal.Decimal `json:"price"`
}

// Line is one priced unit of a service.
type Line struct {
	ServiceID   uuid.UUID        `json:"service_id"`
	Price       decimal.Decimal  `json:"price"`
	Duration    int              `json:"duration"`
	StaffReward decimal.Decimal  `json:"staff_reward"`
	CustomPrice *decimal.Decimal `json:"custom_price,omitempty"`
}

type Result struct {
	TotalPrice          decimal.Decimal      `json:"total_price"`
	Subtotal            decimal.Decimal      `json:"subtotal"`
	TotalDuration       int                  `json:"total_duration"`
	StaffRewardTotal    decimal.Decimal      `json:"staff_reward_total"`
	AppliedModifiers    []AppliedModifier    `json:"applied_modifiers"`
	AppliedCustomPrices []AppliedCustomPrice `json:"applied_custom_prices"`
	BodyType            string               `json:"body_type"`
	Lines               []Line               `json:"lines"`
}

type Calculator struct {
	catalog Catalog
	cache   cache.Cache
}

func NewCalculator(catalog Catalog, c cache.Cache) *Calculator {
	if c == nil {
		c = cache.Noop()
	}
	return &Calculator{catalog: catalog, cache: c}
}

// Calculate prices the requested services for the given car.
func (c *Calculator) Calculate(ctx context.Context, in Input) (*Result, error) {
	if in.CarWashID == uuid.Nil || in.CarID == uuid.Nil || len(in.Services) == 0 {
		return nil, apperror.Validation("missing required parameters: car wash, car and at least one service")
	}

	counts := make(map[uuid.UUID]int)
	custom := make(map[uuid.UUID]decimal.Decimal)
	var ids []uuid.UUID
	for _, s := range in.Services {
		if s.ServiceID == uuid.Nil {
			return nil, apperror.Validation("each service entry must include a service id")
		}
		if counts[s.ServiceID] == 0 {
			ids = append(ids, s.ServiceID)
		}
		counts[s.ServiceID]++
		if s.CustomPrice != nil {
			custom[s.ServiceID] = *s.CustomPrice
		}
	}

	docs, err := c.services(ctx, in.CarWashID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load services: %w", err)
	}
	byID := make(map[uuid.UUID]model.WashService, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	var missing []string
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, apperror.MissingIDs("services", missing)
	}

	// body type may change at any time, never cached
	bodyType, err := c.catalog.CarBodyType(ctx, in.CarID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(bodyType) == "" {
		return nil, apperror.Validation("car must have a body type")
	}

	priceRows, err := c.prices(ctx, in.CarWashID, ids, bodyType)
	if err != nil {
		return nil, fmt.Errorf("failed to load service prices: %w", err)
	}
	overrides := make(map[uuid.UUID]model.ServicePrice, len(priceRows))
	for _, p := range priceRows {
		overrides[p.BaseServiceID] = p
	}

	res, err := Totals(counts, byID, overrides, custom)
	if err != nil {
		return nil, err
	}
	res.BodyType = bodyType
	return res, nil
}

type orderMods struct {
	add, sub, mult decimal.Decimal
	fixed          *decimal.Decimal
}

// Totals computes the order totals from resolved catalog data. Services are
// walked in id order so a repeated Fixed Price modifier resolves the same way
// on every call.
func Totals(
	counts map[uuid.UUID]int,
	services map[uuid.UUID]model.WashService,
	overrides map[uuid.UUID]model.ServicePrice,
	custom map[uuid.UUID]decimal.Decimal,
) (*Result, error) {
	ids := make([]uuid.UUID, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	res := &Result{
		AppliedModifiers:    []AppliedModifier{},
		AppliedCustomPrices: []AppliedCustomPrice{},
	}
	mods := orderMods{mult: decimal.NewFromInt(1)}
	total := decimal.Zero

	for _, id := range ids {
		qty := counts[id]
		doc, ok := services[id]
		if !ok {
			return nil, apperror.NotFound("service", id.String())
		}
		override, hasOverride := overrides[id]

		var base decimal.Decimal
		switch {
		case hasOverride:
			base = override.Price
		case doc.Price != nil:
			base = *doc.Price
		default:
			return nil, apperror.Validation("no price for '%s'", doc.Title)
		}

		// a body-type row replaces the service reward; an empty one pays the row price
		reward := base
		switch {
		case hasOverride:
			if override.StaffReward != nil && !override.StaffReward.IsZero() {
				reward = *override.StaffReward
			}
		case doc.StaffReward != nil && !doc.StaffReward.IsZero():
			reward = *doc.StaffReward
		}

		var customPrice *decimal.Decimal
		if cp, ok := custom[id]; ok {
			base = cp
			customPrice = &cp
			res.AppliedCustomPrices = append(res.AppliedCustomPrices, AppliedCustomPrice{ServiceID: id, Price: cp})
		}

		duration := doc.Duration
		if hasOverride && override.Duration != nil {
			duration = *override.Duration
		}

		q := decimal.NewFromInt(int64(qty))
		total = total.Add(base.Mul(q))
		res.StaffRewardTotal = res.StaffRewardTotal.Add(reward.Mul(q))
		res.TotalDuration += duration * qty
		for i := 0; i < qty; i++ {
			res.Lines = append(res.Lines, Line{ServiceID: id, Price: base, Duration: duration, StaffReward: reward, CustomPrice: customPrice})
		}

		if doc.IsPriceModifierActive && doc.PriceModifierType != "" && doc.ApplyPriceModifierToOrderTotal {
			applied, err := applyModifier(doc, qty, &mods)
			if err != nil {
				return nil, err
			}
			res.AppliedModifiers = append(res.AppliedModifiers, applied)
		}
	}

	res.Subtotal = total
	final := total.Add(mods.add).Sub(mods.sub).Mul(mods.mult)
	if mods.fixed != nil {
		final = *mods.fixed
	}
	if final.IsNegative() {
		final = decimal.Zero
	}
	res.TotalPrice = final
	return res, nil
}

func pow(v decimal.Decimal, n int) decimal.Decimal {
	out := decimal.NewFromInt(1)
	for i := 0; i < n; i++ {
		out = out.Mul(v)
	}
	return out
}

func applyModifier(doc model.WashService, qty int, mods *orderMods) (AppliedModifier, error) {
	val, err := decimal.NewFromString(strings.TrimSpace(doc.PriceModifierValue))
	if err != nil {
		return AppliedModifier{}, apperror.Validation("invalid modifier for '%s'", doc.Title)
	}
	q := decimal.NewFromInt(int64(qty))
	applied := AppliedModifier{ServiceID: doc.ID, Type: doc.PriceModifierType}

	switch doc.PriceModifierType {
	case model.ModifierFixedAddition:
		applied.Value = val.Mul(q)
		mods.add = mods.add.Add(applied.Value)
	case model.ModifierFixedSubtraction:
		applied.Value = val.Mul(q)
		mods.sub = mods.sub.Add(applied.Value)
	case model.ModifierPriceDoubling:
		applied.Value = pow(decimal.NewFromInt(2), qty)
		mods.mult = mods.mult.Mul(applied.Value)
	case model.ModifierMultiplier:
		applied.Value = pow(val, qty)
		mods.mult = mods.mult.Mul(applied.Value)
	case model.ModifierFixedPrice:
		applied.Value = val
		mods.fixed = &val
	default:
		return AppliedModifier{}, apperror.Validation("unknown modifier type '%s'", doc.PriceModifierType)
	}
	return applied, nil
}
