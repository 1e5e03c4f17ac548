// Package discount evaluates rule-driven auto discounts and promo codes and
// keeps recorded discount usage consistent with changing order totals.
// Nothing here touches storage; failed conditions are outcomes, not errors.
package discount

import (
	"sort"
	"strings"
	"time"

	"carwash/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount is an auto discount with its rules parsed.
type Discount struct {
	ID                 uuid.UUID
	Name               string
	DiscountType       string
	Value              decimal.Decimal
	MinimumOrderAmount decimal.Decimal
	Priority           int
	ValidFrom          *time.Time
	ValidTo            *time.Time
	WaiveCommission    bool
	CombineWithPromo   bool
	CombineWithOthers  bool
	RulesLogic         string
	UsageLimit         int
	ApplicableServices []uuid.UUID
	TargetServices     []uuid.UUID
	Rules              []Rule
	Snapshot           Snapshot
}

func FromModel(m model.AutoDiscount) Discount {
	d := Discount{
		ID:                 m.ID,
		Name:               m.Title,
		DiscountType:       m.DiscountType,
		Value:              m.DiscountValue,
		MinimumOrderAmount: m.MinimumOrderAmount,
		Priority:           m.Priority,
		ValidFrom:          m.ValidFrom,
		ValidTo:            m.ValidTo,
		WaiveCommission:    m.WaiveQueueCommission,
		CombineWithPromo:   m.CanCombineWithPromocodes,
		CombineWithOthers:  m.CanCombineWithOtherAutoDiscounts,
		RulesLogic:         m.RulesLogic,
		UsageLimit:         m.UsageLimitPerCustomer,
		ApplicableServices: []uuid.UUID(m.ApplicableServices),
		TargetServices:     []uuid.UUID(m.TargetServices),
		Snapshot:           Snapshot{RulesLogic: m.RulesLogic, Rules: []RuleSnapshot{}},
	}
	rows := append([]model.AutoDiscountRule(nil), m.Rules...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Idx < rows[j].Idx })
	for _, r := range rows {
		d.Rules = append(d.Rules, ParseRule(r))
		d.Snapshot.Rules = append(d.Snapshot.Rules, RuleSnapshot{
			RuleType:  r.RuleType,
			Operator:  r.Operator,
			Value:     r.Value,
			Period:    r.Period,
			NthStep:   r.NthStep,
			NthOffset: r.NthOffset,
			Services:  []uuid.UUID(r.Services),
		})
	}
	return d
}

// Amount is the service discount this discount grants on total, never more
// than total and never negative.
func (d Discount) Amount(total decimal.Decimal) decimal.Decimal {
	return amount(d.DiscountType, d.Value, total)
}

func amount(kind string, value, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() || !value.IsPositive() {
		return decimal.Zero
	}
	var out decimal.Decimal
	if kind == model.DiscountPercentage || kind == "" {
		out = total.Mul(value).Div(hundred)
	} else {
		out = value
	}
	return decimal.Min(out, total)
}

func sameDayOrAfter(t, ref time.Time) bool {
	y1, m1, d1 := t.In(ref.Location()).Date()
	y2, m2, d2 := ref.Date()
	if y1 != y2 {
		return y1 > y2
	}
	if m1 != m2 {
		return m1 > m2
	}
	return d1 >= d2
}

// ValidOn reports whether day falls inside the discount's date window.
// Both ends are whole days.
func (d Discount) ValidOn(day time.Time) bool {
	if d.ValidFrom != nil && !sameDayOrAfter(day, *d.ValidFrom) {
		return false
	}
	if d.ValidTo != nil && !sameDayOrAfter(*d.ValidTo, day) {
		return false
	}
	return true
}

// ConditionMet combines every rule with the discount's logic. ALL means
// every rule must hold, anything else means at least one. No rules never
// matches.
func (d Discount) ConditionMet(stats CustomerStats, at time.Time) bool {
	if len(d.Rules) == 0 {
		return false
	}
	ec := EvalContext{Now: at, TargetServices: d.TargetServices}
	all := strings.HasPrefix(strings.ToUpper(strings.TrimSpace(d.RulesLogic)), "ALL") || strings.TrimSpace(d.RulesLogic) == ""
	for _, r := range d.Rules {
		ok := r.Met(stats, ec)
		if all && !ok {
			return false
		}
		if !all && ok {
			return true
		}
	}
	return all
}

// AppliesTo reports whether any requested service is in the discount's
// service list. An empty list covers everything.
func (d Discount) AppliesTo(services []uuid.UUID) bool {
	if len(d.ApplicableServices) == 0 {
		return true
	}
	allowed := make(map[uuid.UUID]bool, len(d.ApplicableServices))
	for _, id := range d.ApplicableServices {
		allowed[id] = true
	}
	for _, id := range services {
		if allowed[id] {
			return true
		}
	}
	return false
}

// Order is the prospective order discounts are evaluated against.
type Order struct {
	Services      []uuid.UUID
	ServicesTotal decimal.Decimal
	At            time.Time
}

// Applied is an applicable discount with its computed amount.
type Applied struct {
	DiscountID        uuid.UUID       `json:"discount_id"`
	Name              string          `json:"name"`
	DiscountType      string          `json:"discount_type"`
	DiscountValue     decimal.Decimal `json:"discount_value"`
	ServiceDiscount   decimal.Decimal `json:"service_discount"`
	WaiveCommission   bool            `json:"waive_queue_commission"`
	Priority          int             `json:"priority"`
	CombineWithPromo  bool            `json:"can_combine_with_promocodes"`
	CombineWithOthers bool            `json:"can_combine_with_other_auto_discounts"`
	Snapshot          Snapshot        `json:"condition_met_details"`
}

type Engine struct {
	now func() time.Time
}

func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// Applicable returns the discounts the order qualifies for, in priority
// order. usageCounts holds enabled usage per discount for this customer.
func (e *Engine) Applicable(discounts []Discount, stats CustomerStats, order Order, usageCounts map[uuid.UUID]int) []Applied {
	at := order.At
	if at.IsZero() {
		at = e.now()
	}
	if stats.Periods == nil {
		stats = EmptyStats()
	}

	sorted := append([]Discount(nil), discounts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	out := []Applied{}
	for _, d := range sorted {
		if !d.ValidOn(at) {
			continue
		}
		if d.MinimumOrderAmount.IsPositive() && order.ServicesTotal.LessThan(d.MinimumOrderAmount) {
			continue
		}
		if !d.ConditionMet(stats, at) {
			continue
		}
		if !d.AppliesTo(order.Services) {
			continue
		}
		if d.UsageLimit > 0 && usageCounts[d.ID] >= d.UsageLimit {
			continue
		}
		out = append(out, Applied{
			DiscountID:        d.ID,
			Name:              d.Name,
			DiscountType:      d.DiscountType,
			DiscountValue:     d.Value,
			ServiceDiscount:   d.Amount(order.ServicesTotal),
			WaiveCommission:   d.WaiveCommission,
			Priority:          d.Priority,
			CombineWithPromo:  d.CombineWithPromo,
			CombineWithOthers: d.CombineWithOthers,
			Snapshot:          d.Snapshot,
		})
	}
	return out
}

// Outcome is the result of picking discounts for an order.
type Outcome struct {
	Applied            []Applied       `json:"applied_discounts"`
	ServiceDiscount    decimal.Decimal `json:"total_service_discount"`
	CommissionWaived   decimal.Decimal `json:"commission_waived"`
	TotalDiscount      decimal.Decimal `json:"total_discount"`
	FinalServicesTotal decimal.Decimal `json:"final_services_total"`
	FinalCommission    decimal.Decimal `json:"final_commission"`
}

func noDiscount(total, commission decimal.Decimal) Outcome {
	return Outcome{Applied: []Applied{}, FinalServicesTotal: total, FinalCommission: commission}
}

func single(d Applied, total, commission decimal.Decimal) Outcome {
	waived := decimal.Zero
	if d.WaiveCommission {
		waived = commission
	}
	sd := decimal.Min(d.ServiceDiscount, total)
	return Outcome{
		Applied:            []Applied{d},
		ServiceDiscount:    sd,
		CommissionWaived:   waived,
		TotalDiscount:      sd.Add(waived),
		FinalServicesTotal: decimal.Max(decimal.Zero, total.Sub(sd)),
		FinalCommission:    commission.Sub(waived),
	}
}

func combined(ds []Applied, total, commission decimal.Decimal) Outcome {
	sorted := append([]Applied(nil), ds...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	sum := decimal.Zero
	waived := decimal.Zero
	waiverTaken := false
	for _, d := range sorted {
		sum = sum.Add(d.ServiceDiscount)
		if d.WaiveCommission && !waiverTaken {
			waived = commission
			waiverTaken = true
		}
	}
	sum = decimal.Min(sum, total)
	return Outcome{
		Applied:            sorted,
		ServiceDiscount:    sum,
		CommissionWaived:   waived,
		TotalDiscount:      sum.Add(waived),
		FinalServicesTotal: total.Sub(sum),
		FinalCommission:    commission.Sub(waived),
	}
}

// Combine picks what to apply: the first discount alone, or the combination
// of every combinable discount when that gives the larger total discount.
func Combine(applicable []Applied, total, commission decimal.Decimal, allowCombinations bool) Outcome {
	if len(applicable) == 0 {
		return noDiscount(total, commission)
	}
	best := single(applicable[0], total, commission)
	if !allowCombinations || len(applicable) == 1 {
		return best
	}
	var combinable []Applied
	for _, d := range applicable {
		if d.CombineWithOthers {
			combinable = append(combinable, d)
		}
	}
	if len(combinable) > 1 {
		if c := combined(combinable, total, commission); c.TotalDiscount.GreaterThan(best.TotalDiscount) {
			return c
		}
	}
	return best
}

// CompatibleWithPromo reports whether every applied discount allows a promo
// code on the same order.
func CompatibleWithPromo(o Outcome, promoApplied bool) bool {
	if !promoApplied {
		return true
	}
	for _, d := range o.Applied {
		if !d.CombineWithPromo {
			return false
		}
	}
	return true
}
