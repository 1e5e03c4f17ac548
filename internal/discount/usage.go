package discount

import (
	"encoding/json"

	"carwash/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AttributeWaiver spreads the waived commission over applied discounts:
// only the first one asking for a waiver carries it.
func AttributeWaiver(applied []Applied, waived decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(applied))
	for i, d := range applied {
		if d.WaiveCommission {
			out[i] = waived
			break
		}
	}
	return out
}

// UsageScope identifies the order a usage row belongs to.
type UsageScope struct {
	CarWashID   uuid.UUID
	CustomerID  *uuid.UUID
	ContextType string
	ContextID   uuid.UUID
}

// UsageRows builds one usage row per applied discount of an outcome.
func UsageRows(scope UsageScope, o Outcome) []model.AutoDiscountUsage {
	waivers := AttributeWaiver(o.Applied, o.CommissionWaived)
	rows := make([]model.AutoDiscountUsage, 0, len(o.Applied))
	for i, d := range o.Applied {
		snap, _ := json.Marshal(d.Snapshot)
		rows = append(rows, model.AutoDiscountUsage{
			CarWashID:        scope.CarWashID,
			CustomerID:       scope.CustomerID,
			ContextType:      scope.ContextType,
			ContextID:        scope.ContextID,
			DiscountID:       d.DiscountID,
			DiscountName:     d.Name,
			RulesSnapshot:    snap,
			ServiceDiscount:  d.ServiceDiscount,
			CommissionWaived: waivers[i],
			TotalDiscount:    d.ServiceDiscount.Add(waivers[i]),
		})
	}
	return rows
}

// Base is the undiscounted money of an order.
type Base struct {
	ServicesTotal decimal.Decimal `json:"services_total"`
	Commission    decimal.Decimal `json:"commission"`
}

// Totals is a base with recorded discounts applied.
type Totals struct {
	FinalServicesTotal  decimal.Decimal `json:"final_services_total"`
	FinalCommission     decimal.Decimal `json:"final_commission"`
	TotalDiscount       decimal.Decimal `json:"total_discount"`
	ServiceDiscountSum  decimal.Decimal `json:"service_discount_sum"`
	CommissionWaivedSum decimal.Decimal `json:"commission_waived_sum"`
}

// RefreshUsages recomputes enabled rows against a new base from each
// discount's current configuration, without re-checking eligibility. Rows
// must be in creation order. Disabled rows keep their recorded amounts. A row
// whose discount is gone drops to zero. Enabled rows are clamped so together
// they never exceed the base, and the first enabled row whose discount
// waives commission carries the waiver.
func RefreshUsages(rows []model.AutoDiscountUsage, discounts map[uuid.UUID]Discount, base Base) []model.AutoDiscountUsage {
	out := make([]model.AutoDiscountUsage, len(rows))
	copy(out, rows)

	waiver := -1
	for i, r := range out {
		if d, ok := discounts[r.DiscountID]; ok && d.WaiveCommission && !r.IsDisabled {
			waiver = i
			break
		}
	}

	remaining := decimal.Max(base.ServicesTotal, decimal.Zero)
	for i := range out {
		if out[i].IsDisabled {
			continue
		}
		d, ok := discounts[out[i].DiscountID]
		sd := decimal.Zero
		if ok {
			sd = d.Amount(base.ServicesTotal)
		}
		sd = decimal.Min(sd, remaining)
		remaining = remaining.Sub(sd)
		cw := decimal.Zero
		if i == waiver {
			cw = decimal.Max(base.Commission, decimal.Zero)
		}
		out[i].ServiceDiscount = sd
		out[i].CommissionWaived = cw
		out[i].TotalDiscount = sd.Add(cw)
	}
	return out
}

// ApplyToBase subtracts enabled rows from the base, clamping at zero.
func ApplyToBase(rows []model.AutoDiscountUsage, base Base) Totals {
	sd, cw := decimal.Zero, decimal.Zero
	for _, r := range rows {
		if r.IsDisabled {
			continue
		}
		sd = sd.Add(r.ServiceDiscount)
		cw = cw.Add(r.CommissionWaived)
	}
	return Totals{
		FinalServicesTotal:  decimal.Max(decimal.Zero, base.ServicesTotal.Sub(sd)),
		FinalCommission:     decimal.Max(decimal.Zero, base.Commission.Sub(cw)),
		TotalDiscount:       sd.Add(cw),
		ServiceDiscountSum:  sd,
		CommissionWaivedSum: cw,
	}
}
