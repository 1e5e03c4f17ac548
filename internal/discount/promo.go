package discount

import (
	"fmt"
	"time"

	"carwash/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromoContext describes how the order was placed.
type PromoContext struct {
	Commission     decimal.Decimal
	IsTimeBooking  bool
	CreatedByAdmin bool
	// Consumed marks an order that already holds one use of the code, so
	// re-pricing it does not trip the usage limit.
	Consumed bool
}

type PromoResult struct {
	Valid              bool            `json:"valid"`
	Message            string          `json:"message"`
	Code               string          `json:"code,omitempty"`
	PromoType          string          `json:"promo_type,omitempty"`
	ServiceDiscount    decimal.Decimal `json:"service_discount"`
	CommissionWaived   decimal.Decimal `json:"commission_waived"`
	TotalDiscount      decimal.Decimal `json:"total_discount"`
	FinalServicesTotal decimal.Decimal `json:"final_services_total"`
	FinalCommission    decimal.Decimal `json:"final_commission"`
}

func rejected(msg string, total, commission decimal.Decimal) PromoResult {
	return PromoResult{Message: msg, FinalServicesTotal: total, FinalCommission: commission}
}

func discountBearing(promoType string) bool {
	return promoType == model.PromoServiceDiscount || promoType == model.PromoCombined
}

func waiverBearing(promoType string) bool {
	return promoType == model.PromoCommission || promoType == model.PromoCombined
}

// EvaluatePromo validates promo for carWashID and prices it against order.
// A nil promo means the code was not found.
func EvaluatePromo(promo *model.PromoCode, carWashID uuid.UUID, order Order, pc PromoContext, now time.Time) PromoResult {
	total, commission := order.ServicesTotal, pc.Commission

	if promo == nil || !promo.IsActive || promo.CarWashID != carWashID {
		return rejected("promo code not found or not valid for this car wash", total, commission)
	}
	if promo.ValidFrom != nil && !sameDayOrAfter(now, *promo.ValidFrom) {
		return rejected(fmt.Sprintf("promo code is not valid yet, valid from %s", promo.ValidFrom.Format("2006-01-02")), total, commission)
	}
	if promo.ValidTo != nil && !sameDayOrAfter(*promo.ValidTo, now) {
		return rejected(fmt.Sprintf("promo code expired on %s", promo.ValidTo.Format("2006-01-02")), total, commission)
	}
	if !pc.Consumed && promo.UsageLimit > 0 && promo.UsedCount >= promo.UsageLimit {
		return rejected("promo code usage limit reached", total, commission)
	}
	if discountBearing(promo.PromoType) && promo.MinimumOrderAmount.IsPositive() && total.LessThan(promo.MinimumOrderAmount) {
		return rejected(fmt.Sprintf("minimum order amount for this promo code is %s", promo.MinimumOrderAmount.StringFixed(2)), total, commission)
	}

	sd, cw := decimal.Zero, decimal.Zero
	if discountBearing(promo.PromoType) && promo.DiscountType != "" {
		sd = promoServiceDiscount(promo, order)
	}
	if waiverBearing(promo.PromoType) && !pc.IsTimeBooking && !pc.CreatedByAdmin && commission.IsPositive() && promo.WaiveQueueCommission {
		cw = commission
	}

	return PromoResult{
		Valid:              true,
		Message:            "promo code applied",
		Code:               promo.Code,
		PromoType:          promo.PromoType,
		ServiceDiscount:    sd,
		CommissionWaived:   cw,
		TotalDiscount:      sd.Add(cw),
		FinalServicesTotal: decimal.Max(decimal.Zero, total.Sub(sd)),
		FinalCommission:    decimal.Max(decimal.Zero, commission.Sub(cw)),
	}
}

func promoServiceDiscount(promo *model.PromoCode, order Order) decimal.Decimal {
	if len(promo.ApplicableServices) > 0 {
		allowed := make(map[uuid.UUID]bool, len(promo.ApplicableServices))
		for _, id := range promo.ApplicableServices {
			allowed[id] = true
		}
		match := false
		for _, id := range order.Services {
			if allowed[id] {
				match = true
				break
			}
		}
		if !match {
			return decimal.Zero
		}
	}
	return amount(promo.DiscountType, promo.DiscountValue, order.ServicesTotal)
}
