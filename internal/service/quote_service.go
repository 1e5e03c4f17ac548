package service

import (
	"context"
	"time"

	"carwash/internal/discount"
	"carwash/internal/pricing"
	"carwash/internal/repository"
	"carwash/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteRequest prices a prospective order.
type QuoteRequest struct {
	CarWashID         uuid.UUID                `json:"car_wash_id" binding:"required"`
	CarID             uuid.UUID                `json:"car_id" binding:"required"`
	CustomerID        *uuid.UUID               `json:"customer_id"`
	Services          []pricing.ServiceRequest `json:"services" binding:"required,min=1"`
	PromoCode         string                   `json:"promo_code"`
	IsTimeBooking     bool                     `json:"is_time_booking"`
	AllowCombinations *bool                    `json:"allow_combinations"`
	At                time.Time                `json:"-"`
}

// Quote is the full price breakdown of an order.
type Quote struct {
	Pricing            *pricing.Result       `json:"pricing"`
	BaseServicesTotal  decimal.Decimal       `json:"base_services_total"`
	BaseCommission     decimal.Decimal       `json:"base_commission"`
	AutoDiscounts      discount.Outcome      `json:"auto_discounts"`
	Promo              *discount.PromoResult `json:"promo,omitempty"`
	FinalServicesTotal decimal.Decimal       `json:"final_services_total"`
	FinalCommission    decimal.Decimal       `json:"final_commission"`
	TotalPrice         decimal.Decimal       `json:"total_price"`
}

type QuoteService interface {
	Quote(ctx context.Context, req QuoteRequest, actor Actor) (*Quote, error)
}

type quoteService struct {
	calculator  *pricing.Calculator
	carWashRepo repository.CarWashRepository
	discounts   DiscountService
	promos      PromoService
}

func NewQuoteService(calculator *pricing.Calculator, carWashRepo repository.CarWashRepository, discounts DiscountService, promos PromoService) QuoteService {
	return &quoteService{calculator: calculator, carWashRepo: carWashRepo, discounts: discounts, promos: promos}
}

// queueCommission is charged only to queue entries placed by customers.
func queueCommission(base decimal.Decimal, isTimeBooking, createdByAdmin bool) decimal.Decimal {
	if isTimeBooking || createdByAdmin || !base.IsPositive() {
		return decimal.Zero
	}
	return base
}

func (s *quoteService) Quote(ctx context.Context, req QuoteRequest, actor Actor) (*Quote, error) {
	if req.CarWashID == uuid.Nil {
		return nil, apperror.Validation("car wash is required")
	}
	cw, err := s.carWashRepo.FindByID(ctx, req.CarWashID)
	if err != nil {
		return nil, notFound(err, "car wash", req.CarWashID)
	}

	priced, err := s.calculator.Calculate(ctx, pricing.Input{CarWashID: req.CarWashID, CarID: req.CarID, Services: req.Services})
	if err != nil {
		return nil, err
	}
	commission := queueCommission(cw.QueueCommission, req.IsTimeBooking, actor.IsAdmin)

	serviceIDs := expandServiceIDs(req.Services)
	outcome, err := s.discounts.Evaluate(ctx, EvaluateRequest{
		CarWashID:         req.CarWashID,
		CustomerID:        req.CustomerID,
		Services:          serviceIDs,
		ServicesTotal:     priced.TotalPrice,
		Commission:        commission,
		At:                req.At,
		AllowCombinations: combinations(req.AllowCombinations),
	})
	if err != nil {
		return nil, err
	}

	q := &Quote{
		Pricing:            priced,
		BaseServicesTotal:  priced.TotalPrice,
		BaseCommission:     commission,
		AutoDiscounts:      outcome,
		FinalServicesTotal: outcome.FinalServicesTotal,
		FinalCommission:    outcome.FinalCommission,
	}

	if req.PromoCode != "" {
		res, err := s.promo(ctx, req, actor, serviceIDs, outcome)
		if err != nil {
			return nil, err
		}
		q.Promo = &res
		if res.Valid {
			q.FinalServicesTotal = res.FinalServicesTotal
			q.FinalCommission = res.FinalCommission
		}
	}
	q.TotalPrice = q.FinalServicesTotal.Add(q.FinalCommission)
	return q, nil
}

func (s *quoteService) promo(ctx context.Context, req QuoteRequest, actor Actor, services []uuid.UUID, outcome discount.Outcome) (discount.PromoResult, error) {
	if !discount.CompatibleWithPromo(outcome, true) {
		return discount.PromoResult{
			Message:            "promo code cannot be combined with the applied automatic discounts",
			FinalServicesTotal: outcome.FinalServicesTotal,
			FinalCommission:    outcome.FinalCommission,
		}, nil
	}
	res, _, err := s.promos.Apply(ctx, req.CarWashID, req.PromoCode, discount.Order{
		Services:      services,
		ServicesTotal: outcome.FinalServicesTotal,
		At:            req.At,
	}, discount.PromoContext{
		Commission:     outcome.FinalCommission,
		IsTimeBooking:  req.IsTimeBooking,
		CreatedByAdmin: actor.IsAdmin,
	})
	return res, err
}

// expandServiceIDs lists service ids in request order, one per unit.
func expandServiceIDs(reqs []pricing.ServiceRequest) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.ServiceID)
	}
	return ids
}
