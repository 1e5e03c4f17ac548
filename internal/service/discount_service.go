package service

import (
	"context"
	"time"

	"carwash/internal/cache"
	"carwash/internal/discount"
	"carwash/internal/model"
	"carwash/internal/repository"
	"carwash/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EvaluateRequest is an order the auto discounts are evaluated for.
type EvaluateRequest struct {
	CarWashID         uuid.UUID
	CustomerID        *uuid.UUID
	Services          []uuid.UUID
	ServicesTotal     decimal.Decimal
	Commission        decimal.Decimal
	At                time.Time
	AllowCombinations bool
}

type DiscountService interface {
	// Evaluate picks the auto discounts an order qualifies for. Car washes
	// with promotions switched off get no discount.
	Evaluate(ctx context.Context, req EvaluateRequest) (discount.Outcome, error)
	// Invalidate drops cached discount definitions of a car wash.
	Invalidate(carWashID uuid.UUID)
}

type discountService struct {
	carWashRepo  repository.CarWashRepository
	discountRepo repository.DiscountRepository
	statsRepo    repository.StatsRepository
	engine       *discount.Engine
	cache        cache.Cache
	now          func() time.Time
}

func NewDiscountService(
	carWashRepo repository.CarWashRepository,
	discountRepo repository.DiscountRepository,
	statsRepo repository.StatsRepository,
	c cache.Cache,
	now func() time.Time,
) DiscountService {
	if c == nil {
		c = cache.Noop()
	}
	if now == nil {
		now = time.Now
	}
	return &discountService{
		carWashRepo:  carWashRepo,
		discountRepo: discountRepo,
		statsRepo:    statsRepo,
		engine:       discount.NewEngine(now),
		cache:        c,
		now:          now,
	}
}

func discountsKey(carWashID uuid.UUID) string {
	return cache.Key("discounts", carWashID.String())
}

func (s *discountService) Invalidate(carWashID uuid.UUID) {
	s.cache.Delete(discountsKey(carWashID))
}

func (s *discountService) discounts(ctx context.Context, carWashID uuid.UUID) ([]discount.Discount, error) {
	if v, ok := s.cache.Get(discountsKey(carWashID)); ok {
		return v.([]discount.Discount), nil
	}
	rows, err := s.discountRepo.ActiveDiscounts(ctx, carWashID)
	if err != nil {
		return nil, err
	}
	out := make([]discount.Discount, 0, len(rows))
	for _, r := range rows {
		out = append(out, discount.FromModel(r))
	}
	s.cache.Set(discountsKey(carWashID), out, cache.DiscountsTTL)
	return out, nil
}

// stats never fails: lookups that error degrade to an empty history.
func (s *discountService) stats(ctx context.Context, customerID, carWashID uuid.UUID, at time.Time) discount.CustomerStats {
	key := cache.Key("stats", carWashID.String(), customerID.String(), at.Format("2006-01-02"))
	if v, ok := s.cache.Get(key); ok {
		return v.(discount.CustomerStats)
	}
	st, err := s.statsRepo.CustomerStats(ctx, customerID, carWashID, at)
	if err != nil {
		logger.Warnf("customer stats unavailable for %s: %v", customerID, err)
		return discount.EmptyStats()
	}
	s.cache.Set(key, st, cache.CustomerStatsTTL)
	return st
}

func (s *discountService) Evaluate(ctx context.Context, req EvaluateRequest) (discount.Outcome, error) {
	none := discount.Combine(nil, req.ServicesTotal, req.Commission, false)

	cw, err := s.carWashRepo.FindByID(ctx, req.CarWashID)
	if err != nil {
		return none, notFound(err, "car wash", req.CarWashID)
	}
	if !cw.PromoEnabled {
		return none, nil
	}

	all, err := s.discounts(ctx, req.CarWashID)
	if err != nil {
		return none, err
	}
	if len(all) == 0 {
		return none, nil
	}

	at := req.At
	if at.IsZero() {
		at = s.now()
	}
	stats := discount.EmptyStats()
	counts := map[uuid.UUID]int{}
	if req.CustomerID != nil {
		stats = s.stats(ctx, *req.CustomerID, req.CarWashID, at)
		ids := make([]uuid.UUID, 0, len(all))
		for _, d := range all {
			if d.UsageLimit > 0 {
				ids = append(ids, d.ID)
			}
		}
		if counts, err = s.discountRepo.CustomerUsageCounts(ctx, *req.CustomerID, ids); err != nil {
			return none, err
		}
	}

	applicable := s.engine.Applicable(all, stats, discount.Order{
		Services:      req.Services,
		ServicesTotal: req.ServicesTotal,
		At:            at,
	}, counts)
	return discount.Combine(applicable, req.ServicesTotal, req.Commission, req.AllowCombinations), nil
}

// contextDiscountIDs lists the discounts referenced by usage rows.
func contextDiscountIDs(rows []model.AutoDiscountUsage) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	ids := []uuid.UUID{}
	for _, r := range rows {
		if !seen[r.DiscountID] {
			seen[r.DiscountID] = true
			ids = append(ids, r.DiscountID)
		}
	}
	return ids
}
