package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carwash/internal/discount"
	"carwash/internal/model"
	"carwash/internal/repository"
	"carwash/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PromoService interface {
	// Apply looks the code up and prices it against order. Rejections are
	// reported in the result, not as errors.
	Apply(ctx context.Context, carWashID uuid.UUID, code string, order discount.Order, pc discount.PromoContext) (discount.PromoResult, *model.PromoCode, error)
	// Record consumes one use of the code and writes the usage row.
	Record(ctx context.Context, promo *model.PromoCode, res discount.PromoResult, uc UsageContext, actor Actor) error
	// Reprice evaluates a code already consumed by an order against the
	// order's current contents and updates its usage row. A code that no
	// longer applies yields an invalid result worth nothing.
	Reprice(ctx context.Context, carWashID uuid.UUID, code string, order discount.Order, pc discount.PromoContext, uc UsageContext) (discount.PromoResult, error)
}

type promoService struct {
	promoRepo repository.PromoRepository
	auditRepo repository.AuditRepository
	now       func() time.Time
}

func NewPromoService(promoRepo repository.PromoRepository, auditRepo repository.AuditRepository, now func() time.Time) PromoService {
	if now == nil {
		now = time.Now
	}
	return &promoService{promoRepo: promoRepo, auditRepo: auditRepo, now: now}
}

func (s *promoService) Apply(ctx context.Context, carWashID uuid.UUID, code string, order discount.Order, pc discount.PromoContext) (discount.PromoResult, *model.PromoCode, error) {
	promo, err := s.promoRepo.FindByCode(ctx, carWashID, code)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return discount.PromoResult{}, nil, fmt.Errorf("failed to load promo code: %w", err)
	}
	at := order.At
	if at.IsZero() {
		at = s.now()
	}
	res := discount.EvaluatePromo(promo, carWashID, order, pc, at)
	if !res.Valid {
		return res, nil, nil
	}
	return res, promo, nil
}

func (s *promoService) Reprice(ctx context.Context, carWashID uuid.UUID, code string, order discount.Order, pc discount.PromoContext, uc UsageContext) (discount.PromoResult, error) {
	pc.Consumed = true
	res, _, err := s.Apply(ctx, carWashID, code, order, pc)
	if err != nil {
		return discount.PromoResult{}, err
	}
	usage, err := s.promoRepo.UsageForContext(ctx, uc.Type, uc.ID)
	if err != nil {
		return discount.PromoResult{}, fmt.Errorf("failed to load promo code usage: %w", err)
	}
	if usage == nil {
		return res, nil
	}
	usage.ServiceDiscount = res.ServiceDiscount
	usage.CommissionWaived = res.CommissionWaived
	usage.ServicesTotalBefore = order.ServicesTotal
	usage.ServicesTotalAfter = res.FinalServicesTotal
	usage.CommissionBefore = pc.Commission
	usage.CommissionAfter = res.FinalCommission
	if err := s.promoRepo.SaveUsage(ctx, usage); err != nil {
		return discount.PromoResult{}, fmt.Errorf("failed to update promo code usage: %w", err)
	}
	return res, nil
}

func (s *promoService) Record(ctx context.Context, promo *model.PromoCode, res discount.PromoResult, uc UsageContext, actor Actor) error {
	if promo == nil || !res.Valid {
		return nil
	}
	ok, err := s.promoRepo.IncrementUsed(ctx, promo.ID)
	if err != nil {
		return fmt.Errorf("failed to consume promo code: %w", err)
	}
	if !ok {
		return apperror.Validation("promo code usage limit reached")
	}
	usage := &model.PromoCodeUsage{
		PromoCodeID:         promo.ID,
		ContextType:         uc.Type,
		ContextID:           uc.ID,
		UserID:              actor.UserID,
		PromoType:           res.PromoType,
		ServiceDiscount:     res.ServiceDiscount,
		CommissionWaived:    res.CommissionWaived,
		ServicesTotalBefore: res.FinalServicesTotal.Add(res.ServiceDiscount),
		ServicesTotalAfter:  res.FinalServicesTotal,
		CommissionBefore:    res.FinalCommission.Add(res.CommissionWaived),
		CommissionAfter:     res.FinalCommission,
	}
	if err := s.promoRepo.CreateUsage(ctx, usage); err != nil {
		return fmt.Errorf("failed to record promo code usage: %w", err)
	}
	audit(ctx, s.auditRepo, actor, model.ActionApplyPromo, uc.ID.String(), promo.Code, res)
	return nil
}
