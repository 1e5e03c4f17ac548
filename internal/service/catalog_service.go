package service

import (
	"context"
	"fmt"

	"carwash/internal/model"
	"carwash/internal/pricing"
	"carwash/internal/repository"
	"carwash/pkg/apperror"

	"github.com/google/uuid"
)

// CatalogService edits services, body type prices and discounts, dropping
// the cached lookups that depend on them.
type CatalogService interface {
	SaveService(ctx context.Context, svc *model.WashService, actor Actor) error
	SavePrice(ctx context.Context, serviceID uuid.UUID, price *model.ServicePrice, actor Actor) error
	CreateDiscount(ctx context.Context, d *model.AutoDiscount, actor Actor) error
}

type catalogService struct {
	catalogRepo  repository.CatalogRepository
	discountRepo repository.DiscountRepository
	auditRepo    repository.AuditRepository
	calculator   *pricing.Calculator
	discounts    DiscountService
}

func NewCatalogService(
	catalogRepo repository.CatalogRepository,
	discountRepo repository.DiscountRepository,
	auditRepo repository.AuditRepository,
	calculator *pricing.Calculator,
	discounts DiscountService,
) CatalogService {
	return &catalogService{
		catalogRepo:  catalogRepo,
		discountRepo: discountRepo,
		auditRepo:    auditRepo,
		calculator:   calculator,
		discounts:    discounts,
	}
}

func (s *catalogService) SaveService(ctx context.Context, svc *model.WashService, actor Actor) error {
	if svc.CarWashID == uuid.Nil {
		return apperror.Validation("car wash is required")
	}
	if svc.Duration < 0 {
		return apperror.Validation("duration cannot be negative")
	}
	if err := s.catalogRepo.SaveService(ctx, svc); err != nil {
		return fmt.Errorf("failed to save service: %w", err)
	}
	s.calculator.Invalidate(svc.CarWashID)
	audit(ctx, s.auditRepo, actor, model.ActionSaveService, svc.ID.String(), svc.Title, svc)
	return nil
}

func (s *catalogService) SavePrice(ctx context.Context, serviceID uuid.UUID, price *model.ServicePrice, actor Actor) error {
	svc, err := s.catalogRepo.FindService(ctx, serviceID)
	if err != nil {
		return notFound(err, "service", serviceID)
	}
	if price.BodyType == "" {
		return apperror.Validation("body type is required")
	}
	if price.Price.IsNegative() {
		return apperror.Validation("price cannot be negative")
	}
	price.BaseServiceID = svc.ID
	if err := s.catalogRepo.SavePrice(ctx, price); err != nil {
		return fmt.Errorf("failed to save price: %w", err)
	}
	s.calculator.Invalidate(svc.CarWashID)
	audit(ctx, s.auditRepo, actor, model.ActionSavePrice, svc.ID.String(), svc.Title+" / "+price.BodyType, price)
	return nil
}

func (s *catalogService) CreateDiscount(ctx context.Context, d *model.AutoDiscount, actor Actor) error {
	if d.CarWashID == uuid.Nil {
		return apperror.Validation("car wash is required")
	}
	if d.DiscountType != model.DiscountPercentage && d.DiscountType != model.DiscountFixed {
		return apperror.Validation("unknown discount type %q", d.DiscountType)
	}
	if d.DiscountValue.IsNegative() {
		return apperror.Validation("discount value cannot be negative")
	}
	for i := range d.Rules {
		d.Rules[i].Idx = i
	}
	if err := s.discountRepo.CreateDiscount(ctx, d); err != nil {
		return fmt.Errorf("failed to create discount: %w", err)
	}
	s.discounts.Invalidate(d.CarWashID)
	audit(ctx, s.auditRepo, actor, model.ActionCreateDiscount, d.ID.String(), d.Title, d)
	return nil
}
