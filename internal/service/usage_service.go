package service

import (
	"context"
	"fmt"

	"carwash/internal/discount"
	"carwash/internal/model"
	"carwash/internal/repository"

	"github.com/google/uuid"
)

// UsageContext identifies the order usage rows belong to.
type UsageContext struct {
	Type string    `json:"context_type" form:"context_type" binding:"required,oneof=Appointment Booking MobileAttempt"`
	ID   uuid.UUID `json:"context_id" form:"context_id" binding:"required"`
}

type DiscountUsageService interface {
	// Record inserts one usage row per discount applied in outcome.
	Record(ctx context.Context, scope discount.UsageScope, outcome discount.Outcome) ([]model.AutoDiscountUsage, error)
	// Refresh recomputes the recorded rows of an order against a new base.
	Refresh(ctx context.Context, uc UsageContext, base discount.Base) ([]model.AutoDiscountUsage, error)
	// SetDisabled disables the rows of the given discounts, optionally
	// enabling every other row of the order.
	SetDisabled(ctx context.Context, uc UsageContext, discountIDs []uuid.UUID, enableOthers bool) error
	// ApplyToBase subtracts the enabled rows of an order from base.
	ApplyToBase(ctx context.Context, uc UsageContext, base discount.Base) (discount.Totals, error)
	DeleteForContext(ctx context.Context, uc UsageContext) error
	// Transfer hands the rows of one order over to another, keeping their
	// enabled state. Used when a booking becomes an appointment.
	Transfer(ctx context.Context, from, to UsageContext) error
	List(ctx context.Context, uc UsageContext) ([]model.AutoDiscountUsage, error)
}

type discountUsageService struct {
	discountRepo repository.DiscountRepository
	txManager    repository.TransactionManager
}

func NewDiscountUsageService(discountRepo repository.DiscountRepository, txManager repository.TransactionManager) DiscountUsageService {
	return &discountUsageService{discountRepo: discountRepo, txManager: txManager}
}

func (s *discountUsageService) Record(ctx context.Context, scope discount.UsageScope, outcome discount.Outcome) ([]model.AutoDiscountUsage, error) {
	rows := discount.UsageRows(scope, outcome)
	if len(rows) == 0 {
		return rows, nil
	}
	if err := s.discountRepo.CreateUsages(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to record discount usage: %w", err)
	}
	return rows, nil
}

func (s *discountUsageService) Refresh(ctx context.Context, uc UsageContext, base discount.Base) ([]model.AutoDiscountUsage, error) {
	var out []model.AutoDiscountUsage
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rows, err := s.discountRepo.UsagesForContext(txCtx, uc.Type, uc.ID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			out = rows
			return nil
		}
		defs, err := s.discountRepo.DiscountsByID(txCtx, contextDiscountIDs(rows))
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]discount.Discount, len(defs))
		for _, d := range defs {
			byID[d.ID] = discount.FromModel(d)
		}

		out = discount.RefreshUsages(rows, byID, base)
		for i := range out {
			if out[i].ServiceDiscount.Equal(rows[i].ServiceDiscount) &&
				out[i].CommissionWaived.Equal(rows[i].CommissionWaived) {
				continue
			}
			if err := s.discountRepo.SaveUsage(txCtx, &out[i]); err != nil {
				return fmt.Errorf("failed to refresh discount usage: %w", err)
			}
		}
		return nil
	})
	return out, err
}

func (s *discountUsageService) SetDisabled(ctx context.Context, uc UsageContext, discountIDs []uuid.UUID, enableOthers bool) error {
	if len(discountIDs) == 0 {
		return nil
	}
	target := make(map[uuid.UUID]bool, len(discountIDs))
	for _, id := range discountIDs {
		target[id] = true
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rows, err := s.discountRepo.UsagesForContext(txCtx, uc.Type, uc.ID)
		if err != nil {
			return err
		}
		for i := range rows {
			want := rows[i].IsDisabled
			switch {
			case target[rows[i].DiscountID]:
				want = true
			case enableOthers:
				want = false
			}
			if want == rows[i].IsDisabled {
				continue
			}
			rows[i].IsDisabled = want
			if err := s.discountRepo.SaveUsage(txCtx, &rows[i]); err != nil {
				return fmt.Errorf("failed to toggle discount usage: %w", err)
			}
		}
		return nil
	})
}

func (s *discountUsageService) ApplyToBase(ctx context.Context, uc UsageContext, base discount.Base) (discount.Totals, error) {
	rows, err := s.discountRepo.UsagesForContext(ctx, uc.Type, uc.ID)
	if err != nil {
		return discount.Totals{}, err
	}
	return discount.ApplyToBase(rows, base), nil
}

func (s *discountUsageService) DeleteForContext(ctx context.Context, uc UsageContext) error {
	return s.discountRepo.DeleteForContext(ctx, uc.Type, uc.ID)
}

func (s *discountUsageService) Transfer(ctx context.Context, from, to UsageContext) error {
	if err := s.discountRepo.MoveUsages(ctx, from.Type, from.ID, to.Type, to.ID); err != nil {
		return fmt.Errorf("failed to transfer discount usage: %w", err)
	}
	return nil
}

func (s *discountUsageService) List(ctx context.Context, uc UsageContext) ([]model.AutoDiscountUsage, error) {
	return s.discountRepo.UsagesForContext(ctx, uc.Type, uc.ID)
}
