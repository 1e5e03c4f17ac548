package repository

import (
	"context"
	"time"

	"carwash/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DiscountRepository interface {
	CreateDiscount(ctx context.Context, d *model.AutoDiscount) error
	// ActiveDiscounts returns active, non-deleted discounts of a car wash
	// with their rules. Validity windows are checked by the engine.
	ActiveDiscounts(ctx context.Context, carWashID uuid.UUID) ([]model.AutoDiscount, error)
	// DiscountsByID loads discounts regardless of state, for usage refresh.
	DiscountsByID(ctx context.Context, ids []uuid.UUID) ([]model.AutoDiscount, error)

	CreateUsages(ctx context.Context, rows []model.AutoDiscountUsage) error
	SaveUsage(ctx context.Context, row *model.AutoDiscountUsage) error
	// UsagesForContext returns usage rows of one order in creation order.
	UsagesForContext(ctx context.Context, contextType string, contextID uuid.UUID) ([]model.AutoDiscountUsage, error)
	DeleteForContext(ctx context.Context, contextType string, contextID uuid.UUID) error
	// MoveUsages re-keys every usage row of one order to another.
	MoveUsages(ctx context.Context, fromType string, fromID uuid.UUID, toType string, toID uuid.UUID) error
	// CustomerUsageCounts counts enabled usages per discount for a customer.
	CustomerUsageCounts(ctx context.Context, customerID uuid.UUID, discountIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

type discountRepository struct {
	db *gorm.DB
}

func NewDiscountRepository(db *gorm.DB) DiscountRepository {
	return &discountRepository{db: db}
}

func (r *discountRepository) CreateDiscount(ctx context.Context, d *model.AutoDiscount) error {
	return GetDB(ctx, r.db).Create(d).Error
}

func (r *discountRepository) ActiveDiscounts(ctx context.Context, carWashID uuid.UUID) ([]model.AutoDiscount, error) {
	var rows []model.AutoDiscount
	err := GetDB(ctx, r.db).
		Preload("Rules").
		Where("car_wash_id = ? AND is_active = ? AND is_deleted = ?", carWashID, true, false).
		Order("priority asc, created_at asc").
		Find(&rows).Error
	return rows, err
}

func (r *discountRepository) DiscountsByID(ctx context.Context, ids []uuid.UUID) ([]model.AutoDiscount, error) {
	var rows []model.AutoDiscount
	if len(ids) == 0 {
		return rows, nil
	}
	err := GetDB(ctx, r.db).Preload("Rules").Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *discountRepository) CreateUsages(ctx context.Context, rows []model.AutoDiscountUsage) error {
	if len(rows) == 0 {
		return nil
	}
	// creation order is significant for refresh; keep timestamps distinct
	base := time.Now()
	for i := range rows {
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = base.Add(time.Duration(i) * time.Microsecond)
		}
	}
	return GetDB(ctx, r.db).Create(&rows).Error
}

func (r *discountRepository) SaveUsage(ctx context.Context, row *model.AutoDiscountUsage) error {
	return GetDB(ctx, r.db).Save(row).Error
}

func (r *discountRepository) UsagesForContext(ctx context.Context, contextType string, contextID uuid.UUID) ([]model.AutoDiscountUsage, error) {
	var rows []model.AutoDiscountUsage
	err := GetDB(ctx, r.db).
		Where("context_type = ? AND context_id = ?", contextType, contextID).
		Order("created_at asc").
		Find(&rows).Error
	return rows, err
}

func (r *discountRepository) DeleteForContext(ctx context.Context, contextType string, contextID uuid.UUID) error {
	return GetDB(ctx, r.db).
		Where("context_type = ? AND context_id = ?", contextType, contextID).
		Delete(&model.AutoDiscountUsage{}).Error
}

func (r *discountRepository) MoveUsages(ctx context.Context, fromType string, fromID uuid.UUID, toType string, toID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.AutoDiscountUsage{}).
		Where("context_type = ? AND context_id = ?", fromType, fromID).
		Updates(map[string]interface{}{"context_type": toType, "context_id": toID}).Error
}

func (r *discountRepository) CustomerUsageCounts(ctx context.Context, customerID uuid.UUID, discountIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := map[uuid.UUID]int{}
	if len(discountIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		DiscountID uuid.UUID
		Cnt        int
	}
	err := GetDB(ctx, r.db).Model(&model.AutoDiscountUsage{}).
		Select("discount_id, COUNT(*) AS cnt").
		Where("customer_id = ? AND discount_id IN ? AND is_disabled = ?", customerID, discountIDs, false).
		Group("discount_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.DiscountID] = row.Cnt
	}
	return out, nil
}
