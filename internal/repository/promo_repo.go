package repository

import (
	"context"
	"strings"

	"carwash/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PromoRepository interface {
	Create(ctx context.Context, p *model.PromoCode) error
	FindByCode(ctx context.Context, carWashID uuid.UUID, code string) (*model.PromoCode, error)
	// IncrementUsed bumps used_count unless the usage limit is reached and
	// reports whether it did.
	IncrementUsed(ctx context.Context, id uuid.UUID) (bool, error)
	CreateUsage(ctx context.Context, u *model.PromoCodeUsage) error
	// UsageForContext returns the usage row of one order, nil when none.
	UsageForContext(ctx context.Context, contextType string, contextID uuid.UUID) (*model.PromoCodeUsage, error)
	SaveUsage(ctx context.Context, u *model.PromoCodeUsage) error
}

type promoRepository struct {
	db *gorm.DB
}

func NewPromoRepository(db *gorm.DB) PromoRepository {
	return &promoRepository{db: db}
}

func (r *promoRepository) Create(ctx context.Context, p *model.PromoCode) error {
	return GetDB(ctx, r.db).Create(p).Error
}

func (r *promoRepository) FindByCode(ctx context.Context, carWashID uuid.UUID, code string) (*model.PromoCode, error) {
	var p model.PromoCode
	err := GetDB(ctx, r.db).
		Where("car_wash_id = ? AND UPPER(code) = ?", carWashID, strings.ToUpper(strings.TrimSpace(code))).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *promoRepository) IncrementUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.PromoCode{}).
		Where("id = ? AND (usage_limit = 0 OR used_count < usage_limit)", id).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *promoRepository) CreateUsage(ctx context.Context, u *model.PromoCodeUsage) error {
	return GetDB(ctx, r.db).Create(u).Error
}

func (r *promoRepository) UsageForContext(ctx context.Context, contextType string, contextID uuid.UUID) (*model.PromoCodeUsage, error) {
	var rows []model.PromoCodeUsage
	if err := GetDB(ctx, r.db).
		Where("context_type = ? AND context_id = ?", contextType, contextID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *promoRepository) SaveUsage(ctx context.Context, u *model.PromoCodeUsage) error {
	return GetDB(ctx, r.db).Save(u).Error
}
