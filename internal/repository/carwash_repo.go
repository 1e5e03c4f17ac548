package repository

import (
	"context"
	"errors"

	"carwash/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CarWashRepository interface {
	Create(ctx context.Context, cw *model.CarWash) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CarWash, error)
	WorkingHours(ctx context.Context, carWashID uuid.UUID) ([]model.WorkingHour, error)
	EnabledBoxes(ctx context.Context, carWashID uuid.UUID) ([]uuid.UUID, error)
	// Settings returns the payroll settings, defaults when none are stored.
	Settings(ctx context.Context, carWashID uuid.UUID) (*model.CarWashSettings, error)
}

type carWashRepository struct {
	db *gorm.DB
}

func NewCarWashRepository(db *gorm.DB) CarWashRepository {
	return &carWashRepository{db: db}
}

func (r *carWashRepository) Create(ctx context.Context, cw *model.CarWash) error {
	return GetDB(ctx, r.db).Create(cw).Error
}

func (r *carWashRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.CarWash, error) {
	var cw model.CarWash
	if err := GetDB(ctx, r.db).First(&cw, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cw, nil
}

func (r *carWashRepository) WorkingHours(ctx context.Context, carWashID uuid.UUID) ([]model.WorkingHour, error) {
	var rows []model.WorkingHour
	err := GetDB(ctx, r.db).
		Where("car_wash_id = ?", carWashID).
		Order("day_of_week asc, start_time asc").
		Find(&rows).Error
	return rows, err
}

func (r *carWashRepository) EnabledBoxes(ctx context.Context, carWashID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := GetDB(ctx, r.db).Model(&model.Box{}).
		Where("car_wash_id = ? AND is_disabled = ? AND is_deleted = ?", carWashID, false, false).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *carWashRepository) Settings(ctx context.Context, carWashID uuid.UUID) (*model.CarWashSettings, error) {
	var s model.CarWashSettings
	err := GetDB(ctx, r.db).Where("car_wash_id = ?", carWashID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.CarWashSettings{
			CarWashID:           carWashID,
			WasherEarningMode:   model.EarningPercent,
			WasherEarningValue:  30,
			CashierEarningMode:  model.EarningPercent,
			CashierEarningValue: 10,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
