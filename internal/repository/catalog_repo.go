package repository

import (
	"context"
	"errors"

	"carwash/internal/model"
	"carwash/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogRepository reads and edits services, body-type prices and cars.
// It satisfies pricing.Catalog.
type CatalogRepository interface {
	CarBodyType(ctx context.Context, carID uuid.UUID) (string, error)
	ActiveServices(ctx context.Context, carWashID uuid.UUID, ids []uuid.UUID) ([]model.WashService, error)
	BodyTypePrices(ctx context.Context, ids []uuid.UUID, bodyType string) ([]model.ServicePrice, error)
	FindService(ctx context.Context, id uuid.UUID) (*model.WashService, error)
	SaveService(ctx context.Context, s *model.WashService) error
	SavePrice(ctx context.Context, p *model.ServicePrice) error
	FindCar(ctx context.Context, id uuid.UUID) (*model.Car, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) CarBodyType(ctx context.Context, carID uuid.UUID) (string, error) {
	car, err := r.FindCar(ctx, carID)
	if err != nil {
		return "", err
	}
	return car.BodyType, nil
}

func (r *catalogRepository) FindCar(ctx context.Context, id uuid.UUID) (*model.Car, error) {
	var car model.Car
	err := GetDB(ctx, r.db).First(&car, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("car", id.String())
	}
	if err != nil {
		return nil, err
	}
	return &car, nil
}

func (r *catalogRepository) ActiveServices(ctx context.Context, carWashID uuid.UUID, ids []uuid.UUID) ([]model.WashService, error) {
	var rows []model.WashService
	if len(ids) == 0 {
		return rows, nil
	}
	err := GetDB(ctx, r.db).
		Where("car_wash_id = ? AND id IN ? AND is_disabled = ? AND is_deleted = ?", carWashID, ids, false, false).
		Find(&rows).Error
	return rows, err
}

func (r *catalogRepository) BodyTypePrices(ctx context.Context, ids []uuid.UUID, bodyType string) ([]model.ServicePrice, error) {
	var rows []model.ServicePrice
	if len(ids) == 0 || bodyType == "" {
		return rows, nil
	}
	err := GetDB(ctx, r.db).
		Where("base_service_id IN ? AND body_type = ? AND is_disabled = ? AND is_deleted = ?", ids, bodyType, false, false).
		Find(&rows).Error
	return rows, err
}

func (r *catalogRepository) FindService(ctx context.Context, id uuid.UUID) (*model.WashService, error) {
	var s model.WashService
	if err := GetDB(ctx, r.db).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *catalogRepository) SaveService(ctx context.Context, s *model.WashService) error {
	return GetDB(ctx, r.db).Save(s).Error
}

func (r *catalogRepository) SavePrice(ctx context.Context, p *model.ServicePrice) error {
	return GetDB(ctx, r.db).Save(p).Error
}
