package repository

import (
	"context"
	"strings"

	"carwash/internal/model"
	"carwash/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, carWashID uuid.UUID, search string, p pagination.Params) ([]model.Product, int64, error)
	UpdateStock(ctx context.Context, id uuid.UUID, stock int) error
	// Consumables returns the products used per unit of each service.
	Consumables(ctx context.Context, serviceIDs []uuid.UUID) ([]model.ServiceConsumable, error)
	AddConsumable(ctx context.Context, c *model.ServiceConsumable) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, carWashID uuid.UUID, search string, p pagination.Params) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Product{}).Where("car_wash_id = ?", carWashID)
	if search != "" {
		db = db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("name asc").Offset(p.Offset).Limit(p.Limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	return GetDB(ctx, r.db).Model(&model.Product{}).Where("id = ?", id).Update("current_stock", stock).Error
}

func (r *productRepository) Consumables(ctx context.Context, serviceIDs []uuid.UUID) ([]model.ServiceConsumable, error) {
	var rows []model.ServiceConsumable
	if len(serviceIDs) == 0 {
		return rows, nil
	}
	err := GetDB(ctx, r.db).Where("service_id IN ?", serviceIDs).Order("product_id asc").Find(&rows).Error
	return rows, err
}

func (r *productRepository) AddConsumable(ctx context.Context, c *model.ServiceConsumable) error {
	return GetDB(ctx, r.db).Create(c).Error
}

type StockLedgerRepository interface {
	Create(ctx context.Context, e *model.StockLedgerEntry) error
	// ForAppointment returns the stock movements of an appointment.
	ForAppointment(ctx context.Context, appointmentID uuid.UUID) ([]model.StockLedgerEntry, error)
}

type stockLedgerRepository struct {
	db *gorm.DB
}

func NewStockLedgerRepository(db *gorm.DB) StockLedgerRepository {
	return &stockLedgerRepository{db: db}
}

func (r *stockLedgerRepository) Create(ctx context.Context, e *model.StockLedgerEntry) error {
	return GetDB(ctx, r.db).Create(e).Error
}

func (r *stockLedgerRepository) ForAppointment(ctx context.Context, appointmentID uuid.UUID) ([]model.StockLedgerEntry, error) {
	var rows []model.StockLedgerEntry
	err := GetDB(ctx, r.db).Where("appointment_id = ?", appointmentID).Order("created_at asc").Find(&rows).Error
	return rows, err
}
