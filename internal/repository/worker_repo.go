package repository

import (
	"context"

	"carwash/internal/model"
	"carwash/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type WorkerRepository interface {
	Create(ctx context.Context, w *model.Worker) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Worker, error)
	// FindByUser returns the active worker of a car wash linked to a user.
	FindByUser(ctx context.Context, carWashID, userID uuid.UUID) (*model.Worker, error)
}

type workerRepository struct {
	db *gorm.DB
}

func NewWorkerRepository(db *gorm.DB) WorkerRepository {
	return &workerRepository{db: db}
}

func (r *workerRepository) Create(ctx context.Context, w *model.Worker) error {
	return GetDB(ctx, r.db).Create(w).Error
}

func (r *workerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Worker, error) {
	var w model.Worker
	if err := GetDB(ctx, r.db).First(&w, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *workerRepository) FindByUser(ctx context.Context, carWashID, userID uuid.UUID) (*model.Worker, error) {
	var w model.Worker
	err := GetDB(ctx, r.db).
		Where("car_wash_id = ? AND user_id = ? AND is_active = ?", carWashID, userID, true).
		First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

type LedgerRepository interface {
	Create(ctx context.Context, e *model.WorkerLedgerEntry) error
	Cancel(ctx context.Context, id uuid.UUID) error
	// Earnings returns non-cancelled earning entries of an appointment.
	Earnings(ctx context.Context, appointmentID uuid.UUID) ([]model.WorkerLedgerEntry, error)
	// Balance sums signed submitted entries of a worker.
	Balance(ctx context.Context, workerID uuid.UUID) (decimal.Decimal, error)
	List(ctx context.Context, workerID uuid.UUID, p pagination.Params) ([]model.WorkerLedgerEntry, int64, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Create(ctx context.Context, e *model.WorkerLedgerEntry) error {
	return GetDB(ctx, r.db).Create(e).Error
}

func (r *ledgerRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.WorkerLedgerEntry{}).
		Where("id = ?", id).
		Update("status", model.LedgerCancelled).Error
}

func (r *ledgerRepository) Earnings(ctx context.Context, appointmentID uuid.UUID) ([]model.WorkerLedgerEntry, error) {
	var rows []model.WorkerLedgerEntry
	err := GetDB(ctx, r.db).
		Where("appointment_id = ? AND entry_type = ? AND status <> ?", appointmentID, model.EntryEarning, model.LedgerCancelled).
		Order("created_at asc").
		Find(&rows).Error
	return rows, err
}

func (r *ledgerRepository) Balance(ctx context.Context, workerID uuid.UUID) (decimal.Decimal, error) {
	var rows []model.WorkerLedgerEntry
	err := GetDB(ctx, r.db).
		Select("entry_type, amount").
		Where("worker_id = ? AND status = ?", workerID, model.LedgerSubmitted).
		Find(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for i := range rows {
		total = total.Add(rows[i].Signed())
	}
	return total, nil
}

func (r *ledgerRepository) List(ctx context.Context, workerID uuid.UUID, p pagination.Params) ([]model.WorkerLedgerEntry, int64, error) {
	var rows []model.WorkerLedgerEntry
	var total int64

	db := GetDB(ctx, r.db).Model(&model.WorkerLedgerEntry{}).Where("worker_id = ?", workerID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("posting_time desc").Offset(p.Offset).Limit(p.Limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
