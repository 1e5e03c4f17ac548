package repository

import (
	"context"
	"time"

	"carwash/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository interface {
	Create(ctx context.Context, b *model.Booking) error
	// Update saves the booking and replaces its service items.
	Update(ctx context.Context, b *model.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	NextNum(ctx context.Context, carWashID uuid.UUID, dayStart time.Time) (int, error)
	// Queued returns bookings still waiting for an appointment, oldest first.
	Queued(ctx context.Context, carWashID uuid.UUID) ([]model.Booking, error)
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, b *model.Booking) error {
	return GetDB(ctx, r.db).Create(b).Error
}

func (r *bookingRepository) Update(ctx context.Context, b *model.Booking) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("booking_id = ?", b.ID).Delete(&model.BookingItem{}).Error; err != nil {
		return err
	}
	for i := range b.Items {
		b.Items[i].ID = uuid.Nil
		b.Items[i].BookingID = b.ID
	}
	if err := db.Omit(clause.Associations).Save(b).Error; err != nil {
		return err
	}
	if len(b.Items) == 0 {
		return nil
	}
	return db.Create(&b.Items).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		First(&b, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).Where("booking_id = ?", id).Order("created_at asc").Find(&b.Items).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) NextNum(ctx context.Context, carWashID uuid.UUID, dayStart time.Time) (int, error) {
	var last int
	err := GetDB(ctx, r.db).Model(&model.Booking{}).
		Where("car_wash_id = ? AND created_at >= ? AND created_at < ?", carWashID, dayStart, dayStart.Add(24*time.Hour)).
		Select("COALESCE(MAX(num), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

func (r *bookingRepository) Queued(ctx context.Context, carWashID uuid.UUID) ([]model.Booking, error) {
	var rows []model.Booking
	err := GetDB(ctx, r.db).
		Where("car_wash_id = ? AND is_cancelled = ? AND is_deleted = ? AND has_appointment = ?", carWashID, false, false, false).
		Order("created_at asc").
		Find(&rows).Error
	return rows, err
}
