package repository

import (
	"context"
	"time"

	"carwash/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *model.Appointment) error
	// Update saves the appointment and replaces its service items.
	Update(ctx context.Context, a *model.Appointment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	// NextNum returns the next daily sequence number of a car wash for the
	// day [dayStart, dayStart+24h).
	NextNum(ctx context.Context, carWashID uuid.UUID, dayStart time.Time) (int, error)
	// Overlapping returns active appointments whose span meets [start, end).
	Overlapping(ctx context.Context, carWashID uuid.UUID, start, end time.Time) ([]model.Appointment, error)
}

type appointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	return GetDB(ctx, r.db).Create(a).Error
}

func (r *appointmentRepository) Update(ctx context.Context, a *model.Appointment) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("appointment_id = ?", a.ID).Delete(&model.AppointmentItem{}).Error; err != nil {
		return err
	}
	for i := range a.Items {
		a.Items[i].ID = uuid.Nil
		a.Items[i].AppointmentID = a.ID
	}
	if err := db.Omit(clause.Associations).Save(a).Error; err != nil {
		return err
	}
	if len(a.Items) == 0 {
		return nil
	}
	return db.Create(&a.Items).Error
}

func (r *appointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var a model.Appointment
	err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var a model.Appointment
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).Where("appointment_id = ?", id).Order("created_at asc").Find(&a.Items).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepository) NextNum(ctx context.Context, carWashID uuid.UUID, dayStart time.Time) (int, error) {
	var last int
	err := GetDB(ctx, r.db).Model(&model.Appointment{}).
		Where("car_wash_id = ? AND created_at >= ? AND created_at < ?", carWashID, dayStart, dayStart.Add(24*time.Hour)).
		Select("COALESCE(MAX(num), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

func (r *appointmentRepository) Overlapping(ctx context.Context, carWashID uuid.UUID, start, end time.Time) ([]model.Appointment, error) {
	var rows []model.Appointment
	// rows without a usable end occupy the default wash duration
	err := GetDB(ctx, r.db).
		Where("car_wash_id = ? AND is_deleted = ? AND workflow_state <> ?", carWashID, false, model.StateCancelled).
		Where("starts_on < ?", end).
		Where("(ends_on > starts_on AND ends_on > ?) OR (ends_on <= starts_on AND starts_on > ?)", start, start.Add(-model.DefaultWashDuration)).
		Order("starts_on asc").
		Find(&rows).Error
	return rows, err
}
