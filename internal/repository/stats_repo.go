package repository

import (
	"context"
	"errors"
	"time"

	"carwash/internal/discount"
	"carwash/internal/model"

	"github.com/google/uuid"
	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StatsRepository aggregates a customer's appointment history.
type StatsRepository interface {
	CustomerStats(ctx context.Context, customerID, carWashID uuid.UUID, at time.Time) (discount.CustomerStats, error)
}

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) CustomerStats(ctx context.Context, customerID, carWashID uuid.UUID, at time.Time) (discount.CustomerStats, error) {
	cal := now.With(at)
	out := discount.CustomerStats{Periods: map[string]discount.PeriodStats{}}
	bounds := map[string]*time.Time{
		discount.PeriodMonth:   ptrTime(cal.BeginningOfMonth()),
		discount.PeriodYear:    ptrTime(cal.BeginningOfYear()),
		discount.PeriodAllTime: nil,
	}
	for period, from := range bounds {
		ps, err := r.period(ctx, customerID, carWashID, from, at)
		if err != nil {
			return discount.EmptyStats(), err
		}
		out.Periods[period] = ps
	}
	return out, nil
}

func ptrTime(t time.Time) *time.Time { return &t }

func (r *statsRepository) scope(ctx context.Context, customerID, carWashID uuid.UUID, from *time.Time, to time.Time) *gorm.DB {
	q := GetDB(ctx, r.db).Model(&model.Appointment{}).
		Where("appointments.customer_id = ? AND appointments.car_wash_id = ? AND appointments.is_deleted = ?", customerID, carWashID, false)
	if from != nil {
		q = q.Where("appointments.starts_on >= ? AND appointments.starts_on <= ?", *from, to)
	}
	return q
}

func (r *statsRepository) period(ctx context.Context, customerID, carWashID uuid.UUID, from *time.Time, to time.Time) (discount.PeriodStats, error) {
	var ps discount.PeriodStats

	var total int64
	if err := r.scope(ctx, customerID, carWashID, from, to).Count(&total).Error; err != nil {
		return ps, err
	}
	ps.TotalAppointments = int(total)

	var paid struct {
		Cnt   int64
		Spent decimal.Decimal
	}
	err := r.scope(ctx, customerID, carWashID, from, to).
		Where("appointments.payment_status = ?", model.PaymentPaid).
		Select("COUNT(*) AS cnt, COALESCE(SUM(appointments.services_total), 0) AS spent").
		Scan(&paid).Error
	if err != nil {
		return ps, err
	}
	ps.PaidAppointments = int(paid.Cnt)
	ps.SpentTotal = paid.Spent
	if paid.Cnt > 0 {
		ps.AvgTicket = paid.Spent.Div(decimal.NewFromInt(paid.Cnt)).Round(2)
	}
	if total == 0 {
		ps.TopServices = []discount.ServiceCount{}
		return ps, nil
	}

	var cars int64
	err = r.scope(ctx, customerID, carWashID, from, to).
		Where("appointments.car_id IS NOT NULL").
		Distinct("appointments.car_id").
		Count(&cars).Error
	if err != nil {
		return ps, err
	}
	ps.UniqueCars = int(cars)

	var last model.Appointment
	err = r.scope(ctx, customerID, carWashID, from, to).
		Select("appointments.starts_on").
		Order("appointments.starts_on desc").
		First(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return ps, err
	}
	if err == nil {
		ps.LastVisitOn = &last.StartsOn
	}

	ps.TopServices = []discount.ServiceCount{}
	err = r.scope(ctx, customerID, carWashID, from, to).
		Joins("JOIN appointment_items ON appointment_items.appointment_id = appointments.id").
		Select("appointment_items.service_id AS service_id, COUNT(*) AS count").
		Group("appointment_items.service_id").
		Order("count desc").
		Scan(&ps.TopServices).Error
	return ps, err
}
