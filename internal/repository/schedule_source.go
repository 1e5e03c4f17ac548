package repository

import (
	"context"
	"time"

	"carwash/internal/model"
	"carwash/internal/scheduler"

	"github.com/google/uuid"
)

// ScheduleSource adapts the car wash, appointment and booking repositories
// to scheduler.Source.
type ScheduleSource struct {
	carWashes    CarWashRepository
	appointments AppointmentRepository
	bookings     BookingRepository
}

func NewScheduleSource(cw CarWashRepository, appts AppointmentRepository, bookings BookingRepository) *ScheduleSource {
	return &ScheduleSource{carWashes: cw, appointments: appts, bookings: bookings}
}

func (s *ScheduleSource) WorkingHours(ctx context.Context, carWashID uuid.UUID) ([]model.WorkingHour, error) {
	return s.carWashes.WorkingHours(ctx, carWashID)
}

func (s *ScheduleSource) EnabledBoxes(ctx context.Context, carWashID uuid.UUID) ([]uuid.UUID, error) {
	return s.carWashes.EnabledBoxes(ctx, carWashID)
}

func (s *ScheduleSource) AppointmentsOverlapping(ctx context.Context, carWashID uuid.UUID, start, end time.Time) ([]scheduler.Occupancy, error) {
	rows, err := s.appointments.Overlapping(ctx, carWashID, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]scheduler.Occupancy, 0, len(rows))
	for _, a := range rows {
		out = append(out, scheduler.Occupancy{Start: a.StartsOn, End: a.EndsOn, BoxID: a.BoxID})
	}
	return out, nil
}

func (s *ScheduleSource) QueuedBookings(ctx context.Context, carWashID uuid.UUID) ([]scheduler.QueueEntry, error) {
	rows, err := s.bookings.Queued(ctx, carWashID)
	if err != nil {
		return nil, err
	}
	out := make([]scheduler.QueueEntry, 0, len(rows))
	for _, b := range rows {
		out = append(out, scheduler.QueueEntry{DesiredTime: b.DesiredTime, CreatedAt: b.CreatedAt})
	}
	return out, nil
}
