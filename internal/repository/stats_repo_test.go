package repository

import (
	"context"
	"testing"
	"time"

	"carwash/internal/discount"
	"carwash/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsRepository_CustomerStats(t *testing.T) {
	db := newTestDB(t)
	repo := NewStatsRepository(db)
	ctx := context.Background()
	cw := seedCarWash(t, db)
	customer := uuid.New()
	car1, car2 := uuid.New(), uuid.New()
	wash, wax := uuid.New(), uuid.New()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	visit := func(start time.Time, car uuid.UUID, paid bool, total int64, services ...uuid.UUID) {
		a := &model.Appointment{
			CarWashID: cw.ID, Num: 1, CustomerID: &customer, CarID: &car,
			StartsOn: start, EndsOn: start.Add(30 * time.Minute),
		}
		a.ServicesTotal = dec(total)
		if paid {
			a.PaymentStatus = model.PaymentPaid
		}
		for _, s := range services {
			a.Items = append(a.Items, model.AppointmentItem{ServiceID: s, Price: dec(total)})
		}
		require.NoError(t, db.Create(a).Error)
	}
	visit(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), car1, true, 1000, wash)
	visit(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), car2, true, 2000, wash, wax)
	visit(time.Date(2026, 10, 5, 10, 0, 0, 0, time.UTC), car1, false, 500, wash)
	// other customer, other car wash and deleted rows are ignored
	other := uuid.New()
	require.NoError(t, db.Create(&model.Appointment{CarWashID: cw.ID, CustomerID: &other, StartsOn: now}).Error)
	require.NoError(t, db.Create(&model.Appointment{CarWashID: uuid.New(), CustomerID: &customer, StartsOn: now}).Error)
	require.NoError(t, db.Create(&model.Appointment{CarWashID: cw.ID, CustomerID: &customer, StartsOn: now, IsDeleted: true}).Error)

	stats, err := repo.CustomerStats(ctx, customer, cw.ID, now)
	require.NoError(t, err)

	all := stats.Period(discount.PeriodAllTime)
	assert.Equal(t, 3, all.TotalAppointments)
	assert.Equal(t, 2, all.PaidAppointments)
	assert.True(t, all.SpentTotal.Equal(dec(3000)), all.SpentTotal.String())
	assert.True(t, all.AvgTicket.Equal(dec(1500)), all.AvgTicket.String())
	assert.Equal(t, 2, all.UniqueCars)
	require.NotNil(t, all.LastVisitOn)
	assert.True(t, all.LastVisitOn.Equal(time.Date(2026, 10, 5, 10, 0, 0, 0, time.UTC)))
	require.NotEmpty(t, all.TopServices)
	assert.Equal(t, wash, all.TopServices[0].ServiceID)
	assert.Equal(t, 3, all.TopServices[0].Count)

	year := stats.Period(discount.PeriodYear)
	assert.Equal(t, 2, year.TotalAppointments)
	assert.Equal(t, 1, year.PaidAppointments)

	month := stats.Period(discount.PeriodMonth)
	assert.Equal(t, 1, month.TotalAppointments)
	assert.Zero(t, month.PaidAppointments)
	assert.True(t, month.SpentTotal.IsZero())
}

func TestStatsRepository_NoHistory(t *testing.T) {
	db := newTestDB(t)
	repo := NewStatsRepository(db)

	stats, err := repo.CustomerStats(context.Background(), uuid.New(), uuid.New(), time.Now())
	require.NoError(t, err)
	for _, p := range []string{discount.PeriodMonth, discount.PeriodYear, discount.PeriodAllTime} {
		assert.Zero(t, stats.Period(p).TotalAppointments)
		assert.Nil(t, stats.Period(p).LastVisitOn)
	}
}
