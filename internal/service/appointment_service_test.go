package service

import (
	"context"
	"testing"
	"time"

	"carwash/internal/model"
	"carwash/internal/pricing"
	"carwash/internal/webhook"
	"carwash/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func services(ids ...uuid.UUID) []pricing.ServiceRequest {
	out := make([]pricing.ServiceRequest, 0, len(ids))
	for _, id := range ids {
		out = append(out, pricing.ServiceRequest{ServiceID: id})
	}
	return out
}

func (f *fixture) createAppointment(t *testing.T, ids ...uuid.UUID) *model.Appointment {
	t.Helper()
	start := testNow.Add(time.Hour)
	a, err := f.appointments.Create(context.Background(), CreateAppointmentRequest{
		CarWashID:  f.cw.ID,
		CustomerID: &f.customerID,
		CarID:      f.car.ID,
		WorkerID:   &f.washer.ID,
		StartsOn:   &start,
		Services:   services(ids...),
	}, f.cashierActor())
	require.NoError(t, err)
	return a
}

func TestAppointmentCreate(t *testing.T) {
	f := newFixture(t)
	f.firstVisitDiscount(t, 10)
	ctx := context.Background()

	a := f.createAppointment(t, f.wash.ID, f.wax.ID)

	assert.Equal(t, 1, a.Num)
	assert.Equal(t, model.PaymentNotPaid, a.PaymentStatus)
	assert.Equal(t, 45, a.DurationTotal)
	assert.Equal(t, testNow.Add(time.Hour+45*time.Minute), a.EndsOn)
	assert.True(t, a.BaseServicesTotal.Equal(dec(1500)), a.BaseServicesTotal.String())
	assert.True(t, a.ServicesTotal.Equal(dec(1350)), a.ServicesTotal.String())
	assert.True(t, a.AutoDiscountTotal.Equal(dec(150)))
	assert.True(t, a.Commission.IsZero())

	usages, err := f.usage.List(ctx, usageContext(a))
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.True(t, usages[0].ServiceDiscount.Equal(dec(150)))

	assert.Equal(t, 4, f.stockOf(t, f.foam.ID))

	_, ok := f.notifier.last(EventAppointmentChanged)
	assert.True(t, ok)
	require.Len(t, f.pusher.events, 1)
	ev := f.pusher.events[0].(webhook.AppointmentEvent)
	assert.Equal(t, webhook.EventAppointmentCreated, ev.Event)
	assert.Equal(t, a.ID, ev.ID)

	second := f.createAppointment(t, f.wax.ID)
	assert.Equal(t, 2, second.Num)
}

func TestAppointmentCreateRejectsForeignWorker(t *testing.T) {
	f := newFixture(t)
	other := &model.Worker{CarWashID: uuid.New(), FullName: "Elsewhere", IsActive: true}
	require.NoError(t, f.db.Create(other).Error)

	_, err := f.appointments.Create(context.Background(), CreateAppointmentRequest{
		CarWashID: f.cw.ID,
		CarID:     f.car.ID,
		WorkerID:  &other.ID,
		Services:  services(f.wax.ID),
	}, f.cashierActor())
	assert.True(t, apperror.IsValidation(err), "%v", err)
}

func TestAppointmentUpdateRefreshesDiscountsAndStock(t *testing.T) {
	f := newFixture(t)
	f.firstVisitDiscount(t, 10)
	ctx := context.Background()
	a := f.createAppointment(t, f.wash.ID, f.wax.ID)

	more := services(f.wash.ID, f.wash.ID)
	got, err := f.appointments.Update(ctx, a.ID, UpdateAppointmentRequest{Services: &more}, f.cashierActor())
	require.NoError(t, err)

	assert.True(t, got.BaseServicesTotal.Equal(dec(2000)))
	assert.True(t, got.ServicesTotal.Equal(dec(1800)), got.ServicesTotal.String())
	assert.Equal(t, 60, got.DurationTotal)
	assert.Equal(t, got.StartsOn.Add(time.Hour), got.EndsOn)
	assert.Equal(t, 3, f.stockOf(t, f.foam.ID))

	usages, err := f.usage.List(ctx, usageContext(a))
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.True(t, usages[0].ServiceDiscount.Equal(dec(200)))

	fewer := services(f.wax.ID)
	got, err = f.appointments.Update(ctx, a.ID, UpdateAppointmentRequest{Services: &fewer}, f.cashierActor())
	require.NoError(t, err)
	assert.True(t, got.ServicesTotal.Equal(dec(450)))
	assert.Equal(t, 5, f.stockOf(t, f.foam.ID))
}

func TestToggleDiscountsRetotalsAppointment(t *testing.T) {
	f := newFixture(t)
	d := f.firstVisitDiscount(t, 10)
	ctx := context.Background()
	a := f.createAppointment(t, f.wash.ID, f.wax.ID)

	rows, err := f.appointments.ToggleDiscounts(ctx, ToggleDiscountsRequest{
		UsageContext: usageContext(a),
		DiscountIDs:  []uuid.UUID{d.ID},
	}, f.cashierActor())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsDisabled)

	got, err := f.appointments.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.ServicesTotal.Equal(dec(1500)))
	assert.True(t, got.AutoDiscountTotal.IsZero())
}

func TestAppointmentStockShortageBlocksSave(t *testing.T) {
	f := newFixture(t)
	ids := []uuid.UUID{f.wash.ID, f.wash.ID, f.wash.ID, f.wash.ID, f.wash.ID, f.wash.ID}

	_, err := f.appointments.Create(context.Background(), CreateAppointmentRequest{
		CarWashID: f.cw.ID,
		CarID:     f.car.ID,
		Services:  services(ids...),
	}, f.cashierActor())
	require.Error(t, err)
	assert.True(t, apperror.IsCapacityExceeded(err), "%v", err)

	var count int64
	require.NoError(t, f.db.Model(&model.Appointment{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, 5, f.stockOf(t, f.foam.ID))
	assert.Empty(t, f.pusher.events)
}

func TestAppointmentLifecycleEarnings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := f.cashierActor()
	a := f.createAppointment(t, f.wash.ID, f.wax.ID)

	got, err := f.appointments.SetStatus(ctx, a.ID, model.StateInProgress, actor)
	require.NoError(t, err)
	require.NotNil(t, got.WorkStartedOn)

	got, err = f.appointments.SetStatus(ctx, a.ID, model.StateFinished, actor)
	require.NoError(t, err)
	require.NotNil(t, got.WorkEndedOn)
	assert.Empty(t, f.earnings(t, a.ID), "unpaid work earns nothing")

	_, err = f.appointments.MarkPaid(ctx, a.ID, MarkPaidRequest{PaymentType: "Cash"}, actor)
	require.NoError(t, err)
	earned := f.earnings(t, a.ID)
	require.Len(t, earned, 2)
	assert.True(t, earned[f.washer.ID].Equal(dec(450)), earned[f.washer.ID].String())
	assert.True(t, earned[f.cashier.ID].Equal(dec(150)))

	bal, err := f.ledger.Balance(ctx, f.washer.ID)
	require.NoError(t, err)
	assert.True(t, bal.Balance.Equal(dec(450)))

	_, err = f.appointments.MarkPaid(ctx, a.ID, MarkPaidRequest{PaymentType: "Cash"}, actor)
	assert.True(t, apperror.IsValidation(err))

	fewer := services(f.wash.ID)
	_, err = f.appointments.Update(ctx, a.ID, UpdateAppointmentRequest{Services: &fewer}, actor)
	require.NoError(t, err)
	earned = f.earnings(t, a.ID)
	require.Len(t, earned, 2)
	assert.True(t, earned[f.washer.ID].Equal(dec(300)))
	assert.True(t, earned[f.cashier.ID].Equal(dec(100)))

	require.NoError(t, f.appointments.SoftDelete(ctx, a.ID, actor))
	assert.Empty(t, f.earnings(t, a.ID))
	assert.Equal(t, 5, f.stockOf(t, f.foam.ID))
	bal, err = f.ledger.Balance(ctx, f.washer.ID)
	require.NoError(t, err)
	assert.True(t, bal.Balance.IsZero())

	last := f.pusher.events[len(f.pusher.events)-1].(webhook.AppointmentEvent)
	assert.Equal(t, webhook.EventAppointmentDeleted, last.Event)

	_, err = f.appointments.SetStatus(ctx, a.ID, model.StateInLine, actor)
	assert.True(t, apperror.IsNotFound(err))
}

func TestAppointmentCancelReleasesStockAndDiscounts(t *testing.T) {
	f := newFixture(t)
	f.firstVisitDiscount(t, 10)
	ctx := context.Background()
	a := f.createAppointment(t, f.wash.ID)

	got, err := f.appointments.Cancel(ctx, a.ID, f.cashierActor())
	require.NoError(t, err)
	assert.Equal(t, model.StateCancelled, got.WorkflowState)
	assert.True(t, got.ServicesTotal.Equal(dec(1000)))
	assert.Equal(t, 5, f.stockOf(t, f.foam.ID))

	usages, err := f.usage.List(ctx, usageContext(a))
	require.NoError(t, err)
	assert.Empty(t, usages)

	_, err = f.appointments.SetStatus(ctx, a.ID, model.StateInProgress, f.cashierActor())
	assert.True(t, apperror.IsValidation(err))

	more := services(f.wash.ID, f.wax.ID)
	_, err = f.appointments.Update(ctx, a.ID, UpdateAppointmentRequest{Services: &more}, f.cashierActor())
	assert.True(t, apperror.IsValidation(err))
	got, err = f.appointments.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, 5, f.stockOf(t, f.foam.ID))
}

func TestAppointmentFromBookingLinksAndPropagatesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := Actor{UserID: &f.customerID}

	b, err := f.bookings.Create(ctx, CreateBookingRequest{
		CarWashID:  f.cw.ID,
		CustomerID: &f.customerID,
		CarID:      f.car.ID,
		Services:   services(f.wax.ID),
	}, customer)
	require.NoError(t, err)

	a, err := f.appointments.Create(ctx, CreateAppointmentRequest{
		CarWashID: f.cw.ID,
		CarID:     f.car.ID,
		BookingID: &b.ID,
		Services:  services(f.wax.ID),
	}, f.cashierActor())
	require.NoError(t, err)
	assert.Equal(t, &f.customerID, a.CustomerID)
	assert.True(t, a.Commission.Equal(dec(50)), "queue commission follows the booking")

	linked, err := f.bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, linked.HasAppointment)
	require.NotNil(t, linked.AppointmentID)
	assert.Equal(t, a.ID, *linked.AppointmentID)

	_, err = f.appointments.SetStatus(ctx, a.ID, model.StateFinished, f.cashierActor())
	require.NoError(t, err)
	linked, err = f.bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateFinished, linked.Status)
}

func TestEarning(t *testing.T) {
	total := dec(1350)
	tests := []struct {
		name   string
		mode   string
		value  int
		worker *model.Worker
		want   int64
	}{
		{"default percent", model.EarningPercent, 30, nil, 405},
		{"fixed setting", model.EarningFixed, 200, nil, 200},
		{"percent override", model.EarningPercent, 30, &model.Worker{EarningOverrideMode: model.EarningPercent, EarningOverrideValue: dec(50)}, 675},
		{"fixed override", model.EarningPercent, 30, &model.Worker{EarningOverrideMode: model.EarningFixed, EarningOverrideValue: dec(250)}, 250},
		{"no override", model.EarningPercent, 10, &model.Worker{EarningOverrideMode: model.EarningDefault}, 135},
		{"rounded", model.EarningPercent, 33, nil, 446},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := earning(total, tt.mode, tt.value, tt.worker)
			assert.True(t, got.Equal(dec(tt.want)), got.String())
		})
	}
}

func TestAppointmentFromBookingKeepsBookingDiscount(t *testing.T) {
	f := newFixture(t)
	d := f.firstVisitDiscount(t, 10)
	require.NoError(t, f.db.Model(d).Update("usage_limit_per_customer", 1).Error)
	ctx := context.Background()

	b, err := f.bookings.Create(ctx, CreateBookingRequest{
		CarWashID:  f.cw.ID,
		CustomerID: &f.customerID,
		CarID:      f.car.ID,
		Services:   services(f.wash.ID),
	}, Actor{UserID: &f.customerID})
	require.NoError(t, err)
	require.True(t, b.ServicesTotal.Equal(dec(900)), b.ServicesTotal.String())

	a, err := f.appointments.Create(ctx, CreateAppointmentRequest{
		CarWashID: f.cw.ID,
		CarID:     f.car.ID,
		BookingID: &b.ID,
		Services:  services(f.wash.ID),
	}, f.cashierActor())
	require.NoError(t, err)
	assert.True(t, a.ServicesTotal.Equal(dec(900)), a.ServicesTotal.String())
	assert.True(t, a.AutoDiscountTotal.Equal(dec(100)), a.AutoDiscountTotal.String())

	moved, err := f.usage.List(ctx, usageContext(a))
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, d.ID, moved[0].DiscountID)
	left, err := f.usage.List(ctx, UsageContext{Type: model.ContextBooking, ID: b.ID})
	require.NoError(t, err)
	assert.Empty(t, left)

	more := services(f.wash.ID, f.wax.ID)
	got, err := f.appointments.Update(ctx, a.ID, UpdateAppointmentRequest{Services: &more}, f.cashierActor())
	require.NoError(t, err)
	assert.True(t, got.ServicesTotal.Equal(dec(1350)), got.ServicesTotal.String())
}
