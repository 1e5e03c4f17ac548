package service

import (
	"context"
	"testing"

	"carwash/internal/model"
	"carwash/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) welcomePromo(t *testing.T, limit int) *model.PromoCode {
	t.Helper()
	p := &model.PromoCode{
		CarWashID:     f.cw.ID,
		Code:          "WELCOME",
		IsActive:      true,
		PromoType:     model.PromoServiceDiscount,
		DiscountType:  model.DiscountPercentage,
		DiscountValue: dec(10),
		UsageLimit:    limit,
	}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *fixture) bookingRequest(code string) CreateBookingRequest {
	return CreateBookingRequest{
		CarWashID:  f.cw.ID,
		CustomerID: &f.customerID,
		CarID:      f.car.ID,
		Services:   services(f.wash.ID),
		PromoCode:  code,
	}
}

func TestBookingCreateWithPromo(t *testing.T) {
	f := newFixture(t)
	promo := f.welcomePromo(t, 1)
	ctx := context.Background()
	customer := Actor{UserID: &f.customerID}

	b, err := f.bookings.Create(ctx, f.bookingRequest("welcome"), customer)
	require.NoError(t, err)

	assert.Equal(t, 1, b.Num)
	assert.Equal(t, model.StateInLine, b.Status)
	assert.True(t, b.BaseServicesTotal.Equal(dec(1000)))
	assert.True(t, b.BaseCommission.Equal(dec(50)))
	assert.True(t, b.ServicesTotal.Equal(dec(1000)))
	assert.True(t, b.Commission.Equal(dec(50)))
	assert.Equal(t, "WELCOME", b.PromoCode)
	assert.True(t, b.PromoDiscount.Equal(dec(100)))
	require.Len(t, b.Items, 1)

	var stored model.PromoCode
	require.NoError(t, f.db.First(&stored, "id = ?", promo.ID).Error)
	assert.Equal(t, 1, stored.UsedCount)
	var usages int64
	require.NoError(t, f.db.Model(&model.PromoCodeUsage{}).Where("context_id = ?", b.ID).Count(&usages).Error)
	assert.Equal(t, int64(1), usages)

	ev, ok := f.notifier.last(EventQueueChanged)
	require.True(t, ok)
	assert.Equal(t, QueueSummary{Queued: 1}, ev.data)

	_, err = f.bookings.Create(ctx, f.bookingRequest("WELCOME"), customer)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "usage limit")
}

func TestBookingServiceEditRepricesPromo(t *testing.T) {
	f := newFixture(t)
	promo := &model.PromoCode{
		CarWashID:          f.cw.ID,
		Code:               "WELCOME",
		IsActive:           true,
		PromoType:          model.PromoServiceDiscount,
		DiscountType:       model.DiscountPercentage,
		DiscountValue:      dec(10),
		UsageLimit:         1,
		ApplicableServices: []uuid.UUID{f.wax.ID},
	}
	require.NoError(t, f.db.Create(promo).Error)
	ctx := context.Background()
	customer := Actor{UserID: &f.customerID}

	req := f.bookingRequest("WELCOME")
	req.Services = services(f.wash.ID, f.wax.ID)
	b, err := f.bookings.Create(ctx, req, customer)
	require.NoError(t, err)
	require.True(t, b.PromoDiscount.Equal(dec(150)), b.PromoDiscount.String())

	promoUsage := func() model.PromoCodeUsage {
		var u model.PromoCodeUsage
		require.NoError(t, f.db.First(&u, "context_id = ?", b.ID).Error)
		return u
	}

	washOnly := services(f.wash.ID)
	b, err = f.bookings.Update(ctx, b.ID, UpdateBookingRequest{Services: &washOnly}, customer)
	require.NoError(t, err)
	assert.True(t, b.PromoDiscount.IsZero(), b.PromoDiscount.String())
	assert.Equal(t, "WELCOME", b.PromoCode)
	assert.True(t, promoUsage().ServiceDiscount.IsZero())

	waxOnly := services(f.wax.ID)
	b, err = f.bookings.Update(ctx, b.ID, UpdateBookingRequest{Services: &waxOnly}, customer)
	require.NoError(t, err)
	assert.True(t, b.PromoDiscount.Equal(dec(50)), b.PromoDiscount.String())
	u := promoUsage()
	assert.True(t, u.ServiceDiscount.Equal(dec(50)))
	assert.True(t, u.ServicesTotalBefore.Equal(dec(500)))

	var stored model.PromoCode
	require.NoError(t, f.db.First(&stored, "id = ?", promo.ID).Error)
	assert.Equal(t, 1, stored.UsedCount)
}

func TestBookingAdminSkipsQueueCommission(t *testing.T) {
	f := newFixture(t)
	admin := Actor{UserID: &f.cashierUser, IsAdmin: true}

	b, err := f.bookings.Create(context.Background(), f.bookingRequest(""), admin)
	require.NoError(t, err)
	assert.True(t, b.BaseCommission.IsZero())
	assert.True(t, b.CreatedByAdmin)
}

func TestBookingCreateWithAutoDiscountRecordsUsage(t *testing.T) {
	f := newFixture(t)
	f.firstVisitDiscount(t, 20)
	ctx := context.Background()

	b, err := f.bookings.Create(ctx, f.bookingRequest(""), Actor{UserID: &f.customerID})
	require.NoError(t, err)
	assert.True(t, b.ServicesTotal.Equal(dec(800)))
	assert.True(t, b.AutoDiscountTotal.Equal(dec(200)))

	rows, err := f.usage.List(ctx, UsageContext{Type: model.ContextBooking, ID: b.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	more := services(f.wash.ID, f.wax.ID)
	updated, err := f.bookings.Update(ctx, b.ID, UpdateBookingRequest{Services: &more}, Actor{UserID: &f.customerID})
	require.NoError(t, err)
	assert.True(t, updated.BaseServicesTotal.Equal(dec(1500)))
	assert.True(t, updated.ServicesTotal.Equal(dec(1200)), updated.ServicesTotal.String())
	assert.Equal(t, 45, updated.DurationTotal)
}

func TestBookingCancelReleasesQueueAndUsage(t *testing.T) {
	f := newFixture(t)
	f.firstVisitDiscount(t, 10)
	ctx := context.Background()
	actor := Actor{UserID: &f.customerID}

	b, err := f.bookings.Create(ctx, f.bookingRequest(""), actor)
	require.NoError(t, err)

	cancelled, err := f.bookings.Cancel(ctx, b.ID, actor)
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled)
	assert.Equal(t, model.StateCancelled, cancelled.Status)

	rows, err := f.usage.List(ctx, UsageContext{Type: model.ContextBooking, ID: b.ID})
	require.NoError(t, err)
	assert.Empty(t, rows)

	ev, ok := f.notifier.last(EventQueueChanged)
	require.True(t, ok)
	assert.Equal(t, QueueSummary{Queued: 0}, ev.data)

	_, err = f.bookings.Update(ctx, b.ID, UpdateBookingRequest{}, actor)
	assert.True(t, apperror.IsValidation(err))
}
