package repository

import (
	"context"
	"testing"

	"carwash/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscountRepository_ActiveDiscountsWithRules(t *testing.T) {
	db := newTestDB(t)
	repo := NewDiscountRepository(db)
	ctx := context.Background()
	cw := seedCarWash(t, db)

	d := &model.AutoDiscount{
		CarWashID: cw.ID, Title: "Every 5th", DiscountType: model.DiscountPercentage, DiscountValue: dec(100),
		Rules: []model.AutoDiscountRule{{Idx: 1, RuleType: "Nth Order", NthStep: 5}},
	}
	require.NoError(t, repo.CreateDiscount(ctx, d))
	off := &model.AutoDiscount{CarWashID: cw.ID, Title: "Off", DiscountValue: dec(5)}
	require.NoError(t, repo.CreateDiscount(ctx, off))
	require.NoError(t, db.Model(off).Update("is_active", false).Error)

	rows, err := repo.ActiveDiscounts(ctx, cw.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, d.ID, rows[0].ID)
	require.Len(t, rows[0].Rules, 1)
	assert.Equal(t, 5, rows[0].Rules[0].NthStep)

	byID, err := repo.DiscountsByID(ctx, []uuid.UUID{d.ID, off.ID})
	require.NoError(t, err)
	assert.Len(t, byID, 2)
}

func TestDiscountRepository_Usages(t *testing.T) {
	db := newTestDB(t)
	repo := NewDiscountRepository(db)
	ctx := context.Background()
	cw := seedCarWash(t, db)
	customer := uuid.New()
	ctxID := uuid.New()
	d1, d2 := uuid.New(), uuid.New()

	rows := []model.AutoDiscountUsage{
		{CarWashID: cw.ID, CustomerID: &customer, ContextType: model.ContextAppointment, ContextID: ctxID, DiscountID: d1, ServiceDiscount: dec(100)},
		{CarWashID: cw.ID, CustomerID: &customer, ContextType: model.ContextAppointment, ContextID: ctxID, DiscountID: d2, ServiceDiscount: dec(50)},
	}
	require.NoError(t, repo.CreateUsages(ctx, rows))
	require.NoError(t, repo.CreateUsages(ctx, []model.AutoDiscountUsage{
		{CarWashID: cw.ID, CustomerID: &customer, ContextType: model.ContextBooking, ContextID: uuid.New(), DiscountID: d1, IsDisabled: false},
	}))

	got, err := repo.UsagesForContext(ctx, model.ContextAppointment, ctxID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, d1, got[0].DiscountID, "creation order")
	assert.Equal(t, d2, got[1].DiscountID)

	got[1].IsDisabled = true
	require.NoError(t, repo.SaveUsage(ctx, &got[1]))

	counts, err := repo.CustomerUsageCounts(ctx, customer, []uuid.UUID{d1, d2})
	require.NoError(t, err)
	assert.Equal(t, 2, counts[d1])
	assert.Equal(t, 0, counts[d2], "disabled usage does not count")

	require.NoError(t, repo.DeleteForContext(ctx, model.ContextAppointment, ctxID))
	got, err = repo.UsagesForContext(ctx, model.ContextAppointment, ctxID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPromoRepository_IncrementUsedRespectsLimit(t *testing.T) {
	db := newTestDB(t)
	repo := NewPromoRepository(db)
	ctx := context.Background()
	cw := seedCarWash(t, db)

	p := &model.PromoCode{CarWashID: cw.ID, Code: "SPRING", PromoType: model.PromoServiceDiscount, UsageLimit: 2}
	require.NoError(t, repo.Create(ctx, p))

	found, err := repo.FindByCode(ctx, cw.ID, " spring ")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	for i := 0; i < 2; i++ {
		ok, err := repo.IncrementUsed(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := repo.IncrementUsed(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err = repo.FindByCode(ctx, cw.ID, "SPRING")
	require.NoError(t, err)
	assert.Equal(t, 2, found.UsedCount)
}
