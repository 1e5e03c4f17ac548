package service

import (
	"context"
	"testing"

	"carwash/internal/model"
	"carwash/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) stackingDiscount(t *testing.T, title string, percent int64, priority int) {
	t.Helper()
	require.NoError(t, f.catalog.CreateDiscount(context.Background(), &model.AutoDiscount{
		CarWashID:                        f.cw.ID,
		Title:                            title,
		IsActive:                         true,
		DiscountType:                     model.DiscountPercentage,
		DiscountValue:                    dec(percent),
		RulesLogic:                       "ALL (AND)",
		Priority:                         priority,
		CanCombineWithOtherAutoDiscounts: true,
		Rules:                            []model.AutoDiscountRule{{RuleType: "First Time Customer"}},
	}, Actor{}))
}

func TestQuoteStacksCombinableDiscountsByDefault(t *testing.T) {
	f := newFixture(t)
	f.stackingDiscount(t, "Welcome", 10, 2)
	f.stackingDiscount(t, "Opening week", 15, 1)
	ctx := context.Background()
	req := QuoteRequest{
		CarWashID:  f.cw.ID,
		CarID:      f.car.ID,
		CustomerID: &f.customerID,
		Services:   []pricing.ServiceRequest{{ServiceID: f.wash.ID}},
		At:         testNow,
	}

	q, err := f.quotes.Quote(ctx, req, Actor{})
	require.NoError(t, err)
	assert.Len(t, q.AutoDiscounts.Applied, 2)
	assert.True(t, q.AutoDiscounts.ServiceDiscount.Equal(dec(250)), q.AutoDiscounts.ServiceDiscount.String())
	assert.True(t, q.FinalServicesTotal.Equal(dec(750)))

	off := false
	req.AllowCombinations = &off
	q, err = f.quotes.Quote(ctx, req, Actor{})
	require.NoError(t, err)
	require.Len(t, q.AutoDiscounts.Applied, 1)
	assert.Equal(t, "Opening week", q.AutoDiscounts.Applied[0].Name)
	assert.True(t, q.AutoDiscounts.ServiceDiscount.Equal(dec(150)), q.AutoDiscounts.ServiceDiscount.String())
	assert.True(t, q.FinalServicesTotal.Equal(dec(850)))
}
