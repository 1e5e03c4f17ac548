package discount

import (
	"testing"
	"time"

	"carwash/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var evalAt = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func assertDec(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %d, got %s", want, got)
}

func percent(v int64, rules ...Rule) Discount {
	return Discount{ID: uuid.New(), Name: "pct", DiscountType: model.DiscountPercentage, Value: d(v), Rules: rules}
}

func fixed(v int64, rules ...Rule) Discount {
	return Discount{ID: uuid.New(), Name: "fixed", DiscountType: model.DiscountFixed, Value: d(v), Rules: rules}
}

var always = FirstTimeCustomerRule{}

func order(total int64, services ...uuid.UUID) Order {
	return Order{Services: services, ServicesTotal: d(total), At: evalAt}
}

func TestApplicable_NthOrderFreeWash(t *testing.T) {
	e := NewEngine(nil)
	stats := allTime(PeriodStats{TotalAppointments: 4})
	free := percent(100, NthOrderRule{Step: 5})

	got := e.Applicable([]Discount{free}, stats, order(1000), nil)
	require.Len(t, got, 1)
	assertDec(t, 1000, got[0].ServiceDiscount)

	flat := fixed(300, NthOrderRule{Step: 5})
	got = e.Applicable([]Discount{flat}, stats, order(1000), nil)
	require.Len(t, got, 1)
	assertDec(t, 300, got[0].ServiceDiscount)

	got = e.Applicable([]Discount{free}, allTime(PeriodStats{TotalAppointments: 5}), order(1000), nil)
	assert.Empty(t, got)
}

func TestApplicable_Skips(t *testing.T) {
	e := NewEngine(nil)
	svcA, svcB := uuid.New(), uuid.New()
	yesterday := evalAt.AddDate(0, 0, -1)
	tomorrow := evalAt.AddDate(0, 0, 1)

	expired := percent(10, always)
	expired.ValidTo = &yesterday
	future := percent(10, always)
	future.ValidFrom = &tomorrow
	minOrder := percent(10, always)
	minOrder.MinimumOrderAmount = d(5000)
	noRules := percent(10)
	failing := percent(10, NthOrderRule{Step: 0})
	wrongService := percent(10, always)
	wrongService.ApplicableServices = []uuid.UUID{svcB}
	limited := percent(10, always)
	limited.UsageLimit = 2

	got := e.Applicable(
		[]Discount{expired, future, minOrder, noRules, failing, wrongService, limited},
		EmptyStats(), order(1000, svcA), map[uuid.UUID]int{limited.ID: 2},
	)
	assert.Empty(t, got)

	limitedOK := limited
	got = e.Applicable([]Discount{limitedOK}, EmptyStats(), order(1000, svcA), map[uuid.UUID]int{limited.ID: 1})
	assert.Len(t, got, 1)
}

func TestApplicable_ValidityIsInclusiveOfWholeDays(t *testing.T) {
	e := NewEngine(nil)
	morning := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	dd := percent(10, always)
	dd.ValidFrom = &morning
	dd.ValidTo = &morning
	assert.Len(t, e.Applicable([]Discount{dd}, EmptyStats(), order(100), nil), 1)
}

func TestApplicable_LogicAndPriority(t *testing.T) {
	e := NewEngine(nil)
	stats := allTime(PeriodStats{TotalAppointments: 4, PaidAppointments: 3})

	and := percent(10, NthOrderRule{Step: 5}, FirstTimeCustomerRule{})
	and.RulesLogic = "ALL (AND)"
	or := percent(20, NthOrderRule{Step: 5}, FirstTimeCustomerRule{})
	or.RulesLogic = "ANY (OR)"
	or.Priority = 1
	late := percent(5, always)
	late.Priority = 9
	late.Rules = []Rule{NthOrderRule{Step: 1}}

	got := e.Applicable([]Discount{late, and, or}, stats, order(1000), nil)
	require.Len(t, got, 2)
	assert.Equal(t, or.ID, got[0].DiscountID)
	assert.Equal(t, late.ID, got[1].DiscountID)
}

func TestApplicable_EmptyStatsDegrade(t *testing.T) {
	e := NewEngine(func() time.Time { return evalAt })
	got := e.Applicable([]Discount{percent(10, always)}, CustomerStats{}, Order{ServicesTotal: d(100)}, nil)
	assert.Len(t, got, 1)
}

func applied(sd int64, priority int, combine, waive bool) Applied {
	return Applied{DiscountID: uuid.New(), ServiceDiscount: d(sd), Priority: priority, CombineWithOthers: combine, WaiveCommission: waive, CombineWithPromo: true}
}

func TestCombine_Single(t *testing.T) {
	o := Combine([]Applied{applied(200, 0, true, true), applied(300, 1, true, false)}, d(1000), d(100), false)
	require.Len(t, o.Applied, 1)
	assertDec(t, 200, o.ServiceDiscount)
	assertDec(t, 100, o.CommissionWaived)
	assertDec(t, 800, o.FinalServicesTotal)
	assertDec(t, 0, o.FinalCommission)

	o = Combine(nil, d(1000), d(100), true)
	assert.Empty(t, o.Applied)
	assertDec(t, 1000, o.FinalServicesTotal)
	assertDec(t, 100, o.FinalCommission)
}

func TestCombine_CombinationWinsAndWaivesOnce(t *testing.T) {
	o := Combine([]Applied{
		applied(200, 0, true, false),
		applied(300, 1, true, true),
		applied(100, 2, true, true),
	}, d(1000), d(100), true)
	require.Len(t, o.Applied, 3)
	assertDec(t, 600, o.ServiceDiscount)
	assertDec(t, 100, o.CommissionWaived)
	assertDec(t, 700, o.TotalDiscount)
	assertDec(t, 400, o.FinalServicesTotal)
}

func TestCombine_CapsAtTotal(t *testing.T) {
	o := Combine([]Applied{applied(700, 0, true, false), applied(700, 1, true, false)}, d(1000), d(0), true)
	assertDec(t, 1000, o.ServiceDiscount)
	assertDec(t, 0, o.FinalServicesTotal)
}

func TestCombine_SingleBeatsSmallCombination(t *testing.T) {
	o := Combine([]Applied{
		applied(800, 0, false, false),
		applied(100, 1, true, false),
		applied(100, 2, true, false),
	}, d(1000), d(0), true)
	require.Len(t, o.Applied, 1)
	assertDec(t, 800, o.ServiceDiscount)
}

func TestCombine_MoreCombinableDiscountsNeverRaisePrice(t *testing.T) {
	total, commission := d(1000), d(150)
	pool := []Applied{
		applied(50, 0, true, false),
		applied(120, 1, true, true),
		applied(0, 2, true, false),
		applied(400, 3, true, false),
		applied(900, 4, true, true),
	}
	prev := total.Add(commission)
	for n := 1; n <= len(pool); n++ {
		o := Combine(pool[:n], total, commission, true)
		price := o.FinalServicesTotal.Add(o.FinalCommission)
		assert.True(t, price.LessThanOrEqual(prev), "n=%d price %s prev %s", n, price, prev)
		assert.False(t, o.FinalServicesTotal.IsNegative())
		prev = price
	}
}

func TestCompatibleWithPromo(t *testing.T) {
	ok := applied(10, 0, true, false)
	no := applied(10, 1, true, false)
	no.CombineWithPromo = false

	assert.True(t, CompatibleWithPromo(Outcome{Applied: []Applied{ok, no}}, false))
	assert.True(t, CompatibleWithPromo(Outcome{Applied: []Applied{ok}}, true))
	assert.False(t, CompatibleWithPromo(Outcome{Applied: []Applied{ok, no}}, true))
	assert.True(t, CompatibleWithPromo(Outcome{}, true))
}

func TestFromModel(t *testing.T) {
	m := model.AutoDiscount{
		Title:         "Every fifth",
		DiscountType:  model.DiscountPercentage,
		DiscountValue: d(100),
		RulesLogic:    "ALL (AND)",
		Rules: []model.AutoDiscountRule{
			{Idx: 2, RuleType: RuleFirstTimeCustomer},
			{Idx: 1, RuleType: RuleNthOrder, NthStep: 5},
		},
	}
	got := FromModel(m)
	require.Len(t, got.Rules, 2)
	assert.Equal(t, RuleNthOrder, got.Rules[0].Type())
	assert.Equal(t, RuleNthOrder, got.Snapshot.Rules[0].RuleType)
	assert.Equal(t, "Every fifth", got.Name)
}

func TestAmount(t *testing.T) {
	assertDec(t, 200, percent(20).Amount(d(1000)))
	assertDec(t, 300, fixed(300).Amount(d(1000)))
	assertDec(t, 100, fixed(300).Amount(d(100)))
	assertDec(t, 0, fixed(300).Amount(d(0)))
}
