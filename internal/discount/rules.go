package discount

import (
	"strings"
	"time"

	"carwash/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stored rule type names
const (
	RuleNthOrder          = "Nth Order"
	RuleTotalOrders       = "Total Orders Count"
	RulePaidOrders        = "Paid Orders Count"
	RuleTotalSpent        = "Total Spent Amount"
	RuleUniqueCars        = "Unique Cars Count"
	RuleAverageTicket     = "Average Ticket Amount"
	RuleFirstTimeCustomer = "First Time Customer"
	RuleLastVisitDaysAgo  = "Last Visit Days Ago"
	RuleServiceUsage      = "Service Usage Count"
)

type Operator string

const (
	OpGTE Operator = ">="
	OpGT  Operator = ">"
	OpEQ  Operator = "="
	OpLT  Operator = "<"
	OpLTE Operator = "<="
)

// Compare applies the operator; unknown operators never match.
func (o Operator) Compare(actual, target decimal.Decimal) bool {
	switch o {
	case OpGTE:
		return actual.GreaterThanOrEqual(target)
	case OpGT:
		return actual.GreaterThan(target)
	case OpEQ:
		return actual.Equal(target)
	case OpLT:
		return actual.LessThan(target)
	case OpLTE:
		return actual.LessThanOrEqual(target)
	}
	return false
}

// EvalContext carries what rules need beyond customer statistics.
type EvalContext struct {
	Now            time.Time
	TargetServices []uuid.UUID
}

// Rule is one condition of an auto discount.
type Rule interface {
	Type() string
	Met(stats CustomerStats, ec EvalContext) bool
}

// NthOrderRule matches every Step-th order, shifted by Offset.
type NthOrderRule struct {
	Step   int
	Offset int
}

func (NthOrderRule) Type() string { return RuleNthOrder }

func (r NthOrderRule) Met(stats CustomerStats, _ EvalContext) bool {
	if r.Step <= 0 {
		return false
	}
	next := stats.Period(PeriodAllTime).TotalAppointments + 1
	return (next-r.Offset)%r.Step == 0
}

type Metric string

const (
	MetricTotalOrders   Metric = RuleTotalOrders
	MetricPaidOrders    Metric = RulePaidOrders
	MetricTotalSpent    Metric = RuleTotalSpent
	MetricUniqueCars    Metric = RuleUniqueCars
	MetricAverageTicket Metric = RuleAverageTicket
)

// ThresholdRule compares one period statistic against Value.
type ThresholdRule struct {
	Metric   Metric
	Operator Operator
	Value    decimal.Decimal
	Period   string
}

func (r ThresholdRule) Type() string { return string(r.Metric) }

func (r ThresholdRule) Met(stats CustomerStats, _ EvalContext) bool {
	p := stats.Period(r.Period)
	var actual decimal.Decimal
	switch r.Metric {
	case MetricTotalOrders:
		actual = decimal.NewFromInt(int64(p.TotalAppointments))
	case MetricPaidOrders:
		actual = decimal.NewFromInt(int64(p.PaidAppointments))
	case MetricTotalSpent:
		actual = p.SpentTotal
	case MetricUniqueCars:
		actual = decimal.NewFromInt(int64(p.UniqueCars))
	case MetricAverageTicket:
		actual = p.AvgTicket
	default:
		return false
	}
	return r.Operator.Compare(actual, r.Value)
}

// FirstTimeCustomerRule matches while the customer has at most one paid
// visit, so the order being paid right now still counts as the first.
type FirstTimeCustomerRule struct{}

func (FirstTimeCustomerRule) Type() string { return RuleFirstTimeCustomer }

func (FirstTimeCustomerRule) Met(stats CustomerStats, _ EvalContext) bool {
	paid := stats.Period(PeriodAllTime).PaidAppointments
	return paid == 0 || paid == 1
}

// LastVisitDaysAgoRule compares whole calendar days since the last visit.
type LastVisitDaysAgoRule struct {
	Operator Operator
	Value    decimal.Decimal
	Period   string
}

func (LastVisitDaysAgoRule) Type() string { return RuleLastVisitDaysAgo }

func (r LastVisitDaysAgoRule) Met(stats CustomerStats, ec EvalContext) bool {
	last := stats.Period(r.Period).LastVisitOn
	if last == nil {
		return false
	}
	return r.Operator.Compare(decimal.NewFromInt(int64(daysBetween(*last, ec.Now))), r.Value)
}

func daysBetween(from, to time.Time) int {
	y1, m1, d1 := from.In(to.Location()).Date()
	y2, m2, d2 := to.Date()
	// calendar arithmetic in UTC keeps DST shifts out of the day count
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// ServiceUsageRule sums historical counts of a service set. An empty
// Services list falls back to the discount's target services.
type ServiceUsageRule struct {
	Operator Operator
	Value    decimal.Decimal
	Period   string
	Services []uuid.UUID
}

func (ServiceUsageRule) Type() string { return RuleServiceUsage }

func (r ServiceUsageRule) Met(stats CustomerStats, ec EvalContext) bool {
	targets := r.Services
	if len(targets) == 0 {
		targets = ec.TargetServices
	}
	want := make(map[uuid.UUID]bool, len(targets))
	for _, id := range targets {
		want[id] = true
	}
	total := 0
	for _, sc := range stats.Period(r.Period).TopServices {
		if want[sc.ServiceID] {
			total += sc.Count
		}
	}
	return r.Operator.Compare(decimal.NewFromInt(int64(total)), r.Value)
}

// UnsupportedRule stands in for a stored type this build does not know.
type UnsupportedRule struct {
	Name string
}

func (r UnsupportedRule) Type() string                      { return r.Name }
func (UnsupportedRule) Met(CustomerStats, EvalContext) bool { return false }

func parseOperator(s string) Operator {
	s = strings.TrimSpace(s)
	if s == "" {
		return OpGTE
	}
	return Operator(s)
}

func parsePeriod(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return PeriodAllTime
	}
	return s
}

// ParseRule converts a stored rule row into its variant.
func ParseRule(r model.AutoDiscountRule) Rule {
	op := parseOperator(r.Operator)
	period := parsePeriod(r.Period)
	switch strings.TrimSpace(r.RuleType) {
	case RuleNthOrder:
		return NthOrderRule{Step: r.NthStep, Offset: r.NthOffset}
	case RuleTotalOrders, RulePaidOrders, RuleTotalSpent, RuleUniqueCars, RuleAverageTicket:
		return ThresholdRule{Metric: Metric(strings.TrimSpace(r.RuleType)), Operator: op, Value: r.Value, Period: period}
	case RuleFirstTimeCustomer:
		return FirstTimeCustomerRule{}
	case RuleLastVisitDaysAgo:
		return LastVisitDaysAgoRule{Operator: op, Value: r.Value, Period: period}
	case RuleServiceUsage:
		return ServiceUsageRule{Operator: op, Value: r.Value, Period: period, Services: []uuid.UUID(r.Services)}
	}
	return UnsupportedRule{Name: r.RuleType}
}

// RuleSnapshot is the audit form of a rule row kept on usage records.
type RuleSnapshot struct {
	RuleType  string          `json:"rule_type"`
	Operator  string          `json:"operator,omitempty"`
	Value     decimal.Decimal `json:"value"`
	Period    string          `json:"period,omitempty"`
	NthStep   int             `json:"nth_step,omitempty"`
	NthOffset int             `json:"nth_offset,omitempty"`
	Services  []uuid.UUID     `json:"services,omitempty"`
}

type Snapshot struct {
	RulesLogic string         `json:"rules_logic"`
	Rules      []RuleSnapshot `json:"rules"`
}
