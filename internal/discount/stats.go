package discount

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Statistic periods
const (
	PeriodMonth   = "month"
	PeriodYear    = "year"
	PeriodAllTime = "all_time"
)

type ServiceCount struct {
	ServiceID uuid.UUID `json:"service_id"`
	Count     int       `json:"count"`
}

// PeriodStats is a customer's history at one car wash over one period.
type PeriodStats struct {
	TotalAppointments int             `json:"total_appointments"`
	PaidAppointments  int             `json:"paid_appointments"`
	SpentTotal        decimal.Decimal `json:"spent_total"`
	AvgTicket         decimal.Decimal `json:"avg_ticket"`
	UniqueCars        int             `json:"unique_cars"`
	TopServices       []ServiceCount  `json:"top_services"`
	LastVisitOn       *time.Time      `json:"last_visit_on"`
}

type CustomerStats struct {
	Periods map[string]PeriodStats `json:"periods"`
}

// EmptyStats is what a customer without history evaluates against.
func EmptyStats() CustomerStats {
	return CustomerStats{Periods: map[string]PeriodStats{
		PeriodMonth:   {},
		PeriodYear:    {},
		PeriodAllTime: {},
	}}
}

// Period returns the stats of period, zero stats when absent. An empty
// period name means all time.
func (s CustomerStats) Period(period string) PeriodStats {
	if period == "" {
		period = PeriodAllTime
	}
	return s.Periods[period]
}
