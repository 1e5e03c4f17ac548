package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment statuses
const (
	PaymentNotPaid = "Not paid"
	PaymentPaid    = "Paid"
)

// Workflow states shared by appointments and bookings
const (
	StateInLine     = "In line"
	StateInProgress = "In progress"
	StateFinished   = "Finished"
	StateCancelled  = "Cancelled"
)

// DefaultWashDuration is used when a visit has no usable end time.
const DefaultWashDuration = 45 * time.Minute

// Totals are the money fields persisted on appointments and bookings.
// ServicesTotal + Commission always equals BaseServicesTotal + BaseCommission
// minus the enabled auto discount usage recorded for the document.
type Totals struct {
	BaseServicesTotal decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"base_services_total"`
	BaseCommission    decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"base_commission"`
	ServicesTotal     decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"services_total"`
	Commission        decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"commission"`
	AutoDiscountTotal decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"auto_discount_total"`
	StaffRewardTotal  decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"staff_reward_total"`
	DurationTotal     int             `gorm:"default:0" json:"duration_total"` // minutes
}

// Appointment is a car wash visit
type Appointment struct {
	Base
	CarWashID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"car_wash_id"`
	Num               int               `gorm:"not null" json:"num"`
	CustomerID        *uuid.UUID        `gorm:"type:uuid;index" json:"customer_id"`
	CarID             *uuid.UUID        `gorm:"type:uuid;index" json:"car_id"`
	BoxID             *uuid.UUID        `gorm:"type:uuid;index" json:"box_id"`
	WorkerID          *uuid.UUID        `gorm:"type:uuid;index" json:"worker_id"`
	BookingID         *uuid.UUID        `gorm:"type:uuid;index" json:"booking_id"`
	StartsOn          time.Time         `gorm:"index" json:"starts_on"`
	EndsOn            time.Time         `gorm:"index" json:"ends_on"`
	WorkStartedOn     *time.Time        `json:"work_started_on"`
	WorkEndedOn       *time.Time        `json:"work_ended_on"`
	PaymentStatus     string            `gorm:"type:varchar(20);default:'Not paid'" json:"payment_status"`
	PaymentType       string            `gorm:"type:varchar(30)" json:"payment_type"`
	PaymentReceivedOn *time.Time        `json:"payment_received_on"`
	WorkflowState     string            `gorm:"type:varchar(20);default:'In line';index" json:"workflow_state"`
	IsDeleted         bool              `gorm:"default:false;index" json:"is_deleted"`
	CreatedBy         *uuid.UUID        `gorm:"type:uuid" json:"created_by"`
	CreatedByAdmin    bool              `gorm:"default:false" json:"created_by_admin"`
	Items             []AppointmentItem `gorm:"foreignKey:AppointmentID" json:"services"`
	Totals
}

// AppointmentItem is one unit of a service inside an appointment
type AppointmentItem struct {
	Base
	AppointmentID uuid.UUID        `gorm:"type:uuid;not null;index" json:"appointment_id"`
	ServiceID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"service_id"`
	Price         decimal.Decimal  `gorm:"type:decimal(18,2)" json:"price"`
	Duration      int              `json:"duration"`
	StaffReward   decimal.Decimal  `gorm:"type:decimal(18,2)" json:"staff_reward"`
	CustomPrice   *decimal.Decimal `gorm:"type:decimal(18,2)" json:"custom_price,omitempty"`
}

// Active reports whether the appointment still occupies capacity.
func (a *Appointment) Active() bool {
	return !a.IsDeleted && a.WorkflowState != StateCancelled
}
