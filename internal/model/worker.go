package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Worker roles
const (
	RoleWasher  = "Washer"
	RoleCashier = "Cashier"
)

// Earning modes
const (
	EarningDefault = "Default"
	EarningPercent = "Percent"
	EarningFixed   = "Fixed"
)

// Ledger entry kinds
const (
	EntryEarning    = "Earning"
	EntryAdvance    = "Advance"
	EntryPayout     = "Payout"
	EntryCorrection = "Correction"
)

// Ledger entry statuses
const (
	LedgerDraft     = "Draft"
	LedgerSubmitted = "Submitted"
	LedgerCancelled = "Cancelled"
)

// Worker is a car wash employee paid through the ledger
type Worker struct {
	Base
	CarWashID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"car_wash_id"`
	UserID               *uuid.UUID      `gorm:"type:uuid;index" json:"user_id"`
	FullName             string          `gorm:"type:varchar(255)" json:"full_name"`
	Role                 string          `gorm:"type:varchar(20);default:'Washer'" json:"role"`
	EarningOverrideMode  string          `gorm:"type:varchar(20);default:'Default'" json:"earning_override_mode"`
	EarningOverrideValue decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"earning_override_value"`
	IsActive             bool            `gorm:"default:true" json:"is_active"`
}

// WorkerLedgerEntry is a signed money movement on a worker balance
type WorkerLedgerEntry struct {
	Base
	WorkerID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_worker_appt" json:"worker_id"`
	CarWashID     uuid.UUID       `gorm:"type:uuid;index" json:"car_wash_id"`
	EntryType     string          `gorm:"type:varchar(20);not null" json:"entry_type"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	AppointmentID *uuid.UUID      `gorm:"type:uuid;index:idx_ledger_worker_appt" json:"appointment_id"`
	Status        string          `gorm:"type:varchar(20);default:'Draft'" json:"status"`
	PostingTime   time.Time       `json:"posting_time"`
	Note          string          `gorm:"type:text" json:"note"`
}

// EntrySign returns +1 or -1 for a ledger entry kind, 0 when unknown.
func EntrySign(entryType string) int {
	switch entryType {
	case EntryEarning, EntryCorrection:
		return 1
	case EntryAdvance, EntryPayout:
		return -1
	}
	return 0
}

// Signed returns the amount with the entry sign applied.
func (e *WorkerLedgerEntry) Signed() decimal.Decimal {
	return e.Amount.Mul(decimal.NewFromInt(int64(EntrySign(e.EntryType))))
}
