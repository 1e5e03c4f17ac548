package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionCreateAppointment = "CREATE_APPOINTMENT"
	ActionUpdateAppointment = "UPDATE_APPOINTMENT"
	ActionDeleteAppointment = "DELETE_APPOINTMENT"
	ActionPayAppointment    = "PAY_APPOINTMENT"
	ActionCreateBooking     = "CREATE_BOOKING"
	ActionCancelBooking     = "CANCEL_BOOKING"
	ActionToggleDiscount    = "TOGGLE_DISCOUNT_USAGE"
	ActionApplyPromo        = "APPLY_PROMO_CODE"
	ActionLedgerPost        = "POST_LEDGER_ENTRY"
	ActionReceiveStock      = "RECEIVE_STOCK"
	ActionCustomPrice       = "CUSTOM_PRICE"
	ActionSaveService       = "SAVE_SERVICE"
	ActionSavePrice         = "SAVE_SERVICE_PRICE"
	ActionCreateDiscount    = "CREATE_DISCOUNT"
)

// KnownAuditAction reports whether action is one the system writes.
func KnownAuditAction(action string) bool {
	switch action {
	case ActionCreateAppointment, ActionUpdateAppointment, ActionDeleteAppointment, ActionPayAppointment,
		ActionCreateBooking, ActionCancelBooking, ActionToggleDiscount, ActionApplyPromo, ActionLedgerPost,
		ActionReceiveStock, ActionCustomPrice, ActionSaveService, ActionSavePrice, ActionCreateDiscount:
		return true
	}
	return false
}

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"` // nil for automated writes
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string         `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    datatypes.JSON `json:"details"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
