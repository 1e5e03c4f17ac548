package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Discount value kinds
const (
	DiscountPercentage = "Percentage"
	DiscountFixed      = "Fixed Amount"
)

// Usage context kinds
const (
	ContextAppointment   = "Appointment"
	ContextBooking       = "Booking"
	ContextMobileAttempt = "MobileAttempt"
)

// AutoDiscount is a rule-driven discount evaluated automatically per order
type AutoDiscount struct {
	Base
	CarWashID                        uuid.UUID                      `gorm:"type:uuid;not null;index" json:"car_wash_id"`
	Title                            string                         `gorm:"type:varchar(255)" json:"title"`
	Description                      string                         `gorm:"type:text" json:"description"`
	IsActive                         bool                           `gorm:"default:true;index" json:"is_active"`
	IsDeleted                        bool                           `gorm:"default:false;index" json:"is_deleted"`
	ValidFrom                        *time.Time                     `json:"valid_from"`
	ValidTo                          *time.Time                     `json:"valid_to"`
	DiscountType                     string                         `gorm:"type:varchar(20);default:'Percentage'" json:"discount_type"`
	DiscountValue                    decimal.Decimal                `gorm:"type:decimal(18,2)" json:"discount_value"`
	MinimumOrderAmount               decimal.Decimal                `gorm:"type:decimal(18,2);default:0" json:"minimum_order_amount"`
	Priority                         int                            `gorm:"default:0;index" json:"priority"`
	WaiveQueueCommission             bool                           `gorm:"default:false" json:"waive_queue_commission"`
	CanCombineWithPromocodes         bool                           `gorm:"default:false" json:"can_combine_with_promocodes"`
	CanCombineWithOtherAutoDiscounts bool                           `gorm:"default:false" json:"can_combine_with_other_auto_discounts"`
	RulesLogic                       string                         `gorm:"type:varchar(20);default:'ALL (AND)'" json:"rules_logic"`
	UsageLimitPerCustomer            int                            `gorm:"default:0" json:"usage_limit_per_customer"`
	ApplicableServices               datatypes.JSONSlice[uuid.UUID] `json:"applicable_services"`
	TargetServices                   datatypes.JSONSlice[uuid.UUID] `json:"target_services"`
	Rules                            []AutoDiscountRule             `gorm:"foreignKey:DiscountID" json:"rules"`
}

// AutoDiscountRule is one stored condition row of a discount
type AutoDiscountRule struct {
	Base
	DiscountID uuid.UUID                      `gorm:"type:uuid;not null;index" json:"discount_id"`
	Idx        int                            `json:"idx"`
	RuleType   string                         `gorm:"type:varchar(50);not null" json:"rule_type"`
	Operator   string                         `gorm:"type:varchar(4);default:'>='" json:"operator"`
	Value      decimal.Decimal                `gorm:"type:decimal(18,2);default:0" json:"value"`
	Period     string                         `gorm:"type:varchar(20);default:'all_time'" json:"period"`
	NthStep    int                            `json:"nth_step"`
	NthOffset  int                            `json:"nth_offset"`
	Services   datatypes.JSONSlice[uuid.UUID] `json:"services"`
}

// AutoDiscountUsage records a discount applied to one order context
type AutoDiscountUsage struct {
	Base
	CarWashID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"car_wash_id"`
	CustomerID       *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id"`
	ContextType      string          `gorm:"type:varchar(20);not null;index:idx_usage_context" json:"context_type"`
	ContextID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_usage_context" json:"context_id"`
	DiscountID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"discount_id"`
	DiscountName     string          `gorm:"type:varchar(255)" json:"discount_name"`
	RulesSnapshot    datatypes.JSON  `json:"rules_snapshot"`
	ServiceDiscount  decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"service_discount"`
	CommissionWaived decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"commission_waived"`
	TotalDiscount    decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"total_discount"`
	IsDisabled       bool            `gorm:"default:false" json:"is_disabled"`
}
