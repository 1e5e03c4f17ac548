package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Promo code kinds
const (
	PromoServiceDiscount = "Service Discount"
	PromoCommission      = "Queue Commission Waiver"
	PromoCombined        = "Combined"
)

// PromoCode is a user-entered discount code
type PromoCode struct {
	Base
	CarWashID            uuid.UUID                      `gorm:"type:uuid;not null;uniqueIndex:idx_promo_code" json:"car_wash_id"`
	Code                 string                         `gorm:"type:varchar(50);not null;uniqueIndex:idx_promo_code" json:"code"`
	Title                string                         `gorm:"type:varchar(255)" json:"title"`
	IsActive             bool                           `gorm:"default:true" json:"is_active"`
	PromoType            string                         `gorm:"type:varchar(30);not null" json:"promo_type"`
	DiscountType         string                         `gorm:"type:varchar(20)" json:"discount_type"`
	DiscountValue        decimal.Decimal                `gorm:"type:decimal(18,2);default:0" json:"discount_value"`
	MinimumOrderAmount   decimal.Decimal                `gorm:"type:decimal(18,2);default:0" json:"minimum_order_amount"`
	ValidFrom            *time.Time                     `json:"valid_from"`
	ValidTo              *time.Time                     `json:"valid_to"`
	UsageLimit           int                            `gorm:"default:0" json:"usage_limit"`
	UsedCount            int                            `gorm:"default:0" json:"used_count"`
	WaiveQueueCommission bool                           `gorm:"default:false" json:"waive_queue_commission"`
	ApplicableServices   datatypes.JSONSlice[uuid.UUID] `json:"applicable_services"`
}

// PromoCodeUsage is the audit row written when a promo code is consumed
type PromoCodeUsage struct {
	Base
	PromoCodeID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"promo_code_id"`
	ContextType         string          `gorm:"type:varchar(20)" json:"context_type"`
	ContextID           uuid.UUID       `gorm:"type:uuid;index" json:"context_id"`
	UserID              *uuid.UUID      `gorm:"type:uuid" json:"user_id"`
	PromoType           string          `gorm:"type:varchar(30)" json:"promo_type"`
	ServiceDiscount     decimal.Decimal `gorm:"type:decimal(18,2)" json:"service_discount"`
	CommissionWaived    decimal.Decimal `gorm:"type:decimal(18,2)" json:"commission_waived"`
	ServicesTotalBefore decimal.Decimal `gorm:"type:decimal(18,2)" json:"services_total_before"`
	ServicesTotalAfter  decimal.Decimal `gorm:"type:decimal(18,2)" json:"services_total_after"`
	CommissionBefore    decimal.Decimal `gorm:"type:decimal(18,2)" json:"commission_before"`
	CommissionAfter     decimal.Decimal `gorm:"type:decimal(18,2)" json:"commission_after"`
}
