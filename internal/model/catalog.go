package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Price modifier kinds
const (
	ModifierFixedAddition    = "Fixed Addition"
	ModifierFixedSubtraction = "Fixed Subtraction"
	ModifierPriceDoubling    = "Price Doubling"
	ModifierMultiplier       = "Multiplier"
	ModifierFixedPrice       = "Fixed Price"
)

// WashService is a sellable service of a car wash
type WashService struct {
	Base
	CarWashID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"car_wash_id"`
	Title       string           `gorm:"type:varchar(255);not null" json:"title"`
	Price       *decimal.Decimal `gorm:"type:decimal(18,2)" json:"price"`
	Duration    int              `gorm:"not null;default:0" json:"duration"` // minutes
	StaffReward *decimal.Decimal `gorm:"type:decimal(18,2)" json:"staff_reward"`
	IsDisabled  bool             `gorm:"default:false;index" json:"is_disabled"`
	IsDeleted   bool             `gorm:"default:false;index" json:"is_deleted"`

	IsPriceModifierActive          bool   `gorm:"default:false" json:"is_price_modifier_active"`
	PriceModifierType              string `gorm:"type:varchar(30)" json:"price_modifier_type"`
	PriceModifierValue             string `gorm:"type:varchar(30)" json:"price_modifier_value"`
	ApplyPriceModifierToOrderTotal bool   `gorm:"default:false" json:"apply_price_modifier_to_order_total"`
}

// ServicePrice overrides price and staff reward of a service for one body type
type ServicePrice struct {
	Base
	BaseServiceID uuid.UUID        `gorm:"type:uuid;not null;index" json:"base_service_id"`
	BodyType      string           `gorm:"type:varchar(50);not null;index" json:"body_type"`
	Price         decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"price"`
	StaffReward   *decimal.Decimal `gorm:"type:decimal(18,2)" json:"staff_reward"`
	Duration      *int             `json:"duration"`
	IsDisabled    bool             `gorm:"default:false" json:"is_disabled"`
	IsDeleted     bool             `gorm:"default:false" json:"is_deleted"`
}
