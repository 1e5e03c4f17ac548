package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CarWash is a single wash location
type CarWash struct {
	Base
	Name            string          `gorm:"type:varchar(255);not null" json:"name"`
	QueueCommission decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"queue_commission"` // charged to non-admin queue entries
	PromoEnabled    bool            `gorm:"default:true" json:"promo_enabled"`
	WorkingHours    []WorkingHour   `gorm:"foreignKey:CarWashID" json:"working_hours"`
	Boxes           []Box           `gorm:"foreignKey:CarWashID" json:"boxes,omitempty"`
}

// WorkingHour is one row of the weekly schedule. DayOfWeek is 0=Monday..6=Sunday.
// A row whose StartTime is after EndTime runs past midnight.
type WorkingHour struct {
	Base
	CarWashID  uuid.UUID `gorm:"type:uuid;not null;index" json:"car_wash_id"`
	DayOfWeek  int       `gorm:"not null" json:"day_of_week"`
	NonWorking bool      `gorm:"default:false" json:"non_working"`
	StartTime  string    `gorm:"type:varchar(8)" json:"start_time"` // HH:MM
	EndTime    string    `gorm:"type:varchar(8)" json:"end_time"`   // HH:MM
}

// Box is a physical wash bay
type Box struct {
	Base
	CarWashID  uuid.UUID `gorm:"type:uuid;not null;index" json:"car_wash_id"`
	Title      string    `gorm:"type:varchar(100);not null" json:"title"`
	BoxType    string    `gorm:"type:varchar(50)" json:"box_type"`
	IsDisabled bool      `gorm:"default:false" json:"is_disabled"`
	IsDeleted  bool      `gorm:"default:false" json:"is_deleted"`
}

// CarWashSettings holds payroll defaults for a car wash
type CarWashSettings struct {
	Base
	CarWashID           uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"car_wash_id"`
	WasherEarningMode   string    `gorm:"type:varchar(20);default:'Percent'" json:"washer_earning_mode"` // Percent, Fixed
	WasherEarningValue  int       `gorm:"default:30" json:"washer_earning_value"`
	CashierEarningMode  string    `gorm:"type:varchar(20);default:'Percent'" json:"cashier_earning_mode"`
	CashierEarningValue int       `gorm:"default:10" json:"cashier_earning_value"`
}

// Customer is a car wash client
type Customer struct {
	Base
	Name  string `gorm:"type:varchar(255)" json:"name"`
	Phone string `gorm:"type:varchar(50);index" json:"phone"`
}

// Car belongs to a customer; BodyType selects the price tier
type Car struct {
	Base
	CustomerID *uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	Plate      string     `gorm:"type:varchar(30);index" json:"plate"`
	BodyType   string     `gorm:"type:varchar(50)" json:"body_type"`
}
