package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Booking is a queue or reservation entry made before the visit
type Booking struct {
	Base
	CarWashID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"car_wash_id"`
	Num            int             `gorm:"not null" json:"num"`
	CustomerID     *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id"`
	CarID          *uuid.UUID      `gorm:"type:uuid" json:"car_id"`
	DesiredTime    *time.Time      `json:"desired_time"`
	HasAppointment bool            `gorm:"default:false;index" json:"has_appointment"`
	AppointmentID  *uuid.UUID      `gorm:"type:uuid" json:"appointment_id"`
	Status         string          `gorm:"type:varchar(20);default:'In line'" json:"status"`
	IsCancelled    bool            `gorm:"default:false;index" json:"is_cancelled"`
	IsDeleted      bool            `gorm:"default:false;index" json:"is_deleted"`
	PromoCode      string          `gorm:"type:varchar(50)" json:"promo_code"`
	PromoDiscount  decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"promo_discount"`
	IsTimeBooking  bool            `gorm:"default:false" json:"is_time_booking"`
	CreatedBy      *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	CreatedByAdmin bool            `gorm:"default:false" json:"created_by_admin"`
	Items          []BookingItem   `gorm:"foreignKey:BookingID" json:"services"`
	Totals
}

// BookingItem is one unit of a service inside a booking
type BookingItem struct {
	Base
	BookingID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"booking_id"`
	ServiceID   uuid.UUID        `gorm:"type:uuid;not null" json:"service_id"`
	Price       decimal.Decimal  `gorm:"type:decimal(18,2)" json:"price"`
	Duration    int              `json:"duration"`
	StaffReward decimal.Decimal  `gorm:"type:decimal(18,2)" json:"staff_reward"`
	CustomPrice *decimal.Decimal `gorm:"type:decimal(18,2)" json:"custom_price,omitempty"`
}

// Queued reports whether the booking still waits for a slot.
func (b *Booking) Queued() bool {
	return !b.IsCancelled && !b.IsDeleted && !b.HasAppointment
}
