package model

import (
	"github.com/google/uuid"
)

// Product is a consumable kept in stock at a car wash
type Product struct {
	Base
	CarWashID    uuid.UUID `gorm:"type:uuid;not null;index" json:"car_wash_id"`
	SKU          string    `gorm:"type:varchar(100);index" json:"sku"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Unit         string    `gorm:"type:varchar(20)" json:"unit"`
	CurrentStock int       `gorm:"type:int;default:0;not null" json:"current_stock"`
}

// ServiceConsumable links a service to the product it uses up per unit
type ServiceConsumable struct {
	Base
	ServiceID uuid.UUID `gorm:"type:uuid;not null;index" json:"service_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	Quantity  int       `gorm:"type:int;not null" json:"quantity"`
}

// Stock movement directions
const (
	StockIn  = "IN"
	StockOut = "OUT"
)

// StockLedgerEntry records one stock change strictly
type StockLedgerEntry struct {
	Base
	ProductID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	AppointmentID *uuid.UUID `gorm:"type:uuid;index" json:"appointment_id"` // nil for manual receipts
	Direction     string     `gorm:"type:varchar(10);not null" json:"direction"`
	Quantity      int        `gorm:"type:int;not null" json:"quantity"`
	StockAfter    int        `gorm:"type:int;not null" json:"stock_after"`
}
