package database

import (
	"fmt"
	"strings"
	"time"

	"carwash/internal/config"
	"carwash/internal/model"
	"carwash/pkg/logger"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewConnection opens the configured database. Postgres is the production
// driver; sqlite is used for local runs and tests.
func NewConnection(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.Path)
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel(cfg.Database.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Database.Driver, err)
	}

	if cfg.Database.Driver == "postgres" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// OpenSQLite opens a sqlite database at dsn, used by tests with
// "file:<name>?mode=memory&cache=shared".
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	// a single connection keeps one in-memory database per dsn and
	// serialises writers the way row locks would
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func logLevel(s string) gormlogger.LogLevel {
	switch strings.ToLower(s) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	}
	return gormlogger.Warn
}

// Models lists every table owned by the service.
func Models() []interface{} {
	return []interface{}{
		&model.CarWash{},
		&model.WorkingHour{},
		&model.Box{},
		&model.CarWashSettings{},
		&model.Customer{},
		&model.Car{},
		&model.WashService{},
		&model.ServicePrice{},
		&model.Appointment{},
		&model.AppointmentItem{},
		&model.Booking{},
		&model.BookingItem{},
		&model.AutoDiscount{},
		&model.AutoDiscountRule{},
		&model.AutoDiscountUsage{},
		&model.PromoCode{},
		&model.PromoCodeUsage{},
		&model.Worker{},
		&model.WorkerLedgerEntry{},
		&model.Product{},
		&model.ServiceConsumable{},
		&model.StockLedgerEntry{},
		&model.AuditLog{},
	}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	logger.Debugf("schema migrated (%d models)", len(Models()))
	return nil
}
