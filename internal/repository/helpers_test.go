package repository

import (
	"fmt"
	"testing"
	"time"

	"carwash/internal/database"
	"carwash/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func at(h, m int) time.Time {
	return time.Date(2026, 10, 19, h, m, 0, 0, time.UTC)
}

func seedCarWash(t *testing.T, db *gorm.DB) *model.CarWash {
	t.Helper()
	cw := &model.CarWash{Name: "Main street"}
	require.NoError(t, db.Create(cw).Error)
	return cw
}
