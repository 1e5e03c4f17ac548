package service

import (
	"context"
	"testing"

	"carwash/internal/model"
	"carwash/pkg/apperror"
	"carwash/pkg/pagination"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockReceive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.stock.Receive(ctx, f.foam.ID, ReceiveStockRequest{Quantity: 7, Note: "delivery"}, Actor{})
	require.NoError(t, err)
	assert.Equal(t, 12, p.CurrentStock)
	assert.Equal(t, 12, f.stockOf(t, f.foam.ID))

	var entry model.StockLedgerEntry
	require.NoError(t, f.db.First(&entry, "product_id = ?", f.foam.ID).Error)
	assert.Equal(t, model.StockIn, entry.Direction)
	assert.Equal(t, 12, entry.StockAfter)
	assert.Nil(t, entry.AppointmentID)

	_, err = f.stock.Receive(ctx, f.foam.ID, ReceiveStockRequest{Quantity: 0}, Actor{})
	assert.True(t, apperror.IsValidation(err))
	_, err = f.stock.Receive(ctx, uuid.New(), ReceiveStockRequest{Quantity: 1}, Actor{})
	assert.True(t, apperror.IsNotFound(err))

	list, total, err := f.stock.List(ctx, f.cw.ID, "foa", pagination.New(1, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
}

func TestStockSyncIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := &model.Appointment{WorkflowState: model.StateInLine, Items: []model.AppointmentItem{{ServiceID: f.wash.ID}, {ServiceID: f.wash.ID}}}
	appt.ID = uuid.New()

	require.NoError(t, f.stock.SyncForAppointment(ctx, appt))
	require.NoError(t, f.stock.SyncForAppointment(ctx, appt))
	assert.Equal(t, 3, f.stockOf(t, f.foam.ID))

	var moves int64
	require.NoError(t, f.db.Model(&model.StockLedgerEntry{}).Where("appointment_id = ?", appt.ID).Count(&moves).Error)
	assert.Equal(t, int64(1), moves)

	require.NoError(t, f.stock.CancelForAppointment(ctx, appt.ID))
	assert.Equal(t, 5, f.stockOf(t, f.foam.ID))
}
