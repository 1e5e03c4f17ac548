package repository

import (
	"context"
	"testing"
	"time"

	"carwash/internal/model"
	"carwash/pkg/pagination"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepository_BalanceAndEarnings(t *testing.T) {
	db := newTestDB(t)
	workers := NewWorkerRepository(db)
	ledger := NewLedgerRepository(db)
	ctx := context.Background()
	cw := seedCarWash(t, db)
	user := uuid.New()

	w := &model.Worker{CarWashID: cw.ID, UserID: &user, FullName: "Ivan", Role: model.RoleWasher}
	require.NoError(t, workers.Create(ctx, w))
	found, err := workers.FindByUser(ctx, cw.ID, user)
	require.NoError(t, err)
	assert.Equal(t, w.ID, found.ID)

	appt := uuid.New()
	post := func(kind string, amount int64, status string, appointment *uuid.UUID) *model.WorkerLedgerEntry {
		e := &model.WorkerLedgerEntry{
			WorkerID: w.ID, CarWashID: cw.ID, EntryType: kind, Amount: dec(amount),
			Status: status, AppointmentID: appointment, PostingTime: time.Now(),
		}
		require.NoError(t, ledger.Create(ctx, e))
		return e
	}
	earning := post(model.EntryEarning, 300, model.LedgerSubmitted, &appt)
	post(model.EntryAdvance, 100, model.LedgerSubmitted, nil)
	post(model.EntryCorrection, 20, model.LedgerSubmitted, nil)
	post(model.EntryPayout, 50, model.LedgerDraft, nil)

	bal, err := ledger.Balance(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec(220)), bal.String())

	earnings, err := ledger.Earnings(ctx, appt)
	require.NoError(t, err)
	require.Len(t, earnings, 1)

	require.NoError(t, ledger.Cancel(ctx, earning.ID))
	earnings, err = ledger.Earnings(ctx, appt)
	require.NoError(t, err)
	assert.Empty(t, earnings)

	bal, err = ledger.Balance(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec(-80)), bal.String())

	page, total, err := ledger.List(ctx, w.ID, pagination.Params{Page: 1, Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, page, 2)
}
