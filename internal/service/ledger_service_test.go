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

func TestLedgerPostValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apptID := uuid.New()

	tests := []struct {
		name string
		req  PostEntryRequest
	}{
		{"unknown type", PostEntryRequest{EntryType: "Bonus", Amount: dec(10)}},
		{"zero advance", PostEntryRequest{EntryType: model.EntryAdvance, Amount: dec(0)}},
		{"negative payout", PostEntryRequest{EntryType: model.EntryPayout, Amount: dec(-5)}},
		{"zero correction", PostEntryRequest{EntryType: model.EntryCorrection}},
		{"earning without appointment", PostEntryRequest{EntryType: model.EntryEarning, Amount: dec(10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.Post(ctx, f.washer.ID, tt.req, Actor{})
			assert.True(t, apperror.IsValidation(err), "%v", err)
		})
	}

	_, err := f.ledger.Post(ctx, uuid.New(), PostEntryRequest{EntryType: model.EntryAdvance, Amount: dec(10)}, Actor{})
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.ledger.Post(ctx, f.washer.ID, PostEntryRequest{EntryType: model.EntryEarning, Amount: dec(10), AppointmentID: &apptID}, Actor{})
	require.NoError(t, err)
	_, err = f.ledger.Post(ctx, f.washer.ID, PostEntryRequest{EntryType: model.EntryEarning, Amount: dec(20), AppointmentID: &apptID}, Actor{})
	assert.True(t, apperror.IsValidation(err), "one earning per appointment")
}

func TestLedgerBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apptID := uuid.New()

	for _, req := range []PostEntryRequest{
		{EntryType: model.EntryEarning, Amount: dec(500), AppointmentID: &apptID},
		{EntryType: model.EntryAdvance, Amount: dec(100), AppointmentID: &apptID},
		{EntryType: model.EntryCorrection, Amount: dec(-30)},
		{EntryType: model.EntryPayout, Amount: dec(200)},
	} {
		_, err := f.ledger.Post(ctx, f.washer.ID, req, Actor{})
		require.NoError(t, err)
	}

	bal, err := f.ledger.Balance(ctx, f.washer.ID)
	require.NoError(t, err)
	assert.True(t, bal.Balance.Equal(dec(170)), bal.Balance.String())

	entries, total, err := f.ledger.List(ctx, f.washer.ID, pagination.New(1, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, entries, 2)

	var advance model.WorkerLedgerEntry
	require.NoError(t, f.db.First(&advance, "entry_type = ?", model.EntryAdvance).Error)
	assert.Nil(t, advance.AppointmentID, "only earnings reference appointments")

	_, err = f.ledger.Balance(ctx, uuid.New())
	assert.True(t, apperror.IsNotFound(err))
}
