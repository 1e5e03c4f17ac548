package repository

import (
	"context"
	"errors"
	"testing"

	"carwash/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInTx_AfterCommitRunsOnCommit(t *testing.T) {
	db := newTestDB(t)
	tm := NewTransactionManager(db)
	var order []string

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		AfterCommit(ctx, func(ctx context.Context) {
			var n int64
			// hook context is outside the transaction and sees committed data
			require.NoError(t, GetDB(ctx, db).Model(&model.CarWash{}).Count(&n).Error)
			assert.EqualValues(t, 1, n)
			order = append(order, "hook")
		})
		order = append(order, "body")
		return GetDB(ctx, db).Create(&model.CarWash{Name: "A"}).Error
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"body", "hook"}, order)
}

func TestRunInTx_RollbackSkipsHooks(t *testing.T) {
	db := newTestDB(t)
	tm := NewTransactionManager(db)
	ran := false

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		AfterCommit(ctx, func(context.Context) { ran = true })
		if err := GetDB(ctx, db).Create(&model.CarWash{Name: "A"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.False(t, ran)

	var n int64
	require.NoError(t, db.Model(&model.CarWash{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRunInTx_NestedJoinsOuter(t *testing.T) {
	db := newTestDB(t)
	tm := NewTransactionManager(db)
	hooks := 0

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		inner := tm.RunInTx(ctx, func(ctx context.Context) error {
			AfterCommit(ctx, func(context.Context) { hooks++ })
			return GetDB(ctx, db).Create(&model.CarWash{Name: "inner"}).Error
		})
		require.NoError(t, inner)
		assert.Zero(t, hooks, "hooks wait for the outer commit")
		return errors.New("outer fails")
	})
	require.Error(t, err)
	assert.Zero(t, hooks)

	var n int64
	require.NoError(t, db.Model(&model.CarWash{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestAfterCommit_PanicIsContained(t *testing.T) {
	db := newTestDB(t)
	tm := NewTransactionManager(db)
	second := false

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		AfterCommit(ctx, func(context.Context) { panic("hook failure") })
		AfterCommit(ctx, func(context.Context) { second = true })
		return nil
	})
	require.NoError(t, err)
	assert.True(t, second)
}

func TestAfterCommit_OutsideTxRunsNow(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func(context.Context) { ran = true })
	assert.True(t, ran)
}
