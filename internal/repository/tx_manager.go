package repository

import (
	"context"
	"sync"

	"carwash/pkg/logger"

	"gorm.io/gorm"
)

type contextKey string

const (
	txKey    contextKey = "gorm_tx"
	hooksKey contextKey = "after_commit"
)

// TransactionManager manages database transactions via context injection.
type TransactionManager interface {
	// RunInTx runs fn inside a transaction. A nested call joins the outer
	// transaction.
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

type afterCommit struct {
	mu    sync.Mutex
	hooks []func(ctx context.Context)
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return fn(ctx)
	}

	hooks := &afterCommit{}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey, tx)
		txCtx = context.WithValue(txCtx, hooksKey, hooks)
		return fn(txCtx)
	})
	if err != nil {
		return err
	}

	hooks.mu.Lock()
	pending := hooks.hooks
	hooks.mu.Unlock()
	for _, h := range pending {
		runHook(ctx, h)
	}
	return nil
}

func runHook(ctx context.Context, h func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("after-commit hook panicked: %v", r)
		}
	}()
	h(ctx)
}

// AfterCommit schedules fn to run once the surrounding transaction commits.
// Outside a transaction fn runs immediately. Hooks never see the
// transaction and are skipped on rollback.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	hooks, ok := ctx.Value(hooksKey).(*afterCommit)
	if !ok {
		runHook(ctx, fn)
		return
	}
	hooks.mu.Lock()
	hooks.hooks = append(hooks.hooks, fn)
	hooks.mu.Unlock()
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}
