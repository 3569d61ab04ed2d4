package storage

import (
	"context"

	"gorm.io/gorm"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

// TransactionManager opens transactional scopes for C7's per-fact
// begin/commit/rollback requirement (§4.1, §4.7). Read-only queries do not
// require a transaction and should call repositories directly.
type TransactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(m *Manager) *TransactionManager {
	return &TransactionManager{db: m.db}
}

// txKey is the context key under which an active *gorm.DB transaction
// handle is stashed so repository methods called within WithinTx
// participate in the same transaction without threading *gorm.DB through
// every call signature.
type txKey struct{}

// WithinTx runs fn inside a single database transaction. If fn returns a
// non-nil error the transaction is rolled back; otherwise it is committed.
// Panics inside fn are converted to a rollback and re-panicked, matching
// gorm.DB.Transaction's own semantics.
func (t *TransactionManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	var fnErr error
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey{}, tx)
		fnErr = fn(txCtx)
		return fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil {
		// fn already returned a classified error; rollback was caused by that
		// error, not by the transaction mechanism, so preserve its Kind.
		return fnErr
	}
	return errs.TransientError("transaction failed", err)
}

// dbFromContext returns the active transaction's *gorm.DB if WithinTx is on
// the call stack, otherwise falls back to the repository's own handle.
func dbFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback
}
