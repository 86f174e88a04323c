package repositories

import (
	"context"

	"gorm.io/gorm"
)

// gormTxRunner implements TxRunner on a GORM connection
type gormTxRunner struct {
	db *gorm.DB
}

// NewTxRunner creates a transaction runner on the given connection
func NewTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

// RunInTx runs fn inside a database transaction. Any error returned by
// fn rolls back every write made through repositories bound to tx.
func (r *gormTxRunner) RunInTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
