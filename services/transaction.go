package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/unistudious/backend/repositories"
)

// WithTransaction runs fn with a context carrying an open transaction and
// commits when fn returns nil. Any error or panic rolls the transaction back.
//
// When ctx already carries a transaction, fn joins it: the outermost call
// owns commit and rollback, so multi-step cascades stay all-or-nothing.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context) error) (err error) {
	if _, ok := repositories.TransactionFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := txMgr.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		rbErr := tx.Rollback()
		if p := recover(); p != nil {
			panic(p)
		}
		if rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
	}()

	if err = fn(repositories.ContextWithTransaction(ctx, tx)); err != nil {
		return err
	}

	finished = true
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
