package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sethvargo/go-retry"
)

const (
	txMaxRetries     = 3
	txRetryBaseDelay = 50 * time.Millisecond
)

// RunInTx runs fn inside a single transaction, committing when fn returns nil
// and rolling back otherwise. Serialization failures and deadlocks (Postgres
// codes 40001 and 40P01) are retried with fibonacci backoff, so fn may run more
// than once and must not carry state across attempts.
func RunInTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	backoff := retry.WithMaxRetries(txMaxRetries, retry.NewFibonacci(txRetryBaseDelay))

	return retry.Do(context.Background(), backoff, func(_ context.Context) error {
		err := runInTxOnce(db, fn)
		if isRetryableTxError(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func runInTxOnce(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func isRetryableTxError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}
