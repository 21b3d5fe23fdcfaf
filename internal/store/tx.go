package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Tx is an exclusive write transaction. The store is opened with
// _txlock=immediate, so every transaction begun through BeginExclusive
// takes SQLite's write lock up front (BEGIN IMMEDIATE), which is what
// makes the leasing protocol's select-then-update atomic across
// independent OS processes sharing the same store file.
type Tx struct {
	tx *sql.Tx
}

// BeginExclusive starts an exclusive write transaction.
func (s *Store) BeginExclusive(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		if isBusy(err) {
			return nil, fmt.Errorf("%w: %v", ErrBusyLocal, err)
		}
		return nil, fmt.Errorf("begin exclusive transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. Safe to call after Commit.
func (t *Tx) Rollback() {
	_ = t.tx.Rollback()
}

// ErrBusyLocal marks lock contention inside the store. Lease retries on
// it and, once its lock-wait budget is spent, returns model.ErrBusy in
// its place; ErrBusyLocal itself is not wrapped into that error.
var ErrBusyLocal = errors.New("sqlite busy")

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
