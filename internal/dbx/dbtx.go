// Package dbx provides tiny DB abstractions shared by repositories:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx,
// a helper to run functions inside a transaction, and Serial, which
// funnels every ledger access through one lock.
package dbx

import (
	"context"
	"database/sql"
	"sync"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
//
// Typical use:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id)
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// Serial serializes access to a database handle: at most one Do or Tx
// callback runs at any time.
type Serial struct {
	mu sync.Mutex
	db *sql.DB
}

func NewSerial(db *sql.DB) *Serial {
	return &Serial{db: db}
}

// Do runs fn against the raw handle while holding the lock.
func (s *Serial) Do(ctx context.Context, fn func(ctx context.Context, db DBTX) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, s.db)
}

// Tx runs fn inside a transaction while holding the lock.
func (s *Serial) Tx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return WithTx(ctx, s.db, nil, fn)
}

// DB exposes the underlying handle, e.g. for migrations or Close.
func (s *Serial) DB() *sql.DB {
	return s.db
}
