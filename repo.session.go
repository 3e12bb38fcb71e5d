package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Session is a database transaction bound to a single store operation.
type Session struct {
	tx *sqlx.Tx
}

// withSession runs fn inside a new session. The session is committed when fn
// succeeds and rolled back when fn fails or panics.
func (bs *sqlBookStorage) withSession(ctx context.Context, fn func(*Session) error) (err error) {
	tx, err := bs.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: failed to begin session: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			bs.rollback(tx)
			panic(p)
		}
		if err != nil {
			bs.rollback(tx)
			return
		}
		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("store: failed to commit session: %w", err)
		}
	}()

	return fn(&Session{tx: tx})
}

func (bs *sqlBookStorage) rollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		bs.logger.Warn("store: failed to rollback session", zap.Error(err))
	}
}
