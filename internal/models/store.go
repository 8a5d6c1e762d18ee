package models

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"social/internal/util"
)

// Store runs every read and write against the relational database. All
// multi-row mutations happen inside a single transaction.
type Store struct {
	DB    *sql.DB
	Clock util.Clock
}

func NewStore(db *sql.DB, clock util.Clock) *Store {
	if clock == nil {
		clock = util.System
	}
	return &Store{DB: db, Clock: clock}
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}

func newID() string {
	return uuid.NewString()
}

func queryIDs(ctx context.Context, q queryer, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func exists(ctx context.Context, q queryer, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func userExists(ctx context.Context, q queryer, id string) (bool, error) {
	return exists(ctx, q, `SELECT 1 FROM users WHERE id = $1`, id)
}

func postExists(ctx context.Context, q queryer, id string) (bool, error) {
	return exists(ctx, q, `SELECT 1 FROM posts WHERE id = $1`, id)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	str := err.Error()
	return strings.Contains(str, "UNIQUE constraint failed") || strings.Contains(str, "duplicate key value")
}
