// Package store is the PostgreSQL data access layer of the portal.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"affiliate-portal/internal/common/database"

	"github.com/lib/pq"
)

var (
	ErrNotFound = errors.New("NOT_FOUND")
	ErrConflict = errors.New("CONFLICT")
	ErrQuery    = errors.New("QUERY_EXECUTION_FAILED")
	ErrTimeout  = errors.New("QUERY_TIMEOUT")
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

// Store runs every query under its own timeout.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

func New(pg *database.PostgresClient) *Store {
	return NewWithDB(pg.GetDB(), pg.QueryTimeout())
}

// NewWithDB is used by tests with a sqlmock connection.
func NewWithDB(db *sql.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{db: db, timeout: timeout}
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrQuery, err)
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// mapError classifies driver errors into the package sentinels.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s: %s", ErrConflict, op, pqErr.Constraint)
		case invalidTextRepresentation:
			// a malformed uuid cannot match any row
			return fmt.Errorf("%w: %s: %s", ErrNotFound, op, pqErr.Message)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrQuery, op, err)
}
