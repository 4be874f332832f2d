// Package db is the Postgres persistence layer.
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/Spok95/acadify-records/internal/ctxutil"
)

// Store implements the persistence interfaces of the window, lifecycle,
// eligibility and deanslist services plus the audit log writer.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) *Store { return &Store{db: database} }

// Ping checks the connection and reports how long it took.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	start := time.Now()
	err := s.db.PingContext(ctx)
	return time.Since(start), err
}

// inTx runs fn in a READ COMMITTED transaction and commits when fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	v := nt.Time
	return &v
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

func float64Ptr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
