package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barterhub/backend/internal/repository"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same query
// methods serve auto-commit reads and in-transaction access.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// queries implements every read and write against a querier. All SQL in the
// store lives on this type, split across the files of this package.
type queries struct{ db querier }

type Store struct {
	queries
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{queries: queries{db: pool}, pool: pool}
}

// InTx runs fn inside a single database transaction. Row locks taken via
// the *ForUpdate reads are held until commit or rollback.
func (s *Store) InTx(ctx context.Context, fn func(repository.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	if err := fn(&storeTx{queries{db: tx}}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// storeTx implements repository.Tx over an open pgx transaction.
type storeTx struct{ queries }

var _ repository.Store = (*Store)(nil)
var _ repository.Tx = (*storeTx)(nil)
