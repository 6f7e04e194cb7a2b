package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/barterhub/backend/internal/errs"
	"github.com/barterhub/backend/internal/models"
)

func (q queries) GetBalance(ctx context.Context, userID string) (models.Balance, error) {
	var b models.Balance
	err := q.db.QueryRow(ctx,
		`SELECT user_id, amount, last_updated_at
		   FROM balances
		  WHERE user_id=$1`,
		userID,
	).Scan(&b.UserID, &b.Amount, &b.LastUpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Missing row reads as zero; the row is created on first mutation.
		return models.Balance{UserID: userID}, nil
	}
	return b, err
}

// GetBalanceForUpdate creates the balance row if absent, then locks it for
// the remainder of the transaction.
func (q queries) GetBalanceForUpdate(ctx context.Context, userID string) (models.Balance, error) {
	if _, err := q.db.Exec(ctx,
		`INSERT INTO balances(user_id, amount, last_updated_at)
		 VALUES($1, 0, now())
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	); err != nil {
		return models.Balance{}, err
	}
	var b models.Balance
	err := q.db.QueryRow(ctx,
		`SELECT user_id, amount, last_updated_at
		   FROM balances
		  WHERE user_id=$1
		  FOR UPDATE`,
		userID,
	).Scan(&b.UserID, &b.Amount, &b.LastUpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Balance{}, errs.ErrUserNotFound
	}
	return b, err
}

func (q queries) AddToBalance(ctx context.Context, userID string, delta int64) (int64, error) {
	var amount int64
	err := q.db.QueryRow(ctx,
		`UPDATE balances
		    SET amount = amount + $2,
		        last_updated_at = now()
		  WHERE user_id = $1
		  RETURNING amount`,
		userID, delta,
	).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errs.ErrUserNotFound
	}
	return amount, err
}
