package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/barterhub/backend/internal/models"
)

func (q queries) InsertPointsTransaction(ctx context.Context, tx models.PointsTransaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	_, err := q.db.Exec(ctx,
		`INSERT INTO points_transactions
		   (id, user_id, amount, type, description, reference_id, reference_type)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		tx.ID, tx.UserID, tx.Amount, tx.Type, tx.Description, tx.ReferenceID, tx.ReferenceType,
	)
	return err
}

func (q queries) HasPointsTransactionRef(ctx context.Context, userID, refID, refType string, typ models.PointsTransactionType) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM points_transactions
		    WHERE user_id=$1 AND reference_id=$2 AND reference_type=$3 AND type=$4)`,
		userID, refID, refType, typ,
	).Scan(&exists)
	return exists, err
}

func (q queries) ListTransactionsByUser(ctx context.Context, userID string, limit, offset int) ([]models.PointsTransaction, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, user_id, amount, type, description, reference_id, reference_type, created_at
		   FROM points_transactions
		  WHERE user_id=$1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PointsTransaction
	for rows.Next() {
		var tx models.PointsTransaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Type, &tx.Description,
			&tx.ReferenceID, &tx.ReferenceType, &tx.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (q queries) SumTransactionsByUser(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM points_transactions WHERE user_id=$1`,
		userID,
	).Scan(&sum)
	return sum, err
}
