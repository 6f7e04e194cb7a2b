package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/barterhub/backend/internal/errs"
	"github.com/barterhub/backend/internal/models"
)

const swapColumns = `id, requester_id, offered_item_id, target_id, requested_item_id, status, message, created_at, updated_at`

func scanSwap(row pgx.Row) (models.Swap, error) {
	var s models.Swap
	err := row.Scan(&s.ID, &s.RequesterID, &s.OfferedItemID, &s.TargetID,
		&s.RequestedItemID, &s.Status, &s.Message, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Swap{}, errs.ErrSwapNotFound
	}
	return s, err
}

func (q queries) GetSwap(ctx context.Context, id string) (models.Swap, error) {
	return scanSwap(q.db.QueryRow(ctx,
		`SELECT `+swapColumns+` FROM swaps WHERE id=$1`, id))
}

func (q queries) GetSwapForUpdate(ctx context.Context, id string) (models.Swap, error) {
	return scanSwap(q.db.QueryRow(ctx,
		`SELECT `+swapColumns+` FROM swaps WHERE id=$1 FOR UPDATE`, id))
}

func (q queries) InsertSwap(ctx context.Context, s models.Swap) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO swaps(id, requester_id, offered_item_id, target_id, requested_item_id, status, message)
		 VALUES($1,$2,$3,$4,$5,$6,$7)`,
		s.ID, s.RequesterID, s.OfferedItemID, s.TargetID, s.RequestedItemID, s.Status, s.Message,
	)
	return err
}

func (q queries) UpdateSwapStatus(ctx context.Context, swapID string, status models.SwapStatus) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE swaps SET status=$2, updated_at=now() WHERE id=$1`,
		swapID, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrSwapNotFound
	}
	return nil
}

func (q queries) HasPendingSwap(ctx context.Context, requesterID, offeredItemID, requestedItemID string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM swaps
		    WHERE requester_id=$1 AND offered_item_id=$2 AND requested_item_id=$3 AND status='pending')`,
		requesterID, offeredItemID, requestedItemID,
	).Scan(&exists)
	return exists, err
}

func (q queries) ListSwapsByUser(ctx context.Context, userID string, limit, offset int) ([]models.Swap, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+swapColumns+`
		   FROM swaps
		  WHERE requester_id=$1 OR target_id=$1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Swap
	for rows.Next() {
		var s models.Swap
		if err := rows.Scan(&s.ID, &s.RequesterID, &s.OfferedItemID, &s.TargetID,
			&s.RequestedItemID, &s.Status, &s.Message, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
