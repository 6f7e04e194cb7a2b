package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/barterhub/backend/internal/errs"
	"github.com/barterhub/backend/internal/models"
)

const itemColumns = `id, owner_id, title, price, status, created_at, updated_at`

func scanItem(row pgx.Row) (models.Item, error) {
	var it models.Item
	err := row.Scan(&it.ID, &it.OwnerID, &it.Title, &it.Price, &it.Status, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Item{}, errs.ErrItemNotFound
	}
	return it, err
}

func (q queries) GetItem(ctx context.Context, id string) (models.Item, error) {
	return scanItem(q.db.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id=$1`, id))
}

func (q queries) GetItemForUpdate(ctx context.Context, id string) (models.Item, error) {
	return scanItem(q.db.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id=$1 FOR UPDATE`, id))
}

func (q queries) UpdateItemOwner(ctx context.Context, itemID, ownerID string, status models.ItemStatus) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE items SET owner_id=$2, status=$3, updated_at=now() WHERE id=$1`,
		itemID, ownerID, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrItemNotFound
	}
	return nil
}

func (q queries) GetOrder(ctx context.Context, id string) (models.Order, error) {
	var o models.Order
	err := q.db.QueryRow(ctx,
		`SELECT id, item_id, buyer_id, seller_id, points_spent, seller_bonus, created_at
		   FROM orders WHERE id=$1`,
		id,
	).Scan(&o.ID, &o.ItemID, &o.BuyerID, &o.SellerID, &o.PointsSpent, &o.SellerBonus, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, errs.ErrItemNotFound
	}
	return o, err
}

func (q queries) InsertOrder(ctx context.Context, o models.Order) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO orders(id, item_id, buyer_id, seller_id, points_spent, seller_bonus)
		 VALUES($1,$2,$3,$4,$5,$6)`,
		o.ID, o.ItemID, o.BuyerID, o.SellerID, o.PointsSpent, o.SellerBonus,
	)
	return err
}
