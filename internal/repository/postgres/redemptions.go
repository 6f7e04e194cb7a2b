package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/barterhub/backend/internal/errs"
	"github.com/barterhub/backend/internal/models"
)

const optionColumns = `id, name, points_required, reward_type, reward_value, total_available, total_redeemed, max_per_user, active, expires_at, created_at`

func scanOption(row pgx.Row) (models.RedemptionOption, error) {
	var o models.RedemptionOption
	err := row.Scan(&o.ID, &o.Name, &o.PointsRequired, &o.RewardType, &o.RewardValue,
		&o.TotalAvailable, &o.TotalRedeemed, &o.MaxPerUser, &o.Active, &o.ExpiresAt, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.RedemptionOption{}, errs.ErrOptionNotFound
	}
	return o, err
}

func (q queries) GetOption(ctx context.Context, id string) (models.RedemptionOption, error) {
	return scanOption(q.db.QueryRow(ctx,
		`SELECT `+optionColumns+` FROM redemption_options WHERE id=$1`, id))
}

func (q queries) GetOptionForUpdate(ctx context.Context, id string) (models.RedemptionOption, error) {
	return scanOption(q.db.QueryRow(ctx,
		`SELECT `+optionColumns+` FROM redemption_options WHERE id=$1 FOR UPDATE`, id))
}

func (q queries) InsertOption(ctx context.Context, o models.RedemptionOption) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO redemption_options
		   (id, name, points_required, reward_type, reward_value, total_available, max_per_user, active, expires_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		o.ID, o.Name, o.PointsRequired, o.RewardType, o.RewardValue,
		o.TotalAvailable, o.MaxPerUser, o.Active, o.ExpiresAt,
	)
	return err
}

func (q queries) ListActiveOptions(ctx context.Context) ([]models.RedemptionOption, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+optionColumns+`
		   FROM redemption_options
		  WHERE active
		    AND (expires_at IS NULL OR expires_at > now())
		    AND (total_available IS NULL OR total_redeemed < total_available)
		  ORDER BY points_required ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RedemptionOption
	for rows.Next() {
		var o models.RedemptionOption
		if err := rows.Scan(&o.ID, &o.Name, &o.PointsRequired, &o.RewardType, &o.RewardValue,
			&o.TotalAvailable, &o.TotalRedeemed, &o.MaxPerUser, &o.Active, &o.ExpiresAt, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (q queries) IncrementOptionRedeemed(ctx context.Context, optionID string) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE redemption_options SET total_redeemed = total_redeemed + 1 WHERE id=$1`,
		optionID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrOptionNotFound
	}
	return nil
}

func (q queries) CountUserRedemptions(ctx context.Context, userID, optionID string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_redemptions WHERE user_id=$1 AND option_id=$2`,
		userID, optionID,
	).Scan(&n)
	return n, err
}

func (q queries) InsertUserRedemption(ctx context.Context, r models.UserRedemption) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO user_redemptions
		   (id, user_id, option_id, points_used, reward_code, used, expires_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7)`,
		r.ID, r.UserID, r.OptionID, r.PointsUsed, r.RewardCode, r.Used, r.ExpiresAt,
	)
	return err
}

func (q queries) RewardCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_redemptions WHERE reward_code=$1)`,
		code,
	).Scan(&exists)
	return exists, err
}

func (q queries) ListRedemptionsByUser(ctx context.Context, userID string) ([]models.UserRedemption, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, user_id, option_id, points_used, reward_code, used, expires_at, created_at
		   FROM user_redemptions
		  WHERE user_id=$1
		  ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UserRedemption
	for rows.Next() {
		var r models.UserRedemption
		if err := rows.Scan(&r.ID, &r.UserID, &r.OptionID, &r.PointsUsed,
			&r.RewardCode, &r.Used, &r.ExpiresAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
