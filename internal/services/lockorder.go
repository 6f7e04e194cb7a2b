package services

import (
	"context"
	"sort"

	repo "github.com/barterhub/backend/internal/repository"
)

// Canonical lock order, enforced across purchase, swap and redemption:
// item/option rows are locked before any balance row, and when several
// rows of one kind are involved they are locked in ascending id order.
// Re-locking a row already held by the same transaction is a no-op, so
// flows lock everything they will touch up front and then run their
// checks and writes in business order.

func lockBalances(ctx context.Context, tx repo.Tx, userIDs ...string) error {
	ids := append([]string(nil), userIDs...)
	sort.Strings(ids)
	var prev string
	for _, id := range ids {
		if id == prev {
			continue
		}
		prev = id
		if _, err := tx.GetBalanceForUpdate(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func lockItems(ctx context.Context, tx repo.Tx, itemIDs ...string) error {
	ids := append([]string(nil), itemIDs...)
	sort.Strings(ids)
	var prev string
	for _, id := range ids {
		if id == prev {
			continue
		}
		prev = id
		if _, err := tx.GetItemForUpdate(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
