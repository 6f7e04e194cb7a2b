package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barterhub/backend/internal/models"
	"github.com/barterhub/backend/internal/repository"
	"github.com/barterhub/backend/internal/repository/memory"
)

func TestInTx_CommitPersists(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	store.SeedItem(models.Item{ID: "item-1", OwnerID: "alice", Title: "lamp", Price: decimal.NewFromInt(5)})

	err := store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetBalanceForUpdate(ctx, "alice"); err != nil {
			return err
		}
		if _, err := tx.AddToBalance(ctx, "alice", 40); err != nil {
			return err
		}
		return tx.UpdateItemOwner(ctx, "item-1", "bob", models.ItemSold)
	})
	require.NoError(t, err)

	b, err := store.GetBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(40), b.Amount)

	it, err := store.GetItem(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, "bob", it.OwnerID)
	assert.Equal(t, models.ItemSold, it.Status)
}

func TestInTx_ErrorRollsBackEverything(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	store.SeedItem(models.Item{ID: "item-1", OwnerID: "alice", Title: "lamp", Price: decimal.NewFromInt(5)})

	boom := errors.New("boom")
	err := store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetBalanceForUpdate(ctx, "alice"); err != nil {
			return err
		}
		if _, err := tx.AddToBalance(ctx, "alice", 40); err != nil {
			return err
		}
		if err := tx.UpdateItemOwner(ctx, "item-1", "bob", models.ItemSold); err != nil {
			return err
		}
		if err := tx.InsertPointsTransaction(ctx, models.PointsTransaction{
			ID: "tx-1", UserID: "alice", Amount: 40, Type: models.TxnEarned,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Every write inside the failed transaction is gone.
	b, err := store.GetBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.Amount)

	it, err := store.GetItem(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", it.OwnerID)
	assert.Equal(t, models.ItemActive, it.Status)

	sum, err := store.SumTransactionsByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum)
}

func TestInTx_SequentialTransactionsDoNotBleed(t *testing.T) {
	// A rollback must not disturb state committed by an earlier
	// transaction that touched the same rows.
	store := memory.NewStore()
	ctx := context.Background()

	err := store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetBalanceForUpdate(ctx, "alice"); err != nil {
			return err
		}
		return tx.InsertPointsTransaction(ctx, models.PointsTransaction{
			ID: "tx-1", UserID: "alice", Amount: 10, Type: models.TxnEarned,
		})
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	_ = store.InTx(ctx, func(tx repository.Tx) error {
		_ = tx.InsertPointsTransaction(ctx, models.PointsTransaction{
			ID: "tx-2", UserID: "alice", Amount: 99, Type: models.TxnEarned,
		})
		return boom
	})

	txs, err := store.ListTransactionsByUser(ctx, "alice", 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "tx-1", txs[0].ID)
}

func TestHasPointsTransactionRef(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	ref, refType := "order-1", "order"

	err := store.InTx(ctx, func(tx repository.Tx) error {
		return tx.InsertPointsTransaction(ctx, models.PointsTransaction{
			ID: "tx-1", UserID: "alice", Amount: 10, Type: models.TxnBonus,
			ReferenceID: &ref, ReferenceType: &refType,
		})
	})
	require.NoError(t, err)

	err = store.InTx(ctx, func(tx repository.Tx) error {
		got, err := tx.HasPointsTransactionRef(ctx, "alice", "order-1", "order", models.TxnBonus)
		require.NoError(t, err)
		assert.True(t, got)

		got, err = tx.HasPointsTransactionRef(ctx, "alice", "order-1", "order", models.TxnEarned)
		require.NoError(t, err)
		assert.False(t, got, "type is part of the dedup key")

		got, err = tx.HasPointsTransactionRef(ctx, "bob", "order-1", "order", models.TxnBonus)
		require.NoError(t, err)
		assert.False(t, got, "user is part of the dedup key")
		return nil
	})
	require.NoError(t, err)
}
