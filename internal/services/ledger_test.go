package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barterhub/backend/internal/errs"
	"github.com/barterhub/backend/internal/models"
	"github.com/barterhub/backend/internal/repository/memory"
	"github.com/barterhub/backend/internal/services"
)

func newLedger(t *testing.T) (*memory.Store, *services.LedgerService) {
	t.Helper()
	store := memory.NewStore()
	return store, services.NewLedgerService(store)
}

// requireBalanceEqualsSum asserts the core ledger invariant: the cached
// balance always equals the sum of the user's transaction amounts.
func requireBalanceEqualsSum(t *testing.T, store *memory.Store, userID string) {
	t.Helper()
	ctx := context.Background()
	b, err := store.GetBalance(ctx, userID)
	require.NoError(t, err)
	sum, err := store.SumTransactionsByUser(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, sum, b.Amount, "balance must equal sum of ledger entries for %s", userID)
}

func TestAwardPoints_CreditsOnce(t *testing.T) {
	store, ledger := newLedger(t)
	ctx := context.Background()

	balance, err := ledger.AwardPoints(ctx, "user-1", 100, models.TxnEarned, "signup", "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	txs, err := ledger.ListTransactions(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(100), txs[0].Amount)
	assert.Equal(t, models.TxnEarned, txs[0].Type)

	requireBalanceEqualsSum(t, store, "user-1")
}

func TestAwardPoints_RejectsNonPositiveAmount(t *testing.T) {
	_, ledger := newLedger(t)
	ctx := context.Background()

	_, err := ledger.AwardPoints(ctx, "user-1", 0, models.TxnEarned, "zero", "", "")
	assert.ErrorIs(t, err, errs.ErrInvalidAmount)

	_, err = ledger.AwardPoints(ctx, "user-1", -5, models.TxnEarned, "negative", "", "")
	assert.ErrorIs(t, err, errs.ErrInvalidAmount)
}

func TestAwardPoints_IdempotentOnReference(t *testing.T) {
	// GIVEN an award keyed by (refID, refType, type)
	// WHEN the identical award is submitted again
	// THEN it is rejected and the user is credited exactly once
	store, ledger := newLedger(t)
	ctx := context.Background()

	_, err := ledger.AwardPoints(ctx, "user-1", 50, models.TxnBonus, "sale bonus", "order-1", "order")
	require.NoError(t, err)

	_, err = ledger.AwardPoints(ctx, "user-1", 50, models.TxnBonus, "sale bonus", "order-1", "order")
	assert.ErrorIs(t, err, errs.ErrDuplicateTransaction)

	balance, err := ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	txs, err := ledger.ListTransactions(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	requireBalanceEqualsSum(t, store, "user-1")
}

func TestAwardPoints_SameReferenceDifferentType(t *testing.T) {
	// The dedup key includes the transaction type: an earned award and a
	// bonus award may share a reference.
	_, ledger := newLedger(t)
	ctx := context.Background()

	_, err := ledger.AwardPoints(ctx, "user-1", 10, models.TxnEarned, "listing reward", "item-1", "item")
	require.NoError(t, err)
	balance, err := ledger.AwardPoints(ctx, "user-1", 5, models.TxnBonus, "listing bonus", "item-1", "item")
	require.NoError(t, err)
	assert.Equal(t, int64(15), balance)
}

func TestDeductPoints_InsufficientBalance(t *testing.T) {
	store, ledger := newLedger(t)
	ctx := context.Background()

	_, err := ledger.AwardPoints(ctx, "user-1", 30, models.TxnEarned, "grant", "", "")
	require.NoError(t, err)

	_, err = ledger.DeductPoints(ctx, "user-1", 31, "too much", "", "")
	assert.ErrorIs(t, err, errs.ErrInsufficientBalance)

	// Nothing was persisted by the failed deduction.
	balance, err := ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), balance)
	txs, err := ledger.ListTransactions(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	requireBalanceEqualsSum(t, store, "user-1")
}

func TestDeductPoints_NeverBelowZero(t *testing.T) {
	_, ledger := newLedger(t)
	ctx := context.Background()

	_, err := ledger.DeductPoints(ctx, "user-1", 1, "empty account", "", "")
	assert.ErrorIs(t, err, errs.ErrInsufficientBalance)
}

func TestLedger_MixedOperationsKeepInvariant(t *testing.T) {
	store, ledger := newLedger(t)
	ctx := context.Background()

	_, err := ledger.AwardPoints(ctx, "user-1", 200, models.TxnEarned, "grant", "", "")
	require.NoError(t, err)
	_, err = ledger.DeductPoints(ctx, "user-1", 75, "spend", "", "")
	require.NoError(t, err)
	_, err = ledger.AwardPoints(ctx, "user-1", 20, models.TxnRefund, "refund", "order-9", "order")
	require.NoError(t, err)
	balance, err := ledger.DeductPoints(ctx, "user-1", 45, "spend again", "", "")
	require.NoError(t, err)

	assert.Equal(t, int64(100), balance)
	requireBalanceEqualsSum(t, store, "user-1")
}
