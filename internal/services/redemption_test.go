package services_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barterhub/backend/internal/errs"
	"github.com/barterhub/backend/internal/models"
	"github.com/barterhub/backend/internal/repository/memory"
	"github.com/barterhub/backend/internal/services"
)

type redemptionEnv struct {
	store      *memory.Store
	ledger     *services.LedgerService
	redemption *services.RedemptionService
}

func newRedemptionEnv(t *testing.T) redemptionEnv {
	t.Helper()
	store := memory.NewStore()
	ledger := services.NewLedgerService(store)
	redemption := services.NewRedemptionService(store, ledger, store, nil, 30*24*time.Hour)
	return redemptionEnv{store: store, ledger: ledger, redemption: redemption}
}

func (e redemptionEnv) fund(t *testing.T, userID string, amount int64) {
	t.Helper()
	_, err := e.ledger.AwardPoints(context.Background(), userID, amount, models.TxnEarned, "test grant", "", "")
	require.NoError(t, err)
}

func int64p(v int64) *int64 { return &v }

func discountOption(id string) models.RedemptionOption {
	return models.RedemptionOption{
		ID:             id,
		Name:           "10% off",
		PointsRequired: 100,
		RewardType:     models.RewardDiscount,
		Active:         true,
	}
}

func TestRedeem_Succeeds(t *testing.T) {
	env := newRedemptionEnv(t)
	ctx := context.Background()

	env.fund(t, "user-1", 150)
	env.store.SeedOption(discountOption("opt-1"))

	before := time.Now()
	red, err := env.redemption.Redeem(ctx, "user-1", "opt-1")
	require.NoError(t, err)

	assert.NotEmpty(t, red.ID)
	assert.True(t, strings.HasPrefix(red.RewardCode, "DISC-"), "code %q must carry the type prefix", red.RewardCode)
	assert.Equal(t, int64(100), red.PointsUsed)
	assert.WithinDuration(t, before.Add(30*24*time.Hour), red.ExpiresAt, time.Minute)

	b, err := env.ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), b)
	requireBalanceEqualsSum(t, env.store, "user-1")

	opt, err := env.store.GetOption(ctx, "opt-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), opt.TotalRedeemed)

	mine, err := env.redemption.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, red.RewardCode, mine[0].RewardCode)
}

func TestRedeem_InsufficientPoints(t *testing.T) {
	env := newRedemptionEnv(t)
	ctx := context.Background()

	env.fund(t, "user-1", 99)
	env.store.SeedOption(discountOption("opt-1"))

	_, err := env.redemption.Redeem(ctx, "user-1", "opt-1")
	assert.ErrorIs(t, err, errs.ErrInsufficientPoints)

	// Failed redemption persists nothing.
	b, err := env.ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(99), b)
	opt, err := env.store.GetOption(ctx, "opt-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), opt.TotalRedeemed)
}

func TestRedeem_InactiveAndExpired(t *testing.T) {
	env := newRedemptionEnv(t)
	ctx := context.Background()
	env.fund(t, "user-1", 500)

	inactive := discountOption("opt-inactive")
	inactive.Active = false
	env.store.SeedOption(inactive)

	past := time.Now().Add(-time.Hour)
	expired := discountOption("opt-expired")
	expired.ExpiresAt = &past
	env.store.SeedOption(expired)

	_, err := env.redemption.Redeem(ctx, "user-1", "opt-inactive")
	assert.ErrorIs(t, err, errs.ErrOptionInactive)

	_, err = env.redemption.Redeem(ctx, "user-1", "opt-expired")
	assert.ErrorIs(t, err, errs.ErrOptionExpired)

	_, err = env.redemption.Redeem(ctx, "user-1", "opt-missing")
	assert.ErrorIs(t, err, errs.ErrOptionNotFound)
}

func TestRedeem_PerUserLimit(t *testing.T) {
	env := newRedemptionEnv(t)
	ctx := context.Background()

	env.fund(t, "user-1", 500)
	opt := discountOption("opt-1")
	opt.MaxPerUser = int64p(1)
	env.store.SeedOption(opt)

	_, err := env.redemption.Redeem(ctx, "user-1", "opt-1")
	require.NoError(t, err)

	_, err = env.redemption.Redeem(ctx, "user-1", "opt-1")
	assert.ErrorIs(t, err, errs.ErrLimitReached)
}

func TestRedeem_LastUnitRace(t *testing.T) {
	// A capped option with one unit left and two concurrent redeemers:
	// exactly one wins, the other sees SoldOut.
	env := newRedemptionEnv(t)
	ctx := context.Background()

	env.fund(t, "user-a", 200)
	env.fund(t, "user-b", 200)
	opt := discountOption("opt-1")
	opt.TotalAvailable = int64p(1)
	env.store.SeedOption(opt)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, user := range []string{"user-a", "user-b"} {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			_, err := env.redemption.Redeem(ctx, user, "opt-1")
			results <- err
		}(user)
	}
	wg.Wait()
	close(results)

	var ok, soldOut int
	for err := range results {
		if err == nil {
			ok++
		} else {
			soldOut++
			assert.ErrorIs(t, err, errs.ErrSoldOut)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, soldOut)

	got, err := env.store.GetOption(ctx, "opt-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.TotalRedeemed)
}

func TestListAvailable_FiltersUnusable(t *testing.T) {
	env := newRedemptionEnv(t)
	ctx := context.Background()

	env.store.SeedOption(discountOption("opt-live"))

	inactive := discountOption("opt-inactive")
	inactive.Active = false
	env.store.SeedOption(inactive)

	past := time.Now().Add(-time.Hour)
	expired := discountOption("opt-expired")
	expired.ExpiresAt = &past
	env.store.SeedOption(expired)

	exhausted := discountOption("opt-exhausted")
	exhausted.TotalAvailable = int64p(2)
	exhausted.TotalRedeemed = 2
	env.store.SeedOption(exhausted)

	opts, err := env.redemption.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, "opt-live", opts[0].ID)
}

func TestCreateOption_RequiresPositiveCost(t *testing.T) {
	env := newRedemptionEnv(t)
	opt := discountOption("")
	opt.PointsRequired = 0

	_, err := env.redemption.CreateOption(context.Background(), opt)
	assert.ErrorIs(t, err, errs.ErrInvalidAmount)

	opt.PointsRequired = 40
	created, err := env.redemption.CreateOption(context.Background(), opt)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}
