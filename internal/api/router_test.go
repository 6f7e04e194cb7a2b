package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barterhub/backend/internal/api"
	"github.com/barterhub/backend/internal/auth"
	"github.com/barterhub/backend/internal/config"
	"github.com/barterhub/backend/internal/middleware"
	"github.com/barterhub/backend/internal/models"
	"github.com/barterhub/backend/internal/repository/memory"
	"github.com/barterhub/backend/internal/services"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store, *services.LedgerService) {
	t.Helper()
	cfg := config.Config{Env: "dev", RateRPS: 1000}
	store := memory.NewStore()
	ledger := services.NewLedgerService(store)
	exchange := services.NewExchangeService(store, ledger, store, nil,
		decimal.RequireFromString("0.10"), 25)
	redemption := services.NewRedemptionService(store, ledger, store, nil, 30*24*time.Hour)
	tm := auth.NewTokenManager("access", "refresh", time.Minute, time.Hour)

	h := api.NewRouter(api.RouterDeps{
		Cfg:        cfg,
		Auth:       middleware.NewAuthMiddleware(tm, cfg.Env),
		Users:      services.NewUserService(nil, tm),
		Ledger:     ledger,
		Exchange:   exchange,
		Redemption: redemption,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, store, ledger
}

func doJSON(t *testing.T, method, url, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestRouter_RequiresAuth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/points/balance", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", body["code"])
}

func TestRouter_PurchaseFlow(t *testing.T) {
	srv, store, ledger := newTestServer(t)
	ctx := context.Background()

	_, err := ledger.AwardPoints(ctx, "buyer", 100, models.TxnEarned, "grant", "", "")
	require.NoError(t, err)
	store.SeedItem(models.Item{ID: "item-1", OwnerID: "seller", Title: "camera", Price: decimal.NewFromInt(80)})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/items/item-1/purchase",
		"dev-buyer", `{"points_offered": 80}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 20, body["remaining_points"])
	assert.EqualValues(t, 8, body["seller_bonus"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/points/balance", "dev-buyer", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 20, body["balance"])
}

func TestRouter_BusinessErrorsMapToStatusCodes(t *testing.T) {
	srv, store, _ := newTestServer(t)
	store.SeedItem(models.Item{ID: "item-1", OwnerID: "seller", Title: "camera", Price: decimal.NewFromInt(80)})

	// Broke buyer: conflict.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/items/item-1/purchase",
		"dev-broke", `{"points_offered": 80}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "insufficient_balance", body["code"])

	// Unknown item: not found.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/items/nope/purchase",
		"dev-broke", `{"points_offered": 80}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "item_not_found", body["code"])

	// Wrong offer: validation.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/items/item-1/purchase",
		"dev-broke", `{"points_offered": 10}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "amount_mismatch", body["code"])
}

func TestRouter_SwapResolveAuthorization(t *testing.T) {
	srv, store, _ := newTestServer(t)
	store.SeedItem(models.Item{ID: "item-a", OwnerID: "alice", Title: "guitar", Price: decimal.NewFromInt(40)})
	store.SeedItem(models.Item{ID: "item-b", OwnerID: "bob", Title: "keys", Price: decimal.NewFromInt(60)})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/swaps",
		"dev-alice", `{"offered_item_id":"item-a","requested_item_id":"item-b"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	swapID := body["id"].(string)

	// A third party may not resolve.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/swaps/"+swapID+"/resolve",
		"dev-mallory", `{"action":"accept"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "not_authorized", body["code"])

	// The target may.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/swaps/"+swapID+"/resolve",
		"dev-bob", `{"action":"accept"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", body["status"])
}

func TestRouter_AdminGuard(t *testing.T) {
	srv, _, _ := newTestServer(t)

	// Dev tokens carry the plain user role.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/points/award",
		"dev-alice", `{"user_id":"bob","amount":10}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", body["code"])
}

func TestRouter_RedeemFlow(t *testing.T) {
	srv, store, ledger := newTestServer(t)
	ctx := context.Background()

	_, err := ledger.AwardPoints(ctx, "alice", 150, models.TxnEarned, "grant", "", "")
	require.NoError(t, err)
	store.SeedOption(models.RedemptionOption{
		ID: "opt-1", Name: "10% off", PointsRequired: 100,
		RewardType: models.RewardDiscount, Active: true,
	})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/redemptions",
		"dev-alice", `{"option_id":"opt-1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	code, _ := body["reward_code"].(string)
	assert.True(t, strings.HasPrefix(code, "DISC-"))

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/redemptions",
		"dev-alice", `{"option_id":"opt-1"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "insufficient_points", body["code"])
}
