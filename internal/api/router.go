package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/barterhub/backend/internal/api/handlers"
	"github.com/barterhub/backend/internal/api/httpx"
	"github.com/barterhub/backend/internal/config"
	"github.com/barterhub/backend/internal/metrics"
	"github.com/barterhub/backend/internal/middleware"
	"github.com/barterhub/backend/internal/models"
	"github.com/barterhub/backend/internal/services"
)

type RouterDeps struct {
	Cfg        config.Config
	Auth       *middleware.AuthMiddleware
	Users      *services.UserService
	Ledger     *services.LedgerService
	Exchange   *services.ExchangeService
	Redemption *services.RedemptionService
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	ah := handlers.NewAuthHandler(d.Users)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", ah.Register)
		r.Post("/auth/login", ah.Login)

		r.Group(func(r chi.Router) {
			r.Use(d.Auth.Auth)

			// ---------- points ----------
			r.Get("/points/balance", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				balance, err := d.Ledger.GetBalance(r.Context(), uid)
				if err != nil {
					httpx.WriteErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, map[string]int64{"balance": balance})
			})

			r.Get("/points/transactions", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				limit, offset := pageParams(r, 50)
				txs, err := d.Ledger.ListTransactions(r.Context(), uid, limit, offset)
				if err != nil {
					httpx.WriteErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, txs)
			})

			r.With(middleware.RequireRole("admin")).Post("/points/award", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					UserID        string `json:"user_id"`
					Amount        int64  `json:"amount"`
					Type          string `json:"type"`
					Description   string `json:"description"`
					ReferenceID   string `json:"reference_id"`
					ReferenceType string `json:"reference_type"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "user_id and amount required", nil)
					return
				}
				typ := models.PointsTransactionType(req.Type)
				switch typ {
				case models.TxnEarned, models.TxnBonus, models.TxnRefund:
				case "":
					typ = models.TxnEarned
				default:
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "unsupported award type", nil)
					return
				}
				refType := req.ReferenceType
				if refType == "" && req.ReferenceID != "" {
					refType = "admin_grant"
				}
				balance, err := d.Ledger.AwardPoints(r.Context(), req.UserID, req.Amount, typ, req.Description, req.ReferenceID, refType)
				if err != nil {
					httpx.WriteErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, map[string]int64{"new_balance": balance})
			})

			// ---------- items & purchase ----------
			r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
				it, err := d.Exchange.GetItem(r.Context(), chi.URLParam(r, "id"))
				if err != nil {
					httpx.WriteErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, it)
			})

			r.Post("/items/{id}/purchase", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				var req struct {
					PointsOffered int64 `json:"points_offered"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
					return
				}
				res, err := d.Exchange.PurchaseWithPoints(r.Context(), uid, chi.URLParam(r, "id"), req.PointsOffered)
				if err != nil {
					httpx.WriteErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, res)
			})

			r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
				o, err := d.Exchange.GetOrder(r.Context(), chi.URLParam(r, "id"))
				if err != nil {
					httpx.WriteErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, o)
			})

			// ---------- swaps ----------
			r.Post("/swaps", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				var req struct {
					OfferedItemID   string `json:"offered_item_id"`
					RequestedItemID string `json:"requested_item_id"`
					Message         string `json:"message"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OfferedItemID == "" || req.RequestedItemID == "" {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "offered_item_id and requested_item_id required", nil)
					return
				}
				swap, err := d.Exchange.CreateSwap(r.Context(), uid, req.OfferedItemID, req.RequestedItemID, req.Message)
				if err != nil {
					httpx.WriteErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, swap)
			})

			r.Get("/swaps", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				limit, offset := pageParams(r, 50)
				swaps, err := d.Exchange.ListSwaps(r.Context(), uid, limit, offset)
				if err != nil {
					httpx.WriteErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, swaps)
			})

			r.Get("/swaps/{id}", func(w http.ResponseWriter, r *http.Request) {
				swap, err := d.Exchange.GetSwap(r.Context(), chi.URLParam(r, "id"))
				if err != nil {
					httpx.WriteErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, swap)
			})

			r.Post("/swaps/{id}/resolve", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				var req struct {
					Action string `json:"action"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.Action != "accept" && req.Action != "reject") {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "action must be accept or reject", nil)
					return
				}
				res, err := d.Exchange.ResolveSwap(r.Context(), chi.URLParam(r, "id"), uid, req.Action)
				if err != nil {
					httpx.WriteErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, res)
			})

			r.Post("/swaps/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				res, err := d.Exchange.CancelSwap(r.Context(), chi.URLParam(r, "id"), uid)
				if err != nil {
					httpx.WriteErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, res)
			})

			// ---------- redemptions ----------
			r.Get("/redemptions/options", func(w http.ResponseWriter, r *http.Request) {
				opts, err := d.Redemption.ListAvailable(r.Context())
				if err != nil {
					httpx.WriteErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, opts)
			})

			r.With(middleware.RequireRole("admin")).Post("/redemptions/options", func(w http.ResponseWriter, r *http.Request) {
				var opt models.RedemptionOption
				if err := json.NewDecoder(r.Body).Decode(&opt); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
					return
				}
				created, err := d.Redemption.CreateOption(r.Context(), opt)
				if err != nil {
					httpx.WriteErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, created)
			})

			r.Post("/redemptions", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				var req struct {
					OptionID string `json:"option_id"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OptionID == "" {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "option_id required", nil)
					return
				}
				red, err := d.Redemption.Redeem(r.Context(), uid, req.OptionID)
				if err != nil {
					httpx.WriteErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, red)
			})

			r.Get("/redemptions", func(w http.ResponseWriter, r *http.Request) {
				uid, _ := middleware.UserID(r.Context())
				reds, err := d.Redemption.ListByUser(r.Context(), uid)
				if err != nil {
					httpx.WriteErr(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, reds)
			})
		})
	})

	return r
}

func pageParams(r *http.Request, defLimit int) (limit, offset int) {
	limit = defLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
