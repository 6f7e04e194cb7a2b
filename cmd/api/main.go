package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/barterhub/backend/internal/api"
	"github.com/barterhub/backend/internal/auth"
	"github.com/barterhub/backend/internal/config"
	"github.com/barterhub/backend/internal/db"
	"github.com/barterhub/backend/internal/logger"
	"github.com/barterhub/backend/internal/metrics"
	"github.com/barterhub/backend/internal/middleware"
	"github.com/barterhub/backend/internal/repository/postgres"
	"github.com/barterhub/backend/internal/services"
	"github.com/barterhub/backend/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	metrics.Init()

	store := postgres.NewStore(pool)
	users := postgres.NewUsers(pool)
	auditLogs := postgres.NewAuditLogs(pool)

	wp := worker.NewPool(4)
	defer wp.Stop()

	tm := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)

	ledgerSvc := services.NewLedgerService(store)
	exchangeSvc := services.NewExchangeService(store, ledgerSvc, auditLogs, wp, cfg.SellerBonusRate, cfg.SwapBonusPoints)
	redemptionSvc := services.NewRedemptionService(store, ledgerSvc, auditLogs, wp, cfg.RedemptionTTL)
	userSvc := services.NewUserService(users, tm)

	r := api.NewRouter(api.RouterDeps{
		Cfg:        cfg,
		Auth:       middleware.NewAuthMiddleware(tm, cfg.Env),
		Users:      userSvc,
		Ledger:     ledgerSvc,
		Exchange:   exchangeSvc,
		Redemption: redemptionSvc,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
