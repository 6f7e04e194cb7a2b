package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/barterhub/backend/internal/errs"
	"github.com/barterhub/backend/internal/metrics"
	"github.com/barterhub/backend/internal/models"
	repo "github.com/barterhub/backend/internal/repository"
	"github.com/barterhub/backend/internal/worker"
)

// codeAttempts bounds reward-code regeneration on collision.
const codeAttempts = 5

// RedemptionService converts points into reward codes against a catalog
// of limited-availability options.
type RedemptionService struct {
	store  repo.Store
	ledger *LedgerService
	logs   repo.AuditLogs
	wp     *worker.Pool

	ttl time.Duration
	now func() time.Time

	// newCode is swappable in tests to force collisions.
	newCode func(models.RedemptionOption) string
}

func NewRedemptionService(store repo.Store, ledger *LedgerService, logs repo.AuditLogs, wp *worker.Pool, ttl time.Duration) *RedemptionService {
	return &RedemptionService{
		store:   store,
		ledger:  ledger,
		logs:    logs,
		wp:      wp,
		ttl:     ttl,
		now:     time.Now,
		newCode: generateRewardCode,
	}
}

func (s *RedemptionService) ListAvailable(ctx context.Context) ([]models.RedemptionOption, error) {
	return s.store.ListActiveOptions(ctx)
}

func (s *RedemptionService) ListByUser(ctx context.Context, userID string) ([]models.UserRedemption, error) {
	return s.store.ListRedemptionsByUser(ctx, userID)
}

// CreateOption adds a redemption option to the catalog (admin surface).
func (s *RedemptionService) CreateOption(ctx context.Context, o models.RedemptionOption) (models.RedemptionOption, error) {
	if o.PointsRequired <= 0 {
		return models.RedemptionOption{}, errs.ErrInvalidAmount
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	err := s.store.InTx(ctx, func(tx repo.Tx) error {
		return tx.InsertOption(ctx, o)
	})
	if err != nil {
		return models.RedemptionOption{}, err
	}
	return s.store.GetOption(ctx, o.ID)
}

// Redeem converts points into one reward code. One transaction, locking
// the option row before the user's balance row; any failure before commit
// persists nothing.
func (s *RedemptionService) Redeem(ctx context.Context, userID, optionID string) (models.UserRedemption, error) {
	var redemption models.UserRedemption
	err := s.store.InTx(ctx, func(tx repo.Tx) error {
		opt, err := tx.GetOptionForUpdate(ctx, optionID)
		if err != nil {
			return err
		}
		if !opt.Active {
			return errs.ErrOptionInactive
		}
		if opt.Expired(s.now()) {
			return errs.ErrOptionExpired
		}
		b, err := tx.GetBalanceForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if b.Amount < opt.PointsRequired {
			return errs.ErrInsufficientPoints
		}
		if opt.SoldOut() {
			return errs.ErrSoldOut
		}
		if opt.MaxPerUser != nil {
			n, err := tx.CountUserRedemptions(ctx, userID, optionID)
			if err != nil {
				return err
			}
			if n >= *opt.MaxPerUser {
				return errs.ErrLimitReached
			}
		}

		code, err := s.uniqueCode(ctx, tx, opt)
		if err != nil {
			return err
		}

		redemption = models.UserRedemption{
			ID:         uuid.NewString(),
			UserID:     userID,
			OptionID:   optionID,
			PointsUsed: opt.PointsRequired,
			RewardCode: code,
			ExpiresAt:  s.now().Add(s.ttl),
		}
		if _, err := s.ledger.DeductPointsTx(ctx, tx, userID, opt.PointsRequired,
			"redeemed "+opt.Name, redemption.ID, "redemption"); err != nil {
			return err
		}
		if err := tx.InsertUserRedemption(ctx, redemption); err != nil {
			return err
		}
		return tx.IncrementOptionRedeemed(ctx, optionID)
	})
	if err != nil {
		metrics.RedemptionFailures.Inc()
		return models.UserRedemption{}, err
	}
	metrics.Redemptions.Inc()
	s.audit(redemption.ID, "redeemed", map[string]any{
		"user_id": userID, "option_id": optionID, "points": redemption.PointsUsed,
	})
	return redemption, nil
}

// uniqueCode regenerates on collision; code uniqueness is probabilistic
// and must be verified against the store before insert.
func (s *RedemptionService) uniqueCode(ctx context.Context, tx repo.Tx, opt models.RedemptionOption) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := s.newCode(opt)
		exists, err := tx.RewardCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", errs.ErrCodeCollision
}

func (s *RedemptionService) audit(entityID, action string, details map[string]any) {
	if s.logs == nil {
		return
	}
	l := models.AuditLog{EntityType: "redemption", EntityID: &entityID, Action: action, Details: details}
	if s.wp == nil {
		_ = s.logs.Create(context.Background(), l)
		return
	}
	s.wp.Submit(func() {
		if err := s.logs.Create(context.Background(), l); err != nil {
			slog.Error("audit write", "action", action, "err", err)
		}
	})
}
