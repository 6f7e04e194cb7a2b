package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barterhub/backend/internal/errs"
	"github.com/barterhub/backend/internal/metrics"
	"github.com/barterhub/backend/internal/models"
	repo "github.com/barterhub/backend/internal/repository"
	"github.com/barterhub/backend/internal/worker"
)

// ExchangeService orchestrates the two ownership-transfer flows: direct
// points purchase and peer-to-peer swap. Each flow runs as one store
// transaction; the catalog mutation and the ledger writes commit or roll
// back together.
type ExchangeService struct {
	store  repo.Store
	ledger *LedgerService
	logs   repo.AuditLogs
	wp     *worker.Pool

	sellerBonusRate decimal.Decimal
	swapBonus       int64
}

func NewExchangeService(store repo.Store, ledger *LedgerService, logs repo.AuditLogs, wp *worker.Pool, sellerBonusRate decimal.Decimal, swapBonus int64) *ExchangeService {
	return &ExchangeService{
		store:           store,
		ledger:          ledger,
		logs:            logs,
		wp:              wp,
		sellerBonusRate: sellerBonusRate,
		swapBonus:       swapBonus,
	}
}

type PurchaseResult struct {
	OrderID         string `json:"order_id"`
	RemainingPoints int64  `json:"remaining_points"`
	SellerBonus     int64  `json:"seller_bonus"`
	Warning         string `json:"warning,omitempty"`
}

// PurchaseWithPoints transfers itemID to buyerID for exactly the item's
// whole-point price. Either everything commits (ownership, order receipt,
// deduction, seller bonus) or nothing does.
func (s *ExchangeService) PurchaseWithPoints(ctx context.Context, buyerID, itemID string, pointsOffered int64) (PurchaseResult, error) {
	// Business-rule validation on a plain read, before any lock.
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return PurchaseResult{}, err
	}
	if item.Status != models.ItemActive {
		return PurchaseResult{}, errs.ErrItemNotFound
	}
	if item.OwnerID == buyerID {
		return PurchaseResult{}, errs.ErrSelfTrade
	}
	if pointsOffered != item.PointsPrice() {
		return PurchaseResult{}, errs.ErrAmountMismatch
	}

	var res PurchaseResult
	err = s.store.InTx(ctx, func(tx repo.Tx) error {
		// Item row first, then balance rows; re-check everything under lock.
		item, err := tx.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if item.Status != models.ItemActive {
			return errs.ErrItemNotFound
		}
		if item.OwnerID == buyerID {
			return errs.ErrSelfTrade
		}
		required := item.PointsPrice()
		if pointsOffered != required {
			return errs.ErrAmountMismatch
		}
		sellerID := item.OwnerID
		if err := lockBalances(ctx, tx, buyerID, sellerID); err != nil {
			return err
		}
		b, err := tx.GetBalanceForUpdate(ctx, buyerID)
		if err != nil {
			return err
		}
		if b.Amount < required {
			return errs.ErrInsufficientBalance
		}

		if err := tx.UpdateItemOwner(ctx, itemID, buyerID, models.ItemSold); err != nil {
			return err
		}

		bonus := item.Price.Mul(s.sellerBonusRate).Ceil().IntPart()
		order := models.Order{
			ID:          uuid.NewString(),
			ItemID:      itemID,
			BuyerID:     buyerID,
			SellerID:    sellerID,
			PointsSpent: required,
			SellerBonus: bonus,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		remaining, err := s.ledger.DeductPointsTx(ctx, tx, buyerID, required,
			"purchase of "+item.Title, order.ID, "order")
		if err != nil {
			return err
		}

		res = PurchaseResult{OrderID: order.ID, RemainingPoints: remaining, SellerBonus: bonus}
		if bonus > 0 {
			_, err := s.ledger.AwardPointsTx(ctx, tx, sellerID, bonus, models.TxnBonus,
				"sale bonus for "+item.Title, order.ID, "order")
			if errors.Is(err, errs.ErrDuplicateTransaction) {
				// Replayed bonus: the sale still stands, the seller just
				// isn't credited twice.
				slog.Warn("seller bonus already awarded", "order_id", order.ID, "seller_id", sellerID)
				res.SellerBonus = 0
				res.Warning = "seller_bonus_skipped"
				return nil
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		metrics.ExchangeFailures.WithLabelValues("purchase").Inc()
		return PurchaseResult{}, err
	}
	metrics.Exchanges.WithLabelValues("purchase").Inc()
	s.audit("order", res.OrderID, "purchase_completed", map[string]any{
		"item_id": itemID, "buyer_id": buyerID, "points": pointsOffered,
	})
	return res, nil
}

// CreateSwap proposes trading the requester's offeredItemID for the
// current owner of requestedItemID. The target is fixed at creation time.
func (s *ExchangeService) CreateSwap(ctx context.Context, requesterID, offeredItemID, requestedItemID, message string) (models.Swap, error) {
	if offeredItemID == requestedItemID {
		return models.Swap{}, errs.ErrSelfTrade
	}
	var swap models.Swap
	err := s.store.InTx(ctx, func(tx repo.Tx) error {
		if err := lockItems(ctx, tx, offeredItemID, requestedItemID); err != nil {
			return err
		}
		offered, err := tx.GetItemForUpdate(ctx, offeredItemID)
		if err != nil {
			return err
		}
		requested, err := tx.GetItemForUpdate(ctx, requestedItemID)
		if err != nil {
			return err
		}
		if offered.OwnerID != requesterID {
			return errs.ErrNotOwner
		}
		if requested.OwnerID == requesterID {
			return errs.ErrSelfTrade
		}
		if offered.Status != models.ItemActive || requested.Status != models.ItemActive {
			return errs.ErrItemNotFound
		}
		dup, err := tx.HasPendingSwap(ctx, requesterID, offeredItemID, requestedItemID)
		if err != nil {
			return err
		}
		if dup {
			return errs.ErrDuplicatePending
		}
		swap = models.Swap{
			ID:              uuid.NewString(),
			RequesterID:     requesterID,
			OfferedItemID:   offeredItemID,
			TargetID:        requested.OwnerID,
			RequestedItemID: requestedItemID,
			Status:          models.SwapPending,
			Message:         message,
		}
		if err := tx.InsertSwap(ctx, swap); err != nil {
			return err
		}
		swap, err = tx.GetSwap(ctx, swap.ID)
		return err
	})
	if err != nil {
		return models.Swap{}, err
	}
	s.audit("swap", swap.ID, "swap_created", map[string]any{
		"requester_id": requesterID, "target_id": swap.TargetID,
	})
	return swap, nil
}

type SwapResolution struct {
	Status  models.SwapStatus `json:"status"`
	Warning string            `json:"warning,omitempty"`
}

// ResolveSwap lets the target accept or reject a pending swap. Accept
// performs the pair ownership transfer in the same transaction; if the
// transfer cannot be applied the swap stays pending, never stuck in
// accepted. Reject is idempotent on an already-rejected swap.
func (s *ExchangeService) ResolveSwap(ctx context.Context, swapID, callerID, action string) (SwapResolution, error) {
	var res SwapResolution
	err := s.store.InTx(ctx, func(tx repo.Tx) error {
		swap, err := tx.GetSwapForUpdate(ctx, swapID)
		if err != nil {
			return err
		}
		if swap.TargetID != callerID {
			return errs.ErrNotAuthorized
		}
		switch action {
		case "reject":
			if swap.Status == models.SwapRejected {
				res = SwapResolution{Status: models.SwapRejected}
				return nil
			}
			if swap.Status != models.SwapPending {
				return errs.ErrSwapResolved
			}
			if err := tx.UpdateSwapStatus(ctx, swapID, models.SwapRejected); err != nil {
				return err
			}
			res = SwapResolution{Status: models.SwapRejected}
			return nil
		case "accept":
			if swap.Status != models.SwapPending {
				return errs.ErrSwapResolved
			}
			return s.acceptSwap(ctx, tx, swap, &res)
		default:
			return errs.ErrNotAuthorized
		}
	})
	if err != nil {
		if errors.Is(err, errs.ErrTransferFailed) {
			metrics.ExchangeFailures.WithLabelValues("swap").Inc()
			s.audit("swap", swapID, "swap_transfer_failed", nil)
		}
		return SwapResolution{}, err
	}
	if res.Status == models.SwapCompleted {
		metrics.Exchanges.WithLabelValues("swap").Inc()
	}
	s.audit("swap", swapID, "swap_"+string(res.Status), map[string]any{"caller_id": callerID})
	return res, nil
}

// acceptSwap runs inside the resolve transaction. Rolling the transaction
// back on a failed transfer is what reverts accepted to pending: the
// status write and the ownership writes are one unit.
func (s *ExchangeService) acceptSwap(ctx context.Context, tx repo.Tx, swap models.Swap, res *SwapResolution) error {
	if err := tx.UpdateSwapStatus(ctx, swap.ID, models.SwapAccepted); err != nil {
		return err
	}
	if err := lockItems(ctx, tx, swap.OfferedItemID, swap.RequestedItemID); err != nil {
		return errs.ErrTransferFailed
	}
	offered, err := tx.GetItemForUpdate(ctx, swap.OfferedItemID)
	if err != nil {
		return errs.ErrTransferFailed
	}
	requested, err := tx.GetItemForUpdate(ctx, swap.RequestedItemID)
	if err != nil {
		return errs.ErrTransferFailed
	}
	// Ownership may have moved since the swap was proposed.
	if offered.OwnerID != swap.RequesterID || requested.OwnerID != swap.TargetID {
		return errs.ErrTransferFailed
	}
	if offered.Status != models.ItemActive || requested.Status != models.ItemActive {
		return errs.ErrTransferFailed
	}
	if err := tx.UpdateItemOwner(ctx, swap.OfferedItemID, swap.TargetID, models.ItemActive); err != nil {
		return errs.ErrTransferFailed
	}
	if err := tx.UpdateItemOwner(ctx, swap.RequestedItemID, swap.RequesterID, models.ItemActive); err != nil {
		return errs.ErrTransferFailed
	}
	if err := tx.UpdateSwapStatus(ctx, swap.ID, models.SwapCompleted); err != nil {
		return err
	}
	*res = SwapResolution{Status: models.SwapCompleted}

	if s.swapBonus > 0 {
		if err := lockBalances(ctx, tx, swap.RequesterID, swap.TargetID); err != nil {
			return err
		}
		for _, uid := range []string{swap.RequesterID, swap.TargetID} {
			_, err := s.ledger.AwardPointsTx(ctx, tx, uid, s.swapBonus, models.TxnBonus,
				"swap completion bonus", swap.ID, "swap")
			if errors.Is(err, errs.ErrDuplicateTransaction) {
				slog.Warn("swap bonus already awarded", "swap_id", swap.ID, "user_id", uid)
				res.Warning = "swap_bonus_skipped"
				continue
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// CancelSwap lets the requester withdraw a swap that is still pending.
func (s *ExchangeService) CancelSwap(ctx context.Context, swapID, callerID string) (SwapResolution, error) {
	var res SwapResolution
	err := s.store.InTx(ctx, func(tx repo.Tx) error {
		swap, err := tx.GetSwapForUpdate(ctx, swapID)
		if err != nil {
			return err
		}
		if swap.RequesterID != callerID {
			return errs.ErrNotAuthorized
		}
		if swap.Status == models.SwapCancelled {
			res = SwapResolution{Status: models.SwapCancelled}
			return nil
		}
		if swap.Status != models.SwapPending {
			return errs.ErrSwapResolved
		}
		if err := tx.UpdateSwapStatus(ctx, swapID, models.SwapCancelled); err != nil {
			return err
		}
		res = SwapResolution{Status: models.SwapCancelled}
		return nil
	})
	if err != nil {
		return SwapResolution{}, err
	}
	s.audit("swap", swapID, "swap_cancelled", map[string]any{"caller_id": callerID})
	return res, nil
}

func (s *ExchangeService) GetSwap(ctx context.Context, id string) (models.Swap, error) {
	return s.store.GetSwap(ctx, id)
}

func (s *ExchangeService) ListSwaps(ctx context.Context, userID string, limit, offset int) ([]models.Swap, error) {
	return s.store.ListSwapsByUser(ctx, userID, limit, offset)
}

func (s *ExchangeService) GetItem(ctx context.Context, id string) (models.Item, error) {
	return s.store.GetItem(ctx, id)
}

func (s *ExchangeService) GetOrder(ctx context.Context, id string) (models.Order, error) {
	return s.store.GetOrder(ctx, id)
}

// audit writes happen after commit and off the request path; losing one
// never affects a committed exchange.
func (s *ExchangeService) audit(entityType, entityID, action string, details map[string]any) {
	if s.logs == nil {
		return
	}
	l := models.AuditLog{EntityType: entityType, EntityID: &entityID, Action: action, Details: details}
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
