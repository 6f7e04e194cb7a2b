package repository

import (
	"context"

	"github.com/barterhub/backend/internal/models"
)

// Reader is the auto-commit read surface shared by the pool-backed store
// and by an open transaction.
type Reader interface {
	GetItem(ctx context.Context, id string) (models.Item, error)
	GetBalance(ctx context.Context, userID string) (models.Balance, error)
	GetSwap(ctx context.Context, id string) (models.Swap, error)
	ListSwapsByUser(ctx context.Context, userID string, limit, offset int) ([]models.Swap, error)
	ListTransactionsByUser(ctx context.Context, userID string, limit, offset int) ([]models.PointsTransaction, error)
	SumTransactionsByUser(ctx context.Context, userID string) (int64, error)
	GetOrder(ctx context.Context, id string) (models.Order, error)
	GetOption(ctx context.Context, id string) (models.RedemptionOption, error)
	ListActiveOptions(ctx context.Context) ([]models.RedemptionOption, error)
	ListRedemptionsByUser(ctx context.Context, userID string) ([]models.UserRedemption, error)
}

// Tx is one open transaction. The *ForUpdate reads take a row lock held
// until commit or rollback. Callers must follow the canonical lock order:
// item/option rows before balance rows, and balance rows in ascending
// user-id order.
type Tx interface {
	Reader

	GetItemForUpdate(ctx context.Context, id string) (models.Item, error)
	GetBalanceForUpdate(ctx context.Context, userID string) (models.Balance, error)
	GetSwapForUpdate(ctx context.Context, id string) (models.Swap, error)
	GetOptionForUpdate(ctx context.Context, id string) (models.RedemptionOption, error)

	AddToBalance(ctx context.Context, userID string, delta int64) (int64, error)
	InsertPointsTransaction(ctx context.Context, tx models.PointsTransaction) error
	HasPointsTransactionRef(ctx context.Context, userID, refID, refType string, typ models.PointsTransactionType) (bool, error)

	UpdateItemOwner(ctx context.Context, itemID, ownerID string, status models.ItemStatus) error
	InsertOrder(ctx context.Context, o models.Order) error

	InsertSwap(ctx context.Context, s models.Swap) error
	UpdateSwapStatus(ctx context.Context, swapID string, status models.SwapStatus) error
	HasPendingSwap(ctx context.Context, requesterID, offeredItemID, requestedItemID string) (bool, error)

	InsertOption(ctx context.Context, o models.RedemptionOption) error
	IncrementOptionRedeemed(ctx context.Context, optionID string) error
	CountUserRedemptions(ctx context.Context, userID, optionID string) (int64, error)
	InsertUserRedemption(ctx context.Context, r models.UserRedemption) error
	RewardCodeExists(ctx context.Context, code string) (bool, error)
}

// Store is the transactional store handle threaded through every core
// service. InTx runs fn inside one transaction: fn returning an error
// rolls back everything, otherwise the whole unit commits.
type Store interface {
	Reader
	InTx(ctx context.Context, fn func(Tx) error) error
}

type Users interface {
	Create(ctx context.Context, username, email, passwordHash, role string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
