package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/barterhub/backend/internal/errs"
	"github.com/barterhub/backend/internal/metrics"
	"github.com/barterhub/backend/internal/models"
	repo "github.com/barterhub/backend/internal/repository"
)

// LedgerService owns the append-only points ledger and the denormalized
// balance cache. Every balance mutation in the system goes through here,
// so balance == sum(transactions) holds at every commit point.
type LedgerService struct {
	store repo.Store
}

func NewLedgerService(store repo.Store) *LedgerService {
	return &LedgerService{store: store}
}

// AwardPoints credits amount to the user in its own transaction.
// A (refID, refType, type) reference that was already credited returns
// ErrDuplicateTransaction instead of crediting twice.
func (s *LedgerService) AwardPoints(ctx context.Context, userID string, amount int64, typ models.PointsTransactionType, description string, refID, refType string) (int64, error) {
	var newBalance int64
	err := s.store.InTx(ctx, func(tx repo.Tx) error {
		var err error
		newBalance, err = s.AwardPointsTx(ctx, tx, userID, amount, typ, description, refID, refType)
		return err
	})
	return newBalance, err
}

// AwardPointsTx is AwardPoints inside an already-open transaction. The
// exchange and redemption flows use it so the ledger write commits or
// rolls back with the rest of their unit.
func (s *LedgerService) AwardPointsTx(ctx context.Context, tx repo.Tx, userID string, amount int64, typ models.PointsTransactionType, description string, refID, refType string) (int64, error) {
	if amount <= 0 {
		return 0, errs.ErrInvalidAmount
	}
	// Balance row lock first: the duplicate check and the write must be
	// atomic with respect to a concurrent retry of the same award.
	if _, err := tx.GetBalanceForUpdate(ctx, userID); err != nil {
		return 0, err
	}
	if err := s.checkDuplicate(ctx, tx, userID, refID, refType, typ); err != nil {
		return 0, err
	}
	if err := tx.InsertPointsTransaction(ctx, models.PointsTransaction{
		ID:            uuid.NewString(),
		UserID:        userID,
		Amount:        amount,
		Type:          typ,
		Description:   description,
		ReferenceID:   optStr(refID),
		ReferenceType: optStr(refType),
	}); err != nil {
		return 0, err
	}
	newBalance, err := tx.AddToBalance(ctx, userID, amount)
	if err != nil {
		return 0, err
	}
	metrics.LedgerWrites.WithLabelValues(string(typ)).Inc()
	return newBalance, nil
}

// DeductPoints debits amount from the user in its own transaction.
func (s *LedgerService) DeductPoints(ctx context.Context, userID string, amount int64, description string, refID, refType string) (int64, error) {
	var newBalance int64
	err := s.store.InTx(ctx, func(tx repo.Tx) error {
		var err error
		newBalance, err = s.DeductPointsTx(ctx, tx, userID, amount, description, refID, refType)
		return err
	})
	return newBalance, err
}

// DeductPointsTx checks the balance while holding the balance row lock,
// so a concurrent deduction cannot race past the check.
func (s *LedgerService) DeductPointsTx(ctx context.Context, tx repo.Tx, userID string, amount int64, description string, refID, refType string) (int64, error) {
	if amount <= 0 {
		return 0, errs.ErrInvalidAmount
	}
	b, err := tx.GetBalanceForUpdate(ctx, userID)
	if err != nil {
		return 0, err
	}
	if b.Amount < amount {
		return 0, errs.ErrInsufficientBalance
	}
	if err := s.checkDuplicate(ctx, tx, userID, refID, refType, models.TxnRedeemed); err != nil {
		return 0, err
	}
	if err := tx.InsertPointsTransaction(ctx, models.PointsTransaction{
		ID:            uuid.NewString(),
		UserID:        userID,
		Amount:        -amount,
		Type:          models.TxnRedeemed,
		Description:   description,
		ReferenceID:   optStr(refID),
		ReferenceType: optStr(refType),
	}); err != nil {
		return 0, err
	}
	newBalance, err := tx.AddToBalance(ctx, userID, -amount)
	if err != nil {
		return 0, err
	}
	metrics.LedgerWrites.WithLabelValues(string(models.TxnRedeemed)).Inc()
	return newBalance, nil
}

func (s *LedgerService) GetBalance(ctx context.Context, userID string) (int64, error) {
	b, err := s.store.GetBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	return b.Amount, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.PointsTransaction, error) {
	return s.store.ListTransactionsByUser(ctx, userID, limit, offset)
}

func (s *LedgerService) checkDuplicate(ctx context.Context, tx repo.Tx, userID, refID, refType string, typ models.PointsTransactionType) error {
	if refID == "" || refType == "" {
		return nil
	}
	exists, err := tx.HasPointsTransactionRef(ctx, userID, refID, refType, typ)
	if err != nil {
		return err
	}
	if exists {
		return errs.ErrDuplicateTransaction
	}
	return nil
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
