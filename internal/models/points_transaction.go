package models

import "time"

type PointsTransactionType string

const (
	TxnEarned   PointsTransactionType = "earned"
	TxnRedeemed PointsTransactionType = "redeemed"
	TxnBonus    PointsTransactionType = "bonus"
	TxnRefund   PointsTransactionType = "refund"
)

// PointsTransaction is one immutable ledger entry. Amount is signed:
// positive for credits, negative for deductions. The (UserID, ReferenceID,
// ReferenceType, Type) triple is unique when a reference is set, which is
// what makes award retries idempotent.
type PointsTransaction struct {
	ID            string                `json:"id"`
	UserID        string                `json:"user_id"`
	Amount        int64                 `json:"amount"`
	Type          PointsTransactionType `json:"type"`
	Description   string                `json:"description"`
	ReferenceID   *string               `json:"reference_id,omitempty"`
	ReferenceType *string               `json:"reference_type,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}
