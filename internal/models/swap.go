package models

import "time"

type SwapStatus string

const (
	SwapPending   SwapStatus = "pending"
	SwapAccepted  SwapStatus = "accepted"
	SwapCompleted SwapStatus = "completed"
	SwapRejected  SwapStatus = "rejected"
	SwapCancelled SwapStatus = "cancelled"
)

// Swap is a proposed bilateral item exchange. It transitions
// pending -> accepted -> completed, or pending -> rejected/cancelled.
// Accepted reverts to pending only when the ownership transfer fails.
type Swap struct {
	ID              string     `json:"id"`
	RequesterID     string     `json:"requester_id"`
	OfferedItemID   string     `json:"offered_item_id"`
	TargetID        string     `json:"target_id"`
	RequestedItemID string     `json:"requested_item_id"`
	Status          SwapStatus `json:"status"`
	Message         string     `json:"message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Terminal reports whether no further transition is allowed.
func (s Swap) Terminal() bool {
	return s.Status == SwapCompleted || s.Status == SwapRejected || s.Status == SwapCancelled
}
