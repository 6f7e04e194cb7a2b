package models

import "time"

// Balance is a denormalized cache of the user's ledger sum. The transaction
// log is the source of truth; every change goes through the ledger service.
type Balance struct {
	UserID        string    `json:"user_id"`
	Amount        int64     `json:"amount"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}
