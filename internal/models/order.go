package models

import "time"

// Order is the immutable receipt written when a purchase commits.
type Order struct {
	ID          string    `json:"id"`
	ItemID      string    `json:"item_id"`
	BuyerID     string    `json:"buyer_id"`
	SellerID    string    `json:"seller_id"`
	PointsSpent int64     `json:"points_spent"`
	SellerBonus int64     `json:"seller_bonus"`
	CreatedAt   time.Time `json:"created_at"`
}
