package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemStatus string

const (
	ItemActive    ItemStatus = "active"
	ItemSold      ItemStatus = "sold"
	ItemWithdrawn ItemStatus = "withdrawn"
)

// Item is a marketplace listing. Every item has exactly one owner; the
// owner field changes only as the terminal step of a completed purchase
// or a completed swap.
type Item struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Status    ItemStatus      `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PointsPrice is the item price rounded up to whole points.
func (i Item) PointsPrice() int64 {
	return i.Price.Ceil().IntPart()
}
