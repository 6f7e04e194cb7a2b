package models

import "time"

type RewardType string

const (
	RewardDiscount RewardType = "discount"
	RewardVoucher  RewardType = "voucher"
	RewardShipping RewardType = "free_shipping"
)

// RedemptionOption is a catalog entry convertible into a reward code at a
// fixed points cost. TotalAvailable nil means uncapped.
type RedemptionOption struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	PointsRequired int64      `json:"points_required"`
	RewardType     RewardType `json:"reward_type"`
	RewardValue    string     `json:"reward_value,omitempty"`
	TotalAvailable *int64     `json:"total_available,omitempty"`
	TotalRedeemed  int64      `json:"total_redeemed"`
	MaxPerUser     *int64     `json:"max_per_user,omitempty"`
	Active         bool       `json:"active"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// SoldOut reports whether the availability cap is reached.
func (o RedemptionOption) SoldOut() bool {
	return o.TotalAvailable != nil && o.TotalRedeemed >= *o.TotalAvailable
}

// Expired reports whether the option is past its expiry at now.
func (o RedemptionOption) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && !now.Before(*o.ExpiresAt)
}

// UserRedemption is the write-once record of one redeemed reward.
type UserRedemption struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	OptionID   string    `json:"option_id"`
	PointsUsed int64     `json:"points_used"`
	RewardCode string    `json:"reward_code"`
	Used       bool      `json:"used"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}
