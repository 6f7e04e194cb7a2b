package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/barterhub/backend/internal/models"
)

// generateRewardCode builds a type-prefixed code with a random middle and
// a time-derived suffix, e.g. DISC-4F9A21C3-LZK8Q1. Uniqueness is only
// probabilistic; callers verify against the store before insert.
func generateRewardCode(opt models.RedemptionOption) string {
	prefix := "RWRD"
	switch opt.RewardType {
	case models.RewardDiscount:
		prefix = "DISC"
	case models.RewardVoucher:
		prefix = "VCHR"
	case models.RewardShipping:
		prefix = "SHIP"
	}
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	suffix := strings.ToUpper(strconv.FormatInt(time.Now().UnixNano(), 36))
	return prefix + "-" + random + "-" + suffix
}
