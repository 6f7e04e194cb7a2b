// Package errs defines the business error taxonomy shared by the ledger,
// exchange and redemption services. Every error carries a stable code that
// the API layer maps onto an HTTP status; callers match with errors.Is.
package errs

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindTransfer      Kind = "transfer_failed"
)

type Error struct {
	Code    string
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newErr(kind Kind, code, msg string) *Error {
	return &Error{Code: code, Kind: kind, Message: msg}
}

var (
	// Ledger
	ErrInvalidAmount        = newErr(KindValidation, "invalid_amount", "amount must be greater than zero")
	ErrInsufficientBalance  = newErr(KindConflict, "insufficient_balance", "insufficient points balance")
	ErrDuplicateTransaction = newErr(KindConflict, "already_awarded", "points already applied for this reference")

	// Exchange
	ErrItemNotFound     = newErr(KindNotFound, "item_not_found", "item not found or not active")
	ErrSelfTrade        = newErr(KindConflict, "self_trade", "cannot trade with yourself")
	ErrAmountMismatch   = newErr(KindValidation, "amount_mismatch", "offered points do not match the item price")
	ErrSwapNotFound     = newErr(KindNotFound, "swap_not_found", "swap not found")
	ErrNotOwner         = newErr(KindAuthorization, "not_owner", "caller does not own this item")
	ErrNotAuthorized    = newErr(KindAuthorization, "not_authorized", "caller may not act on this swap")
	ErrDuplicatePending = newErr(KindConflict, "duplicate_pending", "an identical pending swap already exists")
	ErrTransferFailed   = newErr(KindTransfer, "transfer_failed", "ownership transfer failed, swap reverted to pending")
	ErrSwapResolved     = newErr(KindConflict, "swap_resolved", "swap is no longer pending")

	// Redemption
	ErrOptionNotFound     = newErr(KindNotFound, "option_not_found", "redemption option not found")
	ErrOptionInactive     = newErr(KindConflict, "option_inactive", "redemption option is not active")
	ErrOptionExpired      = newErr(KindConflict, "option_expired", "redemption option has expired")
	ErrInsufficientPoints = newErr(KindConflict, "insufficient_points", "not enough points for this redemption")
	ErrSoldOut            = newErr(KindConflict, "sold_out", "redemption option is sold out")
	ErrLimitReached       = newErr(KindConflict, "limit_reached", "per-user redemption limit reached")
	ErrCodeCollision      = newErr(KindConflict, "code_collision", "could not generate a unique reward code")

	ErrUserNotFound = newErr(KindNotFound, "user_not_found", "user not found")
)

// CodeOf returns the stable code for err, or "internal_error" when err is
// not part of the taxonomy.
func CodeOf(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return "internal_error"
}

// KindOf returns the classification for err, or "" for unclassified errors.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ""
}
