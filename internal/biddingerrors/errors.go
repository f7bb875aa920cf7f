package biddingerrors

import "errors"

// Repository-level errors
var (
	ErrItemNotFound = errors.New("item not found")
	ErrBidNotFound  = errors.New("bid not found")
	ErrNoBids       = errors.New("no bids found for item")
	ErrUserNoBids   = errors.New("user has not placed any bids")
	ErrItemHasBids  = errors.New("item already has bids")

	// ErrInternal marks storage failures. It is the only retryable outcome.
	ErrInternal = errors.New("storage unavailable")
)

// business logic errors
var (
	ErrInvalidBid    = errors.New("invalid bid")
	ErrInvalidItem   = errors.New("invalid item")
	ErrBidTooLow     = errors.New("bid amount too low")
	ErrStaleBid      = errors.New("bid is stale")
	ErrAuctionClosed = errors.New("auction closed")
	ErrNotBidOwner   = errors.New("bid belongs to another bidder")
	ErrNotItemOwner  = errors.New("item belongs to another user")
)

// account and session errors
var (
	ErrInvalidAccount     = errors.New("invalid account details")
	ErrEmailExists        = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

// IsRetryable reports whether err is a transient storage failure that may
// succeed when the whole operation is attempted again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrInternal)
}
