package models

import "time"

// User represents a registered participant. Email doubles as the bidder identity.
type User struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuctionItem represents a listed item and its running high bid
type AuctionItem struct {
	ItemID      string    `json:"item_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartingBid float64   `json:"starting_bid"`
	CurrentBid  float64   `json:"current_bid"`
	EndTime     time.Time `json:"end_time"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// OpenAt reports whether bidding is still permitted at now.
func (i AuctionItem) OpenAt(now time.Time) bool {
	return now.Before(i.EndTime)
}

// BidRecord is a ledger entry for one accepted bid
type BidRecord struct {
	BidID     string    `json:"bid_id"`
	ItemID    string    `json:"item_id"`
	ItemName  string    `json:"item_name"`
	BidderID  string    `json:"bidder_id"`
	Amount    float64   `json:"amount"`
	IsWinning bool      `json:"is_winning"`
	CreatedAt time.Time `json:"created_at"`
}

// UserStats aggregates a user's activity
type UserStats struct {
	UserID      string `json:"user_id"`
	TotalBids   int    `json:"total_bids"`
	WinningBids int    `json:"winning_bids"`
	ItemsListed int    `json:"items_listed"`
}
