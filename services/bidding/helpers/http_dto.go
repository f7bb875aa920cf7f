package helpers

import (
	model "bidbot/internal/models"
	"time"
)

// Request/Response DTOs
type PlaceBidRequest struct {
	ItemID string  `json:"item_id" binding:"required"`
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

type ModifyBidRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

type CreateItemRequest struct {
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description"`
	StartingBid float64   `json:"starting_bid" binding:"gte=0"`
	OpeningBid  float64   `json:"opening_bid" binding:"omitempty,gte=0"`
	EndTime     time.Time `json:"end_time" binding:"required"`
}

type BidResponse struct {
	BidID     string  `json:"bid_id"`
	ItemID    string  `json:"item_id"`
	ItemName  string  `json:"item_name"`
	BidderID  string  `json:"bidder_id"`
	Amount    float64 `json:"amount"`
	IsWinning bool    `json:"is_winning"`
	CreatedAt string  `json:"created_at"`
}

type ItemResponse struct {
	ItemID      string  `json:"item_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	StartingBid float64 `json:"starting_bid"`
	CurrentBid  float64 `json:"current_bid"`
	EndTime     string  `json:"end_time"`
	OwnerID     string  `json:"owner_id"`
	CreatedAt   string  `json:"created_at"`
}

type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required"`
}

type UserResponse struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	User      UserResponse `json:"user"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ToBidResponse converts a ledger entry to its wire form
func ToBidResponse(bid model.BidRecord) BidResponse {
	return BidResponse{
		BidID:     bid.BidID,
		ItemID:    bid.ItemID,
		ItemName:  bid.ItemName,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		IsWinning: bid.IsWinning,
		CreatedAt: formatTime(bid.CreatedAt),
	}
}

// ToBidResponses converts a ledger slice, never returning nil
func ToBidResponses(bids []model.BidRecord) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, bid := range bids {
		out = append(out, ToBidResponse(bid))
	}
	return out
}

// ToItemResponse converts an item to its wire form
func ToItemResponse(item model.AuctionItem) ItemResponse {
	return ItemResponse{
		ItemID:      item.ItemID,
		Name:        item.Name,
		Description: item.Description,
		StartingBid: item.StartingBid,
		CurrentBid:  item.CurrentBid,
		EndTime:     formatTime(item.EndTime),
		OwnerID:     item.OwnerID,
		CreatedAt:   formatTime(item.CreatedAt),
	}
}

// ToItemResponses converts items, never returning nil
func ToItemResponses(items []model.AuctionItem) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, ToItemResponse(item))
	}
	return out
}

// ToUserResponse converts a user without its password hash
func ToUserResponse(user model.User) UserResponse {
	return UserResponse{
		UserID:    user.UserID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: formatTime(user.CreatedAt),
	}
}
