package handler

import (
	bidding "bidbot/internal/biddingService"
	"bidbot/internal/biddingerrors"
	model "bidbot/internal/models"
	"bidbot/services/bidding/helpers"
	"bidbot/utils"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -destination=mock_bidding_service.go -package=handler bidbot/services/bidding/handler BiddingServiceInterface

type BiddingServiceInterface interface {
	CreateItem(ctx context.Context, req bidding.NewItem) (model.AuctionItem, error)
	GetItem(ctx context.Context, itemID string) (model.AuctionItem, error)
	ListItems(ctx context.Context) ([]model.AuctionItem, error)
	DeleteItem(ctx context.Context, itemID, requesterID string) error
	PlaceBid(ctx context.Context, itemID, bidderID string, amount float64) (model.BidRecord, error)
	ModifyBid(ctx context.Context, bidID, bidderID string, amount float64) (model.BidRecord, error)
	GetWinningBid(ctx context.Context, itemID string) (model.BidRecord, error)
	GetBidsForItem(ctx context.Context, itemID string) ([]model.BidRecord, error)
	GetBidsForUser(ctx context.Context, userID string) ([]model.BidRecord, error)
	GetItemsByUser(ctx context.Context, userID string) ([]model.AuctionItem, error)
	GetUserStats(ctx context.Context, userID string) (model.UserStats, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// ListItemsHandler handles GET /items
func (h *BiddingHandler) ListItemsHandler(c *gin.Context) {
	items, err := h.service.ListItems(c.Request.Context())
	if err != nil {
		helpers.HandleServiceError(c, "ListItemsHandler", err, nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToItemResponses(items), "items retrieved successfully")
	helpers.LogSuccess("ListItemsHandler", "items retrieved successfully", map[string]any{"count": len(items)})
}

// CreateItemHandler handles POST /items
func (h *BiddingHandler) CreateItemHandler(c *gin.Context) {
	ownerID, ok := helpers.RequireUser(c, "CreateItemHandler")
	if !ok {
		return
	}

	var req helpers.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateItemHandler", err)
		return
	}

	item, err := h.service.CreateItem(c.Request.Context(), bidding.NewItem{
		Name:        req.Name,
		Description: req.Description,
		StartingBid: req.StartingBid,
		OpeningBid:  req.OpeningBid,
		EndTime:     req.EndTime,
		OwnerID:     ownerID,
	})
	if err != nil {
		helpers.HandleServiceError(c, "CreateItemHandler", err, map[string]any{"owner_id": ownerID, "name": req.Name})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToItemResponse(item), "item created successfully")
	helpers.LogSuccess("CreateItemHandler", "item created successfully", map[string]any{
		"item_id":  item.ItemID,
		"owner_id": ownerID,
	})
}

// GetItemHandler handles GET /items/:item_id
func (h *BiddingHandler) GetItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	item, err := h.service.GetItem(c.Request.Context(), itemID)
	if err != nil {
		helpers.HandleServiceError(c, "GetItemHandler", err, map[string]any{"item_id": itemID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToItemResponse(item), "item retrieved successfully")
}

// DeleteItemHandler handles DELETE /items/:item_id
func (h *BiddingHandler) DeleteItemHandler(c *gin.Context) {
	requesterID, ok := helpers.RequireUser(c, "DeleteItemHandler")
	if !ok {
		return
	}

	itemID := c.Param("item_id")
	if err := h.service.DeleteItem(c.Request.Context(), itemID, requesterID); err != nil {
		helpers.HandleServiceError(c, "DeleteItemHandler", err, map[string]any{"item_id": itemID, "requester_id": requesterID})
		return
	}

	utils.JSONMessage(c, http.StatusOK, "item deleted successfully")
	helpers.LogSuccess("DeleteItemHandler", "item deleted successfully", map[string]any{"item_id": itemID})
}

// RecordBidHandler handles POST /bids
func (h *BiddingHandler) RecordBidHandler(c *gin.Context) {
	bidderID, ok := helpers.RequireUser(c, "RecordBidHandler")
	if !ok {
		return
	}

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RecordBidHandler", err)
		return
	}

	bid, err := h.service.PlaceBid(c.Request.Context(), req.ItemID, bidderID, req.Amount)
	if err != nil {
		helpers.HandleServiceError(c, "RecordBidHandler", err, map[string]any{
			"item_id":   req.ItemID,
			"bidder_id": bidderID,
			"amount":    req.Amount,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToBidResponse(bid), "bid recorded successfully")
	helpers.LogSuccess("RecordBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":    bid.BidID,
		"item_id":   bid.ItemID,
		"bidder_id": bidderID,
		"amount":    bid.Amount,
	})
}

// ModifyBidHandler handles PUT /bids/:bid_id
func (h *BiddingHandler) ModifyBidHandler(c *gin.Context) {
	bidderID, ok := helpers.RequireUser(c, "ModifyBidHandler")
	if !ok {
		return
	}

	var req helpers.ModifyBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "ModifyBidHandler", err)
		return
	}

	bidID := c.Param("bid_id")
	bid, err := h.service.ModifyBid(c.Request.Context(), bidID, bidderID, req.Amount)
	if err != nil {
		helpers.HandleServiceError(c, "ModifyBidHandler", err, map[string]any{
			"bid_id":    bidID,
			"bidder_id": bidderID,
			"amount":    req.Amount,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToBidResponse(bid), "bid modified successfully")
	helpers.LogSuccess("ModifyBidHandler", "bid modified successfully", map[string]any{
		"previous_bid_id": bidID,
		"bid_id":          bid.BidID,
		"amount":          bid.Amount,
	})
}

// GetBidsByItemHandler handles GET /items/:item_id/bids
func (h *BiddingHandler) GetBidsByItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	bids, err := h.service.GetBidsForItem(c.Request.Context(), itemID)
	if err != nil && !errors.Is(err, biddingerrors.ErrNoBids) {
		helpers.HandleServiceError(c, "GetBidsByItemHandler", err, map[string]any{"item_id": itemID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponses(bids), "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByItemHandler", "bids retrieved successfully", map[string]any{
		"item_id": itemID,
		"count":   len(bids),
	})
}

// GetWinningBidHandler handles GET /items/:item_id/winning
func (h *BiddingHandler) GetWinningBidHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	bid, err := h.service.GetWinningBid(c.Request.Context(), itemID)
	if err != nil {
		if errors.Is(err, biddingerrors.ErrNoBids) {
			utils.JSONError(c, http.StatusNotFound, err, "no winning bid found")
			utils.Info("GetWinningBidHandler: no winning bid found", map[string]any{"item_id": itemID})
			return
		}
		helpers.HandleServiceError(c, "GetWinningBidHandler", err, map[string]any{"item_id": itemID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponse(bid), "winning bid retrieved successfully")
	helpers.LogSuccess("GetWinningBidHandler", "winning bid retrieved successfully", map[string]any{
		"bid_id":    bid.BidID,
		"item_id":   bid.ItemID,
		"bidder_id": bid.BidderID,
		"amount":    bid.Amount,
	})
}

// GetBidsByUserHandler handles GET /users/:user_id/bids
func (h *BiddingHandler) GetBidsByUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	bids, err := h.service.GetBidsForUser(c.Request.Context(), userID)
	if err != nil {
		helpers.HandleServiceError(c, "GetBidsByUserHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponses(bids), "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByUserHandler", "bids retrieved successfully", map[string]any{
		"user_id": userID,
		"count":   len(bids),
	})
}

// GetItemsByUserHandler handles GET /users/:user_id/items
func (h *BiddingHandler) GetItemsByUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	items, err := h.service.GetItemsByUser(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, biddingerrors.ErrUserNoBids) {
		helpers.HandleServiceError(c, "GetItemsByUserHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToItemResponses(items), "items retrieved successfully")
	helpers.LogSuccess("GetItemsByUserHandler", "items retrieved successfully", map[string]any{
		"user_id":     userID,
		"items_count": len(items),
	})
}

// GetUserStatsHandler handles GET /users/:user_id/stats
func (h *BiddingHandler) GetUserStatsHandler(c *gin.Context) {
	userID := c.Param("user_id")
	stats, err := h.service.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		helpers.HandleServiceError(c, "GetUserStatsHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, stats, "stats retrieved successfully")
}
