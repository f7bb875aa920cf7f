package bidding

import (
	"bidbot/internal/biddingerrors"
	"bidbot/internal/clock"
	"bidbot/internal/events"
	"bidbot/internal/models"
	"bidbot/internal/notify"
	"bidbot/internal/repository"
	"bidbot/utils"
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// NewItem carries the details of an item being listed
type NewItem struct {
	Name        string
	Description string
	StartingBid float64
	// OpeningBid sets the initial current bid; zero means StartingBid
	OpeningBid float64
	EndTime    time.Time
	OwnerID    string
}

// BiddingService defines the business logic for auction bidding
type BiddingService struct {
	repo      repository.AuctionDB
	clock     clock.Clock
	notifier  notify.Notifier
	publisher events.Publisher

	maxRetries   int
	retryBackoff time.Duration
}

// Option configures a BiddingService
type Option func(*BiddingService)

// WithClock sets the time source used for deadline checks
func WithClock(c clock.Clock) Option {
	return func(s *BiddingService) { s.clock = c }
}

// WithNotifier sets the collaborator told about accepted bids
func WithNotifier(n notify.Notifier) Option {
	return func(s *BiddingService) { s.notifier = n }
}

// WithPublisher sets the live feed for accepted bids
func WithPublisher(p events.Publisher) Option {
	return func(s *BiddingService) { s.publisher = p }
}

// WithRetryPolicy bounds how often a bid is re-attempted after a storage failure
func WithRetryPolicy(maxRetries int, backoff time.Duration) Option {
	return func(s *BiddingService) {
		s.maxRetries = maxRetries
		s.retryBackoff = backoff
	}
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, opts ...Option) *BiddingService {
	s := &BiddingService{
		repo:         repo,
		clock:        clock.Real{},
		maxRetries:   3,
		retryBackoff: 20 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateItem validates and lists a new auction item
func (s *BiddingService) CreateItem(ctx context.Context, req NewItem) (models.AuctionItem, error) {
	now := s.clock.Now()
	if err := validateNewItem(req, now); err != nil {
		return models.AuctionItem{}, err
	}

	current := req.StartingBid
	if req.OpeningBid > 0 {
		current = req.OpeningBid
	}

	item, err := s.repo.CreateItem(ctx, models.AuctionItem{
		ItemID:      utils.GenerateID(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		StartingBid: req.StartingBid,
		CurrentBid:  current,
		EndTime:     req.EndTime,
		OwnerID:     req.OwnerID,
		CreatedAt:   now,
	})
	if err != nil {
		return models.AuctionItem{}, fmt.Errorf("service: failed to create item: %w", err)
	}

	utils.Info("Item listed", map[string]any{
		"item_id":  item.ItemID,
		"owner_id": item.OwnerID,
		"end_time": item.EndTime,
	})
	return item, nil
}

func validateNewItem(req NewItem, now time.Time) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("service: %w - empty item name", biddingerrors.ErrInvalidItem)
	}
	if req.OwnerID == "" {
		return fmt.Errorf("service: %w - missing owner", biddingerrors.ErrInvalidItem)
	}
	if !validAmount(req.StartingBid) || req.StartingBid < 0 {
		return fmt.Errorf("service: %w - starting bid must be a non-negative number", biddingerrors.ErrInvalidItem)
	}
	if !validAmount(req.OpeningBid) || (req.OpeningBid != 0 && req.OpeningBid < req.StartingBid) {
		return fmt.Errorf("service: %w - opening bid below starting bid", biddingerrors.ErrInvalidItem)
	}
	if !now.Before(req.EndTime) {
		return fmt.Errorf("service: %w - end time must be in the future", biddingerrors.ErrInvalidItem)
	}
	return nil
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// GetItem returns a single item
func (s *BiddingService) GetItem(ctx context.Context, itemID string) (models.AuctionItem, error) {
	if itemID == "" {
		return models.AuctionItem{}, fmt.Errorf("service: %w - empty item ID", biddingerrors.ErrInvalidItem)
	}

	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return models.AuctionItem{}, fmt.Errorf("service: failed to get item %s: %w", itemID, err)
	}
	return item, nil
}

// ListItems returns every listed item
func (s *BiddingService) ListItems(ctx context.Context) ([]models.AuctionItem, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list items: %w", err)
	}
	return items, nil
}

// DeleteItem removes an item on behalf of its owner. Items that have received a
// bid are kept for the ledger.
func (s *BiddingService) DeleteItem(ctx context.Context, itemID, requesterID string) error {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item.OwnerID != requesterID {
		return fmt.Errorf("service: %w - item %s", biddingerrors.ErrNotItemOwner, itemID)
	}

	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return fmt.Errorf("service: failed to delete item %s: %w", itemID, err)
	}

	utils.Info("Item deleted", map[string]any{"item_id": itemID, "owner_id": requesterID})
	return nil
}

// PlaceBid validates and records a user's bid for an item
func (s *BiddingService) PlaceBid(ctx context.Context, itemID, bidderID string, amount float64) (models.BidRecord, error) {
	if err := validateBid(itemID, bidderID, amount); err != nil {
		return models.BidRecord{}, err
	}

	bid, err := s.commitWithRetry(ctx, itemID, bidderID, amount)
	if err != nil {
		return models.BidRecord{}, fmt.Errorf("service: failed to place bid on item %s by %s: %w", itemID, bidderID, err)
	}
	return bid, nil
}

// ModifyBid raises a bidder's earlier bid. The new amount is checked against the
// live current bid exactly like a fresh bid, and on success it becomes a new
// ledger entry superseding the old one.
func (s *BiddingService) ModifyBid(ctx context.Context, bidID, bidderID string, amount float64) (models.BidRecord, error) {
	if bidID == "" {
		return models.BidRecord{}, fmt.Errorf("service: %w - empty bid ID", biddingerrors.ErrInvalidBid)
	}

	prior, err := s.repo.GetBid(ctx, bidID)
	if err != nil {
		return models.BidRecord{}, fmt.Errorf("service: failed to get bid %s: %w", bidID, err)
	}
	if prior.BidderID != bidderID {
		return models.BidRecord{}, fmt.Errorf("service: %w - bid %s", biddingerrors.ErrNotBidOwner, bidID)
	}
	if err := validateBid(prior.ItemID, bidderID, amount); err != nil {
		return models.BidRecord{}, err
	}

	bid, err := s.commitWithRetry(ctx, prior.ItemID, bidderID, amount)
	if err != nil {
		return models.BidRecord{}, fmt.Errorf("service: failed to modify bid %s: %w", bidID, err)
	}
	return bid, nil
}

// validateBid checks input validity before touching storage
func validateBid(itemID, bidderID string, amount float64) error {
	if itemID == "" || bidderID == "" {
		return fmt.Errorf("service: %w - missing itemID or bidderID", biddingerrors.ErrInvalidBid)
	}
	if !validAmount(amount) || amount <= 0 {
		return fmt.Errorf("service: %w - bid amount must be a positive number", biddingerrors.ErrInvalidBid)
	}
	return nil
}

// commitWithRetry runs the bid protocol, starting over from a fresh read after
// storage failures. Every other outcome is final for this request. All attempts
// share one bid ID so a commit whose acknowledgement was lost is found again
// instead of being rejected against its own amount.
func (s *BiddingService) commitWithRetry(ctx context.Context, itemID, bidderID string, amount float64) (models.BidRecord, error) {
	bidID := utils.GenerateID()

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if bid, ok := s.committedEarlier(ctx, bidID); ok {
				s.announce(ctx, bid)
				return bid, nil
			}
		}

		bid, err := s.commitOnce(ctx, bidID, itemID, bidderID, amount)
		if err == nil {
			s.announce(ctx, bid)
			return bid, nil
		}

		if !biddingerrors.IsRetryable(err) || attempt >= s.maxRetries {
			return models.BidRecord{}, err
		}

		utils.Warn("Retrying bid after storage failure", map[string]any{
			"item_id":   itemID,
			"bidder_id": bidderID,
			"bid_id":    bidID,
			"attempt":   attempt + 1,
			"error":     err.Error(),
		})

		select {
		case <-ctx.Done():
			return models.BidRecord{}, fmt.Errorf("%w: %w", err, ctx.Err())
		case <-time.After(s.retryBackoff * time.Duration(attempt+1)):
		}
	}
}

// committedEarlier reports whether a previous attempt stored bidID even though
// it returned a storage error, e.g. a connection lost after COMMIT was sent.
func (s *BiddingService) committedEarlier(ctx context.Context, bidID string) (models.BidRecord, bool) {
	bid, err := s.repo.GetBid(ctx, bidID)
	if err != nil {
		return models.BidRecord{}, false
	}
	utils.Warn("Bid was committed before the storage failure", map[string]any{
		"item_id":   bid.ItemID,
		"bidder_id": bid.BidderID,
		"bid_id":    bidID,
	})
	return bid, true
}

// commitOnce reads the item, pre-checks the bid against it and commits. The
// pre-check only rejects early; the store re-checks the deadline and amount
// with a clock reading taken after it has locked the item.
func (s *BiddingService) commitOnce(ctx context.Context, bidID, itemID, bidderID string, amount float64) (models.BidRecord, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return models.BidRecord{}, err
	}

	if !item.OpenAt(s.clock.Now()) {
		return models.BidRecord{}, fmt.Errorf("%w - auction ended at %s", biddingerrors.ErrAuctionClosed, item.EndTime.Format(time.RFC3339))
	}
	if amount <= item.CurrentBid {
		return models.BidRecord{}, fmt.Errorf("%w - current highest bid is %.2f", biddingerrors.ErrBidTooLow, item.CurrentBid)
	}

	_, bid, err := s.repo.CommitBid(ctx, models.BidRecord{
		BidID:    bidID,
		ItemID:   itemID,
		BidderID: bidderID,
		Amount:   amount,
	}, s.clock)
	return bid, err
}

// announce tells the bidder and live subscribers about an accepted bid.
// Failures are logged; the bid is already committed.
func (s *BiddingService) announce(ctx context.Context, bid models.BidRecord) {
	fields := map[string]any{
		"item_id":   bid.ItemID,
		"bidder_id": bid.BidderID,
		"amount":    bid.Amount,
	}
	utils.Info("Bid accepted", fields)

	if s.notifier != nil {
		if err := s.notifier.NotifyNewHighBid(ctx, bid.BidderID, bid.ItemName, bid.Amount); err != nil {
			utils.Warn("New high bid notification failed", withError(fields, err))
		}
	}

	if s.publisher != nil {
		err := s.publisher.Publish(ctx, events.BidEvent{
			Type:      events.TypeBidAccepted,
			ItemID:    bid.ItemID,
			BidderID:  bid.BidderID,
			Amount:    bid.Amount,
			Timestamp: bid.CreatedAt,
		})
		if err != nil {
			utils.Warn("Publishing bid event failed", withError(fields, err))
		}
	}
}

func withError(fields map[string]any, err error) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}

// GetWinningBid returns the winning bid for a specific item
func (s *BiddingService) GetWinningBid(ctx context.Context, itemID string) (models.BidRecord, error) {
	if itemID == "" {
		return models.BidRecord{}, fmt.Errorf("service: %w - empty item ID", biddingerrors.ErrInvalidBid)
	}

	winningBid, err := s.repo.WinningBidFor(ctx, itemID)
	if err != nil {
		return models.BidRecord{}, fmt.Errorf("service: failed to get winning bid for item %s: %w", itemID, err)
	}
	return winningBid, nil
}

// GetBidsForItem returns all bids for a specific item
func (s *BiddingService) GetBidsForItem(ctx context.Context, itemID string) ([]models.BidRecord, error) {
	if itemID == "" {
		return nil, fmt.Errorf("service: %w - empty item ID", biddingerrors.ErrInvalidBid)
	}

	bids, err := s.repo.BidsForItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for item %s: %w", itemID, err)
	}
	return bids, nil
}

// GetBidsForUser returns a user's bids in the order they were placed
func (s *BiddingService) GetBidsForUser(ctx context.Context, userID string) ([]models.BidRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrInvalidBid)
	}

	bids, err := s.repo.BidsFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for user %s: %w", userID, err)
	}
	return bids, nil
}

// GetItemsByUser returns all items a user has placed bids on, in the order of
// the user's first bid on each
func (s *BiddingService) GetItemsByUser(ctx context.Context, userID string) ([]models.AuctionItem, error) {
	bids, err := s.GetBidsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("service: get items for user %s: %w", userID, biddingerrors.ErrUserNoBids)
	}

	seen := make(map[string]struct{}, len(bids))
	items := make([]models.AuctionItem, 0, len(bids))
	for _, bid := range bids {
		if _, ok := seen[bid.ItemID]; ok {
			continue
		}
		seen[bid.ItemID] = struct{}{}

		item, err := s.repo.GetItem(ctx, bid.ItemID)
		if err != nil {
			return nil, fmt.Errorf("service: failed to get items for user %s: %w", userID, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// GetUserStats counts a user's bids, winning bids and listed items
func (s *BiddingService) GetUserStats(ctx context.Context, userID string) (models.UserStats, error) {
	if userID == "" {
		return models.UserStats{}, fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrInvalidBid)
	}

	total, err := s.repo.CountFor(ctx, userID)
	if err != nil {
		return models.UserStats{}, fmt.Errorf("service: failed to count bids for user %s: %w", userID, err)
	}
	winning, err := s.repo.WinningCountFor(ctx, userID)
	if err != nil {
		return models.UserStats{}, fmt.Errorf("service: failed to count winning bids for user %s: %w", userID, err)
	}
	listed, err := s.repo.CountItemsByOwner(ctx, userID)
	if err != nil {
		return models.UserStats{}, fmt.Errorf("service: failed to count items for user %s: %w", userID, err)
	}

	return models.UserStats{
		UserID:      userID,
		TotalBids:   total,
		WinningBids: winning,
		ItemsListed: listed,
	}, nil
}
