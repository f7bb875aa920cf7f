package repository

//go:generate mockgen -destination=mock_repository.go -package=repository bidbot/internal/repository AuctionDB

import (
	"bidbot/internal/biddingerrors"
	"bidbot/internal/clock"
	model "bidbot/internal/models"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ItemStore owns auction item records
type ItemStore interface {
	GetItem(ctx context.Context, itemID string) (model.AuctionItem, error)
	CreateItem(ctx context.Context, item model.AuctionItem) (model.AuctionItem, error)
	// RaiseCurrentBid is a compare-and-set on the stored current bid: it succeeds only
	// when amount > CurrentBid and now < EndTime, otherwise the item is left unchanged.
	RaiseCurrentBid(ctx context.Context, itemID string, amount float64, now time.Time) (model.AuctionItem, error)
	DeleteItem(ctx context.Context, itemID string) error
	ListItems(ctx context.Context) ([]model.AuctionItem, error)
	ItemsEndedBy(ctx context.Context, now time.Time) ([]model.AuctionItem, error)
	CountItemsByOwner(ctx context.Context, ownerID string) (int, error)
}

// BidLedger owns the append-only bid history and the winning pointer per item
type BidLedger interface {
	// RecordBid appends bid as the winning record and demotes the previous winner
	// of the same item in one step.
	RecordBid(ctx context.Context, bid model.BidRecord) (model.BidRecord, error)
	GetBid(ctx context.Context, bidID string) (model.BidRecord, error)
	WinningBidFor(ctx context.Context, itemID string) (model.BidRecord, error)
	BidsForItem(ctx context.Context, itemID string) ([]model.BidRecord, error)
	BidsFor(ctx context.Context, userID string) ([]model.BidRecord, error)
	CountFor(ctx context.Context, userID string) (int, error)
	WinningCountFor(ctx context.Context, userID string) (int, error)
}

// AuctionDB combines both stores with the bid commit that spans them
type AuctionDB interface {
	ItemStore
	BidLedger
	// CommitBid raises the item's current bid and records bid as the new winner as
	// one atomic unit scoped to bid.ItemID. The commit instant is read from clk once
	// the item is locked; it is checked against EndTime and stamped on the record.
	CommitBid(ctx context.Context, bid model.BidRecord, clk clock.Clock) (model.AuctionItem, model.BidRecord, error)
}

// itemEntry holds one item with its ledger slice. mu serializes every write
// touching the item's current bid or winning flag.
type itemEntry struct {
	mu      sync.Mutex
	item    model.AuctionItem
	bids    []*model.BidRecord
	winning *model.BidRecord
	deleted bool
}

type ledgerRef struct {
	entry *itemEntry
	rec   *model.BidRecord
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB.
// Contention is scoped per item; the map locks are only held for lookups.
type MemoryRepo struct {
	mu    sync.RWMutex
	items map[string]*itemEntry // key: itemID -> value: item entry

	ledgerMu   sync.RWMutex
	bidsByID   map[string]ledgerRef   // key: bidID -> value: record
	bidsByUser map[string][]ledgerRef // key: userID -> value: records in insertion order
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		items:      make(map[string]*itemEntry),
		bidsByID:   make(map[string]ledgerRef),
		bidsByUser: make(map[string][]ledgerRef),
	}
}

func (r *MemoryRepo) entry(itemID string) (*itemEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[itemID]
	return e, ok
}

// GetItem returns a copy of the stored item
func (r *MemoryRepo) GetItem(_ context.Context, itemID string) (model.AuctionItem, error) {
	e, ok := r.entry(itemID)
	if !ok {
		return model.AuctionItem{}, fmt.Errorf("get item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return model.AuctionItem{}, fmt.Errorf("get item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}
	return e.item, nil
}

// CreateItem stores a new item without bids
func (r *MemoryRepo) CreateItem(_ context.Context, item model.AuctionItem) (model.AuctionItem, error) {
	if item.ItemID == "" {
		return model.AuctionItem{}, fmt.Errorf("create item: %w - empty item ID", biddingerrors.ErrInvalidItem)
	}
	if item.StartingBid < 0 || item.CurrentBid < item.StartingBid {
		return model.AuctionItem{}, fmt.Errorf("create item %s: %w - current bid below starting bid", item.ItemID, biddingerrors.ErrInvalidItem)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ItemID]; exists {
		return model.AuctionItem{}, fmt.Errorf("create item %s: %w - duplicate item ID", item.ItemID, biddingerrors.ErrInvalidItem)
	}
	r.items[item.ItemID] = &itemEntry{item: item}
	return item, nil
}

// raiseLocked applies the compare-and-set. Caller holds e.mu.
func (e *itemEntry) raiseLocked(amount float64, now time.Time) (model.AuctionItem, error) {
	if e.deleted {
		return model.AuctionItem{}, biddingerrors.ErrItemNotFound
	}
	if !e.item.OpenAt(now) {
		return model.AuctionItem{}, biddingerrors.ErrAuctionClosed
	}
	if amount <= e.item.CurrentBid {
		return model.AuctionItem{}, fmt.Errorf("%w - current bid is %.2f", biddingerrors.ErrStaleBid, e.item.CurrentBid)
	}
	e.item.CurrentBid = amount
	return e.item, nil
}

// RaiseCurrentBid atomically raises the item's current bid
func (r *MemoryRepo) RaiseCurrentBid(_ context.Context, itemID string, amount float64, now time.Time) (model.AuctionItem, error) {
	e, ok := r.entry(itemID)
	if !ok {
		return model.AuctionItem{}, fmt.Errorf("raise bid for item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	item, err := e.raiseLocked(amount, now)
	if err != nil {
		return model.AuctionItem{}, fmt.Errorf("raise bid for item %s: %w", itemID, err)
	}
	return item, nil
}

// DeleteItem removes an item that has not received any bid
func (r *MemoryRepo) DeleteItem(_ context.Context, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items[itemID]
	if !ok {
		return fmt.Errorf("delete item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.bids) > 0 {
		return fmt.Errorf("delete item %s: %w", itemID, biddingerrors.ErrItemHasBids)
	}
	e.deleted = true
	delete(r.items, itemID)
	return nil
}

func (r *MemoryRepo) snapshotItems(keep func(model.AuctionItem) bool) []model.AuctionItem {
	r.mu.RLock()
	entries := make([]*itemEntry, 0, len(r.items))
	for _, e := range r.items {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	items := make([]model.AuctionItem, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		item, deleted := e.item, e.deleted
		e.mu.Unlock()
		if !deleted && keep(item) {
			items = append(items, item)
		}
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ItemID < items[j].ItemID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items
}

// ListItems returns every item ordered by creation time
func (r *MemoryRepo) ListItems(_ context.Context) ([]model.AuctionItem, error) {
	return r.snapshotItems(func(model.AuctionItem) bool { return true }), nil
}

// ItemsEndedBy returns items whose bidding window has closed at now
func (r *MemoryRepo) ItemsEndedBy(_ context.Context, now time.Time) ([]model.AuctionItem, error) {
	return r.snapshotItems(func(item model.AuctionItem) bool { return !item.OpenAt(now) }), nil
}

// CountItemsByOwner returns the number of items listed by ownerID
func (r *MemoryRepo) CountItemsByOwner(_ context.Context, ownerID string) (int, error) {
	return len(r.snapshotItems(func(item model.AuctionItem) bool { return item.OwnerID == ownerID })), nil
}

// appendLocked demotes the current winner and appends bid as the new one.
// Caller holds e.mu, which keeps the swap invisible to readers of this item.
func (r *MemoryRepo) appendLocked(e *itemEntry, bid model.BidRecord) model.BidRecord {
	bid.ItemName = e.item.Name
	bid.IsWinning = true
	rec := &bid

	if e.winning != nil {
		e.winning.IsWinning = false
	}
	e.winning = rec
	e.bids = append(e.bids, rec)

	r.ledgerMu.Lock()
	ref := ledgerRef{entry: e, rec: rec}
	r.bidsByID[rec.BidID] = ref
	r.bidsByUser[rec.BidderID] = append(r.bidsByUser[rec.BidderID], ref)
	r.ledgerMu.Unlock()

	return *rec
}

// RecordBid appends a winning ledger entry for the bid's item
func (r *MemoryRepo) RecordBid(_ context.Context, bid model.BidRecord) (model.BidRecord, error) {
	e, ok := r.entry(bid.ItemID)
	if !ok {
		return model.BidRecord{}, fmt.Errorf("record bid for item %s: %w", bid.ItemID, biddingerrors.ErrItemNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return model.BidRecord{}, fmt.Errorf("record bid for item %s: %w", bid.ItemID, biddingerrors.ErrItemNotFound)
	}
	return r.appendLocked(e, bid), nil
}

// CommitBid raises the current bid and records the winner under the item lock
func (r *MemoryRepo) CommitBid(_ context.Context, bid model.BidRecord, clk clock.Clock) (model.AuctionItem, model.BidRecord, error) {
	e, ok := r.entry(bid.ItemID)
	if !ok {
		return model.AuctionItem{}, model.BidRecord{}, fmt.Errorf("commit bid for item %s: %w", bid.ItemID, biddingerrors.ErrItemNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// read after acquiring the lock so waiting on it cannot carry a bid past EndTime
	bid.CreatedAt = clk.Now()
	item, err := e.raiseLocked(bid.Amount, bid.CreatedAt)
	if err != nil {
		return model.AuctionItem{}, model.BidRecord{}, fmt.Errorf("commit bid for item %s: %w", bid.ItemID, err)
	}
	return item, r.appendLocked(e, bid), nil
}

func readRef(ref ledgerRef) model.BidRecord {
	ref.entry.mu.Lock()
	defer ref.entry.mu.Unlock()
	return *ref.rec
}

// GetBid returns a ledger entry by ID
func (r *MemoryRepo) GetBid(_ context.Context, bidID string) (model.BidRecord, error) {
	r.ledgerMu.RLock()
	ref, ok := r.bidsByID[bidID]
	r.ledgerMu.RUnlock()
	if !ok {
		return model.BidRecord{}, fmt.Errorf("get bid %s: %w", bidID, biddingerrors.ErrBidNotFound)
	}
	return readRef(ref), nil
}

// WinningBidFor returns the record currently flagged as winning for an item
func (r *MemoryRepo) WinningBidFor(_ context.Context, itemID string) (model.BidRecord, error) {
	e, ok := r.entry(itemID)
	if !ok {
		return model.BidRecord{}, fmt.Errorf("get winning bid for item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.winning == nil {
		return model.BidRecord{}, fmt.Errorf("get winning bid for item %s: %w", itemID, biddingerrors.ErrNoBids)
	}
	return *e.winning, nil
}

// BidsForItem returns an item's ledger in insertion order
func (r *MemoryRepo) BidsForItem(_ context.Context, itemID string) ([]model.BidRecord, error) {
	e, ok := r.entry(itemID)
	if !ok {
		return nil, fmt.Errorf("get bids for item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	bids := make([]model.BidRecord, 0, len(e.bids))
	for _, b := range e.bids {
		bids = append(bids, *b)
	}
	return bids, nil
}

func (r *MemoryRepo) userRefs(userID string) []ledgerRef {
	r.ledgerMu.RLock()
	defer r.ledgerMu.RUnlock()
	return append([]ledgerRef(nil), r.bidsByUser[userID]...)
}

// BidsFor returns every bid placed by userID in insertion order
func (r *MemoryRepo) BidsFor(_ context.Context, userID string) ([]model.BidRecord, error) {
	refs := r.userRefs(userID)
	bids := make([]model.BidRecord, 0, len(refs))
	for _, ref := range refs {
		bids = append(bids, readRef(ref))
	}
	return bids, nil
}

// CountFor returns the number of bids placed by userID
func (r *MemoryRepo) CountFor(_ context.Context, userID string) (int, error) {
	r.ledgerMu.RLock()
	defer r.ledgerMu.RUnlock()
	return len(r.bidsByUser[userID]), nil
}

// WinningCountFor returns how many of userID's bids currently hold the winning flag
func (r *MemoryRepo) WinningCountFor(_ context.Context, userID string) (int, error) {
	count := 0
	for _, ref := range r.userRefs(userID) {
		if readRef(ref).IsWinning {
			count++
		}
	}
	return count, nil
}

// AddItem adds an item to the repository, opening it at its starting bid when no
// current bid is set. This method is intended for tests and demo seeding.
func (r *MemoryRepo) AddItem(item model.AuctionItem) {
	if item.CurrentBid < item.StartingBid {
		item.CurrentBid = item.StartingBid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ItemID] = &itemEntry{item: item}
}
