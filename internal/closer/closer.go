package closer

import (
	"bidbot/internal/biddingerrors"
	"bidbot/internal/clock"
	"bidbot/internal/events"
	"bidbot/internal/notify"
	"bidbot/internal/repository"
	"bidbot/utils"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
)

// Marker claims the one-time settlement of an item
type Marker interface {
	MarkSettled(ctx context.Context, itemID string) (bool, error)
}

// MemoryMarker is a Marker for a single server instance
type MemoryMarker struct {
	mu      sync.Mutex
	settled map[string]struct{}
}

// NewMemoryMarker creates an empty marker
func NewMemoryMarker() *MemoryMarker {
	return &MemoryMarker{settled: make(map[string]struct{})}
}

// MarkSettled returns true the first time it is called for itemID
func (m *MemoryMarker) MarkSettled(_ context.Context, itemID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, done := m.settled[itemID]; done {
		return false, nil
	}
	m.settled[itemID] = struct{}{}
	return true, nil
}

// Closer periodically settles auctions whose end time has passed. Settling
// only reads the item and its winning bid; the winner is told once and live
// subscribers get an auction_closed event.
type Closer struct {
	repo      repository.AuctionDB
	marker    Marker
	notifier  notify.Notifier
	publisher events.Publisher
	clock     clock.Clock

	cron     *cron.Cron
	schedule string
}

// New creates a closer that sweeps on schedule, a robfig/cron expression such as "@every 30s"
func New(repo repository.AuctionDB, marker Marker, notifier notify.Notifier, publisher events.Publisher, clk clock.Clock, schedule string) *Closer {
	return &Closer{
		repo:      repo,
		marker:    marker,
		notifier:  notifier,
		publisher: publisher,
		clock:     clk,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		schedule:  schedule,
	}
}

// Start schedules the sweep. ctx bounds every sweep run.
func (c *Closer) Start(ctx context.Context) error {
	utils.Info("Starting auction closer", map[string]any{"schedule": c.schedule})

	_, err := c.cron.AddFunc(c.schedule, func() {
		if _, err := c.Sweep(ctx); err != nil {
			utils.Error("Auction sweep failed", map[string]any{"error": err.Error()})
		}
	})
	if err != nil {
		return fmt.Errorf("closer: invalid schedule %q: %w", c.schedule, err)
	}

	c.cron.Start()
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish
func (c *Closer) Stop() {
	utils.Info("Stopping auction closer", nil)
	<-c.cron.Stop().Done()
}

// Sweep settles every ended item not yet settled and returns how many it settled
func (c *Closer) Sweep(ctx context.Context) (int, error) {
	now := c.clock.Now()
	items, err := c.repo.ItemsEndedBy(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("closer: failed to list ended items: %w", err)
	}

	settled := 0
	for _, item := range items {
		winner, err := c.repo.WinningBidFor(ctx, item.ItemID)
		hasWinner := err == nil
		if err != nil && !errors.Is(err, biddingerrors.ErrNoBids) {
			// left unclaimed so the next sweep tries again
			utils.Error("Failed to read winning bid", map[string]any{"item_id": item.ItemID, "error": err.Error()})
			continue
		}

		claimed, err := c.marker.MarkSettled(ctx, item.ItemID)
		if err != nil {
			utils.Error("Failed to claim settlement", map[string]any{"item_id": item.ItemID, "error": err.Error()})
			continue
		}
		if !claimed {
			continue
		}
		settled++

		event := events.BidEvent{
			Type:      events.TypeAuctionClosed,
			ItemID:    item.ItemID,
			Amount:    item.CurrentBid,
			Timestamp: item.EndTime,
		}

		if hasWinner {
			event.BidderID = winner.BidderID
			if err := c.notifier.NotifyAuctionWon(ctx, winner.BidderID, item.Name, winner.Amount); err != nil {
				utils.Warn("Auction won notification failed", map[string]any{
					"item_id":   item.ItemID,
					"bidder_id": winner.BidderID,
					"error":     err.Error(),
				})
			}
		}

		if err := c.publisher.Publish(ctx, event); err != nil {
			utils.Warn("Publishing auction closed event failed", map[string]any{"item_id": item.ItemID, "error": err.Error()})
		}

		utils.Info("Auction settled", map[string]any{
			"item_id":    item.ItemID,
			"winner":     event.BidderID,
			"amount":     item.CurrentBid,
			"had_winner": hasWinner,
		})
	}
	return settled, nil
}
