package closer

import (
	"bidbot/internal/biddingerrors"
	"bidbot/internal/clock"
	"bidbot/internal/events"
	model "bidbot/internal/models"
	"bidbot/internal/notify"
	"bidbot/internal/repository"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func item(itemID string, current float64, end time.Time) model.AuctionItem {
	return model.AuctionItem{
		ItemID:      itemID,
		Name:        "Item " + itemID,
		StartingBid: current,
		CurrentBid:  current,
		EndTime:     end,
		OwnerID:     "owner@example.com",
		CreatedAt:   baseTime.Add(-time.Hour),
	}
}

func TestCloser_Sweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := clock.NewManual(baseTime)
	repo := repository.NewMemoryRepo()
	repo.AddItem(item("lamp", 100, baseTime.Add(time.Minute)))
	repo.AddItem(item("chair", 50, baseTime.Add(time.Minute)))
	repo.AddItem(item("desk", 10, baseTime.Add(time.Hour)))

	_, _, err := repo.CommitBid(ctx, model.BidRecord{BidID: "b1", ItemID: "lamp", BidderID: "a@example.com", Amount: 150}, clk)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	notifier := notify.NewMockNotifier(ctrl)
	notifier.EXPECT().NotifyAuctionWon(gomock.Any(), "a@example.com", "Item lamp", 150.0).Return(errors.New("smtp down")).Times(1)

	hub := events.NewHub(8)
	lampFeed := hub.Subscribe("lamp")
	defer lampFeed.Cancel()
	chairFeed := hub.Subscribe("chair")
	defer chairFeed.Cancel()

	c := New(repo, NewMemoryMarker(), notifier, hub, clk, "@every 1m")

	settled, err := c.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, settled, "nothing has ended yet")

	clk.Advance(time.Minute)
	settled, err = c.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, settled)

	closed := <-lampFeed.C
	require.Equal(t, events.TypeAuctionClosed, closed.Type)
	require.Equal(t, "a@example.com", closed.BidderID)
	require.Equal(t, 150.0, closed.Amount)

	noBids := <-chairFeed.C
	require.Equal(t, events.TypeAuctionClosed, noBids.Type)
	require.Empty(t, noBids.BidderID)

	// settled items are not announced again
	settled, err = c.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, settled)

	stored, err := repo.GetItem(ctx, "lamp")
	require.NoError(t, err)
	require.Equal(t, 150.0, stored.CurrentBid)
}

func TestCloser_SweepRetriesAfterReadFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := repository.NewMockAuctionDB(ctrl)
	notifier := notify.NewMockNotifier(ctrl)
	ended := item("lamp", 150, baseTime)

	repo.EXPECT().ItemsEndedBy(gomock.Any(), baseTime).Return([]model.AuctionItem{ended}, nil).Times(2)
	gomock.InOrder(
		repo.EXPECT().WinningBidFor(gomock.Any(), "lamp").Return(model.BidRecord{}, fmt.Errorf("read: %w", biddingerrors.ErrInternal)),
		repo.EXPECT().WinningBidFor(gomock.Any(), "lamp").Return(model.BidRecord{BidderID: "a@example.com", Amount: 150, IsWinning: true}, nil),
	)
	notifier.EXPECT().NotifyAuctionWon(gomock.Any(), "a@example.com", "Item lamp", 150.0).Return(nil)

	c := New(repo, NewMemoryMarker(), notifier, events.NewHub(1), clock.NewManual(baseTime), "@every 1m")

	settled, err := c.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, settled)

	settled, err = c.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, settled)
}

func TestCloser_StartRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	c := New(repository.NewMemoryRepo(), NewMemoryMarker(), nil, events.NewHub(1), clock.NewManual(baseTime), "every now and then")
	require.Error(t, c.Start(context.Background()))

	ok := New(repository.NewMemoryRepo(), NewMemoryMarker(), nil, events.NewHub(1), clock.NewManual(baseTime), "@every 1h")
	require.NoError(t, ok.Start(context.Background()))
	ok.Stop()
}
