package bidding

import (
	"bidbot/internal/biddingerrors"
	"bidbot/internal/clock"
	"bidbot/internal/closer"
	"bidbot/internal/events"
	model "bidbot/internal/models"
	"bidbot/internal/notify"
	"bidbot/internal/repository"
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func openItem(itemID string, current float64) model.AuctionItem {
	return model.AuctionItem{
		ItemID:      itemID,
		Name:        "Lamp",
		StartingBid: current,
		CurrentBid:  current,
		EndTime:     baseTime.Add(time.Hour),
		OwnerID:     "owner@example.com",
		CreatedAt:   baseTime.Add(-time.Hour),
	}
}

// Tests PlaceBid against a mocked repository
func TestBiddingService_PlaceBid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		itemID        string
		bidderID      string
		amount        float64
		mockSetup     func(repo *repository.MockAuctionDB)
		expectError   bool
		expectedError error
	}{
		{
			name:     "valid_first_bid",
			itemID:   "item1",
			bidderID: "a@example.com",
			amount:   150,
			mockSetup: func(repo *repository.MockAuctionDB) {
				repo.EXPECT().GetItem(gomock.Any(), "item1").Return(openItem("item1", 100), nil)
				repo.EXPECT().CommitBid(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, bid model.BidRecord, clk clock.Clock) (model.AuctionItem, model.BidRecord, error) {
						item := openItem("item1", bid.Amount)
						bid.CreatedAt = clk.Now()
						bid.IsWinning = true
						bid.ItemName = item.Name
						return item, bid, nil
					})
			},
		},
		{
			name:          "empty_itemID",
			itemID:        "",
			bidderID:      "a@example.com",
			amount:        50,
			mockSetup:     func(*repository.MockAuctionDB) {},
			expectError:   true,
			expectedError: biddingerrors.ErrInvalidBid,
		},
		{
			name:          "empty_bidderID",
			itemID:        "item1",
			bidderID:      "",
			amount:        50,
			mockSetup:     func(*repository.MockAuctionDB) {},
			expectError:   true,
			expectedError: biddingerrors.ErrInvalidBid,
		},
		{
			name:          "zero_amount",
			itemID:        "item1",
			bidderID:      "a@example.com",
			amount:        0,
			mockSetup:     func(*repository.MockAuctionDB) {},
			expectError:   true,
			expectedError: biddingerrors.ErrInvalidBid,
		},
		{
			name:          "nan_amount",
			itemID:        "item1",
			bidderID:      "a@example.com",
			amount:        math.NaN(),
			mockSetup:     func(*repository.MockAuctionDB) {},
			expectError:   true,
			expectedError: biddingerrors.ErrInvalidBid,
		},
		{
			name:          "infinite_amount",
			itemID:        "item1",
			bidderID:      "a@example.com",
			amount:        math.Inf(1),
			mockSetup:     func(*repository.MockAuctionDB) {},
			expectError:   true,
			expectedError: biddingerrors.ErrInvalidBid,
		},
		{
			name:     "unknown_item",
			itemID:   "missing",
			bidderID: "a@example.com",
			amount:   150,
			mockSetup: func(repo *repository.MockAuctionDB) {
				repo.EXPECT().GetItem(gomock.Any(), "missing").Return(model.AuctionItem{}, biddingerrors.ErrItemNotFound)
			},
			expectError:   true,
			expectedError: biddingerrors.ErrItemNotFound,
		},
		{
			name:     "bid_too_low",
			itemID:   "item1",
			bidderID: "b@example.com",
			amount:   100,
			mockSetup: func(repo *repository.MockAuctionDB) {
				repo.EXPECT().GetItem(gomock.Any(), "item1").Return(openItem("item1", 100), nil)
			},
			expectError:   true,
			expectedError: biddingerrors.ErrBidTooLow,
		},
		{
			name:     "auction_closed",
			itemID:   "item1",
			bidderID: "b@example.com",
			amount:   500,
			mockSetup: func(repo *repository.MockAuctionDB) {
				item := openItem("item1", 100)
				item.EndTime = baseTime
				repo.EXPECT().GetItem(gomock.Any(), "item1").Return(item, nil)
			},
			expectError:   true,
			expectedError: biddingerrors.ErrAuctionClosed,
		},
		{
			name:     "lost_race_is_stale",
			itemID:   "item1",
			bidderID: "b@example.com",
			amount:   120,
			mockSetup: func(repo *repository.MockAuctionDB) {
				repo.EXPECT().GetItem(gomock.Any(), "item1").Return(openItem("item1", 100), nil)
				repo.EXPECT().CommitBid(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(model.AuctionItem{}, model.BidRecord{}, fmt.Errorf("commit: %w", biddingerrors.ErrStaleBid))
			},
			expectError:   true,
			expectedError: biddingerrors.ErrStaleBid,
		},
		{
			name:     "storage_failure_exhausts_retries",
			itemID:   "item1",
			bidderID: "c@example.com",
			amount:   120,
			mockSetup: func(repo *repository.MockAuctionDB) {
				repo.EXPECT().GetItem(gomock.Any(), "item1").Return(openItem("item1", 100), nil).Times(3)
				repo.EXPECT().CommitBid(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(model.AuctionItem{}, model.BidRecord{}, fmt.Errorf("commit: %w", biddingerrors.ErrInternal)).Times(3)
				repo.EXPECT().GetBid(gomock.Any(), gomock.Any()).
					Return(model.BidRecord{}, biddingerrors.ErrBidNotFound).Times(2)
			},
			expectError:   true,
			expectedError: biddingerrors.ErrInternal,
		},
		{
			name:     "unclassified_repo_error_is_not_retried",
			itemID:   "item1",
			bidderID: "c@example.com",
			amount:   120,
			mockSetup: func(repo *repository.MockAuctionDB) {
				repo.EXPECT().GetItem(gomock.Any(), "item1").Return(model.AuctionItem{}, errors.New("repo read failed"))
			},
			expectError:   true,
			expectedError: nil, // Service wraps repo error
		},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel() // Run tests concurrently

			ctrl := gomock.NewController(t)
			mockRepo := repository.NewMockAuctionDB(ctrl)
			tc.mockSetup(mockRepo)

			service := NewBiddingService(mockRepo,
				WithClock(clock.NewManual(baseTime)),
				WithRetryPolicy(2, time.Millisecond),
			)

			bid, err := service.PlaceBid(context.Background(), tc.itemID, tc.bidderID, tc.amount)

			if tc.expectError {
				require.Error(t, err)
				if tc.expectedError != nil {
					require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				}
				return
			}

			require.NoError(t, err)
			_, parseErr := uuid.Parse(bid.BidID)
			require.NoError(t, parseErr, "BidID should be a valid UUID")
			require.Equal(t, tc.itemID, bid.ItemID)
			require.Equal(t, tc.bidderID, bid.BidderID)
			require.Equal(t, tc.amount, bid.Amount)
			require.True(t, bid.IsWinning)
			require.Equal(t, baseTime, bid.CreatedAt)
		})
	}
}

func TestBiddingService_PlaceBidRetriesStorageFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockRepo := repository.NewMockAuctionDB(ctrl)

	var firstID string
	gomock.InOrder(
		mockRepo.EXPECT().GetItem(gomock.Any(), "item1").Return(openItem("item1", 100), nil),
		mockRepo.EXPECT().CommitBid(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, bid model.BidRecord, _ clock.Clock) (model.AuctionItem, model.BidRecord, error) {
				firstID = bid.BidID
				return model.AuctionItem{}, model.BidRecord{}, fmt.Errorf("deadlock: %w", biddingerrors.ErrInternal)
			}),
		mockRepo.EXPECT().GetBid(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, bidID string) (model.BidRecord, error) {
				require.Equal(t, firstID, bidID)
				return model.BidRecord{}, biddingerrors.ErrBidNotFound
			}),
		// the retry starts over from a fresh read, which now sees a concurrent winner
		mockRepo.EXPECT().GetItem(gomock.Any(), "item1").Return(openItem("item1", 130), nil),
	)

	service := NewBiddingService(mockRepo, WithClock(clock.NewManual(baseTime)), WithRetryPolicy(3, time.Millisecond))

	_, err := service.PlaceBid(context.Background(), "item1", "a@example.com", 120)
	require.ErrorIs(t, err, biddingerrors.ErrBidTooLow)
}

// A commit that stored the bid but lost its acknowledgement must not be
// retried against its own amount.
func TestBiddingService_PlaceBidFindsBidCommittedBeforeFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockRepo := repository.NewMockAuctionDB(ctrl)

	var stored model.BidRecord
	gomock.InOrder(
		mockRepo.EXPECT().GetItem(gomock.Any(), "item1").Return(openItem("item1", 100), nil),
		mockRepo.EXPECT().CommitBid(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, bid model.BidRecord, clk clock.Clock) (model.AuctionItem, model.BidRecord, error) {
				stored = bid
				stored.CreatedAt = clk.Now()
				stored.ItemName = "Lamp"
				stored.IsWinning = true
				return model.AuctionItem{}, model.BidRecord{}, fmt.Errorf("connection reset after commit: %w", biddingerrors.ErrInternal)
			}),
		mockRepo.EXPECT().GetBid(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, bidID string) (model.BidRecord, error) {
				require.Equal(t, stored.BidID, bidID)
				return stored, nil
			}),
	)

	notifier := notify.NewMockNotifier(ctrl)
	notifier.EXPECT().NotifyNewHighBid(gomock.Any(), "a@example.com", "Lamp", 120.0).Return(nil)

	service := NewBiddingService(mockRepo,
		WithClock(clock.NewManual(baseTime)),
		WithRetryPolicy(3, time.Millisecond),
		WithNotifier(notifier),
	)

	bid, err := service.PlaceBid(context.Background(), "item1", "a@example.com", 120)
	require.NoError(t, err)
	require.Equal(t, stored.BidID, bid.BidID)
	require.True(t, bid.IsWinning)
	require.Equal(t, baseTime, bid.CreatedAt)
}

// closingRepo lets the auction end and be settled while a bid is on its way
// into the store.
type closingRepo struct {
	*repository.MemoryRepo
	clock  *clock.Manual
	closer *closer.Closer
	t      *testing.T
}

func (r *closingRepo) CommitBid(ctx context.Context, bid model.BidRecord, clk clock.Clock) (model.AuctionItem, model.BidRecord, error) {
	r.clock.Advance(time.Hour)
	settled, err := r.closer.Sweep(ctx)
	require.NoError(r.t, err)
	require.Equal(r.t, 1, settled)
	return r.MemoryRepo.CommitBid(ctx, bid, clk)
}

func TestBiddingService_BidCannotLandAfterSettlement(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := clock.NewManual(baseTime.Add(59 * time.Minute))
	mem := repository.NewMemoryRepo()
	mem.AddItem(openItem("lamp", 100))

	hub := events.NewHub(4)
	feed := hub.Subscribe("lamp")
	defer feed.Cancel()

	repo := &closingRepo{
		MemoryRepo: mem,
		clock:      clk,
		closer:     closer.New(mem, closer.NewMemoryMarker(), nil, hub, clk, "@every 1m"),
		t:          t,
	}
	service := NewBiddingService(repo, WithClock(clk), WithPublisher(hub))

	_, err := service.PlaceBid(ctx, "lamp", "late@example.com", 500)
	require.ErrorIs(t, err, biddingerrors.ErrAuctionClosed)

	closed := <-feed.C
	require.Equal(t, events.TypeAuctionClosed, closed.Type)
	require.Empty(t, closed.BidderID)

	item, err := service.GetItem(ctx, "lamp")
	require.NoError(t, err)
	require.Equal(t, 100.0, item.CurrentBid)

	_, err = service.GetWinningBid(ctx, "lamp")
	require.ErrorIs(t, err, biddingerrors.ErrNoBids)

	select {
	case event := <-feed.C:
		t.Fatalf("unexpected event after settlement: %+v", event)
	default:
	}
}

func TestBiddingService_NotificationFailureKeepsBid(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	notifier := notify.NewMockNotifier(ctrl)
	notifier.EXPECT().NotifyNewHighBid(gomock.Any(), "a@example.com", "Lamp", 150.0).Return(errors.New("smtp down"))

	repo := repository.NewMemoryRepo()
	repo.AddItem(openItem("item1", 100))

	hub := events.NewHub(4)
	sub := hub.Subscribe("item1")
	defer sub.Cancel()

	service := NewBiddingService(repo,
		WithClock(clock.NewManual(baseTime)),
		WithNotifier(notifier),
		WithPublisher(hub),
	)

	bid, err := service.PlaceBid(context.Background(), "item1", "a@example.com", 150)
	require.NoError(t, err)

	winner, err := repo.WinningBidFor(context.Background(), "item1")
	require.NoError(t, err)
	require.Equal(t, bid.BidID, winner.BidID)

	event := <-sub.C
	require.Equal(t, events.TypeBidAccepted, event.Type)
	require.Equal(t, 150.0, event.Amount)
	require.Equal(t, "a@example.com", event.BidderID)
}

func TestBiddingService_Scenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	repo.AddItem(openItem("lamp", 100))
	service := NewBiddingService(repo, WithClock(clock.NewManual(baseTime)))

	first, err := service.PlaceBid(ctx, "lamp", "a@example.com", 150)
	require.NoError(t, err)

	item, err := service.GetItem(ctx, "lamp")
	require.NoError(t, err)
	require.Equal(t, 150.0, item.CurrentBid)

	_, err = service.PlaceBid(ctx, "lamp", "b@example.com", 120)
	require.ErrorIs(t, err, biddingerrors.ErrBidTooLow)

	second, err := service.PlaceBid(ctx, "lamp", "b@example.com", 200)
	require.NoError(t, err)

	winner, err := service.GetWinningBid(ctx, "lamp")
	require.NoError(t, err)
	require.Equal(t, second.BidID, winner.BidID)
	require.Equal(t, "b@example.com", winner.BidderID)

	bids, err := service.GetBidsForItem(ctx, "lamp")
	require.NoError(t, err)
	require.Len(t, bids, 2)
	require.Equal(t, first.BidID, bids[0].BidID)
	require.False(t, bids[0].IsWinning)
	require.True(t, bids[1].IsWinning)

	item, err = service.GetItem(ctx, "lamp")
	require.NoError(t, err)
	require.Equal(t, 200.0, item.CurrentBid)
}

func TestBiddingService_ClosedAuction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := clock.NewManual(baseTime)
	repo := repository.NewMemoryRepo()
	repo.AddItem(openItem("lamp", 100))
	service := NewBiddingService(repo, WithClock(clk))

	clk.Set(baseTime.Add(time.Hour))
	_, err := service.PlaceBid(ctx, "lamp", "a@example.com", 500)
	require.ErrorIs(t, err, biddingerrors.ErrAuctionClosed)

	item, err := service.GetItem(ctx, "lamp")
	require.NoError(t, err)
	require.Equal(t, 100.0, item.CurrentBid)

	_, err = service.GetWinningBid(ctx, "lamp")
	require.ErrorIs(t, err, biddingerrors.ErrNoBids)
}

func TestBiddingService_ConcurrentBidders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	repo.AddItem(openItem("lamp", 100))
	service := NewBiddingService(repo, WithClock(clock.NewManual(baseTime)))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for amount := 101; amount <= 150; amount++ {
		wg.Add(1)
		go func(amount int) {
			defer wg.Done()
			_, err := service.PlaceBid(ctx, "lamp", fmt.Sprintf("bidder%d@example.com", amount), float64(amount))
			if err != nil {
				// losers must get an actionable outcome, never a silent overwrite
				if !errors.Is(err, biddingerrors.ErrStaleBid) && !errors.Is(err, biddingerrors.ErrBidTooLow) {
					t.Errorf("unexpected error for %d: %v", amount, err)
				}
				return
			}
			mu.Lock()
			accepted++
			mu.Unlock()
		}(amount)
	}
	wg.Wait()

	require.GreaterOrEqual(t, accepted, 1)

	bids, err := service.GetBidsForItem(ctx, "lamp")
	require.NoError(t, err)
	require.Len(t, bids, accepted)

	winners := 0
	for i, b := range bids {
		if b.IsWinning {
			winners++
		}
		if i > 0 {
			require.Greater(t, b.Amount, bids[i-1].Amount, "ledger must be strictly increasing")
		}
	}
	require.Equal(t, 1, winners)

	winner, err := service.GetWinningBid(ctx, "lamp")
	require.NoError(t, err)
	require.Equal(t, 150.0, winner.Amount)

	item, err := service.GetItem(ctx, "lamp")
	require.NoError(t, err)
	require.Equal(t, 150.0, item.CurrentBid)
}

func TestBiddingService_ModifyBid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	repo.AddItem(openItem("lamp", 100))
	service := NewBiddingService(repo, WithClock(clock.NewManual(baseTime)))

	mine, err := service.PlaceBid(ctx, "lamp", "a@example.com", 150)
	require.NoError(t, err)

	_, err = service.ModifyBid(ctx, mine.BidID, "b@example.com", 300)
	require.ErrorIs(t, err, biddingerrors.ErrNotBidOwner)

	_, err = service.ModifyBid(ctx, "missing", "a@example.com", 300)
	require.ErrorIs(t, err, biddingerrors.ErrBidNotFound)

	_, err = service.ModifyBid(ctx, "", "a@example.com", 300)
	require.ErrorIs(t, err, biddingerrors.ErrInvalidBid)

	// someone else has since raised the item; the modification must beat the live value
	_, err = service.PlaceBid(ctx, "lamp", "b@example.com", 200)
	require.NoError(t, err)

	_, err = service.ModifyBid(ctx, mine.BidID, "a@example.com", 180)
	require.ErrorIs(t, err, biddingerrors.ErrBidTooLow)

	modified, err := service.ModifyBid(ctx, mine.BidID, "a@example.com", 250)
	require.NoError(t, err)
	require.NotEqual(t, mine.BidID, modified.BidID)
	require.True(t, modified.IsWinning)

	bids, err := service.GetBidsForUser(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, bids, 2)
	require.False(t, bids[0].IsWinning)
	require.True(t, bids[1].IsWinning)
}

func TestBiddingService_CreateItem(t *testing.T) {
	t.Parallel()

	future := baseTime.Add(24 * time.Hour)

	tests := []struct {
		name            string
		req             NewItem
		expectedError   error
		expectedCurrent float64
	}{
		{
			name:            "starting_bid_opens",
			req:             NewItem{Name: "Lamp", StartingBid: 100, EndTime: future, OwnerID: "o@example.com"},
			expectedCurrent: 100,
		},
		{
			name:            "explicit_opening_bid",
			req:             NewItem{Name: "Lamp", StartingBid: 100, OpeningBid: 120, EndTime: future, OwnerID: "o@example.com"},
			expectedCurrent: 120,
		},
		{
			name:          "empty_name",
			req:           NewItem{Name: "  ", StartingBid: 100, EndTime: future, OwnerID: "o@example.com"},
			expectedError: biddingerrors.ErrInvalidItem,
		},
		{
			name:          "negative_starting_bid",
			req:           NewItem{Name: "Lamp", StartingBid: -1, EndTime: future, OwnerID: "o@example.com"},
			expectedError: biddingerrors.ErrInvalidItem,
		},
		{
			name:          "opening_below_starting",
			req:           NewItem{Name: "Lamp", StartingBid: 100, OpeningBid: 50, EndTime: future, OwnerID: "o@example.com"},
			expectedError: biddingerrors.ErrInvalidItem,
		},
		{
			name:          "end_time_in_past",
			req:           NewItem{Name: "Lamp", StartingBid: 100, EndTime: baseTime, OwnerID: "o@example.com"},
			expectedError: biddingerrors.ErrInvalidItem,
		},
		{
			name:          "missing_owner",
			req:           NewItem{Name: "Lamp", StartingBid: 100, EndTime: future},
			expectedError: biddingerrors.ErrInvalidItem,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := repository.NewMemoryRepo()
			service := NewBiddingService(repo, WithClock(clock.NewManual(baseTime)))

			item, err := service.CreateItem(context.Background(), tc.req)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expectedCurrent, item.CurrentBid)
			require.Equal(t, baseTime, item.CreatedAt)

			stored, err := service.GetItem(context.Background(), item.ItemID)
			require.NoError(t, err)
			require.Equal(t, item, stored)
		})
	}
}

func TestBiddingService_DeleteItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	repo.AddItem(openItem("lamp", 100))
	repo.AddItem(openItem("chair", 50))
	service := NewBiddingService(repo, WithClock(clock.NewManual(baseTime)))

	require.ErrorIs(t, service.DeleteItem(ctx, "lamp", "intruder@example.com"), biddingerrors.ErrNotItemOwner)
	require.ErrorIs(t, service.DeleteItem(ctx, "missing", "owner@example.com"), biddingerrors.ErrItemNotFound)

	_, err := service.PlaceBid(ctx, "chair", "a@example.com", 60)
	require.NoError(t, err)
	require.ErrorIs(t, service.DeleteItem(ctx, "chair", "owner@example.com"), biddingerrors.ErrItemHasBids)

	require.NoError(t, service.DeleteItem(ctx, "lamp", "owner@example.com"))
	_, err = service.GetItem(ctx, "lamp")
	require.ErrorIs(t, err, biddingerrors.ErrItemNotFound)
}

func TestBiddingService_UserQueries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	repo.AddItem(openItem("lamp", 100))
	chair := openItem("chair", 50)
	chair.OwnerID = "a@example.com"
	chair.CreatedAt = baseTime.Add(-30 * time.Minute)
	repo.AddItem(chair)
	service := NewBiddingService(repo, WithClock(clock.NewManual(baseTime)))

	_, err := service.GetItemsByUser(ctx, "a@example.com")
	require.ErrorIs(t, err, biddingerrors.ErrUserNoBids)

	_, err = service.PlaceBid(ctx, "lamp", "a@example.com", 110)
	require.NoError(t, err)
	_, err = service.PlaceBid(ctx, "lamp", "a@example.com", 120)
	require.NoError(t, err)
	_, err = service.PlaceBid(ctx, "chair", "a@example.com", 60)
	require.NoError(t, err)
	_, err = service.PlaceBid(ctx, "chair", "b@example.com", 70)
	require.NoError(t, err)

	items, err := service.GetItemsByUser(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "lamp", items[0].ItemID)
	require.Equal(t, "chair", items[1].ItemID)

	stats, err := service.GetUserStats(ctx, "a@example.com")
	require.NoError(t, err)
	require.Equal(t, model.UserStats{UserID: "a@example.com", TotalBids: 3, WinningBids: 1, ItemsListed: 1}, stats)

	_, err = service.GetUserStats(ctx, "")
	require.ErrorIs(t, err, biddingerrors.ErrInvalidBid)

	bids, err := service.GetBidsForUser(ctx, "nobody@example.com")
	require.NoError(t, err)
	require.Empty(t, bids)
}
