package mysql

import (
	"bidbot/internal/biddingerrors"
	"bidbot/internal/clock"
	model "bidbot/internal/models"
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDSN(t *testing.T) {
	t.Parallel()

	dsn, err := NormalizeDSN("bidbot:secret@tcp(db:3306)/bidbot")
	require.NoError(t, err)

	cfg, err := gomysql.ParseDSN(dsn)
	require.NoError(t, err)
	require.True(t, cfg.ParseTime)
	require.True(t, cfg.ClientFoundRows)
	require.Equal(t, time.UTC, cfg.Loc)
	require.Equal(t, "bidbot", cfg.DBName)

	_, err = NormalizeDSN("not a dsn")
	require.Error(t, err)
}

// getTestDB connects to the database named by MYSQL_DSN and applies migrations
func getTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("MYSQL_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := Open(ctx, dsn, Options{MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLifetime: time.Minute})
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(dsn))
	return db
}

func newTestItem(t *testing.T, repo *AuctionRepository, current float64, end time.Time) model.AuctionItem {
	t.Helper()

	item, err := repo.CreateItem(context.Background(), model.AuctionItem{
		ItemID:      "test-item-" + uuid.NewString(),
		Name:        "Test Lamp",
		Description: "integration fixture",
		StartingBid: current,
		CurrentBid:  current,
		EndTime:     end.UTC().Truncate(time.Microsecond),
		OwnerID:     "owner@example.com",
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	})
	require.NoError(t, err)
	return item
}

func newTestBid(itemID, bidder string, amount float64) model.BidRecord {
	return model.BidRecord{
		BidID:    uuid.NewString(),
		ItemID:   itemID,
		BidderID: bidder,
		Amount:   amount,
	}
}

func TestAuctionRepository_CommitBid(t *testing.T) {
	db := getTestDB(t)
	repo := NewAuctionRepository(db)
	ctx := context.Background()

	item := newTestItem(t, repo, 100, time.Now().Add(time.Hour))

	_, first, err := repo.CommitBid(ctx, newTestBid(item.ItemID, "a@example.com", 150), clock.Real{})
	require.NoError(t, err)
	require.True(t, first.IsWinning)
	require.Equal(t, item.Name, first.ItemName)

	_, _, err = repo.CommitBid(ctx, newTestBid(item.ItemID, "b@example.com", 120), clock.Real{})
	require.ErrorIs(t, err, biddingerrors.ErrStaleBid)

	updated, second, err := repo.CommitBid(ctx, newTestBid(item.ItemID, "b@example.com", 200), clock.Real{})
	require.NoError(t, err)
	require.Equal(t, 200.0, updated.CurrentBid)

	winner, err := repo.WinningBidFor(ctx, item.ItemID)
	require.NoError(t, err)
	require.Equal(t, second.BidID, winner.BidID)

	demoted, err := repo.GetBid(ctx, first.BidID)
	require.NoError(t, err)
	require.False(t, demoted.IsWinning)

	bids, err := repo.BidsForItem(ctx, item.ItemID)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	require.Equal(t, first.BidID, bids[0].BidID)

	require.ErrorIs(t, repo.DeleteItem(ctx, item.ItemID), biddingerrors.ErrItemHasBids)
}

func TestAuctionRepository_CommitBidClosedAndMissing(t *testing.T) {
	db := getTestDB(t)
	repo := NewAuctionRepository(db)
	ctx := context.Background()

	closed := newTestItem(t, repo, 100, time.Now().Add(-time.Minute))
	_, _, err := repo.CommitBid(ctx, newTestBid(closed.ItemID, "a@example.com", 150), clock.Real{})
	require.ErrorIs(t, err, biddingerrors.ErrAuctionClosed)

	// open by the wall clock, closed by the clock the commit reads once the row is locked
	open := newTestItem(t, repo, 100, time.Now().Add(time.Hour))
	_, _, err = repo.CommitBid(ctx, newTestBid(open.ItemID, "a@example.com", 150), clock.NewManual(open.EndTime.Add(time.Second)))
	require.ErrorIs(t, err, biddingerrors.ErrAuctionClosed)

	_, _, err = repo.CommitBid(ctx, newTestBid("missing-"+uuid.NewString(), "a@example.com", 150), clock.Real{})
	require.ErrorIs(t, err, biddingerrors.ErrItemNotFound)

	_, err = repo.WinningBidFor(ctx, closed.ItemID)
	require.ErrorIs(t, err, biddingerrors.ErrNoBids)
}

func TestAuctionRepository_ConcurrentCommits(t *testing.T) {
	db := getTestDB(t)
	repo := NewAuctionRepository(db)
	ctx := context.Background()

	item := newTestItem(t, repo, 100, time.Now().Add(time.Hour))

	var wg sync.WaitGroup
	for i := 101; i <= 150; i++ {
		wg.Add(1)
		go func(amount int) {
			defer wg.Done()
			// losers see a stale bid or a storage conflict; neither may leave partial state
			_, _, _ = repo.CommitBid(ctx, newTestBid(item.ItemID, fmt.Sprintf("u%d@example.com", amount), float64(amount)), clock.Real{})
		}(i)
	}
	wg.Wait()

	bids, err := repo.BidsForItem(ctx, item.ItemID)
	require.NoError(t, err)

	winners := 0
	for _, b := range bids {
		if b.IsWinning {
			winners++
		}
	}
	require.Equal(t, 1, winners)

	stored, err := repo.GetItem(ctx, item.ItemID)
	require.NoError(t, err)
	winner, err := repo.WinningBidFor(ctx, item.ItemID)
	require.NoError(t, err)
	require.Equal(t, stored.CurrentBid, winner.Amount)
}

func TestUserRepository(t *testing.T) {
	db := getTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	email := "User-" + uuid.NewString() + "@Example.com"
	created, err := repo.CreateUser(ctx, model.User{
		UserID:       uuid.NewString(),
		Username:     "tester",
		Email:        email,
		PasswordHash: "h1",
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, model.User{UserID: uuid.NewString(), Email: email, CreatedAt: time.Now()})
	require.ErrorIs(t, err, biddingerrors.ErrEmailExists)

	require.NoError(t, repo.UpdatePassword(ctx, created.UserID, "h1"))
	found, err := repo.GetUserByEmail(ctx, email)
	require.NoError(t, err)
	require.Equal(t, created.UserID, found.UserID)

	require.ErrorIs(t, repo.UpdatePassword(ctx, "missing", "h"), biddingerrors.ErrUserNotFound)
}
