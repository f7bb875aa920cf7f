package mysql

import (
	"bidbot/internal/biddingerrors"
	model "bidbot/internal/models"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const itemColumns = `id, name, description, starting_bid, current_bid, end_time, owner_id, created_at`

// AuctionRepository implements repository.AuctionDB on MySQL
type AuctionRepository struct {
	db *sql.DB
}

// NewAuctionRepository creates a repository over an open connection pool
func NewAuctionRepository(db *sql.DB) *AuctionRepository {
	return &AuctionRepository{db: db}
}

func scanItem(row rowScanner) (model.AuctionItem, error) {
	var item model.AuctionItem
	err := row.Scan(
		&item.ItemID,
		&item.Name,
		&item.Description,
		&item.StartingBid,
		&item.CurrentBid,
		&item.EndTime,
		&item.OwnerID,
		&item.CreatedAt,
	)
	return item, err
}

func getItem(ctx context.Context, q querier, itemID string, forUpdate bool) (model.AuctionItem, error) {
	query := `SELECT ` + itemColumns + ` FROM auction_items WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	item, err := scanItem(q.QueryRowContext(ctx, query, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.AuctionItem{}, fmt.Errorf("get item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}
	if err != nil {
		return model.AuctionItem{}, storageErr("get item "+itemID, err)
	}
	return item, nil
}

// GetItem returns the stored item
func (r *AuctionRepository) GetItem(ctx context.Context, itemID string) (model.AuctionItem, error) {
	return getItem(ctx, r.db, itemID, false)
}

// CreateItem stores a new item without bids
func (r *AuctionRepository) CreateItem(ctx context.Context, item model.AuctionItem) (model.AuctionItem, error) {
	if item.ItemID == "" {
		return model.AuctionItem{}, fmt.Errorf("create item: %w - empty item ID", biddingerrors.ErrInvalidItem)
	}
	if item.StartingBid < 0 || item.CurrentBid < item.StartingBid {
		return model.AuctionItem{}, fmt.Errorf("create item %s: %w - current bid below starting bid", item.ItemID, biddingerrors.ErrInvalidItem)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auction_items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ItemID, item.Name, item.Description, item.StartingBid, item.CurrentBid,
		item.EndTime.UTC(), item.OwnerID, item.CreatedAt.UTC(),
	)
	if mysqlErrNumber(err) == errDuplicateEntry {
		return model.AuctionItem{}, fmt.Errorf("create item %s: %w - duplicate item ID", item.ItemID, biddingerrors.ErrInvalidItem)
	}
	if err != nil {
		return model.AuctionItem{}, storageErr("create item "+item.ItemID, err)
	}
	return item, nil
}

// raise runs the conditional UPDATE. When no row matches, the locked row is read
// back to tell a missing item from a closed auction from a lost race.
func raise(ctx context.Context, tx *sql.Tx, itemID string, amount float64, now time.Time) (model.AuctionItem, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE auction_items SET current_bid = ? WHERE id = ? AND current_bid < ? AND end_time > ?`,
		amount, itemID, amount, now.UTC(),
	)
	if err != nil {
		return model.AuctionItem{}, storageErr("raise bid for item "+itemID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return model.AuctionItem{}, storageErr("raise bid for item "+itemID, err)
	}

	item, err := getItem(ctx, tx, itemID, true)
	if err != nil {
		return model.AuctionItem{}, err
	}
	if affected == 1 {
		return item, nil
	}

	if !item.OpenAt(now) {
		return model.AuctionItem{}, fmt.Errorf("raise bid for item %s: %w", itemID, biddingerrors.ErrAuctionClosed)
	}
	return model.AuctionItem{}, fmt.Errorf("raise bid for item %s: %w - current bid is %.2f", itemID, biddingerrors.ErrStaleBid, item.CurrentBid)
}

// RaiseCurrentBid atomically raises the item's current bid
func (r *AuctionRepository) RaiseCurrentBid(ctx context.Context, itemID string, amount float64, now time.Time) (model.AuctionItem, error) {
	var item model.AuctionItem
	err := inTx(ctx, r.db, "raise bid for item "+itemID, func(tx *sql.Tx) error {
		var err error
		item, err = raise(ctx, tx, itemID, amount, now)
		return err
	})
	return item, err
}

// DeleteItem removes an item that has not received any bid
func (r *AuctionRepository) DeleteItem(ctx context.Context, itemID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auction_items WHERE id = ?`, itemID)
	if mysqlErrNumber(err) == errRowIsReferenced {
		return fmt.Errorf("delete item %s: %w", itemID, biddingerrors.ErrItemHasBids)
	}
	if err != nil {
		return storageErr("delete item "+itemID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr("delete item "+itemID, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}
	return nil
}

func (r *AuctionRepository) queryItems(ctx context.Context, op, where string, args ...any) ([]model.AuctionItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM auction_items `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	items := make([]model.AuctionItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return items, nil
}

// ListItems returns every item ordered by creation time
func (r *AuctionRepository) ListItems(ctx context.Context) ([]model.AuctionItem, error) {
	return r.queryItems(ctx, "list items", "")
}

// ItemsEndedBy returns items whose bidding window has closed at now
func (r *AuctionRepository) ItemsEndedBy(ctx context.Context, now time.Time) ([]model.AuctionItem, error) {
	return r.queryItems(ctx, "list ended items", "WHERE end_time <= ?", now.UTC())
}

// CountItemsByOwner returns the number of items listed by ownerID
func (r *AuctionRepository) CountItemsByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM auction_items WHERE owner_id = ?`, ownerID).Scan(&count)
	if err != nil {
		return 0, storageErr("count items for owner "+ownerID, err)
	}
	return count, nil
}
