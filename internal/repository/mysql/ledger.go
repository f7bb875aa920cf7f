package mysql

import (
	"bidbot/internal/biddingerrors"
	"bidbot/internal/clock"
	model "bidbot/internal/models"
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const bidColumns = `id, item_id, item_name, bidder_id, amount, is_winning, created_at`

func scanBid(row rowScanner) (model.BidRecord, error) {
	var bid model.BidRecord
	err := row.Scan(
		&bid.BidID,
		&bid.ItemID,
		&bid.ItemName,
		&bid.BidderID,
		&bid.Amount,
		&bid.IsWinning,
		&bid.CreatedAt,
	)
	return bid, err
}

// appendWinner demotes the item's current winner and inserts bid as the new one.
// The caller holds the item row lock inside tx.
func appendWinner(ctx context.Context, tx *sql.Tx, item model.AuctionItem, bid model.BidRecord) (model.BidRecord, error) {
	bid.ItemName = item.Name
	bid.IsWinning = true

	if _, err := tx.ExecContext(ctx,
		`UPDATE bid_records SET is_winning = FALSE WHERE item_id = ? AND is_winning = TRUE`,
		bid.ItemID,
	); err != nil {
		return model.BidRecord{}, storageErr("demote winner for item "+bid.ItemID, err)
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO bid_records (`+bidColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bid.BidID, bid.ItemID, bid.ItemName, bid.BidderID, bid.Amount, bid.IsWinning, bid.CreatedAt.UTC(),
	)
	if mysqlErrNumber(err) == errDuplicateEntry {
		return model.BidRecord{}, fmt.Errorf("record bid %s: %w - duplicate bid ID", bid.BidID, biddingerrors.ErrInvalidBid)
	}
	if err != nil {
		return model.BidRecord{}, storageErr("record bid "+bid.BidID, err)
	}
	return bid, nil
}

// RecordBid appends a winning ledger entry for the bid's item
func (r *AuctionRepository) RecordBid(ctx context.Context, bid model.BidRecord) (model.BidRecord, error) {
	var recorded model.BidRecord
	err := inTx(ctx, r.db, "record bid for item "+bid.ItemID, func(tx *sql.Tx) error {
		item, err := getItem(ctx, tx, bid.ItemID, true)
		if err != nil {
			return err
		}
		recorded, err = appendWinner(ctx, tx, item, bid)
		return err
	})
	return recorded, err
}

// CommitBid raises the current bid and records the winner in one transaction.
// The commit instant is taken once the item row is locked.
func (r *AuctionRepository) CommitBid(ctx context.Context, bid model.BidRecord, clk clock.Clock) (model.AuctionItem, model.BidRecord, error) {
	var (
		item     model.AuctionItem
		recorded model.BidRecord
	)
	err := inTx(ctx, r.db, "commit bid for item "+bid.ItemID, func(tx *sql.Tx) error {
		if _, err := getItem(ctx, tx, bid.ItemID, true); err != nil {
			return fmt.Errorf("commit bid: %w", err)
		}
		bid.CreatedAt = clk.Now()

		var err error
		item, err = raise(ctx, tx, bid.ItemID, bid.Amount, bid.CreatedAt)
		if err != nil {
			return fmt.Errorf("commit bid: %w", err)
		}
		recorded, err = appendWinner(ctx, tx, item, bid)
		return err
	})
	if err != nil {
		return model.AuctionItem{}, model.BidRecord{}, err
	}
	return item, recorded, nil
}

// GetBid returns a ledger entry by ID
func (r *AuctionRepository) GetBid(ctx context.Context, bidID string) (model.BidRecord, error) {
	bid, err := scanBid(r.db.QueryRowContext(ctx,
		`SELECT `+bidColumns+` FROM bid_records WHERE id = ?`, bidID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.BidRecord{}, fmt.Errorf("get bid %s: %w", bidID, biddingerrors.ErrBidNotFound)
	}
	if err != nil {
		return model.BidRecord{}, storageErr("get bid "+bidID, err)
	}
	return bid, nil
}

// WinningBidFor returns the record currently flagged as winning for an item
func (r *AuctionRepository) WinningBidFor(ctx context.Context, itemID string) (model.BidRecord, error) {
	if _, err := r.GetItem(ctx, itemID); err != nil {
		return model.BidRecord{}, err
	}

	bid, err := scanBid(r.db.QueryRowContext(ctx,
		`SELECT `+bidColumns+` FROM bid_records WHERE winning_item_id = ?`, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.BidRecord{}, fmt.Errorf("get winning bid for item %s: %w", itemID, biddingerrors.ErrNoBids)
	}
	if err != nil {
		return model.BidRecord{}, storageErr("get winning bid for item "+itemID, err)
	}
	return bid, nil
}

func (r *AuctionRepository) queryBids(ctx context.Context, op, where string, arg any) ([]model.BidRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bidColumns+` FROM bid_records WHERE `+where+` ORDER BY seq`, arg)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	bids := make([]model.BidRecord, 0)
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return bids, nil
}

// BidsForItem returns an item's ledger in insertion order
func (r *AuctionRepository) BidsForItem(ctx context.Context, itemID string) ([]model.BidRecord, error) {
	if _, err := r.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return r.queryBids(ctx, "get bids for item "+itemID, "item_id = ?", itemID)
}

// BidsFor returns every bid placed by userID in insertion order
func (r *AuctionRepository) BidsFor(ctx context.Context, userID string) ([]model.BidRecord, error) {
	return r.queryBids(ctx, "get bids for user "+userID, "bidder_id = ?", userID)
}

func (r *AuctionRepository) count(ctx context.Context, op, query string, arg any) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&count); err != nil {
		return 0, storageErr(op, err)
	}
	return count, nil
}

// CountFor returns the number of bids placed by userID
func (r *AuctionRepository) CountFor(ctx context.Context, userID string) (int, error) {
	return r.count(ctx, "count bids for user "+userID,
		`SELECT COUNT(*) FROM bid_records WHERE bidder_id = ?`, userID)
}

// WinningCountFor returns how many of userID's bids currently hold the winning flag
func (r *AuctionRepository) WinningCountFor(ctx context.Context, userID string) (int, error) {
	return r.count(ctx, "count winning bids for user "+userID,
		`SELECT COUNT(*) FROM bid_records WHERE bidder_id = ? AND is_winning = TRUE`, userID)
}
