package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"treasure-trove/internal/auctionerrors"
	model "treasure-trove/internal/models"
)

// PostgresRepo implements AuctionStore, BidStore and AccountStore on top of
// Postgres via sqlx. Serialization failures surface as ErrConcurrentConflict
// and connection faults as ErrStorageUnavailable, both retryable.
type PostgresRepo struct {
	db *sqlx.DB
}

// NewPostgresRepo creates a Postgres-backed repository
func NewPostgresRepo(db *sqlx.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateAuction(ctx context.Context, a model.Auction) error {
	query := `
        INSERT INTO auctions (auction_id, title, description, seller_id, minimum_bid, end_date, expected_value, status, final_bid_amount, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query,
		a.AuctionID, a.Title, a.Description, a.SellerID, a.MinimumBid, a.EndDate, a.ExpectedValue, a.Status, a.FinalBidAmount, a.CreatedAt)
	if err != nil {
		return mapPgError("create auction", err)
	}
	return nil
}

func (r *PostgresRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	var row auctionRow
	query := `SELECT auction_id, title, description, seller_id, minimum_bid, end_date, expected_value, status, buyer_id, final_bid_amount, created_at
        FROM auctions WHERE auction_id = $1`
	if err := r.db.GetContext(ctx, &row, query, auctionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
		}
		return model.Auction{}, mapPgError("get auction", err)
	}
	return row.toModel(), nil
}

func (r *PostgresRepo) ListAuctions(ctx context.Context) ([]model.Auction, error) {
	var rows []auctionRow
	query := `SELECT auction_id, title, description, seller_id, minimum_bid, end_date, expected_value, status, buyer_id, final_bid_amount, created_at
        FROM auctions ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, mapPgError("list auctions", err)
	}
	auctions := make([]model.Auction, 0, len(rows))
	for _, row := range rows {
		auctions = append(auctions, row.toModel())
	}
	return auctions, nil
}

func (r *PostgresRepo) FindExpiredActive(ctx context.Context, now time.Time) ([]model.Auction, error) {
	var rows []auctionRow
	query := `SELECT auction_id, title, description, seller_id, minimum_bid, end_date, expected_value, status, buyer_id, final_bid_amount, created_at
        FROM auctions WHERE status = 'active' AND end_date <= $1`
	if err := r.db.SelectContext(ctx, &rows, query, now); err != nil {
		return nil, mapPgError("find expired auctions", err)
	}
	auctions := make([]model.Auction, 0, len(rows))
	for _, row := range rows {
		auctions = append(auctions, row.toModel())
	}
	return auctions, nil
}

func (r *PostgresRepo) UpdateListing(ctx context.Context, auctionID, title, description string) (model.Auction, error) {
	var row auctionRow
	query := `UPDATE auctions SET title = $2, description = $3 WHERE auction_id = $1
        RETURNING auction_id, title, description, seller_id, minimum_bid, end_date, expected_value, status, buyer_id, final_bid_amount, created_at`
	if err := r.db.GetContext(ctx, &row, query, auctionID, title, description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Auction{}, fmt.Errorf("update auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
		}
		return model.Auction{}, mapPgError("update auction", err)
	}
	return row.toModel(), nil
}

func (r *PostgresRepo) MarkSettled(ctx context.Context, auctionID string, status model.AuctionStatus, buyerID string, finalAmount int64) (model.Auction, error) {
	var row auctionRow
	// The status guard makes the flip single-shot under concurrent sweeps.
	query := `UPDATE auctions SET status = $2, buyer_id = NULLIF($3, ''), final_bid_amount = $4
        WHERE auction_id = $1 AND status = 'active'
        RETURNING auction_id, title, description, seller_id, minimum_bid, end_date, expected_value, status, buyer_id, final_bid_amount, created_at`
	err := r.db.GetContext(ctx, &row, query, auctionID, status, buyerID, finalAmount)
	if err == nil {
		return row.toModel(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, mapPgError("settle auction", err)
	}
	if _, getErr := r.GetAuction(ctx, auctionID); getErr != nil {
		return model.Auction{}, getErr
	}
	return model.Auction{}, fmt.Errorf("settle auction %s: %w", auctionID, auctionerrors.ErrConcurrentConflict)
}

func (r *PostgresRepo) DeleteAuction(ctx context.Context, auctionID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auctions WHERE auction_id = $1`, auctionID)
	if err != nil {
		return mapPgError("delete auction", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return nil
}

func (r *PostgresRepo) RecordBid(ctx context.Context, bid model.Bid) error {
	query := `INSERT INTO bids (bid_id, auction_id, bidder_id, amount, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, bid.BidID, bid.AuctionID, bid.BidderID, bid.Amount, bid.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" { // foreign key
			return fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotFound)
		}
		return mapPgError("record bid", err)
	}
	return nil
}

func (r *PostgresRepo) GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	bids := []model.Bid{}
	query := `SELECT bid_id, auction_id, bidder_id, amount, created_at FROM bids
        WHERE auction_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &bids, query, auctionID); err != nil {
		return nil, mapPgError("get bids", err)
	}
	return bids, nil
}

func (r *PostgresRepo) GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error) {
	var bid model.Bid
	query := `SELECT bid_id, auction_id, bidder_id, amount, created_at FROM bids
        WHERE auction_id = $1 ORDER BY amount DESC, created_at ASC LIMIT 1`
	if err := r.db.GetContext(ctx, &bid, query, auctionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Bid{}, fmt.Errorf("get winning bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
		}
		return model.Bid{}, mapPgError("get winning bid", err)
	}
	return bid, nil
}

func (r *PostgresRepo) CreateAccount(ctx context.Context, account model.Account) error {
	query := `INSERT INTO accounts (user_id, username, password_hash, tokens, role, locked, lockable, points)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		account.UserID, account.Username, account.PasswordHash, account.Tokens, account.Role, account.Locked, account.Lockable, account.Points)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique violation
			return fmt.Errorf("create account %s: %w", account.Username, auctionerrors.ErrUsernameTaken)
		}
		return mapPgError("create account", err)
	}
	return nil
}

func (r *PostgresRepo) GetAccount(ctx context.Context, userID string) (model.Account, error) {
	return r.getAccount(ctx, `user_id = $1`, userID)
}

func (r *PostgresRepo) GetAccountByUsername(ctx context.Context, username string) (model.Account, error) {
	return r.getAccount(ctx, `username = $1`, username)
}

func (r *PostgresRepo) getAccount(ctx context.Context, where, arg string) (model.Account, error) {
	var account model.Account
	query := `SELECT user_id, username, password_hash, tokens, role, locked, lockable, points FROM accounts WHERE ` + where
	if err := r.db.GetContext(ctx, &account, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, fmt.Errorf("get account %s: %w", arg, auctionerrors.ErrAccountNotFound)
		}
		return model.Account{}, mapPgError("get account", err)
	}
	purchases := []string{}
	if err := r.db.SelectContext(ctx, &purchases, `SELECT auction_id FROM purchases WHERE user_id = $1 ORDER BY purchased_at ASC`, account.UserID); err != nil {
		return model.Account{}, mapPgError("get purchases", err)
	}
	account.Purchased = purchases
	return account, nil
}

func (r *PostgresRepo) ListAccounts(ctx context.Context) ([]model.Account, error) {
	accounts := []model.Account{}
	query := `SELECT user_id, username, password_hash, tokens, role, locked, lockable, points FROM accounts ORDER BY username ASC`
	if err := r.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, mapPgError("list accounts", err)
	}
	return accounts, nil
}

// ApplyWinnerEffects runs the debit, purchase insert and points update in one
// transaction keyed on the purchase row: when the row already exists the
// insert changes nothing and the balance writes are skipped, so a retried
// settlement commits no second debit.
func (r *PostgresRepo) ApplyWinnerEffects(ctx context.Context, userID, auctionID string, amount, pointsDelta int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapPgError("apply winner effects", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO purchases (user_id, auction_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, auctionID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" { // foreign key
			return fmt.Errorf("apply winner effects for account %s: %w", userID, auctionerrors.ErrAccountNotFound)
		}
		return mapPgError("apply winner effects", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// already applied by an earlier attempt
		return nil
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE accounts SET tokens = GREATEST(tokens - $2, 0), points = points + $3 WHERE user_id = $1`,
		userID, amount, pointsDelta)
	if err != nil {
		return mapPgError("apply winner effects", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("apply winner effects for account %s: %w", userID, auctionerrors.ErrAccountNotFound)
	}

	if err := tx.Commit(); err != nil {
		return mapPgError("apply winner effects", err)
	}
	return nil
}

func (r *PostgresRepo) SetLocked(ctx context.Context, userID string, locked bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET locked = $2 WHERE user_id = $1`, userID, locked)
	if err != nil {
		return mapPgError("set locked", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set locked for account %s: %w", userID, auctionerrors.ErrAccountNotFound)
	}
	return nil
}

// auctionRow mirrors the auctions table; buyer_id is nullable until settled.
type auctionRow struct {
	AuctionID      string              `db:"auction_id"`
	Title          string              `db:"title"`
	Description    string              `db:"description"`
	SellerID       string              `db:"seller_id"`
	MinimumBid     int64               `db:"minimum_bid"`
	EndDate        time.Time           `db:"end_date"`
	ExpectedValue  int64               `db:"expected_value"`
	Status         model.AuctionStatus `db:"status"`
	BuyerID        sql.NullString      `db:"buyer_id"`
	FinalBidAmount int64               `db:"final_bid_amount"`
	CreatedAt      time.Time           `db:"created_at"`
}

func (row auctionRow) toModel() model.Auction {
	return model.Auction{
		AuctionID:      row.AuctionID,
		Title:          row.Title,
		Description:    row.Description,
		SellerID:       row.SellerID,
		MinimumBid:     row.MinimumBid,
		EndDate:        row.EndDate,
		ExpectedValue:  row.ExpectedValue,
		Status:         row.Status,
		BuyerID:        row.BuyerID.String,
		FinalBidAmount: row.FinalBidAmount,
		CreatedAt:      row.CreatedAt,
	}
}

// mapPgError folds driver errors into the retryable taxonomy
func mapPgError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "40001" { // serialization_failure
		return fmt.Errorf("%s: %w", op, auctionerrors.ErrConcurrentConflict)
	}
	return fmt.Errorf("%s: %v: %w", op, err, auctionerrors.ErrStorageUnavailable)
}
