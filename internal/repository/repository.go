package repository

import (
	"context"
	"time"

	model "treasure-trove/internal/models"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

// AuctionStore defines the auction document storage interface
type AuctionStore interface {
	CreateAuction(ctx context.Context, auction model.Auction) error
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	ListAuctions(ctx context.Context) ([]model.Auction, error)
	// FindExpiredActive returns every auction still active whose end date is
	// at or before now. The auction closer sweeps with this.
	FindExpiredActive(ctx context.Context, now time.Time) ([]model.Auction, error)
	UpdateListing(ctx context.Context, auctionID, title, description string) (model.Auction, error)
	// MarkSettled flips an active auction to its terminal status and records
	// the buyer and final amount. It only succeeds from status=active; a
	// non-active auction yields ErrConcurrentConflict so settlement retries
	// stay single-shot.
	MarkSettled(ctx context.Context, auctionID string, status model.AuctionStatus, buyerID string, finalAmount int64) (model.Auction, error)
	DeleteAuction(ctx context.Context, auctionID string) error
}

// BidStore defines the bid storage interface. Bids are write-once.
type BidStore interface {
	RecordBid(ctx context.Context, bid model.Bid) error
	// GetBidsByAuction returns the auction's bids in creation order.
	GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	// GetWinningBid returns the top bid by amount, earliest creation time
	// breaking ties. Returns ErrNoBids when the auction has none.
	GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error)
}

// AccountStore defines the user account storage interface
type AccountStore interface {
	CreateAccount(ctx context.Context, account model.Account) error
	GetAccount(ctx context.Context, userID string) (model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	// ApplyWinnerEffects atomically debits amount from the balance (clamped
	// at zero), appends auctionID to the purchased set and applies the points
	// delta. The purchased set doubles as the applied marker: when auctionID
	// is already present the call is a no-op, so a retried settlement can
	// never debit twice.
	ApplyWinnerEffects(ctx context.Context, userID, auctionID string, amount, pointsDelta int64) error
	SetLocked(ctx context.Context, userID string, locked bool) error
}
