package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"treasure-trove/internal/auctionerrors"
	model "treasure-trove/internal/models"
)

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionStore,
// BidStore and AccountStore. It backs tests and local runs without Postgres.
type MemoryRepo struct {
	mu        sync.RWMutex
	auctions  map[string]model.Auction
	bids      map[string][]model.Bid // key: auctionID -> bids in creation order
	accounts  map[string]model.Account
	usernames map[string]string // key: username -> userID
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions:  make(map[string]model.Auction),
		bids:      make(map[string][]model.Bid),
		accounts:  make(map[string]model.Account),
		usernames: make(map[string]string),
	}
}

// CreateAuction stores a new auction document
func (r *MemoryRepo) CreateAuction(_ context.Context, auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[auction.AuctionID] = auction
	return nil
}

// GetAuction returns the auction with the given ID
func (r *MemoryRepo) GetAuction(_ context.Context, auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return auction, nil
}

// ListAuctions returns every auction document
func (r *MemoryRepo) ListAuctions(_ context.Context) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auctions := make([]model.Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		auctions = append(auctions, a)
	}
	return auctions, nil
}

// FindExpiredActive returns active auctions whose end date has passed
func (r *MemoryRepo) FindExpiredActive(_ context.Context, now time.Time) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var expired []model.Auction
	for _, a := range r.auctions {
		if a.Status == model.StatusActive && !a.EndDate.After(now) {
			expired = append(expired, a)
		}
	}
	return expired, nil
}

// UpdateListing updates the mutable listing fields of an auction
func (r *MemoryRepo) UpdateListing(_ context.Context, auctionID, title, description string) (model.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("update auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	auction.Title = title
	auction.Description = description
	r.auctions[auctionID] = auction
	return auction, nil
}

// MarkSettled flips an active auction to a terminal status
func (r *MemoryRepo) MarkSettled(_ context.Context, auctionID string, status model.AuctionStatus, buyerID string, finalAmount int64) (model.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("settle auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if auction.Status != model.StatusActive {
		return model.Auction{}, fmt.Errorf("settle auction %s: %w", auctionID, auctionerrors.ErrConcurrentConflict)
	}
	auction.Status = status
	auction.BuyerID = buyerID
	auction.FinalBidAmount = finalAmount
	r.auctions[auctionID] = auction
	return auction, nil
}

// DeleteAuction removes an auction and its bid history, matching the cascade
// the relational store applies. Administrative operation.
func (r *MemoryRepo) DeleteAuction(_ context.Context, auctionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return fmt.Errorf("delete auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	delete(r.auctions, auctionID)
	delete(r.bids, auctionID)
	return nil
}

// RecordBid appends a bid to its auction's history
func (r *MemoryRepo) RecordBid(_ context.Context, bid model.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[bid.AuctionID]; !ok {
		return fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], bid)
	return nil
}

// GetBidsByAuction returns all bids for an auction in creation order
func (r *MemoryRepo) GetBidsByAuction(_ context.Context, auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]model.Bid(nil), r.bids[auctionID]...), nil
}

// GetWinningBid returns the highest bid for an auction
func (r *MemoryRepo) GetWinningBid(_ context.Context, auctionID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids, ok := r.bids[auctionID]
	if !ok || len(bids) == 0 {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}

	winning := bids[0]
	for _, b := range bids[1:] {
		if b.Outranks(winning) {
			winning = b
		}
	}
	return winning, nil
}

// CreateAccount stores a new account; usernames are unique
func (r *MemoryRepo) CreateAccount(_ context.Context, account model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.usernames[account.Username]; taken {
		return fmt.Errorf("create account %s: %w", account.Username, auctionerrors.ErrUsernameTaken)
	}
	r.accounts[account.UserID] = account
	r.usernames[account.Username] = account.UserID
	return nil
}

// GetAccount returns the account with the given user ID
func (r *MemoryRepo) GetAccount(_ context.Context, userID string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accountLocked(userID)
}

// GetAccountByUsername returns the account with the given username
func (r *MemoryRepo) GetAccountByUsername(_ context.Context, username string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.usernames[username]
	if !ok {
		return model.Account{}, fmt.Errorf("get account by username %s: %w", username, auctionerrors.ErrAccountNotFound)
	}
	return r.accountLocked(userID)
}

// ListAccounts returns every account
func (r *MemoryRepo) ListAccounts(_ context.Context) ([]model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts := make([]model.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		a.Purchased = append([]string(nil), a.Purchased...)
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// ApplyWinnerEffects debits the balance, records the purchase and applies the
// points delta as one mutation under the repo lock. The purchased set is the
// applied marker: a second call for the same auction changes nothing.
func (r *MemoryRepo) ApplyWinnerEffects(_ context.Context, userID, auctionID string, amount, pointsDelta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[userID]
	if !ok {
		return fmt.Errorf("apply winner effects for account %s: %w", userID, auctionerrors.ErrAccountNotFound)
	}
	for _, id := range account.Purchased {
		if id == auctionID {
			return nil
		}
	}
	account.Tokens -= amount
	if account.Tokens < 0 {
		account.Tokens = 0
	}
	account.Purchased = append(account.Purchased, auctionID)
	account.Points += pointsDelta
	r.accounts[userID] = account
	return nil
}

// SetLocked sets the account lock flag
func (r *MemoryRepo) SetLocked(_ context.Context, userID string, locked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[userID]
	if !ok {
		return fmt.Errorf("set locked for account %s: %w", userID, auctionerrors.ErrAccountNotFound)
	}
	account.Locked = locked
	r.accounts[userID] = account
	return nil
}

// accountLocked returns a copy of the account. Callers must hold r.mu.
func (r *MemoryRepo) accountLocked(userID string) (model.Account, error) {
	account, ok := r.accounts[userID]
	if !ok {
		return model.Account{}, fmt.Errorf("get account %s: %w", userID, auctionerrors.ErrAccountNotFound)
	}
	account.Purchased = append([]string(nil), account.Purchased...)
	return account, nil
}
