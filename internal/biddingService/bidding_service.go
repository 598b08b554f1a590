package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"treasure-trove/internal/auctionerrors"
	"treasure-trove/internal/locks"
	model "treasure-trove/internal/models"
	"treasure-trove/internal/repository"
	"treasure-trove/utils"
)

// BidPublisher receives each accepted bid for live fan-out. Publish is called
// in acceptance order while the auction's lock is held, so per-auction
// ordering is the publisher's to preserve, never to recover.
type BidPublisher interface {
	Publish(auctionID string, bid model.Bid)
}

// BiddingService validates and records bids against live auction state
type BiddingService struct {
	auctions  repository.AuctionStore
	bids      repository.BidStore
	accounts  repository.AccountStore
	locks     *locks.KeyedMutex
	publisher BidPublisher
}

// NewBiddingService creates a new BiddingService instance. The keyed mutex
// must be the same instance the settlement engine uses. publisher may be nil
// when no live feed is attached.
func NewBiddingService(auctions repository.AuctionStore, bids repository.BidStore, accounts repository.AccountStore, km *locks.KeyedMutex, publisher BidPublisher) *BiddingService {
	return &BiddingService{
		auctions:  auctions,
		bids:      bids,
		accounts:  accounts,
		locks:     km,
		publisher: publisher,
	}
}

// PlaceBid validates and records a user's bid on an auction. The whole
// read-validate-write sequence runs under the auction's lock: of two
// concurrent equal bids exactly one is accepted, the other is rejected
// against the refreshed highest bid.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount int64) (model.Bid, error) {
	if auctionID == "" || bidderID == "" {
		return model.Bid{}, fmt.Errorf("service: %w - missing auctionID or bidderID", auctionerrors.ErrInvalidBid)
	}
	if amount < 0 {
		return model.Bid{}, fmt.Errorf("service: %w - negative bid amount", auctionerrors.ErrInvalidBid)
	}

	unlock := s.locks.Lock(auctionID)
	defer unlock()

	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}

	account, err := s.accounts.GetAccount(ctx, bidderID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to load bidder %s: %w", bidderID, err)
	}

	// Recomputed from the durable bid set on every attempt; nothing is
	// cached across requests.
	var highest *model.Bid
	winning, err := s.bids.GetWinningBid(ctx, auctionID)
	if err == nil {
		highest = &winning
	} else if !errors.Is(err, auctionerrors.ErrNoBids) {
		return model.Bid{}, fmt.Errorf("service: failed to check winning bid: %w", err)
	}

	if err := Decide(auction, highest, bidderID, amount, account.Tokens, time.Now().UTC()); err != nil {
		return model.Bid{}, fmt.Errorf("service: %w", err)
	}

	bid := model.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.bids.RecordBid(ctx, bid); err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to record bid for auction %s by user %s: %w", auctionID, bidderID, err)
	}

	if s.publisher != nil {
		s.publisher.Publish(auctionID, bid)
	}

	return bid, nil
}

// GetBidsForAuction returns the auction's bid history in creation order
func (s *BiddingService) GetBidsForAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	bids, err := s.bids.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

// GetWinningBid returns the current highest bid for an auction
func (s *BiddingService) GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error) {
	if auctionID == "" {
		return model.Bid{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	winning, err := s.bids.GetWinningBid(ctx, auctionID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to get winning bid for auction %s: %w", auctionID, err)
	}
	return winning, nil
}
