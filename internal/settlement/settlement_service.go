package settlement

import (
	"context"
	"fmt"

	"treasure-trove/internal/locks"
	model "treasure-trove/internal/models"
	"treasure-trove/internal/repository"
	"treasure-trove/utils"
)

// SettlementService drives expired auctions through their one terminal
// transition and applies the winner's account effects.
type SettlementService struct {
	auctions repository.AuctionStore
	bids     repository.BidStore
	accounts repository.AccountStore
	locks    *locks.KeyedMutex
}

// NewSettlementService creates a new SettlementService instance. The keyed
// mutex must be the same instance the bidding service uses.
func NewSettlementService(auctions repository.AuctionStore, bids repository.BidStore, accounts repository.AccountStore, km *locks.KeyedMutex) *SettlementService {
	return &SettlementService{
		auctions: auctions,
		bids:     bids,
		accounts: accounts,
		locks:    km,
	}
}

// CloseAuction settles a single auction. With no bids the auction goes to
// closed and no account changes. With bids, the winner is the top of the bid
// order (highest amount, earliest on tie); the winner is debited (clamped at
// zero), the auction joins their purchased set, and their feedback points
// move by -1 when they overpaid the seller's expected value, +1 otherwise.
//
// Calling it on an already-settled auction returns the current record
// unchanged, which is what makes the periodic sweep safe to re-run. The
// account writes land atomically before the status flip: a failure part-way
// leaves the auction active for the next sweep, and the store's purchase
// marker keeps the retry from debiting twice.
func (s *SettlementService) CloseAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	unlock := s.locks.Lock(auctionID)
	defer unlock()

	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("settlement: failed to load auction %s: %w", auctionID, err)
	}
	if auction.Status != model.StatusActive {
		return auction, nil
	}

	bids, err := s.bids.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("settlement: failed to load bids for auction %s: %w", auctionID, err)
	}

	if len(bids) == 0 {
		settled, err := s.auctions.MarkSettled(ctx, auctionID, model.StatusClosed, "", 0)
		if err != nil {
			return model.Auction{}, fmt.Errorf("settlement: failed to close auction %s: %w", auctionID, err)
		}
		utils.Info("auction closed with no sale", map[string]any{"auction_id": auctionID})
		return settled, nil
	}

	winner := bids[0]
	for _, b := range bids[1:] {
		if b.Outranks(winner) {
			winner = b
		}
	}

	if err := s.applyWinnerEffects(ctx, auction, winner); err != nil {
		return model.Auction{}, err
	}

	settled, err := s.auctions.MarkSettled(ctx, auctionID, model.StatusPurchased, winner.BidderID, winner.Amount)
	if err != nil {
		return model.Auction{}, fmt.Errorf("settlement: failed to mark auction %s purchased: %w", auctionID, err)
	}

	utils.Info("auction settled", map[string]any{
		"auction_id": auctionID,
		"buyer_id":   winner.BidderID,
		"amount":     winner.Amount,
	})
	return settled, nil
}

// applyWinnerEffects performs the account side of settlement as a single
// store call. Debit, purchase marker and points move together or not at all;
// a retry after a prior successful apply is a no-op inside the store, so the
// winner's balance changes exactly once no matter how often the close runs.
func (s *SettlementService) applyWinnerEffects(ctx context.Context, auction model.Auction, winner model.Bid) error {
	var delta int64 = 1
	if winner.Amount > auction.ExpectedValue {
		delta = -1
	}
	if err := s.accounts.ApplyWinnerEffects(ctx, winner.BidderID, auction.AuctionID, winner.Amount, delta); err != nil {
		return fmt.Errorf("settlement: failed to apply winner effects for %s: %w", winner.BidderID, err)
	}
	return nil
}
