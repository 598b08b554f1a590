package auctions

import (
	"context"
	"fmt"
	"time"

	"treasure-trove/internal/auctionerrors"
	model "treasure-trove/internal/models"
	"treasure-trove/internal/repository"
	"treasure-trove/utils"
)

// AuctionService handles auction listing lifecycle outside of bidding and
// settlement: creation, lookups, listing edits and administrative deletion.
type AuctionService struct {
	auctions repository.AuctionStore
}

// NewAuctionService creates a new AuctionService instance
func NewAuctionService(auctions repository.AuctionStore) *AuctionService {
	return &AuctionService{auctions: auctions}
}

// CreateAuction lists a new item for the given seller
func (s *AuctionService) CreateAuction(ctx context.Context, sellerID, title, description string, minimumBid, expectedValue int64, endDate time.Time) (model.Auction, error) {
	if sellerID == "" || title == "" {
		return model.Auction{}, fmt.Errorf("service: %w - missing seller or title", auctionerrors.ErrInvalidBid)
	}
	if minimumBid < 0 || expectedValue < 0 {
		return model.Auction{}, fmt.Errorf("service: %w - negative amount", auctionerrors.ErrInvalidBid)
	}

	auction := model.Auction{
		AuctionID:     utils.GenerateID(),
		Title:         title,
		Description:   description,
		SellerID:      sellerID,
		MinimumBid:    minimumBid,
		EndDate:       endDate,
		ExpectedValue: expectedValue,
		Status:        model.StatusActive,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.auctions.CreateAuction(ctx, auction); err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to create auction: %w", err)
	}
	return auction, nil
}

// GetAuction returns the auction with the given ID
func (s *AuctionService) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// ListAuctions returns every auction
func (s *AuctionService) ListAuctions(ctx context.Context) ([]model.Auction, error) {
	auctions, err := s.auctions.ListAuctions(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions: %w", err)
	}
	return auctions, nil
}

// UpdateAuction edits the listing fields of an auction. Status, buyer and
// final amount belong to settlement and are not reachable from here.
func (s *AuctionService) UpdateAuction(ctx context.Context, auctionID, title, description string) (model.Auction, error) {
	if title == "" {
		return model.Auction{}, fmt.Errorf("service: %w - missing title", auctionerrors.ErrInvalidBid)
	}
	auction, err := s.auctions.UpdateListing(ctx, auctionID, title, description)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to update auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// DeleteAuction removes an auction document. Administrative housekeeping;
// the core never deletes auctions on its own.
func (s *AuctionService) DeleteAuction(ctx context.Context, auctionID string) error {
	if err := s.auctions.DeleteAuction(ctx, auctionID); err != nil {
		return fmt.Errorf("service: failed to delete auction %s: %w", auctionID, err)
	}
	return nil
}
