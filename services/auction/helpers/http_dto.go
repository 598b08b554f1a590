package helpers

import "time"

// Request/Response DTOs
type CreateAuctionRequest struct {
	Title         string    `json:"title" binding:"required"`
	Description   string    `json:"description"`
	MinimumBid    int64     `json:"minimum_bid" binding:"gte=0"`
	EndDate       time.Time `json:"end_date" binding:"required"`
	ExpectedValue int64     `json:"expected_value" binding:"gte=0"`
}

type UpdateAuctionRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// PlaceBidRequest carries the bid amount. A pointer keeps a literal zero
// distinguishable from a missing field, so a zero-token bid binds fine.
type PlaceBidRequest struct {
	Amount *int64 `json:"amount" binding:"required,gte=0"`
}

type BidResponse struct {
	BidID     string `json:"bid_id"`
	AuctionID string `json:"auction_id"`
	BidderID  string `json:"bidder_id"`
	Amount    int64  `json:"amount"`
	CreatedAt string `json:"created_at"`
}
