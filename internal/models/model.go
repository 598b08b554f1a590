package models

import "time"

// AuctionStatus tracks where an auction is in its lifecycle.
type AuctionStatus string

const (
	StatusActive    AuctionStatus = "active"
	StatusClosed    AuctionStatus = "closed"
	StatusPurchased AuctionStatus = "purchased"
)

// Account roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account represents a participant in the marketplace
type Account struct {
	UserID       string   `json:"user_id" db:"user_id"`
	Username     string   `json:"username" db:"username"`
	PasswordHash string   `json:"-" db:"password_hash"`
	Tokens       int64    `json:"tokens" db:"tokens"`
	Role         string   `json:"role" db:"role"`
	Locked       bool     `json:"locked" db:"locked"`
	Lockable     bool     `json:"lockable" db:"lockable"`
	Points       int64    `json:"points" db:"points"`
	Purchased    []string `json:"purchased" db:"-"`
}

// Auction represents a listed item accepting bids until its end date.
// BuyerID and FinalBidAmount stay empty/zero until settlement marks the
// auction purchased.
type Auction struct {
	AuctionID      string        `json:"auction_id" db:"auction_id"`
	Title          string        `json:"title" db:"title"`
	Description    string        `json:"description" db:"description"`
	SellerID       string        `json:"seller_id" db:"seller_id"`
	MinimumBid     int64         `json:"minimum_bid" db:"minimum_bid"`
	EndDate        time.Time     `json:"end_date" db:"end_date"`
	ExpectedValue  int64         `json:"expected_value" db:"expected_value"`
	Status         AuctionStatus `json:"status" db:"status"`
	BuyerID        string        `json:"buyer_id,omitempty" db:"buyer_id"`
	FinalBidAmount int64         `json:"final_bid_amount" db:"final_bid_amount"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// Bid represents a user's offer of tokens on an auction. Bids are write-once.
type Bid struct {
	BidID     string    `json:"bid_id" db:"bid_id"`
	AuctionID string    `json:"auction_id" db:"auction_id"`
	BidderID  string    `json:"bidder_id" db:"bidder_id"`
	Amount    int64     `json:"amount" db:"amount"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Outranks reports whether b beats other in the bid total order: amount
// descending, earliest creation time breaking ties. The same order decides
// the current highest bid, the settlement winner, and replay.
func (b Bid) Outranks(other Bid) bool {
	if b.Amount != other.Amount {
		return b.Amount > other.Amount
	}
	return b.CreatedAt.Before(other.CreatedAt)
}
