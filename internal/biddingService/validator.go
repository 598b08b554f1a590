package bidding

import (
	"fmt"
	"time"

	"treasure-trove/internal/auctionerrors"
	model "treasure-trove/internal/models"
)

// Decide is the pure bid admission check. Given the auction as currently
// stored, the current highest bid (nil when the auction has none), and the
// proposed bid, it returns nil to accept or a typed rejection. Rules apply
// in a fixed order so a bid failing several checks always reports the same
// reason.
func Decide(auction model.Auction, highest *model.Bid, bidderID string, amount, balance int64, now time.Time) error {
	if auction.Status != model.StatusActive || !auction.EndDate.After(now) {
		return fmt.Errorf("%w - auction %s", auctionerrors.ErrAuctionNotActive, auction.AuctionID)
	}
	if bidderID == auction.SellerID {
		return auctionerrors.ErrSelfBid
	}
	if amount < auction.MinimumBid {
		return fmt.Errorf("%w - minimum is %d", auctionerrors.ErrBelowMinimum, auction.MinimumBid)
	}
	if balance < amount {
		return fmt.Errorf("%w - balance is %d", auctionerrors.ErrInsufficientBalance, balance)
	}
	if highest != nil {
		if amount <= highest.Amount {
			return fmt.Errorf("%w - current highest bid is %d", auctionerrors.ErrNotHighEnough, highest.Amount)
		}
		if highest.BidderID == bidderID {
			return auctionerrors.ErrRepeatBidder
		}
	}
	return nil
}
