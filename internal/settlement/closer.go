package settlement

import (
	"context"
	"time"

	model "treasure-trove/internal/models"
	"treasure-trove/internal/repository"
	"treasure-trove/utils"
)

// DefaultCloseInterval is how often the closer scans for expired auctions.
const DefaultCloseInterval = 10 * time.Second

// Engine settles a single auction; satisfied by SettlementService.
type Engine interface {
	CloseAuction(ctx context.Context, auctionID string) (model.Auction, error)
}

// Closer periodically finds auctions past their end date that are still
// active and settles each one. One auction failing is logged and skipped;
// idempotent settlement means the next sweep retries it.
type Closer struct {
	auctions repository.AuctionStore
	engine   Engine
	interval time.Duration
}

// NewCloser creates an auction closer. A non-positive interval falls back to
// DefaultCloseInterval.
func NewCloser(auctions repository.AuctionStore, engine Engine, interval time.Duration) *Closer {
	if interval <= 0 {
		interval = DefaultCloseInterval
	}
	return &Closer{auctions: auctions, engine: engine, interval: interval}
}

// Run blocks, sweeping on the configured interval until ctx is cancelled.
func (c *Closer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over the expired-but-active auctions.
func (c *Closer) Sweep(ctx context.Context) {
	expired, err := c.auctions.FindExpiredActive(ctx, time.Now().UTC())
	if err != nil {
		utils.Error("auction close sweep failed", map[string]any{"error": err.Error()})
		return
	}

	for _, auction := range expired {
		if _, err := c.engine.CloseAuction(ctx, auction.AuctionID); err != nil {
			utils.Error("failed to close auction", map[string]any{
				"auction_id": auction.AuctionID,
				"error":      err.Error(),
			})
		}
	}
}
