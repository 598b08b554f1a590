package settlement

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"treasure-trove/internal/locks"
	model "treasure-trove/internal/models"
	"treasure-trove/internal/repository"
)

// stubEngine records which auctions a sweep asked it to close and can be told
// to fail specific ones.
type stubEngine struct {
	mu      sync.Mutex
	closed  []string
	failing map[string]bool
}

func (e *stubEngine) CloseAuction(_ context.Context, auctionID string) (model.Auction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = append(e.closed, auctionID)
	if e.failing[auctionID] {
		return model.Auction{}, errors.New("settlement failed")
	}
	return model.Auction{AuctionID: auctionID, Status: model.StatusClosed}, nil
}

func (e *stubEngine) closedIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := append([]string(nil), e.closed...)
	sort.Strings(ids)
	return ids
}

func TestCloser_SweepClosesOnlyExpiredActive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC()
	repo := repository.NewMemoryRepo()

	require.NoError(t, repo.CreateAuction(ctx, expiredAuction("expired1", 10, 50)))
	require.NoError(t, repo.CreateAuction(ctx, expiredAuction("expired2", 10, 50)))
	running := expiredAuction("running", 10, 50)
	running.EndDate = now.Add(time.Hour)
	require.NoError(t, repo.CreateAuction(ctx, running))
	done := expiredAuction("done", 10, 50)
	done.Status = model.StatusPurchased
	require.NoError(t, repo.CreateAuction(ctx, done))

	engine := &stubEngine{}
	NewCloser(repo, engine, time.Minute).Sweep(ctx)

	require.Equal(t, []string{"expired1", "expired2"}, engine.closedIDs())
}

// One auction failing to settle must not stop the rest of the sweep.
func TestCloser_SweepContinuesPastFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(ctx, expiredAuction("a1", 10, 50)))
	require.NoError(t, repo.CreateAuction(ctx, expiredAuction("a2", 10, 50)))
	require.NoError(t, repo.CreateAuction(ctx, expiredAuction("a3", 10, 50)))

	engine := &stubEngine{failing: map[string]bool{"a2": true}}
	NewCloser(repo, engine, time.Minute).Sweep(ctx)

	require.Equal(t, []string{"a1", "a2", "a3"}, engine.closedIDs())
}

// End-to-end: the closer drives the real settlement engine.
func TestCloser_SweepWithSettlementService(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	service := NewSettlementService(repo, repo, repo, locks.NewKeyedMutex())

	require.NoError(t, repo.CreateAuction(ctx, expiredAuction("a1", 10, 50)))
	require.NoError(t, repo.CreateAccount(ctx, model.Account{UserID: "bob", Username: "bob", Tokens: 100}))
	require.NoError(t, repo.RecordBid(ctx, model.Bid{
		BidID: "b1", AuctionID: "a1", BidderID: "bob", Amount: 30, CreatedAt: time.Now().UTC(),
	}))

	NewCloser(repo, service, time.Minute).Sweep(ctx)

	auction, err := repo.GetAuction(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, model.StatusPurchased, auction.Status)
	require.Equal(t, "bob", auction.BuyerID)

	// second sweep finds nothing left to do
	NewCloser(repo, service, time.Minute).Sweep(ctx)
	again, err := repo.GetAuction(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, auction, again)
}

func TestCloser_RunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryRepo()
	engine := &stubEngine{}
	closer := NewCloser(repo, engine, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		closer.Run(ctx)
		close(finished)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("closer did not stop after cancel")
	}
}
