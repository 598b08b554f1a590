package broadcast

import (
	"context"
	"sync"
	"time"

	"treasure-trove/internal/locks"
	model "treasure-trove/internal/models"
	"treasure-trove/internal/repository"
	"treasure-trove/utils"
)

// BidDetails is the bid payload carried by a live feed message.
type BidDetails struct {
	BidID     string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// BidMessage is the only schema the live feed exposes. Replayed marks history
// delivered on join, as opposed to bids accepted while subscribed.
type BidMessage struct {
	AuctionID string     `json:"auctionId"`
	Bid       BidDetails `json:"bid"`
	Replayed  bool       `json:"replayed"`
}

// Subscriber is one connection's inbox. Send must not block; it returns false
// when the subscriber can no longer accept messages, after which the hub
// drops it from every topic it joined.
type Subscriber interface {
	Send(msg BidMessage) bool
}

// Hub is a topic-per-auction fan-out of accepted bids. Joining replays the
// auction's full history in creation order before any live delivery; within
// a topic every subscriber observes bids in acceptance order.
type Hub struct {
	mu       sync.RWMutex
	topics   map[string]map[Subscriber]struct{}
	bids     repository.BidStore
	accounts repository.AccountStore
	locks    *locks.KeyedMutex
}

// NewHub creates a hub. The keyed mutex must be the instance the bidding
// service publishes under, so that replay-on-join can never race a bid
// between its persistence and its broadcast.
func NewHub(bids repository.BidStore, accounts repository.AccountStore, km *locks.KeyedMutex) *Hub {
	return &Hub{
		topics:   make(map[string]map[Subscriber]struct{}),
		bids:     bids,
		accounts: accounts,
		locks:    km,
	}
}

// Join replays the auction's bid history to sub, tagged replayed, then adds
// sub to the topic. Holding the auction lock across both steps means every
// bid reaches the subscriber exactly once: either in the replay or live,
// never both.
func (h *Hub) Join(ctx context.Context, auctionID string, sub Subscriber) error {
	unlock := h.locks.Lock(auctionID)
	defer unlock()

	history, err := h.bids.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return err
	}
	for _, bid := range history {
		if !sub.Send(h.message(ctx, bid, true)) {
			return nil // subscriber gone before it finished joining
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	topic, ok := h.topics[auctionID]
	if !ok {
		topic = make(map[Subscriber]struct{})
		h.topics[auctionID] = topic
	}
	topic[sub] = struct{}{}
	return nil
}

// Leave removes sub from the auction's topic
func (h *Hub) Leave(auctionID string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(auctionID, sub)
}

// LeaveAll removes sub from every topic; used when a connection closes.
func (h *Hub) LeaveAll(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for auctionID := range h.topics {
		h.dropLocked(auctionID, sub)
	}
}

// Publish fans an accepted bid out to the auction's subscribers, the bidder
// included. The caller holds the auction's lock, so delivery order matches
// acceptance order; subscribers whose inbox is full are dropped rather than
// allowed to stall the topic.
func (h *Hub) Publish(auctionID string, bid model.Bid) {
	msg := h.message(context.Background(), bid, false)

	h.mu.RLock()
	var stalled []Subscriber
	for sub := range h.topics[auctionID] {
		if !sub.Send(msg) {
			stalled = append(stalled, sub)
		}
	}
	h.mu.RUnlock()

	if len(stalled) == 0 {
		return
	}
	h.mu.Lock()
	for _, sub := range stalled {
		h.dropLocked(auctionID, sub)
	}
	h.mu.Unlock()
	utils.Warn("dropped stalled live feed subscribers", map[string]any{
		"auction_id": auctionID,
		"count":      len(stalled),
	})
}

func (h *Hub) dropLocked(auctionID string, sub Subscriber) {
	topic, ok := h.topics[auctionID]
	if !ok {
		return
	}
	delete(topic, sub)
	if len(topic) == 0 {
		delete(h.topics, auctionID)
	}
}

// message enriches a bid with its bidder's username, as clients render names
// rather than IDs.
func (h *Hub) message(ctx context.Context, bid model.Bid, replayed bool) BidMessage {
	username := "Unknown"
	if account, err := h.accounts.GetAccount(ctx, bid.BidderID); err == nil {
		username = account.Username
	}
	return BidMessage{
		AuctionID: bid.AuctionID,
		Bid: BidDetails{
			BidID:     bid.BidID,
			UserID:    bid.BidderID,
			Username:  username,
			Amount:    bid.Amount,
			CreatedAt: bid.CreatedAt,
		},
		Replayed: replayed,
	}
}
