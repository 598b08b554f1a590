package integrationtests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	model "treasure-trove/internal/models"
)

func TestAuctionBiddingFlow(t *testing.T) {
	env := SetupTestEnv()
	endDate := time.Now().UTC().Add(time.Hour)

	_, sellerToken := signupAndLogin(t, env, "seller", "pw-seller")
	aliceID, aliceToken := signupAndLogin(t, env, "alice", "pw-alice")
	bobID, bobToken := signupAndLogin(t, env, "bob", "pw-bob")

	auction := createAuction(t, env, sellerToken, "old radio", 10, 50, endDate)
	base := "/auctions/" + auction.AuctionID

	t.Run("unauthenticated_request_rejected", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodGet, "/auctions", "", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("seller_cannot_bid", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodPost, base+"/bids", sellerToken, map[string]int64{"amount": 20})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("below_minimum_rejected", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodPost, base+"/bids", aliceToken, map[string]int64{"amount": 5})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("first_bid_accepted", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodPost, base+"/bids", aliceToken, map[string]int64{"amount": 20})
		require.Equal(t, http.StatusCreated, w.Code)

		var bid struct {
			BidID     string `json:"bid_id"`
			AuctionID string `json:"auction_id"`
			BidderID  string `json:"bidder_id"`
			Amount    int64  `json:"amount"`
			CreatedAt string `json:"created_at"`
		}
		parseData(t, w, &bid)
		require.NotEmpty(t, bid.BidID)
		require.Equal(t, auction.AuctionID, bid.AuctionID)
		require.Equal(t, aliceID, bid.BidderID)
		require.Equal(t, int64(20), bid.Amount)
		_, err := time.Parse(time.RFC3339, bid.CreatedAt)
		require.NoError(t, err)
	})

	t.Run("equal_bid_rejected", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodPost, base+"/bids", bobToken, map[string]int64{"amount": 20})
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("outbid_accepted", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodPost, base+"/bids", bobToken, map[string]int64{"amount": 35})
		require.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("leader_cannot_raise_own_bid", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodPost, base+"/bids", bobToken, map[string]int64{"amount": 40})
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("bid_above_balance_rejected", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodPost, base+"/bids", aliceToken, map[string]int64{"amount": 500})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bid_history_in_order", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodGet, base+"/bids", aliceToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var bids []model.Bid
		parseData(t, w, &bids)
		require.Len(t, bids, 2)
		require.Equal(t, int64(20), bids[0].Amount)
		require.Equal(t, int64(35), bids[1].Amount)
	})

	t.Run("winning_bid", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodGet, base+"/winning", aliceToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var bid struct {
			BidderID string `json:"bidder_id"`
			Amount   int64  `json:"amount"`
		}
		parseData(t, w, &bid)
		require.Equal(t, bobID, bid.BidderID)
		require.Equal(t, int64(35), bid.Amount)
	})

	t.Run("settlement_transfers_tokens", func(t *testing.T) {
		settled, err := env.settlement.CloseAuction(context.Background(), auction.AuctionID)
		require.NoError(t, err)
		require.Equal(t, model.StatusPurchased, settled.Status)
		require.Equal(t, bobID, settled.BuyerID)
		require.Equal(t, int64(35), settled.FinalBidAmount)

		w := ExecuteRequest(t, env.router, http.MethodGet, "/users/me", bobToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var account model.Account
		parseData(t, w, &account)
		require.Equal(t, int64(65), account.Tokens)
		require.Equal(t, []string{auction.AuctionID}, account.Purchased)
		require.Equal(t, int64(1), account.Points)
	})

	t.Run("bidding_after_settlement_rejected", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodPost, base+"/bids", aliceToken, map[string]int64{"amount": 60})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuctionWithNoBidsCloses(t *testing.T) {
	env := SetupTestEnv()
	_, sellerToken := signupAndLogin(t, env, "seller", "pw-seller")
	auction := createAuction(t, env, sellerToken, "unwanted lamp", 10, 50, time.Now().UTC().Add(time.Hour))

	settled, err := env.settlement.CloseAuction(context.Background(), auction.AuctionID)
	require.NoError(t, err)
	require.Equal(t, model.StatusClosed, settled.Status)
	require.Empty(t, settled.BuyerID)

	w := ExecuteRequest(t, env.router, http.MethodGet, "/auctions/"+auction.AuctionID, sellerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var fetched model.Auction
	parseData(t, w, &fetched)
	require.Equal(t, model.StatusClosed, fetched.Status)
}

func TestAuctionListingLifecycle(t *testing.T) {
	env := SetupTestEnv()
	_, sellerToken := signupAndLogin(t, env, "seller", "pw-seller")
	auction := createAuction(t, env, sellerToken, "old radio", 10, 50, time.Now().UTC().Add(time.Hour))

	t.Run("update_listing_fields", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodPut, "/auctions/"+auction.AuctionID, sellerToken, map[string]string{
			"title":       "older radio",
			"description": "genuine bakelite",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var updated model.Auction
		parseData(t, w, &updated)
		require.Equal(t, "older radio", updated.Title)
		require.Equal(t, model.StatusActive, updated.Status)
	})

	t.Run("list_contains_auction", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodGet, "/auctions", sellerToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var listed []model.Auction
		parseData(t, w, &listed)
		require.Len(t, listed, 1)
	})

	t.Run("delete_then_fetch_404", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodDelete, "/auctions/"+auction.AuctionID, sellerToken, nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = ExecuteRequest(t, env.router, http.MethodGet, "/auctions/"+auction.AuctionID, sellerToken, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAdminEndpoints(t *testing.T) {
	env := SetupTestEnv()
	aliceID, aliceToken := signupAndLogin(t, env, "alice", "pw-alice")
	adminToken := seedAdmin(t, env, "admin", "pw-admin")

	t.Run("regular_user_forbidden", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodGet, "/admin/users", aliceToken, nil)
		require.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin_lists_users", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodGet, "/admin/users", adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var accounts []model.Account
		parseData(t, w, &accounts)
		require.Len(t, accounts, 2)
	})

	t.Run("lock_blocks_user", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodPut, "/admin/users/"+aliceID+"/lock", adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		// an existing session stops working
		w = ExecuteRequest(t, env.router, http.MethodGet, "/users/me", aliceToken, nil)
		require.Equal(t, http.StatusForbidden, w.Code)

		// and a fresh login is refused
		w = ExecuteRequest(t, env.router, http.MethodPost, "/users/login", "", map[string]string{
			"username": "alice", "password": "pw-alice",
		})
		require.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unlock_restores_access", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodPut, "/admin/users/"+aliceID+"/unlock", adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = ExecuteRequest(t, env.router, http.MethodGet, "/users/me", aliceToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
	})
}

func TestSignupValidation(t *testing.T) {
	env := SetupTestEnv()
	signupAndLogin(t, env, "alice", "pw-alice")

	t.Run("duplicate_username", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodPost, "/users/signup", "", map[string]string{
			"username": "alice", "password": "other",
		})
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("invalid_json", func(t *testing.T) {
		w := ExecuteRequest(t, env.router, http.MethodPost, "/users/signup", "", "{username: 'missing quotes'}")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}
