package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	auctions "treasure-trove/internal/auctionService"
	bidding "treasure-trove/internal/biddingService"
	"treasure-trove/internal/broadcast"
	"treasure-trove/internal/locks"
	model "treasure-trove/internal/models"
	"treasure-trove/internal/repository"
	"treasure-trove/internal/server"
	"treasure-trove/internal/settlement"
	users "treasure-trove/internal/userService"
	auctionhandler "treasure-trove/services/auction/handler"
	livehandler "treasure-trove/services/live/handler"
	userhandler "treasure-trove/services/user/handler"
)

const testJWTSecret = "integration-test-secret"

// testEnv is a fully wired application on in-memory storage.
type testEnv struct {
	router     *gin.Engine
	repo       *repository.MemoryRepo
	settlement *settlement.SettlementService
}

// SetupTestEnv initializes the complete service graph for integration testing.
func SetupTestEnv() *testEnv {
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	auctionLocks := locks.NewKeyedMutex()
	hub := broadcast.NewHub(repo, repo, auctionLocks)

	biddingSvc := bidding.NewBiddingService(repo, repo, repo, auctionLocks, hub)
	settlementSvc := settlement.NewSettlementService(repo, repo, repo, auctionLocks)
	auctionSvc := auctions.NewAuctionService(repo)
	userSvc := users.NewUserService(repo, []byte(testJWTSecret), users.DefaultStartingTokens)

	router := server.SetupRouter(server.Handlers{
		Auctions: auctionhandler.NewAuctionHandler(auctionSvc, biddingSvc),
		Users:    userhandler.NewUserHandler(userSvc),
		Live:     livehandler.NewLiveHandler(userSvc, hub, biddingSvc),
		Auth:     userSvc,
	})

	return &testEnv{router: router, repo: repo, settlement: settlementSvc}
}

// ExecuteRequest executes an HTTP request with an optional bearer token and
// returns the response recorder.
func ExecuteRequest(t *testing.T, router *gin.Engine, method, url, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		var err error
		reqBody, err = json.Marshal(v)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// parseData unmarshals the "data" field of a response envelope into out.
func parseData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

// signupAndLogin registers an account through the API and returns its user ID
// and a session token.
func signupAndLogin(t *testing.T, env *testEnv, username, password string) (string, string) {
	t.Helper()

	creds := map[string]string{"username": username, "password": password}
	w := ExecuteRequest(t, env.router, http.MethodPost, "/users/signup", "", creds)
	require.Equal(t, http.StatusCreated, w.Code)

	var account model.Account
	parseData(t, w, &account)

	w = ExecuteRequest(t, env.router, http.MethodPost, "/users/login", "", creds)
	require.Equal(t, http.StatusOK, w.Code)

	var login struct {
		Token string `json:"token"`
	}
	parseData(t, w, &login)
	require.NotEmpty(t, login.Token)

	return account.UserID, login.Token
}

// seedAdmin creates an admin account directly in storage and returns a token
// for it; admin accounts are never created through the public API.
func seedAdmin(t *testing.T, env *testEnv, username, password string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, env.repo.CreateAccount(context.Background(), model.Account{
		UserID:       "admin-" + username,
		Username:     username,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Lockable:     false,
	}))

	userSvc := users.NewUserService(env.repo, []byte(testJWTSecret), users.DefaultStartingTokens)
	token, err := userSvc.Login(context.Background(), username, password)
	require.NoError(t, err)
	return token
}

// createAuction lists an item through the API and returns it.
func createAuction(t *testing.T, env *testEnv, token, title string, minimumBid, expectedValue int64, endDate time.Time) model.Auction {
	t.Helper()

	w := ExecuteRequest(t, env.router, http.MethodPost, "/auctions", token, map[string]any{
		"title":          title,
		"description":    title + " description",
		"minimum_bid":    minimumBid,
		"expected_value": expectedValue,
		"end_date":       endDate,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var auction model.Auction
	parseData(t, w, &auction)
	require.NotEmpty(t, auction.AuctionID)
	return auction
}
