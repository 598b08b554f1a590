package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"treasure-trove/db"
	auctions "treasure-trove/internal/auctionService"
	bidding "treasure-trove/internal/biddingService"
	"treasure-trove/internal/broadcast"
	"treasure-trove/internal/locks"
	"treasure-trove/internal/repository"
	"treasure-trove/internal/server"
	"treasure-trove/internal/settlement"
	users "treasure-trove/internal/userService"
	auctionhandler "treasure-trove/services/auction/handler"
	livehandler "treasure-trove/services/live/handler"
	userhandler "treasure-trove/services/user/handler"
	"treasure-trove/utils"
)

func main() {
	auctionStore, bidStore, accountStore := buildStores()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		utils.Fatal("JWT_SECRET env variable is not set", nil)
	}

	auctionLocks := locks.NewKeyedMutex()
	hub := broadcast.NewHub(bidStore, accountStore, auctionLocks)

	biddingSvc := bidding.NewBiddingService(auctionStore, bidStore, accountStore, auctionLocks, hub)
	settlementSvc := settlement.NewSettlementService(auctionStore, bidStore, accountStore, auctionLocks)
	auctionSvc := auctions.NewAuctionService(auctionStore)
	userSvc := users.NewUserService(accountStore, []byte(jwtSecret), users.DefaultStartingTokens)

	closer := settlement.NewCloser(auctionStore, settlementSvc, closeInterval())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go closer.Run(ctx)

	router := server.SetupRouter(server.Handlers{
		Auctions: auctionhandler.NewAuctionHandler(auctionSvc, biddingSvc),
		Users:    userhandler.NewUserHandler(userSvc),
		Live:     livehandler.NewLiveHandler(userSvc, hub, biddingSvc),
		Auth:     userSvc,
	})

	port := getPort()
	utils.Info("starting auction server", map[string]any{"port": port})
	if err := router.Run(port); err != nil {
		utils.Fatal("failed to start server", map[string]any{"error": err.Error()})
	}
}

// buildStores selects Postgres when POSTGRES_CONN is set, otherwise the
// in-memory repository.
func buildStores() (repository.AuctionStore, repository.BidStore, repository.AccountStore) {
	connString := os.Getenv("POSTGRES_CONN")
	if connString == "" {
		utils.Warn("POSTGRES_CONN not set, using in-memory storage", nil)
		repo := repository.NewMemoryRepo()
		return repo, repo, repo
	}

	conn, err := db.Connect(connString)
	if err != nil {
		utils.Fatal("cannot connect to database", map[string]any{"error": err.Error()})
	}
	repo := repository.NewPostgresRepo(conn)
	return repo, repo, repo
}

// closeInterval returns the auction sweep period from env or the default
func closeInterval() time.Duration {
	if raw := os.Getenv("CLOSE_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
		utils.Warn("invalid CLOSE_INTERVAL, using default", map[string]any{"value": raw})
	}
	return settlement.DefaultCloseInterval
}

// getPort returns the server port from env or defaults to ":8080"
func getPort() string {
	if p := os.Getenv("PORT"); p != "" {
		return fmt.Sprintf(":%s", p)
	}
	return ":8080"
}
