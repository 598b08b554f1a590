package server

import (
	auctionhandler "treasure-trove/services/auction/handler"
	livehandler "treasure-trove/services/live/handler"
	userhandler "treasure-trove/services/user/handler"

	"github.com/gin-gonic/gin"
)

// Handlers bundles the route handlers the router mounts.
type Handlers struct {
	Auctions *auctionhandler.AuctionHandler
	Users    *userhandler.UserHandler
	Live     *livehandler.LiveHandler
	Auth     Authenticator
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(h Handlers) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	authRequired := AuthMiddleware(h.Auth)

	users := router.Group("/users")
	{
		users.POST("/signup", h.Users.SignupHandler)
		users.POST("/login", h.Users.LoginHandler)
		users.GET("/me", authRequired, h.Users.MeHandler)
	}

	auctions := router.Group("/auctions", authRequired)
	{
		auctions.GET("", h.Auctions.ListAuctionsHandler)
		auctions.POST("", h.Auctions.CreateAuctionHandler)
		auctions.GET("/:auction_id", h.Auctions.GetAuctionHandler)
		auctions.PUT("/:auction_id", h.Auctions.UpdateAuctionHandler)
		auctions.DELETE("/:auction_id", h.Auctions.DeleteAuctionHandler)
		auctions.GET("/:auction_id/bids", h.Auctions.GetBidsByAuctionHandler)
		auctions.POST("/:auction_id/bids", h.Auctions.PlaceBidHandler)
		auctions.GET("/:auction_id/winning", h.Auctions.GetWinningBidHandler)
	}

	admin := router.Group("/admin", authRequired, AdminOnlyMiddleware)
	{
		admin.GET("/users", h.Users.ListUsersHandler)
		admin.PUT("/users/:user_id/lock", h.Users.LockUserHandler)
		admin.PUT("/users/:user_id/unlock", h.Users.UnlockUserHandler)
	}

	// The live feed authenticates inside the handshake rather than through
	// AuthMiddleware, so a rejected connection gets a proper HTTP status
	// before the upgrade.
	router.GET("/ws", h.Live.ServeWS)

	return router
}
