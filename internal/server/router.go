package server

import (
	"bidbot/internal/clock"
	accounthandler "bidbot/services/account/handler"
	biddinghandler "bidbot/services/bidding/handler"
	livehandler "bidbot/services/live/handler"
	"bidbot/utils"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Dependencies are the services the HTTP API is built on
type Dependencies struct {
	Bidding  biddinghandler.BiddingServiceInterface
	Accounts accounthandler.AccountServiceInterface
	Sessions SessionResolver
	Feed     livehandler.Subscriber

	// Clock tells live subscribers whether an item has ended; nil means the system clock
	Clock          clock.Clock
	// AllowedOrigins are websocket origins accepted besides the server's own host
	AllowedOrigins []string

	// Health reports backend reachability; nil means always healthy
	Health func(ctx context.Context) error
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging
	router.Use(SessionMiddleware(deps.Sessions))

	biddingHandler := biddinghandler.NewBiddingHandler(deps.Bidding)
	accountHandler := accounthandler.NewAccountHandler(deps.Accounts)
	liveHandler := livehandler.NewLiveHandler(deps.Bidding, deps.Feed, deps.Clock, deps.AllowedOrigins)

	router.GET("/health", healthHandler(deps.Health))

	accounts := router.Group("/accounts")
	{
		accounts.POST("/signup", accountHandler.SignupHandler)
		accounts.POST("/login", accountHandler.LoginHandler)
		accounts.POST("/logout", accountHandler.LogoutHandler)
		accounts.POST("/password-reset", accountHandler.PasswordResetHandler)
	}

	bids := router.Group("/bids")
	{
		bids.POST("", biddingHandler.RecordBidHandler)
		bids.PUT("/:bid_id", biddingHandler.ModifyBidHandler)
	}

	items := router.Group("/items")
	{
		items.GET("", biddingHandler.ListItemsHandler)
		items.POST("", biddingHandler.CreateItemHandler)
		items.GET("/:item_id", biddingHandler.GetItemHandler)
		items.DELETE("/:item_id", biddingHandler.DeleteItemHandler)
		items.GET("/:item_id/bids", biddingHandler.GetBidsByItemHandler)
		items.GET("/:item_id/winning", biddingHandler.GetWinningBidHandler)
		items.GET("/:item_id/live", liveHandler.StreamHandler)
	}

	users := router.Group("/users")
	{
		users.GET("/:user_id/bids", biddingHandler.GetBidsByUserHandler)
		users.GET("/:user_id/items", biddingHandler.GetItemsByUserHandler)
		users.GET("/:user_id/stats", biddingHandler.GetUserStatsHandler)
	}

	return router
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				utils.JSONError(c, http.StatusServiceUnavailable, err, "unhealthy")
				utils.Error("Health check failed", map[string]any{"error": err.Error()})
				return
			}
		}
		utils.JSONMessage(c, http.StatusOK, "ok")
	}
}
