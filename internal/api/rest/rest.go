package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-stacks-mint/internal/api/middleware"
)

// SetupRoutes configures all REST API routes. auth is nil when authentication is disabled;
// mediaDir is empty unless the local content store is served by this process.
func SetupRoutes(router *gin.Engine, handler Handler, auth *middleware.Authenticator, mediaDir string) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	if mediaDir != "" {
		router.Static(MEDIA_ROUTE, mediaDir)
	}

	v1 := router.Group("/api/v1")
	{
		// Minting (bearer subject must match the creator when auth is enabled)
		if auth != nil {
			v1.POST("/mint", middleware.Auth(auth), handler.Mint)
		} else {
			v1.POST("/mint", handler.Mint)
		}
		v1.GET("/mints/:tx_id", handler.GetMint)

		// Assets (public read access)
		v1.GET("/nfts/:token_id", handler.GetNFT)
		v1.GET("/nfts", handler.ListNFTs)
	}
}
