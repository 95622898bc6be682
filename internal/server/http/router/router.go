package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/opendigger/pointgate/internal/adapter/fasign"
	pkgAuth "github.com/opendigger/pointgate/internal/pkg/auth"
	"github.com/opendigger/pointgate/internal/server/http/handlers"
	"github.com/opendigger/pointgate/internal/server/http/middleware"
)

const adminCaller = "admin"

// Setup configures gin router with handlers and middleware. The webhook
// endpoint authenticates by the provider signature, not the service token.
func Setup(facade handlers.PointsFacade, strategy pkgAuth.Strategy, verifier *fasign.CallbackVerifier, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	ledgerHandler := handlers.NewLedgerHandler(facade)
	withdrawalHandler := handlers.NewWithdrawalHandler(facade)
	webhookHandler := handlers.NewWebhookHandler(facade, verifier, logger)
	adminHandler := handlers.NewAdminHandler(facade)

	api := engine.Group("/api")
	api.POST("/webhooks/fasign", webhookHandler.Receive)

	service := api.Group("")
	service.Use(middleware.ServiceAuth(strategy))

	ledger := service.Group("/ledger")
	ledger.POST("/grant", ledgerHandler.Grant)
	ledger.GET("/balance", ledgerHandler.Balance)
	ledger.POST("/reserve", ledgerHandler.Reserve)
	ledger.POST("/reservations/:id/commit", ledgerHandler.Commit)
	ledger.POST("/reservations/:id/release", ledgerHandler.Release)
	ledger.GET("/transactions", ledgerHandler.History)

	withdrawals := service.Group("/withdrawals")
	withdrawals.POST("", withdrawalHandler.Create)
	withdrawals.GET("", withdrawalHandler.List)
	withdrawals.GET("/:id", withdrawalHandler.Get)
	withdrawals.POST("/:id/cancel", withdrawalHandler.Cancel)

	admin := service.Group("/admin")
	admin.Use(middleware.RequireCaller(adminCaller))
	admin.POST("/withdrawals/:id/rollback", adminHandler.Rollback)
	admin.POST("/withdrawals/:id/retrigger", adminHandler.Retrigger)

	return engine
}
