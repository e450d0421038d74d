// Package router assembles the two HTTP surfaces: the ledger API served
// by ledgerd and the register's local API served by the terminal process.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/infrastructure/logger"
	"github.com/pos/backend/internal/interfaces/http/handler"
	"github.com/pos/backend/internal/interfaces/http/middleware"
)

// RouteRegistrar registers a handler's routes under the API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// New builds a gin engine with the shared middleware stack and mounts
// every registrar under /api/v1.
func New(log *zap.Logger, registrars ...RouteRegistrar) *gin.Engine {
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
	)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := engine.Group("/api/v1")
	for _, registrar := range registrars {
		registrar.RegisterRoutes(api)
	}
	return engine
}

// NewLedgerRouter builds the server ledger API
func NewLedgerRouter(log *zap.Logger, ledger *handler.LedgerHandler) *gin.Engine {
	return New(log, ledger)
}

// NewTerminalRouter builds the register's local API
func NewTerminalRouter(log *zap.Logger, terminal *handler.TerminalHandler) *gin.Engine {
	return New(log, terminal)
}
