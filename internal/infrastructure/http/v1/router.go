// Package v1 wires the HTTP API surface: routes, middleware chain and handlers.
package v1

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shoplist/internal/domain/auth"
	"shoplist/internal/domain/items"
	"shoplist/internal/domain/lists"
	"shoplist/internal/infrastructure/http/v1/handlers"
	"shoplist/internal/infrastructure/http/v1/middleware"
	"shoplist/pkg/logger"
)

// RouterConfig bundles everything the API needs.
type RouterConfig struct {
	Logger      *logger.Logger
	JWT         middleware.JWTValidator
	AuthService *auth.Service
	ListService *lists.Service
	ItemService *items.Service
	Storage     handlers.Pinger
	Version     string

	// History serves the audit trail; nil (in-memory mode) leaves the
	// endpoint unmounted.
	History handlers.HistoryProvider

	// Requests per minute; zero values fall back to defaults.
	GeneralRPM int
	AuthRPM    int

	CORSOrigins []string
}

// NewRouter builds the Gin engine with the full middleware chain and all
// API routes mounted.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.ErrorHandler())
	router.Use(corsMiddleware(cfg.CORSOrigins))
	router.Use(middleware.NewRateLimiter(cfg.GeneralRPM, cfg.AuthRPM).Handler())

	healthHandler := handlers.NewHealthHandler(cfg.Storage, cfg.Version)
	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	listHandler := handlers.NewListHandler(cfg.ListService)
	itemHandler := handlers.NewItemHandler(cfg.ItemService)
	trashHandler := handlers.NewTrashHandler(cfg.ListService, cfg.ItemService)

	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")

	// Public endpoints.
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/shared/:token", listHandler.GetShared)

	// Everything else needs a valid token.
	authed := api.Group("")
	authed.Use(middleware.Auth(cfg.JWT))
	{
		authed.GET("/auth/me", authHandler.Me)

		authed.GET("/lists", listHandler.List)
		authed.POST("/lists", listHandler.Create)
		authed.GET("/lists/:id", listHandler.Get)
		authed.PUT("/lists/:id", listHandler.Update)
		authed.DELETE("/lists/:id", listHandler.Delete)
		authed.POST("/lists/:id/restore", listHandler.Restore)

		authed.GET("/lists/:id/items", itemHandler.ListByList)
		authed.POST("/lists/:id/items", itemHandler.Create)
		authed.POST("/lists/:id/items/clear-checked", itemHandler.ClearChecked)

		authed.GET("/items/:id", itemHandler.Get)
		authed.PUT("/items/:id", itemHandler.Update)
		authed.DELETE("/items/:id", itemHandler.Delete)
		authed.POST("/items/:id/restore", itemHandler.Restore)

		authed.GET("/trash/lists", trashHandler.Lists)
		authed.GET("/trash/items", trashHandler.Items)

		admin := authed.Group("/trash")
		admin.Use(middleware.RequireAdmin())
		{
			admin.DELETE("/lists/:id", trashHandler.PurgeList)
			admin.DELETE("/items/:id", trashHandler.PurgeItem)
		}

		if cfg.History != nil {
			historyHandler := handlers.NewHistoryHandler(cfg.History)
			authed.GET("/history/:entity/:id", middleware.RequireAdmin(), historyHandler.Get)
		}
	}

	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{middleware.HeaderRequestID, middleware.HeaderTraceID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = origins
	}
	return cors.New(corsCfg)
}
