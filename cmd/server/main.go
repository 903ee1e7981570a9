// Package main is the entry point for the shoplist API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"shoplist/internal/core/tx"
	"shoplist/internal/domain"
	"shoplist/internal/domain/auth"
	"shoplist/internal/domain/items"
	"shoplist/internal/domain/lists"
	v1 "shoplist/internal/infrastructure/http/v1"
	"shoplist/internal/infrastructure/http/v1/handlers"
	"shoplist/internal/infrastructure/storage/memory"
	"shoplist/internal/infrastructure/storage/postgres"
	"shoplist/internal/infrastructure/storage/postgres/auth_repo"
	"shoplist/internal/infrastructure/storage/postgres/record_repo"
	"shoplist/pkg/logger"
)

const version = "1.0.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting shoplist server")

	var (
		txManager tx.Manager
		listRepo  lists.Repository
		itemRepo  items.Repository
		userRepo  auth.UserRepository
		storage   handlers.Pinger
		audit     *postgres.AuditService
	)

	dsn := getEnv("DATABASE_URL", "")
	if dsn != "" {
		poolCfg := postgres.DefaultPoolConfig(dsn)
		if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
			poolCfg.MaxConns = int32(maxConns)
		}

		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			log.Fatalw("failed to connect to database", "error", err)
		}
		defer pool.Close()
		log.Info("database connection established")

		pgTxManager := postgres.NewTxManager(pool)
		txManager = pgTxManager
		listRepo = record_repo.NewListRepo(pgTxManager)
		itemRepo = record_repo.NewItemRepo(pgTxManager)
		userRepo = auth_repo.NewUserRepo(pgTxManager)
		storage = pool

		audit, err = postgres.NewAuditService(pgTxManager)
		if err != nil {
			log.Fatalw("failed to initialize audit service", "error", err)
		}
	} else {
		// In-memory mode for local development and tests.
		log.Warn("DATABASE_URL not set, using in-memory storage")
		store := memory.NewStore()
		txManager = store
		listRepo = store.Lists()
		itemRepo = store.Items()
		userRepo = store.Users()
		storage = store
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		if getEnv("APP_ENV", "development") != "development" {
			log.Fatal("JWT_SECRET must be set outside development")
		}
		jwtSecret = "dev-secret-change-me"
	}
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))

	authService := auth.NewService(userRepo, txManager, jwtService, auth.DefaultServiceConfig())

	itemRepoCascader, ok := itemRepo.(lists.ItemCascader)
	if !ok {
		log.Fatal("item repository does not support list cascades")
	}
	listService := lists.NewService(listRepo, itemRepoCascader, txManager)
	itemService := items.NewService(itemRepo, listRepo, txManager)

	if audit != nil {
		registerAuditHooks(listService, itemService, audit)
		log.Info("audit trail enabled")
	}

	routerCfg := v1.RouterConfig{
		Logger:      log,
		JWT:         jwtService,
		AuthService: authService,
		ListService: listService,
		ItemService: itemService,
		Storage:     storage,
		Version:     version,
		GeneralRPM:  getEnvInt("RATE_LIMIT_RPM", 0),
		AuthRPM:     getEnvInt("RATE_LIMIT_AUTH_RPM", 0),
		CORSOrigins: splitEnv("CORS_ORIGINS"),
	}
	if audit != nil {
		routerCfg.History = audit
	}
	router := v1.NewRouter(routerCfg)

	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// registerAuditHooks records every lifecycle transition to sys_audit. The
// After* hooks fire once the change has committed; a failed audit write is
// logged by the services and never rolls back the change.
func registerAuditHooks(listService *lists.Service, itemService *items.Service, audit *postgres.AuditService) {
	logList := func(action postgres.AuditAction) domain.Hook[*lists.List] {
		return func(ctx context.Context, l *lists.List) error {
			return audit.LogChange(ctx, "list", l.ID, action, map[string]any{
				"title":   l.Title,
				"version": l.Version,
			})
		}
	}
	listService.Hooks().On(domain.AfterCreate, logList(postgres.AuditActionCreate))
	listService.Hooks().On(domain.AfterUpdate, logList(postgres.AuditActionUpdate))
	listService.Hooks().On(domain.AfterTrash, logList(postgres.AuditActionTrash))
	listService.Hooks().On(domain.AfterRestore, logList(postgres.AuditActionRestore))
	listService.Hooks().On(domain.AfterPurge, logList(postgres.AuditActionPurge))

	logItem := func(action postgres.AuditAction) domain.Hook[*items.Item] {
		return func(ctx context.Context, i *items.Item) error {
			return audit.LogChange(ctx, "item", i.ID, action, map[string]any{
				"name":    i.Name,
				"list_id": i.ListID.String(),
				"version": i.Version,
			})
		}
	}
	itemService.Hooks().On(domain.AfterCreate, logItem(postgres.AuditActionCreate))
	itemService.Hooks().On(domain.AfterUpdate, logItem(postgres.AuditActionUpdate))
	itemService.Hooks().On(domain.AfterTrash, logItem(postgres.AuditActionTrash))
	itemService.Hooks().On(domain.AfterRestore, logItem(postgres.AuditActionRestore))
	itemService.Hooks().On(domain.AfterPurge, logItem(postgres.AuditActionPurge))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func splitEnv(key string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return nil
}
