package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bankledger/backend/docs"
	"github.com/bankledger/backend/internal/audit"
	"github.com/bankledger/backend/internal/config"
	"github.com/bankledger/backend/internal/database"
	"github.com/bankledger/backend/internal/events"
	"github.com/bankledger/backend/internal/handlers"
	"github.com/bankledger/backend/internal/identity"
	"github.com/bankledger/backend/internal/logging"
	mW "github.com/bankledger/backend/internal/middleware"
	"github.com/bankledger/backend/internal/services"
	"github.com/bankledger/backend/internal/store"
	"github.com/bankledger/backend/internal/store/breaker"
	"github.com/bankledger/backend/internal/store/memory"
	"github.com/bankledger/backend/internal/store/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title Bank Ledger API
// @version 1.0
// @description Account balances and an append-only transaction ledger
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	docs.SwaggerInfo.Host = "localhost:" + cfg.Server.Port

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, db, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialise store", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}

	var guarded *breaker.Store
	if cfg.Breaker.Enabled {
		guarded = breaker.Wrap(st, cfg.Breaker, logger)
		st = guarded
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Redis.Enabled {
		if redisClient := database.InitRedis(ctx, cfg.Redis, logger); redisClient != nil {
			defer redisClient.Close()
			publisher = events.NewRedisPublisher(redisClient, cfg.Ledger.EventsQueue)
		}
	}

	resolver, err := identity.FromScheme(cfg.Ledger.KeyScheme)
	if err != nil {
		logger.Fatal("Invalid key scheme", zap.Error(err))
	}

	ledgerService := services.NewLedgerService(st, resolver, publisher, audit.NewLogger(logger), cfg.Ledger, logger)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService, resolver, logger)

	// Setup router
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mW.SecurityHeaders)
	r.Use(mW.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Link"},
		MaxAge:         86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "healthy", "store": cfg.Ledger.Store}
		if guarded != nil {
			status["breaker"] = guarded.State()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", ledgerHandler.Routes)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Server starting", zap.String("addr", server.Addr), zap.String("store", cfg.Ledger.Store))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	logger.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Server stopped")
}

func buildStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, *sql.DB, error) {
	switch strings.ToLower(cfg.Ledger.Store) {
	case "", "memory":
		logger.Warn("Using in-memory store, balances are lost on restart")
		return memory.New(), nil, nil
	case "postgres":
		db, err := database.InitDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := database.EnsureSchema(ctx, db); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("ensure schema: %w", err)
			}
		}
		return postgres.New(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger store %q", cfg.Ledger.Store)
	}
}
