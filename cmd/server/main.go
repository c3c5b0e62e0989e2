package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"bookcraft-backend/internal/backend"
	"bookcraft-backend/internal/config"
	"bookcraft-backend/internal/database"
	"bookcraft-backend/internal/handlers"
	"bookcraft-backend/internal/middleware"
	"bookcraft-backend/internal/repository"
	"bookcraft-backend/internal/router"
	"bookcraft-backend/internal/services"
	"bookcraft-backend/internal/session"
	"bookcraft-backend/internal/websocket"
)

func main() {
	log.Println("🚀 Starting Book Studio...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("✗ Invalid configuration: %v", err)
	}
	log.Println("✓ Environment variables loaded")

	ctx := context.Background()

	// ──── Step 2: Initialize Redis Clients ────
	var redisClients *database.RedisClients
	if cfg.RedisURL != "" {
		clients, err := database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer clients.Close()
		redisClients = clients
		log.Println("✓ Redis connected")
	}

	// ──── Step 3: Initialize PostgreSQL Connection Pool ────
	var pool *pgxpool.Pool
	if cfg.HistoryStore == "postgres" {
		p, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("✗ PostgreSQL connection failed: %v", err)
		}
		defer p.Close()
		pool = p
		log.Println("✓ PostgreSQL connected")

		if err := database.RunMigrations(ctx, pool, "migrations"); err != nil {
			log.Fatalf("✗ Database migration failed: %v", err)
		}
		log.Println("✓ Database migrations applied")
	}

	// ──── Step 4: Select History Store ────
	store := historyStore(cfg.HistoryStore, pool, redisClients)
	if store == nil {
		log.Println("⚠ Chat history persistence disabled")
	} else {
		log.Printf("✓ Chat history store: %s", cfg.HistoryStore)
	}

	// ──── Step 5: Initialize Backend Client ────
	client, err := backend.NewClient(
		cfg.BackendURL,
		cfg.BackendConcurrentReqs,
		time.Duration(cfg.BackendTimeoutSeconds)*time.Second,
	)
	if err != nil {
		log.Fatalf("✗ Backend client initialization failed: %v", err)
	}
	log.Printf("✓ AI backend client ready (%s)", cfg.BackendURL)

	// ──── Step 6: Start WebSocket Hub ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret, cfg.DefaultTenant)
	var pubsub *redis.Client
	if redisClients != nil {
		pubsub = redisClients.PubSub
	}
	wsHub := websocket.NewHub(pubsub, jwtAuth)
	log.Println("✓ WebSocket hub started")

	// ──── Initialize Services ────
	registry := services.NewRegistry(store, wsHub)
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	registry.StartSweeper(sweepCtx, 2*time.Hour, 10*time.Minute)
	chatService := services.NewChatService(client, services.NewDispatcher(client))
	documentService := services.NewDocumentService(client, services.NewOrchestrator(client))

	// ──── Initialize Handlers ────
	chatHandler := handlers.NewChatHandler(registry, chatService)
	documentHandler := handlers.NewDocumentHandler(registry, documentService, client)

	apiLimiter := middleware.NewRateLimiter(120, time.Minute)
	defer apiLimiter.Close()

	// ──── Step 7: Start HTTP Server ────
	r := router.New(jwtAuth, apiLimiter, chatHandler, documentHandler, wsHub, cfg.FrontendURL, cfg.RequestTimeout())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Book Studio ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}

// historyStore returns the configured store, or nil when persistence is
// disabled.
func historyStore(kind string, pool *pgxpool.Pool, redisClients *database.RedisClients) session.HistoryStore {
	switch kind {
	case "postgres":
		return repository.NewPostgresHistoryStore(pool)
	case "redis":
		return repository.NewRedisHistoryStore(redisClients.Store)
	case "memory":
		return session.NewMemoryStore()
	default:
		return nil
	}
}
