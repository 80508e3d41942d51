package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rewear/swap-ledger/internal/api"
	"github.com/rewear/swap-ledger/internal/cache"
	"github.com/rewear/swap-ledger/internal/config"
	"github.com/rewear/swap-ledger/internal/events"
	"github.com/rewear/swap-ledger/internal/observability"
	"github.com/rewear/swap-ledger/internal/repository"
	"github.com/rewear/swap-ledger/internal/service"
	"github.com/rewear/swap-ledger/internal/utils"
)

func main() {
	logger := utils.NewLogger()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	// Set up the ledger store
	var repo repository.Repository
	switch cfg.Server.StoreDriver {
	case "memory":
		logger.Warn("using in-memory store, data is lost on restart")
		repo = repository.NewMemoryRepository()
	default:
		db, err := config.SetupDatabase(cfg)
		if err != nil {
			log.Fatalf("Failed to set up database: %v", err)
		}
		defer db.Close()
		repo = repository.NewPostgresRepository(db)
	}

	deps := service.Dependencies{
		Repo:    repo,
		Metrics: observability.NewMetrics("rewear"),
		Logger:  logger.With("ledger"),
	}

	// Optional collaborators fall back to in-process implementations
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("stats cache disabled: %v", err)
		} else {
			defer client.Close()
			deps.Cache = cache.NewRedisStatsCache(client, cfg.Redis.StatsTTL)
		}
	}

	if cfg.RabbitMQ.URL != "" {
		pub, err := events.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			logger.Warn("event publishing disabled: %v", err)
		} else {
			defer pub.Close()
			deps.Publisher = pub
		}
	}

	if cfg.Mongo.URI != "" {
		client, err := repository.NewMongoClient(ctx, cfg.Mongo.URI)
		if err != nil {
			logger.Warn("testimonials kept in memory: %v", err)
		} else {
			defer client.Disconnect(context.Background())
			deps.Testimonials = repository.NewMongoTestimonialStore(client, cfg.Mongo.Database)
		}
	}

	// Create service
	svc := service.NewDefaultService(deps, service.Settings{
		JWTSecret:         cfg.Auth.JWTSecret,
		TokenTTL:          cfg.Auth.TokenTTL,
		AdminUsername:     cfg.Auth.AdminUsername,
		AdminPasswordHash: cfg.Auth.AdminPasswordHash,
		SignupBonus:       cfg.Ledger.SignupBonus,
		DefaultItemPoints: cfg.Ledger.DefaultItemPoints,
	})

	// Create API handler
	handler := api.NewHandler(svc, api.HandlerConfig{
		JWTSecret:   cfg.Auth.JWTSecret,
		SwapTimeout: cfg.Ledger.SwapTimeout,
		Metrics:     deps.Metrics.Handler(),
	})

	// Set up Gin router
	router := gin.Default()
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server on %s (store=%s)", serverAddr, cfg.Server.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed: %v", err)
	}
}
