package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/notify-relay/internal/cache"
	"github.com/rickgao/notify-relay/internal/catchup"
	"github.com/rickgao/notify-relay/internal/config"
	"github.com/rickgao/notify-relay/internal/database"
	"github.com/rickgao/notify-relay/internal/registry"
	"github.com/rickgao/notify-relay/internal/relay"
	"github.com/rickgao/notify-relay/internal/router"
	"github.com/rickgao/notify-relay/internal/server"
	"github.com/rickgao/notify-relay/internal/sse"
	"github.com/rickgao/notify-relay/internal/store"
	"github.com/rickgao/notify-relay/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/relay.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting relay",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"channel", cfg.Broker.Channel,
		"port", cfg.Server.Port,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("database connected")

	notifStore := store.New(db, cfg.Broker.Channel, logger)
	if err := notifStore.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	// The subscriber holds a blocking receive on its client, so it gets a
	// dedicated connection; cache, publisher and health share the other.
	subClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	genClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer subClient.Close()
	defer genClient.Close()

	if err := genClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err, "addr", cfg.Redis.Addr)
		os.Exit(1)
	}
	logger.Info("redis connected", "addr", cfg.Redis.Addr)

	// Create subscriber
	sub := relay.NewSubscriber(relay.SubscriberConfig{
		Channel:            cfg.Broker.Channel,
		BufferSize:         cfg.Broker.BufferSize,
		ReconnectBaseDelay: cfg.Broker.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Broker.ReconnectMaxDelay,
		MaxAttempts:        cfg.Broker.MaxAttempts,
		MaxRetryTime:       cfg.Broker.MaxRetryTime,
	}, subClient, logger)

	// Create connection registry and router
	reg := registry.New(logger)
	rtr := router.New(reg, sub.Messages(), logger)

	if err := sub.Start(ctx); err != nil {
		logger.Error("failed to start subscriber", "error", err)
		os.Exit(1)
	}
	if err := rtr.Start(ctx); err != nil {
		logger.Error("failed to start router", "error", err)
		os.Exit(1)
	}

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		rtr.Stop(shutdownCtx)
		sub.Stop(shutdownCtx)
	}()

	// HTTP surface: push streams, read/write routes, health
	srv := server.New(server.Deps{
		Registry:   reg,
		Catchup:    catchup.NewLoader(notifStore, logger),
		Store:      notifStore,
		Cache:      cache.NewRedisStore(genClient),
		Publisher:  relay.NewPublisher(genClient, cfg.Broker.Channel, logger),
		DB:         db,
		Redis:      genClient,
		Subscriber: sub,
	}, sse.Config{
		QueueSize:         cfg.Push.QueueSize,
		HeartbeatInterval: cfg.Push.HeartbeatInterval,
	}, cfg.Cache.DefaultTTL, logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("starting http server", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	logger.Info("relay running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/healthz", cfg.Server.Port),
	)

	// Wait for shutdown or an unrecoverable subscription failure
	select {
	case <-ctx.Done():
	case err := <-sub.Fatal():
		logger.Error("subscription lost", "error", err)
		cancel()
	}

	logger.Info("shutting down...")

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	logger.Info("relay stopped")
}
