package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whoopmcp/config"
	"whoopmcp/internal/logging"
	"whoopmcp/internal/mcpserver"
	"whoopmcp/internal/summary"
	"whoopmcp/internal/tokenstore"
	"whoopmcp/internal/whoop"
)

const defaultConfigPath = "config.json"

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	useEnv := flag.Bool("env", false, "Load configuration from environment variables")
	flag.Parse()

	var cfg *config.Config
	var err error

	if *useEnv {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(*configPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(logging.LoggerConfig{
		Format: cfg.Log.Format,
		Level:  logging.ParseLevel(cfg.Log.Level),
	})

	// Token store
	var store whoop.TokenStore
	switch cfg.Tokens.Backend {
	case config.TokenBackendSQLite:
		sqliteStore, err := tokenstore.NewSQLite(cfg.Tokens.Path)
		if err != nil {
			return fmt.Errorf("failed to open token database: %w", err)
		}
		defer sqliteStore.Close()
		store = sqliteStore
	default:
		store = tokenstore.NewEnvFile(cfg.Tokens.Path)
	}
	logger.Info("token store ready", "backend", cfg.Tokens.Backend, "path", cfg.Tokens.Path)

	// Token lifecycle + API client
	refresher := whoop.NewRefresher(whoop.RefresherConfig{
		TokenURL:     cfg.Whoop.TokenURL,
		ClientID:     cfg.Whoop.ClientID,
		ClientSecret: cfg.Whoop.ClientSecret,
		Margin:       time.Duration(cfg.Whoop.RefreshMarginSeconds) * time.Second,
		Timeout:      time.Duration(cfg.Whoop.HTTPTimeoutSeconds) * time.Second,
	}, store, logger)

	cache := whoop.NewCache(cfg.Cache.MaxEntries)

	client := whoop.NewClient(whoop.ClientConfig{
		BaseURL:    cfg.Whoop.BaseURL,
		Timeout:    time.Duration(cfg.Whoop.HTTPTimeoutSeconds) * time.Second,
		TodayTTL:   time.Duration(cfg.Cache.TodayTTLSeconds) * time.Second,
		HistoryTTL: time.Duration(cfg.Cache.HistoryTTLSeconds) * time.Second,
	}, store, refresher, cache, logger)

	// Aggregator behind the logging decorator
	aggregator := logging.NewAggregatorLogger(
		summary.New(client, summary.Config{
			MaxTrendDays: cfg.Limits.MaxTrendDays,
			MaxWorkouts:  cfg.Limits.MaxWorkouts,
		}, logger),
		logger,
	)

	server := mcpserver.New(aggregator, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
