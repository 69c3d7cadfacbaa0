package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"uphold-trade-bot-go/internal/config"
	"uphold-trade-bot-go/internal/database"
	"uphold-trade-bot-go/internal/logger"
	"uphold-trade-bot-go/internal/metrics"
	"uphold-trade-bot-go/internal/notify"
	"uphold-trade-bot-go/internal/trace"
	"uphold-trade-bot-go/internal/trader"
	"uphold-trade-bot-go/internal/uphold"
)

func main() {
	// Secrets such as UPHOLD_APIKEY may come from a local .env file.
	_ = godotenv.Load()

	configPath := pflag.String("config", "./configs", "directory containing config.yml")
	addPairs := pflag.StringArray("add-pair", nil, "trading pair to register, e.g. BTC-USD (repeatable)")
	pflag.Bool("dry-run", false, "record decisions without placing orders")
	pflag.Float64("risk-level", 0.5, "maximum acceptable risk score in [0,1]")
	pflag.Float64("min-confidence", 0.6, "minimum confidence required to trade")
	pflag.Int("interval", 60, "seconds between trading cycles")
	pflag.Parse()

	if err := config.BindFlags(pflag.CommandLine); err != nil {
		panic(fmt.Sprintf("could not bind flags: %v", err))
	}

	// Load application configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Pairs passed on the command line are registered before the first cycle.
	pairStore := trader.NewPairStore(db)
	for _, symbol := range *addPairs {
		if _, err := pairStore.Add(symbol, 0); err != nil {
			log.Fatal("Failed to register pair", zap.String("pair", symbol), zap.Error(err))
		}
	}

	// Initialize Uphold REST client
	restClient := uphold.NewRestClient(&cfg.Uphold, log)
	if _, err := restClient.GetAllTickers(context.Background()); err != nil {
		log.Fatal("Failed to connect to Uphold API", zap.Error(err))
	}
	log.Info("Successfully connected to Uphold API.")

	// Setup context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := trace.Init(cfg.Telemetry.Tracing); err != nil {
		log.Warn("Failed to initialize tracing", zap.Error(err))
	}

	hub := notify.NewHub(log)
	go hub.Run(ctx)
	events := notify.Fanout{hub, notify.NewLogSink(log)}

	runner := trader.NewRunner(log, &cfg, restClient, db, events)
	runner.Start(ctx)

	api := trader.NewAPIServer(runner, hub, cfg.Server.StatusPort, log)
	api.Start()

	metrics.Serve(ctx, cfg.Telemetry.MetricsAddr, nil, log)

	<-ctx.Done()
	log.Info("Shutdown signal received, gracefully shutting down...")

	runner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := api.Stop(shutdownCtx); err != nil {
		log.Warn("API server shutdown failed", zap.Error(err))
	}
	if err := trace.Shutdown(shutdownCtx); err != nil {
		log.Warn("Trace shutdown failed", zap.Error(err))
	}

	log.Info("Bot has been shut down.")
}
