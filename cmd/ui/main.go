package main

import (
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"uphold-trade-bot-go/internal/config"
	"uphold-trade-bot-go/internal/database"
	"uphold-trade-bot-go/internal/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Connect to the database shared with the bot process
	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Setup HTTP server
	mux := http.NewServeMux()

	// Create a handler that has access to the logger and db
	apiHandler := NewAPIHandler(log, db)

	// API endpoints
	mux.HandleFunc("GET /api/config", apiHandler.GetConfigHandler)
	mux.HandleFunc("PUT /api/config", apiHandler.UpdateConfigHandler)
	mux.HandleFunc("POST /api/bot/active", apiHandler.SetActiveHandler)
	mux.HandleFunc("GET /api/pairs", apiHandler.ListPairsHandler)
	mux.HandleFunc("POST /api/pairs", apiHandler.AddPairHandler)
	mux.HandleFunc("POST /api/pairs/enable", apiHandler.EnablePairHandler)
	mux.HandleFunc("GET /api/trades", apiHandler.TradesHandler)
	mux.HandleFunc("GET /api/statistics", apiHandler.StatisticsHandler)
	mux.HandleFunc("GET /api/prices/best", apiHandler.AllBestPricesHandler)
	mux.HandleFunc("GET /api/prices/best/{pair}", apiHandler.BestPricesHandler)
	mux.HandleFunc("GET /api/momentum/{pair}", apiHandler.MomentumHandler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting admin server", zap.String("address", addr))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("Admin server failed", zap.Error(err))
	}
}
