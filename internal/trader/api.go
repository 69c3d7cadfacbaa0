package trader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"uphold-trade-bot-go/internal/models"
	"uphold-trade-bot-go/internal/notify"
)

// APIServer provides a read-only HTTP interface for the running bot.
type APIServer struct {
	server *http.Server
	runner *Runner
	hub    *notify.Hub
	logger *zap.Logger
}

// NewAPIServer creates a new APIServer.
func NewAPIServer(runner *Runner, hub *notify.Hub, port int, logger *zap.Logger) *APIServer {
	s := &APIServer{
		runner: runner,
		hub:    hub,
		logger: logger.Named("api-server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/prices", s.pricesHandler)
	mux.HandleFunc("/trades/recent", s.tradesHandler)
	if hub != nil {
		mux.HandleFunc("/ws", hub.HandleWS)
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.runner.configs.Snapshot()
	if err != nil {
		s.logger.Warn("Failed to load config for status", zap.Error(err))
	}

	status := struct {
		Status
		Config    models.BotConfig    `json:"config"`
		LastTrade *models.TradeRecord `json:"last_trade,omitempty"`
		WSClients int                 `json:"ws_clients"`
	}{
		Status: s.runner.Status(),
		Config: cfg,
	}
	if recent, err := s.runner.trades.Recent(1); err != nil {
		s.logger.Warn("Failed to load last trade for status", zap.Error(err))
	} else if len(recent) > 0 {
		status.LastTrade = &recent[0]
	}
	if s.hub != nil {
		status.WSClients = s.hub.ClientCount()
	}

	s.writeJSON(w, status)
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *APIServer) pricesHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.runner.cache.Snapshot())
}

func (s *APIServer) tradesHandler(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.runner.trades.Recent(limit)
	if err != nil {
		s.logger.Error("Failed to load recent trades", zap.Error(err))
		http.Error(w, "Failed to load recent trades", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, records)
}

func (s *APIServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
