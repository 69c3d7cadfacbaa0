package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"uphold-trade-bot-go/internal/market"
	"uphold-trade-bot-go/internal/models"
	"uphold-trade-bot-go/internal/risk"
	"uphold-trade-bot-go/internal/trader"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log     *zap.Logger
	db      *gorm.DB
	configs *trader.ConfigStore
	pairs   *trader.PairStore
	trades  *trader.HistoryStore
}

// NewAPIHandler creates a new APIHandler over the shared database.
func NewAPIHandler(log *zap.Logger, db *gorm.DB) *APIHandler {
	return &APIHandler{
		log:     log,
		db:      db,
		configs: trader.NewConfigStore(db),
		pairs:   trader.NewPairStore(db),
		trades:  trader.NewHistoryStore(db, trader.DefaultKeepCount, log),
	}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to write response", zap.Error(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// GetConfigHandler returns the stored runtime configuration.
func (h *APIHandler) GetConfigHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.configs.Snapshot()
	if err != nil {
		h.log.Error("Failed to load config", zap.Error(err))
		http.Error(w, "Failed to load configuration", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

// UpdateConfigHandler validates and stores a new runtime configuration.
// The running bot picks it up at its next cycle boundary.
func (h *APIHandler) UpdateConfigHandler(w http.ResponseWriter, r *http.Request) {
	var next models.BotConfig
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	saved, err := h.configs.Update(next)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Field: verr.Field})
			return
		}
		h.log.Error("Failed to update config", zap.Error(err))
		http.Error(w, "Failed to update configuration", http.StatusInternalServerError)
		return
	}

	h.log.Info("Configuration updated", zap.Bool("active", saved.Active), zap.Bool("dry_run", saved.DryRun))
	h.writeJSON(w, http.StatusOK, saved)
}

// SetActiveHandler flips only the active flag, leaving the rest of the
// configuration untouched.
func (h *APIHandler) SetActiveHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.configs.SetActive(body.Active); err != nil {
		h.log.Error("Failed to update active flag", zap.Error(err))
		http.Error(w, "Failed to update active flag", http.StatusInternalServerError)
		return
	}

	cfg, err := h.configs.Snapshot()
	if err != nil {
		http.Error(w, "Failed to load configuration", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

// ListPairsHandler returns every known trading pair.
func (h *APIHandler) ListPairsHandler(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.pairs.All()
	if err != nil {
		h.log.Error("Failed to load pairs", zap.Error(err))
		http.Error(w, "Failed to load pairs", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, pairs)
}

// AddPairHandler registers a new trading pair.
func (h *APIHandler) AddPairHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Symbol   string `json:"symbol"`
		Priority int    `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	pair, err := h.pairs.Add(body.Symbol, body.Priority)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusCreated, pair)
}

// EnablePairHandler toggles a pair in or out of the trading rotation.
func (h *APIHandler) EnablePairHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Symbol  string `json:"symbol"`
		Enabled bool   `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.pairs.SetEnabled(body.Symbol, body.Enabled); err != nil {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TradesHandler returns recent trade records, newest first.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	trades, err := h.trades.Recent(limit)
	if err != nil {
		h.log.Error("Failed to get trades from database", zap.Error(err))
		http.Error(w, "Failed to get trades", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, trades)
}

// StatisticsHandler returns aggregate statistics over the trade history.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.trades.Statistics()
	if err != nil {
		h.log.Error("Failed to calculate statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// AllBestPricesHandler returns the best observed bid and ask per pair.
func (h *APIHandler) AllBestPricesHandler(w http.ResponseWriter, r *http.Request) {
	best, err := market.AllBestPrices(h.db)
	if err != nil {
		h.log.Error("Failed to aggregate prices", zap.Error(err))
		http.Error(w, "Failed to aggregate prices", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, best)
}

// BestPricesHandler returns the best observed bid and ask for one pair.
func (h *APIHandler) BestPricesHandler(w http.ResponseWriter, r *http.Request) {
	pair := strings.ToUpper(r.PathValue("pair"))
	best, err := market.BestPrices(h.db, pair)
	if err != nil {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, best)
}

// MomentumResponse is the structure for the /api/momentum endpoint.
type MomentumResponse struct {
	Pair       string    `json:"pair"`
	Momentum   float64   `json:"momentum"`
	Volatility float64   `json:"volatility"`
	Samples    []float64 `json:"samples"`
}

// MomentumHandler scores the recent price history of one pair.
func (h *APIHandler) MomentumHandler(w http.ResponseWriter, r *http.Request) {
	pair := strings.ToUpper(r.PathValue("pair"))

	lasts, err := market.RecentLasts(h.db, pair, risk.DefaultWindowSize)
	if err != nil {
		h.log.Error("Failed to load price history", zap.String("pair", pair), zap.Error(err))
		http.Error(w, "Failed to load price history", http.StatusInternalServerError)
		return
	}
	if len(lasts) == 0 {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "no price history for '" + pair + "'"})
		return
	}

	window := risk.NewWindow(risk.DefaultWindowSize)
	for _, last := range lasts {
		window.Add(last)
	}

	h.writeJSON(w, http.StatusOK, MomentumResponse{
		Pair:       pair,
		Momentum:   risk.Momentum(window),
		Volatility: risk.Volatility(window),
		Samples:    lasts,
	})
}
