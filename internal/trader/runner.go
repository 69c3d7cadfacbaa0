package trader

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"uphold-trade-bot-go/internal/config"
	"uphold-trade-bot-go/internal/market"
	"uphold-trade-bot-go/internal/metrics"
	"uphold-trade-bot-go/internal/models"
	"uphold-trade-bot-go/internal/notify"
	"uphold-trade-bot-go/internal/trace"
	"uphold-trade-bot-go/internal/uphold"
)

// Runner lifecycle states.
const (
	StateStopped  = "STOPPED"
	StateRunning  = "RUNNING"
	StateStopping = "STOPPING"
)

// Runner drives the fixed-interval trading loop: snapshot the config,
// refresh market data, enumerate and score candidates, decide, record.
// Exactly one cycle runs at a time.
type Runner struct {
	UUID      string
	Name      string
	StartTime time.Time

	logger  *zap.Logger
	client  uphold.RestClientInterface
	cache   *market.Cache
	history *market.History
	gen     *Generator
	engine  *Engine
	trades  *HistoryStore
	configs *ConfigStore
	pairs   *PairStore
	events  notify.Sink

	cycleTimeout time.Duration

	mu         sync.Mutex
	state      string
	cancel     context.CancelFunc
	done       chan struct{}
	cycleCount int64
	lastCycle  time.Time
	lastError  string
}

// NewRunner wires the trading loop and its collaborators.
func NewRunner(logger *zap.Logger, cfg *config.Config, client uphold.RestClientInterface, db *gorm.DB, events notify.Sink) *Runner {
	cache := market.NewCache(client, time.Duration(cfg.Bot.CacheTTLSeconds)*time.Second, logger)
	history := market.NewHistory(db, time.Duration(cfg.Bot.SnapshotKeepSeconds)*time.Second, logger)
	trades := NewHistoryStore(db, cfg.Bot.KeepCount, logger)

	if events == nil {
		events = notify.NewLogSink(logger)
	}

	return &Runner{
		UUID:         uuid.NewString(),
		Name:         "uphold-trade-bot",
		StartTime:    time.Now(),
		logger:       logger,
		client:       client,
		cache:        cache,
		history:      history,
		gen:          NewGenerator(history, logger),
		engine:       NewEngine(NewOrderSink(client), trades, logger),
		trades:       trades,
		configs:      NewConfigStore(db),
		pairs:        NewPairStore(db),
		events:       events,
		cycleTimeout: time.Duration(cfg.Bot.CycleTimeoutSeconds) * time.Second,
		state:        StateStopped,
	}
}

// Start launches the loop in its own goroutine. Starting an already
// running instance is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.state != StateStopped {
		r.mu.Unlock()
		r.logger.Warn("Runner already started", zap.String("state", r.state))
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.state = StateRunning
	r.cancel = cancel
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	go r.run(runCtx, done)
}

// Stop requests a graceful stop and waits for the current cycle to end.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.state != StateRunning {
		r.mu.Unlock()
		return
	}
	r.state = StateStopping
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	cancel()
	<-done

	r.mu.Lock()
	r.state = StateStopped
	r.mu.Unlock()
	r.logger.Info("Runner stopped")
}

// Reconfigure validates and persists a new runtime configuration. It
// takes effect at the next cycle boundary, never mid-cycle.
func (r *Runner) Reconfigure(next models.BotConfig) (models.BotConfig, error) {
	saved, err := r.configs.Update(next)
	if err != nil {
		return models.BotConfig{}, err
	}
	r.logger.Info("Configuration updated",
		zap.Bool("active", saved.Active),
		zap.Float64("risk_tolerance", saved.RiskTolerance),
		zap.Float64("min_confidence", saved.MinConfidence),
		zap.Int("check_interval_seconds", saved.CheckIntervalSeconds),
	)
	return saved, nil
}

// Status is a point-in-time view of the runner for the status API.
type Status struct {
	UUID       string    `json:"uuid"`
	Name       string    `json:"name"`
	State      string    `json:"state"`
	StartTime  time.Time `json:"start_time"`
	Uptime     string    `json:"uptime"`
	CycleCount int64     `json:"cycle_count"`
	LastCycle  time.Time `json:"last_cycle,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
}

// Status reports the last-known state, even when the most recent cycle
// failed.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		UUID:       r.UUID,
		Name:       r.Name,
		State:      r.state,
		StartTime:  r.StartTime,
		Uptime:     time.Since(r.StartTime).String(),
		CycleCount: r.cycleCount,
		LastCycle:  r.lastCycle,
		LastError:  r.lastError,
	}
}

func (r *Runner) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	interval := time.Minute
	if cfg, err := r.configs.Snapshot(); err != nil {
		r.logger.Error("Failed to load initial config, using default interval", zap.Error(err))
	} else if cfg.CheckIntervalSeconds > 0 {
		interval = time.Duration(cfg.CheckIntervalSeconds) * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("Starting trade loop", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping trade loop...")
			return
		case <-ticker.C:
			next := r.safeCycle(ctx)
			if next > 0 && next != interval {
				interval = next
				ticker.Reset(interval)
				r.logger.Info("Check interval updated", zap.Duration("interval", interval))
			}
		}
	}
}

// safeCycle runs one cycle and converts any panic into a failed cycle,
// so a single bad iteration never terminates the loop. It returns the
// interval from the config snapshot the cycle ran with.
func (r *Runner) safeCycle(ctx context.Context) (interval time.Duration) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.CycleFailures.Inc()
			r.noteFailure(fmt.Sprintf("panic: %v", rec))
			r.logger.Error("Cycle panicked", zap.Any("panic", rec))
		}
	}()

	cfg, err := r.configs.Snapshot()
	if err != nil {
		metrics.CycleFailures.Inc()
		r.noteFailure(err.Error())
		r.logger.Error("Failed to snapshot config", zap.Error(err))
		return 0
	}
	interval = time.Duration(cfg.CheckIntervalSeconds) * time.Second

	cctx := ctx
	if r.cycleTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, r.cycleTimeout)
		defer cancel()
	}

	if err := r.cycle(cctx, cfg); err != nil {
		metrics.CycleFailures.Inc()
		r.noteFailure(err.Error())
		r.logger.Error("Cycle failed", zap.Error(err))
	}
	return interval
}

// cycle runs one full pass: market data, holdings, candidates, decision.
func (r *Runner) cycle(ctx context.Context, cfg models.BotConfig) error {
	ctx, span := trace.StartSpan(ctx, "trade_cycle")
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}()

	r.mu.Lock()
	r.cycleCount++
	count := r.cycleCount
	r.mu.Unlock()

	logger := r.logger.With(zap.Int64("cycle", count))

	if !cfg.Active {
		logger.Debug("Bot inactive, skipping cycle")
		return nil
	}

	// Reconfiguration lands here, at the cycle boundary.
	r.cache.SetTTL(time.Duration(cfg.CacheTTLSeconds) * time.Second)
	r.trades.SetKeepCount(cfg.KeepCount)

	pairs, err := r.pairs.Enabled()
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		logger.Warn("No trading pairs enabled")
		return nil
	}

	symbols := make([]string, len(pairs))
	for i, p := range pairs {
		symbols[i] = p.Symbol
	}

	quotes, err := r.cache.GetMany(ctx, symbols)
	if err != nil {
		metrics.UpstreamErrors.Inc()
		return fmt.Errorf("could not fetch market data: %w", err)
	}
	for _, symbol := range symbols {
		q, ok := quotes[symbol]
		if !ok {
			continue
		}
		if q.Stale {
			metrics.StaleQuotes.Inc()
			continue
		}
		r.history.Observe(q)
		r.events.Publish(notify.PriceUpdate(q))
	}

	accounts, err := r.client.GetAccounts(ctx)
	if err != nil {
		metrics.UpstreamErrors.Inc()
		return fmt.Errorf("could not fetch holdings: %w", err)
	}
	holdings := uphold.Holdings(accounts)
	if len(holdings) == 0 {
		logger.Warn("No holdings with a positive balance")
		return nil
	}

	candidates := r.gen.Generate(pairs, quotes, holdings, cfg)
	record, err := r.engine.Decide(ctx, candidates, cfg)
	if err != nil {
		return err
	}
	if record == nil {
		metrics.Decisions.WithLabelValues("hold").Inc()
		span.SetAttributes(attribute.String("outcome", "hold"))
		logger.Info("No qualifying trade this cycle", zap.Int("candidates", len(candidates)))
	} else {
		metrics.Decisions.WithLabelValues(strings.ToLower(record.Status)).Inc()
		span.SetAttributes(
			attribute.String("outcome", strings.ToLower(record.Status)),
			attribute.String("action", record.Decision),
			attribute.Float64("confidence", record.Confidence),
		)
		r.events.Publish(notify.TradeExecuted(*record))
		logger.Info("Trade decided",
			zap.String("from", record.FromPair),
			zap.String("to", record.ToPair),
			zap.String("decision", record.Decision),
			zap.String("status", record.Status),
			zap.Float64("amount", record.Amount),
		)
	}

	r.history.Trim()

	r.mu.Lock()
	r.lastCycle = time.Now()
	r.lastError = ""
	r.mu.Unlock()
	metrics.CyclesTotal.Inc()
	return nil
}

func (r *Runner) noteFailure(message string) {
	r.mu.Lock()
	r.lastError = message
	r.mu.Unlock()
}
