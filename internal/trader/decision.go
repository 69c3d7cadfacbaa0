package trader

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"uphold-trade-bot-go/internal/models"
	"uphold-trade-bot-go/internal/uphold"
)

// minReturn is the minimum expected return for any trade: 0.1%.
const minReturn = 0.001

// ExecutionSink places a selected trade with the exchange.
type ExecutionSink interface {
	PlaceTrade(ctx context.Context, c Candidate) (filled float64, err error)
}

// orderSink adapts the REST client to the ExecutionSink interface.
type orderSink struct {
	client uphold.RestClientInterface
}

// NewOrderSink creates the sink placing real orders on Uphold.
func NewOrderSink(client uphold.RestClientInterface) ExecutionSink {
	return &orderSink{client: client}
}

func (s *orderSink) PlaceTrade(ctx context.Context, c Candidate) (float64, error) {
	denomination := c.ToAsset
	direction := uphold.DirectionBuy
	if c.Direction == models.DecisionSell {
		denomination = c.FromAsset
		direction = uphold.DirectionSell
	}

	order, err := s.client.CreateOrder(ctx, denomination, direction, c.Amount)
	if err != nil {
		return 0, err
	}

	filled, err := strconv.ParseFloat(order.Amount, 64)
	if err != nil || filled <= 0 {
		filled = c.Amount
	}
	return filled, nil
}

// Engine applies the configured gates to a ranked candidate list and
// executes at most one trade per cycle.
type Engine struct {
	sink   ExecutionSink
	trades *HistoryStore
	logger *zap.Logger
}

// NewEngine creates a decision engine persisting through the given store.
func NewEngine(sink ExecutionSink, trades *HistoryStore, logger *zap.Logger) *Engine {
	return &Engine{sink: sink, trades: trades, logger: logger}
}

// Select walks the ranked candidates and returns the first one passing
// every gate, or nil when none qualifies. Rank order already encodes
// the preference, so the first match is the best by policy.
func (e *Engine) Select(candidates []Candidate, cfg models.BotConfig) *Candidate {
	for i := range candidates {
		c := &candidates[i]
		if c.Confidence < cfg.MinConfidence {
			continue
		}
		if c.RiskScore > cfg.RiskTolerance {
			continue
		}
		if c.ExpectedReturn <= minReturn {
			continue
		}
		return c
	}
	return nil
}

// Decide selects and executes at most one trade. A HOLD returns a nil
// record and persists nothing. Execution failures are captured on the
// persisted record rather than returned as an error, so one rejected
// order never aborts the cycle.
func (e *Engine) Decide(ctx context.Context, candidates []Candidate, cfg models.BotConfig) (*models.TradeRecord, error) {
	selected := e.Select(candidates, cfg)
	if selected == nil {
		return nil, nil
	}

	record := models.TradeRecord{
		FromPair:       selected.FromAsset,
		ToPair:         selected.ToAsset,
		Decision:       selected.Direction,
		Status:         models.StatusPending,
		Amount:         selected.Amount,
		Price:          selected.Price,
		Confidence:     selected.Confidence,
		RiskScore:      selected.RiskScore,
		Volatility:     selected.Volatility,
		ExpectedReturn: selected.ExpectedReturn,
		Reason:         selected.Reason,
		IsSimulation:   cfg.DryRun,
	}

	l := e.logger.With(
		zap.String("from", selected.FromAsset),
		zap.String("to", selected.ToAsset),
		zap.String("direction", selected.Direction),
		zap.Float64("amount", selected.Amount),
		zap.Float64("confidence", selected.Confidence),
		zap.Float64("risk_score", selected.RiskScore),
	)

	if cfg.DryRun {
		l.Info("Dry run enabled, recording trade without execution")
	} else {
		filled, err := e.sink.PlaceTrade(ctx, *selected)
		if err != nil {
			record.Status = models.StatusFailed
			record.Reason = fmt.Sprintf("%s; execution failed: %v", record.Reason, err)
			l.Error("Trade execution failed", zap.Error(err))
		} else {
			record.Status = models.StatusExecuted
			record.Amount = filled
			l.Info("Trade executed")
		}
	}

	if err := e.trades.Append(&record); err != nil {
		return &record, fmt.Errorf("failed to record trade: %w", err)
	}
	return &record, nil
}
