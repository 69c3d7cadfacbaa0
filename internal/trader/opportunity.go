package trader

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"uphold-trade-bot-go/internal/market"
	"uphold-trade-bot-go/internal/models"
	"uphold-trade-bot-go/internal/risk"
)

// Candidate is one feasible trade built for a single cycle. Candidates
// are never persisted; the selected one is copied into a TradeRecord.
type Candidate struct {
	FromAsset      string  `json:"from_asset"`
	ToAsset        string  `json:"to_asset"`
	Pair           string  `json:"pair"`
	Direction      string  `json:"direction"`
	Amount         float64 `json:"amount"`
	Price          float64 `json:"price"`
	ExpectedReturn float64 `json:"expected_return"`
	Volatility     float64 `json:"volatility"`
	Momentum       float64 `json:"momentum"`
	Confidence     float64 `json:"confidence"`
	RiskScore      float64 `json:"risk_score"`
	Stale          bool    `json:"stale,omitempty"`
	Reason         string  `json:"reason"`
}

// Generator enumerates and ranks the feasible trades of one cycle from
// current holdings against the enabled pairs.
type Generator struct {
	history *market.History
	logger  *zap.Logger
}

// NewGenerator creates a Generator scoring against the given history.
func NewGenerator(history *market.History, logger *zap.Logger) *Generator {
	return &Generator{history: history, logger: logger}
}

// Generate builds the ranked candidate list for one cycle. Pairs are
// walked in descending priority with ties broken by symbol, so the
// result is reproducible for identical inputs.
func (g *Generator) Generate(pairs []models.TradingPair, quotes map[string]market.Quote, holdings map[string]float64, cfg models.BotConfig) []Candidate {
	ordered := make([]models.TradingPair, len(pairs))
	copy(ordered, pairs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].Symbol < ordered[j].Symbol
	})

	var candidates []Candidate
	for _, pair := range ordered {
		quote, ok := quotes[pair.Symbol]
		if !ok {
			continue
		}

		base, counter := pair.Base(), pair.Quote()
		if base == "" || counter == "" {
			g.logger.Warn("Skipping malformed pair symbol", zap.String("symbol", pair.Symbol))
			continue
		}

		window := g.history.Window(pair.Symbol)
		momentum := risk.Momentum(window)
		spread := 0.0
		if quote.Ask > 0 {
			spread = (quote.Ask - quote.Bid) / quote.Ask
		}

		// Holding the counter currency means buying the base rides the
		// trend; holding the base means selling profits from its fall.
		// Either way the spread is paid on entry.
		if balance, ok := holdings[counter]; ok && balance > 0 {
			if c := g.candidate(models.DecisionBuy, counter, base, pair.Symbol, balance, quote, window, momentum-spread, cfg); c != nil {
				candidates = append(candidates, *c)
			}
		}
		if balance, ok := holdings[base]; ok && balance > 0 {
			if c := g.candidate(models.DecisionSell, base, counter, pair.Symbol, balance, quote, window, -momentum-spread, cfg); c != nil {
				candidates = append(candidates, *c)
			}
		}
	}

	Rank(candidates)
	return candidates
}

func (g *Generator) candidate(direction, from, to, symbol string, balance float64, quote market.Quote, window *risk.Window, expectedReturn float64, cfg models.BotConfig) *Candidate {
	amount := cfg.SizeFor(balance)
	if amount <= 0 {
		return nil
	}

	assessment := risk.Assess(window, expectedReturn, quote.Stale)
	price := quote.Ask
	if direction == models.DecisionSell {
		price = quote.Bid
	}

	return &Candidate{
		FromAsset:      from,
		ToAsset:        to,
		Pair:           symbol,
		Direction:      direction,
		Amount:         amount,
		Price:          price,
		ExpectedReturn: expectedReturn,
		Volatility:     assessment.Volatility,
		Momentum:       assessment.Momentum,
		Confidence:     assessment.Confidence,
		RiskScore:      assessment.Score,
		Stale:          quote.Stale,
		Reason:         fmt.Sprintf("expected return %.2f%% at volatility %.2f", expectedReturn*100, assessment.Volatility),
	}
}

// Rank orders candidates ascending by risk score, then descending by
// confidence and expected return. The sort is stable, so candidates
// equal on all three keys keep their build order within a cycle.
func Rank(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.RiskScore != b.RiskScore {
			return a.RiskScore < b.RiskScore
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.ExpectedReturn > b.ExpectedReturn
	})
}
