package trader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"uphold-trade-bot-go/internal/market"
	"uphold-trade-bot-go/internal/models"
	"uphold-trade-bot-go/internal/risk"
)

// seedHistory feeds a series of last prices into a pair's window.
func seedHistory(history *market.History, pair string, lasts ...float64) {
	for _, last := range lasts {
		history.Observe(market.Quote{Pair: pair, Bid: last, Ask: last, Last: last, ObservedAt: time.Now()})
	}
}

func TestGenerator_Generate_BuyAndSellFromHoldings(t *testing.T) {
	// Arrange
	history := market.NewHistory(nil, 0, zap.NewNop())
	gen := NewGenerator(history, zap.NewNop())

	// Rising window: momentum = (104-100)/100 = 0.04
	// Volatility = stddev/mean = 2/102 = 0.0196
	seedHistory(history, "BTC-USD", 100, 102, 104)

	pairs := []models.TradingPair{{Symbol: "BTC-USD", Priority: 1, Enabled: true}}
	quotes := map[string]market.Quote{
		// Spread = (104-103)/104 = 0.0096
		"BTC-USD": {Pair: "BTC-USD", Bid: 103, Ask: 104, Last: 104},
	}
	holdings := map[string]float64{"USD": 1000, "BTC": 0.5}

	// Act
	candidates := gen.Generate(pairs, quotes, holdings, gateConfig())

	// Assert
	assert.Len(t, candidates, 2)

	// The buy rides the uptrend and ranks first; the sell fights it.
	buy := candidates[0]
	assert.Equal(t, models.DecisionBuy, buy.Direction)
	assert.Equal(t, "USD", buy.FromAsset)
	assert.Equal(t, "BTC", buy.ToAsset)
	assert.Equal(t, 100.0, buy.Amount) // 10% of the 1000 USD balance
	assert.Equal(t, 104.0, buy.Price)  // buys at the ask
	// Expected return = momentum - spread = 0.04 - 0.0096 = 0.0304
	assert.InDelta(t, 0.0304, buy.ExpectedReturn, 0.0001)
	assert.InDelta(t, 0.5958, buy.Confidence, 0.001)
	assert.InDelta(t, 1.0832, buy.RiskScore, 0.001)

	sell := candidates[1]
	assert.Equal(t, models.DecisionSell, sell.Direction)
	assert.Equal(t, "BTC", sell.FromAsset)
	assert.Equal(t, 0.05, sell.Amount) // 10% of the 0.5 BTC balance
	assert.Equal(t, 103.0, sell.Price) // sells at the bid
	// Selling into an uptrend has a negative expected return.
	assert.Less(t, sell.ExpectedReturn, 0.0)
	assert.Zero(t, sell.Confidence)
	assert.Equal(t, risk.MaxScore, sell.RiskScore)
}

func TestGenerator_Generate_Deterministic(t *testing.T) {
	history := market.NewHistory(nil, 0, zap.NewNop())
	gen := NewGenerator(history, zap.NewNop())
	seedHistory(history, "BTC-USD", 100, 101, 103)
	seedHistory(history, "ETH-USD", 50, 49, 51)

	pairs := []models.TradingPair{
		{Symbol: "BTC-USD", Priority: 2, Enabled: true},
		{Symbol: "ETH-USD", Priority: 1, Enabled: true},
	}
	quotes := map[string]market.Quote{
		"BTC-USD": {Pair: "BTC-USD", Bid: 102, Ask: 103, Last: 103},
		"ETH-USD": {Pair: "ETH-USD", Bid: 50, Ask: 51, Last: 51},
	}
	holdings := map[string]float64{"USD": 1000, "BTC": 1, "ETH": 10}

	first := gen.Generate(pairs, quotes, holdings, gateConfig())
	second := gen.Generate(pairs, quotes, holdings, gateConfig())

	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestGenerator_Generate_PriorityBreaksFullTies(t *testing.T) {
	// No price history: momentum is 0 for both pairs, so both buy
	// candidates carry identical scores and the build order decides.
	history := market.NewHistory(nil, 0, zap.NewNop())
	gen := NewGenerator(history, zap.NewNop())

	pairs := []models.TradingPair{
		{Symbol: "ETH-USD", Priority: 1, Enabled: true},
		{Symbol: "BTC-USD", Priority: 2, Enabled: true},
	}
	quotes := map[string]market.Quote{
		"BTC-USD": {Pair: "BTC-USD", Bid: 99, Ask: 100, Last: 100},
		"ETH-USD": {Pair: "ETH-USD", Bid: 99, Ask: 100, Last: 100},
	}
	holdings := map[string]float64{"USD": 500}

	candidates := gen.Generate(pairs, quotes, holdings, gateConfig())

	assert.Len(t, candidates, 2)
	assert.Equal(t, "BTC-USD", candidates[0].Pair) // higher priority first
	assert.Equal(t, "ETH-USD", candidates[1].Pair)
}

func TestGenerator_Generate_SkipsUnsizedAndUnheld(t *testing.T) {
	history := market.NewHistory(nil, 0, zap.NewNop())
	gen := NewGenerator(history, zap.NewNop())

	pairs := []models.TradingPair{{Symbol: "BTC-USD", Priority: 1, Enabled: true}}
	quotes := map[string]market.Quote{
		"BTC-USD": {Pair: "BTC-USD", Bid: 99, Ask: 100, Last: 100},
	}

	t.Run("NoRelevantHoldings", func(t *testing.T) {
		candidates := gen.Generate(pairs, quotes, map[string]float64{"EUR": 100}, gateConfig())
		assert.Empty(t, candidates)
	})

	t.Run("ZeroSizing", func(t *testing.T) {
		cfg := gateConfig()
		cfg.TradeSizePercentage = 0
		cfg.TradeSizeAmount = 0

		candidates := gen.Generate(pairs, quotes, map[string]float64{"USD": 100}, cfg)
		assert.Empty(t, candidates)
	})

	t.Run("FixedAmountCappedAtBalance", func(t *testing.T) {
		cfg := gateConfig()
		cfg.TradeSizePercentage = 0
		cfg.TradeSizeAmount = 5000

		candidates := gen.Generate(pairs, quotes, map[string]float64{"USD": 100}, cfg)
		assert.Len(t, candidates, 1)
		assert.Equal(t, 100.0, candidates[0].Amount)
	})
}

func TestGenerator_Generate_SkipsMalformedSymbol(t *testing.T) {
	history := market.NewHistory(nil, 0, zap.NewNop())
	gen := NewGenerator(history, zap.NewNop())

	pairs := []models.TradingPair{{Symbol: "BTCUSD", Priority: 1, Enabled: true}}
	quotes := map[string]market.Quote{
		"BTCUSD": {Pair: "BTCUSD", Bid: 99, Ask: 100, Last: 100},
	}

	candidates := gen.Generate(pairs, quotes, map[string]float64{"USD": 100}, gateConfig())
	assert.Empty(t, candidates)
}

func TestRank(t *testing.T) {
	a := Candidate{Pair: "A", RiskScore: 2.0, Confidence: 0.9, ExpectedReturn: 0.05}
	b := Candidate{Pair: "B", RiskScore: 1.0, Confidence: 0.5, ExpectedReturn: 0.01}
	c := Candidate{Pair: "C", RiskScore: 1.0, Confidence: 0.8, ExpectedReturn: 0.01}
	d := Candidate{Pair: "D", RiskScore: 1.0, Confidence: 0.8, ExpectedReturn: 0.03}

	candidates := []Candidate{a, b, c, d}
	Rank(candidates)

	// Ascending risk, then descending confidence, then descending return.
	assert.Equal(t, "D", candidates[0].Pair)
	assert.Equal(t, "C", candidates[1].Pair)
	assert.Equal(t, "B", candidates[2].Pair)
	assert.Equal(t, "A", candidates[3].Pair)
}
