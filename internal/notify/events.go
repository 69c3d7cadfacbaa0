package notify

import (
	"time"

	"uphold-trade-bot-go/internal/market"
	"uphold-trade-bot-go/internal/models"
)

const (
	EventTradeExecuted = "trade_executed"
	EventPriceUpdate   = "price_update"
)

// Event is a single outbound notification envelope.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Sink receives events emitted by the trading loop. Implementations
// must not block the caller.
type Sink interface {
	Publish(event Event)
}

// Fanout publishes each event to every wrapped sink, in order.
type Fanout []Sink

func (f Fanout) Publish(event Event) {
	for _, s := range f {
		s.Publish(event)
	}
}

// TradeExecutedData is the payload of a trade_executed event.
type TradeExecutedData struct {
	FromPair       string  `json:"from_pair"`
	ToPair         string  `json:"to_pair"`
	Decision       string  `json:"decision"`
	Status         string  `json:"status"`
	Amount         float64 `json:"amount"`
	Confidence     float64 `json:"confidence"`
	Risk           float64 `json:"risk"`
	ExpectedReturn float64 `json:"expected_return"`
}

// TradeExecuted builds the event for a persisted trade record.
func TradeExecuted(record models.TradeRecord) Event {
	return Event{
		Type: EventTradeExecuted,
		Data: TradeExecutedData{
			FromPair:       record.FromPair,
			ToPair:         record.ToPair,
			Decision:       record.Decision,
			Status:         record.Status,
			Amount:         record.Amount,
			Confidence:     record.Confidence,
			Risk:           record.RiskScore,
			ExpectedReturn: record.ExpectedReturn,
		},
		Timestamp: time.Now(),
	}
}

// PriceUpdateData is the payload of a price_update event.
type PriceUpdateData struct {
	Pair  string       `json:"pair"`
	Quote market.Quote `json:"quote"`
}

// PriceUpdate builds the event for a freshly observed quote.
func PriceUpdate(q market.Quote) Event {
	return Event{
		Type:      EventPriceUpdate,
		Data:      PriceUpdateData{Pair: q.Pair, Quote: q},
		Timestamp: time.Now(),
	}
}
