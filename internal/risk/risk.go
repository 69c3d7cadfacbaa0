package risk

import "math"

const (
	// DefaultWindowSize is the number of recent prices kept per pair.
	DefaultWindowSize = 10

	// MaxScore is the sentinel risk score for trades with no upside.
	// Stored and compared as a finite value so it survives JSON and SQL.
	MaxScore = math.MaxFloat64

	// gainScale is the expected return treated as full strength: a 5%
	// return already counts as maximum conviction.
	gainScale = 0.05

	// stalePenalty is added to the measured volatility when the quote
	// that produced the expected return was served stale from cache.
	stalePenalty = 0.25
)

// Window is a bounded sequence of recent prices for one pair.
// Inserting past capacity evicts the oldest sample.
type Window struct {
	capacity int
	prices   []float64
}

// NewWindow creates a Window with the given capacity.
// Capacities below 2 fall back to DefaultWindowSize.
func NewWindow(capacity int) *Window {
	if capacity < 2 {
		capacity = DefaultWindowSize
	}
	return &Window{capacity: capacity}
}

// Add records a price sample, evicting the oldest when full.
func (w *Window) Add(price float64) {
	w.prices = append(w.prices, price)
	if len(w.prices) > w.capacity {
		w.prices = w.prices[1:]
	}
}

// Len returns the number of recorded samples.
func (w *Window) Len() int {
	return len(w.prices)
}

// Prices returns a copy of the recorded samples, oldest first.
func (w *Window) Prices() []float64 {
	out := make([]float64, len(w.prices))
	copy(out, w.prices)
	return out
}

// Assessment bundles every score derived from one window and one
// proposed trade. The same values feed both the live decision and the
// persisted record.
type Assessment struct {
	Volatility float64
	Momentum   float64
	Confidence float64
	Score      float64
}

// Assess scores a proposed trade with the given expected return against
// the pair's price window. Stale quotes raise the volatility input.
func Assess(w *Window, expectedReturn float64, stale bool) Assessment {
	volatility := Volatility(w)
	if stale {
		volatility = math.Min(1, volatility+stalePenalty)
	}
	confidence := Confidence(expectedReturn, volatility)
	return Assessment{
		Volatility: volatility,
		Momentum:   Momentum(w),
		Confidence: confidence,
		Score:      Score(expectedReturn, volatility, confidence),
	}
}

// Volatility is the coefficient of variation (std dev / mean) of the
// window, clamped to [0,1]. Windows with fewer than 2 samples or a
// non-positive mean carry maximum uncertainty and return 1.
func Volatility(w *Window) float64 {
	if w == nil || len(w.prices) < 2 {
		return 1
	}

	var sum float64
	for _, p := range w.prices {
		sum += p
	}
	mean := sum / float64(len(w.prices))
	if mean <= 0 {
		return 1
	}

	var squares float64
	for _, p := range w.prices {
		d := p - mean
		squares += d * d
	}
	// Sample standard deviation, n-1 denominator.
	stdDev := math.Sqrt(squares / float64(len(w.prices)-1))

	return math.Min(stdDev/mean, 1)
}

// Momentum is the normalized change across the window, clamped to
// [-1,1]. 1 means a strong uptrend, -1 a strong downtrend.
func Momentum(w *Window) float64 {
	if w == nil || len(w.prices) < 2 {
		return 0
	}

	first := w.prices[0]
	last := w.prices[len(w.prices)-1]
	if first == 0 {
		return 0
	}

	change := (last - first) / first
	return math.Max(-1, math.Min(1, change))
}

// Confidence combines expected return and volatility into [0,1].
// It is 0 whenever the expected return is non-positive or volatility
// is at its maximum, and grows with return while shrinking with
// volatility.
func Confidence(expectedReturn, volatility float64) float64 {
	if expectedReturn <= 0 {
		return 0
	}
	gain := math.Min(1, expectedReturn/gainScale)
	confidence := gain * (1 - volatility)
	return math.Max(0, math.Min(1, confidence))
}

// Score is the composite risk score volatility / (confidence * gain).
// A non-positive denominator means the trade has no upside and returns
// MaxScore instead of dividing by zero.
func Score(potentialGain, volatility, confidence float64) float64 {
	weight := confidence * potentialGain
	if weight <= 0 {
		return MaxScore
	}
	return volatility / weight
}
