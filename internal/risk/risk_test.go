package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func windowOf(prices ...float64) *Window {
	w := NewWindow(DefaultWindowSize)
	for _, p := range prices {
		w.Add(p)
	}
	return w
}

func TestWindowEviction(t *testing.T) {
	w := NewWindow(3)
	for _, p := range []float64{1, 2, 3, 4} {
		w.Add(p)
	}

	assert.Equal(t, 3, w.Len())
	assert.Equal(t, []float64{2, 3, 4}, w.Prices())
}

func TestVolatility(t *testing.T) {
	testCases := []struct {
		name     string
		window   *Window
		expected float64
	}{
		{
			name:     "Empty window carries maximum uncertainty",
			window:   windowOf(),
			expected: 1,
		},
		{
			name:     "Single sample carries maximum uncertainty",
			window:   windowOf(50000),
			expected: 1,
		},
		{
			name:     "Constant prices",
			window:   windowOf(100, 100, 100),
			expected: 0,
		},
		{
			// mean = 100, sample std dev = sqrt((100+0+100)/2) = 10
			name:     "Known spread",
			window:   windowOf(90, 100, 110),
			expected: 0.1,
		},
		{
			// CV ~= 1.41, clamped to 1
			name:     "Clamped at one",
			window:   windowOf(1, 1000),
			expected: 1,
		},
		{
			name:     "Zero mean",
			window:   windowOf(0, 0, 0),
			expected: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Use a small tolerance for float comparison
			assert.InDelta(t, tc.expected, Volatility(tc.window), 0.0001)
		})
	}
}

func TestMomentum(t *testing.T) {
	testCases := []struct {
		name     string
		window   *Window
		expected float64
	}{
		{
			name:     "Too few samples",
			window:   windowOf(100),
			expected: 0,
		},
		{
			// (110 - 100) / 100 = 0.1
			name:     "Uptrend",
			window:   windowOf(100, 104, 110),
			expected: 0.1,
		},
		{
			// (90 - 100) / 100 = -0.1
			name:     "Downtrend",
			window:   windowOf(100, 90),
			expected: -0.1,
		},
		{
			// (30 - 10) / 10 = 2, clamped to 1
			name:     "Clamped uptrend",
			window:   windowOf(10, 30),
			expected: 1,
		},
		{
			name:     "Zero first price",
			window:   windowOf(0, 5),
			expected: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, Momentum(tc.window), 0.0001)
		})
	}
}

func TestConfidence(t *testing.T) {
	testCases := []struct {
		name           string
		expectedReturn float64
		volatility     float64
		expected       float64
	}{
		{
			name:           "Zero return yields zero confidence",
			expectedReturn: 0,
			volatility:     0.1,
			expected:       0,
		},
		{
			name:           "Negative return yields zero confidence",
			expectedReturn: -0.05,
			volatility:     0,
			expected:       0,
		},
		{
			name:           "Maximum volatility yields zero confidence",
			expectedReturn: 0.05,
			volatility:     1,
			expected:       0,
		},
		{
			// 5% return at zero volatility is full conviction
			name:           "Full strength",
			expectedReturn: 0.05,
			volatility:     0,
			expected:       1,
		},
		{
			// (0.025/0.05) * (1 - 0.5) = 0.25
			name:           "Moderate return, moderate volatility",
			expectedReturn: 0.025,
			volatility:     0.5,
			expected:       0.25,
		},
		{
			// return saturates at 5%: min(1, 0.10/0.05) * (1 - 0.2) = 0.8
			name:           "Return saturates",
			expectedReturn: 0.10,
			volatility:     0.2,
			expected:       0.8,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, Confidence(tc.expectedReturn, tc.volatility), 0.0001)
		})
	}
}

func TestScore(t *testing.T) {
	t.Run("No upside is maximal risk", func(t *testing.T) {
		assert.Equal(t, MaxScore, Score(0, 0.5, 0.9))
		assert.Equal(t, MaxScore, Score(-0.02, 0.5, 0.9))
		assert.Equal(t, MaxScore, Score(0.02, 0.5, 0))
	})

	t.Run("Known ratio", func(t *testing.T) {
		// 0.2 / (0.9 * 0.02) = 11.11
		assert.InDelta(t, 11.1111, Score(0.02, 0.2, 0.9), 0.001)
	})

	t.Run("Scores are not capped at one", func(t *testing.T) {
		// 0.1 / (1 * 0.05) = 2
		score := Score(0.05, 0.1, 1)
		assert.InDelta(t, 2, score, 0.0001)
		assert.Greater(t, score, 1.0)
	})

	t.Run("Zero volatility is free money", func(t *testing.T) {
		assert.Equal(t, 0.0, Score(0.05, 0, 1))
	})
}

func TestAssess(t *testing.T) {
	t.Run("Calm window with solid return", func(t *testing.T) {
		w := windowOf(100, 100, 100, 100)

		a := Assess(w, 0.05, false)

		assert.Equal(t, 0.0, a.Volatility)
		assert.Equal(t, 0.0, a.Momentum)
		assert.Equal(t, 1.0, a.Confidence)
		assert.Equal(t, 0.0, a.Score)
	})

	t.Run("Stale quote raises volatility", func(t *testing.T) {
		w := windowOf(100, 100, 100, 100)

		a := Assess(w, 0.05, true)

		assert.InDelta(t, 0.25, a.Volatility, 0.0001)
		assert.InDelta(t, 0.75, a.Confidence, 0.0001)
		// 0.25 / (0.75 * 0.05) = 6.67
		assert.InDelta(t, 6.6667, a.Score, 0.001)
	})

	t.Run("Short window disqualifies the trade", func(t *testing.T) {
		w := windowOf(50000)

		a := Assess(w, 0.05, false)

		assert.Equal(t, 1.0, a.Volatility)
		assert.Equal(t, 0.0, a.Confidence)
		assert.Equal(t, MaxScore, a.Score)
	})
}
