package trader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"uphold-trade-bot-go/internal/models"
)

func TestConfigStore_Update(t *testing.T) {
	db := setupTest(t)
	store := NewConfigStore(db)

	seed := gateConfig()
	assert.NoError(t, db.Create(&seed).Error)

	t.Run("ValidConfigIsSaved", func(t *testing.T) {
		next := gateConfig()
		next.RiskTolerance = 0.3
		next.CheckIntervalSeconds = 30

		saved, err := store.Update(next)
		assert.NoError(t, err)
		assert.Equal(t, seed.ID, saved.ID) // the singleton row is reused

		stored, err := store.Snapshot()
		assert.NoError(t, err)
		assert.Equal(t, 0.3, stored.RiskTolerance)
		assert.Equal(t, 30, stored.CheckIntervalSeconds)
	})

	t.Run("InvalidConfigIsRejected", func(t *testing.T) {
		before, err := store.Snapshot()
		assert.NoError(t, err)

		next := gateConfig()
		next.RiskTolerance = 1.5

		_, err = store.Update(next)
		assert.Error(t, err)

		var verr *models.ValidationError
		assert.True(t, errors.As(err, &verr))
		assert.Equal(t, "risk_tolerance", verr.Field)

		// The stored configuration is untouched.
		after, err := store.Snapshot()
		assert.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestConfigStore_SetActive(t *testing.T) {
	db := setupTest(t)
	store := NewConfigStore(db)

	seed := gateConfig()
	assert.NoError(t, db.Create(&seed).Error)

	assert.NoError(t, store.SetActive(false))

	stored, err := store.Snapshot()
	assert.NoError(t, err)
	assert.False(t, stored.Active)
	assert.Equal(t, seed.RiskTolerance, stored.RiskTolerance) // only the flag changed
}

func TestPairStore_Add(t *testing.T) {
	db := setupTest(t)
	store := NewPairStore(db)

	t.Run("NormalizesSymbol", func(t *testing.T) {
		pair, err := store.Add(" btc-usd ", 3)
		assert.NoError(t, err)
		assert.Equal(t, "BTC-USD", pair.Symbol)
		assert.Equal(t, 3, pair.Priority)
		assert.True(t, pair.Enabled)
	})

	t.Run("RejectsMalformedSymbol", func(t *testing.T) {
		_, err := store.Add("BTCUSD", 1)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "expected BASE-QUOTE")

		_, err = store.Add("-USD", 1)
		assert.Error(t, err)
	})

	t.Run("AddIsIdempotent", func(t *testing.T) {
		pair, err := store.Add("BTC-USD", 9)
		assert.NoError(t, err)
		assert.Equal(t, 3, pair.Priority) // the existing pair wins

		all, err := store.All()
		assert.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestPairStore_Enabled(t *testing.T) {
	db := setupTest(t)
	store := NewPairStore(db)

	for _, p := range []struct {
		symbol   string
		priority int
	}{
		{"ETH-USD", 1},
		{"BTC-USD", 2},
		{"ADA-USD", 1},
		{"XRP-USD", 0},
	} {
		_, err := store.Add(p.symbol, p.priority)
		assert.NoError(t, err)
	}
	assert.NoError(t, store.SetEnabled("XRP-USD", false))

	pairs, err := store.Enabled()
	assert.NoError(t, err)

	symbols := make([]string, len(pairs))
	for i, p := range pairs {
		symbols[i] = p.Symbol
	}
	// Descending priority, ties broken alphabetically, disabled excluded.
	assert.Equal(t, []string{"BTC-USD", "ADA-USD", "ETH-USD"}, symbols)
}

func TestPairStore_SetEnabled_UnknownPair(t *testing.T) {
	db := setupTest(t)
	store := NewPairStore(db)

	err := store.SetEnabled("DOGE-USD", true)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown pair")
}
