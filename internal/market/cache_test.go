package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"uphold-trade-bot-go/internal/uphold"
)

// MockRestClient is a mock implementation of the RestClientInterface.
type MockRestClient struct {
	mock.Mock
}

func (m *MockRestClient) GetTicker(ctx context.Context, pair string) (*uphold.Ticker, error) {
	args := m.Called(ctx, pair)
	return args.Get(0).(*uphold.Ticker), args.Error(1)
}

func (m *MockRestClient) GetAllTickers(ctx context.Context) ([]uphold.Ticker, error) {
	args := m.Called(ctx)
	return args.Get(0).([]uphold.Ticker), args.Error(1)
}

func (m *MockRestClient) GetAccounts(ctx context.Context) ([]uphold.Account, error) {
	args := m.Called(ctx)
	return args.Get(0).([]uphold.Account), args.Error(1)
}

func (m *MockRestClient) CreateOrder(ctx context.Context, denomination, direction string, amount float64) (*uphold.OrderResponse, error) {
	args := m.Called(ctx, denomination, direction, amount)
	return args.Get(0).(*uphold.OrderResponse), args.Error(1)
}

func btcTicker(last string) *uphold.Ticker {
	return &uphold.Ticker{Pair: "BTC-USD", Currency: "USD", Bid: "100.5", Ask: "101", Last: last}
}

func TestCache_Get_ServesFromCacheWithinTTL(t *testing.T) {
	// Arrange
	mockClient := new(MockRestClient)
	mockClient.On("GetTicker", mock.Anything, "BTC-USD").Return(btcTicker("100.75"), nil).Once()

	cache := NewCache(mockClient, time.Minute, zap.NewNop())

	// Act
	first, err := cache.Get(context.Background(), "BTC-USD")
	assert.NoError(t, err)
	second, err := cache.Get(context.Background(), "BTC-USD")
	assert.NoError(t, err)

	// Assert: the second lookup never hits the API.
	assert.Equal(t, 100.5, first.Bid)
	assert.Equal(t, 101.0, first.Ask)
	assert.Equal(t, first.Last, second.Last)
	assert.False(t, second.Stale)
	mockClient.AssertNumberOfCalls(t, "GetTicker", 1)
}

func TestCache_Get_RefreshesAfterTTL(t *testing.T) {
	mockClient := new(MockRestClient)
	mockClient.On("GetTicker", mock.Anything, "BTC-USD").Return(btcTicker("100"), nil).Once()
	mockClient.On("GetTicker", mock.Anything, "BTC-USD").Return(btcTicker("102"), nil).Once()

	cache := NewCache(mockClient, time.Millisecond, zap.NewNop())

	first, err := cache.Get(context.Background(), "BTC-USD")
	assert.NoError(t, err)
	assert.Equal(t, 100.0, first.Last)

	time.Sleep(5 * time.Millisecond)

	second, err := cache.Get(context.Background(), "BTC-USD")
	assert.NoError(t, err)
	assert.Equal(t, 102.0, second.Last)
	mockClient.AssertNumberOfCalls(t, "GetTicker", 2)
}

func TestCache_Get_ServesStaleOnRefreshFailure(t *testing.T) {
	mockClient := new(MockRestClient)
	mockClient.On("GetTicker", mock.Anything, "BTC-USD").Return(btcTicker("100"), nil).Once()
	mockClient.On("GetTicker", mock.Anything, "BTC-USD").
		Return(&uphold.Ticker{}, errors.New("service down")).Once()

	cache := NewCache(mockClient, time.Millisecond, zap.NewNop())

	first, err := cache.Get(context.Background(), "BTC-USD")
	assert.NoError(t, err)
	assert.False(t, first.Stale)

	time.Sleep(5 * time.Millisecond)

	// The refresh fails, so the expired entry is served flagged.
	second, err := cache.Get(context.Background(), "BTC-USD")
	assert.NoError(t, err)
	assert.True(t, second.Stale)
	assert.Equal(t, first.Last, second.Last)
}

func TestCache_Get_ErrorWithoutFallback(t *testing.T) {
	mockClient := new(MockRestClient)
	mockClient.On("GetTicker", mock.Anything, "BTC-USD").
		Return(&uphold.Ticker{}, errors.New("service down"))

	cache := NewCache(mockClient, time.Minute, zap.NewNop())

	_, err := cache.Get(context.Background(), "BTC-USD")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no usable quote for 'BTC-USD'")
}

func TestCache_Get_MalformedTicker(t *testing.T) {
	mockClient := new(MockRestClient)
	mockClient.On("GetTicker", mock.Anything, "BTC-USD").
		Return(&uphold.Ticker{Pair: "BTC-USD", Bid: "n/a", Ask: "101", Last: "100"}, nil)

	cache := NewCache(mockClient, time.Minute, zap.NewNop())

	_, err := cache.Get(context.Background(), "BTC-USD")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "malformed bid")
	assert.Empty(t, cache.Snapshot())
}

func TestCache_GetMany_DropsFailingPairs(t *testing.T) {
	mockClient := new(MockRestClient)
	mockClient.On("GetTicker", mock.Anything, "BTC-USD").Return(btcTicker("100"), nil)
	mockClient.On("GetTicker", mock.Anything, "ETH-USD").
		Return(&uphold.Ticker{}, errors.New("unknown pair"))

	cache := NewCache(mockClient, time.Minute, zap.NewNop())

	quotes, err := cache.GetMany(context.Background(), []string{"BTC-USD", "ETH-USD"})
	assert.NoError(t, err)
	assert.Len(t, quotes, 1)
	assert.Contains(t, quotes, "BTC-USD")
}

func TestCache_GetMany_AllFail(t *testing.T) {
	mockClient := new(MockRestClient)
	mockClient.On("GetTicker", mock.Anything, mock.Anything).
		Return(&uphold.Ticker{}, errors.New("service down"))

	cache := NewCache(mockClient, time.Minute, zap.NewNop())

	_, err := cache.GetMany(context.Background(), []string{"BTC-USD", "ETH-USD"})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, uphold.ErrUnavailable))
}

func TestCache_GetMany_MixesCachedAndFetched(t *testing.T) {
	mockClient := new(MockRestClient)
	mockClient.On("GetTicker", mock.Anything, "BTC-USD").Return(btcTicker("100"), nil).Once()
	mockClient.On("GetTicker", mock.Anything, "ETH-USD").
		Return(&uphold.Ticker{Pair: "ETH-USD", Currency: "USD", Bid: "50", Ask: "50.5", Last: "50.25"}, nil).Once()

	cache := NewCache(mockClient, time.Minute, zap.NewNop())

	// Warm BTC-USD, then batch over both pairs.
	_, err := cache.Get(context.Background(), "BTC-USD")
	assert.NoError(t, err)

	quotes, err := cache.GetMany(context.Background(), []string{"BTC-USD", "ETH-USD"})
	assert.NoError(t, err)
	assert.Len(t, quotes, 2)
	mockClient.AssertNumberOfCalls(t, "GetTicker", 2) // one per pair overall
}

func TestCache_Snapshot_ReturnsCopy(t *testing.T) {
	mockClient := new(MockRestClient)
	mockClient.On("GetTicker", mock.Anything, "BTC-USD").Return(btcTicker("100"), nil)

	cache := NewCache(mockClient, time.Minute, zap.NewNop())
	_, err := cache.Get(context.Background(), "BTC-USD")
	assert.NoError(t, err)

	snapshot := cache.Snapshot()
	assert.Len(t, snapshot, 1)

	delete(snapshot, "BTC-USD")
	assert.Len(t, cache.Snapshot(), 1)
}
