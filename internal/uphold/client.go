package uphold

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"uphold-trade-bot-go/internal/config"
)

const (
	baseURL        = "https://api.uphold.com/v0"
	sandboxBaseURL = "https://api-sandbox.uphold.com/v0"

	DirectionBuy  = "buy"
	DirectionSell = "sell"
)

// ErrUnavailable marks errors where the API could not be reached or kept
// failing after all retries. Callers test for it with errors.Is.
var ErrUnavailable = errors.New("uphold api unavailable")

// retryBaseDelay is the unit for exponential backoff between retries.
var retryBaseDelay = time.Second

// RestClientInterface defines the interface for the Uphold REST API client.
type RestClientInterface interface {
	GetTicker(ctx context.Context, pair string) (*Ticker, error)
	GetAllTickers(ctx context.Context) ([]Ticker, error)
	GetAccounts(ctx context.Context) ([]Account, error)
	CreateOrder(ctx context.Context, denomination, direction string, amount float64) (*OrderResponse, error)
}

// RestClient is a client for the Uphold REST API.
// It implements the RestClientInterface.
type RestClient struct {
	client  *resty.Client
	apiKey  string
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure RestClient implements the interface
var _ RestClientInterface = (*RestClient)(nil)

// NewRestClient creates a new Uphold REST API client.
func NewRestClient(cfg *config.Uphold, logger *zap.Logger) *RestClient {
	var url string
	if cfg.Sandbox {
		url = sandboxBaseURL
		logger.Warn("Using Uphold Sandbox API")
	} else {
		url = baseURL
		logger.Info("Using Uphold Production API")
	}

	client := resty.New().
		SetBaseURL(url).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)
	if cfg.ApiKey != "" {
		client.SetAuthToken(cfg.ApiKey)
	}

	// Initialize the rate limiter
	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &RestClient{
		client:  client,
		apiKey:  cfg.ApiKey,
		logger:  logger,
		limiter: limiter,
	}
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && resp.StatusCode() != 0 {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests { // HTTP 429
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * retryBaseDelay
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err == nil && resp != nil {
		err = fmt.Errorf("status %s: %s", resp.Status(), resp.String())
	}
	return nil, fmt.Errorf("request failed after %d attempts: %v: %w", maxRetries, err, ErrUnavailable)
}

// GetTicker fetches the current quote for a single currency pair.
func (c *RestClient) GetTicker(ctx context.Context, pair string) (*Ticker, error) {
	req := c.client.R().
		SetContext(ctx).
		SetResult(&Ticker{}).
		SetHeader("Content-Type", "application/json")

	resp, err := c.doRequest(ctx, "GET", "/ticker/"+pair, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticker for '%s': %w", pair, err)
	}

	ticker := resp.Result().(*Ticker)
	if ticker.Pair == "" {
		ticker.Pair = pair
	}
	return ticker, nil
}

// GetAllTickers fetches the latest quotes for all pairs.
func (c *RestClient) GetAllTickers(ctx context.Context) ([]Ticker, error) {
	var tickers []Ticker

	req := c.client.R().
		SetContext(ctx).
		SetResult(&tickers).
		SetHeader("Content-Type", "application/json")

	resp, err := c.doRequest(ctx, "GET", "/ticker", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get all tickers: %w", err)
	}

	result := resp.Result().(*[]Ticker)
	return *result, nil
}

// GetAccounts fetches the account balances. Requires an API key.
func (c *RestClient) GetAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account

	req := c.client.R().
		SetContext(ctx).
		SetResult(&accounts).
		SetHeader("Content-Type", "application/json")

	resp, err := c.doRequest(ctx, "GET", "/accounts", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}

	result := resp.Result().(*[]Account)
	return *result, nil
}

// CreateOrder places a new market order on Uphold.
func (c *RestClient) CreateOrder(ctx context.Context, denomination, direction string, amount float64) (*OrderResponse, error) {
	body := OrderRequest{
		Denomination: strings.ToUpper(denomination),
		Amount:       strconv.FormatFloat(amount, 'f', -1, 64),
		Direction:    direction,
	}

	req := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&OrderResponse{})

	resp, err := c.doRequest(ctx, "POST", "/orders", req)
	if err != nil {
		c.logger.Error("Failed to create order after multiple attempts",
			zap.Error(err),
			zap.String("denomination", body.Denomination),
			zap.String("direction", direction),
		)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	result := resp.Result().(*OrderResponse)
	c.logger.Info("Successfully created order", zap.Any("order", result))
	return result, nil
}
