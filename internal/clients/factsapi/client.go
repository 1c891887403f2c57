// Package factsapi provides the client for the data-access collaborator
// that supplies raw metric measurements and price history per subject.
package factsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/shaharAka/Shaharstocks-sub005/internal/common"
	"github.com/shaharAka/Shaharstocks-sub005/internal/interfaces"
	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client implements interfaces.FactSource over the facts HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new facts client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an upstream API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("facts API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request. A 404 maps to
// models.ErrDataUnavailable: the upstream has nothing for the subject.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("Facts API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", path, models.ErrDataUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// factsResponse is the upstream payload for one subject's facts. Metric
// values arrive as nullable numbers; null means not measured.
type factsResponse struct {
	Ticker       string              `json:"ticker"`
	CompanyName  string              `json:"company_name"`
	CurrentPrice float64             `json:"current_price"`
	PriceChange  float64             `json:"price_change"`
	Metrics      map[string]*float64 `json:"metrics"`
	PriceHistory []priceBarResponse  `json:"price_history"`
}

type priceBarResponse struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// FetchFacts retrieves the raw measurements for one subject.
func (c *Client) FetchFacts(ctx context.Context, ticker string) (*models.FactSet, error) {
	var resp factsResponse
	if err := c.get(ctx, fmt.Sprintf("/facts/%s", ticker), nil, &resp); err != nil {
		return nil, err
	}

	facts := &models.FactSet{
		Ticker:       ticker,
		CompanyName:  resp.CompanyName,
		CurrentPrice: resp.CurrentPrice,
		PriceChange:  resp.PriceChange,
		Metrics:      resp.Metrics,
		FetchedAt:    time.Now().UTC(),
	}
	for _, bar := range resp.PriceHistory {
		date, err := time.Parse("2006-01-02", bar.Date)
		if err != nil {
			continue
		}
		facts.PriceHistory = append(facts.PriceHistory, models.PriceBar{
			Date:   date,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		})
	}
	return facts, nil
}

// macroResponse is the upstream payload for market/sector context.
type macroResponse struct {
	Ticker  string              `json:"ticker"`
	Sector  string              `json:"sector"`
	Stance  string              `json:"stance"`
	Metrics map[string]*float64 `json:"metrics"`
}

// FetchMacro retrieves the market-context measurements for one subject.
// Missing macro context is reported as models.ErrDataUnavailable; the
// caller decides whether that is fatal.
func (c *Client) FetchMacro(ctx context.Context, ticker string) (*models.MacroFacts, error) {
	var resp macroResponse
	if err := c.get(ctx, fmt.Sprintf("/macro/%s", ticker), nil, &resp); err != nil {
		return nil, err
	}
	return &models.MacroFacts{
		Ticker:    ticker,
		Sector:    resp.Sector,
		Stance:    resp.Stance,
		Metrics:   resp.Metrics,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Compile-time check
var _ interfaces.FactSource = (*Client)(nil)
