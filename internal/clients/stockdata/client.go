// Package stockdata provides a client for the financial statements data
// source: exchange listings and per-symbol quarterly statement payloads.
package stockdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/interfaces"
	"github.com/bobmcallan/finscan/internal/models"
)

const (
	DefaultBaseURL   = "https://stockanalysis.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements the FinancialSourceClient interface.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger.
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client. Used in tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new data source client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
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

// APIError represents a non-200 response from the data source.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("source API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Retryable classifies rate limiting and upstream server errors as transient.
// Client errors (4xx other than 429) are terminal.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// get performs a rate-limited GET request and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("Source API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Connection-level failure with no response: transient.
		return common.MarkRetryable(fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
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

// GetSymbolFinancials fetches the raw quarterly statement payload for a
// symbol. Returns (nil, nil) when the source has no data (404 or an empty
// payload) — absence of data is not an error.
func (c *Client) GetSymbolFinancials(ctx context.Context, symbol string) (*interfaces.RawFinancials, error) {
	path := fmt.Sprintf("/symbol/%s/financials", url.PathEscape(symbol))

	params := url.Values{}
	params.Set("range", "quarterly")

	var raw interfaces.RawFinancials
	err := c.get(ctx, path, params, &raw)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	if len(raw.ColumnMap) == 0 || len(raw.Rows) == 0 {
		return nil, nil
	}

	return &raw, nil
}

// listingEntry is the exchange listing response shape.
type listingEntry struct {
	Symbol      string `json:"s"`
	CompanyName string `json:"n"`
	Market      string `json:"m"`
	Primary     bool   `json:"p"`
}

// GetExchangeListing fetches one page of an exchange's stock listing.
func (c *Client) GetExchangeListing(ctx context.Context, marketCode string, page, pageSize int) ([]*models.Symbol, error) {
	path := fmt.Sprintf("/exchange/%s/stocks", url.PathEscape(marketCode))

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(pageSize))

	var entries []listingEntry
	if err := c.get(ctx, path, params, &entries); err != nil {
		return nil, err
	}

	symbols := make([]*models.Symbol, 0, len(entries))
	for _, e := range entries {
		if e.Symbol == "" {
			continue
		}
		market := e.Market
		if market == "" {
			market = marketCode
		}
		symbols = append(symbols, &models.Symbol{
			Symbol:      e.Symbol,
			CompanyName: e.CompanyName,
			Exchanges: []models.ExchangeListing{
				{MarketCode: market, IsPrimary: e.Primary || market == marketCode},
			},
		})
	}

	c.logger.Debug().
		Str("market", marketCode).
		Int("page", page).
		Int("symbols", len(symbols)).
		Msg("Exchange listing page fetched")

	return symbols, nil
}

// Ensure Client implements FinancialSourceClient.
var _ interfaces.FinancialSourceClient = (*Client)(nil)
