package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"golang.org/x/time/rate"

	"cryptoanalyst-api/pkg/market"
)

const (
	providerName       = "coingecko"
	defaultBaseURL     = "https://api.coingecko.com/api/v3"
	defaultHTTPTimeout = 15 * time.Second
	apiKeyHeader       = "x-cg-pro-api-key"
	maxPerPage         = 250
)

// Client wraps the CoinGecko REST API. It performs no retries; callers own retry policy.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the default API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithAPIKey sets the pro API key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithTimeout sets the per-request timeout on the default http client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout, Transport: c.httpClient.Transport}
		}
	}
}

// WithRateLimit throttles outgoing requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient constructs a CoinGecko client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func init() {
	market.RegisterProvider(providerName, func(name string, cfg *market.ProviderConfig) (market.DataSource, error) {
		opts := []Option{}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.APIKey != "" {
			opts = append(opts, WithAPIKey(cfg.APIKey))
		}
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = cfg.Timeout
		}
		if timeout > 0 {
			opts = append(opts, WithTimeout(timeout))
		}
		if cfg.RateLimit > 0 {
			opts = append(opts, WithRateLimit(cfg.RateLimit, cfg.Burst))
		}
		return NewClient(opts...), nil
	})
}

var _ market.DataSource = (*Client)(nil)

// SimplePrice fetches quotes for the given ids. Ids the provider does not price are skipped.
func (c *Client) SimplePrice(ctx context.Context, assets []string, currency string) ([]market.PriceQuote, error) {
	params := url.Values{}
	params.Set("ids", strings.Join(assets, ","))
	params.Set("vs_currencies", currency)
	params.Set("include_24hr_change", "true")
	params.Set("include_market_cap", "true")

	var payload map[string]map[string]*float64
	if err := c.get(ctx, "simple/price", params, &payload); err != nil {
		return nil, err
	}
	quotes := make([]market.PriceQuote, 0, len(assets))
	seen := make(map[string]struct{}, len(assets))
	for _, asset := range assets {
		if _, dup := seen[asset]; dup {
			continue
		}
		seen[asset] = struct{}{}
		metrics, ok := payload[asset]
		if !ok {
			continue
		}
		price := metrics[currency]
		if price == nil {
			continue
		}
		quotes = append(quotes, market.PriceQuote{
			Asset:     asset,
			Currency:  currency,
			Price:     *price,
			Change24h: metrics[currency+"_24h_change"],
			MarketCap: metrics[currency+"_market_cap"],
		})
	}
	return quotes, nil
}

// Trending returns the trending search list.
func (c *Client) Trending(ctx context.Context) ([]market.TrendingCoin, error) {
	var payload trendingResponse
	if err := c.get(ctx, "search/trending", nil, &payload); err != nil {
		return nil, err
	}
	coins := make([]market.TrendingCoin, 0, len(payload.Coins))
	for _, entry := range payload.Coins {
		name := entry.Item.Name
		if name == "" {
			name = "Unknown"
		}
		score := entry.Score
		if score == 0 {
			score = entry.Item.Score
		}
		coins = append(coins, market.TrendingCoin{
			Name:   name,
			Symbol: strings.ToUpper(entry.Item.Symbol),
			Score:  score,
			Slug:   entry.Item.ID,
		})
	}
	return coins, nil
}

// MarketChart returns price, market cap and volume series.
func (c *Client) MarketChart(ctx context.Context, asset, currency string, days int) (*market.MarketChart, error) {
	params := url.Values{}
	params.Set("vs_currency", currency)
	params.Set("days", strconv.Itoa(days))
	var chart market.MarketChart
	if err := c.get(ctx, "coins/"+url.PathEscape(asset)+"/market_chart", params, &chart); err != nil {
		return nil, err
	}
	return &chart, nil
}

// OHLC returns provider candles.
func (c *Client) OHLC(ctx context.Context, asset, currency string, days int) ([]market.OHLC, error) {
	params := url.Values{}
	params.Set("vs_currency", currency)
	params.Set("days", strconv.Itoa(days))
	var candles []market.OHLC
	if err := c.get(ctx, "coins/"+url.PathEscape(asset)+"/ohlc", params, &candles); err != nil {
		return nil, err
	}
	return candles, nil
}

// ListCoins returns every listed coin.
func (c *Client) ListCoins(ctx context.Context) ([]market.CoinListing, error) {
	params := url.Values{}
	params.Set("include_platform", "false")
	var coins []market.CoinListing
	if err := c.get(ctx, "coins/list", params, &coins); err != nil {
		return nil, err
	}
	return coins, nil
}

// CoinDetail returns metadata and market data for one coin.
func (c *Client) CoinDetail(ctx context.Context, asset string) (*market.CoinDetail, error) {
	params := url.Values{}
	params.Set("localization", "false")
	params.Set("tickers", "false")
	params.Set("market_data", "true")
	params.Set("community_data", "false")
	params.Set("developer_data", "false")
	params.Set("sparkline", "false")
	var detail market.CoinDetail
	if err := c.get(ctx, "coins/"+url.PathEscape(asset), params, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GlobalData returns aggregate market statistics.
func (c *Client) GlobalData(ctx context.Context) (*market.GlobalData, error) {
	var payload struct {
		Data market.GlobalData `json:"data"`
	}
	if err := c.get(ctx, "global", nil, &payload); err != nil {
		return nil, err
	}
	return &payload.Data, nil
}

// Markets returns a page of the market-cap ordered board. perPage is clamped to [1, 250].
func (c *Client) Markets(ctx context.Context, currency string, perPage, page int) ([]market.MarketRow, error) {
	perPage = ClampPerPage(perPage)
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("vs_currency", currency)
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("page", strconv.Itoa(page))
	params.Set("sparkline", "false")
	params.Set("price_change_percentage", "1h,24h,7d")
	var rows []market.MarketRow
	if err := c.get(ctx, "coins/markets", params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ClampPerPage bounds a page size to the provider limits.
func ClampPerPage(perPage int) int {
	if perPage < 1 {
		return 1
	}
	if perPage > maxPerPage {
		return maxPerPage
	}
	return perPage
}

// get issues a GET and decodes the JSON body into result.
func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &market.UpstreamError{Provider: providerName, Err: err}
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &market.UpstreamError{Provider: providerName, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	logx.WithContext(ctx).Infof("coingecko: request path=%s", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &market.UpstreamError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &market.UpstreamError{Provider: providerName, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logx.WithContext(ctx).Errorf("coingecko: http status %d path=%s body=%s", resp.StatusCode, path, string(body))
		return &market.UpstreamError{Provider: providerName, Status: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, result); err != nil {
		return &market.UpstreamError{Provider: providerName, Err: fmt.Errorf("invalid json: %w", err)}
	}
	return nil
}
