package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/collection"
	"github.com/zeromicro/go-zero/core/logx"

	"cryptoanalyst-api/pkg/market"
	"cryptoanalyst-api/pkg/market/cache"
)

const (
	providerName     = "cryptocompare"
	DefaultBaseURL   = "https://min-api.cryptocompare.com/data/v2/news/"
	DefaultTimeout   = 10 * time.Second
	DefaultCacheTTL  = 120 * time.Second
	DefaultLimit     = 5
	DefaultAssetNews = 3
)

// Item is one news article.
type Item struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Source      string   `json:"source"`
	PublishedAt string   `json:"published_at"`
	Categories  []string `json:"categories"`
	Body        string   `json:"body"`
}

// Query selects articles. Assets filter on the article tags.
type Query struct {
	Limit      int
	Categories []string
	Assets     []string
}

// Client reads the CryptoCompare news feed. Results are cached briefly per query.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *collection.Cache
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimSpace(u); u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = strings.TrimSpace(key) }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds a Client whose query cache keeps results for ttl (DefaultCacheTTL when zero).
func NewClient(ttl time.Duration, opts ...Option) (*Client, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	store, err := collection.NewCache(ttl, collection.WithName("news"))
	if err != nil {
		return nil, fmt.Errorf("news: create cache: %w", err)
	}
	c := &Client{
		baseURL:    strings.TrimRight(DefaultBaseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		cache:      store,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ForAsset returns up to limit articles tagged with asset.
func (c *Client) ForAsset(ctx context.Context, asset string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = DefaultAssetNews
	}
	return c.Fetch(ctx, Query{Limit: limit, Assets: []string{asset}})
}

// Fetch returns up to q.Limit articles, newest popular first.
func (c *Client) Fetch(ctx context.Context, q Query) ([]Item, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	categories := lowerSet(q.Categories)
	assets := lowerSet(q.Assets)
	key := cache.NewsKey(q.Limit, categories, assets)

	v, err := c.cache.Take(key, func() (any, error) {
		return c.fetch(ctx, q.Limit, categories, assets)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Item), nil
}

type feedResponse struct {
	Data []feedEntry `json:"Data"`
}

type feedEntry struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	SourceInfo  sourceInfo `json:"source_info"`
	PublishedOn *int64     `json:"published_on"`
	Categories  string     `json:"categories"`
	Tags        string     `json:"tags"`
	Body        string     `json:"body"`
}

type sourceInfo struct {
	Name string `json:"name"`
}

func (c *Client) fetch(ctx context.Context, limit int, categories, assets []string) ([]Item, error) {
	params := url.Values{}
	params.Set("lang", "EN")
	params.Set("sortOrder", "popular")
	params.Set("limit", strconv.Itoa(limit))
	if len(categories) > 0 {
		params.Set("categories", strings.Join(categories, ","))
	}

	var payload feedResponse
	if err := c.get(ctx, params, &payload); err != nil {
		return nil, err
	}

	items := make([]Item, 0, limit)
	for _, entry := range payload.Data {
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			continue
		}
		if len(assets) > 0 && !anyIn(assets, splitPipe(entry.Tags)) {
			continue
		}
		items = append(items, Item{
			Title:       title,
			URL:         entry.URL,
			Source:      sourceName(entry),
			PublishedAt: c.publishedAt(entry.PublishedOn),
			Categories:  splitPipe(entry.Categories),
			Body:        strings.TrimSpace(entry.Body),
		})
		if len(items) >= limit {
			break
		}
	}
	logx.WithContext(ctx).Infof("news: fetched %d items (limit=%d assets=%v)", len(items), limit, assets)
	return items, nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return &market.UpstreamError{Provider: providerName, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Apikey "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &market.UpstreamError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &market.UpstreamError{Provider: providerName, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logx.WithContext(ctx).Errorf("news: request failed status=%d", resp.StatusCode)
		return &market.UpstreamError{Provider: providerName, Status: resp.StatusCode, Body: truncate(string(body), 512)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &market.UpstreamError{Provider: providerName, Err: fmt.Errorf("invalid json: %w", err)}
	}
	return nil
}

func (c *Client) publishedAt(ts *int64) string {
	if ts == nil || *ts <= 0 {
		return c.now().UTC().Format(time.RFC3339)
	}
	return time.Unix(*ts, 0).UTC().Format(time.RFC3339)
}

func sourceName(entry feedEntry) string {
	if s := strings.TrimSpace(entry.Source); s != "" {
		return s
	}
	if s := strings.TrimSpace(entry.SourceInfo.Name); s != "" {
		return s
	}
	return "Unknown"
}

func splitPipe(raw string) []string {
	parts := strings.Split(strings.ToLower(raw), "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func anyIn(needles, haystack []string) bool {
	for _, n := range needles {
		for _, h := range haystack {
			if n == h {
				return true
			}
		}
	}
	return false
}

func lowerSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
