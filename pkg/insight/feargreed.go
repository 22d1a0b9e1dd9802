package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/collection"
	"github.com/zeromicro/go-zero/core/logx"

	"cryptoanalyst-api/pkg/market"
	"cryptoanalyst-api/pkg/market/cache"
)

const (
	DefaultFearGreedURL   = "https://api.alternative.me/fng/?limit=1&format=json"
	DefaultFearGreedTTL   = 600 * time.Second
	fearGreedProvider     = "alternative.me"
	defaultFearGreedValue = 50
	defaultFearGreedClass = "Neutral"
)

// FearGreed is the crowd sentiment gauge.
type FearGreed struct {
	Value          int     `json:"value"`
	Classification string  `json:"classification"`
	UpdatedAt      *string `json:"updated_at"`
}

func neutralGauge() FearGreed {
	return FearGreed{Value: defaultFearGreedValue, Classification: defaultFearGreedClass}
}

// FearGreedClient reads the alternative.me index. Failures fall back to a neutral reading, which
// is cached like a successful one.
type FearGreedClient struct {
	url        string
	httpClient *http.Client
	cache      *collection.Cache
	now        func() time.Time
}

type FearGreedOption func(*FearGreedClient)

func WithFearGreedURL(u string) FearGreedOption {
	return func(c *FearGreedClient) {
		if u = strings.TrimSpace(u); u != "" {
			c.url = u
		}
	}
}

func WithFearGreedHTTPClient(hc *http.Client) FearGreedOption {
	return func(c *FearGreedClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithFearGreedClock(now func() time.Time) FearGreedOption {
	return func(c *FearGreedClient) {
		if now != nil {
			c.now = now
		}
	}
}

// NewFearGreedClient builds a client whose reading is cached for ttl.
func NewFearGreedClient(ttl time.Duration, opts ...FearGreedOption) (*FearGreedClient, error) {
	if ttl <= 0 {
		ttl = DefaultFearGreedTTL
	}
	store, err := collection.NewCache(ttl, collection.WithName("feargreed"))
	if err != nil {
		return nil, fmt.Errorf("insight: create fear greed cache: %w", err)
	}
	c := &FearGreedClient{
		url:        DefaultFearGreedURL,
		httpClient: &http.Client{Timeout: 8 * time.Second},
		cache:      store,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Current returns the latest gauge reading. It never fails.
func (c *FearGreedClient) Current(ctx context.Context) FearGreed {
	v, err := c.cache.Take(cache.FearGreedKey(), func() (any, error) {
		gauge, err := c.fetch(ctx)
		if err != nil {
			logx.WithContext(ctx).Errorf("insight: fear greed fetch failed, using neutral: %v", err)
			return neutralGauge(), nil
		}
		return gauge, nil
	})
	if err != nil {
		return neutralGauge()
	}
	return v.(FearGreed)
}

type fngResponse struct {
	Data []fngEntry `json:"data"`
}

type fngEntry struct {
	Value               string `json:"value"`
	ValueClassification string `json:"value_classification"`
}

func (c *FearGreedClient) fetch(ctx context.Context) (FearGreed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return FearGreed{}, &market.UpstreamError{Provider: fearGreedProvider, Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return FearGreed{}, &market.UpstreamError{Provider: fearGreedProvider, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FearGreed{}, &market.UpstreamError{Provider: fearGreedProvider, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return FearGreed{}, &market.UpstreamError{Provider: fearGreedProvider, Status: resp.StatusCode, Body: string(body)}
	}
	var payload fngResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return FearGreed{}, &market.UpstreamError{Provider: fearGreedProvider, Err: fmt.Errorf("invalid json: %w", err)}
	}

	gauge := neutralGauge()
	if len(payload.Data) > 0 {
		entry := payload.Data[0]
		if entry.Value != "" {
			value, err := strconv.Atoi(strings.TrimSpace(entry.Value))
			if err != nil {
				return FearGreed{}, &market.UpstreamError{Provider: fearGreedProvider, Err: fmt.Errorf("invalid value %q", entry.Value)}
			}
			gauge.Value = value
		}
		if entry.ValueClassification != "" {
			gauge.Classification = entry.ValueClassification
		}
	}
	updated := c.now().UTC().Format(time.RFC3339Nano)
	gauge.UpdatedAt = &updated
	return gauge, nil
}
