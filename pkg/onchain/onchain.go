package onchain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/collection"
	"github.com/zeromicro/go-zero/core/logx"

	"cryptoanalyst-api/pkg/market"
	"cryptoanalyst-api/pkg/market/cache"
	"cryptoanalyst-api/pkg/market/indicators"
)

const (
	providerName    = "blockchair"
	DefaultBaseURL  = "https://api.blockchair.com"
	DefaultTimeout  = 10 * time.Second
	DefaultCacheTTL = 180 * time.Second
)

var networks = map[string]string{
	"btc":          "bitcoin",
	"bitcoin":      "bitcoin",
	"eth":          "ethereum",
	"ethereum":     "ethereum",
	"ltc":          "litecoin",
	"litecoin":     "litecoin",
	"doge":         "dogecoin",
	"dogecoin":     "dogecoin",
	"bch":          "bitcoin-cash",
	"bitcoin-cash": "bitcoin-cash",
}

// Network maps a ticker or canonical id to a Blockchair network name.
func Network(asset string) (string, error) {
	if n, ok := networks[strings.ToLower(strings.TrimSpace(asset))]; ok {
		return n, nil
	}
	return "", market.InvalidInputf("on-chain data is not available for %s", asset)
}

// WhaleActivity compares the largest 24h transfer to market cap.
type WhaleActivity struct {
	State                 string  `json:"state"`
	LargestTransactionUSD float64 `json:"largest_transaction_usd"`
	MarketCapUSD          float64 `json:"market_cap_usd"`
	Ratio                 float64 `json:"ratio"`
	MempoolTPS            float64 `json:"mempool_tps"`
}

// NetworkGrowth compares pending transactions to daily throughput.
type NetworkGrowth struct {
	State               string  `json:"state"`
	MempoolTransactions float64 `json:"mempool_transactions"`
	Transactions24h     float64 `json:"transactions_24h"`
	HodlingAddresses    int64   `json:"hodling_addresses"`
	HeatPct             float64 `json:"heat_pct"`
}

// Execution is the live Ethereum execution-layer reading.
type Execution struct {
	BlockNumber  uint64  `json:"block_number"`
	GasPriceGwei float64 `json:"gas_price_gwei"`
}

// Snapshot is the on-chain activity summary for one network.
type Snapshot struct {
	Asset         string            `json:"asset"`
	Network       string            `json:"network"`
	WhaleActivity WhaleActivity     `json:"whale_activity"`
	NetworkGrowth NetworkGrowth     `json:"network_growth"`
	BestBlockTime *string           `json:"best_block_time"`
	Execution     *Execution        `json:"execution,omitempty"`
	Errors        map[string]string `json:"errors,omitempty"`
}

// Service reads Blockchair network stats and derives whale and growth signals.
type Service struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *collection.Cache
	probe      ExecutionProbe
}

// Option configures a Service.
type Option func(*Service)

func WithBaseURL(u string) Option {
	return func(s *Service) {
		if u = strings.TrimSpace(u); u != "" {
			s.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithAPIKey(key string) Option {
	return func(s *Service) { s.apiKey = strings.TrimSpace(key) }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Service) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.httpClient.Timeout = d
		}
	}
}

// WithExecutionProbe attaches a live probe to ethereum snapshots.
func WithExecutionProbe(p ExecutionProbe) Option {
	return func(s *Service) { s.probe = p }
}

// NewService builds a Service whose snapshots are cached for ttl (DefaultCacheTTL when zero).
func NewService(ttl time.Duration, opts ...Option) (*Service, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	store, err := collection.NewCache(ttl, collection.WithName("onchain"))
	if err != nil {
		return nil, fmt.Errorf("onchain: create cache: %w", err)
	}
	s := &Service{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		cache:      store,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Snapshot returns the network summary for asset. Unsupported assets fail before any request.
func (s *Service) Snapshot(ctx context.Context, asset string) (*Snapshot, error) {
	network, err := Network(asset)
	if err != nil {
		return nil, err
	}
	v, err := s.cache.Take(cache.OnChainKey(network), func() (any, error) {
		return s.build(ctx, network)
	})
	if err != nil {
		return nil, err
	}
	snap := *v.(*Snapshot)
	snap.Asset = strings.ToLower(strings.TrimSpace(asset))
	return &snap, nil
}

type statsResponse struct {
	Data    networkStats `json:"data"`
	Context statsContext `json:"context"`
}

type networkStats struct {
	MarketCapUSD          *float64         `json:"market_cap_usd"`
	LargestTransaction24h *largestTransfer `json:"largest_transaction_24h"`
	MempoolTPS            *float64         `json:"mempool_tps"`
	MempoolTransactions   *float64         `json:"mempool_transactions"`
	Transactions24h       *float64         `json:"transactions_24h"`
	HodlingAddresses      *int64           `json:"hodling_addresses"`
	BestBlockTime         *string          `json:"best_block_time"`
}

type largestTransfer struct {
	Hash     string   `json:"hash"`
	ValueUSD *float64 `json:"value_usd"`
}

type statsContext struct {
	Time *string `json:"time"`
}

func (s *Service) build(ctx context.Context, network string) (*Snapshot, error) {
	var payload statsResponse
	if err := s.get(ctx, network, &payload); err != nil {
		return nil, err
	}
	stats := payload.Data

	marketCap := deref(stats.MarketCapUSD)
	largest := 0.0
	if stats.LargestTransaction24h != nil {
		largest = deref(stats.LargestTransaction24h.ValueUSD)
	}
	mempoolTx := deref(stats.MempoolTransactions)
	tx24h := deref(stats.Transactions24h)
	var hodlers int64
	if stats.HodlingAddresses != nil {
		hodlers = *stats.HodlingAddresses
	}

	ratio := 0.0
	if marketCap > 0 && largest != 0 {
		ratio = largest / marketCap
	}
	heat := 0.0
	if tx24h != 0 {
		heat = mempoolTx / tx24h * 100
	}

	blockTime := stats.BestBlockTime
	if blockTime == nil || *blockTime == "" {
		blockTime = payload.Context.Time
	}

	snap := &Snapshot{
		Network: network,
		WhaleActivity: WhaleActivity{
			State:                 WhaleState(ratio, largest),
			LargestTransactionUSD: largest,
			MarketCapUSD:          marketCap,
			Ratio:                 indicators.Round(ratio, 6),
			MempoolTPS:            deref(stats.MempoolTPS),
		},
		NetworkGrowth: NetworkGrowth{
			State:               GrowthState(heat),
			MempoolTransactions: mempoolTx,
			Transactions24h:     tx24h,
			HodlingAddresses:    hodlers,
			HeatPct:             indicators.Round(heat, 2),
		},
		BestBlockTime: blockTime,
	}
	if network == "ethereum" && s.probe != nil {
		exec, err := ProbeExecution(ctx, s.probe)
		if err != nil {
			logx.WithContext(ctx).Errorf("onchain: execution probe failed: %v", err)
			snap.Errors = map[string]string{"execution": err.Error()}
		} else {
			snap.Execution = exec
		}
	}
	return snap, nil
}

// WhaleState classifies the largest-transfer to market-cap ratio.
func WhaleState(ratio, largestUSD float64) string {
	switch {
	case ratio > 0.004:
		return "aggressive accumulation"
	case ratio > 0.0015:
		return "steady accumulation"
	case ratio < 0.0003 && largestUSD != 0:
		return "distribution"
	default:
		return "balanced"
	}
}

// GrowthState classifies mempool pressure as a percentage of daily transactions.
func GrowthState(heatPct float64) string {
	switch {
	case heatPct > 40:
		return "network demand is spiking"
	case heatPct > 20:
		return "usage is trending higher"
	case heatPct < 10:
		return "activity is subdued"
	default:
		return "activity is steady"
	}
}

func (s *Service) get(ctx context.Context, network string, out any) error {
	endpoint := fmt.Sprintf("%s/%s/stats", s.baseURL, network)
	if s.apiKey != "" {
		endpoint += "?" + url.Values{"key": []string{s.apiKey}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &market.UpstreamError{Provider: providerName, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &market.UpstreamError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &market.UpstreamError{Provider: providerName, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logx.WithContext(ctx).Errorf("onchain: blockchair request failed network=%s status=%d", network, resp.StatusCode)
		if len(body) > 512 {
			body = body[:512]
		}
		return &market.UpstreamError{Provider: providerName, Status: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &market.UpstreamError{Provider: providerName, Err: fmt.Errorf("invalid json: %w", err)}
	}
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
