// Package svctest builds a ServiceContext backed by in-memory market data and a local upstream
// server, for logic, handler and tool tests.
package svctest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cryptoanalyst-api/internal/alerts"
	cachekeys "cryptoanalyst-api/internal/cache"
	"cryptoanalyst-api/internal/config"
	"cryptoanalyst-api/internal/portfolio"
	"cryptoanalyst-api/internal/recorder"
	"cryptoanalyst-api/internal/store"
	"cryptoanalyst-api/internal/svc"
	"cryptoanalyst-api/pkg/insight"
	"cryptoanalyst-api/pkg/market"
	"cryptoanalyst-api/pkg/market/analytics"
	"cryptoanalyst-api/pkg/market/markettest"
	"cryptoanalyst-api/pkg/news"
	"cryptoanalyst-api/pkg/onchain"
)

// Fixture is a wired ServiceContext plus handles on its fakes.
type Fixture struct {
	Svc      *svc.ServiceContext
	Source   *markettest.Source
	Upstream *httptest.Server
}

var Symbols = markettest.Resolver{Map: map[string]string{"btc": "bitcoin", "eth": "ethereum", "sol": "solana"}}

// New seeds bitcoin, ethereum and solana quotes and serves news, on-chain and fear & greed
// payloads from a local server. The recorder is enabled on a temp sqlite file.
func New(t *testing.T) *Fixture {
	t.Helper()
	src := markettest.New()
	src.SetQuote(market.PriceQuote{Asset: "bitcoin", Price: 60000, Change24h: markettest.Ptr(2.5), MarketCap: markettest.Ptr(1.2e12)})
	src.SetQuote(market.PriceQuote{Asset: "ethereum", Price: 3000, Change24h: markettest.Ptr(-1.0), MarketCap: markettest.Ptr(3.6e11)})
	src.SetQuote(market.PriceQuote{Asset: "solana", Price: 150, Change24h: markettest.Ptr(6.0), MarketCap: markettest.Ptr(7e10)})
	src.TrendingCoins = []market.TrendingCoin{
		{Name: "Bitcoin", Symbol: "BTC", Score: 0},
		{Name: "Solana", Symbol: "SOL", Score: 1},
	}
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for asset, base := range map[string]float64{"bitcoin": 60000, "ethereum": 3000, "solana": 150} {
		points := make([]market.Point, 0, 30)
		for i := 0; i < 30; i++ {
			points = append(points, market.Point{Timestamp: start.Add(time.Duration(i) * 24 * time.Hour).UnixMilli(), Value: base * (1 + float64(i)/100)})
		}
		src.SetChart(asset, points)
	}

	upstream := httptest.NewServer(upstreamMux())
	t.Cleanup(upstream.Close)

	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.Config{DefaultCurrency: "usd", DataStorePath: "agent_state.json", RequestTimeout: 5}
	ttl := cachekeys.NewTTLSet(cfg.TTL)

	an := analytics.NewService(src, Symbols, analytics.Options{})
	newsClient, err := news.NewClient(time.Minute, news.WithBaseURL(upstream.URL+"/news"))
	require.NoError(t, err)
	chain, err := onchain.NewService(time.Minute, onchain.WithBaseURL(upstream.URL+"/chain"))
	require.NoError(t, err)
	gauge, err := insight.NewFearGreedClient(time.Minute, insight.WithFearGreedURL(upstream.URL+"/fng"))
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(dir, cfg.DataStorePath))
	require.NoError(t, err)
	rec, err := recorder.Open(ctx, recorder.DriverSQLite, filepath.Join(dir, "history.db"))
	require.NoError(t, err)

	svcCtx := &svc.ServiceContext{
		Config:    cfg,
		TTL:       ttl,
		Market:    src,
		Analytics: an,
		News:      newsClient,
		OnChain:   chain,
		FearGreed: gauge,
		Insight: insight.NewService(insight.Deps{
			Market:    an,
			News:      newsClient,
			OnChain:   chain,
			FearGreed: gauge,
		}),
		Store:     st,
		Portfolio: portfolio.NewService(st, an),
		Alerts:    alerts.NewService(st, an, alerts.WithRecorder(rec)),
		Recorder:  rec,
	}
	return &Fixture{Svc: svcCtx, Source: src, Upstream: upstream}
}

func upstreamMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/news/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"Data": []map[string]any{
				{"title": "Bitcoin rally extends as ETF inflows surge", "url": "https://news.test/1", "source": "CoinDesk", "published_on": 1714521600, "categories": "BTC|Market", "tags": "BTC|Bitcoin", "body": "bullish momentum"},
				{"title": "Exchange hack hits ethereum holders", "url": "https://news.test/2", "source": "The Block", "published_on": 1714525200, "categories": "ETH", "tags": "ETH|Ethereum", "body": ""},
				{"title": "Bitcoin miners adopt new hardware", "url": "https://news.test/3", "source": "Decrypt", "published_on": 1714528800, "categories": "BTC|Mining", "tags": "BTC", "body": ""},
			},
		})
	})
	mux.HandleFunc("/chain/bitcoin/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"data": map[string]any{
				"market_cap_usd":          1.2e12,
				"largest_transaction_24h": map[string]any{"hash": "abc", "value_usd": 2.5e8},
				"mempool_transactions":    12000,
				"transactions_24h":        350000,
				"hodling_addresses":       52000000,
			},
			"context": map[string]any{"time": "2024-05-01 00:00:00"},
		})
	})
	mux.HandleFunc("/fng", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"data": []map[string]any{{"value": "64", "value_classification": "Greed", "timestamp": "1714521600"}},
		})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
