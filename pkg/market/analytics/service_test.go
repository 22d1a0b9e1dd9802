package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoanalyst-api/pkg/market"
	"cryptoanalyst-api/pkg/market/indicators"
	"cryptoanalyst-api/pkg/market/markettest"
)

var resolver = markettest.Resolver{Map: map[string]string{"btc": "bitcoin", "eth": "ethereum", "sol": "solana"}}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(src *markettest.Source, opts Options) *Service {
	return NewService(src, resolver, opts)
}

func hourly(values ...float64) []market.Point {
	out := make([]market.Point, len(values))
	for i, v := range values {
		out[i] = market.Point{Timestamp: int64(i) * 3_600_000, Value: v}
	}
	return out
}

func TestFundamentalsEmptySeries(t *testing.T) {
	src := markettest.New()
	svc := newTestService(src, Options{})

	snap, err := svc.Fundamentals(context.Background(), "BTC", "USD", 7)
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", snap.Asset)
	assert.Equal(t, "usd", snap.Currency)
	for _, stats := range []indicators.SeriesStats{snap.PriceStats, snap.MarketCapStats, snap.VolumeStats} {
		assert.Nil(t, stats.Min)
		assert.Nil(t, stats.Max)
		assert.Nil(t, stats.Avg)
	}
	assert.Empty(t, snap.Series.Prices)
}

func TestFundamentalsStats(t *testing.T) {
	src := markettest.New()
	src.Charts["bitcoin"] = &market.MarketChart{
		Prices:       hourly(10, 20, 40),
		MarketCaps:   hourly(1000),
		TotalVolumes: hourly(5, 7),
	}
	svc := newTestService(src, Options{})

	snap, err := svc.Fundamentals(context.Background(), "btc", "usd", 3)
	require.NoError(t, err)
	assert.Equal(t, 10.0, *snap.PriceStats.Min)
	assert.Equal(t, 40.0, *snap.PriceStats.Max)
	assert.Equal(t, 23.3333, *snap.PriceStats.Avg)
	assert.Equal(t, 6.0, *snap.VolumeStats.Avg)
	require.Len(t, snap.Series.Prices, 3)
	assert.Equal(t, "1970-01-01T01:00:00Z", snap.Series.Prices[1].Timestamp)
	assert.Equal(t, 3, src.Days["bitcoin"])
}

func TestOverviewPrefersLiveQuote(t *testing.T) {
	src := markettest.New()
	src.SetQuote(market.PriceQuote{Asset: "bitcoin", Price: 101, Change24h: markettest.Ptr(2.5)})
	src.Details["bitcoin"] = &market.CoinDetail{
		ID:     "bitcoin",
		Symbol: "btc",
		Name:   "Bitcoin",
		MarketData: market.CoinMarketData{
			CurrentPrice:             map[string]float64{"usd": 99},
			PriceChangePercentage24h: markettest.Ptr(-1.0),
			MarketCap:                map[string]float64{"usd": 2e12},
			TotalVolume:              map[string]float64{"usd": 3e10},
			MarketCapRank:            markettest.Ptr(1),
			ATH:                      map[string]float64{"usd": 120},
			Sparkline7d:              &market.Sparkline{Price: []float64{1, 2}},
		},
	}
	src.Candles["bitcoin"] = []market.OHLC{{Timestamp: 1, Open: 1, High: 2, Low: 0.5, Close: 1.5}}
	svc := newTestService(src, Options{})

	ov, err := svc.Overview(context.Background(), "BTC", "usd", 0)
	require.NoError(t, err)
	assert.Equal(t, "BTC", ov.Symbol)
	assert.Equal(t, 101.0, *ov.Price)
	assert.Equal(t, 2.5, *ov.Change24h)
	assert.Equal(t, 2e12, *ov.MarketCap, "quote without market cap falls back to detail")
	assert.Equal(t, 3e10, *ov.Volume24h)
	assert.Equal(t, 120.0, *ov.ATHPrice)
	assert.Nil(t, ov.ATLPrice)
	assert.Equal(t, []float64{1, 2}, ov.Sparkline)
	assert.Len(t, ov.OHLCSeries, 1)
	assert.Equal(t, DefaultLookbackDays, src.Days["bitcoin"])
}

func TestOverviewFallsBackToDetail(t *testing.T) {
	src := markettest.New()
	src.Details["ethereum"] = &market.CoinDetail{
		ID: "ethereum", Symbol: "eth", Name: "Ethereum",
		MarketData: market.CoinMarketData{
			CurrentPrice:             map[string]float64{"eur": 3000},
			PriceChangePercentage24h: markettest.Ptr(-1.0),
		},
	}
	svc := newTestService(src, Options{})

	ov, err := svc.Overview(context.Background(), "eth", "EUR", 7)
	require.NoError(t, err)
	assert.Equal(t, 3000.0, *ov.Price)
	assert.Equal(t, -1.0, *ov.Change24h)
	assert.Nil(t, ov.MarketCap)
	assert.NotNil(t, ov.OHLCSeries)
	assert.NotNil(t, ov.Sparkline)
}

func TestOverviewCacheExpiry(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	src := markettest.New()
	src.SetQuote(market.PriceQuote{Asset: "bitcoin", Price: 100})
	svc := newTestService(src, Options{Now: clock.Now})
	ctx := context.Background()

	first, err := svc.Overview(ctx, "btc", "usd", 7)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	second, err := svc.Overview(ctx, "btc", "usd", 7)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, src.CallCount("SimplePrice"))

	clock.Advance(60 * time.Second)
	upstream := &market.UpstreamError{Provider: "coingecko", Status: 429}
	src.Fail(upstream)
	_, err = svc.Overview(ctx, "btc", "usd", 7)
	require.ErrorIs(t, err, upstream)
	assert.True(t, market.IsUpstream(err))
}

func TestOverviewStaleGrace(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	src := markettest.New()
	src.SetQuote(market.PriceQuote{Asset: "bitcoin", Price: 100})
	svc := newTestService(src, Options{Now: clock.Now, MaxStale: 5 * time.Minute})
	ctx := context.Background()

	first, err := svc.Overview(ctx, "btc", "usd", 7)
	require.NoError(t, err)

	clock.Advance(90 * time.Second)
	src.Fail(&market.UpstreamError{Provider: "coingecko", Status: 429})
	stale, err := svc.Overview(ctx, "btc", "usd", 7)
	require.NoError(t, err)
	assert.Same(t, first, stale)

	_, err = svc.Overview(ctx, "btc", "usd", 30)
	require.Error(t, err, "a key never computed has no fallback")
	assert.True(t, market.IsUpstream(err))
}

func TestCompare(t *testing.T) {
	src := markettest.New()
	src.SetQuote(market.PriceQuote{Asset: "bitcoin", Price: 100})
	src.SetQuote(market.PriceQuote{Asset: "ethereum", Price: 40})
	src.SetQuote(market.PriceQuote{Asset: "zero", Price: 0})
	svc := newTestService(src, Options{})

	rows, err := svc.Compare(context.Background(), "BTC", []string{"eth", "zero", "missing"}, "usd")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, Comparison{Base: "bitcoin", Target: "ethereum", BasePrice: markettest.Ptr(100.0), TargetPrice: markettest.Ptr(40.0), Spread: markettest.Ptr(60.0)}, rows[0])
	assert.Nil(t, rows[1].Spread, "zero target price has no spread")
	assert.Equal(t, 0.0, *rows[1].TargetPrice)
	assert.Nil(t, rows[2].TargetPrice)
	assert.Nil(t, rows[2].Spread)

	_, err = svc.Compare(context.Background(), "btc", nil, "usd")
	assert.True(t, market.IsInvalidInput(err))
}

func TestCompareExpiredEntryPropagatesUpstreamFailure(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	src := markettest.New()
	src.SetQuote(market.PriceQuote{Asset: "bitcoin", Price: 100})
	src.SetQuote(market.PriceQuote{Asset: "ethereum", Price: 50})
	svc := newTestService(src, Options{Now: clock.Now})
	ctx := context.Background()

	_, err := svc.Compare(ctx, "btc", []string{"eth"}, "usd")
	require.NoError(t, err)

	clock.Advance(90 * time.Second)
	upstream := &market.UpstreamError{Provider: "coingecko", Status: 503}
	src.Fail(upstream)
	rows, err := svc.Compare(ctx, "btc", []string{"eth"}, "usd")
	require.ErrorIs(t, err, upstream)
	assert.Nil(t, rows)
}

func TestCompareServesStaleWithinGrace(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	src := markettest.New()
	src.SetQuote(market.PriceQuote{Asset: "bitcoin", Price: 100})
	src.SetQuote(market.PriceQuote{Asset: "ethereum", Price: 50})
	svc := newTestService(src, Options{Now: clock.Now, MaxStale: time.Minute})
	ctx := context.Background()

	fresh, err := svc.Compare(ctx, "btc", []string{"eth"}, "usd")
	require.NoError(t, err)

	clock.Advance(90 * time.Second)
	src.Fail(errors.New("boom"))
	stale, err := svc.Compare(ctx, "btc", []string{"eth"}, "usd")
	require.NoError(t, err)
	assert.Equal(t, fresh, stale)
}

func TestNormalizedHistory(t *testing.T) {
	src := markettest.New()
	src.SetChart("bitcoin", hourly(100, 110, 95))
	src.SetChart("zero-start", hourly(0, 2))
	svc := newTestService(src, Options{})

	out, err := svc.NormalizedHistory(context.Background(), []string{"bitcoin", "empty", "zero-start"}, "usd", 0)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "bitcoin", out[0].Asset)
	assert.Equal(t, []float64{0, 10, -5}, seriesValues(out[0].Series))
	assert.Equal(t, DefaultHistoryDays, src.Days["bitcoin"])

	assert.Equal(t, "zero-start", out[1].Asset)
	assert.Equal(t, []float64{0, 0}, seriesValues(out[1].Series), "a zero base still starts at 0")
}

func TestNormalizedHistoryPropagatesUpstream(t *testing.T) {
	src := markettest.New()
	src.Fail(&market.UpstreamError{Provider: "coingecko", Status: 500})
	svc := newTestService(src, Options{})

	_, err := svc.NormalizedHistory(context.Background(), []string{"bitcoin"}, "usd", 30)
	assert.True(t, market.IsUpstream(err))
}

func TestGlobalSnapshot(t *testing.T) {
	src := markettest.New()
	src.Global = &market.GlobalData{
		TotalMarketCap:                  map[string]float64{"usd": 2.5e12},
		TotalVolume:                     map[string]float64{"usd": 9e10},
		MarketCapPercentage:             map[string]float64{"btc": 52.1, "eth": 17.3},
		MarketCapChangePercentage24hUSD: markettest.Ptr(1.4),
		ActiveCryptocurrencies:          markettest.Ptr(12000),
	}
	svc := newTestService(src, Options{})

	snap, err := svc.GlobalSnapshot(context.Background(), "usd")
	require.NoError(t, err)
	assert.Equal(t, 2.5e12, snap.MarketCap)
	assert.Equal(t, 9e10, snap.Volume24h)
	assert.Equal(t, 52.1, *snap.BTCDominance)
	assert.Equal(t, 17.3, *snap.ETHDominance)
	assert.Equal(t, 12000, *snap.ActiveCryptocurrencies)

	eur, err := svc.GlobalSnapshot(context.Background(), "eur")
	require.NoError(t, err)
	assert.Zero(t, eur.MarketCap)
}

func TestQuotesResolvesSymbols(t *testing.T) {
	src := markettest.New()
	src.SetQuote(market.PriceQuote{Asset: "solana", Price: 150})
	svc := newTestService(src, Options{})

	quotes, err := svc.Quotes(context.Background(), []string{" SOL "}, "")
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "usd", quotes[0].Currency)

	_, err = svc.Quotes(context.Background(), []string{" "}, "usd")
	assert.ErrorIs(t, err, market.ErrInvalidInput)
}

func seriesValues(points []SeriesPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}
