package analytics

import (
	"time"

	"cryptoanalyst-api/pkg/market"
	"cryptoanalyst-api/pkg/market/indicators"
)

// SeriesPoint is a timestamped value with an ISO-8601 UTC timestamp.
type SeriesPoint struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// FundamentalSeries carries the raw series behind a fundamentals snapshot.
type FundamentalSeries struct {
	Prices     []SeriesPoint `json:"prices"`
	MarketCaps []SeriesPoint `json:"market_caps"`
	Volumes    []SeriesPoint `json:"volumes"`
}

// Fundamentals summarises price, market cap and volume over a lookback.
type Fundamentals struct {
	Asset          string                 `json:"asset"`
	Currency       string                 `json:"currency"`
	PriceStats     indicators.SeriesStats `json:"price_stats"`
	MarketCapStats indicators.SeriesStats `json:"market_cap_stats"`
	VolumeStats    indicators.SeriesStats `json:"volume_stats"`
	LastUpdated    string                 `json:"last_updated"`
	Series         FundamentalSeries      `json:"series"`
}

// Overview merges a live quote, coin metadata, fundamentals and provider candles.
type Overview struct {
	Asset             string            `json:"asset"`
	Symbol            string            `json:"symbol"`
	Name              string            `json:"name"`
	Currency          string            `json:"currency"`
	Price             *float64          `json:"price"`
	Change24h         *float64          `json:"change_24h"`
	MarketCap         *float64          `json:"market_cap"`
	Volume24h         *float64          `json:"volume_24h"`
	MarketCapRank     *int              `json:"market_cap_rank"`
	CirculatingSupply *float64          `json:"circulating_supply"`
	TotalSupply       *float64          `json:"total_supply"`
	MaxSupply         *float64          `json:"max_supply"`
	ATHPrice          *float64          `json:"ath_price"`
	ATHChangePct      *float64          `json:"ath_change_pct"`
	ATLPrice          *float64          `json:"atl_price"`
	ATLChangePct      *float64          `json:"atl_change_pct"`
	LastUpdated       *string           `json:"last_updated"`
	Fundamentals      *Fundamentals     `json:"fundamentals"`
	Sparkline         []float64         `json:"sparkline"`
	Series            FundamentalSeries `json:"series"`
	OHLCSeries        []market.OHLC     `json:"ohlc_series"`
}

// Comparison is one base/target price pair.
type Comparison struct {
	Base        string   `json:"base"`
	Target      string   `json:"target"`
	BasePrice   *float64 `json:"base_price"`
	TargetPrice *float64 `json:"target_price"`
	Spread      *float64 `json:"spread"`
}

// NormalizedSeries is an asset's price history rebased to 0% at its first point.
type NormalizedSeries struct {
	Asset  string        `json:"asset"`
	Series []SeriesPoint `json:"series"`
}

// GlobalSnapshot is the currency-scoped view of aggregate market stats.
type GlobalSnapshot struct {
	Currency               string   `json:"currency"`
	MarketCap              float64  `json:"market_cap"`
	Volume24h              float64  `json:"volume_24h"`
	MarketCapChange24hPct  *float64 `json:"market_cap_change_24h_pct"`
	ActiveCryptocurrencies *int     `json:"active_cryptocurrencies"`
	BTCDominance           *float64 `json:"btc_dominance"`
	ETHDominance           *float64 `json:"eth_dominance"`
}

// CandlePoint is a rendered candle.
type CandlePoint struct {
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
}

// TechnicalAnalysis is the result of one indicator run.
type TechnicalAnalysis struct {
	Asset          string        `json:"asset"`
	Currency       string        `json:"currency"`
	Indicator      string        `json:"indicator"`
	Timeframe      string        `json:"timeframe"`
	Value          *float64      `json:"value"`
	State          string        `json:"state"`
	Interpretation string        `json:"interpretation"`
	Series         []CandlePoint `json:"series"`
}

// ISOTime renders an epoch-ms timestamp as RFC 3339 in UTC.
func ISOTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

func toSeries(points []market.Point) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(points))
	for _, p := range points {
		out = append(out, SeriesPoint{Timestamp: ISOTime(p.Timestamp), Value: p.Value})
	}
	return out
}

func values(points []market.Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}
