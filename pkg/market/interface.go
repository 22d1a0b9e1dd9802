package market

import (
	"context"
	"encoding/json"
	"fmt"
)

// DataSource exposes provider-agnostic crypto market data.
type DataSource interface {
	// SimplePrice returns the latest quote for each priced asset id, in request order.
	SimplePrice(ctx context.Context, assets []string, currency string) ([]PriceQuote, error)
	// Trending returns the provider's trending search list.
	Trending(ctx context.Context) ([]TrendingCoin, error)
	// MarketChart returns price, market cap and volume series covering the last days.
	MarketChart(ctx context.Context, asset, currency string, days int) (*MarketChart, error)
	// OHLC returns provider-built candles covering the last days.
	OHLC(ctx context.Context, asset, currency string, days int) ([]OHLC, error)
	// ListCoins returns every listed coin id with its ticker.
	ListCoins(ctx context.Context) ([]CoinListing, error)
	// CoinDetail returns metadata and nested market data for a coin id.
	CoinDetail(ctx context.Context, asset string) (*CoinDetail, error)
	// GlobalData returns aggregate market statistics.
	GlobalData(ctx context.Context) (*GlobalData, error)
	// Markets returns one page of the market-cap ordered board.
	Markets(ctx context.Context, currency string, perPage, page int) ([]MarketRow, error)
}

// PriceQuote is a point-in-time quote for one asset.
type PriceQuote struct {
	Asset     string   `json:"asset"`
	Currency  string   `json:"currency"`
	Price     float64  `json:"price"`
	Change24h *float64 `json:"change_24h"`
	MarketCap *float64 `json:"market_cap"`
}

// TrendingCoin is one entry of the trending list.
type TrendingCoin struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Score  int    `json:"score"`
	Slug   string `json:"slug"`
}

// Point is an [epoch_ms, value] pair.
type Point struct {
	Timestamp int64
	Value     float64
}

// UnmarshalJSON decodes the provider's two-element array form. Null values decode as zero.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 2 {
		return fmt.Errorf("market: point needs 2 elements, got %d", len(raw))
	}
	if raw[0] != nil {
		p.Timestamp = int64(*raw[0])
	}
	if raw[1] != nil {
		p.Value = *raw[1]
	}
	return nil
}

// MarshalJSON encodes the point back into array form.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{float64(p.Timestamp), p.Value})
}

// MarketChart bundles the three series returned by a market chart request.
type MarketChart struct {
	Prices       []Point `json:"prices"`
	MarketCaps   []Point `json:"market_caps"`
	TotalVolumes []Point `json:"total_volumes"`
}

// OHLC is a provider-built candle.
type OHLC struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
}

// UnmarshalJSON decodes the provider's [ts, o, h, l, c] form.
func (o *OHLC) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 5 {
		return fmt.Errorf("market: ohlc needs 5 elements, got %d", len(raw))
	}
	o.Timestamp = int64(raw[0])
	o.Open, o.High, o.Low, o.Close = raw[1], raw[2], raw[3], raw[4]
	return nil
}

// CoinListing maps a canonical id to its ticker.
type CoinListing struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// CoinDetail carries coin metadata and currency-keyed market data.
type CoinDetail struct {
	ID          string         `json:"id"`
	Symbol      string         `json:"symbol"`
	Name        string         `json:"name"`
	LastUpdated *string        `json:"last_updated"`
	MarketData  CoinMarketData `json:"market_data"`
}

// CoinMarketData is the nested market_data block of a coin detail.
type CoinMarketData struct {
	CurrentPrice             map[string]float64 `json:"current_price"`
	PriceChangePercentage24h *float64           `json:"price_change_percentage_24h"`
	MarketCap                map[string]float64 `json:"market_cap"`
	TotalVolume              map[string]float64 `json:"total_volume"`
	MarketCapRank            *int               `json:"market_cap_rank"`
	CirculatingSupply        *float64           `json:"circulating_supply"`
	TotalSupply              *float64           `json:"total_supply"`
	MaxSupply                *float64           `json:"max_supply"`
	ATH                      map[string]float64 `json:"ath"`
	ATHChangePercentage      map[string]float64 `json:"ath_change_percentage"`
	ATL                      map[string]float64 `json:"atl"`
	ATLChangePercentage      map[string]float64 `json:"atl_change_percentage"`
	Sparkline7d              *Sparkline         `json:"sparkline_7d"`
}

// Sparkline holds a compact price history.
type Sparkline struct {
	Price []float64 `json:"price"`
}

// Lookup returns the currency entry of a currency-keyed map.
func Lookup(values map[string]float64, currency string) *float64 {
	if values == nil {
		return nil
	}
	v, ok := values[currency]
	if !ok {
		return nil
	}
	return &v
}

// GlobalData is the aggregate statistics block.
type GlobalData struct {
	TotalMarketCap                  map[string]float64 `json:"total_market_cap"`
	TotalVolume                     map[string]float64 `json:"total_volume"`
	MarketCapPercentage             map[string]float64 `json:"market_cap_percentage"`
	MarketCapChangePercentage24hUSD *float64           `json:"market_cap_change_percentage_24h_usd"`
	ActiveCryptocurrencies          *int               `json:"active_cryptocurrencies"`
}

// MarketRow is one row of the markets board.
type MarketRow struct {
	ID                                 string   `json:"id"`
	Symbol                             string   `json:"symbol"`
	Name                               string   `json:"name"`
	CurrentPrice                       *float64 `json:"current_price"`
	MarketCap                          *float64 `json:"market_cap"`
	MarketCapRank                      *int     `json:"market_cap_rank"`
	TotalVolume                        *float64 `json:"total_volume"`
	PriceChangePercentage1hInCurrency  *float64 `json:"price_change_percentage_1h_in_currency"`
	PriceChangePercentage24hInCurrency *float64 `json:"price_change_percentage_24h_in_currency"`
	PriceChangePercentage7dInCurrency  *float64 `json:"price_change_percentage_7d_in_currency"`
}

// Change24h returns the 24h change or zero when absent.
func (r MarketRow) Change24h() float64 {
	if r.PriceChangePercentage24hInCurrency == nil {
		return 0
	}
	return *r.PriceChangePercentage24hInCurrency
}
