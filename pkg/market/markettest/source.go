// Package markettest provides an in-memory market.DataSource for tests.
package markettest

import (
	"context"
	"strings"
	"sync"

	"cryptoanalyst-api/pkg/market"
)

// Source is a scriptable market.DataSource. Zero values answer with empty data.
type Source struct {
	mu sync.Mutex

	Quotes        map[string]market.PriceQuote
	Charts        map[string]*market.MarketChart
	Candles       map[string][]market.OHLC
	Details       map[string]*market.CoinDetail
	Coins         []market.CoinListing
	Global        *market.GlobalData
	Rows          []market.MarketRow
	TrendingCoins []market.TrendingCoin

	// Err fails every call when set; ErrFor fails calls for one method name.
	Err    error
	ErrFor map[string]error

	Calls map[string]int
	Days  map[string]int
}

// New returns an empty Source.
func New() *Source {
	return &Source{
		Quotes:  map[string]market.PriceQuote{},
		Charts:  map[string]*market.MarketChart{},
		Candles: map[string][]market.OHLC{},
		Details: map[string]*market.CoinDetail{},
		ErrFor:  map[string]error{},
		Calls:   map[string]int{},
		Days:    map[string]int{},
	}
}

// Fail sets (or clears with nil) the error returned by every call.
func (s *Source) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}

// FailMethod sets the error returned by one method.
func (s *Source) FailMethod(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ErrFor[method] = err
}

// CallCount reports how often method was invoked.
func (s *Source) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls[method]
}

// SetChart installs the price series for an asset.
func (s *Source) SetChart(asset string, prices []market.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Charts[asset] = &market.MarketChart{Prices: prices}
}

// SetQuote installs a quote keyed by its asset.
func (s *Source) SetQuote(q market.PriceQuote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Quotes[q.Asset] = q
}

func (s *Source) enter(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls[method]++
	if err, ok := s.ErrFor[method]; ok && err != nil {
		return err
	}
	return s.Err
}

func (s *Source) SimplePrice(_ context.Context, assets []string, currency string) ([]market.PriceQuote, error) {
	if err := s.enter("SimplePrice"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]market.PriceQuote, 0, len(assets))
	seen := map[string]bool{}
	for _, a := range assets {
		if seen[a] {
			continue
		}
		seen[a] = true
		if q, ok := s.Quotes[a]; ok {
			q.Currency = currency
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *Source) Trending(context.Context) ([]market.TrendingCoin, error) {
	if err := s.enter("Trending"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]market.TrendingCoin(nil), s.TrendingCoins...), nil
}

func (s *Source) MarketChart(_ context.Context, asset, _ string, days int) (*market.MarketChart, error) {
	if err := s.enter("MarketChart"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Days[asset] = days
	if chart, ok := s.Charts[asset]; ok {
		cp := *chart
		return &cp, nil
	}
	return &market.MarketChart{}, nil
}

func (s *Source) OHLC(_ context.Context, asset, _ string, _ int) ([]market.OHLC, error) {
	if err := s.enter("OHLC"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]market.OHLC(nil), s.Candles[asset]...), nil
}

func (s *Source) ListCoins(context.Context) ([]market.CoinListing, error) {
	if err := s.enter("ListCoins"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]market.CoinListing(nil), s.Coins...), nil
}

func (s *Source) CoinDetail(_ context.Context, asset string) (*market.CoinDetail, error) {
	if err := s.enter("CoinDetail"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.Details[asset]; ok {
		cp := *d
		return &cp, nil
	}
	return &market.CoinDetail{ID: asset}, nil
}

func (s *Source) GlobalData(context.Context) (*market.GlobalData, error) {
	if err := s.enter("GlobalData"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Global == nil {
		return &market.GlobalData{}, nil
	}
	cp := *s.Global
	return &cp, nil
}

func (s *Source) Markets(_ context.Context, _ string, perPage, _ int) ([]market.MarketRow, error) {
	if err := s.enter("Markets"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.Rows
	if perPage > 0 && len(rows) > perPage {
		rows = rows[:perPage]
	}
	return append([]market.MarketRow(nil), rows...), nil
}

// Resolver is a static resolver: overrides first, everything else lowercased.
type Resolver struct {
	Map map[string]string
}

func (r Resolver) ResolveOne(_ context.Context, symbol string) (string, error) {
	ids, err := r.Resolve(context.Background(), []string{symbol})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

func (r Resolver) Resolve(_ context.Context, symbols []string) ([]string, error) {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = normalise(s)
		if s == "" {
			continue
		}
		if id, ok := r.Map[s]; ok {
			s = id
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, market.InvalidInputf("at least one asset symbol is required")
	}
	return out, nil
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

func normalise(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
