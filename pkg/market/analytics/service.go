package analytics

import (
	"context"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoanalyst-api/pkg/market"
	"cryptoanalyst-api/pkg/market/cache"
)

const (
	DefaultOverviewTTL   = 60 * time.Second
	DefaultComparisonTTL = 60 * time.Second
	DefaultLookbackDays  = 7
	DefaultHistoryDays   = 90
)

// Resolver maps user supplied tickers to canonical asset ids.
type Resolver interface {
	Resolve(ctx context.Context, symbols []string) ([]string, error)
	ResolveOne(ctx context.Context, symbol string) (string, error)
}

// Service derives analytics from a market DataSource. Overview and comparison results are
// cached with stale-if-error fallback.
type Service struct {
	source      market.DataSource
	resolver    Resolver
	now         func() time.Time
	overviews   *cache.Cache[*Overview]
	comparisons *cache.Cache[[]Comparison]
}

// Options tunes cache behaviour.
type Options struct {
	OverviewTTL   time.Duration
	ComparisonTTL time.Duration
	MaxStale      time.Duration
	Now           func() time.Time
}

// NewService wires a Service. Zero option values fall back to the defaults.
func NewService(source market.DataSource, resolver Resolver, opts Options) *Service {
	if opts.OverviewTTL <= 0 {
		opts.OverviewTTL = DefaultOverviewTTL
	}
	if opts.ComparisonTTL <= 0 {
		opts.ComparisonTTL = DefaultComparisonTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cacheOpts := []cache.Option{cache.WithClock(opts.Now), cache.WithMaxStale(opts.MaxStale)}
	return &Service{
		source:      source,
		resolver:    resolver,
		now:         opts.Now,
		overviews:   cache.New[*Overview]("overview", opts.OverviewTTL, cacheOpts...),
		comparisons: cache.New[[]Comparison]("comparison", opts.ComparisonTTL, cacheOpts...),
	}
}

// Source exposes the underlying data source for composites built on top of the service.
func (s *Service) Source() market.DataSource {
	return s.source
}

// ResolveSymbol resolves one ticker to its canonical id.
func (s *Service) ResolveSymbol(ctx context.Context, asset string) (string, error) {
	return s.resolver.ResolveOne(ctx, asset)
}

// Quotes resolves the assets and fetches their live quotes.
func (s *Service) Quotes(ctx context.Context, assets []string, currency string) ([]market.PriceQuote, error) {
	ids, err := s.resolver.Resolve(ctx, assets)
	if err != nil {
		return nil, err
	}
	currency = normaliseCurrency(currency)
	logx.WithContext(ctx).Infof("analytics: quotes assets=%v currency=%s", ids, currency)
	return s.source.SimplePrice(ctx, ids, currency)
}

// Trending returns the provider's trending list.
func (s *Service) Trending(ctx context.Context) ([]market.TrendingCoin, error) {
	return s.source.Trending(ctx)
}

// Markets returns one page of the market board.
func (s *Service) Markets(ctx context.Context, currency string, perPage int) ([]market.MarketRow, error) {
	return s.source.Markets(ctx, normaliseCurrency(currency), perPage, 1)
}

// GlobalSnapshot projects aggregate market statistics onto currency.
func (s *Service) GlobalSnapshot(ctx context.Context, currency string) (*GlobalSnapshot, error) {
	currency = normaliseCurrency(currency)
	data, err := s.source.GlobalData(ctx)
	if err != nil {
		return nil, err
	}
	snap := &GlobalSnapshot{
		Currency:               currency,
		MarketCapChange24hPct:  data.MarketCapChangePercentage24hUSD,
		ActiveCryptocurrencies: data.ActiveCryptocurrencies,
		BTCDominance:           market.Lookup(data.MarketCapPercentage, "btc"),
		ETHDominance:           market.Lookup(data.MarketCapPercentage, "eth"),
	}
	if v := market.Lookup(data.TotalMarketCap, currency); v != nil {
		snap.MarketCap = *v
	}
	if v := market.Lookup(data.TotalVolume, currency); v != nil {
		snap.Volume24h = *v
	}
	return snap, nil
}

// Compare prices every target against the base. Spread is set only when both prices are known
// and the target price is non-zero.
func (s *Service) Compare(ctx context.Context, base string, targets []string, currency string) ([]Comparison, error) {
	ids, err := s.resolver.Resolve(ctx, append([]string{base}, targets...))
	if err != nil {
		return nil, err
	}
	if len(ids) < 2 {
		return nil, market.InvalidInputf("at least one comparison target is required")
	}
	currency = normaliseCurrency(currency)
	baseID, targetIDs := ids[0], ids[1:]
	key := cache.ComparisonKey(baseID, targetIDs, currency)

	return s.comparisons.GetOrCompute(ctx, key, func(ctx context.Context) ([]Comparison, error) {
		logx.WithContext(ctx).Infof("analytics: comparing base=%s targets=%v currency=%s", baseID, targetIDs, currency)
		quotes, err := s.source.SimplePrice(ctx, ids, currency)
		if err != nil {
			return nil, err
		}
		byAsset := quoteIndex(quotes)
		baseQuote, hasBase := byAsset[baseID]
		rows := make([]Comparison, 0, len(targetIDs))
		for _, target := range targetIDs {
			row := Comparison{Base: baseID, Target: target}
			if hasBase {
				row.BasePrice = floatPtr(baseQuote.Price)
			}
			if tq, ok := byAsset[target]; ok {
				row.TargetPrice = floatPtr(tq.Price)
				if hasBase && tq.Price != 0 {
					row.Spread = floatPtr(baseQuote.Price - tq.Price)
				}
			}
			rows = append(rows, row)
		}
		return rows, nil
	})
}

// PriceHistory returns the raw price series of a canonical id.
func (s *Service) PriceHistory(ctx context.Context, asset, currency string, days int) ([]market.Point, error) {
	chart, err := s.source.MarketChart(ctx, asset, normaliseCurrency(currency), days)
	if err != nil {
		return nil, err
	}
	return chart.Prices, nil
}

func quoteIndex(quotes []market.PriceQuote) map[string]market.PriceQuote {
	out := make(map[string]market.PriceQuote, len(quotes))
	for _, q := range quotes {
		out[q.Asset] = q
	}
	return out
}

func normaliseCurrency(currency string) string {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return "usd"
	}
	return currency
}

func floatPtr(v float64) *float64 { return &v }
