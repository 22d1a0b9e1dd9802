package analytics

import (
	"context"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoanalyst-api/pkg/market"
	"cryptoanalyst-api/pkg/market/cache"
	"cryptoanalyst-api/pkg/market/indicators"
)

// Fundamentals computes min/max/avg over the price, market cap and volume series of the lookback.
func (s *Service) Fundamentals(ctx context.Context, asset, currency string, lookbackDays int) (*Fundamentals, error) {
	id, err := s.resolver.ResolveOne(ctx, asset)
	if err != nil {
		return nil, err
	}
	return s.fundamentals(ctx, id, normaliseCurrency(currency), lookbackDays)
}

func (s *Service) fundamentals(ctx context.Context, id, currency string, lookbackDays int) (*Fundamentals, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	chart, err := s.source.MarketChart(ctx, id, currency, lookbackDays)
	if err != nil {
		return nil, err
	}
	logx.WithContext(ctx).Infof("analytics: fundamentals asset=%s currency=%s lookback=%d", id, currency, lookbackDays)
	return &Fundamentals{
		Asset:          id,
		Currency:       currency,
		PriceStats:     indicators.Stats(values(chart.Prices)),
		MarketCapStats: indicators.Stats(values(chart.MarketCaps)),
		VolumeStats:    indicators.Stats(values(chart.TotalVolumes)),
		LastUpdated:    s.now().UTC().Format(time.RFC3339Nano),
		Series: FundamentalSeries{
			Prices:     toSeries(chart.Prices),
			MarketCaps: toSeries(chart.MarketCaps),
			Volumes:    toSeries(chart.TotalVolumes),
		},
	}, nil
}

// Overview assembles the asset overview, cached per (asset, currency, lookback).
// Price, change and market cap come from the live quote and fall back to coin detail field by field.
func (s *Service) Overview(ctx context.Context, asset, currency string, lookbackDays int) (*Overview, error) {
	id, err := s.resolver.ResolveOne(ctx, asset)
	if err != nil {
		return nil, err
	}
	currency = normaliseCurrency(currency)
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	key := cache.OverviewKey(id, currency, lookbackDays)
	return s.overviews.GetOrCompute(ctx, key, func(ctx context.Context) (*Overview, error) {
		return s.buildOverview(ctx, id, currency, lookbackDays)
	})
}

func (s *Service) buildOverview(ctx context.Context, id, currency string, lookbackDays int) (*Overview, error) {
	logx.WithContext(ctx).Infof("analytics: building overview asset=%s currency=%s", id, currency)
	quotes, err := s.source.SimplePrice(ctx, []string{id}, currency)
	if err != nil {
		return nil, err
	}
	fundamentals, err := s.fundamentals(ctx, id, currency, lookbackDays)
	if err != nil {
		return nil, err
	}
	detail, err := s.source.CoinDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	ohlc, err := s.source.OHLC(ctx, id, currency, lookbackDays)
	if err != nil {
		return nil, err
	}
	if ohlc == nil {
		ohlc = []market.OHLC{}
	}

	md := detail.MarketData
	out := &Overview{
		Asset:             id,
		Symbol:            strings.ToUpper(detail.Symbol),
		Name:              detail.Name,
		Currency:          currency,
		Price:             market.Lookup(md.CurrentPrice, currency),
		Change24h:         md.PriceChangePercentage24h,
		MarketCap:         market.Lookup(md.MarketCap, currency),
		Volume24h:         market.Lookup(md.TotalVolume, currency),
		MarketCapRank:     md.MarketCapRank,
		CirculatingSupply: md.CirculatingSupply,
		TotalSupply:       md.TotalSupply,
		MaxSupply:         md.MaxSupply,
		ATHPrice:          market.Lookup(md.ATH, currency),
		ATHChangePct:      market.Lookup(md.ATHChangePercentage, currency),
		ATLPrice:          market.Lookup(md.ATL, currency),
		ATLChangePct:      market.Lookup(md.ATLChangePercentage, currency),
		LastUpdated:       detail.LastUpdated,
		Fundamentals:      fundamentals,
		Sparkline:         []float64{},
		Series:            fundamentals.Series,
		OHLCSeries:        ohlc,
	}
	if md.Sparkline7d != nil && md.Sparkline7d.Price != nil {
		out.Sparkline = md.Sparkline7d.Price
	}
	if len(quotes) > 0 {
		q := quotes[0]
		out.Price = floatPtr(q.Price)
		if q.Change24h != nil {
			out.Change24h = q.Change24h
		}
		if q.MarketCap != nil {
			out.MarketCap = q.MarketCap
		}
	}
	return out, nil
}

// NormalizedHistory rebases each asset's price series to 0% at its first point. Assets are
// canonical ids; assets without history are dropped. A series starting at zero has no
// percentage base and is reported flat at 0.
func (s *Service) NormalizedHistory(ctx context.Context, assets []string, currency string, days int) ([]NormalizedSeries, error) {
	currency = normaliseCurrency(currency)
	if days <= 0 {
		days = DefaultHistoryDays
	}
	out := make([]NormalizedSeries, 0, len(assets))
	for _, asset := range assets {
		chart, err := s.source.MarketChart(ctx, asset, currency, days)
		if err != nil {
			return nil, err
		}
		if len(chart.Prices) == 0 {
			continue
		}
		base := chart.Prices[0].Value
		series := make([]SeriesPoint, 0, len(chart.Prices))
		for _, p := range chart.Prices {
			var pct float64
			if base != 0 {
				pct = indicators.Round((p.Value-base)/base*100, 2)
			}
			series = append(series, SeriesPoint{Timestamp: ISOTime(p.Timestamp), Value: pct})
		}
		out = append(out, NormalizedSeries{Asset: asset, Series: series})
	}
	return out, nil
}
