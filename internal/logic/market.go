package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoanalyst-api/internal/svc"
	"cryptoanalyst-api/internal/types"
	"cryptoanalyst-api/pkg/insight"
	"cryptoanalyst-api/pkg/market"
	"cryptoanalyst-api/pkg/market/analytics"
	"cryptoanalyst-api/pkg/news"
	"cryptoanalyst-api/pkg/onchain"
)

type common struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// MarketLogic serves the public market operations.
type MarketLogic struct {
	common
}

func NewMarketLogic(ctx context.Context, svcCtx *svc.ServiceContext) *MarketLogic {
	return &MarketLogic{common{Logger: logx.WithContext(ctx), ctx: ctx, svcCtx: svcCtx}}
}

func (l *MarketLogic) Overview(asset, currency string, lookbackDays int) (*analytics.Overview, error) {
	asset, err := validAsset(asset, 1)
	if err != nil {
		return nil, err
	}
	if currency, err = l.currency(currency); err != nil {
		return nil, err
	}
	if lookbackDays == 0 {
		lookbackDays = analytics.DefaultLookbackDays
	}
	if err := checkRange("lookback_days", lookbackDays, minLookbackDays, maxLookbackDays); err != nil {
		return nil, err
	}
	return l.svcCtx.Analytics.Overview(l.ctx, asset, currency, lookbackDays)
}

func (l *MarketLogic) Fundamentals(asset, currency string, lookbackDays int) (*analytics.Fundamentals, error) {
	asset, err := validAsset(asset, 1)
	if err != nil {
		return nil, err
	}
	if currency, err = l.currency(currency); err != nil {
		return nil, err
	}
	if lookbackDays == 0 {
		lookbackDays = analytics.DefaultLookbackDays
	}
	if err := checkRange("lookback_days", lookbackDays, minLookbackDays, maxLookbackDays); err != nil {
		return nil, err
	}
	return l.svcCtx.Analytics.Fundamentals(l.ctx, asset, currency, lookbackDays)
}

// Trending returns at most limit entries; zero means the dashboard default.
func (l *MarketLogic) Trending(limit int) (*types.TrendingResponse, error) {
	coins, err := l.svcCtx.Analytics.Trending(l.ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = maxTrendingEntries
	}
	if len(coins) > limit {
		coins = coins[:limit]
	}
	if coins == nil {
		coins = []market.TrendingCoin{}
	}
	return &types.TrendingResponse{Trending: coins}, nil
}

func (l *MarketLogic) Quotes(assets []string, currency string) (*types.QuotesResponse, error) {
	currency, err := l.currency(currency)
	if err != nil {
		return nil, err
	}
	quotes, err := l.svcCtx.Analytics.Quotes(l.ctx, assets, currency)
	if err != nil {
		return nil, err
	}
	l.Infof("quotes served assets=%d", len(quotes))
	return &types.QuotesResponse{Quotes: quotes, Currency: currency}, nil
}

// Compare prices the base against up to ten unique targets.
func (l *MarketLogic) Compare(base string, targets []string, currency string) (*types.CompareResponse, error) {
	base, err := validAsset(base, 1)
	if err != nil {
		return nil, err
	}
	if currency, err = l.currency(currency); err != nil {
		return nil, err
	}
	unique := uniqueSymbols(targets, maxCompareTargets)
	if len(unique) == 0 {
		return nil, market.InvalidInputf("at least one target symbol is required")
	}
	rows, err := l.svcCtx.Analytics.Compare(l.ctx, base, unique, currency)
	if err != nil {
		return nil, err
	}
	return &types.CompareResponse{Base: base, Currency: currency, Comparisons: rows}, nil
}

func (l *MarketLogic) AdvancedCompare(assets []string, currency string) (*insight.AdvancedComparison, error) {
	currency, err := l.currency(currency)
	if err != nil {
		return nil, err
	}
	return l.svcCtx.Insight.AdvancedCompare(l.ctx, assets, currency)
}

func (l *MarketLogic) Pulse(currency string) (*insight.Pulse, error) {
	currency, err := l.currency(currency)
	if err != nil {
		return nil, err
	}
	return l.svcCtx.Insight.Pulse(l.ctx, currency)
}

func (l *MarketLogic) AssetIntel(asset, currency string) (*insight.Intel, error) {
	asset, err := validAsset(asset, 1)
	if err != nil {
		return nil, err
	}
	if currency, err = l.currency(currency); err != nil {
		return nil, err
	}
	return l.svcCtx.Insight.AssetIntel(l.ctx, asset, currency)
}

// News returns headlines tagged with asset plus their keyword sentiment.
func (l *MarketLogic) News(asset string, limit int) (*types.NewsResponse, error) {
	asset, err := validAsset(asset, 1)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = news.DefaultAssetNews
	}
	if err := checkRange("limit", limit, minNewsLimit, maxNewsLimit); err != nil {
		return nil, err
	}
	items, err := l.svcCtx.News.ForAsset(l.ctx, asset, limit)
	if err != nil {
		return nil, err
	}
	return &types.NewsResponse{Asset: asset, News: insight.Headlines(items), Sentiment: news.Score(items)}, nil
}

func (l *MarketLogic) OnChain(asset string) (*onchain.Snapshot, error) {
	asset, err := validAsset(asset, 1)
	if err != nil {
		return nil, err
	}
	return l.svcCtx.OnChain.Snapshot(l.ctx, asset)
}

func (l *MarketLogic) Technical(asset, indicator, timeframe, currency string) (*analytics.TechnicalAnalysis, error) {
	asset, err := validAsset(asset, 1)
	if err != nil {
		return nil, err
	}
	if currency, err = l.currency(currency); err != nil {
		return nil, err
	}
	return l.svcCtx.Analytics.Technical(l.ctx, asset, currency, indicator, timeframe, 0)
}

func (l *MarketLogic) Resolve(asset string) (*types.ResolveResponse, error) {
	asset, err := validAsset(asset, 1)
	if err != nil {
		return nil, err
	}
	id, err := l.svcCtx.Analytics.ResolveSymbol(l.ctx, asset)
	if err != nil {
		return nil, err
	}
	return &types.ResolveResponse{Asset: asset, ID: id}, nil
}
