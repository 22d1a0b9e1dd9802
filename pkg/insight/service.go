package insight

import (
	"context"

	"cryptoanalyst-api/pkg/market"
	"cryptoanalyst-api/pkg/market/analytics"
	"cryptoanalyst-api/pkg/news"
	"cryptoanalyst-api/pkg/onchain"
)

// MarketReader is the analytics surface the composites read from.
type MarketReader interface {
	ResolveSymbol(ctx context.Context, asset string) (string, error)
	Markets(ctx context.Context, currency string, perPage int) ([]market.MarketRow, error)
	GlobalSnapshot(ctx context.Context, currency string) (*analytics.GlobalSnapshot, error)
	Overview(ctx context.Context, asset, currency string, lookbackDays int) (*analytics.Overview, error)
	NormalizedHistory(ctx context.Context, assets []string, currency string, days int) ([]analytics.NormalizedSeries, error)
}

// NewsReader fetches headlines.
type NewsReader interface {
	Fetch(ctx context.Context, q news.Query) ([]news.Item, error)
	ForAsset(ctx context.Context, asset string, limit int) ([]news.Item, error)
}

// OnChainReader returns network activity snapshots.
type OnChainReader interface {
	Snapshot(ctx context.Context, asset string) (*onchain.Snapshot, error)
}

// Gauge returns the crowd sentiment reading.
type Gauge interface {
	Current(ctx context.Context) FearGreed
}

// Deps wires a Service. News, OnChain and FearGreed are optional.
type Deps struct {
	Market    MarketReader
	News      NewsReader
	OnChain   OnChainReader
	FearGreed Gauge
	Catalog   Catalog
}

// Service builds the market pulse, advanced comparison and asset intel composites.
type Service struct {
	market    MarketReader
	news      NewsReader
	onchain   OnChainReader
	fearGreed Gauge
	catalog   Catalog
}

func NewService(deps Deps) *Service {
	catalog := deps.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Service{
		market:    deps.Market,
		news:      deps.News,
		onchain:   deps.OnChain,
		fearGreed: deps.FearGreed,
		catalog:   catalog,
	}
}

// Catalog returns the reference catalog in use.
func (s *Service) Catalog() Catalog {
	return s.catalog
}

// Headline is the slim news item embedded in composites.
type Headline struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
}

// Headlines slims news items down to what composites embed.
func Headlines(items []news.Item) []Headline {
	out := make([]Headline, 0, len(items))
	for _, item := range items {
		out = append(out, Headline{Title: item.Title, Source: item.Source, URL: item.URL, PublishedAt: item.PublishedAt})
	}
	return out
}
