package insight

import (
	"context"
	"sort"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoanalyst-api/pkg/market"
	"cryptoanalyst-api/pkg/market/analytics"
	"cryptoanalyst-api/pkg/market/indicators"
	"cryptoanalyst-api/pkg/news"
)

const (
	pulseBoardSize  = 50
	pulseMovers     = 3
	pulseCategories = 6
	pulseHeadlines  = 3
	otherCategory   = "other"
)

// Mover is a slim market row for the gainers and losers lists.
type Mover struct {
	ID        string   `json:"id"`
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	Price     *float64 `json:"price"`
	Change24h *float64 `json:"change_24h"`
	MarketCap *float64 `json:"market_cap"`
}

// CategoryPerformance aggregates board rows by reference category.
type CategoryPerformance struct {
	Category  string  `json:"category"`
	MarketCap float64 `json:"market_cap"`
	AvgChange float64 `json:"avg_change"`
	Count     int     `json:"count"`
}

// PulseSentiment pairs the headline gauge with the fear & greed index.
type PulseSentiment struct {
	News      news.Sentiment `json:"news"`
	FearGreed FearGreed      `json:"fear_greed"`
}

// Pulse is the market-wide snapshot.
type Pulse struct {
	Currency   string                    `json:"currency"`
	Global     *analytics.GlobalSnapshot `json:"global"`
	Gainers    []Mover                   `json:"gainers"`
	Losers     []Mover                   `json:"losers"`
	Categories []CategoryPerformance     `json:"categories"`
	News       []Headline                `json:"news"`
	Sentiment  PulseSentiment            `json:"sentiment"`
	Errors     map[string]string         `json:"errors,omitempty"`
}

// Pulse summarises the top of the market board, aggregate stats, headlines and sentiment. A
// failing part is reported in Errors and left empty.
func (s *Service) Pulse(ctx context.Context, currency string) (*Pulse, error) {
	if currency == "" {
		currency = "usd"
	}
	out := &Pulse{
		Currency:   currency,
		Gainers:    []Mover{},
		Losers:     []Mover{},
		Categories: []CategoryPerformance{},
		News:       []Headline{},
	}
	fail := func(part string, err error) {
		logx.WithContext(ctx).Errorf("insight: pulse %s failed: %v", part, err)
		if out.Errors == nil {
			out.Errors = make(map[string]string)
		}
		out.Errors[part] = err.Error()
	}

	rows, err := s.market.Markets(ctx, currency, pulseBoardSize)
	if err != nil {
		fail("markets", err)
	} else {
		out.Gainers, out.Losers = movers(rows, pulseMovers)
		out.Categories = s.categoryPerformance(rows)
	}

	if global, err := s.market.GlobalSnapshot(ctx, currency); err != nil {
		fail("global", err)
	} else {
		out.Global = global
	}

	var items []news.Item
	if s.news != nil {
		items, err = s.news.Fetch(ctx, news.Query{Limit: pulseHeadlines})
		if err != nil {
			fail("news", err)
			items = nil
		}
	}
	out.News = Headlines(items)
	out.Sentiment.News = news.Score(items)

	if s.fearGreed != nil {
		out.Sentiment.FearGreed = s.fearGreed.Current(ctx)
	} else {
		out.Sentiment.FearGreed = neutralGauge()
	}
	return out, nil
}

func movers(rows []market.MarketRow, n int) (gainers, losers []Mover) {
	up := append([]market.MarketRow(nil), rows...)
	sort.SliceStable(up, func(i, j int) bool { return up[i].Change24h() > up[j].Change24h() })
	down := append([]market.MarketRow(nil), rows...)
	sort.SliceStable(down, func(i, j int) bool { return down[i].Change24h() < down[j].Change24h() })
	return slim(up, n), slim(down, n)
}

func slim(rows []market.MarketRow, n int) []Mover {
	if len(rows) > n {
		rows = rows[:n]
	}
	out := make([]Mover, 0, len(rows))
	for _, r := range rows {
		out = append(out, Mover{
			ID:        r.ID,
			Symbol:    r.Symbol,
			Name:      r.Name,
			Price:     r.CurrentPrice,
			Change24h: r.PriceChangePercentage24hInCurrency,
			MarketCap: r.MarketCap,
		})
	}
	return out
}

// categoryPerformance buckets rows in first-seen order, then keeps the largest by market cap.
func (s *Service) categoryPerformance(rows []market.MarketRow) []CategoryPerformance {
	index := make(map[string]int)
	buckets := make([]CategoryPerformance, 0)
	for _, r := range rows {
		category := otherCategory
		if ref, ok := s.catalog.Lookup(r.ID); ok && ref.Category != "" {
			category = ref.Category
		}
		i, ok := index[category]
		if !ok {
			i = len(buckets)
			index[category] = i
			buckets = append(buckets, CategoryPerformance{Category: category})
		}
		if r.MarketCap != nil {
			buckets[i].MarketCap += *r.MarketCap
		}
		buckets[i].AvgChange += r.Change24h()
		buckets[i].Count++
	}
	for i := range buckets {
		buckets[i].AvgChange = indicators.Round(buckets[i].AvgChange/float64(buckets[i].Count), 2)
	}
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].MarketCap > buckets[j].MarketCap })
	if len(buckets) > pulseCategories {
		buckets = buckets[:pulseCategories]
	}
	return buckets
}
