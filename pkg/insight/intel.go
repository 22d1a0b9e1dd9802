package insight

import (
	"context"
	"errors"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoanalyst-api/pkg/market"
	"cryptoanalyst-api/pkg/market/analytics"
	"cryptoanalyst-api/pkg/news"
	"cryptoanalyst-api/pkg/onchain"
)

const (
	intelLookbackDays = 7
	intelHeadlines    = 3
	chartCandlestick  = "candlestick"
)

// Intel is the single-asset composite: overview, headlines, sentiment and on-chain context.
type Intel struct {
	Asset     string              `json:"asset"`
	Overview  *analytics.Overview `json:"overview"`
	News      []Headline          `json:"news"`
	Sentiment news.Sentiment      `json:"sentiment"`
	OnChain   *onchain.Snapshot   `json:"onchain"`
	ChartType string              `json:"chart_type,omitempty"`
	Series    []market.OHLC       `json:"series,omitempty"`
	Errors    map[string]string   `json:"errors,omitempty"`
}

// AssetIntel requires the overview. News and on-chain failures are reported in Errors; assets
// without on-chain coverage simply carry a null snapshot.
func (s *Service) AssetIntel(ctx context.Context, asset, currency string) (*Intel, error) {
	overview, err := s.market.Overview(ctx, asset, currency, intelLookbackDays)
	if err != nil {
		return nil, err
	}
	out := &Intel{Asset: asset, Overview: overview}
	fail := func(part string, err error) {
		logx.WithContext(ctx).Errorf("insight: intel %s failed asset=%s: %v", part, asset, err)
		if out.Errors == nil {
			out.Errors = make(map[string]string)
		}
		out.Errors[part] = err.Error()
	}

	var items []news.Item
	if s.news != nil {
		if items, err = s.news.ForAsset(ctx, asset, intelHeadlines); err != nil {
			fail("news", err)
			items = nil
		}
	}
	out.News = Headlines(items)
	out.Sentiment = news.Score(items)

	if s.onchain != nil {
		snap, err := s.onchain.Snapshot(ctx, asset)
		switch {
		case err == nil:
			out.OnChain = snap
		case errors.Is(err, market.ErrInvalidInput):
		default:
			fail("onchain", err)
		}
	}

	if len(overview.OHLCSeries) > 0 {
		out.ChartType = chartCandlestick
		out.Series = overview.OHLCSeries
	}
	return out, nil
}
