package insight

import (
	"context"

	"cryptoanalyst-api/pkg/market"
	"cryptoanalyst-api/pkg/market/analytics"
	"cryptoanalyst-api/pkg/market/indicators"
)

const advancedHistoryDays = 90

// AssetMetrics joins reference metrics with 90-day performance. Reference fields are null for
// assets outside the catalog.
type AssetMetrics struct {
	Asset                  string   `json:"asset"`
	TransactionSpeedTPS    *float64 `json:"transaction_speed_tps"`
	DeveloperActivityScore *float64 `json:"developer_activity_score"`
	AvgFeeUSD              *float64 `json:"avg_fee_usd"`
	Consensus              *string  `json:"consensus"`
	Narrative              *string  `json:"narrative"`
	Performance90dPct      float64  `json:"performance_90d_pct"`
}

// AdvancedComparison is the multi-metric comparison result.
type AdvancedComparison struct {
	Currency          string                       `json:"currency"`
	NormalizedHistory []analytics.NormalizedSeries `json:"normalized_history"`
	Metrics           []AssetMetrics               `json:"metrics"`
}

// AdvancedCompare compares at least two assets on reference metrics and rebased 90-day history.
func (s *Service) AdvancedCompare(ctx context.Context, assets []string, currency string) (*AdvancedComparison, error) {
	if len(assets) < 2 {
		return nil, market.InvalidInputf("provide at least two assets for advanced comparison")
	}
	if currency == "" {
		currency = "usd"
	}
	resolved := make([]string, 0, len(assets))
	for _, asset := range assets {
		id, err := s.market.ResolveSymbol(ctx, asset)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, id)
	}

	history, err := s.market.NormalizedHistory(ctx, resolved, currency, advancedHistoryDays)
	if err != nil {
		return nil, err
	}
	final := make(map[string]float64, len(history))
	for _, series := range history {
		if n := len(series.Series); n > 0 {
			final[series.Asset] = series.Series[n-1].Value
		}
	}

	metrics := make([]AssetMetrics, 0, len(resolved))
	for _, id := range resolved {
		m := AssetMetrics{Asset: id, Performance90dPct: indicators.Round(final[id], 2)}
		if ref, ok := s.catalog.Lookup(id); ok {
			tps, dev, fee := ref.TransactionSpeedTPS, ref.DeveloperActivityScore, ref.AvgFeeUSD
			consensus, narrative := ref.Consensus, ref.Narrative
			m.TransactionSpeedTPS = &tps
			m.DeveloperActivityScore = &dev
			m.AvgFeeUSD = &fee
			m.Consensus = &consensus
			m.Narrative = &narrative
		}
		metrics = append(metrics, m)
	}
	return &AdvancedComparison{Currency: currency, NormalizedHistory: history, Metrics: metrics}, nil
}
