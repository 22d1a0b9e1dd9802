package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cryptoanalyst-api/internal/store"
	"cryptoanalyst-api/pkg/market"
	"cryptoanalyst-api/pkg/market/analytics"
)

// MarketReader is the analytics surface alert evaluation needs.
type MarketReader interface {
	ResolveSymbol(ctx context.Context, asset string) (string, error)
	PriceHistory(ctx context.Context, asset, currency string, days int) ([]market.Point, error)
	Technical(ctx context.Context, asset, currency, indicator, timeframe string, period int) (*analytics.TechnicalAnalysis, error)
}

// Match is one asset that satisfied a price_move rule.
type Match struct {
	Asset     string  `json:"asset"`
	ChangePct float64 `json:"change_pct"`
	Price     float64 `json:"price"`
}

type matchContext struct {
	Matches []Match `json:"matches"`
}

type checkedContext struct {
	CheckedAssets []string `json:"checked_assets"`
}

type analysisContext struct {
	Analysis *analytics.TechnicalAnalysis `json:"analysis"`
}

type errorContext struct {
	Error string `json:"error"`
}

// outcome is the result of evaluating one alert.
type outcome struct {
	status    string
	observed  *float64
	context   json.RawMessage
	triggered bool
}

type evaluator struct {
	market MarketReader
}

// evaluate dispatches on the rule kind. positions are the user's stored position assets.
func (e *evaluator) evaluate(ctx context.Context, rule Rule, positions []string, currency string) (outcome, error) {
	switch r := rule.(type) {
	case PriceMove:
		return e.priceMove(ctx, r, positions, currency)
	case IndicatorThreshold:
		return e.indicator(ctx, r, currency)
	case Unsupported:
		return outcome{status: StatusUnsupported}, nil
	default:
		panic(fmt.Sprintf("alerts: unhandled rule %T", rule))
	}
}

func (e *evaluator) priceMove(ctx context.Context, r PriceMove, positions []string, currency string) (outcome, error) {
	targets := []string{r.Asset}
	if r.Asset == AllPositions {
		targets = positions
	}
	matches := make([]Match, 0)
	for _, asset := range targets {
		change, latest, err := e.priceChange(ctx, asset, currency, r.WindowMinutes)
		if err != nil {
			return outcome{}, err
		}
		met := change >= r.Percentage
		if r.Direction == DirectionDrop {
			met = change <= -r.Percentage
		}
		if met {
			matches = append(matches, Match{Asset: asset, ChangePct: change, Price: latest})
		}
	}
	if len(matches) > 0 {
		observed := matches[0].ChangePct
		return outcome{
			status:    StatusTriggered,
			observed:  &observed,
			context:   mustJSON(matchContext{Matches: matches}),
			triggered: true,
		}, nil
	}
	if targets == nil {
		targets = []string{}
	}
	return outcome{status: StatusArmed, context: mustJSON(checkedContext{CheckedAssets: targets})}, nil
}

// priceChange measures the percent move over the trailing window. With fewer than two points in
// the window, the last two points of the series are used instead.
func (e *evaluator) priceChange(ctx context.Context, asset, currency string, windowMinutes int) (float64, float64, error) {
	id, err := e.market.ResolveSymbol(ctx, asset)
	if err != nil {
		return 0, 0, err
	}
	days := (windowMinutes + 1439) / 1440
	if days < 1 {
		days = 1
	}
	series, err := e.market.PriceHistory(ctx, id, currency, days)
	if err != nil {
		return 0, 0, err
	}
	if len(series) == 0 {
		return 0, 0, nil
	}
	cutoff := series[len(series)-1].Timestamp - int64(windowMinutes)*60_000
	window := make([]market.Point, 0, len(series))
	for _, p := range series {
		if p.Timestamp >= cutoff {
			window = append(window, p)
		}
	}
	if len(window) < 2 {
		window = series[max(0, len(series)-2):]
	}
	start, end := window[0].Value, window[len(window)-1].Value
	if start == 0 {
		return 0, end, nil
	}
	return (end - start) / start * 100, end, nil
}

func (e *evaluator) indicator(ctx context.Context, r IndicatorThreshold, currency string) (outcome, error) {
	analysis, err := e.market.Technical(ctx, r.Asset, currency, r.Indicator, r.Timeframe, 0)
	if err != nil {
		return outcome{}, err
	}
	triggered := false
	if v := analysis.Value; v != nil {
		if r.Operator == OperatorGT {
			triggered = *v > r.Threshold
		} else {
			triggered = *v < r.Threshold
		}
	}
	status := StatusArmed
	if triggered {
		status = StatusTriggered
	}
	return outcome{
		status:    status,
		observed:  analysis.Value,
		context:   mustJSON(analysisContext{Analysis: analysis}),
		triggered: triggered,
	}, nil
}

// apply writes an outcome onto the stored alert. triggered_at only moves forward on a trigger.
func (o outcome) apply(a *store.Alert, now time.Time) {
	a.Status = o.status
	a.LastObserved = o.observed
	a.Context = o.context
	if o.triggered {
		ts := now.UTC().Format(time.RFC3339Nano)
		a.TriggeredAt = &ts
	}
}

// failed keeps the alert's status and last observation and records the error in its context.
func failed(a store.Alert, err error) outcome {
	return outcome{status: a.Status, observed: a.LastObserved, context: mustJSON(errorContext{Error: err.Error()})}
}

func positionAssets(state *store.UserState) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(state.Portfolio.Positions))
	for _, p := range state.Portfolio.Positions {
		if !seen[p.Asset] {
			seen[p.Asset] = true
			out = append(out, p.Asset)
		}
	}
	return out
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("alerts: encode context: %v", err))
	}
	return raw
}
