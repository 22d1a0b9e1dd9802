package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoanalyst-api/internal/store"
	"cryptoanalyst-api/pkg/market"
	"cryptoanalyst-api/pkg/market/analytics"
	"cryptoanalyst-api/pkg/market/markettest"
)

const lastTick = int64(1_700_000_000_000)

var resolver = markettest.Resolver{Map: map[string]string{"btc": "bitcoin", "eth": "ethereum"}}

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	src   *markettest.Source
	store *store.Store
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "agent_state.json"))
	require.NoError(t, err)
	src := markettest.New()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return &fixture{
		svc:   NewService(st, analytics.NewService(src, resolver, analytics.Options{}), opts...),
		src:   src,
		store: st,
	}
}

// minutesAgo builds a series whose points sit the given minutes before lastTick.
func minutesAgo(pairs ...float64) []market.Point {
	out := make([]market.Point, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, market.Point{Timestamp: lastTick - int64(pairs[i])*60_000, Value: pairs[i+1]})
	}
	return out
}

func (f *fixture) holdings(t *testing.T, user string, assets ...string) {
	t.Helper()
	_, err := f.store.Update(user, func(u *store.UserState) error {
		for i, a := range assets {
			u.Portfolio.Positions = append(u.Portfolio.Positions, store.Position{ID: a + string(rune('0'+i)), Asset: a, Amount: 1, CostBasis: 1})
		}
		return nil
	})
	require.NoError(t, err)
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func decode(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestPortfolioDropAlert(t *testing.T) {
	f := newFixture(t)
	f.holdings(t, "alice", "btc", "eth")
	f.src.SetChart("bitcoin", minutesAgo(120, 120, 60, 100, 30, 97, 0, 94))
	f.src.SetChart("ethereum", minutesAgo(60, 50, 0, 49))

	alert, err := f.svc.Add(context.Background(), "alice", "portfolio drop", Condition{
		Type: TypePriceMove, Asset: "*", Direction: DirectionDrop, Percentage: floatPtr(5), WindowMinutes: intPtr(60),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusArmed, alert.Status)
	assert.Nil(t, alert.TriggeredAt)

	evaluated, err := f.svc.Evaluate(context.Background(), "alice", "usd")
	require.NoError(t, err)
	require.Len(t, evaluated, 1)
	got := evaluated[0]
	assert.Equal(t, StatusTriggered, got.Status)
	require.NotNil(t, got.TriggeredAt)
	assert.Equal(t, "2024-03-01T09:30:00Z", *got.TriggeredAt)
	require.NotNil(t, got.LastObserved)
	assert.InDelta(t, -6, *got.LastObserved, 1e-9)

	var ctx matchContext
	require.NoError(t, json.Unmarshal(got.Context, &ctx))
	require.Len(t, ctx.Matches, 1)
	assert.Equal(t, "btc", ctx.Matches[0].Asset)
	assert.InDelta(t, -6, ctx.Matches[0].ChangePct, 1e-9)
	assert.Equal(t, 94.0, ctx.Matches[0].Price)
	assert.Equal(t, 1, f.src.Days["bitcoin"])

	stored, err := f.svc.List("alice")
	require.NoError(t, err)
	assert.Equal(t, StatusTriggered, stored[0].Status, "evaluation persists its outcome")
}

func TestPriceMoveArmsAndRearms(t *testing.T) {
	f := newFixture(t)
	f.src.SetChart("ethereum", minutesAgo(60, 100, 0, 110))
	_, err := f.svc.Add(context.Background(), "bob", "eth pump", Condition{
		Type: TypePriceMove, Asset: "eth", Direction: DirectionRise, Percentage: floatPtr(5),
	})
	require.NoError(t, err)

	first, err := f.svc.Evaluate(context.Background(), "bob", "usd")
	require.NoError(t, err)
	assert.Equal(t, StatusTriggered, first[0].Status)
	triggeredAt := first[0].TriggeredAt

	f.src.SetChart("ethereum", minutesAgo(60, 100, 0, 101))
	second, err := f.svc.Evaluate(context.Background(), "bob", "usd")
	require.NoError(t, err)
	assert.Equal(t, StatusArmed, second[0].Status)
	assert.Nil(t, second[0].LastObserved)
	assert.Equal(t, triggeredAt, second[0].TriggeredAt, "triggered_at keeps the last trigger")
	assert.Equal(t, map[string]any{"checked_assets": []any{"eth"}}, decode(t, second[0].Context))
}

func TestPriceChangeFallsBackToLastTwoPoints(t *testing.T) {
	f := newFixture(t)
	// only the final point is inside a 10 minute window
	f.src.SetChart("bitcoin", minutesAgo(600, 100, 300, 200, 0, 150))
	_, err := f.svc.Add(context.Background(), "cy", "btc drop", Condition{
		Type: TypePriceMove, Asset: "btc", Percentage: floatPtr(20), WindowMinutes: intPtr(10),
	})
	require.NoError(t, err)

	out, err := f.svc.Evaluate(context.Background(), "cy", "usd")
	require.NoError(t, err)
	assert.Equal(t, StatusTriggered, out[0].Status)
	assert.InDelta(t, -25, *out[0].LastObserved, 1e-9)
}

func TestIndicatorThreshold(t *testing.T) {
	f := newFixture(t)
	rising := make([]market.Point, 0, 20)
	for i := 0; i < 20; i++ {
		rising = append(rising, market.Point{Timestamp: int64(i) * 3_600_000, Value: 100 + float64(i)})
	}
	f.src.SetChart("bitcoin", rising)

	_, err := f.svc.Add(context.Background(), "dee", "btc overbought", Condition{
		Type: TypeIndicatorThreshold, Asset: "btc", Indicator: "rsi", Timeframe: "1h", Operator: OperatorGT, Threshold: floatPtr(70),
	})
	require.NoError(t, err)
	_, err = f.svc.Add(context.Background(), "dee", "eth oversold", Condition{Type: TypeIndicatorThreshold, Asset: "eth", Threshold: floatPtr(30)})
	require.NoError(t, err)

	out, err := f.svc.Evaluate(context.Background(), "dee", "usd")
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, StatusTriggered, out[0].Status)
	require.NotNil(t, out[0].LastObserved)
	assert.Equal(t, 100.0, *out[0].LastObserved)
	analysis := decode(t, out[0].Context)["analysis"].(map[string]any)
	assert.Equal(t, "overbought", analysis["state"])

	// no ethereum history: null reading never triggers
	assert.Equal(t, StatusArmed, out[1].Status)
	assert.Nil(t, out[1].LastObserved)
	assert.Nil(t, out[1].TriggeredAt)
}

func TestUnsupportedConditionIsPreserved(t *testing.T) {
	f := newFixture(t)
	raw := json.RawMessage(`{"type":"volume_spike","asset":"btc","factor":3}`)
	_, err := f.store.Update("eve", func(u *store.UserState) error {
		u.Alerts = append(u.Alerts, store.Alert{ID: "legacy", Condition: raw, Status: StatusArmed})
		return nil
	})
	require.NoError(t, err)

	out, err := f.svc.Evaluate(context.Background(), "eve", "usd")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, StatusUnsupported, out[0].Status)
	assert.JSONEq(t, string(raw), string(out[0].Condition))
	assert.Zero(t, f.src.CallCount("MarketChart"))
}

func TestEvaluationFailureIsIsolated(t *testing.T) {
	f := newFixture(t)
	f.src.FailMethod("MarketChart", &market.UpstreamError{Provider: "coingecko", Status: 502})
	_, err := f.svc.Add(context.Background(), "fin", "btc drop", Condition{Type: TypePriceMove, Asset: "btc", Percentage: floatPtr(5)})
	require.NoError(t, err)
	_, err = f.store.Update("fin", func(u *store.UserState) error {
		u.Alerts = append(u.Alerts, store.Alert{ID: "odd", Condition: json.RawMessage(`{"type":"other"}`), Status: StatusArmed})
		return nil
	})
	require.NoError(t, err)

	out, err := f.svc.Evaluate(context.Background(), "fin", "usd")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, StatusArmed, out[0].Status)
	assert.Contains(t, decode(t, out[0].Context)["error"], "502")
	assert.Equal(t, StatusUnsupported, out[1].Status)
}

func TestEvaluationFailureKeepsTriggeredState(t *testing.T) {
	f := newFixture(t)
	f.src.SetChart("ethereum", minutesAgo(60, 100, 0, 110))
	_, err := f.svc.Add(context.Background(), "gus", "eth pump", Condition{
		Type: TypePriceMove, Asset: "eth", Direction: DirectionRise, Percentage: floatPtr(5),
	})
	require.NoError(t, err)

	first, err := f.svc.Evaluate(context.Background(), "gus", "usd")
	require.NoError(t, err)
	require.Equal(t, StatusTriggered, first[0].Status)
	require.NotNil(t, first[0].LastObserved)

	f.src.FailMethod("MarketChart", &market.UpstreamError{Provider: "coingecko", Status: 503})
	second, err := f.svc.Evaluate(context.Background(), "gus", "usd")
	require.NoError(t, err)
	got := second[0]
	assert.Equal(t, StatusTriggered, got.Status)
	require.NotNil(t, got.LastObserved)
	assert.InDelta(t, *first[0].LastObserved, *got.LastObserved, 1e-9)
	assert.Equal(t, first[0].TriggeredAt, got.TriggeredAt)
	assert.Contains(t, decode(t, got.Context)["error"], "503")
}

type hookMarket struct {
	*analytics.Service
	hook func()
}

func (h hookMarket) PriceHistory(ctx context.Context, asset, currency string, days int) ([]market.Point, error) {
	if h.hook != nil {
		h.hook()
	}
	return h.Service.PriceHistory(ctx, asset, currency, days)
}

func TestEvaluateMergesConcurrentChanges(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "agent_state.json"))
	require.NoError(t, err)
	src := markettest.New()
	src.SetChart("bitcoin", minutesAgo(60, 100, 0, 50))

	var svc *Service
	reader := hookMarket{Service: analytics.NewService(src, resolver, analytics.Options{})}
	reader.hook = func() {
		_, err := svc.Add(context.Background(), "gus", "added mid-evaluation", Condition{Type: TypePriceMove, Asset: "eth"})
		require.NoError(t, err)
	}
	svc = NewService(st, reader)

	_, err = svc.Add(context.Background(), "gus", "btc crash", Condition{Type: TypePriceMove, Asset: "btc", Percentage: floatPtr(10)})
	require.NoError(t, err)

	out, err := svc.Evaluate(context.Background(), "gus", "usd")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, StatusTriggered, out[0].Status)

	stored, err := svc.List("gus")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, StatusTriggered, stored[0].Status)
	assert.Equal(t, "added mid-evaluation", stored[1].Description)
	assert.Equal(t, StatusArmed, stored[1].Status)
}

type captureRecorder struct {
	rows []Evaluation
	err  error
}

func (c *captureRecorder) RecordEvaluations(_ context.Context, rows []Evaluation) error {
	c.rows = append(c.rows, rows...)
	return c.err
}

func TestRecorderReceivesEvaluations(t *testing.T) {
	rec := &captureRecorder{err: errors.New("db down")}
	f := newFixture(t, WithRecorder(rec))
	f.src.SetChart("bitcoin", minutesAgo(60, 100, 0, 80))
	alert, err := f.svc.Add(context.Background(), "hal", "btc drop", Condition{Type: TypePriceMove, Asset: "btc", Percentage: floatPtr(10)})
	require.NoError(t, err)

	out, err := f.svc.Evaluate(context.Background(), "hal", "usd")
	require.NoError(t, err, "recorder failures do not fail evaluation")
	require.Len(t, out, 1)
	require.Len(t, rec.rows, 1)
	assert.Equal(t, "hal", rec.rows[0].UserID)
	assert.Equal(t, alert.ID, rec.rows[0].AlertID)
	assert.Equal(t, StatusTriggered, rec.rows[0].Status)
	assert.Equal(t, fixedNow, rec.rows[0].EvaluatedAt)
}

func TestAddValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		cond Condition
	}{
		{"unknown type", Condition{Type: "volume_spike", Asset: "btc"}},
		{"missing asset", Condition{Type: TypePriceMove, Asset: " "}},
		{"long asset", Condition{Type: TypePriceMove, Asset: "abcdefghijklmnopqrstuvwxyz0123456"}},
		{"short window", Condition{Type: TypePriceMove, Asset: "btc", WindowMinutes: intPtr(4)}},
		{"long window", Condition{Type: TypePriceMove, Asset: "btc", WindowMinutes: intPtr(1441)}},
		{"tiny percentage", Condition{Type: TypePriceMove, Asset: "btc", Percentage: floatPtr(0.05)}},
		{"huge percentage", Condition{Type: TypePriceMove, Asset: "btc", Percentage: floatPtr(101)}},
		{"bad direction", Condition{Type: TypePriceMove, Asset: "btc", Direction: "sideways"}},
		{"bad operator", Condition{Type: TypeIndicatorThreshold, Asset: "btc", Operator: "eq"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Add(context.Background(), "ivy", "some alert", tt.cond)
			require.ErrorIs(t, err, market.ErrInvalidInput)
		})
	}
	alerts, err := f.svc.List("ivy")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestDeleteAlert(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Add(context.Background(), "jo", "btc drop", Condition{Type: TypePriceMove, Asset: "btc"})
	require.NoError(t, err)

	removed, err := f.svc.Delete(context.Background(), "jo", a.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = f.svc.Delete(context.Background(), "jo", a.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestParseRuleDefaults(t *testing.T) {
	assert.Equal(t, PriceMove{Asset: "*", Direction: DirectionDrop, WindowMinutes: 60}, ParseRule(json.RawMessage(`{"type":"price_move"}`)))
	assert.Equal(t, IndicatorThreshold{Asset: "btc", Indicator: "rsi", Timeframe: "4h", Operator: OperatorLT, Threshold: 25},
		ParseRule(json.RawMessage(`{"type":"indicator_threshold","asset":"btc","threshold":25}`)))
	assert.Equal(t, Unsupported{Type: "whale"}, ParseRule(json.RawMessage(`{"type":"whale"}`)))
	assert.Equal(t, Unsupported{}, ParseRule(json.RawMessage(`not json`)))
}
