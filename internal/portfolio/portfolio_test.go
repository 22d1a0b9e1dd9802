package portfolio

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoanalyst-api/internal/store"
	"cryptoanalyst-api/pkg/market"
	"cryptoanalyst-api/pkg/market/analytics"
	"cryptoanalyst-api/pkg/market/markettest"
)

var resolver = markettest.Resolver{Map: map[string]string{"btc": "bitcoin", "eth": "ethereum", "sol": "solana"}}

func newService(t *testing.T) (*Service, *markettest.Source, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "agent_state.json"))
	require.NoError(t, err)
	src := markettest.New()
	src.SetQuote(market.PriceQuote{Asset: "bitcoin", Price: 150})
	src.SetQuote(market.PriceQuote{Asset: "ethereum", Price: 5})
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(st, analytics.NewService(src, resolver, analytics.Options{}), WithClock(func() time.Time { return now }))
	return svc, src, st
}

func TestAddPosition(t *testing.T) {
	svc, _, st := newService(t)
	ctx := context.Background()

	pos, err := svc.AddPosition(ctx, "alice", " BTC ", 2, 100)
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", pos.Asset)
	assert.Len(t, pos.ID, 32)
	assert.Equal(t, "2024-05-01T12:00:00Z", pos.AddedAt)

	state, err := st.Get("alice")
	require.NoError(t, err)
	require.Len(t, state.Portfolio.Positions, 1)
	assert.Equal(t, *pos, state.Portfolio.Positions[0])
}

func TestAddPositionValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		asset  string
		amount float64
		cost   float64
	}{
		{"zero amount", "btc", 0, 1},
		{"negative cost", "btc", 1, -5},
		{"blank asset", "  ", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddPosition(ctx, "alice", tt.asset, tt.amount, tt.cost)
			require.ErrorIs(t, err, market.ErrInvalidInput)
		})
	}
}

func TestDeletePosition(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	a, err := svc.AddPosition(ctx, "bob", "btc", 1, 1)
	require.NoError(t, err)
	_, err = svc.AddPosition(ctx, "bob", "eth", 1, 1)
	require.NoError(t, err)

	removed, err := svc.DeletePosition(ctx, "bob", a.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.DeletePosition(ctx, "bob", a.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	summary, err := svc.Summary(ctx, "bob", "usd")
	require.NoError(t, err)
	require.Len(t, summary.Positions, 1)
	assert.Equal(t, "ethereum", summary.Positions[0].Asset)
}

func TestWatchlistSetSemantics(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	list, err := svc.AddWatch(ctx, "carol", "BTC")
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin"}, list)

	list, err = svc.AddWatch(ctx, "carol", "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin"}, list)

	list, err = svc.AddWatch(ctx, "carol", "eth")
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, list)

	list, err = svc.RemoveWatch(ctx, "carol", "ETH")
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin"}, list)

	list, err = svc.Watchlist("carol")
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin"}, list)

	empty, err := svc.Watchlist("nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSummaryValuation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddPosition(ctx, "dave", "btc", 2, 100)
	require.NoError(t, err)
	_, err = svc.AddPosition(ctx, "dave", "eth", 10, 10)
	require.NoError(t, err)
	_, err = svc.AddWatch(ctx, "dave", "sol")
	require.NoError(t, err)

	s, err := svc.Summary(ctx, "dave", "usd")
	require.NoError(t, err)
	assert.Equal(t, "dave", s.UserID)
	assert.Equal(t, []string{"solana"}, s.Watchlist)
	assert.Nil(t, s.Errors)
	require.Len(t, s.Positions, 2)

	btc := s.Positions[0]
	assert.Equal(t, 150.0, btc.CurrentPrice)
	assert.Equal(t, 300.0, btc.CurrentValue)
	assert.Equal(t, 100.0, btc.PnLAbs)
	assert.Equal(t, 50.0, btc.PnLPct)

	eth := s.Positions[1]
	assert.Equal(t, 50.0, eth.CurrentValue)
	assert.Equal(t, -50.0, eth.PnLAbs)
	assert.Equal(t, -50.0, eth.PnLPct)

	assert.Equal(t, 300.0, s.Totals.Invested)
	assert.Equal(t, 350.0, s.Totals.Value)
	assert.Equal(t, btc.PnLAbs+eth.PnLAbs, s.Totals.PnLAbs)
	assert.InDelta(t, 16.6667, s.Totals.PnLPct, 1e-4)

	require.Len(t, s.Breakdown, 2)
	assert.InDelta(t, 85.7143, s.Breakdown[0].WeightPct, 1e-4)
	assert.InDelta(t, 100, s.Breakdown[0].WeightPct+s.Breakdown[1].WeightPct, 1e-9)
}

func TestSummaryMissingQuoteValuesAtZero(t *testing.T) {
	svc, _, st := newService(t)
	ctx := context.Background()

	_, err := svc.AddPosition(ctx, "erin", "sol", 4, 25)
	require.NoError(t, err)
	// a record stored under a ticker still finds its quote
	_, err = st.Update("erin", func(u *store.UserState) error {
		u.Portfolio.Positions = append(u.Portfolio.Positions, store.Position{ID: "legacy", Asset: "btc", Amount: 1, CostBasis: 100})
		return nil
	})
	require.NoError(t, err)

	s, err := svc.Summary(ctx, "erin", "usd")
	require.NoError(t, err)
	require.Len(t, s.Positions, 2)
	assert.Equal(t, 0.0, s.Positions[0].CurrentPrice)
	assert.Equal(t, -100.0, s.Positions[0].PnLAbs)
	assert.Equal(t, -100.0, s.Positions[0].PnLPct)
	assert.Equal(t, 150.0, s.Positions[1].CurrentPrice)
	assert.Equal(t, "btc", s.Positions[1].Asset)
	assert.Equal(t, 0.0, s.Breakdown[0].WeightPct)
	assert.Equal(t, 100.0, s.Breakdown[1].WeightPct)
}

func TestSummaryQuoteFailureIsDegraded(t *testing.T) {
	svc, src, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddPosition(ctx, "fay", "btc", 1, 100)
	require.NoError(t, err)
	src.FailMethod("SimplePrice", &market.UpstreamError{Provider: "coingecko", Status: 503})

	s, err := svc.Summary(ctx, "fay", "usd")
	require.NoError(t, err)
	assert.Contains(t, s.Errors["quotes"], "503")
	assert.Equal(t, 0.0, s.Totals.Value)
	assert.Equal(t, -100.0, s.Totals.PnLPct)
	assert.Equal(t, 0.0, s.Breakdown[0].WeightPct)
}

func TestSummaryEmptyPortfolio(t *testing.T) {
	svc, src, _ := newService(t)

	s, err := svc.Summary(context.Background(), "ghost", "")
	require.NoError(t, err)
	assert.Equal(t, "usd", s.Currency)
	assert.Empty(t, s.Positions)
	assert.Empty(t, s.Breakdown)
	assert.Equal(t, Totals{}, s.Totals)
	assert.Zero(t, src.CallCount("SimplePrice"))
}

func TestConcurrentAddPositionKeepsEveryWrite(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddPosition(ctx, "hank", "btc", 1, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := svc.Summary(ctx, "hank", "usd")
	require.NoError(t, err)
	assert.Len(t, s.Positions, 10)
}
