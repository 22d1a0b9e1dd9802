package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoanalyst-api/pkg/market/indicators"
	"cryptoanalyst-api/pkg/market/markettest"
)

func rising(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func TestTechnicalRSIOverbought(t *testing.T) {
	src := markettest.New()
	src.SetChart("bitcoin", hourly(rising(30)...))
	svc := newTestService(src, Options{})

	res, err := svc.Technical(context.Background(), "BTC", "usd", "RSI", "1h", 0)
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", res.Asset)
	assert.Equal(t, "rsi", res.Indicator)
	require.NotNil(t, res.Value)
	assert.Equal(t, 100.0, *res.Value)
	assert.Equal(t, indicators.StateOverbought, res.State)
	assert.Contains(t, res.Interpretation, "RSI is 100.0")
	assert.Len(t, res.Series, 30)
	assert.Equal(t, "1970-01-01T00:00:00Z", res.Series[0].Timestamp)
	assert.Equal(t, 1, src.Days["bitcoin"])
}

func TestTechnicalInsufficientData(t *testing.T) {
	src := markettest.New()
	src.SetChart("bitcoin", hourly(rising(24)...))
	svc := newTestService(src, Options{})

	res, err := svc.Technical(context.Background(), "btc", "usd", "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeframe, res.Timeframe)
	assert.Nil(t, res.Value)
	assert.Equal(t, indicators.StateUnknown, res.State)
	assert.Equal(t, "insufficient data", res.Interpretation)
	assert.Len(t, res.Series, 6, "24 hourly points make six 4h candles")
}

func TestTechnicalDailyTimeframeRequestsTwoDays(t *testing.T) {
	src := markettest.New()
	svc := newTestService(src, Options{})

	_, err := svc.Technical(context.Background(), "eth", "usd", "rsi", "1d", 14)
	require.NoError(t, err)
	assert.Equal(t, 2, src.Days["ethereum"])
}

func TestTechnicalSeriesCappedAndMACD(t *testing.T) {
	src := markettest.New()
	src.SetChart("bitcoin", hourly(rising(120)...))
	svc := newTestService(src, Options{})

	res, err := svc.Technical(context.Background(), "btc", "usd", "macd", "1h", 0)
	require.NoError(t, err)
	assert.Len(t, res.Series, 90)
	assert.Equal(t, 130.0, res.Series[0].Open)
	require.NotNil(t, res.Value)
	assert.NotEqual(t, indicators.StateUnknown, res.State)
}

func TestTechnicalUnknownIndicator(t *testing.T) {
	src := markettest.New()
	src.SetChart("bitcoin", hourly(rising(40)...))
	svc := newTestService(src, Options{})

	res, err := svc.Technical(context.Background(), "btc", "usd", "stoch", "1h", 0)
	require.NoError(t, err)
	assert.Nil(t, res.Value)
	assert.Equal(t, indicators.StateUnknown, res.State)
}

func TestTechnicalATR(t *testing.T) {
	src := markettest.New()
	src.SetChart("bitcoin", hourly(rising(40)...))
	svc := newTestService(src, Options{})

	res, err := svc.Technical(context.Background(), "btc", "usd", "atr", "1h", 0)
	require.NoError(t, err)
	require.NotNil(t, res.Value)
	assert.Equal(t, "calm", res.State)
}

func TestChartDays(t *testing.T) {
	for tf, minutes := range TimeframeMinutes {
		want := 1
		if tf == "1d" {
			want = 2
		}
		assert.Equal(t, want, ChartDays(minutes), tf)
	}
}
