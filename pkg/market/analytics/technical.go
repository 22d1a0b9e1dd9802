package analytics

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoanalyst-api/pkg/market/indicators"
)

const (
	DefaultIndicator       = "rsi"
	DefaultTimeframe       = "4h"
	defaultTimeframeMinute = 240
	maxSeriesCandles       = 90
	insufficientData       = "insufficient data"
)

// TimeframeMinutes maps supported timeframes to candle widths.
var TimeframeMinutes = map[string]int{
	"1h":  60,
	"2h":  120,
	"4h":  240,
	"6h":  360,
	"12h": 720,
	"1d":  1440,
}

// ChartDays returns the chart span requested for a candle width.
func ChartDays(minutes int) int {
	days := minutes/1440 + 1
	if days < 1 {
		return 1
	}
	return days
}

// Technical buckets the asset's recent prices into candles and runs one indicator on the closes.
// Too little history is reported as a nil value with state "unknown", never as an error.
func (s *Service) Technical(ctx context.Context, asset, currency, indicator, timeframe string, period int) (*TechnicalAnalysis, error) {
	id, err := s.resolver.ResolveOne(ctx, asset)
	if err != nil {
		return nil, err
	}
	currency = normaliseCurrency(currency)
	indicator = strings.ToLower(strings.TrimSpace(indicator))
	if indicator == "" {
		indicator = DefaultIndicator
	}
	if timeframe == "" {
		timeframe = DefaultTimeframe
	}
	if period <= 0 {
		period = indicators.DefaultRSIPeriod
	}
	minutes, ok := TimeframeMinutes[strings.ToLower(timeframe)]
	if !ok {
		minutes = defaultTimeframeMinute
	}

	prices, err := s.PriceHistory(ctx, id, currency, ChartDays(minutes))
	if err != nil {
		return nil, err
	}
	candles := indicators.BuildCandles(prices, minutes)
	closes := indicators.Closes(candles)

	out := &TechnicalAnalysis{
		Asset:          id,
		Currency:       currency,
		Indicator:      indicator,
		Timeframe:      timeframe,
		State:          indicators.StateUnknown,
		Interpretation: insufficientData,
		Series:         renderCandles(candles),
	}
	switch indicator {
	case "rsi":
		out.Value = indicators.RSI(closes, period)
		out.State = indicators.ClassifyRSI(out.Value)
		out.Interpretation = interpretRSI(out.Value, out.State)
	case "macd":
		out.Value = indicators.MACDHistogram(closes)
		out.State = indicators.ClassifyMACD(out.Value)
		out.Interpretation = interpretMACD(out.Value, out.State)
	case "atr":
		out.Value, out.State = averageTrueRange(candles, period)
		out.Interpretation = interpretATR(out.Value, out.State)
	default:
		logx.WithContext(ctx).Infof("analytics: indicator %q is not supported", indicator)
	}
	return out, nil
}

func renderCandles(candles []indicators.Candle) []CandlePoint {
	if len(candles) > maxSeriesCandles {
		candles = candles[len(candles)-maxSeriesCandles:]
	}
	out := make([]CandlePoint, 0, len(candles))
	for _, c := range candles {
		out = append(out, CandlePoint{
			Timestamp: ISOTime(c.Timestamp),
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
		})
	}
	return out
}

func interpretRSI(value *float64, state string) string {
	if value == nil {
		return insufficientData
	}
	switch state {
	case indicators.StateOverbought:
		return fmt.Sprintf("RSI is %.1f, historically stretched; upside momentum may fade.", *value)
	case indicators.StateOversold:
		return fmt.Sprintf("RSI is %.1f, indicating potential relief if buyers return.", *value)
	default:
		return fmt.Sprintf("RSI sits at %.1f, showing balanced momentum.", *value)
	}
}

func interpretMACD(value *float64, state string) string {
	if value == nil {
		return insufficientData
	}
	switch state {
	case "bullish":
		return fmt.Sprintf("MACD histogram at %.4f; buyers hold momentum.", *value)
	case "bearish":
		return fmt.Sprintf("MACD histogram at %.4f; sellers hold momentum.", *value)
	default:
		return "MACD histogram is flat."
	}
}

// averageTrueRange returns the latest ATR and a volatility state from ATR as a share of price.
func averageTrueRange(candles []indicators.Candle, period int) (*float64, string) {
	if len(candles) < period+1 {
		return nil, indicators.StateUnknown
	}
	series := indicators.ATR(candles, period)
	last := series[len(series)-1]
	closePrice := candles[len(candles)-1].Close
	if math.IsNaN(last) || closePrice == 0 {
		return nil, indicators.StateUnknown
	}
	value := indicators.Round(last, 4)
	share := last / closePrice * 100
	switch {
	case share > 5:
		return &value, "volatile"
	case share < 2:
		return &value, "calm"
	default:
		return &value, indicators.StateNeutral
	}
}

func interpretATR(value *float64, state string) string {
	if value == nil {
		return insufficientData
	}
	switch state {
	case "volatile":
		return fmt.Sprintf("ATR is %.4f; ranges are wide relative to price.", *value)
	case "calm":
		return fmt.Sprintf("ATR is %.4f; ranges are tight relative to price.", *value)
	default:
		return fmt.Sprintf("ATR is %.4f; volatility is in a normal band.", *value)
	}
}
