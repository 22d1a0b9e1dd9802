package indicators

import "math"

const (
	DefaultRSIPeriod = 14

	// rsiLookback bounds how many deltas beyond the period feed the averages.
	rsiLookback = 15

	StateOverbought = "overbought"
	StateOversold   = "oversold"
	StateNeutral    = "neutral"
	StateUnknown    = "unknown"
)

// RSI returns the relative strength index of the closes, rounded to 2 decimals, or nil when
// fewer than period+2 closes are available.
//
// Deltas come from the trailing period+15 closes. Positive deltas are gains, everything else is
// a loss. Each average is the sum of the trailing period entries divided by period.
func RSI(closes []float64, period int) *float64 {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	if len(closes) < period+2 {
		return nil
	}
	window := closes
	if n := period + rsiLookback; len(window) > n {
		window = window[len(window)-n:]
	}
	gains := make([]float64, 0, len(window))
	losses := make([]float64, 0, len(window))
	for i := 1; i < len(window); i++ {
		change := window[i] - window[i-1]
		if change > 0 {
			gains = append(gains, change)
		} else {
			losses = append(losses, math.Abs(change))
		}
	}
	avgGain := trailingAverage(gains, period)
	avgLoss := trailingAverage(losses, period)

	value := 100.0
	if avgLoss != 0 {
		rs := avgGain / avgLoss
		value = Round(100-(100/(1+rs)), 2)
	}
	return &value
}

func trailingAverage(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) > period {
		values = values[len(values)-period:]
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(period)
}

// ClassifyRSI maps an RSI value to its momentum state.
func ClassifyRSI(value *float64) string {
	switch {
	case value == nil:
		return StateUnknown
	case *value >= 70:
		return StateOverbought
	case *value <= 30:
		return StateOversold
	default:
		return StateNeutral
	}
}
