package indicators

import "cryptoanalyst-api/pkg/market"

// Candle is one fixed-width bucket of a price series. Timestamp is the bucket start in epoch ms.
type Candle struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
}

// BuildCandles buckets a non-decreasing price series into bucketMinutes-wide candles.
// A new candle starts whenever the floored bucket changes; open is fixed at creation.
func BuildCandles(points []market.Point, bucketMinutes int) []Candle {
	if len(points) == 0 || bucketMinutes <= 0 {
		return []Candle{}
	}
	bucketMS := int64(bucketMinutes) * 60 * 1000
	candles := make([]Candle, 0, len(points)/2+1)
	var current int64
	for i, p := range points {
		bucket := floorDiv(p.Timestamp, bucketMS) * bucketMS
		if i == 0 || bucket != current {
			candles = append(candles, Candle{
				Timestamp: bucket,
				Open:      p.Value,
				High:      p.Value,
				Low:       p.Value,
				Close:     p.Value,
			})
			current = bucket
			continue
		}
		c := &candles[len(candles)-1]
		if p.Value > c.High {
			c.High = p.Value
		}
		if p.Value < c.Low {
			c.Low = p.Value
		}
		c.Close = p.Value
	}
	return candles
}

// Closes extracts the close of each candle.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
