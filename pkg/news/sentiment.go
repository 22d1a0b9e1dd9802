package news

import (
	"sort"
	"strings"

	"cryptoanalyst-api/pkg/market/indicators"
)

var positiveKeywords = []string{
	"surge", "upgrades", "upgrade", "bull", "bullish", "record", "partnership",
	"approve", "adopt", "rally", "growth", "funding", "investment", "accumulate",
}

var negativeKeywords = []string{
	"hack", "ban", "lawsuit", "sell-off", "bear", "bearish", "outage",
	"exploit", "downgrade", "fear", "crash", "plunge", "liquidation", "investigation",
}

// Sentiment is the keyword gauge over a batch of articles.
type Sentiment struct {
	Score      float64  `json:"score"`
	Label      string   `json:"label"`
	Keywords   []string `json:"keywords"`
	SampleSize int      `json:"sample_size"`
}

// Score counts keyword substrings in each title and body. Each positive hit adds one, each
// negative hit subtracts one, and the total is averaged over the articles.
func Score(items []Item) Sentiment {
	if len(items) == 0 {
		return Sentiment{Label: "neutral", Keywords: []string{}}
	}
	total := 0
	hits := make(map[string]int)
	for _, item := range items {
		text := strings.ToLower(item.Title + " " + item.Body)
		for _, word := range positiveKeywords {
			if strings.Contains(text, word) {
				total++
				hits[word]++
			}
		}
		for _, word := range negativeKeywords {
			if strings.Contains(text, word) {
				total--
				hits[word]++
			}
		}
	}
	normalized := float64(total) / float64(len(items))
	return Sentiment{
		Score:      indicators.Round(normalized, 2),
		Label:      label(normalized),
		Keywords:   topKeywords(hits, 3),
		SampleSize: len(items),
	}
}

func label(score float64) string {
	switch {
	case score > 0.75:
		return "strongly positive"
	case score > 0.25:
		return "positive"
	case score < -0.75:
		return "strongly negative"
	case score < -0.25:
		return "negative"
	default:
		return "neutral"
	}
}

// topKeywords orders by hit count, then alphabetically.
func topKeywords(hits map[string]int, n int) []string {
	words := make([]string, 0, len(hits))
	for w := range hits {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if hits[words[i]] != hits[words[j]] {
			return hits[words[i]] > hits[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}
