package logic

import (
	"strings"
	"unicode/utf8"

	"cryptoanalyst-api/pkg/market"
)

const (
	maxCurrencyLength  = 10
	maxCompareTargets  = 10
	maxTrendingEntries = 12
	minLookbackDays    = 1
	maxLookbackDays    = 90
	minNewsLimit       = 1
	maxNewsLimit       = 6
)

func checkLength(field, value string, minLen, maxLen int) error {
	n := utf8.RuneCountInString(value)
	if n < minLen || n > maxLen {
		return market.InvalidInputf("%s must be %d-%d characters", field, minLen, maxLen)
	}
	return nil
}

func validUserID(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	return userID, checkLength("user_id", userID, 3, 64)
}

func validAsset(asset string, minLen int) (string, error) {
	asset = strings.TrimSpace(asset)
	return asset, checkLength("asset", asset, minLen, 32)
}

func (c *common) currency(raw string) (string, error) {
	currency := strings.ToLower(strings.TrimSpace(raw))
	if currency == "" {
		currency = c.svcCtx.Config.DefaultCurrency
	}
	if currency == "" {
		currency = "usd"
	}
	if len(currency) > maxCurrencyLength {
		return "", market.InvalidInputf("currency must be at most %d characters", maxCurrencyLength)
	}
	return currency, nil
}

func checkRange(field string, v, lo, hi int) error {
	if v < lo || v > hi {
		return market.InvalidInputf("%s must be between %d and %d", field, lo, hi)
	}
	return nil
}

// uniqueSymbols trims and de-duplicates case-insensitively, keeping first-seen order, up to max.
func uniqueSymbols(values []string, max int) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}
