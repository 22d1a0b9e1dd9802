package cache

import (
	"sort"
	"strconv"
	"strings"
)

// Namespace prefixes every cache key.
const Namespace = "cryptoanalyst"

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// --- Market Keys -------------------------------------------------------------

// OverviewKey scopes an asset overview by currency and lookback.
func OverviewKey(asset, currency string, lookbackDays int) string {
	return formatKey("overview", asset, currency, strconv.Itoa(lookbackDays))
}

// ComparisonKey keeps target order, since the comparison rows follow it.
func ComparisonKey(base string, targets []string, currency string) string {
	return formatKey("compare", base, strings.Join(targets, ","), currency)
}

// --- News & On-chain Keys ----------------------------------------------------

// NewsKey is independent of the order categories and assets were passed in.
func NewsKey(limit int, categories, assets []string) string {
	return formatKey("news", strconv.Itoa(limit), "c="+sortedJoin(categories), "a="+sortedJoin(assets))
}

func OnChainKey(network string) string {
	return formatKey("onchain", network)
}

func FearGreedKey() string {
	return formatKey("fear_greed")
}

func sortedJoin(values []string) string {
	cp := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			cp = append(cp, v)
		}
	}
	sort.Strings(cp)
	return strings.Join(cp, ",")
}
