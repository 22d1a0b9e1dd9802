package tools

import "github.com/openai/openai-go/shared"

func object(props map[string]any, required ...string) shared.FunctionParameters {
	if required == nil {
		required = []string{}
	}
	return shared.FunctionParameters{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func strList(desc string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": desc}
}

func integer(desc string, lo, hi int) map[string]any {
	return map[string]any{"type": "integer", "description": desc, "minimum": lo, "maximum": hi}
}

func number(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc}
}

var (
	currencyProp = str("Quote currency, for example usd or eur. Defaults to usd.")
	assetProp    = str("Ticker or CoinGecko id, for example btc or ethereum.")
	userProp     = str("User identifier, 3-64 characters.")
)

var conditionProp = map[string]any{
	"type":        "object",
	"description": "Alert condition. price_move uses percentage, direction and window_minutes; indicator_threshold uses indicator, timeframe, operator and threshold.",
	"properties": map[string]any{
		"type":           map[string]any{"type": "string", "enum": []string{"price_move", "indicator_threshold"}},
		"asset":          str("Asset symbol, or * for every portfolio position."),
		"window_minutes": integer("Lookback window in minutes.", 5, 1440),
		"percentage":     number("Move size in percent, 0.1-100."),
		"direction":      map[string]any{"type": "string", "enum": []string{"drop", "rise"}},
		"indicator":      str("Indicator name, rsi."),
		"timeframe":      str("Candle timeframe, for example 1h or 4h."),
		"operator":       map[string]any{"type": "string", "enum": []string{"lt", "gt"}},
		"threshold":      number("Indicator threshold."),
	},
	"required": []string{"type", "asset"},
}
