// Package tools exposes the market and user operations as function tools for a chat model.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"cryptoanalyst-api/internal/logic"
	"cryptoanalyst-api/internal/svc"
	"cryptoanalyst-api/internal/types"
	"cryptoanalyst-api/pkg/market"
)

type callFunc func(ctx context.Context, svcCtx *svc.ServiceContext, args json.RawMessage) (any, error)

// Tool is one callable operation with its JSON schema.
type Tool struct {
	Name        string
	Description string
	Parameters  shared.FunctionParameters
	call        callFunc
}

// Param renders the tool as an OpenAI function tool definition.
func (t Tool) Param() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Function: shared.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  t.Parameters,
		},
	}
}

// bind decodes the raw arguments into A before calling fn. Empty arguments decode to the zero A.
func bind[A any](fn func(context.Context, *svc.ServiceContext, A) (any, error)) callFunc {
	return func(ctx context.Context, svcCtx *svc.ServiceContext, raw json.RawMessage) (any, error) {
		var args A
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, market.InvalidInputf("malformed arguments: %v", err)
			}
		}
		return fn(ctx, svcCtx, args)
	}
}

type currencyArgs struct {
	Currency string `json:"currency"`
}

type assetArgs struct {
	Asset    string `json:"asset"`
	Currency string `json:"currency"`
}

type lookbackArgs struct {
	Asset        string `json:"asset"`
	Currency     string `json:"currency"`
	LookbackDays int    `json:"lookback_days"`
}

type assetsArgs struct {
	Assets   []string `json:"assets"`
	Currency string   `json:"currency"`
}

type compareArgs struct {
	Base     string   `json:"base"`
	Targets  []string `json:"targets"`
	Currency string   `json:"currency"`
}

type technicalArgs struct {
	Asset     string `json:"asset"`
	Indicator string `json:"indicator"`
	Timeframe string `json:"timeframe"`
	Currency  string `json:"currency"`
}

type trendingArgs struct {
	Limit int `json:"limit"`
}

type userArgs struct {
	UserID   string `json:"user_id"`
	Currency string `json:"currency"`
}

type alertDeleteArgs struct {
	UserID  string `json:"user_id"`
	AlertID string `json:"alert_id"`
}

// Catalogue lists every tool, sorted by name.
func Catalogue() []Tool {
	tools := []Tool{
		{
			Name:        "market_pulse",
			Description: "Return a global view of market cap, movers, category performance, news and sentiment.",
			Parameters:  object(map[string]any{"currency": currencyProp}),
			call: bind(func(ctx context.Context, s *svc.ServiceContext, a currencyArgs) (any, error) {
				return logic.NewMarketLogic(ctx, s).Pulse(a.Currency)
			}),
		},
		{
			Name:        "asset_intel",
			Description: "Return price, fundamentals, news, sentiment and on-chain context for an asset.",
			Parameters:  object(map[string]any{"asset": assetProp, "currency": currencyProp}, "asset"),
			call: bind(func(ctx context.Context, s *svc.ServiceContext, a assetArgs) (any, error) {
				return logic.NewMarketLogic(ctx, s).AssetIntel(a.Asset, a.Currency)
			}),
		},
		{
			Name:        "get_price_quotes",
			Description: "Return latest price, market cap and 24h change for the requested assets.",
			Parameters:  object(map[string]any{"assets": strList("Assets to quote."), "currency": currencyProp}, "assets"),
			call: bind(func(ctx context.Context, s *svc.ServiceContext, a assetsArgs) (any, error) {
				return logic.NewMarketLogic(ctx, s).Quotes(a.Assets, a.Currency)
			}),
		},
		{
			Name:        "compare_assets",
			Description: "Compare the base asset price against up to ten targets.",
			Parameters: object(map[string]any{
				"base":     assetProp,
				"targets":  strList("Assets to compare against the base."),
				"currency": currencyProp,
			}, "base", "targets"),
			call: bind(func(ctx context.Context, s *svc.ServiceContext, a compareArgs) (any, error) {
				return logic.NewMarketLogic(ctx, s).Compare(a.Base, a.Targets, a.Currency)
			}),
		},
		{
			Name:        "advanced_compare",
			Description: "Return a multi-metric comparison (TPS, dev activity, 90d performance) of two or more assets.",
			Parameters:  object(map[string]any{"assets": strList("At least two assets."), "currency": currencyProp}, "assets"),
			call: bind(func(ctx context.Context, s *svc.ServiceContext, a assetsArgs) (any, error) {
				return logic.NewMarketLogic(ctx, s).AdvancedCompare(a.Assets, a.Currency)
			}),
		},
		{
			Name:        "technical_analysis",
			Description: "Return an indicator reading (rsi or macd) with its candlestick series.",
			Parameters: object(map[string]any{
				"asset":     assetProp,
				"indicator": map[string]any{"type": "string", "enum": []string{"rsi", "macd"}},
				"timeframe": map[string]any{"type": "string", "enum": []string{"1h", "2h", "4h", "6h", "12h", "1d"}},
				"currency":  currencyProp,
			}, "asset"),
			call: bind(func(ctx context.Context, s *svc.ServiceContext, a technicalArgs) (any, error) {
				return logic.NewMarketLogic(ctx, s).Technical(a.Asset, a.Indicator, a.Timeframe, a.Currency)
			}),
		},
		{
			Name:        "fundamentals_snapshot",
			Description: "Return recent price, market cap and volume stats for the asset.",
			Parameters: object(map[string]any{
				"asset": assetProp, "currency": currencyProp,
				"lookback_days": integer("History window in days.", 1, 90),
			}, "asset"),
			call: bind(func(ctx context.Context, s *svc.ServiceContext, a lookbackArgs) (any, error) {
				return logic.NewMarketLogic(ctx, s).Fundamentals(a.Asset, a.Currency, a.LookbackDays)
			}),
		},
		{
			Name:        "asset_overview",
			Description: "Return a comprehensive view of an asset: price, change, market cap, supply and window stats.",
			Parameters: object(map[string]any{
				"asset": assetProp, "currency": currencyProp,
				"lookback_days": integer("History window in days.", 1, 90),
			}, "asset"),
			call: bind(func(ctx context.Context, s *svc.ServiceContext, a lookbackArgs) (any, error) {
				return logic.NewMarketLogic(ctx, s).Overview(a.Asset, a.Currency, a.LookbackDays)
			}),
		},
		{
			Name:        "onchain_activity",
			Description: "Return whale and network growth heuristics for BTC and ETH family chains.",
			Parameters:  object(map[string]any{"asset": assetProp}, "asset"),
			call: bind(func(ctx context.Context, s *svc.ServiceContext, a assetArgs) (any, error) {
				return logic.NewMarketLogic(ctx, s).OnChain(a.Asset)
			}),
		},
		{
			Name:        "resolve_symbol",
			Description: "Map a ticker or name onto its canonical CoinGecko id.",
			Parameters:  object(map[string]any{"asset": assetProp}, "asset"),
			call: bind(func(ctx context.Context, s *svc.ServiceContext, a assetArgs) (any, error) {
				return logic.NewMarketLogic(ctx, s).Resolve(a.Asset)
			}),
		},
		{
			Name:        "get_trending",
			Description: "Return the coins trending in search right now.",
			Parameters:  object(map[string]any{"limit": integer("Maximum entries.", 1, 15)}),
			call: bind(func(ctx context.Context, s *svc.ServiceContext, a trendingArgs) (any, error) {
				return logic.NewMarketLogic(ctx, s).Trending(a.Limit)
			}),
		},
		{
			Name:        "portfolio_snapshot",
			Description: "Return holdings, totals and allocation breakdown for a user.",
			Parameters:  object(map[string]any{"user_id": userProp, "currency": currencyProp}, "user_id"),
			call: bind(func(ctx context.Context, s *svc.ServiceContext, a userArgs) (any, error) {
				return logic.NewUserLogic(ctx, s).Portfolio(a.UserID, a.Currency)
			}),
		},
		{
			Name:        "watchlist_status",
			Description: "Return the user's pinned watchlist symbols.",
			Parameters:  object(map[string]any{"user_id": userProp}, "user_id"),
			call: bind(func(ctx context.Context, s *svc.ServiceContext, a userArgs) (any, error) {
				return logic.NewUserLogic(ctx, s).Watchlist(a.UserID)
			}),
		},
		{
			Name:        "watchlist_add",
			Description: "Pin an asset to the user's watchlist.",
			Parameters:  object(map[string]any{"user_id": userProp, "asset": assetProp}, "user_id", "asset"),
			call: bind(func(ctx context.Context, s *svc.ServiceContext, a types.WatchlistRequest) (any, error) {
				return logic.NewUserLogic(ctx, s).AddWatch(&a)
			}),
		},
		{
			Name:        "watchlist_remove",
			Description: "Remove an asset from the user's watchlist.",
			Parameters:  object(map[string]any{"user_id": userProp, "asset": assetProp}, "user_id", "asset"),
			call: bind(func(ctx context.Context, s *svc.ServiceContext, a types.WatchlistRequest) (any, error) {
				return logic.NewUserLogic(ctx, s).RemoveWatch(&a)
			}),
		},
		{
			Name:        "alert_add",
			Description: "Create a price move or indicator threshold alert for the user.",
			Parameters: object(map[string]any{
				"user_id":     userProp,
				"description": str("Short label, 3-160 characters."),
				"condition":   conditionProp,
			}, "user_id", "description", "condition"),
			call: bind(func(ctx context.Context, s *svc.ServiceContext, a types.AddAlertRequest) (any, error) {
				return logic.NewUserLogic(ctx, s).AddAlert(&a)
			}),
		},
		{
			Name:        "alert_delete",
			Description: "Delete one of the user's alerts.",
			Parameters:  object(map[string]any{"user_id": userProp, "alert_id": str("Alert id.")}, "user_id", "alert_id"),
			call: bind(func(ctx context.Context, s *svc.ServiceContext, a alertDeleteArgs) (any, error) {
				return logic.NewUserLogic(ctx, s).DeleteAlert(a.UserID, a.AlertID)
			}),
		},
		{
			Name:        "alert_status",
			Description: "Evaluate pending alerts (price moves, indicator thresholds).",
			Parameters:  object(map[string]any{"user_id": userProp, "currency": currencyProp}, "user_id"),
			call: bind(func(ctx context.Context, s *svc.ServiceContext, a userArgs) (any, error) {
				return logic.NewUserLogic(ctx, s).Alerts(a.UserID, a.Currency)
			}),
		},
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// Definitions returns the catalogue as OpenAI tool params.
func Definitions() []openai.ChatCompletionToolParam {
	catalogue := Catalogue()
	out := make([]openai.ChatCompletionToolParam, 0, len(catalogue))
	for _, t := range catalogue {
		out = append(out, t.Param())
	}
	return out
}

// Lookup finds a tool by name.
func Lookup(name string) (Tool, error) {
	for _, t := range Catalogue() {
		if t.Name == name {
			return t, nil
		}
	}
	return Tool{}, fmt.Errorf("unknown tool %q", name)
}
