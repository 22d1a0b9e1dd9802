package types

import (
	"cryptoanalyst-api/internal/recorder"
	"cryptoanalyst-api/internal/store"
	"cryptoanalyst-api/pkg/insight"
	"cryptoanalyst-api/pkg/market"
	"cryptoanalyst-api/pkg/market/analytics"
	"cryptoanalyst-api/pkg/news"
)

// --- Market requests ---------------------------------------------------------

type OverviewRequest struct {
	Asset        string `path:"asset"`
	Currency     string `form:"currency,optional"`
	LookbackDays int    `form:"lookback_days,default=7"`
}

type CurrencyRequest struct {
	Currency string `form:"currency,optional"`
}

type CompareRequest struct {
	Base     string `form:"base,optional"`
	Currency string `form:"currency,optional"`
	// Targets come from the repeated targets query parameter.
	Targets []string `form:"-"`
}

type AdvancedCompareRequest struct {
	Currency string   `form:"currency,optional"`
	Assets   []string `form:"-"`
}

type NewsRequest struct {
	Asset string `path:"asset"`
	Limit int    `form:"limit,default=3"`
}

type AssetRequest struct {
	Asset string `path:"asset"`
}

type TechnicalRequest struct {
	Asset     string `path:"asset"`
	Indicator string `form:"indicator,optional"`
	Timeframe string `form:"timeframe,optional"`
	Currency  string `form:"currency,optional"`
}

// --- Market responses --------------------------------------------------------

type TrendingResponse struct {
	Trending []market.TrendingCoin `json:"trending"`
}

type CompareResponse struct {
	Base        string                 `json:"base"`
	Currency    string                 `json:"currency"`
	Comparisons []analytics.Comparison `json:"comparisons"`
}

type QuotesResponse struct {
	Quotes   []market.PriceQuote `json:"quotes"`
	Currency string              `json:"currency"`
}

type NewsResponse struct {
	Asset     string             `json:"asset"`
	News      []insight.Headline `json:"news"`
	Sentiment news.Sentiment     `json:"sentiment"`
}

type ResolveResponse struct {
	Asset string `json:"asset"`
	ID    string `json:"id"`
}

// --- User requests -----------------------------------------------------------

type UserRequest struct {
	UserID   string `path:"user_id"`
	Currency string `form:"currency,optional"`
}

type PositionInput struct {
	Asset     string  `json:"asset"`
	Amount    float64 `json:"amount"`
	CostBasis float64 `json:"cost_basis"`
}

type AddPositionRequest struct {
	UserID   string        `json:"user_id"`
	Position PositionInput `json:"position"`
}

type DeletePositionRequest struct {
	UserID     string `json:"user_id"`
	PositionID string `json:"position_id"`
}

type WatchlistRequest struct {
	UserID string `json:"user_id"`
	Asset  string `json:"asset"`
}

type AlertConditionInput struct {
	Type          string   `json:"type"`
	Asset         string   `json:"asset"`
	WindowMinutes *int     `json:"window_minutes,optional"`
	Percentage    *float64 `json:"percentage,optional"`
	Direction     string   `json:"direction,optional"`
	Indicator     string   `json:"indicator,optional"`
	Timeframe     string   `json:"timeframe,optional"`
	Operator      string   `json:"operator,optional"`
	Threshold     *float64 `json:"threshold,optional"`
}

type AddAlertRequest struct {
	UserID      string              `json:"user_id"`
	Description string              `json:"description"`
	Condition   AlertConditionInput `json:"condition"`
}

type DeleteAlertRequest struct {
	UserID  string `path:"user_id"`
	AlertID string `path:"alert_id"`
}

type AlertHistoryRequest struct {
	UserID string `path:"user_id"`
	Limit  int    `form:"limit,default=50"`
}

// --- User responses ----------------------------------------------------------

type StatusResponse struct {
	Status string `json:"status"`
}

type WatchlistResponse struct {
	UserID    string   `json:"user_id"`
	Watchlist []string `json:"watchlist"`
}

type AlertsResponse struct {
	UserID string        `json:"user_id"`
	Alerts []store.Alert `json:"alerts"`
}

type AlertHistoryResponse struct {
	UserID  string           `json:"user_id"`
	History []recorder.Entry `json:"history"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
