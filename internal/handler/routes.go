// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"
	"github.com/zeromicro/go-zero/rest/httpx"

	market "cryptoanalyst-api/internal/handler/market"
	user "cryptoanalyst-api/internal/handler/user"
	"cryptoanalyst-api/internal/svc"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	httpx.SetErrorHandlerCtx(ErrorHandler)
	server.AddRoutes(MarketRoutes(serverCtx), rest.WithPrefix("/api/market"))
	server.AddRoutes(UserRoutes(serverCtx), rest.WithPrefix("/api/user"))
}

func MarketRoutes(serverCtx *svc.ServiceContext) []rest.Route {
	return []rest.Route{
		{Method: http.MethodGet, Path: "/overview/:asset", Handler: market.OverviewHandler(serverCtx)},
		{Method: http.MethodGet, Path: "/trending", Handler: market.TrendingHandler(serverCtx)},
		{Method: http.MethodGet, Path: "/compare", Handler: market.CompareHandler(serverCtx)},
		{Method: http.MethodGet, Path: "/compare/advanced", Handler: market.AdvancedCompareHandler(serverCtx)},
		{Method: http.MethodGet, Path: "/pulse", Handler: market.PulseHandler(serverCtx)},
		{Method: http.MethodGet, Path: "/news/:asset", Handler: market.NewsHandler(serverCtx)},
		{Method: http.MethodGet, Path: "/onchain/:asset", Handler: market.OnChainHandler(serverCtx)},
		{Method: http.MethodGet, Path: "/technical/:asset", Handler: market.TechnicalHandler(serverCtx)},
	}
}

func UserRoutes(serverCtx *svc.ServiceContext) []rest.Route {
	return []rest.Route{
		{Method: http.MethodGet, Path: "/:user_id/portfolio", Handler: user.PortfolioHandler(serverCtx)},
		{Method: http.MethodPost, Path: "/portfolio", Handler: user.AddPositionHandler(serverCtx)},
		{Method: http.MethodDelete, Path: "/portfolio", Handler: user.DeletePositionHandler(serverCtx)},
		{Method: http.MethodGet, Path: "/:user_id/watchlist", Handler: user.WatchlistHandler(serverCtx)},
		{Method: http.MethodPost, Path: "/watchlist", Handler: user.AddWatchHandler(serverCtx)},
		{Method: http.MethodDelete, Path: "/watchlist", Handler: user.RemoveWatchHandler(serverCtx)},
		{Method: http.MethodGet, Path: "/:user_id/alerts", Handler: user.AlertsHandler(serverCtx)},
		{Method: http.MethodPost, Path: "/alerts", Handler: user.AddAlertHandler(serverCtx)},
		{Method: http.MethodDelete, Path: "/:user_id/alerts/:alert_id", Handler: user.DeleteAlertHandler(serverCtx)},
		{Method: http.MethodGet, Path: "/:user_id/alerts/history", Handler: user.AlertHistoryHandler(serverCtx)},
	}
}
