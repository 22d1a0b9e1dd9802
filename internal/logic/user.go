package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoanalyst-api/internal/alerts"
	"cryptoanalyst-api/internal/portfolio"
	"cryptoanalyst-api/internal/store"
	"cryptoanalyst-api/internal/svc"
	"cryptoanalyst-api/internal/types"
	"cryptoanalyst-api/pkg/market"
)

const statusDeleted = "deleted"

// UserLogic serves portfolio, watchlist and alert operations.
type UserLogic struct {
	common
}

func NewUserLogic(ctx context.Context, svcCtx *svc.ServiceContext) *UserLogic {
	return &UserLogic{common{Logger: logx.WithContext(ctx), ctx: ctx, svcCtx: svcCtx}}
}

func (l *UserLogic) Portfolio(userID, currency string) (*portfolio.Summary, error) {
	userID, err := validUserID(userID)
	if err != nil {
		return nil, err
	}
	if currency, err = l.currency(currency); err != nil {
		return nil, err
	}
	return l.svcCtx.Portfolio.Summary(l.ctx, userID, currency)
}

func (l *UserLogic) AddPosition(req *types.AddPositionRequest) (*store.Position, error) {
	userID, err := validUserID(req.UserID)
	if err != nil {
		return nil, err
	}
	asset, err := validAsset(req.Position.Asset, 2)
	if err != nil {
		return nil, err
	}
	return l.svcCtx.Portfolio.AddPosition(l.ctx, userID, asset, req.Position.Amount, req.Position.CostBasis)
}

// DeletePosition reports "deleted" whether or not the id existed.
func (l *UserLogic) DeletePosition(req *types.DeletePositionRequest) (*types.StatusResponse, error) {
	userID, err := validUserID(req.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := l.svcCtx.Portfolio.DeletePosition(l.ctx, userID, req.PositionID); err != nil {
		return nil, err
	}
	return &types.StatusResponse{Status: statusDeleted}, nil
}

func (l *UserLogic) Watchlist(userID string) (*types.WatchlistResponse, error) {
	userID, err := validUserID(userID)
	if err != nil {
		return nil, err
	}
	list, err := l.svcCtx.Portfolio.Watchlist(userID)
	if err != nil {
		return nil, err
	}
	return &types.WatchlistResponse{UserID: userID, Watchlist: list}, nil
}

func (l *UserLogic) AddWatch(req *types.WatchlistRequest) (*types.WatchlistResponse, error) {
	return l.changeWatch(req, l.svcCtx.Portfolio.AddWatch)
}

func (l *UserLogic) RemoveWatch(req *types.WatchlistRequest) (*types.WatchlistResponse, error) {
	return l.changeWatch(req, l.svcCtx.Portfolio.RemoveWatch)
}

func (l *UserLogic) changeWatch(req *types.WatchlistRequest, apply func(context.Context, string, string) ([]string, error)) (*types.WatchlistResponse, error) {
	userID, err := validUserID(req.UserID)
	if err != nil {
		return nil, err
	}
	asset, err := validAsset(req.Asset, 2)
	if err != nil {
		return nil, err
	}
	list, err := apply(l.ctx, userID, asset)
	if err != nil {
		return nil, err
	}
	return &types.WatchlistResponse{UserID: userID, Watchlist: list}, nil
}

// Alerts evaluates and returns the user's alerts.
func (l *UserLogic) Alerts(userID, currency string) (*types.AlertsResponse, error) {
	userID, err := validUserID(userID)
	if err != nil {
		return nil, err
	}
	if currency, err = l.currency(currency); err != nil {
		return nil, err
	}
	evaluated, err := l.svcCtx.Alerts.Evaluate(l.ctx, userID, currency)
	if err != nil {
		return nil, err
	}
	if evaluated == nil {
		evaluated = []store.Alert{}
	}
	return &types.AlertsResponse{UserID: userID, Alerts: evaluated}, nil
}

func (l *UserLogic) AddAlert(req *types.AddAlertRequest) (*store.Alert, error) {
	userID, err := validUserID(req.UserID)
	if err != nil {
		return nil, err
	}
	if err := checkLength("description", req.Description, 3, 160); err != nil {
		return nil, err
	}
	c := req.Condition
	return l.svcCtx.Alerts.Add(l.ctx, userID, req.Description, alerts.Condition{
		Type:          c.Type,
		Asset:         c.Asset,
		WindowMinutes: c.WindowMinutes,
		Percentage:    c.Percentage,
		Direction:     c.Direction,
		Indicator:     c.Indicator,
		Timeframe:     c.Timeframe,
		Operator:      c.Operator,
		Threshold:     c.Threshold,
	})
}

// DeleteAlert reports "deleted" whether or not the id existed.
func (l *UserLogic) DeleteAlert(userID, alertID string) (*types.StatusResponse, error) {
	userID, err := validUserID(userID)
	if err != nil {
		return nil, err
	}
	if _, err := l.svcCtx.Alerts.Delete(l.ctx, userID, alertID); err != nil {
		return nil, err
	}
	return &types.StatusResponse{Status: statusDeleted}, nil
}

func (l *UserLogic) AlertHistory(userID string, limit int) (*types.AlertHistoryResponse, error) {
	userID, err := validUserID(userID)
	if err != nil {
		return nil, err
	}
	if l.svcCtx.Recorder == nil {
		return nil, market.InvalidInputf("alert history is not enabled")
	}
	history, err := l.svcCtx.Recorder.History(l.ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return &types.AlertHistoryResponse{UserID: userID, History: history}, nil
}
