package handler

import (
	"context"
	"net/http"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoanalyst-api/internal/types"
	"cryptoanalyst-api/pkg/market"
)

// ErrorHandler maps domain errors onto HTTP statuses with a {"error": msg} body.
func ErrorHandler(ctx context.Context, err error) (int, any) {
	switch {
	case market.IsInvalidInput(err):
		return http.StatusBadRequest, types.ErrorResponse{Error: err.Error()}
	case market.IsUpstream(err):
		logx.WithContext(ctx).Errorf("upstream failure: %v", err)
		return http.StatusBadGateway, types.ErrorResponse{Error: err.Error()}
	default:
		logx.WithContext(ctx).Errorf("request failed: %v", err)
		return http.StatusInternalServerError, types.ErrorResponse{Error: err.Error()}
	}
}
