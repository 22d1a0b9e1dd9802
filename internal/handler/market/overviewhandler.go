// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package market

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"cryptoanalyst-api/internal/logic"
	"cryptoanalyst-api/internal/svc"
	"cryptoanalyst-api/internal/types"
)

func OverviewHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.OverviewRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, badRequest(err))
			return
		}

		l := logic.NewMarketLogic(r.Context(), svcCtx)
		resp, err := l.Overview(req.Asset, req.Currency, req.LookbackDays)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
