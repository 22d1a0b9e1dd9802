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

// CompareHandler reads targets from the repeated targets query parameter.
func CompareHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CompareRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, badRequest(err))
			return
		}

		req.Targets = queryList(r, "targets")
		l := logic.NewMarketLogic(r.Context(), svcCtx)
		resp, err := l.Compare(req.Base, req.Targets, req.Currency)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
