package market

import (
	"net/http"
	"strings"

	marketpkg "cryptoanalyst-api/pkg/market"
)

func badRequest(err error) error {
	return marketpkg.InvalidInputf("%v", err)
}

// queryList collects a repeated query parameter; comma separated values are split too.
func queryList(r *http.Request, name string) []string {
	var out []string
	for _, raw := range r.URL.Query()[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
