package user

import "cryptoanalyst-api/pkg/market"

func badRequest(err error) error {
	return market.InvalidInputf("%v", err)
}
