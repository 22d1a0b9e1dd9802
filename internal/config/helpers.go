package config

import (
	"cryptoanalyst-api/pkg/market"
)

// MustLoadMarket loads etc/market.yaml from the project root and panics on error.
// Used when the main config does not point at a market section file.
func MustLoadMarket() *market.Config {
	return market.MustLoad()
}

// MarketConfig returns the hydrated market section, falling back to the project default.
func (c *Config) MarketConfig() *market.Config {
	if c != nil && c.Market.Value != nil {
		return c.Market.Value
	}
	return MustLoadMarket()
}
