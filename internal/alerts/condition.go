package alerts

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"cryptoanalyst-api/pkg/market"
)

const (
	TypePriceMove          = "price_move"
	TypeIndicatorThreshold = "indicator_threshold"

	StatusArmed       = "armed"
	StatusTriggered   = "triggered"
	StatusUnsupported = "unsupported"

	DirectionDrop = "drop"
	DirectionRise = "rise"

	OperatorLT = "lt"
	OperatorGT = "gt"

	// AllPositions targets every asset held in the user's portfolio.
	AllPositions = "*"

	DefaultWindowMinutes = 60
	MinWindowMinutes     = 5
	MaxWindowMinutes     = 1440
	MinPercentage        = 0.1
	MaxPercentage        = 100
	maxAssetLength       = 32
)

// Condition is the stored JSON form of an alert condition.
type Condition struct {
	Type          string   `json:"type"`
	Asset         string   `json:"asset"`
	WindowMinutes *int     `json:"window_minutes,omitempty"`
	Percentage    *float64 `json:"percentage,omitempty"`
	Direction     string   `json:"direction,omitempty"`
	Indicator     string   `json:"indicator,omitempty"`
	Timeframe     string   `json:"timeframe,omitempty"`
	Operator      string   `json:"operator,omitempty"`
	Threshold     *float64 `json:"threshold,omitempty"`
}

// Validate checks a condition before it is stored.
func (c Condition) Validate() error {
	switch c.Type {
	case TypePriceMove, TypeIndicatorThreshold:
	default:
		return market.InvalidInputf("condition type must be %s or %s", TypePriceMove, TypeIndicatorThreshold)
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(c.Asset)); n < 1 || n > maxAssetLength {
		return market.InvalidInputf("condition asset must be 1-%d characters", maxAssetLength)
	}
	if c.WindowMinutes != nil && (*c.WindowMinutes < MinWindowMinutes || *c.WindowMinutes > MaxWindowMinutes) {
		return market.InvalidInputf("window_minutes must be between %d and %d", MinWindowMinutes, MaxWindowMinutes)
	}
	if c.Percentage != nil && (*c.Percentage < MinPercentage || *c.Percentage > MaxPercentage) {
		return market.InvalidInputf("percentage must be between %v and %v", MinPercentage, MaxPercentage)
	}
	if c.Direction != "" && c.Direction != DirectionDrop && c.Direction != DirectionRise {
		return market.InvalidInputf("direction must be %s or %s", DirectionDrop, DirectionRise)
	}
	if c.Operator != "" && c.Operator != OperatorLT && c.Operator != OperatorGT {
		return market.InvalidInputf("operator must be %s or %s", OperatorLT, OperatorGT)
	}
	return nil
}

// Rule is the evaluable form of a stored condition: PriceMove, IndicatorThreshold or Unsupported.
type Rule interface {
	rule()
}

// PriceMove triggers when an asset moves by Percentage within the trailing window.
type PriceMove struct {
	Asset         string
	Direction     string
	Percentage    float64
	WindowMinutes int
}

// IndicatorThreshold compares an indicator reading against Threshold.
type IndicatorThreshold struct {
	Asset     string
	Indicator string
	Timeframe string
	Operator  string
	Threshold float64
}

// Unsupported keeps a condition of unknown type so it is preserved untouched.
type Unsupported struct {
	Type string
}

func (PriceMove) rule()          {}
func (IndicatorThreshold) rule() {}
func (Unsupported) rule()        {}

// ParseRule decodes a stored condition and fills in defaults. Anything that does not decode as a
// known type becomes Unsupported.
func ParseRule(raw json.RawMessage) Rule {
	var c Condition
	if err := json.Unmarshal(raw, &c); err != nil {
		return Unsupported{}
	}
	switch c.Type {
	case TypePriceMove:
		r := PriceMove{
			Asset:         strings.TrimSpace(c.Asset),
			Direction:     c.Direction,
			WindowMinutes: DefaultWindowMinutes,
		}
		if r.Asset == "" {
			r.Asset = AllPositions
		}
		if r.Direction == "" {
			r.Direction = DirectionDrop
		}
		if c.Percentage != nil {
			r.Percentage = *c.Percentage
		}
		if c.WindowMinutes != nil && *c.WindowMinutes > 0 {
			r.WindowMinutes = *c.WindowMinutes
		}
		return r
	case TypeIndicatorThreshold:
		r := IndicatorThreshold{
			Asset:     strings.TrimSpace(c.Asset),
			Indicator: c.Indicator,
			Timeframe: c.Timeframe,
			Operator:  c.Operator,
		}
		if r.Indicator == "" {
			r.Indicator = "rsi"
		}
		if r.Timeframe == "" {
			r.Timeframe = "4h"
		}
		if r.Operator == "" {
			r.Operator = OperatorLT
		}
		if c.Threshold != nil {
			r.Threshold = *c.Threshold
		}
		return r
	default:
		return Unsupported{Type: c.Type}
	}
}
