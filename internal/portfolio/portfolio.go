package portfolio

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"

	"cryptoanalyst-api/internal/store"
	"cryptoanalyst-api/pkg/market"
)

// QuoteReader resolves tickers and prices canonical ids.
type QuoteReader interface {
	ResolveSymbol(ctx context.Context, asset string) (string, error)
	Quotes(ctx context.Context, assets []string, currency string) ([]market.PriceQuote, error)
}

// StateStore is the user-state persistence the service writes through.
type StateStore interface {
	Get(userID string) (*store.UserState, error)
	Update(userID string, fn func(*store.UserState) error) (*store.UserState, error)
}

// Service manages holdings and watchlists and values portfolios against live quotes.
type Service struct {
	store  StateStore
	quotes QuoteReader
	now    func() time.Time
}

type Option func(*Service)

// WithClock overrides the clock used for added_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(st StateStore, quotes QuoteReader, opts ...Option) *Service {
	s := &Service{store: st, quotes: quotes, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewID returns an opaque 32-character hex token.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// AddPosition records a new holding under the asset's canonical id.
func (s *Service) AddPosition(ctx context.Context, userID, asset string, amount, costBasis float64) (*store.Position, error) {
	if amount <= 0 {
		return nil, market.InvalidInputf("amount must be positive")
	}
	if costBasis <= 0 {
		return nil, market.InvalidInputf("cost_basis must be positive")
	}
	id, err := s.quotes.ResolveSymbol(ctx, asset)
	if err != nil {
		return nil, err
	}
	pos := store.Position{
		ID:        NewID(),
		Asset:     id,
		Amount:    amount,
		CostBasis: costBasis,
		AddedAt:   s.now().UTC().Format(time.RFC3339Nano),
	}
	_, err = s.store.Update(userID, func(u *store.UserState) error {
		u.Portfolio.Positions = append(u.Portfolio.Positions, pos)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logx.WithContext(ctx).Infof("portfolio: added position user=%s asset=%s id=%s", userID, id, pos.ID)
	return &pos, nil
}

// DeletePosition removes a holding by id. It reports whether anything was removed.
func (s *Service) DeletePosition(ctx context.Context, userID, positionID string) (bool, error) {
	removed := false
	_, err := s.store.Update(userID, func(u *store.UserState) error {
		kept := u.Portfolio.Positions[:0:0]
		for _, p := range u.Portfolio.Positions {
			if p.ID == positionID {
				removed = true
				continue
			}
			kept = append(kept, p)
		}
		u.Portfolio.Positions = kept
		return nil
	})
	if err != nil {
		return false, err
	}
	logx.WithContext(ctx).Infof("portfolio: delete position user=%s id=%s removed=%t", userID, positionID, removed)
	return removed, nil
}

// Watchlist returns the user's watched canonical ids.
func (s *Service) Watchlist(userID string) ([]string, error) {
	state, err := s.store.Get(userID)
	if err != nil {
		return nil, err
	}
	return state.Watchlist, nil
}

// AddWatch adds the asset's canonical id to the watchlist once.
func (s *Service) AddWatch(ctx context.Context, userID, asset string) ([]string, error) {
	id, err := s.quotes.ResolveSymbol(ctx, asset)
	if err != nil {
		return nil, err
	}
	state, err := s.store.Update(userID, func(u *store.UserState) error {
		if !slices.Contains(u.Watchlist, id) {
			u.Watchlist = append(u.Watchlist, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state.Watchlist, nil
}

// RemoveWatch drops the asset's canonical id from the watchlist.
func (s *Service) RemoveWatch(ctx context.Context, userID, asset string) ([]string, error) {
	id, err := s.quotes.ResolveSymbol(ctx, asset)
	if err != nil {
		return nil, err
	}
	state, err := s.store.Update(userID, func(u *store.UserState) error {
		u.Watchlist = slices.DeleteFunc(u.Watchlist, func(w string) bool { return w == id })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state.Watchlist, nil
}

// PositionValue is one valued holding.
type PositionValue struct {
	ID           string  `json:"id"`
	Asset        string  `json:"asset"`
	Amount       float64 `json:"amount"`
	CostBasis    float64 `json:"cost_basis"`
	CurrentPrice float64 `json:"current_price"`
	CurrentValue float64 `json:"current_value"`
	PnLAbs       float64 `json:"pnl_abs"`
	PnLPct       float64 `json:"pnl_pct"`
}

type Totals struct {
	Invested float64 `json:"invested"`
	Value    float64 `json:"value"`
	PnLAbs   float64 `json:"pnl_abs"`
	PnLPct   float64 `json:"pnl_pct"`
}

// Allocation is a position's share of the portfolio value.
type Allocation struct {
	Asset     string  `json:"asset"`
	Value     float64 `json:"value"`
	WeightPct float64 `json:"weight_pct"`
}

// Summary is the valued portfolio of one user.
type Summary struct {
	UserID    string            `json:"user_id"`
	Currency  string            `json:"currency"`
	Positions []PositionValue   `json:"positions"`
	Totals    Totals            `json:"totals"`
	Breakdown []Allocation      `json:"breakdown"`
	Watchlist []string          `json:"watchlist"`
	Errors    map[string]string `json:"errors,omitempty"`
}

var hundred = decimal.NewFromInt(100)

// Summary values every position at the live price. A missing quote values the position at zero;
// a failed quote fetch does the same for all positions and is reported under errors.quotes.
func (s *Service) Summary(ctx context.Context, userID, currency string) (*Summary, error) {
	if currency == "" {
		currency = "usd"
	}
	state, err := s.store.Get(userID)
	if err != nil {
		return nil, err
	}
	out := &Summary{
		UserID:    userID,
		Currency:  currency,
		Positions: make([]PositionValue, 0, len(state.Portfolio.Positions)),
		Breakdown: make([]Allocation, 0, len(state.Portfolio.Positions)),
		Watchlist: state.Watchlist,
	}

	prices, err := s.prices(ctx, state.Portfolio.Positions, currency)
	if err != nil {
		logx.WithContext(ctx).Errorf("portfolio: quotes failed user=%s: %v", userID, err)
		out.Errors = map[string]string{"quotes": err.Error()}
	}

	values := make([]decimal.Decimal, 0, len(state.Portfolio.Positions))
	totalValue, totalCost := decimal.Zero, decimal.Zero
	for _, pos := range state.Portfolio.Positions {
		price := prices[pos.Asset]
		amount := decimal.NewFromFloat(pos.Amount)
		value := price.Mul(amount)
		cost := amount.Mul(decimal.NewFromFloat(pos.CostBasis))
		pnl := value.Sub(cost)
		totalValue = totalValue.Add(value)
		totalCost = totalCost.Add(cost)
		values = append(values, value)
		out.Positions = append(out.Positions, PositionValue{
			ID:           pos.ID,
			Asset:        pos.Asset,
			Amount:       pos.Amount,
			CostBasis:    pos.CostBasis,
			CurrentPrice: price.InexactFloat64(),
			CurrentValue: value.InexactFloat64(),
			PnLAbs:       pnl.InexactFloat64(),
			PnLPct:       percentOf(pnl, cost),
		})
	}

	change := totalValue.Sub(totalCost)
	out.Totals = Totals{
		Invested: totalCost.InexactFloat64(),
		Value:    totalValue.InexactFloat64(),
		PnLAbs:   change.InexactFloat64(),
		PnLPct:   percentOf(change, totalCost),
	}
	for i, row := range out.Positions {
		out.Breakdown = append(out.Breakdown, Allocation{
			Asset:     row.Asset,
			Value:     row.CurrentValue,
			WeightPct: percentOf(values[i], totalValue),
		})
	}
	return out, nil
}

// prices maps each stored asset to its live price. Stored assets go through the resolver so
// records written under a ticker still find their quote.
func (s *Service) prices(ctx context.Context, positions []store.Position, currency string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)
	if len(positions) == 0 {
		return prices, nil
	}
	seen := make(map[string]bool)
	stored := make([]string, 0, len(positions))
	for _, p := range positions {
		if !seen[p.Asset] {
			seen[p.Asset] = true
			stored = append(stored, p.Asset)
		}
	}
	sort.Strings(stored)

	canonical := make(map[string]string, len(stored))
	ids := make([]string, 0, len(stored))
	for _, asset := range stored {
		id, err := s.quotes.ResolveSymbol(ctx, asset)
		if err != nil {
			id = asset
		}
		canonical[asset] = id
		ids = append(ids, id)
	}

	quotes, err := s.quotes.Quotes(ctx, ids, currency)
	if err != nil {
		return prices, err
	}
	byID := make(map[string]float64, len(quotes))
	for _, q := range quotes {
		byID[q.Asset] = q.Price
	}
	for asset, id := range canonical {
		if price, ok := byID[id]; ok {
			prices[asset] = decimal.NewFromFloat(price)
		}
	}
	return prices, nil
}

func percentOf(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).InexactFloat64()
}
