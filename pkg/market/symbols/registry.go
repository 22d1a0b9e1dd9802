package symbols

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/syncx"

	"cryptoanalyst-api/pkg/market"
)

const (
	DefaultTTL          = time.Hour
	DefaultRetryBackoff = 2 * time.Minute

	refreshFlightKey = "symbols:refresh"
)

// CommonOverrides pins the most traded tickers to their canonical ids.
var CommonOverrides = map[string]string{
	"btc":   "bitcoin",
	"eth":   "ethereum",
	"sol":   "solana",
	"ada":   "cardano",
	"doge":  "dogecoin",
	"matic": "polygon-pos",
	"dot":   "polkadot",
	"bnb":   "binancecoin",
	"xrp":   "ripple",
	"ltc":   "litecoin",
}

// CoinLister is the slice of the data source the registry needs.
type CoinLister interface {
	ListCoins(ctx context.Context) ([]market.CoinListing, error)
}

// Registry resolves tickers to canonical ids from a periodically rebuilt coin table.
// The table is either empty or complete; a failed rebuild keeps the previous table.
type Registry struct {
	source       CoinLister
	ttl          time.Duration
	retryBackoff time.Duration
	now          func() time.Time
	overrides    map[string]string
	snapshotPath string
	flight       syncx.SingleFlight

	mu        sync.RWMutex
	bySymbol  map[string][]string
	ids       map[string]struct{}
	expiry    time.Time
	fetchedAt time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithTTL overrides how long a loaded table stays fresh.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithRetryBackoff overrides the wait after a failed rebuild.
func WithRetryBackoff(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.retryBackoff = d
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithOverrides adds ticker -> id pins on top of CommonOverrides.
func WithOverrides(overrides map[string]string) Option {
	return func(r *Registry) {
		for symbol, id := range overrides {
			symbol = normalise(symbol)
			id = normalise(id)
			if symbol != "" && id != "" {
				r.overrides[symbol] = id
			}
		}
	}
}

// WithSnapshot enables the on-disk warm start file.
func WithSnapshot(path string) Option {
	return func(r *Registry) {
		r.snapshotPath = strings.TrimSpace(path)
	}
}

// NewRegistry constructs a Registry. When a snapshot path is configured and readable, the
// table is warm-started from it.
func NewRegistry(source CoinLister, opts ...Option) *Registry {
	r := &Registry{
		source:       source,
		ttl:          DefaultTTL,
		retryBackoff: DefaultRetryBackoff,
		now:          time.Now,
		overrides:    make(map[string]string, len(CommonOverrides)),
		flight:       syncx.NewSingleFlight(),
	}
	for symbol, id := range CommonOverrides {
		r.overrides[symbol] = id
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.snapshotPath != "" {
		if err := r.loadSnapshot(); err != nil {
			logx.Errorf("symbols: warm start from %s failed: %v", r.snapshotPath, err)
		}
	}
	return r
}

// Resolve maps each symbol to a canonical id. Blank entries are dropped; an input with no
// usable symbols is rejected.
func (r *Registry) Resolve(ctx context.Context, symbols []string) ([]string, error) {
	cleaned := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if s := normalise(symbol); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return nil, market.InvalidInputf("at least one asset symbol is required")
	}
	resolved := make([]string, 0, len(cleaned))
	for _, symbol := range cleaned {
		resolved = append(resolved, r.resolveOne(ctx, symbol))
	}
	return resolved, nil
}

// ResolveOne resolves a single symbol.
func (r *Registry) ResolveOne(ctx context.Context, symbol string) (string, error) {
	resolved, err := r.Resolve(ctx, []string{symbol})
	if err != nil {
		return "", market.InvalidInputf("unknown asset symbol %q", symbol)
	}
	return resolved[0], nil
}

func (r *Registry) resolveOne(ctx context.Context, symbol string) string {
	if id, ok := r.overrides[symbol]; ok {
		return id
	}
	r.ensureFresh(ctx)

	r.mu.RLock()
	_, known := r.ids[symbol]
	candidates := r.bySymbol[symbol]
	r.mu.RUnlock()

	if known || len(candidates) == 0 {
		return symbol
	}
	choice := pickCandidate(symbol, candidates)
	logx.WithContext(ctx).Debugf("symbols: resolved %s -> %s", symbol, choice)
	return choice
}

// pickCandidate prefers ids starting with the ticker, then the smallest id. Candidates are sorted.
func pickCandidate(symbol string, candidates []string) string {
	for _, candidate := range candidates {
		if strings.HasPrefix(candidate, symbol) {
			return candidate
		}
	}
	return candidates[0]
}

// Ready reports whether a table is loaded.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids) > 0
}

// Size returns the number of known canonical ids.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

func (r *Registry) ensureFresh(ctx context.Context) {
	r.mu.RLock()
	fresh := r.now().Before(r.expiry)
	r.mu.RUnlock()
	if fresh {
		return
	}
	if err := r.Refresh(ctx); err != nil {
		logx.WithContext(ctx).Errorf("symbols: could not refresh coin table: %v", err)
	}
}

// Refresh rebuilds the table. Concurrent callers share one upstream request. On failure the
// previous table is kept and the next attempt is deferred by the retry backoff.
func (r *Registry) Refresh(ctx context.Context) error {
	_, err := r.flight.Do(refreshFlightKey, func() (any, error) {
		return nil, r.refresh(ctx)
	})
	return err
}

func (r *Registry) refresh(ctx context.Context) error {
	coins, err := r.source.ListCoins(ctx)
	now := r.now()
	if err != nil {
		r.mu.Lock()
		r.expiry = now.Add(r.retryBackoff)
		r.mu.Unlock()
		return err
	}
	bySymbol, ids := buildTable(coins)
	r.swap(bySymbol, ids, now)
	logx.WithContext(ctx).Infof("symbols: loaded %d coin identifiers", len(ids))
	if r.snapshotPath != "" {
		if err := r.saveSnapshot(); err != nil {
			logx.WithContext(ctx).Errorf("symbols: write snapshot %s: %v", r.snapshotPath, err)
		}
	}
	return nil
}

func (r *Registry) swap(bySymbol map[string][]string, ids map[string]struct{}, fetchedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bySymbol = bySymbol
	r.ids = ids
	r.fetchedAt = fetchedAt
	r.expiry = fetchedAt.Add(r.ttl)
}

func buildTable(coins []market.CoinListing) (map[string][]string, map[string]struct{}) {
	bySymbol := make(map[string][]string)
	ids := make(map[string]struct{}, len(coins))
	for _, coin := range coins {
		id := normalise(coin.ID)
		symbol := normalise(coin.Symbol)
		if id == "" {
			continue
		}
		ids[id] = struct{}{}
		if symbol != "" {
			bySymbol[symbol] = append(bySymbol[symbol], id)
		}
	}
	for symbol, candidates := range bySymbol {
		sort.Strings(candidates)
		bySymbol[symbol] = dedupeSorted(candidates)
	}
	return bySymbol, ids
}

func dedupeSorted(values []string) []string {
	out := values[:0]
	for i, v := range values {
		if i > 0 && v == values[i-1] {
			continue
		}
		out = append(out, v)
	}
	return out
}

func normalise(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
