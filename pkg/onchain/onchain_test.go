package onchain

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoanalyst-api/pkg/market"
)

func blockchairServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/bitcoin/stats", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"market_cap_usd":          1_000_000_000.0,
				"largest_transaction_24h": map[string]any{"hash": "abc", "value_usd": 5_000_000.0},
				"mempool_tps":             3.5,
				"mempool_transactions":    45_000,
				"transactions_24h":        100_000,
				"hodling_addresses":       52_000_000,
				"best_block_time":         "2024-01-01 00:00:00",
			},
			"context": map[string]any{"time": "2024-01-01 00:01:00"},
		})
	})
	mux.HandleFunc("/ethereum/stats", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":    map[string]any{"market_cap_usd": 0, "transactions_24h": 0},
			"context": map[string]any{"time": "2024-02-02 00:00:00"},
		})
	})
	mux.HandleFunc("/litecoin/stats", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	return httptest.NewServer(mux)
}

func TestSnapshotHeuristics(t *testing.T) {
	var hits atomic.Int32
	srv := blockchairServer(t, &hits)
	defer srv.Close()

	svc, err := NewService(time.Minute, WithBaseURL(srv.URL), WithAPIKey("secret"))
	require.NoError(t, err)

	snap, err := svc.Snapshot(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, "btc", snap.Asset)
	assert.Equal(t, "bitcoin", snap.Network)
	assert.Equal(t, "aggressive accumulation", snap.WhaleActivity.State)
	assert.Equal(t, 0.005, snap.WhaleActivity.Ratio)
	assert.Equal(t, 3.5, snap.WhaleActivity.MempoolTPS)
	assert.Equal(t, "network demand is spiking", snap.NetworkGrowth.State)
	assert.Equal(t, 45.0, snap.NetworkGrowth.HeatPct)
	assert.EqualValues(t, 52_000_000, snap.NetworkGrowth.HodlingAddresses)
	require.NotNil(t, snap.BestBlockTime)
	assert.Equal(t, "2024-01-01 00:00:00", *snap.BestBlockTime)

	again, err := svc.Snapshot(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", again.Asset)
	assert.EqualValues(t, 1, hits.Load(), "second call served from cache")
}

func TestSnapshotFallsBackToContextTime(t *testing.T) {
	var hits atomic.Int32
	srv := blockchairServer(t, &hits)
	defer srv.Close()

	svc, err := NewService(0, WithBaseURL(srv.URL))
	require.NoError(t, err)

	snap, err := svc.Snapshot(context.Background(), "eth")
	require.NoError(t, err)
	assert.Equal(t, "balanced", snap.WhaleActivity.State)
	assert.Equal(t, "activity is subdued", snap.NetworkGrowth.State)
	assert.Equal(t, "2024-02-02 00:00:00", *snap.BestBlockTime)
	assert.Nil(t, snap.Execution)
}

func TestSnapshotErrors(t *testing.T) {
	var hits atomic.Int32
	srv := blockchairServer(t, &hits)
	defer srv.Close()

	svc, err := NewService(0, WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = svc.Snapshot(context.Background(), "solana")
	require.ErrorIs(t, err, market.ErrInvalidInput)
	assert.Contains(t, err.Error(), "on-chain data is not available for solana")
	assert.Zero(t, hits.Load())

	_, err = svc.Snapshot(context.Background(), "ltc")
	var upstream *market.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusServiceUnavailable, upstream.Status)
}

func TestStates(t *testing.T) {
	assert.Equal(t, "steady accumulation", WhaleState(0.002, 1))
	assert.Equal(t, "distribution", WhaleState(0.0001, 1))
	assert.Equal(t, "balanced", WhaleState(0, 0))
	assert.Equal(t, "balanced", WhaleState(0.001, 1))

	assert.Equal(t, "usage is trending higher", GrowthState(25))
	assert.Equal(t, "activity is steady", GrowthState(15))
	assert.Equal(t, "activity is subdued", GrowthState(5))
}

type stubProbe struct {
	block uint64
	gas   *big.Int
	err   error
}

func (p stubProbe) BlockNumber(context.Context) (uint64, error) { return p.block, p.err }

func (p stubProbe) SuggestGasPrice(context.Context) (*big.Int, error) { return p.gas, p.err }

func TestEthereumSnapshotIncludesProbe(t *testing.T) {
	var hits atomic.Int32
	srv := blockchairServer(t, &hits)
	defer srv.Close()

	svc, err := NewService(0, WithBaseURL(srv.URL), WithExecutionProbe(stubProbe{block: 19_000_000, gas: big.NewInt(25_000_000_000)}))
	require.NoError(t, err)

	snap, err := svc.Snapshot(context.Background(), "ethereum")
	require.NoError(t, err)
	require.NotNil(t, snap.Execution)
	assert.EqualValues(t, 19_000_000, snap.Execution.BlockNumber)
	assert.InDelta(t, 25.0, snap.Execution.GasPriceGwei, 1e-9)

	btc, err := svc.Snapshot(context.Background(), "btc")
	require.NoError(t, err)
	assert.Nil(t, btc.Execution, "probe only applies to ethereum")
}

func TestEthereumProbeFailureIsIsolated(t *testing.T) {
	var hits atomic.Int32
	srv := blockchairServer(t, &hits)
	defer srv.Close()

	svc, err := NewService(0, WithBaseURL(srv.URL), WithExecutionProbe(stubProbe{err: errors.New("rpc down")}))
	require.NoError(t, err)

	snap, err := svc.Snapshot(context.Background(), "eth")
	require.NoError(t, err)
	assert.Nil(t, snap.Execution)
	assert.Contains(t, snap.Errors["execution"], "rpc down")
}

func TestDialExecutionAgainstJSONRPC(t *testing.T) {
	rpc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result := map[string]string{
			"eth_blockNumber": "0x10",
			"eth_gasPrice":    "0x3b9aca00",
		}[req.Method]
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	defer rpc.Close()

	client, err := DialExecution(context.Background(), rpc.URL)
	require.NoError(t, err)
	defer client.Close()

	exec, err := ProbeExecution(context.Background(), client)
	require.NoError(t, err)
	assert.EqualValues(t, 16, exec.BlockNumber)
	assert.InDelta(t, 1.0, exec.GasPriceGwei, 1e-9)
}
