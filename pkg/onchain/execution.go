package onchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"

	"cryptoanalyst-api/pkg/market"
)

// ExecutionProbe is the subset of an Ethereum JSON-RPC client the snapshot reads.
type ExecutionProbe interface {
	BlockNumber(ctx context.Context) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// DialExecution connects an ethclient to rpcURL.
func DialExecution(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("onchain: dial execution rpc: %w", err)
	}
	return client, nil
}

var gwei = big.NewFloat(1e9)

// ProbeExecution reads the latest block number and suggested gas price.
func ProbeExecution(ctx context.Context, probe ExecutionProbe) (*Execution, error) {
	block, err := probe.BlockNumber(ctx)
	if err != nil {
		return nil, &market.UpstreamError{Provider: "ethereum-rpc", Err: err}
	}
	price, err := probe.SuggestGasPrice(ctx)
	if err != nil {
		return nil, &market.UpstreamError{Provider: "ethereum-rpc", Err: err}
	}
	gasGwei, _ := new(big.Float).Quo(new(big.Float).SetInt(price), gwei).Float64()
	return &Execution{BlockNumber: block, GasPriceGwei: gasGwei}, nil
}
