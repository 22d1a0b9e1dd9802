package svc

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoanalyst-api/internal/config"
	marketpkg "cryptoanalyst-api/pkg/market"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	c := config.Config{
		Env:             "test",
		DefaultCurrency: "usd",
		DataStorePath:   filepath.Join(dir, "agent_state.json"),
		RequestTimeout:  5,
		Recorder:        config.RecorderConf{Driver: "sqlite", DSN: filepath.Join(dir, "history.db")},
	}
	c.Market.Value = &marketpkg.Config{
		Default: "coingecko",
		Providers: map[string]*marketpkg.ProviderConfig{
			"coingecko": {Type: "coingecko", BaseURL: "http://127.0.0.1:1"},
		},
	}
	return c
}

func TestNewWiresServices(t *testing.T) {
	svc, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)

	assert.NotNil(t, svc.Market)
	assert.NotNil(t, svc.Registry)
	assert.NotNil(t, svc.Analytics)
	assert.NotNil(t, svc.News)
	assert.NotNil(t, svc.OnChain)
	assert.NotNil(t, svc.FearGreed)
	assert.NotNil(t, svc.Insight)
	assert.NotNil(t, svc.Portfolio)
	assert.NotNil(t, svc.Alerts)
	require.NotNil(t, svc.Recorder)
	assert.Contains(t, svc.Insight.Catalog(), "bitcoin")
	assert.FileExists(t, svc.Store.Path())

	history, err := svc.Recorder.History(context.Background(), "nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestNewWithoutRecorder(t *testing.T) {
	c := testConfig(t)
	c.Recorder.DSN = ""
	svc, err := New(context.Background(), c)
	require.NoError(t, err)
	assert.Nil(t, svc.Recorder)
}

func TestNewRejectsBadReferenceFile(t *testing.T) {
	c := testConfig(t)
	c.ReferenceFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := New(context.Background(), c)
	require.Error(t, err)
}
