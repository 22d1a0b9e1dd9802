package svc

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoanalyst-api/internal/alerts"
	cachekeys "cryptoanalyst-api/internal/cache"
	"cryptoanalyst-api/internal/config"
	"cryptoanalyst-api/internal/portfolio"
	"cryptoanalyst-api/internal/recorder"
	"cryptoanalyst-api/internal/store"
	"cryptoanalyst-api/pkg/insight"
	marketpkg "cryptoanalyst-api/pkg/market"
	"cryptoanalyst-api/pkg/market/analytics"
	_ "cryptoanalyst-api/pkg/market/coingecko"
	"cryptoanalyst-api/pkg/market/symbols"
	"cryptoanalyst-api/pkg/news"
	"cryptoanalyst-api/pkg/onchain"
)

type ServiceContext struct {
	Config config.Config
	TTL    cachekeys.TTLSet

	MarketConfig *marketpkg.Config
	Market       marketpkg.DataSource
	Registry     *symbols.Registry
	Analytics    *analytics.Service
	News         *news.Client
	OnChain      *onchain.Service
	FearGreed    *insight.FearGreedClient
	Insight      *insight.Service

	Store     *store.Store
	Portfolio *portfolio.Service
	Alerts    *alerts.Service
	// Recorder is nil when no history DSN is configured.
	Recorder *recorder.Recorder
}

// NewServiceContext wires every service and exits the process on failure.
func NewServiceContext(c config.Config) *ServiceContext {
	svc, err := New(context.Background(), c)
	if err != nil {
		log.Fatalf("failed to build service context: %v", err)
	}
	return svc
}

// New wires the market adapter, analytics, composites and user-state services from c.
func New(ctx context.Context, c config.Config) (*ServiceContext, error) {
	ttl := cachekeys.NewTTLSet(c.TTL)
	timeout := time.Duration(c.RequestTimeout) * time.Second
	svc := &ServiceContext{Config: c, TTL: ttl}

	marketCfg := c.MarketConfig()
	source, err := marketCfg.BuildDefault()
	if err != nil {
		return nil, fmt.Errorf("build market provider: %w", err)
	}
	svc.MarketConfig = marketCfg
	svc.Market = source

	registryOpts := []symbols.Option{
		symbols.WithTTL(ttl.Registry),
		symbols.WithRetryBackoff(ttl.RegistryRetry),
		symbols.WithOverrides(marketCfg.Symbols.Overrides),
	}
	if p := marketCfg.Symbols.SnapshotPath; p != "" {
		registryOpts = append(registryOpts, symbols.WithSnapshot(c.ResolvePath(p)))
	}
	svc.Registry = symbols.NewRegistry(source, registryOpts...)
	svc.Analytics = analytics.NewService(source, svc.Registry, analytics.Options{
		OverviewTTL:   ttl.Overview,
		ComparisonTTL: ttl.Comparison,
		MaxStale:      ttl.StaleGrace,
	})

	if svc.News, err = news.NewClient(ttl.News,
		news.WithBaseURL(c.News.BaseURL),
		news.WithAPIKey(c.News.APIKey),
		news.WithTimeout(timeout),
	); err != nil {
		return nil, err
	}

	onchainOpts := []onchain.Option{
		onchain.WithBaseURL(c.OnChain.BaseURL),
		onchain.WithAPIKey(c.OnChain.APIKey),
		onchain.WithTimeout(timeout),
	}
	if c.OnChain.EthRPCURL != "" {
		client, err := onchain.DialExecution(ctx, c.OnChain.EthRPCURL)
		if err != nil {
			logx.Errorf("svc: execution probe disabled: %v", err)
		} else {
			onchainOpts = append(onchainOpts, onchain.WithExecutionProbe(client))
		}
	}
	if svc.OnChain, err = onchain.NewService(ttl.OnChain, onchainOpts...); err != nil {
		return nil, err
	}

	if svc.FearGreed, err = insight.NewFearGreedClient(ttl.FearGreed,
		insight.WithFearGreedURL(c.FearGreed.URL),
		insight.WithFearGreedHTTPClient(&http.Client{Timeout: min(timeout, 8*time.Second)}),
	); err != nil {
		return nil, err
	}

	catalog, err := insight.LoadCatalog(c.ResolvePath(c.ReferenceFile))
	if err != nil {
		return nil, err
	}
	svc.Insight = insight.NewService(insight.Deps{
		Market:    svc.Analytics,
		News:      svc.News,
		OnChain:   svc.OnChain,
		FearGreed: svc.FearGreed,
		Catalog:   catalog,
	})

	if svc.Store, err = store.Open(c.ResolvePath(c.DataStorePath)); err != nil {
		return nil, err
	}
	svc.Portfolio = portfolio.NewService(svc.Store, svc.Analytics)

	alertOpts := []alerts.Option{}
	if c.Recorder.DSN != "" {
		dsn := c.Recorder.DSN
		if c.Recorder.Driver == recorder.DriverSQLite {
			dsn = c.ResolvePath(dsn)
		}
		rec, err := recorder.Open(ctx, c.Recorder.Driver, dsn)
		if err != nil {
			return nil, err
		}
		svc.Recorder = rec
		alertOpts = append(alertOpts, alerts.WithRecorder(rec))
	}
	svc.Alerts = alerts.NewService(svc.Store, svc.Analytics, alertOpts...)
	return svc, nil
}
