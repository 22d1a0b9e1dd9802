package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/rest"

	"cryptoanalyst-api/pkg/confkit"
	marketpkg "cryptoanalyst-api/pkg/market"
)

// CacheTTL holds cache lifetimes in seconds. StaleGrace bounds how long an expired value may be
// served past its TTL when the upstream fails; zero disables the fallback.
type CacheTTL struct {
	Overview      int `json:",default=60"`
	Comparison    int `json:",default=60"`
	Registry      int `json:",default=3600"`
	RegistryRetry int `json:",default=120"`
	News          int `json:",default=120"`
	OnChain       int `json:",default=180"`
	FearGreed     int `json:",default=600"`
	StaleGrace    int `json:",default=0"`
}

type NewsConf struct {
	BaseURL string `json:",optional"`
	APIKey  string `json:",optional,env=CRYPTOCOMPARE_API_KEY"`
}

type OnChainConf struct {
	BaseURL string `json:",optional"`
	APIKey  string `json:",optional,env=BLOCKCHAIR_API_KEY"`
	// EthRPCURL enables the execution-layer probe on ethereum snapshots.
	EthRPCURL string `json:",optional,env=ETH_RPC_URL"`
}

type FearGreedConf struct {
	URL string `json:",optional"`
}

// RecorderConf selects the alert history database. An empty DSN disables history.
type RecorderConf struct {
	Driver string `json:",default=sqlite,options=sqlite|pgx|postgres"`
	DSN    string `json:",optional"`
}

type AlertsConf struct {
	Schedule    string `json:",default=@every 5m"`
	Currency    string `json:",default=usd"`
	UserTimeout int    `json:",default=30"` // seconds
}

type Config struct {
	rest.RestConf
	// Env indicates the running environment: test | dev | prod
	Env             string `json:",default=test"`
	DefaultCurrency string `json:",default=usd"`
	DataStorePath   string `json:",default=checkpoints/agent_state.json"`
	// RequestTimeout bounds each upstream HTTP call, in seconds.
	RequestTimeout int    `json:",default=15"`
	ReferenceFile  string `json:",optional"`

	TTL       CacheTTL      `json:",optional"`
	News      NewsConf      `json:",optional"`
	OnChain   OnChainConf   `json:",optional"`
	FearGreed FearGreedConf `json:",optional"`
	Recorder  RecorderConf  `json:",optional"`
	Alerts    AlertsConf    `json:",optional"`

	Market confkit.Section[marketpkg.Config] `json:",optional"`

	mainPath string
	baseDir  string
}

func (c *Config) IsTestEnv() bool {
	return c.Env == "test" || c.Env == ""
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	confkit.LoadDotenvOnce()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %s: %w", path, err)
	}

	var cfg Config
	if err := conf.Load(absPath, &cfg, conf.UseEnv()); err != nil {
		return nil, fmt.Errorf("load config %s: %w", absPath, err)
	}

	cfg.mainPath = absPath
	cfg.baseDir = filepath.Dir(absPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Market.Hydrate(cfg.baseDir, marketpkg.LoadConfig); err != nil {
		return nil, fmt.Errorf("load market config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "", "test", "dev", "prod":
		if strings.TrimSpace(c.Env) == "" {
			c.Env = "test"
		}
	default:
		return errors.New("config: env must be one of test|dev|prod")
	}
	c.DefaultCurrency = strings.ToLower(strings.TrimSpace(c.DefaultCurrency))
	if c.DefaultCurrency == "" {
		return errors.New("config: defaultCurrency is required")
	}
	if strings.TrimSpace(c.DataStorePath) == "" {
		return errors.New("config: dataStorePath is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("config: requestTimeout must be positive")
	}
	if strings.EqualFold(c.Recorder.Driver, "postgres") {
		c.Recorder.Driver = "pgx"
	}
	if c.Alerts.UserTimeout <= 0 {
		return errors.New("config: alerts.userTimeout must be positive")
	}
	return c.validateTTL()
}

func (c *Config) validateTTL() error {
	positive := map[string]int{
		"overview":      c.TTL.Overview,
		"comparison":    c.TTL.Comparison,
		"registry":      c.TTL.Registry,
		"registryRetry": c.TTL.RegistryRetry,
		"news":          c.TTL.News,
		"onChain":       c.TTL.OnChain,
		"fearGreed":     c.TTL.FearGreed,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("config: ttl.%s must be positive", name)
		}
	}
	if c.TTL.StaleGrace < 0 {
		return errors.New("config: ttl.staleGrace cannot be negative")
	}
	return nil
}

// ResolvePath resolves p against the main config file's directory.
func (c *Config) ResolvePath(p string) string {
	if p == "" || c.baseDir == "" {
		return p
	}
	return confkit.ResolvePath(c.baseDir, p)
}

func (c *Config) MainPath() string {
	return c.mainPath
}

func (c *Config) BaseDir() string {
	return c.baseDir
}
