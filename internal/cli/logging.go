package cli

import (
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoanalyst-api/internal/config"
	"cryptoanalyst-api/pkg/confkit"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
// Secrets are reported by presence only.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	lines := []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Default currency: %s", cfg.DefaultCurrency),
		fmt.Sprintf("User state file: %s", cfg.DataStorePath),
		fmt.Sprintf("Request timeout: %ds", cfg.RequestTimeout),
		fmt.Sprintf("TTL (overview/comparison/registry): %ds / %ds / %ds", cfg.TTL.Overview, cfg.TTL.Comparison, cfg.TTL.Registry),
		fmt.Sprintf("TTL (news/onchain/fear-greed): %ds / %ds / %ds", cfg.TTL.News, cfg.TTL.OnChain, cfg.TTL.FearGreed),
		fmt.Sprintf("Stale grace: %s", staleGrace(cfg.TTL.StaleGrace)),
		fmt.Sprintf("News API key: %s", presence(cfg.News.APIKey != "")),
		fmt.Sprintf("Ethereum RPC probe: %s", presence(cfg.OnChain.EthRPCURL != "")),
		fmt.Sprintf("Alert history: %s", recorderLine(cfg.Recorder)),
		fmt.Sprintf("Alert sweep: %s (%s)", cfg.Alerts.Schedule, cfg.Alerts.Currency),
		sectionLine("Market config", cfg.Market),
	}
	if cfg.ReferenceFile != "" {
		lines = append(lines, fmt.Sprintf("Reference catalog: %s", cfg.ReferenceFile))
	}
	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func staleGrace(seconds int) string {
	if seconds <= 0 {
		return "disabled"
	}
	return fmt.Sprintf("%ds", seconds)
}

func recorderLine(rc config.RecorderConf) string {
	if strings.TrimSpace(rc.DSN) == "" {
		return "disabled"
	}
	return rc.Driver
}

func sectionLine[T any](name string, section confkit.Section[T]) string {
	switch {
	case strings.TrimSpace(section.File) != "":
		return fmt.Sprintf("%s: %s", name, section.File)
	case section.Value != nil:
		return fmt.Sprintf("%s: inline", name)
	default:
		return fmt.Sprintf("%s: etc/market.yaml (default)", name)
	}
}
