package cache

import (
	"time"

	"cryptoanalyst-api/internal/config"
)

// TTLSet normalises the configured cache lifetimes (seconds) into durations.
type TTLSet struct {
	Overview      time.Duration
	Comparison    time.Duration
	Registry      time.Duration
	RegistryRetry time.Duration
	News          time.Duration
	OnChain       time.Duration
	FearGreed     time.Duration
	// StaleGrace of zero disables the stale fallback.
	StaleGrace time.Duration
}

// NewTTLSet converts config TTLs into durations, falling back to the service defaults for zero values.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Overview:      durationOrDefault(cfg.Overview, time.Minute),
		Comparison:    durationOrDefault(cfg.Comparison, time.Minute),
		Registry:      durationOrDefault(cfg.Registry, time.Hour),
		RegistryRetry: durationOrDefault(cfg.RegistryRetry, 2*time.Minute),
		News:          durationOrDefault(cfg.News, 2*time.Minute),
		OnChain:       durationOrDefault(cfg.OnChain, 3*time.Minute),
		FearGreed:     durationOrDefault(cfg.FearGreed, 10*time.Minute),
		StaleGrace:    durationOrDefault(cfg.StaleGrace, 0),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Scaled applies a multiplier to a TTL, useful for half/double variants.
func Scaled(base time.Duration, factor float64) time.Duration {
	if base <= 0 || factor <= 0 {
		return base
	}
	return time.Duration(float64(base) * factor)
}
