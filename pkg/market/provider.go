package market

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ProviderBuilder constructs a DataSource from configuration.
type ProviderBuilder func(name string, cfg *ProviderConfig) (DataSource, error)

var (
	providerRegistry   = make(map[string]ProviderBuilder)
	providerRegistryMu sync.RWMutex
)

// RegisterProvider registers a market data source constructor under a type name.
func RegisterProvider(typeName string, builder ProviderBuilder) {
	providerRegistryMu.Lock()
	defer providerRegistryMu.Unlock()
	providerRegistry[normaliseType(typeName)] = builder
}

// RegisteredProviders lists the registered type names, sorted.
func RegisteredProviders() []string {
	providerRegistryMu.RLock()
	defer providerRegistryMu.RUnlock()
	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupProviderBuilder(typeName string) (ProviderBuilder, bool) {
	providerRegistryMu.RLock()
	defer providerRegistryMu.RUnlock()
	builder, ok := providerRegistry[normaliseType(typeName)]
	return builder, ok
}

func normaliseType(typeName string) string {
	return strings.ToLower(strings.TrimSpace(typeName))
}

// BuildProviders instantiates data sources according to configuration.
func (c *Config) BuildProviders() (map[string]DataSource, error) {
	result := make(map[string]DataSource, len(c.Providers))
	for name, providerCfg := range c.Providers {
		builder, ok := lookupProviderBuilder(providerCfg.Type)
		if !ok {
			return nil, fmt.Errorf("market provider %s: unsupported type %q", name, providerCfg.Type)
		}
		source, err := builder(name, providerCfg)
		if err != nil {
			return nil, fmt.Errorf("market provider %s: %w", name, err)
		}
		result[name] = source
	}
	return result, nil
}

// BuildDefault instantiates only the default data source.
func (c *Config) BuildDefault() (DataSource, error) {
	name := c.DefaultName()
	providerCfg, ok := c.Providers[name]
	if !ok {
		return nil, fmt.Errorf("market config: default provider %q not defined", name)
	}
	builder, ok := lookupProviderBuilder(providerCfg.Type)
	if !ok {
		return nil, fmt.Errorf("market provider %s: unsupported type %q", name, providerCfg.Type)
	}
	return builder(name, providerCfg)
}

// DefaultName returns the configured default or, with a single provider, that provider's name.
func (c *Config) DefaultName() string {
	if c.Default != "" {
		return c.Default
	}
	if len(c.Providers) == 1 {
		for name := range c.Providers {
			return name
		}
	}
	return ""
}
