package insight

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed reference.yaml
var defaultReference []byte

// Reference holds static network metrics for one asset.
type Reference struct {
	TransactionSpeedTPS    float64 `yaml:"transaction_speed_tps"`
	Finality               string  `yaml:"finality"`
	DeveloperActivityScore float64 `yaml:"developer_activity_score"`
	Consensus              string  `yaml:"consensus"`
	AvgFeeUSD              float64 `yaml:"avg_fee_usd"`
	Category               string  `yaml:"category"`
	Narrative              string  `yaml:"narrative"`
}

// Catalog maps canonical asset ids to reference metrics.
type Catalog map[string]Reference

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog() Catalog {
	c, err := parseCatalog(defaultReference)
	if err != nil {
		panic(fmt.Sprintf("insight: embedded reference catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog file. An empty path returns the embedded catalog.
func LoadCatalog(path string) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("insight: read reference catalog: %w", err)
	}
	return parseCatalog(raw)
}

func parseCatalog(raw []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("insight: parse reference catalog: %w", err)
	}
	out := make(Catalog, len(c))
	for id, ref := range c {
		out[strings.ToLower(strings.TrimSpace(id))] = ref
	}
	return out, nil
}

// Lookup finds the reference entry for an asset id, case-insensitively.
func (c Catalog) Lookup(asset string) (Reference, bool) {
	ref, ok := c[strings.ToLower(strings.TrimSpace(asset))]
	return ref, ok
}
