package market

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Platforms []Platform `yaml:"platforms"`
}

// LoadCatalogFile reads a YAML platform table. An empty path yields the
// compiled-in catalog.
func LoadCatalogFile(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("market: read catalog: %w", err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes a YAML document of the form `platforms: [...]`.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var doc catalogFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode catalog: %v", ErrInvalidConfiguration, err)
	}
	return NewCatalog(doc.Platforms...)
}
