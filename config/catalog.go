package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// CatalogEntry is one service row in the seed catalog.
type CatalogEntry struct {
	Category      string  `yaml:"category"`
	Name          string  `yaml:"name"`
	NameHi        string  `yaml:"name_hi"`
	Description   string  `yaml:"description"`
	DescriptionHi string  `yaml:"description_hi"`
	BaseCost      float64 `yaml:"base_cost"`
	Active        *bool   `yaml:"active"`
	SortOrder     int     `yaml:"sort_order"`
}

type Catalog struct {
	Services []CatalogEntry `yaml:"services"`
}

// IsActive treats a missing flag as active.
func (e CatalogEntry) IsActive() bool {
	return e.Active == nil || *e.Active
}

// LoadCatalog parses the catalog at path, or the embedded default when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		data = raw
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for i, s := range cat.Services {
		if s.Category == "" || s.Name == "" {
			return nil, fmt.Errorf("catalog entry %d: category and name are required", i)
		}
		if s.BaseCost < 0 {
			return nil, fmt.Errorf("catalog entry %d: base_cost must not be negative", i)
		}
	}
	return &cat, nil
}
