package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/de-tools/report-atlas/pkg/report/metrics"
)

// SourceRef points a definition at its records: a profile plus whichever of
// dataset, query, path or uri that profile's source kind reads.
type SourceRef struct {
	Profile string `mapstructure:"profile"`
	Dataset string `mapstructure:"dataset"`
	Query   string `mapstructure:"query"`
	Path    string `mapstructure:"path"`
	URI     string `mapstructure:"uri"`
}

// Definition declares one report type and the default options reports of
// that type are built with.
type Definition struct {
	Name       string                         `mapstructure:"name"`
	Dimensions []string                       `mapstructure:"dimensions"`
	Measures   map[string]metrics.MeasureSpec `mapstructure:"measures"`
	Report     map[string]any                 `mapstructure:"report"`
	Source     SourceRef                      `mapstructure:"source"`
}

// Registry builds the metrics registry the definition declares.
func (d Definition) Registry() (*metrics.Registry, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("definition name is required")
	}
	if len(d.Measures) == 0 {
		return nil, fmt.Errorf("definition %s declares no measures", d.Name)
	}
	return metrics.FromSpec(d.Name, d.Dimensions, d.Measures)
}

// Settings is the application configuration file.
type Settings struct {
	Database    string       `mapstructure:"database"`
	Profiles    string       `mapstructure:"profiles"`
	Definitions []Definition `mapstructure:"definitions"`
}

// LoadSettings reads the application configuration from a YAML, TOML or JSON
// file.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("database", "report-atlas.duckdb")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to parse report config: %w", err)
	}
	return &settings, nil
}
