package params

import (
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/report/calculator"
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Config is the typed view of a normalized option map. References to other
// reports and data payloads are not decoded; the report reads them from the
// map directly.
type Config struct {
	Groupers       []string                          `mapstructure:"groupers"`
	Measures       []string                          `mapstructure:"measures"`
	Calculators    map[string]calculator.Spec        `mapstructure:"calculators"`
	Trackers       map[string]calculator.TrackerSpec `mapstructure:"trackers"`
	ParentGroupers []string                          `mapstructure:"parent_groupers"`
	StripBlanks    *bool                             `mapstructure:"strip_blanks"`
	Sort           map[string]string                 `mapstructure:"sort"`
	Filters        map[string][]string               `mapstructure:"filters"`
}

// referenceKeys are carried as-is and never decoded into Config.
var referenceKeys = map[string]bool{
	KeyRawData:      true,
	KeyRowData:      true,
	KeyTotalData:    true,
	KeyParentReport: true,
	KeyTotalReport:  true,
	KeySupplements:  true,
}

var configKeys = map[string]bool{
	KeyGroupers:       true,
	KeyMeasures:       true,
	KeyCalculators:    true,
	KeyTrackers:       true,
	KeyParentGroupers: true,
	KeyStripBlanks:    true,
	KeySort:           true,
	KeyFilters:        true,
}

// Decode maps a normalized option map onto Config.
func Decode(clean map[string]any) (Config, error) {
	input := make(map[string]any, len(clean))
	var unknown []string
	for k, v := range clean {
		switch {
		case referenceKeys[k]:
		case configKeys[k]:
			input[k] = v
		default:
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Config{}, &domain.ConfigurationError{Field: unknown[0], Reason: "unknown report option"}
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return Config{}, fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return Config{}, &domain.ConfigurationError{Field: "params", Reason: err.Error()}
	}
	return cfg, nil
}

// CalculatorNames returns the configured calculators in name order.
func (c Config) CalculatorNames() []string {
	return sortedKeys(c.Calculators)
}

// TrackerNames returns the configured trackers in name order.
func (c Config) TrackerNames() []string {
	return sortedKeys(c.Trackers)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
