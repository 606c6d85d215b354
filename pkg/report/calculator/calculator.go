// Package calculator holds the derived-value strategies applied after
// aggregation: calculators compare a row with its parent-side row and the
// report's supplements, trackers compare a row with the row before it.
package calculator

import (
	"fmt"

	"github.com/de-tools/report-atlas/pkg/models/domain"
)

// Calculator derives a value from a row, the matching parent-side row (nil
// when there is none) and the report's supplements.
type Calculator interface {
	Calculate(row domain.Row, parent *domain.Row, supplements Supplements) (domain.Value, error)
}

// Tracker derives a value from a row and the row preceding it (nil for the
// first row).
type Tracker interface {
	Track(row domain.Row, previous *domain.Row) (domain.Value, error)
}

type CalculatorFunc func(row domain.Row, parent *domain.Row, supplements Supplements) (domain.Value, error)

func (f CalculatorFunc) Calculate(row domain.Row, parent *domain.Row, supplements Supplements) (domain.Value, error) {
	return f(row, parent, supplements)
}

type TrackerFunc func(row domain.Row, previous *domain.Row) (domain.Value, error)

func (f TrackerFunc) Track(row domain.Row, previous *domain.Row) (domain.Value, error) {
	return f(row, previous)
}

// Spec configures a calculator.
type Spec struct {
	Type          string `mapstructure:"type" json:"type"`
	Measure       string `mapstructure:"measure" json:"measure,omitempty"`
	ParentMeasure string `mapstructure:"parent_measure" json:"parent_measure,omitempty"`
	Supplement    string `mapstructure:"supplement" json:"supplement,omitempty"`
	Key           string `mapstructure:"key" json:"key,omitempty"`
	Field         string `mapstructure:"field" json:"field,omitempty"`
}

// ParentField is the parent-side field a calculator reads.
func (s Spec) ParentField() string {
	if s.ParentMeasure != "" {
		return s.ParentMeasure
	}
	return s.Measure
}

// TrackerSpec configures a tracker.
type TrackerSpec struct {
	Type    string `mapstructure:"type" json:"type"`
	Measure string `mapstructure:"measure" json:"measure"`
}

// Named pairs a calculator with its output name.
type Named struct {
	Name       string
	Calculator Calculator
}

// NamedTracker pairs a tracker with its output name.
type NamedTracker struct {
	Name    string
	Tracker Tracker
}

// Supplement is auxiliary data a calculator may consult: the rows of a
// supplemental report, or an arbitrary payload.
type Supplement struct {
	Rows []domain.Row
	Data any
}

// Find returns the first supplement row whose field equals v.
func (s Supplement) Find(field string, v domain.Value) (domain.Row, bool) {
	for _, r := range s.Rows {
		if got, ok := r.Lookup(field); ok && got.Equal(v) {
			return r, true
		}
	}
	return domain.Row{}, false
}

// Supplements are resolved once per aggregation and shared read-only.
type Supplements map[string]Supplement

func numeric(row domain.Row, field string) (float64, bool, error) {
	v := row.Get(field)
	if v.IsNull() {
		return 0, false, nil
	}
	n, err := v.Number()
	if err != nil {
		return 0, false, fmt.Errorf("field %q: %w", field, err)
	}
	return n, true, nil
}
