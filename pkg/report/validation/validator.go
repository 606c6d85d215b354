package validation

import (
	"fmt"
	"slices"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/report/calculator"
	"github.com/de-tools/report-atlas/pkg/report/metrics"
	"github.com/de-tools/report-atlas/pkg/report/params"
)

// Input is everything the validator needs about one report.
type Input struct {
	Config         params.Config
	ParentGroupers []string
	// ParentGrouperNames is nil when the report has no parent.
	ParentGrouperNames []string
	HasParent          bool
	Supplements        []string
	HasData            bool
}

// Validator checks a normalized configuration against a report definition
// before any record is read.
type Validator struct {
	definition  *metrics.Registry
	calculators *calculator.Registry
}

func New(definition *metrics.Registry, calculators *calculator.Registry) *Validator {
	return &Validator{definition: definition, calculators: calculators}
}

type check func(Input) error

// Validate runs every check in a fixed order and returns the first failure.
func (v *Validator) Validate(in Input) error {
	checks := []check{
		v.checkData,
		v.checkGroupers,
		v.checkMeasures,
		v.checkCalculators,
		v.checkTrackers,
		v.checkOutputNames,
		v.checkParentGroupers,
		v.checkSort,
		v.checkFilters,
	}
	for _, c := range checks {
		if err := c(in); err != nil {
			return err
		}
	}
	return nil
}

func invalid(field, format string, args ...any) error {
	return &domain.ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (v *Validator) checkData(in Input) error {
	if !in.HasData {
		return invalid(params.KeyRawData, "no raw_data, row_data, total_data or total_report given")
	}
	return nil
}

func (v *Validator) checkGroupers(in Input) error {
	seen := make(map[string]bool)
	for _, g := range in.Config.Groupers {
		if !v.definition.HasGrouper(g) {
			return invalid(params.KeyGroupers, "grouper %q is not declared by %q", g, v.definition.Name())
		}
		if seen[g] {
			return invalid(params.KeyGroupers, "grouper %q is listed twice", g)
		}
		seen[g] = true
	}
	return nil
}

func (v *Validator) checkMeasures(in Input) error {
	for _, m := range in.Config.Measures {
		if _, ok := v.definition.Lookup(m); !ok {
			return invalid(params.KeyMeasures, "measure %q is not declared by %q", m, v.definition.Name())
		}
	}
	return nil
}

// measureSet is the set of measures the report will aggregate.
func (v *Validator) measureSet(in Input) []string {
	if len(in.Config.Measures) > 0 {
		return in.Config.Measures
	}
	return v.definition.MeasureNames()
}

func (v *Validator) checkCalculators(in Input) error {
	measures := v.measureSet(in)
	for _, name := range in.Config.CalculatorNames() {
		spec := in.Config.Calculators[name]
		field := params.KeyCalculators + "." + name
		if spec.Type == "" {
			return invalid(field, "calculator type is required")
		}
		if !v.calculators.HasCalculator(spec.Type) {
			return invalid(field, "unknown calculator type %q", spec.Type)
		}
		if spec.Measure != "" && !slices.Contains(measures, spec.Measure) {
			return invalid(field, "measure %q is not aggregated by this report", spec.Measure)
		}
		if spec.Supplement != "" && !slices.Contains(in.Supplements, spec.Supplement) {
			return invalid(field, "supplement %q is not provided", spec.Supplement)
		}
		if _, err := v.calculators.Calculator(spec); err != nil {
			return invalid(field, "%v", err)
		}
	}
	return nil
}

func (v *Validator) checkTrackers(in Input) error {
	known := append(slices.Clone(v.measureSet(in)), in.Config.CalculatorNames()...)
	for _, name := range in.Config.TrackerNames() {
		spec := in.Config.Trackers[name]
		field := params.KeyTrackers + "." + name
		if spec.Type == "" {
			return invalid(field, "tracker type is required")
		}
		if !v.calculators.HasTracker(spec.Type) {
			return invalid(field, "unknown tracker type %q", spec.Type)
		}
		if spec.Measure != "" && !slices.Contains(known, spec.Measure) {
			return invalid(field, "measure %q is neither a measure nor a calculator of this report", spec.Measure)
		}
		if _, err := v.calculators.Tracker(spec); err != nil {
			return invalid(field, "%v", err)
		}
	}
	return nil
}

func (v *Validator) checkOutputNames(in Input) error {
	taken := make(map[string]string)
	for _, g := range in.Config.Groupers {
		taken[g] = params.KeyGroupers
	}
	for _, m := range v.measureSet(in) {
		if _, ok := taken[m]; ok {
			return invalid(params.KeyMeasures, "measure %q collides with a grouper", m)
		}
		taken[m] = params.KeyMeasures
	}
	for _, name := range in.Config.CalculatorNames() {
		if kind, ok := taken[name]; ok {
			return invalid(params.KeyCalculators+"."+name, "name collides with %s", kind)
		}
		taken[name] = params.KeyCalculators
	}
	for _, name := range in.Config.TrackerNames() {
		if kind, ok := taken[name]; ok {
			return invalid(params.KeyTrackers+"."+name, "name collides with %s", kind)
		}
		taken[name] = params.KeyTrackers
	}
	return nil
}

func (v *Validator) checkParentGroupers(in Input) error {
	for _, g := range in.ParentGroupers {
		if !slices.Contains(in.Config.Groupers, g) {
			return invalid(params.KeyParentGroupers, "%q is not a grouper of this report", g)
		}
		if in.HasParent && !slices.Contains(in.ParentGrouperNames, g) {
			return invalid(params.KeyParentGroupers, "%q is not a grouper of the parent report", g)
		}
	}
	return nil
}

func (v *Validator) checkSort(in Input) error {
	for _, g := range sortedKeys(in.Config.Sort) {
		if !slices.Contains(in.Config.Groupers, g) {
			return invalid(params.KeySort+"."+g, "sort key is not a grouper of this report")
		}
		switch in.Config.Sort[g] {
		case params.SortAsc, params.SortDesc:
		default:
			return invalid(params.KeySort+"."+g, "direction %q must be %q or %q", in.Config.Sort[g], params.SortAsc, params.SortDesc)
		}
	}
	return nil
}

func (v *Validator) checkFilters(in Input) error {
	for _, d := range sortedKeys(in.Config.Filters) {
		if !v.definition.HasGrouper(d) {
			return invalid(params.KeyFilters+"."+d, "dimension is not declared by %q", v.definition.Name())
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
