package calculator

import (
	"fmt"

	"github.com/de-tools/report-atlas/pkg/models/domain"
)

const (
	TypeRatio         = "ratio"
	TypeDifference    = "difference"
	TypeLookup        = "lookup"
	TypeDelta         = "delta"
	TypePercentChange = "percent_change"
)

// Ratio divides a row's measure by the parent-side measure. It yields null
// without a parent row or when the parent value is null or zero.
func Ratio(spec Spec) (Calculator, error) {
	if spec.Measure == "" {
		return nil, fmt.Errorf("ratio requires a measure")
	}
	parentField := spec.ParentField()
	return CalculatorFunc(func(row domain.Row, parent *domain.Row, _ Supplements) (domain.Value, error) {
		if parent == nil {
			return domain.NullValue(), nil
		}
		num, ok, err := numeric(row, spec.Measure)
		if err != nil || !ok {
			return domain.NullValue(), err
		}
		den, ok, err := numeric(*parent, parentField)
		if err != nil || !ok || den == 0 {
			return domain.NullValue(), err
		}
		return domain.NumberValue(num / den), nil
	}), nil
}

// Difference subtracts the parent-side measure from the row's.
func Difference(spec Spec) (Calculator, error) {
	if spec.Measure == "" {
		return nil, fmt.Errorf("difference requires a measure")
	}
	parentField := spec.ParentField()
	return CalculatorFunc(func(row domain.Row, parent *domain.Row, _ Supplements) (domain.Value, error) {
		if parent == nil {
			return domain.NullValue(), nil
		}
		a, ok, err := numeric(row, spec.Measure)
		if err != nil || !ok {
			return domain.NullValue(), err
		}
		b, ok, err := numeric(*parent, parentField)
		if err != nil || !ok {
			return domain.NullValue(), err
		}
		return domain.NumberValue(a - b), nil
	}), nil
}

// Lookup reads Field from the supplement row whose Key matches the row's Key.
// When Measure is set the row's measure is divided by the looked-up value.
func Lookup(spec Spec) (Calculator, error) {
	if spec.Supplement == "" {
		return nil, fmt.Errorf("lookup requires a supplement")
	}
	if spec.Key == "" || spec.Field == "" {
		return nil, fmt.Errorf("lookup requires key and field")
	}
	return CalculatorFunc(func(row domain.Row, _ *domain.Row, supplements Supplements) (domain.Value, error) {
		sup, ok := supplements[spec.Supplement]
		if !ok {
			return domain.NullValue(), fmt.Errorf("supplement %q is not available", spec.Supplement)
		}
		match, ok := sup.Find(spec.Key, row.Get(spec.Key))
		if !ok {
			return domain.NullValue(), nil
		}
		found := match.Get(spec.Field)
		if spec.Measure == "" {
			return found, nil
		}
		num, ok, err := numeric(row, spec.Measure)
		if err != nil || !ok || found.IsNull() {
			return domain.NullValue(), err
		}
		den, err := found.Number()
		if err != nil {
			return domain.NullValue(), fmt.Errorf("supplement field %q: %w", spec.Field, err)
		}
		if den == 0 {
			return domain.NullValue(), nil
		}
		return domain.NumberValue(num / den), nil
	}), nil
}

// Delta subtracts the previous row's measure from the current one.
func Delta(spec TrackerSpec) (Tracker, error) {
	if spec.Measure == "" {
		return nil, fmt.Errorf("delta requires a measure")
	}
	return TrackerFunc(func(row domain.Row, previous *domain.Row) (domain.Value, error) {
		if previous == nil {
			return domain.NullValue(), nil
		}
		cur, ok, err := numeric(row, spec.Measure)
		if err != nil || !ok {
			return domain.NullValue(), err
		}
		prev, ok, err := numeric(*previous, spec.Measure)
		if err != nil || !ok {
			return domain.NullValue(), err
		}
		return domain.NumberValue(cur - prev), nil
	}), nil
}

// PercentChange is the change from the previous row as a percentage of it.
func PercentChange(spec TrackerSpec) (Tracker, error) {
	if spec.Measure == "" {
		return nil, fmt.Errorf("percent_change requires a measure")
	}
	return TrackerFunc(func(row domain.Row, previous *domain.Row) (domain.Value, error) {
		if previous == nil {
			return domain.NullValue(), nil
		}
		cur, ok, err := numeric(row, spec.Measure)
		if err != nil || !ok {
			return domain.NullValue(), err
		}
		prev, ok, err := numeric(*previous, spec.Measure)
		if err != nil || !ok || prev == 0 {
			return domain.NullValue(), err
		}
		return domain.NumberValue((cur - prev) / prev * 100), nil
	}), nil
}
