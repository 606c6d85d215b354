package metrics

import (
	"fmt"
	"math"

	"github.com/de-tools/report-atlas/pkg/models/domain"
)

// Accumulator folds one group's values in a single pass.
type Accumulator interface {
	Add(v domain.Value) error
	Result() domain.Value
}

// Reducer creates accumulators for a measure.
type Reducer interface {
	Name() string
	New() Accumulator
}

// ReducerFunc adapts an accumulator constructor into a custom Reducer.
type ReducerFunc struct {
	Label string
	Fn    func() Accumulator
}

func (r ReducerFunc) Name() string      { return r.Label }
func (r ReducerFunc) New() Accumulator { return r.Fn() }

const (
	ReducerSum           = "sum"
	ReducerCount         = "count"
	ReducerCountDistinct = "count_distinct"
	ReducerAvg           = "avg"
	ReducerMin           = "min"
	ReducerMax           = "max"
)

type builtin struct {
	name string
	fn   func() Accumulator
}

func (b builtin) Name() string      { return b.name }
func (b builtin) New() Accumulator { return b.fn() }

func Sum() Reducer { return builtin{ReducerSum, func() Accumulator { return &sumAcc{} }} }

// Count counts records when the measure has no field, otherwise the non-null
// values of the field.
func Count() Reducer { return builtin{ReducerCount, func() Accumulator { return &countAcc{} }} }

func CountDistinct() Reducer {
	return builtin{ReducerCountDistinct, func() Accumulator { return &distinctAcc{seen: map[string]struct{}{}} }}
}

func Avg() Reducer { return builtin{ReducerAvg, func() Accumulator { return &avgAcc{} }} }

func Min() Reducer { return builtin{ReducerMin, func() Accumulator { return &extremeAcc{sign: -1} }} }

func Max() Reducer { return builtin{ReducerMax, func() Accumulator { return &extremeAcc{sign: 1} }} }

// ReducerByName resolves the built-in reducers.
func ReducerByName(name string) (Reducer, error) {
	switch name {
	case ReducerSum:
		return Sum(), nil
	case ReducerCount:
		return Count(), nil
	case ReducerCountDistinct:
		return CountDistinct(), nil
	case ReducerAvg, "average", "mean":
		return Avg(), nil
	case ReducerMin:
		return Min(), nil
	case ReducerMax:
		return Max(), nil
	default:
		return nil, fmt.Errorf("unknown reducer %q", name)
	}
}

type sumAcc struct{ total float64 }

func (a *sumAcc) Add(v domain.Value) error {
	if v.IsNull() {
		return nil
	}
	n, err := v.Number()
	if err != nil {
		return err
	}
	if !domain.IsFinite(a.total + n) {
		return fmt.Errorf("sum overflows at %v", n)
	}
	a.total += n
	return nil
}

func (a *sumAcc) Result() domain.Value { return domain.NumberValue(a.total) }

type countAcc struct{ n int }

func (a *countAcc) Add(v domain.Value) error {
	if !v.IsNull() {
		a.n++
	}
	return nil
}

func (a *countAcc) Result() domain.Value { return domain.NumberValue(float64(a.n)) }

type distinctAcc struct{ seen map[string]struct{} }

func (a *distinctAcc) Add(v domain.Value) error {
	if v.IsNull() {
		return nil
	}
	a.seen[v.Kind().String()+":"+v.Text()] = struct{}{}
	return nil
}

func (a *distinctAcc) Result() domain.Value { return domain.NumberValue(float64(len(a.seen))) }

type avgAcc struct {
	total float64
	n     int
}

func (a *avgAcc) Add(v domain.Value) error {
	if v.IsNull() {
		return nil
	}
	n, err := v.Number()
	if err != nil {
		return err
	}
	if !domain.IsFinite(a.total + n) {
		return fmt.Errorf("average overflows at %v", n)
	}
	a.total += n
	a.n++
	return nil
}

func (a *avgAcc) Result() domain.Value {
	if a.n == 0 {
		return domain.NullValue()
	}
	return domain.NumberValue(a.total / float64(a.n))
}

// extremeAcc tracks the minimum (sign -1) or maximum (sign 1).
type extremeAcc struct {
	sign  float64
	best  float64
	found bool
}

func (a *extremeAcc) Add(v domain.Value) error {
	if v.IsNull() {
		return nil
	}
	n, err := v.Number()
	if err != nil {
		return err
	}
	if !a.found || n*a.sign > a.best*a.sign {
		a.best = n
		a.found = true
	}
	return nil
}

func (a *extremeAcc) Result() domain.Value {
	if !a.found || math.IsNaN(a.best) {
		return domain.NullValue()
	}
	return domain.NumberValue(a.best)
}
