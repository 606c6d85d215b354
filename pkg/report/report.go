// Package report is the facade over the aggregation pipeline. A Report is
// built once from an option map: the options are normalized and validated,
// then records are grouped and reduced, calculators compare each row with
// its parent-side row, and trackers compare each row with the one before it.
package report

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/report/aggregation"
	"github.com/de-tools/report-atlas/pkg/report/calculator"
	"github.com/de-tools/report-atlas/pkg/report/metrics"
	"github.com/de-tools/report-atlas/pkg/report/params"
	"github.com/de-tools/report-atlas/pkg/report/validation"
)

// Reporter is what a parent report or a supplement must expose.
type Reporter interface {
	GrouperNames() []string
	Data(ctx context.Context) ([]domain.Row, error)
	TotalReport(ctx context.Context) (Reporter, error)
}

// Roller is implemented by reporters able to re-aggregate on fewer groupers.
type Roller interface {
	Rollup(ctx context.Context, groupers []string) ([]domain.Row, error)
}

type Option func(*options)

type options struct {
	calculators *calculator.Registry
}

// WithCalculators replaces the built-in calculator and tracker registry.
func WithCalculators(registry *calculator.Registry) Option {
	return func(o *options) {
		o.calculators = registry
	}
}

// Report holds one aggregated result set. It is immutable once built; the
// lazy aggregation behind Data runs at most once.
type Report struct {
	definition  *metrics.Registry
	params      map[string]any
	config      params.Config
	measures    []metrics.Measure
	calculators []calculator.Named
	trackers    []calculator.NamedTracker

	parentReport   Reporter
	parentGroupers []string
	supplements    map[string]any
	rawData        domain.RecordSource
	rowData        []domain.Row
	hasRowData     bool
	totalData      []domain.Row
	totalReport    Reporter
	isTotal        bool

	mu         sync.Mutex
	aggregated bool
	rows       []domain.Row

	totalMu    sync.Mutex
	builtTotal *Report
}

// New builds a report of the given definition from a raw option map.
func New(ctx context.Context, definition *metrics.Registry, raw map[string]any, opts ...Option) (*Report, error) {
	if definition == nil {
		return nil, &domain.ConfigurationError{Field: "definition", Reason: "a report definition is required"}
	}
	o := options{calculators: calculator.DefaultRegistry()}
	for _, opt := range opts {
		opt(&o)
	}

	clean := params.Normalize(raw)
	cfg, err := params.Decode(clean)
	if err != nil {
		return nil, err
	}

	r := &Report{
		definition: definition,
		config:     cfg,
	}

	if v, ok := clean[params.KeyParentReport]; ok {
		parent, ok := v.(Reporter)
		if !ok {
			return nil, &domain.ConfigurationError{Field: params.KeyParentReport, Reason: fmt.Sprintf("%T is not a report", v)}
		}
		r.parentReport = parent
	}

	// An explicit list wins; otherwise share every grouper the parent has.
	if _, explicit := clean[params.KeyParentGroupers]; explicit {
		r.parentGroupers = slices.Clone(cfg.ParentGroupers)
	} else if r.parentReport != nil {
		r.parentGroupers = intersect(cfg.Groupers, r.parentReport.GrouperNames())
	}

	if v, ok := clean[params.KeySupplements]; ok {
		sup, ok := v.(map[string]any)
		if !ok {
			return nil, &domain.ConfigurationError{Field: params.KeySupplements, Reason: fmt.Sprintf("expected a map of supplements, got %T", v)}
		}
		r.supplements = sup
	}

	if v, ok := clean[params.KeyTotalReport]; ok {
		total, ok := v.(Reporter)
		if !ok {
			return nil, &domain.ConfigurationError{Field: params.KeyTotalReport, Reason: fmt.Sprintf("%T is not a report", v)}
		}
		r.totalReport = total
	}

	rawData, hasRawData := present(clean, params.KeyRawData)
	rowData, hasRowData := present(clean, params.KeyRowData)
	totalData, hasTotalData := present(clean, params.KeyTotalData)

	in := validation.Input{
		Config:         cfg,
		ParentGroupers: r.parentGroupers,
		HasParent:      r.parentReport != nil,
		Supplements:    slices.Sorted(maps.Keys(r.supplements)),
		HasData:        hasRawData || hasRowData || hasTotalData || r.totalReport != nil,
	}
	if r.parentReport != nil {
		in.ParentGrouperNames = r.parentReport.GrouperNames()
	}
	if err := validation.New(definition, o.calculators).Validate(in); err != nil {
		return nil, err
	}

	if r.measures, err = definition.Select(cfg.Measures); err != nil {
		return nil, &domain.ConfigurationError{Field: params.KeyMeasures, Reason: err.Error()}
	}
	for _, name := range cfg.CalculatorNames() {
		c, err := o.calculators.Calculator(cfg.Calculators[name])
		if err != nil {
			return nil, &domain.ConfigurationError{Field: params.KeyCalculators + "." + name, Reason: err.Error()}
		}
		r.calculators = append(r.calculators, calculator.Named{Name: name, Calculator: c})
	}
	for _, name := range cfg.TrackerNames() {
		t, err := o.calculators.Tracker(cfg.Trackers[name])
		if err != nil {
			return nil, &domain.ConfigurationError{Field: params.KeyTrackers + "." + name, Reason: err.Error()}
		}
		r.trackers = append(r.trackers, calculator.NamedTracker{Name: name, Tracker: t})
	}

	if hasRawData {
		if r.rawData, err = domain.AsRecordSource(rawData); err != nil {
			return nil, err
		}
	}
	if hasRowData {
		if r.rowData, err = domain.AsRows(cfg.Groupers, rowData); err != nil {
			return nil, err
		}
		r.hasRowData = true
	}
	if hasTotalData {
		if r.totalData, err = domain.AsRows(nil, totalData); err != nil {
			return nil, err
		}
	} else if r.totalReport != nil {
		if r.totalData, err = r.totalReport.Data(ctx); err != nil {
			return nil, fmt.Errorf("failed to read total report: %w", err)
		}
	}

	// The references live on the report, not in its params.
	r.params = maps.Clone(clean)
	delete(r.params, params.KeyParentReport)
	delete(r.params, params.KeyParentGroupers)
	delete(r.params, params.KeySupplements)
	delete(r.params, params.KeyTotalReport)

	zerolog.Ctx(ctx).Debug().
		Str("definition", definition.Name()).
		Strs("groupers", cfg.Groupers).
		Strs("parent_groupers", r.parentGroupers).
		Int("calculators", len(r.calculators)).
		Int("trackers", len(r.trackers)).
		Msg("report constructed")

	if (r.rawData != nil || r.hasRowData) && (len(r.calculators) > 0 || len(r.trackers) > 0) {
		if err := r.ensureAggregated(ctx); err != nil {
			return nil, err
		}
	}
	if r.totalData != nil {
		if _, err := r.TotalReport(ctx); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// newTotal wraps already-computed total rows.
func newTotal(definition *metrics.Registry, measures []metrics.Measure, rows []domain.Row) *Report {
	return &Report{
		definition: definition,
		params:     map[string]any{},
		measures:   measures,
		rowData:    rows,
		hasRowData: true,
		isTotal:    true,
		aggregated: true,
		rows:       rows,
	}
}

func present(m map[string]any, key string) (any, bool) {
	v, ok := m[key]
	return v, ok && v != nil
}

// intersect keeps the names of a found in b, in a's order.
func intersect(a, b []string) []string {
	out := make([]string, 0, len(a))
	for _, n := range a {
		if slices.Contains(b, n) {
			out = append(out, n)
		}
	}
	return out
}

// Params returns the normalized options without report references.
func (r *Report) Params() map[string]any { return maps.Clone(r.params) }

func (r *Report) Definition() *metrics.Registry { return r.definition }

func (r *Report) GrouperNames() []string { return slices.Clone(r.config.Groupers) }

func (r *Report) ParentReport() Reporter { return r.parentReport }

func (r *Report) ParentGroupers() []string { return slices.Clone(r.parentGroupers) }

// Supplements returns the shared supplement map. Callers must not modify it.
func (r *Report) Supplements() map[string]any { return r.supplements }

func (r *Report) RawData() domain.RecordSource { return r.rawData }

// Columns lists groupers, measures, calculators and trackers in output order.
func (r *Report) Columns() []string {
	cols := slices.Clone(r.config.Groupers)
	for _, m := range r.measures {
		cols = append(cols, m.Name)
	}
	for _, c := range r.calculators {
		cols = append(cols, c.Name)
	}
	for _, t := range r.trackers {
		cols = append(cols, t.Name)
	}
	return cols
}

func (r *Report) State() State {
	r.mu.Lock()
	aggregated := r.aggregated
	r.mu.Unlock()

	r.totalMu.Lock()
	totaled := r.builtTotal != nil || r.isTotal
	r.totalMu.Unlock()

	switch {
	case aggregated && totaled:
		return StateTotaled
	case aggregated:
		return StateAggregated
	case r.rawData != nil || r.hasRowData:
		return StateRawAttached
	default:
		return StateConstructed
	}
}

// Data returns the finished rows, aggregating on first use.
func (r *Report) Data(ctx context.Context) ([]domain.Row, error) {
	if err := r.ensureAggregated(ctx); err != nil {
		return nil, err
	}
	return cloneRows(r.rows), nil
}

func (r *Report) ensureAggregated(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.aggregated {
		return nil
	}

	rows, err := r.baseRows(ctx)
	if err != nil {
		return err
	}

	if len(r.calculators) > 0 {
		parents, err := r.parentIndex(ctx)
		if err != nil {
			return err
		}
		supplements, err := r.resolveSupplements(ctx)
		if err != nil {
			return err
		}
		if rows, err = aggregation.Calculate(ctx, rows, r.calculators, parents, supplements); err != nil {
			return err
		}
	}

	if rows, err = aggregation.Track(ctx, rows, r.trackers); err != nil {
		return err
	}

	r.rows = rows
	r.aggregated = true
	return nil
}

func (r *Report) baseRows(ctx context.Context) ([]domain.Row, error) {
	switch {
	case r.hasRowData:
		return cloneRows(r.rowData), nil
	case r.rawData != nil:
		return aggregation.Aggregate(ctx, r.rawData, aggregation.Options{
			Groupers: r.config.Groupers,
			Measures: r.measures,
			Sort:     r.config.Sort,
			Filters:  r.config.Filters,
		})
	case len(r.config.Groupers) == 0 && r.totalData != nil:
		return cloneRows(r.totalData), nil
	default:
		return nil, &domain.DataError{Field: params.KeyRawData, Reason: "no records or rows to aggregate"}
	}
}

// parentIndex resolves the parent-side rows once per calculator pass. The
// parent report wins; a caller-supplied total report stands in for it.
func (r *Report) parentIndex(ctx context.Context) (*aggregation.ParentIndex, error) {
	if r.parentReport == nil {
		if r.totalData == nil {
			return nil, nil
		}
		return aggregation.NewParentIndex(nil, r.totalData), nil
	}

	parent := r.parentReport
	if len(r.parentGroupers) == 0 {
		total, err := parent.TotalReport(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent total report: %w", err)
		}
		rows, err := total.Data(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent totals: %w", err)
		}
		return aggregation.NewParentIndex(nil, rows), nil
	}

	var (
		rows []domain.Row
		err  error
	)
	roller, canRoll := parent.(Roller)
	switch {
	case sameSet(parent.GrouperNames(), r.parentGroupers):
		rows, err = parent.Data(ctx)
	case canRoll:
		rows, err = roller.Rollup(ctx, r.parentGroupers)
	default:
		rows, err = parent.Data(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load parent rows: %w", err)
	}
	return aggregation.NewParentIndex(r.parentGroupers, rows), nil
}

func (r *Report) resolveSupplements(ctx context.Context) (calculator.Supplements, error) {
	out := make(calculator.Supplements, len(r.supplements))
	for name, v := range r.supplements {
		switch t := v.(type) {
		case Reporter:
			rows, err := t.Data(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to load supplement %q: %w", name, err)
			}
			out[name] = calculator.Supplement{Rows: rows, Data: v}
		case []domain.Row:
			out[name] = calculator.Supplement{Rows: cloneRows(t), Data: v}
		case []any, []map[string]any:
			rows, err := domain.AsRows(nil, t)
			if err != nil {
				return nil, fmt.Errorf("supplement %q: %w", name, err)
			}
			out[name] = calculator.Supplement{Rows: rows, Data: v}
		default:
			out[name] = calculator.Supplement{Data: v}
		}
	}
	return out, nil
}

// TotalReport returns the caller-supplied total report, or builds one from
// total data, raw records or the rows themselves.
func (r *Report) TotalReport(ctx context.Context) (Reporter, error) {
	if r.isTotal {
		return r, nil
	}
	if r.totalReport != nil {
		return r.totalReport, nil
	}

	r.totalMu.Lock()
	defer r.totalMu.Unlock()

	if r.builtTotal != nil {
		return r.builtTotal, nil
	}

	var rows []domain.Row
	switch {
	case r.totalData != nil:
		rows = cloneRows(r.totalData)
	case r.rawData != nil:
		row, err := aggregation.Total(ctx, r.rawData, r.measures, r.config.Filters)
		if err != nil {
			return nil, err
		}
		rows = []domain.Row{row}
	case r.hasRowData:
		rows = aggregation.Collapse(nil, r.rowData, nil)
	default:
		return nil, &domain.DataError{Field: params.KeyTotalData, Reason: "no data to total"}
	}

	r.builtTotal = newTotal(r.definition, r.measures, rows)
	zerolog.Ctx(ctx).Debug().Str("definition", r.definition.Name()).Msg("total report built")
	return r.builtTotal, nil
}

// TotalData returns the total rows.
func (r *Report) TotalData(ctx context.Context) ([]domain.Row, error) {
	if r.totalData != nil {
		return cloneRows(r.totalData), nil
	}
	total, err := r.TotalReport(ctx)
	if err != nil {
		return nil, err
	}
	return total.Data(ctx)
}

// Rollup re-aggregates the report on a subset of its groupers. Raw records
// are re-reduced; precomputed rows are collapsed by summing.
func (r *Report) Rollup(ctx context.Context, groupers []string) ([]domain.Row, error) {
	if r.rawData != nil && !r.hasRowData {
		return aggregation.Aggregate(ctx, r.rawData, aggregation.Options{
			Groupers: groupers,
			Measures: r.measures,
			Sort:     r.config.Sort,
			Filters:  r.config.Filters,
		})
	}
	rows, err := r.Data(ctx)
	if err != nil {
		return nil, err
	}
	return aggregation.Collapse(groupers, rows, r.config.Sort), nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, n := range a {
		if !slices.Contains(b, n) {
			return false
		}
	}
	return true
}

func cloneRows(rows []domain.Row) []domain.Row {
	if rows == nil {
		return nil
	}
	out := make([]domain.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}
