package aggregation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/rs/zerolog"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/report/calculator"
	"github.com/de-tools/report-atlas/pkg/report/metrics"
)

const SortDesc = "desc"

// Options describe one grouping run.
type Options struct {
	Groupers []string
	Measures []metrics.Measure
	// Sort flips individual grouper levels to "desc"; the default is ascending.
	Sort map[string]string
	// Filters keep only records whose dimension value is listed.
	Filters map[string][]string
}

type group struct {
	key  []domain.Value
	accs []metrics.Accumulator
}

// Aggregate streams the source once, groups records by the grouper values
// and reduces every group into one row. Rows come back sorted by key. With no
// groupers a single row is produced even for an empty source.
func Aggregate(ctx context.Context, src domain.RecordSource, opts Options) ([]domain.Row, error) {
	logger := zerolog.Ctx(ctx)
	groups := make(map[string]*group)
	keep := compileFilters(opts.Filters)
	seen := 0

	err := src.Each(ctx, func(rec domain.Record) error {
		if !keep(rec) {
			return nil
		}
		seen++

		key := make([]domain.Value, len(opts.Groupers))
		for i, g := range opts.Groupers {
			key[i] = rec.Get(g)
		}
		id := encodeKey(key)
		grp, ok := groups[id]
		if !ok {
			grp = &group{key: key, accs: newAccumulators(opts.Measures)}
			groups[id] = grp
		}

		for i, m := range opts.Measures {
			v := domain.BoolValue(true)
			if m.Field != "" {
				v = rec.Get(m.Field)
			}
			if err := grp.accs[i].Add(v); err != nil {
				return &domain.DataError{Field: m.Field, Reason: fmt.Sprintf("cannot reduce measure %q", m.Name), Err: err}
			}
		}
		return nil
	})
	if err != nil {
		var dataErr *domain.DataError
		if errors.As(err, &dataErr) {
			return nil, err
		}
		return nil, &domain.DataError{Field: "raw_data", Reason: "failed to read records", Err: err}
	}

	if len(opts.Groupers) == 0 && len(groups) == 0 {
		groups[""] = &group{accs: newAccumulators(opts.Measures)}
	}

	rows := make([]domain.Row, 0, len(groups))
	for _, grp := range groups {
		row := domain.NewRow(slices.Clone(opts.Groupers), grp.key)
		for i, m := range opts.Measures {
			row.Values[m.Name] = grp.accs[i].Result()
		}
		rows = append(rows, row)
	}
	SortRows(rows, opts.Sort)

	logger.Debug().
		Int("records", seen).
		Int("rows", len(rows)).
		Strs("groupers", opts.Groupers).
		Msg("aggregated records")

	return rows, nil
}

// Total aggregates the whole source into a single row.
func Total(ctx context.Context, src domain.RecordSource, measures []metrics.Measure, filters map[string][]string) (domain.Row, error) {
	rows, err := Aggregate(ctx, src, Options{Measures: measures, Filters: filters})
	if err != nil {
		return domain.Row{}, err
	}
	return rows[0], nil
}

// SortRows orders rows by their key values, level by level.
func SortRows(rows []domain.Row, order map[string]string) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		for l := 0; l < len(a.Key) && l < len(b.Key); l++ {
			c := domain.Compare(a.Key[l], b.Key[l])
			if l < len(a.Groupers) && order[a.Groupers[l]] == SortDesc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// Calculate runs every calculator over every row. Calculators see the row
// as aggregation produced it, never another calculator's output. The first
// failure aborts the pass.
func Calculate(
	ctx context.Context,
	rows []domain.Row,
	calcs []calculator.Named,
	parents *ParentIndex,
	supplements calculator.Supplements,
) ([]domain.Row, error) {
	if len(calcs) == 0 {
		return rows, nil
	}

	matched := 0
	out := make([]domain.Row, len(rows))
	for i, row := range rows {
		var parent *domain.Row
		if parents != nil {
			parent = parents.Match(row)
		}
		if parent != nil {
			matched++
		}

		next := row.Clone()
		for _, c := range calcs {
			var p *domain.Row
			if parent != nil {
				pc := parent.Clone()
				p = &pc
			}
			v, err := c.Calculator.Calculate(row.Clone(), p, supplements)
			if err == nil {
				err = checkFinite(v)
			}
			if err != nil {
				return nil, &domain.CalculationError{Name: c.Name, Key: row.KeyString(), Err: err}
			}
			next.Values[c.Name] = v
		}
		out[i] = next
	}

	zerolog.Ctx(ctx).Debug().
		Int("rows", len(rows)).
		Int("parent_matches", matched).
		Int("calculators", len(calcs)).
		Msg("applied calculators")

	return out, nil
}

// Track runs every tracker over the rows in order. Each tracker receives the
// preceding row exactly as the calculator pass produced it; the first row
// gets nil.
func Track(ctx context.Context, rows []domain.Row, trackers []calculator.NamedTracker) ([]domain.Row, error) {
	if len(trackers) == 0 {
		return rows, nil
	}

	out := make([]domain.Row, len(rows))
	for i, row := range rows {
		next := row.Clone()
		for _, t := range trackers {
			var prev *domain.Row
			if i > 0 {
				pc := rows[i-1].Clone()
				prev = &pc
			}
			v, err := t.Tracker.Track(row.Clone(), prev)
			if err == nil {
				err = checkFinite(v)
			}
			if err != nil {
				return nil, &domain.CalculationError{Name: t.Name, Key: row.KeyString(), Err: err}
			}
			next.Values[t.Name] = v
		}
		out[i] = next
	}

	zerolog.Ctx(ctx).Debug().
		Int("rows", len(rows)).
		Int("trackers", len(trackers)).
		Msg("applied trackers")

	return out, nil
}

func checkFinite(v domain.Value) error {
	if !v.Finite() {
		return fmt.Errorf("result %v is not a finite number", v)
	}
	return nil
}

func newAccumulators(measures []metrics.Measure) []metrics.Accumulator {
	accs := make([]metrics.Accumulator, len(measures))
	for i, m := range measures {
		accs[i] = m.Reducer.New()
	}
	return accs
}

func compileFilters(filters map[string][]string) func(domain.Record) bool {
	if len(filters) == 0 {
		return func(domain.Record) bool { return true }
	}
	sets := make(map[string]map[string]bool, len(filters))
	for dim, allowed := range filters {
		set := make(map[string]bool, len(allowed))
		for _, a := range allowed {
			set[a] = true
		}
		sets[dim] = set
	}
	return func(rec domain.Record) bool {
		for dim, set := range sets {
			if !set[rec.Get(dim).Text()] {
				return false
			}
		}
		return true
	}
}

// encodeKey builds a collision-free map key for a group.
func encodeKey(key []domain.Value) string {
	return domain.HashKey(key)
}
