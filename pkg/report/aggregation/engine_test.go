package aggregation

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/report/calculator"
	"github.com/de-tools/report-atlas/pkg/report/metrics"
)

func records(t *testing.T, maps ...map[string]any) domain.Records {
	t.Helper()
	out := make(domain.Records, 0, len(maps))
	for _, m := range maps {
		rec, err := domain.NewRecord(m)
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

var (
	views  = metrics.Measure{Name: "views", Field: "views", Reducer: metrics.Sum()}
	visits = metrics.Measure{Name: "visits", Reducer: metrics.Count()}
)

func TestAggregate(t *testing.T) {
	ctx := testContext(t)
	src := records(t,
		map[string]any{"region": "west", "month": "2024-01", "views": 7},
		map[string]any{"region": "east", "month": "2024-02", "views": 5},
		map[string]any{"region": "east", "month": "2024-01", "views": 10},
		map[string]any{"region": "east", "month": "2024-01", "views": 1},
	)

	rows, err := Aggregate(ctx, src, Options{
		Groupers: []string{"region", "month"},
		Measures: []metrics.Measure{views, visits},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "east|2024-01", rows[0].KeyString())
	assert.Equal(t, domain.NumberValue(11), rows[0].Get("views"))
	assert.Equal(t, domain.NumberValue(2), rows[0].Get("visits"))
	assert.Equal(t, "east|2024-02", rows[1].KeyString())
	assert.Equal(t, "west|2024-01", rows[2].KeyString())
}

func TestAggregate_SortAndFilter(t *testing.T) {
	ctx := testContext(t)
	src := records(t,
		map[string]any{"region": "west", "month": "2024-01", "views": 7},
		map[string]any{"region": "east", "month": "2024-02", "views": 5},
		map[string]any{"region": "east", "month": "2024-01", "views": 10},
		map[string]any{"region": "north", "month": "2024-01", "views": 3},
	)

	rows, err := Aggregate(ctx, src, Options{
		Groupers: []string{"region", "month"},
		Measures: []metrics.Measure{views},
		Sort:     map[string]string{"region": SortDesc},
		Filters:  map[string][]string{"region": {"east", "west"}},
	})
	require.NoError(t, err)

	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.KeyString()
	}
	assert.Equal(t, []string{"west|2024-01", "east|2024-01", "east|2024-02"}, keys)
}

func TestAggregate_KindsStayApart(t *testing.T) {
	ctx := testContext(t)
	src := records(t,
		map[string]any{"code": "1", "views": 1},
		map[string]any{"code": 1, "views": 2},
		map[string]any{"code": nil, "views": 4},
	)

	rows, err := Aggregate(ctx, src, Options{Groupers: []string{"code"}, Measures: []metrics.Measure{views}})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.True(t, rows[0].Key[0].IsNull())
	assert.Equal(t, domain.NumberValue(1), rows[1].Key[0])
	assert.Equal(t, domain.StringValue("1"), rows[2].Key[0])
}

func TestAggregate_EmptySource(t *testing.T) {
	ctx := testContext(t)

	rows, err := Aggregate(ctx, domain.Records{}, Options{Groupers: []string{"region"}, Measures: []metrics.Measure{views}})
	require.NoError(t, err)
	assert.Empty(t, rows)

	total, err := Total(ctx, domain.Records{}, []metrics.Measure{views, visits}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.NumberValue(0), total.Get("views"))
	assert.Equal(t, domain.NumberValue(0), total.Get("visits"))
}

func TestAggregate_Errors(t *testing.T) {
	ctx := testContext(t)

	_, err := Aggregate(ctx, records(t, map[string]any{"views": "many"}), Options{Measures: []metrics.Measure{views}})
	var dataErr *domain.DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "views", dataErr.Field)

	broken := errors.New("connection reset")
	_, err = Aggregate(ctx, failingSource{err: broken}, Options{Measures: []metrics.Measure{views}})
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "raw_data", dataErr.Field)
	assert.ErrorIs(t, err, broken)
}

func TestAggregate_RejectsNonFiniteNumbers(t *testing.T) {
	ctx := testContext(t)
	avgViews := metrics.Measure{Name: "avg_views", Field: "views", Reducer: metrics.Avg()}

	tests := []struct {
		name    string
		records []map[string]any
		measure metrics.Measure
	}{
		{"NaN string", []map[string]any{{"region": "east", "views": "NaN"}}, views},
		{"Inf string", []map[string]any{{"region": "west", "views": "+Inf"}}, views},
		{"infinite value", []map[string]any{{"region": "west", "views": domain.NumberValue(math.Inf(1))}}, views},
		{"sum overflow", []map[string]any{{"views": math.MaxFloat64}, {"views": math.MaxFloat64}}, views},
		{"average overflow", []map[string]any{{"views": math.MaxFloat64}, {"views": math.MaxFloat64}}, avgViews},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate(ctx, records(t, tt.records...), Options{
				Groupers: []string{"region"},
				Measures: []metrics.Measure{tt.measure},
			})

			var dataErr *domain.DataError
			require.ErrorAs(t, err, &dataErr)
			assert.Equal(t, "views", dataErr.Field)
		})
	}
}

type failingSource struct{ err error }

func (f failingSource) Each(context.Context, func(domain.Record) error) error { return f.err }

func TestCalculate_SeesOnlyAggregatedValues(t *testing.T) {
	ctx := testContext(t)
	rows := []domain.Row{
		domain.NewRow([]string{"region"}, []domain.Value{domain.StringValue("east")}).With("views", domain.NumberValue(15)),
	}

	var seen []string
	recorder := func(name string) calculator.Named {
		return calculator.Named{Name: name, Calculator: calculator.CalculatorFunc(
			func(row domain.Row, _ *domain.Row, _ calculator.Supplements) (domain.Value, error) {
				for k := range row.Values {
					seen = append(seen, name+":"+k)
				}
				return domain.NumberValue(1), nil
			})}
	}

	out, err := Calculate(ctx, rows, []calculator.Named{recorder("a"), recorder("b")}, nil, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a:views", "b:views"}, seen)
	assert.Equal(t, domain.NumberValue(1), out[0].Get("a"))
	assert.Equal(t, domain.NumberValue(1), out[0].Get("b"))
	assert.NotContains(t, rows[0].Values, "a")
}

func TestCalculate_WrapsFailures(t *testing.T) {
	ctx := testContext(t)
	rows := []domain.Row{domain.NewRow([]string{"region"}, []domain.Value{domain.StringValue("west")})}
	boom := errors.New("boom")

	_, err := Calculate(ctx, rows, []calculator.Named{{
		Name: "broken",
		Calculator: calculator.CalculatorFunc(func(domain.Row, *domain.Row, calculator.Supplements) (domain.Value, error) {
			return domain.NullValue(), boom
		}),
	}}, nil, nil)

	var calcErr *domain.CalculationError
	require.ErrorAs(t, err, &calcErr)
	assert.Equal(t, "broken", calcErr.Name)
	assert.Equal(t, "west", calcErr.Key)
	assert.ErrorIs(t, err, boom)
}

func TestCalculateAndTrack_RejectNonFiniteResults(t *testing.T) {
	ctx := testContext(t)
	rows := []domain.Row{domain.NewRow([]string{"region"}, []domain.Value{domain.StringValue("west")})}

	for _, n := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Calculate(ctx, rows, []calculator.Named{{
			Name: "bad_ratio",
			Calculator: calculator.CalculatorFunc(func(domain.Row, *domain.Row, calculator.Supplements) (domain.Value, error) {
				return domain.NumberValue(n), nil
			}),
		}}, nil, nil)

		var calcErr *domain.CalculationError
		require.ErrorAs(t, err, &calcErr)
		assert.Equal(t, "bad_ratio", calcErr.Name)

		_, err = Track(ctx, rows, []calculator.NamedTracker{{
			Name: "bad_delta",
			Tracker: calculator.TrackerFunc(func(domain.Row, *domain.Row) (domain.Value, error) {
				return domain.NumberValue(n), nil
			}),
		}})
		require.ErrorAs(t, err, &calcErr)
		assert.Equal(t, "bad_delta", calcErr.Name)
	}
}

func TestTrack_PreviousRow(t *testing.T) {
	ctx := testContext(t)
	rows := []domain.Row{
		domain.NewRow([]string{"month"}, []domain.Value{domain.StringValue("2024-01")}).With("views", domain.NumberValue(10)),
		domain.NewRow([]string{"month"}, []domain.Value{domain.StringValue("2024-02")}).With("views", domain.NumberValue(12)),
		domain.NewRow([]string{"month"}, []domain.Value{domain.StringValue("2024-03")}).With("views", domain.NumberValue(9)),
	}

	var previous []*domain.Row
	capture := calculator.NamedTracker{Name: "seen", Tracker: calculator.TrackerFunc(
		func(_ domain.Row, prev *domain.Row) (domain.Value, error) {
			previous = append(previous, prev)
			return domain.NullValue(), nil
		})}
	delta, err := calculator.Delta(calculator.TrackerSpec{Measure: "views"})
	require.NoError(t, err)

	out, err := Track(ctx, rows, []calculator.NamedTracker{capture, {Name: "change", Tracker: delta}})
	require.NoError(t, err)

	require.Len(t, previous, 3)
	assert.Nil(t, previous[0])
	assert.Equal(t, rows[0], *previous[1])
	assert.Equal(t, rows[1], *previous[2])

	assert.True(t, out[0].Get("change").IsNull())
	assert.Equal(t, domain.NumberValue(2), out[1].Get("change"))
	assert.Equal(t, domain.NumberValue(-3), out[2].Get("change"))
}

func TestParentIndex(t *testing.T) {
	parents := []domain.Row{
		domain.NewRow([]string{"region", "month"}, []domain.Value{domain.StringValue("east"), domain.StringValue("2024-01")}).
			With("views", domain.NumberValue(4)).With("label", domain.StringValue("e")),
		domain.NewRow([]string{"region", "month"}, []domain.Value{domain.StringValue("east"), domain.StringValue("2024-02")}).
			With("views", domain.NumberValue(6)).With("label", domain.StringValue("e")),
		domain.NewRow([]string{"region", "month"}, []domain.Value{domain.StringValue("west"), domain.StringValue("2024-01")}).
			With("views", domain.NumberValue(10)).With("label", domain.StringValue("w")),
	}

	idx := NewParentIndex([]string{"region"}, parents)
	assert.Equal(t, 2, idx.Len())

	child := domain.NewRow([]string{"region", "channel"}, []domain.Value{domain.StringValue("east"), domain.StringValue("web")})
	match := idx.Match(child)
	require.NotNil(t, match)
	assert.Equal(t, domain.NumberValue(10), match.Get("views"))
	assert.Equal(t, domain.StringValue("e"), match.Get("label"))

	missing := domain.NewRow([]string{"region"}, []domain.Value{domain.StringValue("north")})
	assert.Nil(t, idx.Match(missing))

	var none *ParentIndex
	assert.Nil(t, none.Match(child))
	assert.Equal(t, 0, none.Len())
}

func TestCollapse(t *testing.T) {
	rows := []domain.Row{
		domain.NewRow([]string{"region"}, []domain.Value{domain.StringValue("west")}).With("views", domain.NumberValue(7)),
		domain.NewRow([]string{"region"}, []domain.Value{domain.StringValue("east")}).With("views", domain.NumberValue(15)),
	}

	total := Collapse(nil, rows, nil)
	require.Len(t, total, 1)
	assert.Equal(t, domain.NumberValue(22), total[0].Get("views"))

	same := Collapse([]string{"region"}, rows, nil)
	require.Len(t, same, 2)
	assert.Equal(t, "east", same[0].KeyString())

	empty := Collapse(nil, nil, nil)
	require.Len(t, empty, 1)
	assert.Empty(t, empty[0].Values)
}

func TestCollapse_ConflictStaysNull(t *testing.T) {
	row := func(tier string) domain.Row {
		return domain.NewRow([]string{"region"}, []domain.Value{domain.StringValue("east")}).
			With("tier", domain.StringValue(tier)).
			With("views", domain.NumberValue(1))
	}

	out := Collapse(nil, []domain.Row{row("a"), row("b"), row("a")}, nil)

	require.Len(t, out, 1)
	assert.True(t, out[0].Get("tier").IsNull())
	assert.Equal(t, domain.NumberValue(3), out[0].Get("views"))
}

func TestCollapse_HonorsSortOrder(t *testing.T) {
	row := func(region, channel string, v float64) domain.Row {
		return domain.NewRow([]string{"region", "channel"},
			[]domain.Value{domain.StringValue(region), domain.StringValue(channel)}).
			With("views", domain.NumberValue(v))
	}
	rows := []domain.Row{row("east", "app", 5), row("west", "web", 7), row("east", "web", 10)}

	out := Collapse([]string{"region"}, rows, map[string]string{"region": SortDesc})

	require.Len(t, out, 2)
	assert.Equal(t, "west", out[0].KeyString())
	assert.Equal(t, "east", out[1].KeyString())
	assert.Equal(t, domain.NumberValue(15), out[1].Get("views"))
}
