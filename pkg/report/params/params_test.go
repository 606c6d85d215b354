package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/report-atlas/pkg/models/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]any
		expected map[string]any
	}{
		{
			name:     "typed slices become generic",
			raw:      map[string]any{"groupers": []string{"region", "month"}},
			expected: map[string]any{"groupers": []any{"region", "month"}},
		},
		{
			name:     "blank strings dropped from slices",
			raw:      map[string]any{"groupers": []any{"region", " ", ""}},
			expected: map[string]any{"groupers": []any{"region"}},
		},
		{
			name:     "blank values and empty containers removed",
			raw:      map[string]any{"measures": []string{}, "sort": map[string]any{"region": ""}, "groupers": nil},
			expected: map[string]any{},
		},
		{
			name:     "non-string keys stringified",
			raw:      map[string]any{"sort": map[any]any{"region": "desc"}},
			expected: map[string]any{"sort": map[string]any{"region": "desc"}},
		},
		{
			name:     "strip_blanks false keeps blank strings",
			raw:      map[string]any{"strip_blanks": false, "groupers": []any{"region", ""}},
			expected: map[string]any{"strip_blanks": false, "groupers": []any{"region", ""}},
		},
		{
			name:     "booleans are never blank",
			raw:      map[string]any{"calculators": map[string]any{"x": map[string]any{"type": "ratio", "flag": false}}},
			expected: map[string]any{"calculators": map[string]any{"x": map[string]any{"type": "ratio", "flag": false}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.raw))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	configs := []map[string]any{
		{"groupers": []string{"region", ""}, "measures": []any{}},
		{"calculators": map[string]any{"share": map[string]any{"type": "ratio", "measure": "views", "key": " "}}},
		{"filters": map[string]any{"region": []any{"east", nil, ""}}, "sort": map[string]any{}},
		{"strip_blanks": false, "groupers": []any{""}},
		{"raw_data": []map[string]any{}, "total_data": nil},
	}

	for _, c := range configs {
		once := Normalize(c)
		assert.Equal(t, once, Normalize(once))
	}
}

func TestNormalize_LeavesDataUntouched(t *testing.T) {
	raw := []map[string]any{{"region": "", "views": nil}}
	total := []map[string]any{}
	rows := []any{}

	clean := Normalize(map[string]any{
		"raw_data":     raw,
		"total_data":   total,
		"row_data":     rows,
		"strip_blanks": true,
	})

	assert.Equal(t, raw, clean[KeyRawData])
	assert.Equal(t, total, clean[KeyTotalData])
	assert.Equal(t, rows, clean[KeyRowData])
	assert.Equal(t, map[string]any{"region": "", "views": nil}, raw[0])
}

func TestNormalize_KeepsOpaqueValues(t *testing.T) {
	src := domain.Records{}
	type handle struct{ name string }
	h := &handle{name: "parent"}

	clean := Normalize(map[string]any{
		"parent_report": h,
		"supplements":   map[string]any{"targets": src, "other": h},
	})

	assert.Same(t, h, clean[KeyParentReport])
	sup := clean[KeySupplements].(map[string]any)
	assert.Same(t, h, sup["other"])
	assert.Equal(t, src, sup["targets"])
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	groupers := []any{"region", ""}
	raw := map[string]any{"groupers": groupers, "sort": map[string]any{"region": ""}}

	Normalize(raw)

	assert.Equal(t, []any{"region", ""}, groupers)
	assert.Equal(t, map[string]any{"region": ""}, raw["sort"])
}

func TestDecode(t *testing.T) {
	clean := Normalize(map[string]any{
		"groupers": []string{"region", "month"},
		"measures": []string{"views"},
		"calculators": map[string]any{
			"share": map[string]any{"type": "ratio", "measure": "views"},
			"alpha": map[string]any{"type": "lookup", "supplement": "targets", "key": "region", "field": "target"},
		},
		"trackers": map[string]any{"change": map[string]any{"type": "delta", "measure": "views"}},
		"parent_groupers": []string{"region"},
		"sort":            map[string]any{"month": "desc"},
		"filters":         map[string]any{"region": []string{"east"}},
		"raw_data":        []map[string]any{{"region": "east"}},
	})

	cfg, err := Decode(clean)
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "month"}, cfg.Groupers)
	assert.Equal(t, []string{"views"}, cfg.Measures)
	assert.Equal(t, []string{"alpha", "share"}, cfg.CalculatorNames())
	assert.Equal(t, "targets", cfg.Calculators["alpha"].Supplement)
	assert.Equal(t, "views", cfg.Calculators["share"].ParentField())
	assert.Equal(t, []string{"change"}, cfg.TrackerNames())
	assert.Equal(t, []string{"region"}, cfg.ParentGroupers)
	assert.Equal(t, map[string]string{"month": "desc"}, cfg.Sort)
	assert.Equal(t, map[string][]string{"region": {"east"}}, cfg.Filters)
	assert.Nil(t, cfg.StripBlanks)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		clean map[string]any
		field string
	}{
		{name: "unknown option", clean: map[string]any{"grouper": []any{"region"}}, field: "grouper"},
		{name: "unknown calculator option", clean: map[string]any{"calculators": map[string]any{"x": map[string]any{"type": "ratio", "scale": 2}}}, field: "params"},
		{name: "wrong shape", clean: map[string]any{"groupers": map[string]any{"a": "b"}}, field: "params"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.clean)
			var cfgErr *domain.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}
