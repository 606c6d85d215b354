package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_Handle(t *testing.T) {
	// Given
	var buf bytes.Buffer
	reporter := NewReporter(&buf)
	table := Table{
		Title:   "traffic",
		Columns: []string{"region", "views", "view_share"},
		Rows: []map[string]any{
			{"region": "east", "views": 15.0, "view_share": 15.0 / 22.0},
			{"region": "west", "views": 7.0, "view_share": nil},
		},
	}

	// When
	err := reporter.Handle(table)

	// Then
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "=== traffic ===")
	assert.Contains(t, out, "| region | views  | view_share |")
	assert.Contains(t, out, "| east   | 15     | 0.6818     |")
	assert.Contains(t, out, "| west   | 7      |            |")
	assert.Contains(t, out, "2 row(s)")
}

func TestReporter_HandleTruncatesWideCells(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewReporter(&buf)

	err := reporter.Handle(Table{
		Title:   "wide",
		Columns: []string{"name"},
		Rows:    []map[string]any{{"name": strings.Repeat("x", 50)}},
	})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), strings.Repeat("x", 39)+"~")
}

func TestReporter_HandleJSON(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewReporter(&buf)

	err := reporter.HandleJSON(Table{Rows: []map[string]any{{"region": "east", "views": 15.0}}})

	require.NoError(t, err)
	assert.JSONEq(t, `[{"region":"east","views":15}]`, buf.String())
}
