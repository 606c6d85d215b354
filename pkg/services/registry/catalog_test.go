package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/report-atlas/pkg/report/metrics"
	"github.com/de-tools/report-atlas/pkg/services/config"
)

func traffic() config.Definition {
	return config.Definition{
		Name:       "traffic",
		Dimensions: []string{"region"},
		Measures:   map[string]metrics.MeasureSpec{"views": {Reducer: "sum"}},
	}
}

func TestCatalog(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register(traffic()))

	billing := traffic()
	billing.Name = "billing"
	require.NoError(t, c.Register(billing))

	assert.Error(t, c.Register(traffic()))
	assert.Equal(t, []string{"billing", "traffic"}, c.Names())

	entry, err := c.Get("traffic")
	require.NoError(t, err)
	assert.Equal(t, "traffic", entry.Metrics.Name())
	assert.True(t, entry.Metrics.HasGrouper("region"))

	_, err = c.Get("missing")
	assert.ErrorIs(t, err, ErrDefinitionNotFound)
}

func TestCatalog_RejectsInvalidDefinitions(t *testing.T) {
	c := NewCatalog()

	bad := traffic()
	bad.Measures = map[string]metrics.MeasureSpec{"views": {Reducer: "median"}}
	assert.Error(t, c.Register(bad))

	_, err := NewCatalogFromSettings(&config.Settings{Definitions: []config.Definition{traffic(), traffic()}})
	assert.Error(t, err)
}
