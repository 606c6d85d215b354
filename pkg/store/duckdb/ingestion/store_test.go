package ingestion

import (
	"context"
	"testing"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/report-atlas/pkg/models/store"
	"github.com/de-tools/report-atlas/pkg/store/duckdb"
)

func TestNewStore(t *testing.T) {
	t.Run("nil db", func(t *testing.T) {
		s, err := NewStore(nil)
		assert.Error(t, err)
		assert.Nil(t, s)
	})
}

func TestStore_LogAndList(t *testing.T) {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Log(ctx, store.Ingestion{Dataset: "traffic", Source: "traffic.csv", Records: 3, CreatedAt: first}))
	require.NoError(t, s.Log(ctx, store.Ingestion{Dataset: "traffic", Source: "s3://bucket/more.csv", Records: 2, CreatedAt: first.Add(time.Hour)}))
	require.NoError(t, s.Log(ctx, store.Ingestion{Dataset: "billing", Source: "billing.csv", Records: 1}))

	got, err := s.List(ctx, "traffic")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s3://bucket/more.csv", got[0].Source)
	assert.Equal(t, 2, got[0].Records)
	assert.Equal(t, "traffic.csv", got[1].Source)

	none, err := s.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}
