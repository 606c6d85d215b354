package sql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/report-atlas/pkg/models/domain"
)

func TestNewQuerySource(t *testing.T) {
	_, err := NewQuerySource(nil, "SELECT 1")
	assert.Error(t, err)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewQuerySource(db, "")
	assert.Error(t, err)
}

func TestQuerySource_Each(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	query := "SELECT region, views, mobile, day, channel FROM traffic WHERE day >= ? ORDER BY day"

	mock.ExpectQuery("SELECT region, views, mobile, day, channel FROM traffic").
		WithArgs(day).
		WillReturnRows(sqlmock.NewRows([]string{"region", "views", "mobile", "day", "channel"}).
			AddRow("east", int64(10), true, day, nil).
			AddRow([]byte("west"), 7.5, false, day, "web"))

	src, err := NewQuerySource(db, query, day)
	require.NoError(t, err)

	var got []domain.Record
	err = src.Each(context.Background(), func(r domain.Record) error {
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, domain.StringValue("east"), got[0].Get("region"))
	assert.Equal(t, domain.NumberValue(10), got[0].Get("views"))
	assert.Equal(t, domain.BoolValue(true), got[0].Get("mobile"))
	assert.Equal(t, domain.StringValue("2024-01-02T00:00:00Z"), got[0].Get("day"))
	assert.True(t, got[0].Get("channel").IsNull())
	assert.Equal(t, domain.StringValue("west"), got[1].Get("region"))
	assert.Equal(t, domain.NumberValue(7.5), got[1].Get("views"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuerySource_Errors(t *testing.T) {
	t.Run("query failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT").WillReturnError(errors.New("warehouse unavailable"))

		src, err := NewQuerySource(db, "SELECT * FROM traffic")
		require.NoError(t, err)

		err = src.Each(context.Background(), func(domain.Record) error { return nil })
		assert.ErrorContains(t, err, "warehouse unavailable")
	})

	t.Run("callback failure stops iteration", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1).AddRow(2))

		src, err := NewQuerySource(db, "SELECT n FROM numbers")
		require.NoError(t, err)

		stop := errors.New("stop")
		calls := 0
		err = src.Each(context.Background(), func(domain.Record) error {
			calls++
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, calls)
	})
}
