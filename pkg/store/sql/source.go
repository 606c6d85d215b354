package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/de-tools/report-atlas/pkg/models/domain"
)

// QuerySource reads records from any database/sql driver. Every call to Each
// re-runs the query, so the query must carry its own ORDER BY for iteration
// to be stable.
type QuerySource struct {
	db    *sql.DB
	query string
	args  []any
}

func NewQuerySource(db *sql.DB, query string, args ...any) (*QuerySource, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	return &QuerySource{db: db, query: query, args: args}, nil
}

func (q *QuerySource) Each(ctx context.Context, fn func(domain.Record) error) error {
	logger := zerolog.Ctx(ctx)

	rows, err := q.db.QueryContext(ctx, q.query, q.args...)
	if err != nil {
		return fmt.Errorf("record query failed: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close record query rows")
		}
	}(rows)

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("read columns: %w", err)
	}

	seen := 0
	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan record: %w", err)
		}

		rec := make(domain.Record, len(columns))
		for i, col := range columns {
			v, err := domain.ValueOf(raw[i])
			if err != nil {
				return &domain.DataError{Field: col, Reason: "unsupported column value", Err: err}
			}
			rec[col] = v
		}
		if err := fn(rec); err != nil {
			return err
		}
		seen++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate records: %w", err)
	}

	logger.Debug().Int("records", seen).Msg("read records from query")
	return nil
}
