package ingestion

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/de-tools/report-atlas/pkg/models/store"
	"github.com/de-tools/report-atlas/pkg/store/duckdb"
)

// Store records every load into a dataset.
type Store interface {
	Log(ctx context.Context, ingestion store.Ingestion) error
	List(ctx context.Context, dataset string) ([]store.Ingestion, error)
}

type defaultStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &defaultStore{db: db}, nil
}

func (s *defaultStore) Log(ctx context.Context, ingestion store.Ingestion) error {
	if ingestion.CreatedAt.IsZero() {
		ingestion.CreatedAt = time.Now().UTC()
	}
	_, err := duckdb.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO ingestion_log (dataset, source, records, created_at) VALUES (?, ?, ?, ?)`,
		ingestion.Dataset, ingestion.Source, ingestion.Records, ingestion.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("log ingestion: %w", err)
	}
	return nil
}

func (s *defaultStore) List(ctx context.Context, dataset string) ([]store.Ingestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dataset, source, records, created_at
		FROM ingestion_log
		WHERE dataset = ?
		ORDER BY created_at DESC
	`, dataset)
	if err != nil {
		return nil, fmt.Errorf("list ingestions: %w", err)
	}
	defer rows.Close()

	out := make([]store.Ingestion, 0)
	for rows.Next() {
		var in store.Ingestion
		if err := rows.Scan(&in.Dataset, &in.Source, &in.Records, &in.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
