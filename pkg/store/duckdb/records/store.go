package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/models/store"
	"github.com/de-tools/report-atlas/pkg/store/duckdb"
)

// Store keeps report input records in DuckDB, grouped into named datasets.
// A dataset read back through Source iterates in insertion order.
type Store interface {
	Add(ctx context.Context, dataset string, records []domain.Record) (int, error)
	Source(dataset string) domain.RecordSource
	Stats(ctx context.Context, dataset string) (*store.DatasetStats, error)
	Datasets(ctx context.Context) ([]store.DatasetStats, error)
	Drop(ctx context.Context, dataset string) error
}

type recordStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &recordStore{db: db}, nil
}

func (s *recordStore) Add(ctx context.Context, dataset string, records []domain.Record) (int, error) {
	if dataset == "" {
		return 0, fmt.Errorf("dataset is required")
	}
	if len(records) == 0 {
		return 0, nil
	}

	conn := duckdb.Conn(ctx, s.db)

	var next int64
	err := conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM report_records WHERE dataset = ?`, dataset,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("read next sequence: %w", err)
	}

	stmt, err := conn.PrepareContext(ctx, `INSERT INTO report_records (dataset, seq, fields) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, record := range records {
		fields, err := json.Marshal(record)
		if err != nil {
			return i, fmt.Errorf("marshal record %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, dataset, next+int64(i), string(fields)); err != nil {
			return i, fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	zerolog.Ctx(ctx).Debug().Str("dataset", dataset).Int("records", len(records)).Msg("records stored")
	return len(records), nil
}

func (s *recordStore) Source(dataset string) domain.RecordSource {
	return &datasetSource{db: s.db, dataset: dataset}
}

func (s *recordStore) Stats(ctx context.Context, dataset string) (*store.DatasetStats, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM report_records WHERE dataset = ?`, dataset).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("get dataset stats: %w", err)
	}

	var last sql.NullTime
	err = s.db.QueryRowContext(ctx, `SELECT MAX(created_at) FROM ingestion_log WHERE dataset = ?`, dataset).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("get last ingestion: %w", err)
	}

	stats := &store.DatasetStats{Dataset: dataset, RecordsCount: total}
	if last.Valid {
		t := last.Time
		stats.LastIngestedAt = &t
	}
	return stats, nil
}

func (s *recordStore) Datasets(ctx context.Context) ([]store.DatasetStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.dataset, r.records, l.last_ingested
		FROM (
			SELECT dataset, COUNT(*) AS records FROM report_records GROUP BY dataset
		) r
		LEFT JOIN (
			SELECT dataset, MAX(created_at) AS last_ingested FROM ingestion_log GROUP BY dataset
		) l ON l.dataset = r.dataset
		ORDER BY r.dataset
	`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	out := make([]store.DatasetStats, 0)
	for rows.Next() {
		var (
			stats store.DatasetStats
			last  sql.NullTime
		)
		if err := rows.Scan(&stats.Dataset, &stats.RecordsCount, &last); err != nil {
			return nil, err
		}
		if last.Valid {
			t := last.Time
			stats.LastIngestedAt = &t
		}
		out = append(out, stats)
	}
	return out, rows.Err()
}

func (s *recordStore) Drop(ctx context.Context, dataset string) error {
	if _, err := duckdb.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM report_records WHERE dataset = ?`, dataset); err != nil {
		return fmt.Errorf("drop dataset %s: %w", dataset, err)
	}
	return nil
}

type datasetSource struct {
	db      *sql.DB
	dataset string
}

func (d *datasetSource) Each(ctx context.Context, fn func(domain.Record) error) error {
	rows, err := d.db.QueryContext(ctx,
		`SELECT fields FROM report_records WHERE dataset = ? ORDER BY seq`, d.dataset)
	if err != nil {
		return fmt.Errorf("query dataset %s: %w", d.dataset, err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to close dataset rows")
		}
	}(rows)

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		var rec domain.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return &domain.DataError{Field: "fields", Reason: "stored record is not a JSON object", Err: err}
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}
