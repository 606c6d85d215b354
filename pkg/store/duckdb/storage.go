package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const IngestionLogSchema = `
	CREATE TABLE IF NOT EXISTS ingestion_log (
		dataset VARCHAR NOT NULL,
		source VARCHAR NOT NULL,
		records BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
`

// ReportRecordsSchema keeps records schemaless: fields hold the JSON object.
const ReportRecordsSchema = `
	CREATE TABLE IF NOT EXISTS report_records (
		dataset VARCHAR NOT NULL,
		seq BIGINT NOT NULL,
		fields VARCHAR NOT NULL,
		PRIMARY KEY (dataset, seq)
	);
`

var bootQueries = []string{
	IngestionLogSchema,
	ReportRecordsSchema,
}

type Settings struct {
	DbPath  string
	Threads int
}

func NewDB(settings Settings) (*sql.DB, error) {
	threads := settings.Threads
	if threads <= 0 {
		threads = 4
	}

	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=%d", settings.DbPath, threads), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			if _, err := exec.ExecContext(context.Background(), query, nil); err != nil {
				return fmt.Errorf("boot query failed: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sql.OpenDB(c), nil
}
