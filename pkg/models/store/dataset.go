package store

import "time"

// DatasetStats summarizes one stored dataset.
type DatasetStats struct {
	Dataset        string
	RecordsCount   int64
	LastIngestedAt *time.Time
}

// Ingestion is one load of records into a dataset.
type Ingestion struct {
	Dataset   string
	Source    string
	Records   int
	CreatedAt time.Time
}
