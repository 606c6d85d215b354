package reporting

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/models/store"
	"github.com/de-tools/report-atlas/pkg/services/config"
	"github.com/de-tools/report-atlas/pkg/services/source"
	"github.com/de-tools/report-atlas/pkg/store/duckdb"
	"github.com/de-tools/report-atlas/pkg/store/duckdb/ingestion"
	"github.com/de-tools/report-atlas/pkg/store/duckdb/records"
)

// Ingester copies records from any source into a local DuckDB dataset.
type Ingester struct {
	db      *sql.DB
	records records.Store
	log     ingestion.Store
	sources source.Registry
}

func NewIngester(db *sql.DB, sources source.Registry) (*Ingester, error) {
	recordStore, err := records.NewStore(db)
	if err != nil {
		return nil, err
	}
	logStore, err := ingestion.NewStore(db)
	if err != nil {
		return nil, err
	}
	return &Ingester{db: db, records: recordStore, log: logStore, sources: sources}, nil
}

// Ingest loads the referenced records and appends them to dataset. The
// records and the ingestion log entry are written in one transaction.
func (i *Ingester) Ingest(
	ctx context.Context,
	profile domain.SourceProfile,
	ref config.SourceRef,
	dataset string,
) (int, error) {
	logger := zerolog.Ctx(ctx).With().Str("dataset", dataset).Str("profile", profile.String()).Logger()

	src, err := i.sources.Open(ctx, profile, ref)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close source")
		}
	}()

	recs, err := Buffer(ctx, src)
	if err != nil {
		return 0, fmt.Errorf("failed to read source: %w", err)
	}

	var added int
	err = duckdb.InTransaction(ctx, i.db, func(ctx context.Context) error {
		n, err := i.records.Add(ctx, dataset, recs)
		if err != nil {
			return err
		}
		added = n
		return i.log.Log(ctx, store.Ingestion{
			Dataset:   dataset,
			Source:    describe(profile, ref),
			Records:   n,
			CreatedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to store records: %w", err)
	}

	logger.Info().Int("records", added).Msg("ingestion complete")
	return added, nil
}

// Datasets lists the stored datasets.
func (i *Ingester) Datasets(ctx context.Context) ([]store.DatasetStats, error) {
	return i.records.Datasets(ctx)
}

// History lists past ingestions of a dataset, newest first.
func (i *Ingester) History(ctx context.Context, dataset string) ([]store.Ingestion, error) {
	return i.log.List(ctx, dataset)
}

func describe(profile domain.SourceProfile, ref config.SourceRef) string {
	switch {
	case ref.URI != "":
		return ref.URI
	case ref.Path != "":
		return ref.Path
	case ref.Dataset != "":
		return profile.Name + "/" + ref.Dataset
	default:
		return profile.String()
	}
}
