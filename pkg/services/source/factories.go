package source

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/databricks/databricks-sql-go"
	sf "github.com/snowflakedb/gosnowflake"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/config"
	"github.com/de-tools/report-atlas/pkg/store/csvfile"
	"github.com/de-tools/report-atlas/pkg/store/duckdb"
	"github.com/de-tools/report-atlas/pkg/store/duckdb/records"
	"github.com/de-tools/report-atlas/pkg/store/s3"
	storesql "github.com/de-tools/report-atlas/pkg/store/sql"
)

type closer struct {
	domain.RecordSource
	close func() error
}

func (c closer) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

func inMemory(recs domain.Records) Source {
	return closer{RecordSource: recs}
}

// DuckDBFactory reads a stored dataset. Settings: path.
func DuckDBFactory(_ context.Context, profile domain.SourceProfile, ref config.SourceRef) (Source, error) {
	if ref.Dataset == "" {
		return nil, fmt.Errorf("profile %s: a dataset is required", profile.Name)
	}
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: profile.Setting("path", "report-atlas.duckdb")})
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	store, err := records.NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return closer{RecordSource: store.Source(ref.Dataset), close: db.Close}, nil
}

// CSVFactory reads one file. The reference path is resolved against the
// profile's path setting when relative.
func CSVFactory(_ context.Context, profile domain.SourceProfile, ref config.SourceRef) (Source, error) {
	path := ref.Path
	if path == "" {
		return nil, fmt.Errorf("profile %s: a path is required", profile.Name)
	}
	if dir := profile.Setting("path", ""); dir != "" && !strings.HasPrefix(path, "/") {
		path = strings.TrimSuffix(dir, "/") + "/" + path
	}

	recs, err := csvfile.ReadFile(path, csvOptions(profile))
	if err != nil {
		return nil, err
	}
	return inMemory(recs), nil
}

// S3Factory downloads one CSV object. Settings: aws_profile, region.
func S3Factory(ctx context.Context, profile domain.SourceProfile, ref config.SourceRef) (Source, error) {
	bucket, key, err := s3.ParseURI(ref.URI)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", profile.Name, err)
	}
	client, err := s3.NewClient(ctx, profile.Setting("aws_profile", ""), profile.Setting("region", ""))
	if err != nil {
		return nil, err
	}
	recs, err := s3.LoadCSV(ctx, client, bucket, key, csvOptions(profile))
	if err != nil {
		return nil, err
	}
	return inMemory(recs), nil
}

// DatabricksFactory runs the reference query on a SQL warehouse. Settings:
// host, token, http_path, catalog, schema.
func DatabricksFactory(_ context.Context, profile domain.SourceProfile, ref config.SourceRef) (Source, error) {
	dsn, err := DatabricksDSN(profile)
	if err != nil {
		return nil, err
	}
	return openQuery("databricks", dsn, profile, ref)
}

// SnowflakeFactory runs the reference query on Snowflake. Settings: account,
// user, password, database, warehouse, role.
func SnowflakeFactory(_ context.Context, profile domain.SourceProfile, ref config.SourceRef) (Source, error) {
	dsn, err := SnowflakeDSN(profile)
	if err != nil {
		return nil, err
	}
	return openQuery("snowflake", dsn, profile, ref)
}

func DatabricksDSN(profile domain.SourceProfile) (string, error) {
	host := profile.Setting("host", "")
	token := profile.Setting("token", "")
	httpPath := profile.Setting("http_path", "")
	if host == "" || token == "" || httpPath == "" {
		return "", fmt.Errorf("profile %s: host, token and http_path are required", profile.Name)
	}

	dsn := fmt.Sprintf("token:%s@%s%s", token, host, httpPath)

	params := url.Values{}
	if catalog := profile.Setting("catalog", ""); catalog != "" {
		params.Set("catalog", catalog)
	}
	if schema := profile.Setting("schema", ""); schema != "" {
		params.Set("schema", schema)
	}
	if qp := params.Encode(); qp != "" {
		dsn = dsn + "?" + qp
	}
	return dsn, nil
}

func SnowflakeDSN(profile domain.SourceProfile) (string, error) {
	dsn, err := sf.DSN(&sf.Config{
		Account:   profile.Setting("account", ""),
		User:      profile.Setting("user", ""),
		Password:  profile.Setting("password", ""),
		Database:  profile.Setting("database", ""),
		Warehouse: profile.Setting("warehouse", ""),
		Role:      profile.Setting("role", ""),
	})
	if err != nil {
		return "", fmt.Errorf("profile %s: failed to create DSN: %w", profile.Name, err)
	}
	return dsn, nil
}

func openQuery(driver, dsn string, profile domain.SourceProfile, ref config.SourceRef) (Source, error) {
	if ref.Query == "" {
		return nil, fmt.Errorf("profile %s: a query is required", profile.Name)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	src, err := storesql.NewQuerySource(db, ref.Query)
	if err != nil {
		db.Close()
		return nil, err
	}
	return closer{RecordSource: src, close: db.Close}, nil
}

func csvOptions(profile domain.SourceProfile) csvfile.Options {
	var opts csvfile.Options
	if d := profile.Setting("delimiter", ""); d != "" {
		opts.Comma = []rune(d)[0]
	}
	if text := profile.Setting("text_columns", ""); text != "" {
		for _, c := range strings.Split(text, ",") {
			opts.Text = append(opts.Text, strings.TrimSpace(c))
		}
	}
	return opts
}
