package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/config"
)

type IngestCmd struct {
	env     *Env
	profile string
	file    string
	uri     string
	query   string
	source  string
	dataset string
}

func NewIngestCmd(env *Env) *cobra.Command {
	ic := &IngestCmd{env: env}
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Copy records into a local dataset",
		RunE:  ic.run,
	}

	cmd.Flags().StringVar(&ic.profile, "profile", "", "Source profile to read with")
	cmd.Flags().StringVar(&ic.file, "file", "", "CSV file to read")
	cmd.Flags().StringVar(&ic.uri, "uri", "", "S3 object to read, e.g. s3://bucket/key.csv")
	cmd.Flags().StringVar(&ic.query, "query", "", "SQL query to run against the profile's warehouse")
	cmd.Flags().StringVar(&ic.source, "source-dataset", "", "Dataset to copy from a DuckDB profile")
	cmd.Flags().StringVar(&ic.dataset, "dataset", "", "Target dataset name")

	_ = cmd.MarkFlagRequired("dataset")
	cmd.MarkFlagsMutuallyExclusive("file", "uri", "query", "source-dataset")
	cmd.MarkFlagsOneRequired("file", "uri", "query", "source-dataset")

	return cmd
}

func (ic *IngestCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := ic.env.Open(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	profile, err := ic.resolveProfile(cmd, rt)
	if err != nil {
		return err
	}

	ingester, err := rt.Ingester()
	if err != nil {
		return err
	}

	ref := config.SourceRef{Path: ic.file, URI: ic.uri, Query: ic.query, Dataset: ic.source}
	n, err := ingester.Ingest(ctx, profile, ref, ic.dataset)
	if err != nil {
		return fmt.Errorf("failed to ingest into %s: %w", ic.dataset, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d record(s) into %s\n", n, ic.dataset)
	return nil
}

// resolveProfile falls back to an anonymous profile for files and S3 objects.
func (ic *IngestCmd) resolveProfile(cmd *cobra.Command, rt *Runtime) (domain.SourceProfile, error) {
	if ic.profile != "" {
		if rt.Profiles == nil {
			return domain.SourceProfile{}, fmt.Errorf("no profiles file found for profile %s", ic.profile)
		}
		p, err := rt.Profiles.GetProfile(cmd.Context(), ic.profile)
		if err != nil {
			return domain.SourceProfile{}, err
		}
		return *p, nil
	}

	switch {
	case ic.file != "":
		return domain.SourceProfile{Name: "file", Type: domain.SourceTypeCSV}, nil
	case ic.uri != "":
		return domain.SourceProfile{Name: "s3", Type: domain.SourceTypeS3}, nil
	default:
		return domain.SourceProfile{}, fmt.Errorf("a --profile is required to run queries or copy datasets")
	}
}
