package reporting

import (
	"context"
	"fmt"
	"maps"

	"github.com/rs/zerolog"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/report"
	"github.com/de-tools/report-atlas/pkg/report/calculator"
	"github.com/de-tools/report-atlas/pkg/services/config"
	"github.com/de-tools/report-atlas/pkg/services/registry"
	"github.com/de-tools/report-atlas/pkg/services/source"
)

// Service builds reports of the catalog's definitions.
type Service interface {
	// Definitions returns the names of the available report definitions
	Definitions() []string
	// Build constructs a report from caller-supplied options merged over the
	// definition's defaults
	Build(ctx context.Context, definition string, params map[string]any) (*report.Report, error)
	// Run constructs a report over the definition's configured source
	Run(ctx context.Context, definition string, params map[string]any) (*report.Report, error)
}

type service struct {
	catalog     registry.Catalog
	profiles    config.ProfileRegistry
	sources     source.Registry
	calculators *calculator.Registry
}

func NewService(
	catalog registry.Catalog,
	profiles config.ProfileRegistry,
	sources source.Registry,
	calculators *calculator.Registry,
) Service {
	if calculators == nil {
		calculators = calculator.DefaultRegistry()
	}
	return &service{
		catalog:     catalog,
		profiles:    profiles,
		sources:     sources,
		calculators: calculators,
	}
}

func (s *service) Definitions() []string {
	return s.catalog.Names()
}

func (s *service) Build(ctx context.Context, definition string, params map[string]any) (*report.Report, error) {
	entry, err := s.catalog.Get(definition)
	if err != nil {
		return nil, err
	}

	merged := maps.Clone(entry.Definition.Report)
	if merged == nil {
		merged = make(map[string]any, len(params))
	}
	maps.Copy(merged, params)

	logger := zerolog.Ctx(ctx).With().Str("definition", definition).Logger()
	r, err := report.New(logger.WithContext(ctx), entry.Metrics, merged, report.WithCalculators(s.calculators))
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *service) Run(ctx context.Context, definition string, params map[string]any) (*report.Report, error) {
	entry, err := s.catalog.Get(definition)
	if err != nil {
		return nil, err
	}

	records, err := s.load(ctx, entry.Definition.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to load records for %s: %w", definition, err)
	}

	withData := maps.Clone(params)
	if withData == nil {
		withData = make(map[string]any, 1)
	}
	withData["raw_data"] = records
	return s.Build(ctx, definition, withData)
}

// load buffers the source so the report outlives the connection.
func (s *service) load(ctx context.Context, ref config.SourceRef) (domain.Records, error) {
	if s.profiles == nil {
		return nil, fmt.Errorf("no source profiles configured")
	}
	profile, err := s.profiles.GetProfile(ctx, ref.Profile)
	if err != nil {
		return nil, err
	}

	src, err := s.sources.Open(ctx, *profile, ref)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := src.Close(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("profile", profile.Name).Msg("failed to close source")
		}
	}()

	return Buffer(ctx, src)
}

// Buffer reads a source into memory.
func Buffer(ctx context.Context, src domain.RecordSource) (domain.Records, error) {
	out := make(domain.Records, 0)
	err := src.Each(ctx, func(r domain.Record) error {
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
