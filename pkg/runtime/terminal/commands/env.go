package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/de-tools/report-atlas/pkg/services/config"
	"github.com/de-tools/report-atlas/pkg/services/registry"
	"github.com/de-tools/report-atlas/pkg/services/reporting"
	"github.com/de-tools/report-atlas/pkg/services/source"
	"github.com/de-tools/report-atlas/pkg/store/duckdb"
)

// Env holds the global flags every command resolves its runtime from.
type Env struct {
	ConfigPath   string
	ProfilesPath string
	Sources      source.Registry
}

// Runtime is the wiring a command runs against. Close releases the local
// database when one was opened.
type Runtime struct {
	Settings *config.Settings
	Profiles config.ProfileRegistry
	Service  reporting.Service

	sources source.Registry
	db      *sql.DB
}

func (e *Env) Open(ctx context.Context) (*Runtime, error) {
	settings, err := config.LoadSettings(e.ConfigPath)
	if err != nil {
		return nil, err
	}

	catalog, err := registry.NewCatalogFromSettings(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to register definitions: %w", err)
	}

	profilesPath := e.ProfilesPath
	if settings.Profiles != "" {
		profilesPath = settings.Profiles
	}

	var profiles config.ProfileRegistry
	if _, err := os.Stat(profilesPath); err == nil {
		profiles, err = config.NewProfileRegistry(profilesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load profiles: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat profiles %s: %w", profilesPath, err)
	} else {
		zerolog.Ctx(ctx).Debug().Str("path", profilesPath).Msg("no profiles file found")
	}

	sources := e.Sources
	if sources == nil {
		sources = source.NewDefaultRegistry()
	}

	return &Runtime{
		Settings: settings,
		Profiles: profiles,
		Service:  reporting.NewService(catalog, profiles, sources, nil),
		sources:  sources,
	}, nil
}

// Ingester opens the local dataset database on first use.
func (r *Runtime) Ingester() (*reporting.Ingester, error) {
	if r.db == nil {
		db, err := duckdb.NewDB(duckdb.Settings{DbPath: r.Settings.Database})
		if err != nil {
			return nil, fmt.Errorf("failed to create DuckDB instance: %w", err)
		}
		r.db = db
	}
	return reporting.NewIngester(r.db, r.sources)
}

func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
