package config

import (
	"context"
	"fmt"

	"gopkg.in/ini.v1"

	"github.com/de-tools/report-atlas/pkg/models/domain"
)

// ProfileRegistry reads source profiles from an ini file. Each section is a
// profile; its "type" key selects the source kind, every other key is a
// driver setting.
//
//	[warehouse]
//	type = databricks
//	host = adb-123.azuredatabricks.net
//	token = dapi...
type ProfileRegistry interface {
	GetProfiles(ctx context.Context) ([]domain.SourceProfile, error)
	GetProfile(ctx context.Context, name string) (*domain.SourceProfile, error)
}

type iniRegistry struct {
	cfg *ini.File
}

func NewProfileRegistry(path string) (ProfileRegistry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles from %s: %w", path, err)
	}
	return &iniRegistry{cfg: cfg}, nil
}

func (r *iniRegistry) GetProfiles(_ context.Context) ([]domain.SourceProfile, error) {
	var profiles []domain.SourceProfile
	for _, section := range r.cfg.Sections() {
		if len(section.Keys()) == 0 {
			continue
		}
		profile, err := toProfile(section)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	return profiles, nil
}

func (r *iniRegistry) GetProfile(_ context.Context, name string) (*domain.SourceProfile, error) {
	section, err := r.cfg.GetSection(name)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found", name)
	}
	return toProfile(section)
}

func toProfile(section *ini.Section) (*domain.SourceProfile, error) {
	kind := section.Key("type").String()
	if kind == "" {
		return nil, fmt.Errorf("profile %s has no type", section.Name())
	}

	settings := make(map[string]string, len(section.Keys()))
	for _, key := range section.Keys() {
		if key.Name() == "type" {
			continue
		}
		settings[key.Name()] = key.String()
	}

	return &domain.SourceProfile{
		Name:     section.Name(),
		Type:     domain.SourceType(kind),
		Settings: settings,
	}, nil
}
