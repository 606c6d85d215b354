package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/config"
)

// Source is an opened record source. Close releases its connection.
type Source interface {
	domain.RecordSource
	Close() error
}

// Factory opens a source of one kind for a profile.
type Factory func(ctx context.Context, profile domain.SourceProfile, ref config.SourceRef) (Source, error)

// Registry manages source factories by kind.
type Registry interface {
	// Register adds a factory for a source kind
	Register(kind domain.SourceType, factory Factory) error
	// Open creates a source using the factory registered for the profile's kind
	Open(ctx context.Context, profile domain.SourceProfile, ref config.SourceRef) (Source, error)
	// Kinds returns the registered source kinds
	Kinds() []domain.SourceType
}

type registry struct {
	mu        sync.RWMutex
	factories map[domain.SourceType]Factory
}

func NewRegistry() Registry {
	return &registry{
		factories: make(map[domain.SourceType]Factory),
	}
}

// NewDefaultRegistry registers every built-in source kind.
func NewDefaultRegistry() Registry {
	r := NewRegistry()
	_ = r.Register(domain.SourceTypeDuckDB, DuckDBFactory)
	_ = r.Register(domain.SourceTypeCSV, CSVFactory)
	_ = r.Register(domain.SourceTypeS3, S3Factory)
	_ = r.Register(domain.SourceTypeDatabricks, DatabricksFactory)
	_ = r.Register(domain.SourceTypeSnowflake, SnowflakeFactory)
	return r
}

func (r *registry) Register(kind domain.SourceType, factory Factory) error {
	if kind == "" {
		return fmt.Errorf("source kind cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("source kind %q is already registered", kind)
	}

	r.factories[kind] = factory
	return nil
}

func (r *registry) Open(ctx context.Context, profile domain.SourceProfile, ref config.SourceRef) (Source, error) {
	r.mu.RLock()
	factory, exists := r.factories[profile.Type]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("source kind %q is not registered", profile.Type)
	}

	return factory(ctx, profile, ref)
}

func (r *registry) Kinds() []domain.SourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]domain.SourceType, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
