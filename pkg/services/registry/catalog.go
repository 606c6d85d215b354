package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/de-tools/report-atlas/pkg/report/metrics"
	"github.com/de-tools/report-atlas/pkg/services/config"
)

var ErrDefinitionNotFound = errors.New("definition not found")

// Entry is a registered report definition with its compiled metrics.
type Entry struct {
	Definition config.Definition
	Metrics    *metrics.Registry
}

// Catalog holds the report definitions an application serves.
type Catalog interface {
	// Register compiles and adds a definition
	Register(def config.Definition) error
	// Get returns a registered definition by name
	Get(name string) (*Entry, error)
	// Names returns the registered definition names in order
	Names() []string
}

type catalog struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewCatalog() Catalog {
	return &catalog{entries: make(map[string]*Entry)}
}

// NewCatalogFromSettings registers every definition in the settings.
func NewCatalogFromSettings(settings *config.Settings) (Catalog, error) {
	c := NewCatalog()
	for _, def := range settings.Definitions {
		if err := c.Register(def); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *catalog) Register(def config.Definition) error {
	reg, err := def.Registry()
	if err != nil {
		return fmt.Errorf("invalid definition: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[def.Name]; exists {
		return fmt.Errorf("definition %q is already registered", def.Name)
	}
	c.entries[def.Name] = &Entry{Definition: def, Metrics: reg}
	return nil
}

func (c *catalog) Get(name string) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDefinitionNotFound, name)
	}
	return entry, nil
}

func (c *catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
