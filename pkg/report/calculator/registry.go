package calculator

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a calculator from its configuration.
type Factory func(spec Spec) (Calculator, error)

// TrackerFactory builds a tracker from its configuration.
type TrackerFactory func(spec TrackerSpec) (Tracker, error)

// Registry maps calculator and tracker types to their factories.
type Registry struct {
	mu          sync.RWMutex
	calculators map[string]Factory
	trackers    map[string]TrackerFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		calculators: make(map[string]Factory),
		trackers:    make(map[string]TrackerFactory),
	}
}

// DefaultRegistry creates a registry holding the built-in types.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.RegisterCalculator(TypeRatio, Ratio)
	_ = r.RegisterCalculator(TypeDifference, Difference)
	_ = r.RegisterCalculator(TypeLookup, Lookup)
	_ = r.RegisterTracker(TypeDelta, Delta)
	_ = r.RegisterTracker(TypePercentChange, PercentChange)
	return r
}

func (r *Registry) RegisterCalculator(kind string, factory Factory) error {
	if kind == "" {
		return fmt.Errorf("calculator type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.calculators[kind]; exists {
		return fmt.Errorf("calculator type %q is already registered", kind)
	}
	r.calculators[kind] = factory
	return nil
}

func (r *Registry) RegisterTracker(kind string, factory TrackerFactory) error {
	if kind == "" {
		return fmt.Errorf("tracker type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.trackers[kind]; exists {
		return fmt.Errorf("tracker type %q is already registered", kind)
	}
	r.trackers[kind] = factory
	return nil
}

func (r *Registry) HasCalculator(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.calculators[kind]
	return ok
}

func (r *Registry) HasTracker(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.trackers[kind]
	return ok
}

// Calculator instantiates the calculator type named by spec.Type.
func (r *Registry) Calculator(spec Spec) (Calculator, error) {
	r.mu.RLock()
	factory, ok := r.calculators[spec.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("calculator type %q is not registered", spec.Type)
	}
	return factory(spec)
}

// Tracker instantiates the tracker type named by spec.Type.
func (r *Registry) Tracker(spec TrackerSpec) (Tracker, error) {
	r.mu.RLock()
	factory, ok := r.trackers[spec.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("tracker type %q is not registered", spec.Type)
	}
	return factory(spec)
}

// Types lists the registered calculator and tracker types.
func (r *Registry) Types() (calculators, trackers []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for k := range r.calculators {
		calculators = append(calculators, k)
	}
	for k := range r.trackers {
		trackers = append(trackers, k)
	}
	sort.Strings(calculators)
	sort.Strings(trackers)
	return calculators, trackers
}
