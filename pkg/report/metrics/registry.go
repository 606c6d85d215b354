package metrics

import (
	"fmt"
	"slices"
	"sort"
)

// Measure is a named reducible quantity. An empty Field means the reducer is
// fed once per record (used by count).
type Measure struct {
	Name    string
	Field   string
	Reducer Reducer
}

// Registry declares the dimensions a report type may group by and the
// measures it may aggregate. Declare once, use for many reports.
type Registry struct {
	name     string
	groupers []string
	measures []Measure
}

// NewRegistry creates an empty registry for the named report type.
func NewRegistry(name string) *Registry {
	return &Registry{name: name}
}

func (r *Registry) Name() string { return r.name }

// Grouper declares dimensions. Re-declaring a name keeps its position.
func (r *Registry) Grouper(names ...string) *Registry {
	for _, n := range names {
		if !slices.Contains(r.groupers, n) {
			r.groupers = append(r.groupers, n)
		}
	}
	return r
}

// Measure declares a measure. Re-declaring a name replaces it in place.
func (r *Registry) Measure(name, field string, reducer Reducer) *Registry {
	m := Measure{Name: name, Field: field, Reducer: reducer}
	for i := range r.measures {
		if r.measures[i].Name == name {
			r.measures[i] = m
			return r
		}
	}
	r.measures = append(r.measures, m)
	return r
}

// GrouperNames returns the declared dimensions in declaration order.
func (r *Registry) GrouperNames() []string {
	return slices.Clone(r.groupers)
}

func (r *Registry) HasGrouper(name string) bool {
	return slices.Contains(r.groupers, name)
}

// MeasureNames returns the declared measures in declaration order.
func (r *Registry) MeasureNames() []string {
	names := make([]string, len(r.measures))
	for i, m := range r.measures {
		names[i] = m.Name
	}
	return names
}

func (r *Registry) Lookup(name string) (Measure, bool) {
	for _, m := range r.measures {
		if m.Name == name {
			return m, true
		}
	}
	return Measure{}, false
}

// Select returns the named measures in the requested order, or every
// declared measure when names is empty.
func (r *Registry) Select(names []string) ([]Measure, error) {
	if len(names) == 0 {
		return slices.Clone(r.measures), nil
	}
	out := make([]Measure, 0, len(names))
	for _, n := range names {
		m, ok := r.Lookup(n)
		if !ok {
			return nil, fmt.Errorf("measure %q is not declared by %q", n, r.name)
		}
		out = append(out, m)
	}
	return out, nil
}

// MeasureSpec is the configuration form of a measure.
type MeasureSpec struct {
	Reducer string `mapstructure:"reducer" json:"reducer"`
	Field   string `mapstructure:"field" json:"field,omitempty"`
}

// FromSpec builds a registry from configuration. Measures are declared in
// name order since maps carry none.
func FromSpec(name string, dimensions []string, measures map[string]MeasureSpec) (*Registry, error) {
	reg := NewRegistry(name).Grouper(dimensions...)

	names := make([]string, 0, len(measures))
	for n := range measures {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		spec := measures[n]
		reducer, err := ReducerByName(spec.Reducer)
		if err != nil {
			return nil, fmt.Errorf("measure %q: %w", n, err)
		}
		field := spec.Field
		if field == "" && reducer.Name() != ReducerCount {
			field = n
		}
		reg.Measure(n, field, reducer)
	}
	return reg, nil
}
