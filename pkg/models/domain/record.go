package domain

import (
	"context"
	"fmt"
	"sort"
)

// Record is one input row: field name to scalar value.
type Record map[string]Value

// Get returns the value of a field, or null when the field is missing.
func (r Record) Get(field string) Value {
	return r[field]
}

// NewRecord converts a plain map into a Record.
func NewRecord(fields map[string]any) (Record, error) {
	rec := make(Record, len(fields))
	for k, raw := range fields {
		v, err := ValueOf(raw)
		if err != nil {
			return nil, &DataError{Field: k, Reason: err.Error()}
		}
		rec[k] = v
	}
	return rec, nil
}

// Fields returns the record's field names in sorted order.
func (r Record) Fields() []string {
	names := make([]string, 0, len(r))
	for k := range r {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// RecordSource is an iterable collection of records. Iteration must be
// stable: every call to Each visits the same records in the same order.
type RecordSource interface {
	Each(ctx context.Context, fn func(Record) error) error
}

// Blanker lets a value declare its own emptiness. Values implementing it are
// opaque to parameter normalization and never blank-tested.
type Blanker interface {
	Blank() bool
}

// Records is an in-memory RecordSource.
type Records []Record

func (rs Records) Each(ctx context.Context, fn func(Record) error) error {
	for _, r := range rs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (rs Records) Blank() bool { return len(rs) == 0 }

// AsRecordSource accepts the shapes callers hand in as raw data.
func AsRecordSource(v any) (RecordSource, error) {
	switch t := v.(type) {
	case RecordSource:
		return t, nil
	case []Record:
		return Records(t), nil
	case []map[string]any:
		return recordsFromMaps(t)
	case []any:
		maps := make([]map[string]any, 0, len(t))
		for i, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, &DataError{Field: fmt.Sprintf("raw_data[%d]", i), Reason: fmt.Sprintf("expected an object, got %T", item)}
			}
			maps = append(maps, m)
		}
		return recordsFromMaps(maps)
	default:
		return nil, &DataError{Field: "raw_data", Reason: fmt.Sprintf("unsupported record source %T", v)}
	}
}

func recordsFromMaps(maps []map[string]any) (Records, error) {
	out := make(Records, 0, len(maps))
	for _, m := range maps {
		rec, err := NewRecord(m)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// CountRecords walks a source once and returns its size.
func CountRecords(ctx context.Context, src RecordSource) (int, error) {
	n := 0
	err := src.Each(ctx, func(Record) error {
		n++
		return nil
	})
	return n, err
}
