package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// KeySeparator joins grouper values in composite keys.
const KeySeparator = "|"

// Row is one aggregated result: the group key, aligned with Groupers, and the
// named measure, calculator and tracker values.
type Row struct {
	Groupers []string
	Key      []Value
	Values   map[string]Value
}

// NewRow builds a row from grouper names and their key values.
func NewRow(groupers []string, key []Value) Row {
	return Row{
		Groupers: groupers,
		Key:      key,
		Values:   make(map[string]Value),
	}
}

// Lookup resolves a name against the grouper values first, then the
// computed values.
func (r Row) Lookup(name string) (Value, bool) {
	for i, g := range r.Groupers {
		if g == name && i < len(r.Key) {
			return r.Key[i], true
		}
	}
	v, ok := r.Values[name]
	return v, ok
}

// Get is Lookup without the presence flag; missing names are null.
func (r Row) Get(name string) Value {
	v, _ := r.Lookup(name)
	return v
}

// KeyString renders the composite key, e.g. "east|2024-01".
func (r Row) KeyString() string {
	return CompositeKey(r.Key)
}

// CompositeKey joins key values with KeySeparator. Nulls render empty.
func CompositeKey(key []Value) string {
	parts := make([]string, len(key))
	for i, v := range key {
		parts[i] = v.Text()
	}
	return strings.Join(parts, KeySeparator)
}

// HashKey renders the key as a JSON array, e.g. ["east","2024-01"]. Distinct
// keys always render differently: null, "", 1 and "1" stay apart and
// separators inside values cannot merge two keys.
func (r Row) HashKey() string {
	return HashKey(r.Key)
}

// HashKey is the canonical encoding behind Row.HashKey.
func HashKey(key []Value) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range key {
		if i > 0 {
			b.WriteByte(',')
		}
		switch v.kind {
		case KindString:
			quoted, _ := json.Marshal(v.s)
			b.Write(quoted)
		case KindNumber, KindBool:
			b.WriteString(v.Text())
		default:
			b.WriteString("null")
		}
	}
	b.WriteByte(']')
	return b.String()
}

// Clone returns a copy that shares nothing with r.
func (r Row) Clone() Row {
	return Row{
		Groupers: slices.Clone(r.Groupers),
		Key:      slices.Clone(r.Key),
		Values:   maps.Clone(r.Values),
	}
}

// With returns a copy of r with one extra value set.
func (r Row) With(name string, v Value) Row {
	c := r.Clone()
	if c.Values == nil {
		c.Values = make(map[string]Value)
	}
	c.Values[name] = v
	return c
}

// Flat renders the row as a plain map of groupers and values.
func (r Row) Flat() map[string]any {
	out := make(map[string]any, len(r.Groupers)+len(r.Values))
	for k, v := range r.Values {
		out[k] = v.Interface()
	}
	for i, g := range r.Groupers {
		if i < len(r.Key) {
			out[g] = r.Key[i].Interface()
		}
	}
	return out
}

// RowFromMap builds a row from a flat map, pulling grouper values out of it.
func RowFromMap(groupers []string, fields map[string]any) (Row, error) {
	row := NewRow(slices.Clone(groupers), make([]Value, len(groupers)))
	for k, raw := range fields {
		v, err := ValueOf(raw)
		if err != nil {
			return Row{}, &DataError{Field: k, Reason: err.Error()}
		}
		if i := slices.Index(groupers, k); i >= 0 {
			row.Key[i] = v
			continue
		}
		row.Values[k] = v
	}
	return row, nil
}

// AsRows accepts the shapes callers hand in as precomputed row data.
func AsRows(groupers []string, v any) ([]Row, error) {
	switch t := v.(type) {
	case []Row:
		out := make([]Row, len(t))
		for i, r := range t {
			out[i] = r.Clone()
		}
		return out, nil
	case []map[string]any:
		return rowsFromMaps(groupers, t)
	case []any:
		ms := make([]map[string]any, 0, len(t))
		for i, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, &DataError{Field: fmt.Sprintf("row_data[%d]", i), Reason: fmt.Sprintf("expected an object, got %T", item)}
			}
			ms = append(ms, m)
		}
		return rowsFromMaps(groupers, ms)
	case map[string]any:
		return rowsFromMaps(groupers, []map[string]any{t})
	default:
		return nil, &DataError{Field: "row_data", Reason: fmt.Sprintf("unsupported row data %T", v)}
	}
}

func rowsFromMaps(groupers []string, ms []map[string]any) ([]Row, error) {
	out := make([]Row, 0, len(ms))
	for _, m := range ms {
		row, err := RowFromMap(groupers, m)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}
