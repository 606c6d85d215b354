package params

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/de-tools/report-atlas/pkg/models/domain"
)

// Recognized report options.
const (
	KeyGroupers       = "groupers"
	KeyMeasures       = "measures"
	KeyCalculators    = "calculators"
	KeyTrackers       = "trackers"
	KeyStripBlanks    = "strip_blanks"
	KeyRawData        = "raw_data"
	KeyRowData        = "row_data"
	KeyTotalData      = "total_data"
	KeyParentReport   = "parent_report"
	KeyParentGroupers = "parent_groupers"
	KeySupplements    = "supplements"
	KeyTotalReport    = "total_report"
	KeySort           = "sort"
	KeyFilters        = "filters"
)

// dataKeys hold external data payloads; normalization never looks inside them.
var dataKeys = []string{KeyRawData, KeyRowData, KeyTotalData}

// Normalize cleans a raw option map: keys become strings at every depth, the
// structure is deep-copied, blank values are stripped unless strip_blanks is
// false, and empty containers are compacted away. Data payloads are restored
// untouched, even when empty.
func Normalize(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	held := make(map[string]any)

	for k, v := range raw {
		if slices.Contains(dataKeys, k) {
			held[k] = v
			continue
		}
		out[k] = deepCopy(v)
	}

	if b, ok := out[KeyStripBlanks].(bool); !ok || b {
		stripBlanks(out)
	}
	compactMap(out)

	for k, v := range held {
		out[k] = v
	}
	return out
}

// opaque values are external handles: record sources, reports, structs and
// pointers. They are kept by reference and never inspected.
func opaque(v any) bool {
	switch v.(type) {
	case nil:
		return false
	case domain.RecordSource, domain.Blanker:
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Pointer, reflect.Struct, reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	case reflect.Slice, reflect.Array:
		return opaqueElem(reflect.TypeOf(v).Elem())
	}
	return false
}

func opaqueElem(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Struct, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	}
	return false
}

func deepCopy(v any) any {
	if v == nil || opaque(v) {
		return v
	}
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = deepCopy(x)
		}
		return m
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[fmt.Sprint(k)] = deepCopy(x)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = deepCopy(x)
		}
		return s
	case []byte:
		return string(t)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[fmt.Sprint(iter.Key().Interface())] = deepCopy(iter.Value().Interface())
		}
		return m
	case reflect.Slice, reflect.Array:
		s := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			s[i] = deepCopy(rv.Index(i).Interface())
		}
		return s
	}
	return v
}

func blank(v any) bool {
	if v == nil {
		return true
	}
	if opaque(v) {
		return false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) == ""
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

func stripBlanks(m map[string]any) {
	for k, v := range m {
		switch t := v.(type) {
		case map[string]any:
			stripBlanks(t)
			if len(t) == 0 {
				delete(m, k)
			}
		case []any:
			m[k] = stripSlice(t)
		default:
			if blank(v) {
				delete(m, k)
			}
		}
	}
}

func stripSlice(s []any) []any {
	out := make([]any, 0, len(s))
	for _, e := range s {
		if nested, ok := e.(map[string]any); ok {
			stripBlanks(nested)
		}
		if blank(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func compactMap(m map[string]any) {
	for k, v := range m {
		switch t := v.(type) {
		case nil:
			delete(m, k)
		case map[string]any:
			compactMap(t)
			if len(t) == 0 {
				delete(m, k)
			}
		case []any:
			s := compactSlice(t)
			if len(s) == 0 {
				delete(m, k)
				continue
			}
			m[k] = s
		}
	}
}

func compactSlice(s []any) []any {
	out := make([]any, 0, len(s))
	for _, e := range s {
		switch t := e.(type) {
		case nil:
			continue
		case map[string]any:
			compactMap(t)
			if len(t) == 0 {
				continue
			}
		case []any:
			e = compactSlice(t)
			if len(e.([]any)) == 0 {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}
