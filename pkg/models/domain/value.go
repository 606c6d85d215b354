package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the scalar type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a tagged scalar: null, bool, number or string.
// The zero Value is null.
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
}

func NullValue() Value { return Value{} }

func StringValue(s string) Value { return Value{kind: KindString, s: s} }

func NumberValue(n float64) Value { return Value{kind: KindNumber, n: n} }

func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// ValueOf converts a Go scalar into a Value.
func ValueOf(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return t, nil
	case *Value:
		if t == nil {
			return NullValue(), nil
		}
		return *t, nil
	case string:
		return StringValue(t), nil
	case []byte:
		return StringValue(string(t)), nil
	case bool:
		return BoolValue(t), nil
	case int:
		return NumberValue(float64(t)), nil
	case int8:
		return NumberValue(float64(t)), nil
	case int16:
		return NumberValue(float64(t)), nil
	case int32:
		return NumberValue(float64(t)), nil
	case int64:
		return NumberValue(float64(t)), nil
	case uint:
		return NumberValue(float64(t)), nil
	case uint8:
		return NumberValue(float64(t)), nil
	case uint16:
		return NumberValue(float64(t)), nil
	case uint32:
		return NumberValue(float64(t)), nil
	case uint64:
		return NumberValue(float64(t)), nil
	case float32:
		return finiteValue(float64(t))
	case float64:
		return finiteValue(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return NullValue(), fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return finiteValue(n)
	case time.Time:
		return StringValue(t.UTC().Format(time.RFC3339)), nil
	case fmt.Stringer:
		return StringValue(t.String()), nil
	default:
		return NullValue(), fmt.Errorf("unsupported value type %T", v)
	}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func finiteValue(n float64) (Value, error) {
	if !IsFinite(n) {
		return NullValue(), fmt.Errorf("non-finite number %v", n)
	}
	return NumberValue(n), nil
}

// IsFinite reports whether n is neither NaN nor infinite.
func IsFinite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}

// Finite is false only for NaN or infinite numbers.
func (v Value) Finite() bool {
	return v.kind != KindNumber || IsFinite(v.n)
}

// Number coerces the value into a finite float64. Numeric strings are
// parsed; null, bools, other strings and NaN or infinite numbers are
// rejected.
func (v Value) Number() (float64, error) {
	switch v.kind {
	case KindNumber:
		if !IsFinite(v.n) {
			return 0, fmt.Errorf("%v is not a finite number", v.n)
		}
		return v.n, nil
	case KindString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil || !IsFinite(n) {
			return 0, fmt.Errorf("%q is not numeric", v.s)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s value is not numeric", v.kind)
	}
}

// Text returns the string payload, or the formatted scalar for other kinds.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

func (v Value) String() string {
	if v.kind == KindNull {
		return "<null>"
	}
	return v.Text()
}

// Interface returns the plain Go representation: nil, bool, float64 or string.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	default:
		return nil
	}
}

func (v Value) Equal(o Value) bool {
	return Compare(v, o) == 0
}

// Compare orders values: null first, then bools, numbers and strings.
// Within a kind the natural ordering applies.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		default:
			return 1
		}
	case KindNumber:
		switch {
		case a.n < b.n:
			return -1
		case a.n > b.n:
			return 1
		case math.IsNaN(a.n) && !math.IsNaN(b.n):
			return -1
		case !math.IsNaN(a.n) && math.IsNaN(b.n):
			return 1
		default:
			return 0
		}
	case KindString:
		return strings.Compare(a.s, b.s)
	default:
		return 0
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
