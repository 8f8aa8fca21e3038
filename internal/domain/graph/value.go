package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a JSON-like property value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
	m    map[string]Value
}

func Null() Value                       { return Value{} }
func Bool(b bool) Value                 { return Value{kind: KindBool, b: b} }
func Int(i int64) Value                 { return Value{kind: KindInt, i: i} }
func Float(f float64) Value             { return Value{kind: KindFloat, f: f} }
func String(s string) Value             { return Value{kind: KindString, s: s} }
func List(items ...Value) Value         { return Value{kind: KindList, list: items} }
func Map(fields map[string]Value) Value { return Value{kind: KindMap, m: fields} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsScalar() bool { return v.kind >= KindBool && v.kind <= KindString }

// AsBool returns the boolean and whether v holds one.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer and whether v holds one.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns v as a float64. Integers convert.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// AsString returns the string and whether v holds one.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsList returns the list items and whether v holds a list.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// AsMap returns the map fields and whether v holds a map.
func (v Value) AsMap() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// FromAny converts a decoded JSON value or a graph driver value into a Value.
// Temporal values become RFC 3339 strings.
func FromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case json.Number:
		return numberValue(x)
	case time.Time:
		return String(x.UTC().Format(time.RFC3339Nano)), nil
	case interface{ Time() time.Time }:
		return String(x.Time().UTC().Format(time.RFC3339Nano)), nil
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			v, err := FromAny(item)
			if err != nil {
				return Null(), err
			}
			items[i] = v
		}
		return List(items...), nil
	case []string:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = String(item)
		}
		return List(items...), nil
	case map[string]any:
		fields := make(map[string]Value, len(x))
		for k, item := range x {
			v, err := FromAny(item)
			if err != nil {
				return Null(), err
			}
			fields[k] = v
		}
		return Map(fields), nil
	default:
		return Null(), fmt.Errorf("unsupported property value of type %T", raw)
	}
}

// Any converts v into plain Go values suitable for a graph driver parameter
// or encoding/json.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Any()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Any()
		}
		return out
	default:
		return nil
	}
}

// Equal reports deep equality. Int and Float never compare equal to each other.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(other.m) {
			return false
		}
		for k, item := range v.m {
			o, ok := other.m[k]
			if !ok || !item.Equal(o) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON implements json.Marshaler. Map keys are written in sorted order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("cannot encode non-finite float %v", v.f)
		}
		b, err := json.Marshal(v.f)
		if err != nil {
			return nil, err
		}
		// keep integral floats distinguishable from ints on the way back
		if !bytes.ContainsAny(b, ".eE") {
			b = append(b, '.', '0')
		}
		return b, nil
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			b, err := v.m[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return json.Marshal(v.Any())
	}
}

// UnmarshalJSON implements json.Unmarshaler. Integral numbers decode as Int.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func numberValue(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return Int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return Null(), fmt.Errorf("invalid number %q: %w", n, err)
	}
	return Float(f), nil
}

// Properties is the caller-visible property map of a node or relationship.
type Properties map[string]Value

// PropertiesFromAny converts a raw map into Properties.
func PropertiesFromAny(raw map[string]any) (Properties, error) {
	props := make(Properties, len(raw))
	for k, item := range raw {
		v, err := FromAny(item)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		props[k] = v
	}
	return props, nil
}

// Clone returns a shallow copy. Values are treated as immutable.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns p with patch applied. A null in patch removes the key.
func (p Properties) Merge(patch Properties) Properties {
	out := p.Clone()
	for k, v := range patch {
		if v.IsNull() {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// ToAny converts the map into driver parameters.
func (p Properties) ToAny() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Any()
	}
	return out
}

// Equal reports whether both maps hold equal values for the same keys.
func (p Properties) Equal(other Properties) bool {
	if len(p) != len(other) {
		return false
	}
	for k, v := range p {
		o, ok := other[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// Text returns the string property under key, if any.
func (p Properties) Text(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	return v.AsString()
}

// ValidateStorable checks that every value fits the graph store property
// model: scalars, or lists of scalars of one kind. When allowNull is set a
// null is accepted as a removal marker.
func (p Properties) ValidateStorable(allowNull bool) error {
	for k, v := range p {
		switch {
		case v.IsNull():
			if !allowNull {
				return fmt.Errorf("property %q: null values are not stored", k)
			}
		case v.IsScalar():
		case v.kind == KindList:
			var first Kind
			for i, item := range v.list {
				if !item.IsScalar() {
					return fmt.Errorf("property %q: list items must be scalars", k)
				}
				if i == 0 {
					first = item.kind
				} else if numericKind(first) != numericKind(item.kind) {
					return fmt.Errorf("property %q: list items must share one type", k)
				}
			}
		default:
			return fmt.Errorf("property %q: nested maps are not supported", k)
		}
	}
	return nil
}

func numericKind(k Kind) Kind {
	if k == KindInt {
		return KindFloat
	}
	return k
}
