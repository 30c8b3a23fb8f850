package yx

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind tags the dynamic type a Value currently holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInteger
	KindFloat
	KindString
	KindArray
	KindObject
)

// Value is a tagged sum of null | bool | integer | float | string |
// array<Value> | map<string, Value> — the dynamic JSON-RPC parameter type
// spec §9 calls for. Plain `interface{}`/`map[string]interface{}` decoding
// through encoding/json conflates an absent object field with one explicitly
// set to null; Value keeps them distinct by construction: an absent field
// simply has no entry in the enclosing Object, while a present-but-null
// field is an Object entry whose Value has Kind KindNull.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Int(i int64) Value          { return Value{kind: KindInteger, i: i} }
func Float(f float64) Value      { return Value{kind: KindFloat, f: f} }
func String(s string) Value      { return Value{kind: KindString, s: s} }
func Array(items ...Value) Value { return Value{kind: KindArray, arr: items} }
func Object(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindObject, obj: m}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) Int() (int64, bool)       { return v.i, v.kind == KindInteger }
func (v Value) Float() (float64, bool)   { return v.f, v.kind == KindFloat }
func (v Value) String() (string, bool)   { return v.s, v.kind == KindString }
func (v Value) Array() ([]Value, bool)   { return v.arr, v.kind == KindArray }
func (v Value) Object() (map[string]Value, bool) { return v.obj, v.kind == KindObject }

// Get looks up key in an Object value, returning (value, present). present
// is false both when v is not an Object and when the key is genuinely
// absent — distinct from a present key whose Value.IsNull() is true.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	val, ok := v.obj[key]
	return val, ok
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindInteger:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		return json.Marshal(v.arr)
	case KindObject:
		return json.Marshal(v.obj)
	default:
		return nil, fmt.Errorf("yx: unknown value kind %d", v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler, using json.Number to keep
// integers and floats distinct instead of decoding every JSON number as
// float64.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return ErrBadJSON
	}
	out, err := fromRaw(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func fromRaw(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, ErrBadJSON
		}
		return Float(f), nil
	case string:
		return String(t), nil
	case []interface{}:
		items := make([]Value, 0, len(t))
		for _, elem := range t {
			v, err := fromRaw(elem)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return Array(items...), nil
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, elem := range t {
			v, err := fromRaw(elem)
			if err != nil {
				return Value{}, err
			}
			m[k] = v
		}
		return Object(m), nil
	default:
		return Value{}, ErrBadJSON
	}
}
