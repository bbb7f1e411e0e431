package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Kind identifies the shape of a wire value.
type Kind int

const (
	// KindNull is the null wire value.
	KindNull Kind = iota

	// KindBool is a boolean wire value.
	KindBool

	// KindNumber is a numeric wire value (always a float64 on the wire).
	KindNumber

	// KindString is a string wire value.
	KindString

	// KindList is an ordered list of wire values.
	KindList

	// KindStruct is a string-keyed mapping of wire values.
	KindStruct
)

// String returns the name of the kind.
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
	case KindList:
		return "list"
	case KindStruct:
		return "struct"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a single value in the provider wire format. The model is closed:
// a value is exactly one of null, bool, number, string, list, or struct.
// Values are immutable after construction; list and struct payloads are
// copied in.
type Value struct {
	kind   Kind
	b      bool
	num    float64
	str    string
	list   []Value
	fields map[string]Value
}

// Null returns the null wire value.
func Null() Value {
	return Value{kind: KindNull}
}

// Bool returns a boolean wire value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Number returns a numeric wire value.
func Number(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// String returns a string wire value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// List returns a list wire value. The slice is copied.
func List(vals []Value) Value {
	cp := make([]Value, len(vals))
	copy(cp, vals)
	return Value{kind: KindList, list: cp}
}

// Struct returns a struct wire value. The map is copied.
func Struct(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindStruct, fields: cp}
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// BoolValue returns the boolean payload. It is only valid for KindBool.
func (v Value) BoolValue() bool {
	return v.b
}

// NumberValue returns the numeric payload. It is only valid for KindNumber.
func (v Value) NumberValue() float64 {
	return v.num
}

// StringValue returns the string payload. It is only valid for KindString.
func (v Value) StringValue() string {
	return v.str
}

// ListValue returns a copy of the list payload. It is only valid for KindList.
func (v Value) ListValue() []Value {
	cp := make([]Value, len(v.list))
	copy(cp, v.list)
	return cp
}

// StructValue returns a copy of the struct payload. It is only valid for
// KindStruct.
func (v Value) StructValue() map[string]Value {
	cp := make(map[string]Value, len(v.fields))
	for k, val := range v.fields {
		cp[k] = val
	}
	return cp
}

// Field returns the named struct field, if present.
func (v Value) Field(name string) (Value, bool) {
	val, ok := v.fields[name]
	return val, ok
}

// Equal reports structural equality. Struct fields are compared without
// regard to order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindStruct:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for k, val := range v.fields {
			oval, ok := o.fields[k]
			if !ok || !val.Equal(oval) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler. Struct fields are written with
// sorted keys so encodings are stable.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
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
	case KindStruct:
		keys := make([]string, 0, len(v.fields))
		for k := range v.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := v.fields[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported wire value kind: %s", v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler. Any JSON document maps onto the
// closed wire model; there are no other shapes in JSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return fmt.Errorf("empty wire value")
	}

	switch trimmed[0] {
	case 'n':
		*v = Null()
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		list := make([]Value, len(raw))
		for i, item := range raw {
			if err := list[i].UnmarshalJSON(item); err != nil {
				return err
			}
		}
		*v = Value{kind: KindList, list: list}
		return nil
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		fields := make(map[string]Value, len(raw))
		for k, item := range raw {
			var fv Value
			if err := fv.UnmarshalJSON(item); err != nil {
				return err
			}
			fields[k] = fv
		}
		*v = Value{kind: KindStruct, fields: fields}
		return nil
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid wire value: %s", string(data))
		}
		*v = Number(n)
		return nil
	}
}

// String renders the value as its JSON encoding, for logs and errors.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid wire value: %v>", err)
	}
	return string(b)
}
