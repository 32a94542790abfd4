package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Metadata is an ordered list of typed key-value fields attached to a
// record. It marshals to a JSON object whose keys keep insertion order, so
// the stored form is stable across write/read cycles.
type Metadata []Field

// Field is one metadata entry.
type Field struct {
	Key   string
	Value Value
}

// ValueKind enumerates the supported metadata value types.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
)

// Value is a typed metadata value. The closed kind set keeps the stored
// JSON round-trippable without reflection surprises.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
}

// String creates a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int creates a numeric value from an int.
func Int(i int) Value { return Value{kind: KindNumber, num: float64(i)} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the value's kind.
func (v Value) Kind() ValueKind { return v.kind }

// AsString returns the string form of the value.
func (v Value) AsString() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		if v.num == float64(int64(v.num)) {
			return fmt.Sprintf("%d", int64(v.num))
		}
		return fmt.Sprintf("%g", v.num)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	}
	return ""
}

// AsNumber returns the numeric form, or 0 for non-numbers.
func (v Value) AsNumber() float64 {
	if v.kind == KindNumber {
		return v.num
	}
	return 0
}

// AsBool returns the boolean form, or false for non-booleans.
func (v Value) AsBool() bool {
	return v.kind == KindBool && v.b
}

// MarshalJSON encodes the value as its native JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	}
	return nil, fmt.Errorf("metadata: unknown value kind %d", v.kind)
}

// Get returns the value for key and whether it was present.
func (m Metadata) Get(key string) (Value, bool) {
	for _, f := range m {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Set replaces the value for key, or appends a new field if absent.
func (m *Metadata) Set(key string, v Value) {
	for i, f := range *m {
		if f.Key == key {
			(*m)[i].Value = v
			return
		}
	}
	*m = append(*m, Field{Key: key, Value: v})
}

// MarshalJSON encodes the metadata as a JSON object with keys in field
// order. Duplicate keys never occur because Set replaces in place.
func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving key order. Null values are
// skipped; nested objects and arrays are rejected.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("metadata: expected JSON object, got %v", tok)
	}

	out := Metadata{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("metadata: non-string key %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		switch val := valTok.(type) {
		case string:
			out = append(out, Field{Key: key, Value: String(val)})
		case json.Number:
			f, err := val.Float64()
			if err != nil {
				return fmt.Errorf("metadata: bad number for %q: %w", key, err)
			}
			out = append(out, Field{Key: key, Value: Number(f)})
		case bool:
			out = append(out, Field{Key: key, Value: Bool(val)})
		case nil:
			// null fields carry no information, drop them
		default:
			return fmt.Errorf("metadata: unsupported value for %q", key)
		}
	}

	// Consume closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}

	*m = out
	return nil
}
