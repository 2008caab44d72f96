// Package payload formats the arbitrary JSON a pipeline step consumed or
// produced: a shallow summary for tooltips and the full tree for detail views.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Object
	Array
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Object:
		return "object"
	case Array:
		return "array"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Scalar reports whether k is a leaf kind that summaries show.
func (k Kind) Scalar() bool {
	return k == Bool || k == Number || k == String
}

// Value is a decoded payload node. Object fields keep their source order.
type Value struct {
	Kind   Kind
	Bool   bool
	Num    json.Number
	Str    string
	Fields []Field
	Items  []Value
}

// Field is one key of an object.
type Field struct {
	Key   string
	Value Value
}

// Get returns the value under key for objects.
func (v Value) Get(key string) (Value, bool) {
	for _, f := range v.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Parse decodes raw into a Value. Empty input is Null.
func Parse(raw json.RawMessage) (Value, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Value{Kind: Null}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	v, err := decode(dec)
	if err != nil {
		return Value{}, fmt.Errorf("payload: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, fmt.Errorf("payload: trailing data after value")
	}
	return v, nil
}

// FromRaw is Parse for display paths: undecodable input is shown as text.
func FromRaw(raw json.RawMessage) Value {
	v, err := Parse(raw)
	if err != nil {
		return Value{Kind: String, Str: string(raw)}
	}
	return v
}

func decode(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return Value{Kind: Null}, nil
	case bool:
		return Value{Kind: Bool, Bool: t}, nil
	case json.Number:
		return Value{Kind: Number, Num: t}, nil
	case string:
		return Value{Kind: String, Str: t}, nil
	case json.Delim:
		switch t {
		case '{':
			v := Value{Kind: Object, Fields: []Field{}}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key is %T", kt)
				}
				child, err := decode(dec)
				if err != nil {
					return Value{}, err
				}
				v.Fields = append(v.Fields, Field{Key: key, Value: child})
			}
			_, err := dec.Token()
			return v, err
		case '[':
			v := Value{Kind: Array, Items: []Value{}}
			for dec.More() {
				child, err := decode(dec)
				if err != nil {
					return Value{}, err
				}
				v.Items = append(v.Items, child)
			}
			_, err := dec.Token()
			return v, err
		}
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}
