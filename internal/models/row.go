// Package models contains domain types for the report desk backend.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// ColumnType represents the inferred type of a table column.
type ColumnType string

const (
	ColumnTypeInteger ColumnType = "integer"
	ColumnTypeFloat   ColumnType = "float"
	ColumnTypeBoolean ColumnType = "boolean"
	ColumnTypeString  ColumnType = "string"
)

// Field is a single column/value pair of a row.
type Field struct {
	Name  string
	Value interface{} // string, int64, float64, bool or nil
}

// Row is an ordered record. Column order is kept through JSON and msgpack
// encoding, unlike a Go map.
//
// Values decoded from JSON that are objects or arrays are kept as
// json.RawMessage so callers can reject them explicitly.
type Row []Field

// Get returns the value stored under name.
func (r Row) Get(name string) (interface{}, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the column names in order.
func (r Row) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Name
	}
	return keys
}

// Set replaces the value under name or appends a new field.
func (r *Row) Set(name string, value interface{}) {
	for i := range *r {
		if (*r)[i].Name == name {
			(*r)[i].Value = value
			return
		}
	}
	*r = append(*r, Field{Name: name, Value: value})
}

// MarshalJSON writes the row as a JSON object in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping key order. Numbers become int64
// when they are integral and fit, float64 otherwise.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	row := make(Row, 0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("value for %q: %w", key, err)
		}
		value, err := scalarFromJSON(raw)
		if err != nil {
			return fmt.Errorf("value for %q: %w", key, err)
		}
		row.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = row
	return nil
}

func scalarFromJSON(raw json.RawMessage) (interface{}, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty value")
	}

	switch trimmed[0] {
	case '{', '[':
		return raw, nil
	case 'n':
		return nil, nil
	case 't', 'f':
		var b bool
		err := json.Unmarshal(trimmed, &b)
		return b, err
	case '"':
		var s string
		err := json.Unmarshal(trimmed, &s)
		return s, err
	default:
		num := string(trimmed)
		if i, err := strconv.ParseInt(num, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

// IsNested reports whether v holds a JSON object or array.
func IsNested(v interface{}) bool {
	_, ok := v.(json.RawMessage)
	return ok
}

// EncodeMsgpack writes the row as a msgpack map in column order.
func (r Row) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(r)); err != nil {
		return err
	}
	for _, f := range r {
		if err := enc.EncodeString(f.Name); err != nil {
			return err
		}
		if err := enc.Encode(f.Value); err != nil {
			return err
		}
	}
	return nil
}

var _ msgpack.CustomEncoder = Row(nil)
