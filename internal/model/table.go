package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one label/value pair of a TableRow.
type Field struct {
	// Label is the column header text, verbatim (may be empty).
	Label string

	// Value is the trimmed cell text.
	Value string
}

// TableRow maps column header labels to cell text for one data row.
//
// Labels keep the order in which they were first set. Setting a label that
// already exists overwrites its value but keeps its original position, which
// is how duplicate header labels collapse into a single JSON key.
type TableRow struct {
	fields []Field
	index  map[string]int
}

// NewTableRow builds a row from fields in order.
func NewTableRow(fields ...Field) TableRow {
	var row TableRow
	for _, f := range fields {
		row.Set(f.Label, f.Value)
	}
	return row
}

// Set stores value under label.
func (r *TableRow) Set(label, value string) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[label]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[label] = len(r.fields)
	r.fields = append(r.fields, Field{Label: label, Value: value})
}

// Get returns the value stored under label.
func (r TableRow) Get(label string) (string, bool) {
	i, ok := r.index[label]
	if !ok {
		return "", false
	}
	return r.fields[i].Value, true
}

// Len returns the number of distinct labels in the row.
func (r TableRow) Len() int {
	return len(r.fields)
}

// Labels returns the labels in insertion order.
func (r TableRow) Labels() []string {
	labels := make([]string, len(r.fields))
	for i, f := range r.fields {
		labels[i] = f.Label
	}
	return labels
}

// Fields returns a copy of the row's fields in insertion order.
func (r TableRow) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Map returns the row as a plain map. Order is lost.
func (r TableRow) Map() map[string]string {
	m := make(map[string]string, len(r.fields))
	for _, f := range r.fields {
		m[f.Label] = f.Value
	}
	return m
}

// MarshalJSON encodes the row as a JSON object in label order.
func (r TableRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r TableRow) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(buf, f.Label); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeJSONString(buf, f.Value); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// UnmarshalJSON decodes a JSON object of strings, keeping key order.
func (r *TableRow) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	row, err := decodeTableRow(dec)
	if err != nil {
		return err
	}
	*r = row
	return nil
}

func decodeTableRow(dec *json.Decoder) (TableRow, error) {
	var row TableRow
	err := decodeObject(dec, func(key string) error {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		value, ok := tok.(string)
		if !ok {
			return fmt.Errorf("value of %q must be a string, got %v", key, tok)
		}
		row.Set(key, value)
		return nil
	})
	return row, err
}

// DistrictRecord is the ordered list of rows extracted from one district's
// table, in source row order.
type DistrictRecord []TableRow

// Labels returns the union of labels across all rows, in first-seen order.
func (rec DistrictRecord) Labels() []string {
	seen := make(map[string]bool)
	labels := make([]string, 0)
	for _, row := range rec {
		for _, f := range row.fields {
			if seen[f.Label] {
				continue
			}
			seen[f.Label] = true
			labels = append(labels, f.Label)
		}
	}
	return labels
}
