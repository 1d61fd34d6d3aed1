package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Document is the ordered mapping from district to its extracted record.
// It is the only durable artifact of a run.
//
// Districts keep the order of their first insertion, which is catalog
// order when the pipeline records them. Setting an existing district
// overwrites its record in place.
//
// Document is not safe for concurrent use; the pipeline's Aggregator
// serializes access.
type Document struct {
	order   []DistrictID
	records map[DistrictID]DistrictRecord
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		order:   make([]DistrictID, 0),
		records: make(map[DistrictID]DistrictRecord),
	}
}

// Set inserts or overwrites the record for district.
func (d *Document) Set(district DistrictID, record DistrictRecord) {
	if d.records == nil {
		d.records = make(map[DistrictID]DistrictRecord)
	}
	if _, ok := d.records[district]; !ok {
		d.order = append(d.order, district)
	}
	if record == nil {
		record = DistrictRecord{}
	}
	d.records[district] = record
}

// Get returns the record for district.
func (d *Document) Get(district DistrictID) (DistrictRecord, bool) {
	rec, ok := d.records[district]
	return rec, ok
}

// Has reports whether district has a record.
func (d *Document) Has(district DistrictID) bool {
	_, ok := d.records[district]
	return ok
}

// Len returns the number of districts in the document.
func (d *Document) Len() int {
	return len(d.order)
}

// Districts returns the districts in insertion order.
func (d *Document) Districts() []DistrictID {
	out := make([]DistrictID, len(d.order))
	copy(out, d.order)
	return out
}

// TotalRows returns the number of rows across all districts.
func (d *Document) TotalRows() int {
	total := 0
	for _, rec := range d.records {
		total += len(rec)
	}
	return total
}

// MarshalJSON encodes the document as a JSON object keyed by district in
// insertion order. Non-ASCII text and HTML characters are written as-is.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, district := range d.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, string(district)); err != nil {
			return nil, err
		}
		buf.WriteString(":[")
		for j, row := range d.records[district] {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := row.writeJSON(&buf); err != nil {
				return nil, err
			}
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a document, keeping district and column order.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	doc := NewDocument()
	err := decodeObject(dec, func(key string) error {
		record, err := decodeRecord(dec)
		if err != nil {
			return fmt.Errorf("district %q: %w", key, err)
		}
		doc.Set(DistrictID(key), record)
		return nil
	})
	if err != nil {
		return err
	}
	*d = *doc
	return nil
}

func decodeRecord(dec *json.Decoder) (DistrictRecord, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("expected array, got %v", tok)
	}
	record := DistrictRecord{}
	for dec.More() {
		row, err := decodeTableRow(dec)
		if err != nil {
			return nil, err
		}
		record = append(record, row)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return record, nil
}

// errNotObject is returned when a JSON value is expected to be an object.
var errNotObject = errors.New("expected JSON object")

// decodeObject walks a JSON object, calling fn for every key with the
// decoder positioned at the key's value.
func decodeObject(dec *json.Decoder, fn func(key string) error) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errNotObject
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		if err := fn(key); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

// writeJSONString writes s as a JSON string without HTML escaping.
func writeJSONString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
