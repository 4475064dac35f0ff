package domain

import (
	"bytes"
	"encoding/json"
	"errors"
)

var ErrNotObject = errors.New("domain: json value is not an object")

// DecodeObject decodes a JSON object keeping integers as int64. Other numbers
// become float64, so the values reach the store with the types the device sent.
func DecodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok || obj == nil {
		return nil, ErrNotObject
	}
	return normalizeNumbers(obj).(map[string]any), nil
}

// DecodeRecord decodes a queued record. Date is always a float even when the
// timestamp happened to be whole and was encoded without a fraction.
func DecodeRecord(data []byte) (Record, error) {
	obj, err := DecodeObject(data)
	if err != nil {
		return nil, err
	}
	record := Record(obj)
	if date, ok := record.Date(); ok {
		record[DateField] = date
	}
	return record, nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = normalizeNumbers(item)
		}
		return t
	default:
		return v
	}
}
