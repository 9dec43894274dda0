package doc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Encode serializes the document to bytes for persistence.
func (d *Doc) Encode() ([]byte, error) {
	var out []byte
	var err error
	d.View(func(tx *Tx) {
		out, err = json.Marshal(d.root.ToGo(tx))
	})
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return out, nil
}

// Decode rebuilds a document from bytes produced by Encode. Integral numbers
// decode as int64, everything else as float64.
func Decode(data []byte) (*Doc, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	d := New()
	d.Update(func(tx *Tx) {
		for k, v := range raw {
			d.root.Set(tx, k, fromJSON(v))
		}
	})
	return d, nil
}

func fromJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = fromJSON(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = fromJSON(item)
		}
		return out
	default:
		return v
	}
}
