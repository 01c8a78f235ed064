package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Unmarshal decodes JSON into the generic value model.
//
// Numbers become int64 when they are integral and fit, float64 otherwise.
// Objects become map[string]any and arrays []any.
func Unmarshal(data []byte) (any, error) {
	return decode(data)
}

func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode value: trailing data")
	}
	return normalizeNumbers(v), nil
}

// normalizeNumbers replaces json.Number leaves with int64 or float64.
func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []any:
		for i := range val {
			val[i] = normalizeNumbers(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = normalizeNumbers(val[k])
		}
		return val
	default:
		return v
	}
}
