package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeObject parses data into a Marshal-compatible map[string]any, using
// json.Number so integer fields round-trip as int64 rather than float64:
// Marshal's encode() switch has no float64 case by design (the wire format
// never carries IEEE floats), so the default encoding/json numeric decode
// would panic it. Every caller that reads plan.ir.json, report.json, or an
// amendment request/response off disk should decode through this function
// rather than encoding/json directly.
func DecodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	out, ok := denumber(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("canon: expected a JSON object at top level")
	}
	return out, nil
}

func denumber(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = denumber(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = denumber(val)
		}
		return out
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		return t.String()
	default:
		return v
	}
}
