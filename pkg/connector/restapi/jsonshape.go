package restapi

import (
	"bytes"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/errors"
)

// envelopeKeys are the conventional wrapper fields APIs put their
// payload arrays under.
var envelopeKeys = []string{"data", "items", "results", "records"}

// resultFromJSON flattens a JSON response body into the normalized
// result shape. Arrays of objects become rows over the sorted union of
// keys; a single object becomes one row; scalars and mixed arrays
// become a one-column "value" result. Numbers decode as json.Number so
// integers survive without float rounding.
func resultFromJSON(query string, body []byte) (*core.QueryResult, error) {
	var payload any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "response is not valid JSON")
	}

	payload = unwrapEnvelope(payload)

	result := &core.QueryResult{Query: query}

	switch v := payload.(type) {
	case []any:
		objects, ok := asObjects(v)
		if !ok {
			result.Columns = []string{"value"}
			for _, item := range v {
				result.Rows = append(result.Rows, []any{normalizeJSON(item)})
			}
			break
		}

		result.Columns = unionKeys(objects)
		for _, obj := range objects {
			row := make([]any, len(result.Columns))
			for i, key := range result.Columns {
				row[i] = normalizeJSON(obj[key])
			}
			result.Rows = append(result.Rows, row)
		}

	case map[string]any:
		result.Columns = sortedKeys(v)
		row := make([]any, len(result.Columns))
		for i, key := range result.Columns {
			row[i] = normalizeJSON(v[key])
		}
		result.Rows = append(result.Rows, row)

	default:
		result.Columns = []string{"value"}
		result.Rows = append(result.Rows, []any{normalizeJSON(v)})
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

// unwrapEnvelope descends one level into conventional payload wrappers
// when the wrapper holds the only array in the object.
func unwrapEnvelope(payload any) any {
	obj, ok := payload.(map[string]any)
	if !ok {
		return payload
	}
	for _, key := range envelopeKeys {
		if arr, ok := obj[key].([]any); ok {
			return arr
		}
	}
	return payload
}

func asObjects(items []any) ([]map[string]any, bool) {
	if len(items) == 0 {
		return nil, false
	}
	objects := make([]map[string]any, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		objects = append(objects, obj)
	}
	return objects, true
}

func unionKeys(objects []map[string]any) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, obj := range objects {
		for k := range obj {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// normalizeJSON converts decoded JSON values into the uniform result
// vocabulary: numbers become int64 when integral, nested structures are
// re-encoded as compact JSON strings.
func normalizeJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any, []any:
		encoded, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		return string(encoded)
	default:
		return v
	}
}
