package evaluation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Field is one displayable line of an evaluation payload
type Field struct {
	Label string
	Value string
}

// Fields flattens a payload into display lines without assuming a schema.
// Objects become sorted label/value pairs, nested objects use dotted labels
// and arrays are indexed. A payload that is not valid JSON is returned as a
// single unlabeled field.
func Fields(raw json.RawMessage) []Field {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return []Field{{Value: string(raw)}}
	}
	var out []Field
	flatten("", v, &out)
	return out
}

func flatten(prefix string, v interface{}, out *[]Field) {
	switch val := v.(type) {
	case map[string]interface{}:
		if len(val) == 0 {
			*out = append(*out, Field{Label: prefix, Value: "{}"})
			return
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(join(prefix, k), val[k], out)
		}
	case []interface{}:
		if len(val) == 0 {
			*out = append(*out, Field{Label: prefix, Value: "-"})
			return
		}
		if scalars(val) {
			parts := make([]string, len(val))
			for i, item := range val {
				parts[i] = scalar(item)
			}
			*out = append(*out, Field{Label: prefix, Value: strings.Join(parts, ", ")})
			return
		}
		for i, item := range val {
			flatten(join(prefix, fmt.Sprintf("%d", i+1)), item, out)
		}
	default:
		*out = append(*out, Field{Label: prefix, Value: scalar(val)})
	}
}

func scalars(items []interface{}) bool {
	for _, item := range items {
		switch item.(type) {
		case map[string]interface{}, []interface{}:
			return false
		}
	}
	return true
}

func scalar(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
