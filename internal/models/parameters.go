// internal/models/parameters.go
package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParameterSet maps a query field to one or more values. Numbers and booleans are
// held in their canonical string form so grounding and serialisation see the same text.
type ParameterSet map[string][]string

// ParameterSetFromMap converts loosely typed extractor output into a ParameterSet.
// Nil values and empty strings keep the field present with no values.
func ParameterSetFromMap(raw map[string]interface{}) (ParameterSet, error) {
	params := make(ParameterSet, len(raw))
	for field, value := range raw {
		values, err := flattenValue(value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field, err)
		}
		params[field] = values
	}
	return params, nil
}

func flattenValue(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return []string{}, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, err := FormatValue(item)
			if err != nil {
				return nil, err
			}
			if s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		s, err := FormatValue(v)
		if err != nil {
			return nil, err
		}
		if s == "" {
			return []string{}, nil
		}
		return []string{s}, nil
	}
}

// FormatValue renders a scalar in the form GBIF expects on the query string.
func FormatValue(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}

func (p ParameterSet) Get(field string) []string {
	return p[field]
}

func (p ParameterSet) First(field string) string {
	if values := p[field]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// Has reports whether the field carries at least one value.
func (p ParameterSet) Has(field string) bool {
	return len(p[field]) > 0
}

func (p ParameterSet) Set(field string, values ...string) {
	p[field] = append([]string(nil), values...)
}

// Add appends values, skipping ones the field already holds.
func (p ParameterSet) Add(field string, values ...string) {
	existing := p[field]
	for _, v := range values {
		if !containsString(existing, v) {
			existing = append(existing, v)
		}
	}
	p[field] = existing
}

func (p ParameterSet) Del(field string) {
	delete(p, field)
}

// Populated counts fields with at least one value.
func (p ParameterSet) Populated() int {
	n := 0
	for _, values := range p {
		if len(values) > 0 {
			n++
		}
	}
	return n
}

// Fields returns field names in lexical order.
func (p ParameterSet) Fields() []string {
	fields := make([]string, 0, len(p))
	for f := range p {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func (p ParameterSet) Clone() ParameterSet {
	out := make(ParameterSet, len(p))
	for f, values := range p {
		out[f] = append([]string(nil), values...)
	}
	return out
}

func containsString(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}
