package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

type Response struct {
	Status int
	Header http.Header
	Raw    []byte
}

// Decode unmarshals the body into v, keeping numbers as json.Number when v is untyped.
func (r *Response) Decode(v any) error {
	dec := json.NewDecoder(bytes.NewReader(r.Raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(r.Raw), 200))
	}
	return nil
}

// JSON decodes the body as an object. Empty bodies yield an empty object.
func (r *Response) JSON() (JSON, error) {
	if len(bytes.TrimSpace(r.Raw)) == 0 {
		return JSON{}, nil
	}
	var obj JSON
	if err := r.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		obj = JSON{}
	}
	return obj, nil
}

// JSON is a decoded Graph object. Numbers are json.Number so 17-digit
// Instagram ids keep their precision.
type JSON map[string]any

// String returns the value at key as a string; numbers are formatted, anything else yields "".
func (j JSON) String(key string) string {
	switch v := j[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// OptString is String but nil when the key is absent or empty.
func (j JSON) OptString(key string) *string {
	s := j.String(key)
	if s == "" {
		return nil
	}
	return &s
}

// OptInt64 returns the integer at key, or nil when absent or not a number.
func (j JSON) OptInt64(key string) *int64 {
	var (
		n   int64
		err error
	)
	switch v := j[key].(type) {
	case json.Number:
		n, err = v.Int64()
	case string:
		n, err = strconv.ParseInt(v, 10, 64)
	case float64:
		n = int64(v)
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	return &n
}

// Object returns the nested object at key, or nil.
func (j JSON) Object(key string) JSON {
	switch v := j[key].(type) {
	case map[string]any:
		return JSON(v)
	case JSON:
		return v
	default:
		return nil
	}
}

// Objects returns the array at key filtered to its object elements.
func (j JSON) Objects(key string) []JSON {
	items, ok := j[key].([]any)
	if !ok {
		return nil
	}
	out := make([]JSON, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, JSON(m))
		}
	}
	return out
}

// Has reports whether key is present with a non-null value.
func (j JSON) Has(key string) bool {
	v, ok := j[key]
	return ok && v != nil
}

// StringList reads a value that may be an array of strings or a comma string
// and returns it comma-joined, or nil when absent.
func (j JSON) StringList(key string) *string {
	switch v := j[key].(type) {
	case string:
		return &v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			switch s := item.(type) {
			case string:
				parts = append(parts, s)
			case json.Number:
				parts = append(parts, s.String())
			}
		}
		joined := strings.Join(parts, ",")
		return &joined
	default:
		return nil
	}
}

// Marshal re-encodes the object, preserving number precision.
func (j JSON) Marshal() json.RawMessage {
	data, err := json.Marshal(j)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
