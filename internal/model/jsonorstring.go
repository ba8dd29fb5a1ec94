package model

import "encoding/json"

// JsonOrString stores a request/response body the way spec section 3
// defines it: parsed JSON when the raw bytes parse as JSON, otherwise a
// UTF-8 string; empty bytes become null (Value == nil).
type JsonOrString struct {
	Value any
}

// ParseBody implements the JsonOrString parse rule over raw bytes read
// from a request or response.
func ParseBody(raw []byte) JsonOrString {
	if len(raw) == 0 {
		return JsonOrString{Value: nil}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return JsonOrString{Value: v}
	}
	return JsonOrString{Value: string(raw)}
}

// Serialize renders the body the way section 4.9 requires for the
// outbound upstream request body: empty string for null, the raw string
// for a String value, or compact JSON serialization otherwise.
func (j JsonOrString) Serialize() string {
	switch v := j.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// IsNull reports whether the body is the JSON null / empty case.
func (j JsonOrString) IsNull() bool { return j.Value == nil }

// AsObject returns the value as a JSON object (map[string]any) if that's
// what it holds, for field lookups like `body.model`.
func (j JsonOrString) AsObject() (map[string]any, bool) {
	m, ok := j.Value.(map[string]any)
	return m, ok
}

// MarshalJSON emits the wrapped value directly — JsonOrString is
// transparent on the wire, never nested under a "Value" key.
func (j JsonOrString) MarshalJSON() ([]byte, error) {
	if j.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(j.Value)
}

// UnmarshalJSON decodes whatever JSON value is present into Value.
func (j *JsonOrString) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &j.Value)
}
