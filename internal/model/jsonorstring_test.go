package model

import (
	"encoding/json"
	"testing"
)

func TestParseBody(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want any
	}{
		{"empty", "", nil},
		{"json object", `{"a":1}`, map[string]any{"a": 1.0}},
		{"json array", `[1,2]`, []any{1.0, 2.0}},
		{"non-json string", "not json", "not json"},
		{"json string literal", `"hello"`, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseBody([]byte(tt.raw))
			gotJSON, _ := json.Marshal(got.Value)
			wantJSON, _ := json.Marshal(tt.want)
			if string(gotJSON) != string(wantJSON) {
				t.Errorf("ParseBody(%q).Value = %s, want %s", tt.raw, gotJSON, wantJSON)
			}
		})
	}
}

func TestSerialize(t *testing.T) {
	tests := []struct {
		name string
		body JsonOrString
		want string
	}{
		{"null", JsonOrString{Value: nil}, ""},
		{"string", JsonOrString{Value: "raw text"}, "raw text"},
		{"object", JsonOrString{Value: map[string]any{"a": 1.0}}, `{"a":1}`},
		{"array", JsonOrString{Value: []any{1.0, 2.0}}, `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.body.Serialize(); got != tt.want {
				t.Errorf("Serialize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSerializeRoundTrip(t *testing.T) {
	raws := []string{"", `{"model":"x","stream":true}`, "plain text body", `[1,2,3]`}
	for _, raw := range raws {
		parsed := ParseBody([]byte(raw))
		if got := parsed.Serialize(); got != raw {
			t.Errorf("round trip %q -> Serialize() = %q", raw, got)
		}
	}
}

func TestMarshalUnmarshalTransparent(t *testing.T) {
	body := ParseBody([]byte(`{"model":"claude"}`))

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"model":"claude"}` {
		t.Errorf("expected transparent marshal, got %s", data)
	}

	var decoded JsonOrString
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	obj, ok := decoded.AsObject()
	if !ok || obj["model"] != "claude" {
		t.Errorf("expected decoded object with model=claude, got %+v", decoded.Value)
	}
}

func TestIsNull(t *testing.T) {
	if !(JsonOrString{Value: nil}).IsNull() {
		t.Error("expected nil value to report IsNull")
	}
	if (JsonOrString{Value: "x"}).IsNull() {
		t.Error("expected non-nil value to not report IsNull")
	}
}

func TestAsObject(t *testing.T) {
	if _, ok := (JsonOrString{Value: "x"}).AsObject(); ok {
		t.Error("expected string value to not be an object")
	}
	obj, ok := (JsonOrString{Value: map[string]any{"a": 1}}).AsObject()
	if !ok || obj["a"] != 1 {
		t.Error("expected map value to be returned as object")
	}
}
