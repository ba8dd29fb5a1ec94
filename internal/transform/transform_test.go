package transform

import (
	"testing"

	"github.com/sagikazarmark/replayr/internal/model"
)

func TestParse_ValidExpression(t *testing.T) {
	tr, err := Parse(`/"input_tokens":\s*\d+/"input_tokens": 0/`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got := tr.ApplyText(`{"input_tokens": 42}`)
	want := `{"input_tokens": 0}`
	if got != want {
		t.Errorf("ApplyText() = %q, want %q", got, want)
	}
}

func TestParse_AlternateDelimiter(t *testing.T) {
	tr, err := Parse(`#secret#REDACTED#`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := tr.ApplyText("my secret value"); got != "my REDACTED value" {
		t.Errorf("ApplyText() = %q", got)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []string{
		"",
		"/onlyone",
		"/[invalid(regex/x/",
	}
	for _, expr := range tests {
		if _, err := Parse(expr); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", expr)
		}
	}
}

func TestApply_ReparsesOnChange(t *testing.T) {
	tr, err := Parse(`/"model":"[^"]*"/"model":"redacted"/`)
	if err != nil {
		t.Fatal(err)
	}
	body := model.ParseBody([]byte(`{"model":"claude-3"}`))
	out := tr.Apply(body)
	obj, ok := out.AsObject()
	if !ok || obj["model"] != "redacted" {
		t.Errorf("expected model to be rewritten, got %+v", out.Value)
	}
}

func TestApply_NoChangeReturnsOriginal(t *testing.T) {
	tr, err := Parse(`/nomatch/replacement/`)
	if err != nil {
		t.Fatal(err)
	}
	body := model.ParseBody([]byte(`{"a":1}`))
	out := tr.Apply(body)
	if out.Serialize() != body.Serialize() {
		t.Errorf("expected unchanged body, got %q", out.Serialize())
	}
}

func TestNilTransformer_IsNoOp(t *testing.T) {
	var tr *Transformer
	body := model.ParseBody([]byte(`{"a":1}`))
	if got := tr.Apply(body); got.Serialize() != body.Serialize() {
		t.Errorf("nil transformer should be a no-op on Apply, got %q", got.Serialize())
	}
	if got := tr.ApplyText("hello"); got != "hello" {
		t.Errorf("nil transformer should be a no-op on ApplyText, got %q", got)
	}
}
