package predicate

import (
	"testing"

	"github.com/sagikazarmark/replayr/internal/model"
)

func interactionFixture() model.Interaction {
	return model.Interaction{
		ID: "int-1",
		Request: model.StoredRequest{
			Method:  "POST",
			Path:    "/v1/messages",
			Headers: map[string]string{"x-api-key": "secret", "content-type": "application/json"},
			Body:    model.ParseBody([]byte(`{"model":"claude-3-opus-20240229","stream":true}`)),
		},
		Response: model.StoredResponse{
			Status:    200,
			Headers:   map[string]string{"content-type": "text/event-stream"},
			Streaming: true,
		},
		Metadata: model.Metadata{
			Provider:     "anthropic",
			Model:        "claude-3-opus-20240229",
			InputTokens:  model.IntPtr(120),
			OutputTokens: model.IntPtr(40),
			LatencyMS:    850,
		},
	}
}

func TestEval_FieldAccess(t *testing.T) {
	i := interactionFixture()

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"method equals", `request.method == "POST"`, true},
		{"method mismatch", `request.method == "GET"`, false},
		{"path glob match", `glob("/v1/**", request.path)`, true},
		{"path glob mismatch", `glob("/v2/**", request.path)`, false},
		{"status comparison", `response.status >= 200 && response.status < 300`, true},
		{"metadata provider", `metadata.provider == "anthropic"`, true},
		{"metadata tokens", `metadata.input_tokens > 100`, true},
		{"header lookup", `request.headers["content-type"] == "application/json"`, true},
		{"body field", `request.body.model.startsWith("claude-3")`, true},
		{"and across sections", `request.method == "POST" && response.streaming == true`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.expr)
			if err != nil {
				t.Fatalf("Compile(%q) failed: %v", tt.expr, err)
			}
			if got := p.Eval(i); got != tt.want {
				t.Errorf("Eval(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestCompile_InvalidExpressionReturnsError(t *testing.T) {
	_, err := Compile(`request.method ==`)
	if err == nil {
		t.Fatal("expected compile error for malformed expression")
	}
}

func TestEval_RuntimeErrorCollapsesToFalse(t *testing.T) {
	i := interactionFixture()

	// response.body is absent for a streaming response (see activation.go),
	// so indexing into it is a runtime error — this must not panic and must
	// evaluate to false rather than propagate the error.
	p, err := Compile(`response.body.foo == "bar"`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if got := p.Eval(i); got != false {
		t.Errorf("expected false on runtime error, got %v", got)
	}
}

func TestEval_NonBoolResultCollapsesToFalse(t *testing.T) {
	i := interactionFixture()
	p, err := Compile(`request.method`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if got := p.Eval(i); got != false {
		t.Errorf("expected false for non-bool result, got %v", got)
	}
}

func TestEval_NilPredicateIsFalse(t *testing.T) {
	var p *Predicate
	if p.Eval(interactionFixture()) != false {
		t.Error("nil predicate should evaluate to false")
	}
}

func TestGlob_InvalidPatternIsFalse(t *testing.T) {
	i := interactionFixture()
	p, err := Compile(`glob("[", request.path)`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if got := p.Eval(i); got != false {
		t.Errorf("invalid glob pattern should evaluate to false, got %v", got)
	}
}

func TestCompileCached_ReturnsSameCompilation(t *testing.T) {
	expr := `request.method == "POST"`
	p1, err := CompileCached(expr)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := CompileCached(expr)
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Error("expected CompileCached to return the same *Predicate for repeated calls")
	}
}

func TestCompileCached_DistinctExpressionsDistinctPrograms(t *testing.T) {
	p1, err := CompileCached(`request.method == "POST"`)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := CompileCached(`request.method == "GET"`)
	if err != nil {
		t.Fatal(err)
	}
	if p1 == p2 {
		t.Error("expected distinct expressions to produce distinct compiled predicates")
	}
}
