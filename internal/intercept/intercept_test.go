package intercept

import (
	"testing"
	"time"

	"github.com/sagikazarmark/replayr/internal/model"
)

func syntheticFor(path string) model.Interaction {
	return model.Interaction{
		Request: model.StoredRequest{Method: "POST", Path: path},
	}
}

func TestCheck_NoPattern_NotIntercepted(t *testing.T) {
	r := New()
	_, intercepted := r.Check(syntheticFor("/v1/messages"), model.StoredRequest{})
	if intercepted {
		t.Error("expected no interception with no pattern set")
	}
}

func TestCheck_PatternMismatch_NotIntercepted(t *testing.T) {
	r := New()
	if err := r.SetPattern(`request.path.contains("/v1/messages")`); err != nil {
		t.Fatal(err)
	}
	_, intercepted := r.Check(syntheticFor("/v1/chat/completions"), model.StoredRequest{})
	if intercepted {
		t.Error("expected no interception for non-matching path")
	}
}

func TestCheck_PatternMatch_ReleaseAfterQueue(t *testing.T) {
	r := New()
	if err := r.SetPattern(`request.path.contains("/v1/messages")`); err != nil {
		t.Fatal(err)
	}

	resultCh := make(chan Action, 1)
	go func() {
		action, intercepted := r.Check(syntheticFor("/v1/messages"), model.StoredRequest{Path: "/v1/messages"})
		if !intercepted {
			t.Error("expected interception")
		}
		resultCh <- action
	}()

	var id string
	for i := 0; i < 100; i++ {
		q := r.Queue()
		if len(q) == 1 {
			id = q[0].ID
			break
		}
		time.Sleep(time.Millisecond)
	}
	if id == "" {
		t.Fatal("entry never appeared in queue")
	}

	newBody := `{"model":"X"}`
	if !r.Release(id, map[string]string{"x-api-key": "new"}, &newBody) {
		t.Fatal("Release reported entry not found")
	}

	select {
	case action := <-resultCh:
		if action.Drop {
			t.Error("expected a release action, got drop")
		}
		if action.Body == nil || *action.Body != newBody {
			t.Errorf("expected body replacement %q, got %v", newBody, action.Body)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Check to return")
	}

	if len(r.Queue()) != 0 {
		t.Error("expected entry to be removed from queue after release")
	}
}

func TestCheck_PatternMatch_Drop(t *testing.T) {
	r := New()
	if err := r.SetPattern(`request.path.contains("/v1/messages")`); err != nil {
		t.Fatal(err)
	}

	resultCh := make(chan Action, 1)
	go func() {
		action, _ := r.Check(syntheticFor("/v1/messages"), model.StoredRequest{})
		resultCh <- action
	}()

	var id string
	for i := 0; i < 100; i++ {
		q := r.Queue()
		if len(q) == 1 {
			id = q[0].ID
			break
		}
		time.Sleep(time.Millisecond)
	}
	if id == "" {
		t.Fatal("entry never appeared in queue")
	}

	if !r.Drop(id) {
		t.Fatal("Drop reported entry not found")
	}

	select {
	case action := <-resultCh:
		if !action.Drop {
			t.Error("expected drop action")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Check to return")
	}
}

func TestRelease_UnknownID(t *testing.T) {
	r := New()
	if r.Release("nonexistent", nil, nil) {
		t.Error("expected Release to report false for unknown id")
	}
}

func TestDrop_UnknownID(t *testing.T) {
	r := New()
	if r.Drop("nonexistent") {
		t.Error("expected Drop to report false for unknown id")
	}
}

func TestSetPattern_InvalidExpression(t *testing.T) {
	r := New()
	if err := r.SetPattern(`request.method ==`); err == nil {
		t.Error("expected error for malformed expression")
	}
}

func TestSetPattern_EmptyClears(t *testing.T) {
	r := New()
	if err := r.SetPattern(`request.path.contains("/v1")`); err != nil {
		t.Fatal(err)
	}
	if r.Pattern() == "" {
		t.Fatal("expected pattern to be set")
	}
	if err := r.SetPattern(""); err != nil {
		t.Fatal(err)
	}
	if r.Pattern() != "" {
		t.Error("expected pattern to be cleared")
	}
	_, intercepted := r.Check(syntheticFor("/v1/messages"), model.StoredRequest{})
	if intercepted {
		t.Error("expected no interception once pattern cleared")
	}
}
