package cassette

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sagikazarmark/replayr/internal/model"
	"github.com/sagikazarmark/replayr/internal/ring"
)

func newRingWithOne(t *testing.T) *ring.Ring {
	t.Helper()
	r := ring.New(10)
	r.Push(model.Interaction{ID: "only"})
	return r
}

func TestWriteSnapshot_FormatAndRedaction(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	interactions := []model.Interaction{
		{
			ID: "abc-123",
			Request: model.StoredRequest{
				Method:  "POST",
				Path:    "/v1/messages",
				Headers: map[string]string{"x-api-key": "secret"},
			},
		},
	}

	n, err := WriteSnapshot(path, "https://api.example.com", interactions)
	if err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}
	if n == 0 {
		t.Error("expected non-zero bytes written")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}

	if doc.ReplayrVersion != FormatVersion {
		t.Errorf("ReplayrVersion = %q, want %q", doc.ReplayrVersion, FormatVersion)
	}
	if doc.Cassette.Upstream != "https://api.example.com" {
		t.Errorf("Upstream = %q", doc.Cassette.Upstream)
	}
	if len(doc.Interactions) != 1 {
		t.Fatalf("expected 1 interaction, got %d", len(doc.Interactions))
	}
	if doc.Interactions[0].Request.Headers["x-api-key"] != "REDACTED" {
		t.Errorf("expected x-api-key redacted in cassette, got %q", doc.Interactions[0].Request.Headers["x-api-key"])
	}
}

func TestWriteSnapshot_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	if _, err := WriteSnapshot(path, "up", nil); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "session.json" {
		t.Errorf("expected exactly session.json in dir, got %v", entries)
	}
}

func TestWriteSnapshot_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	if _, err := WriteSnapshot(path, "up", []model.Interaction{{ID: "first"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteSnapshot(path, "up", []model.Interaction{{ID: "second"}}); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Interactions) != 1 || doc.Interactions[0].ID != "second" {
		t.Errorf("expected overwrite to replace contents, got %+v", doc.Interactions)
	}
}

func TestFilter(t *testing.T) {
	interactions := []model.Interaction{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	all := Filter(interactions, nil)
	if len(all) != 3 {
		t.Errorf("Filter(nil) should return all, got %d", len(all))
	}

	subset := Filter(interactions, []string{"b"})
	if len(subset) != 1 || subset[0].ID != "b" {
		t.Errorf("Filter([b]) = %+v, want just b", subset)
	}
}

func TestRecordOnStore_DisabledIsNoOp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	state := NewState(false, path)

	RecordOnStore(state, newRingWithOne(t), "up", nil)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected no file written when recording disabled")
	}
	if _, _, count := state.Get(); count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestRecordOnStore_EnabledWritesAndBumpsCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	state := NewState(true, path)

	RecordOnStore(state, newRingWithOne(t), "up", nil)

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected cassette file to be written: %v", err)
	}
	if _, _, count := state.Get(); count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}
