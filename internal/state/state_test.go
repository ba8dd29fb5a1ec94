package state

import "testing"

func TestNew_BuildsIndependentCells(t *testing.T) {
	s := New(64, "https://api.example.com", false, "")
	defer s.Close()

	if s.Ring == nil || s.Bus == nil || s.Intercept == nil || s.Record == nil {
		t.Fatal("expected all cells to be non-nil")
	}
	if s.Upstream != "https://api.example.com" {
		t.Errorf("Upstream = %q", s.Upstream)
	}

	enabled, _, count := s.Record.Get()
	if enabled || count != 0 {
		t.Errorf("expected recording disabled with zero count, got enabled=%v count=%d", enabled, count)
	}
}

func TestNew_RecordEnabledAtStartup(t *testing.T) {
	s := New(8, "up", true, "/tmp/cassette.json")
	defer s.Close()

	enabled, output, _ := s.Record.Get()
	if !enabled || output != "/tmp/cassette.json" {
		t.Errorf("expected recording enabled with output path set, got enabled=%v output=%q", enabled, output)
	}
}
