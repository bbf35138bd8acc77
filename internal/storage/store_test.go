package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "runs"))
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func TestNewRunCreatesDirectory(t *testing.T) {
	s := newTestStore(t)
	runID, dir, err := s.NewRun("quench")
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	if !strings.HasPrefix(runID, "quench_") {
		t.Errorf("run id = %q, want quench_ prefix", runID)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("run dir %q not created: %v", dir, err)
	}
	if s.LogPath(runID) != filepath.Join(dir, LogFileName) {
		t.Errorf("log path = %q", s.LogPath(runID))
	}
	if s.TrajPath(runID) != filepath.Join(dir, TrajFileName) {
		t.Errorf("traj path = %q", s.TrajPath(runID))
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	s := newTestStore(t)
	runID, _, err := s.NewRun("test")
	if err != nil {
		t.Fatalf("new run: %v", err)
	}

	meta := RunMetadata{
		Name:      "test",
		Timestamp: time.Now().UTC(),
		Seed:      7,
		Dt:        0.001,
		Stages:    []string{"relax", "nvt"},
		Snapshot:  "init.json",
		Metrics:   map[string]float64{"kinetic_temperature": 1.02},
	}
	if err := s.SaveMetadata(runID, meta); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load(runID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != runID {
		t.Errorf("id = %q, want %q", got.ID, runID)
	}
	if got.Seed != 7 || got.Dt != 0.001 {
		t.Errorf("meta = %+v", got)
	}
	if len(got.Stages) != 2 || got.Stages[1] != "nvt" {
		t.Errorf("stages = %v", got.Stages)
	}
	if got.Metrics["kinetic_temperature"] != 1.02 {
		t.Errorf("metrics = %v", got.Metrics)
	}
}

func TestListSkipsIncompleteRuns(t *testing.T) {
	s := newTestStore(t)

	runs, err := s.List()
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("runs = %d, want 0", len(runs))
	}

	runID, _, err := s.NewRun("good")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveMetadata(runID, RunMetadata{Name: "good"}); err != nil {
		t.Fatal(err)
	}
	// a directory without metadata, e.g. an interrupted run
	if _, _, err := s.NewRun("crashed"); err != nil {
		t.Fatal(err)
	}

	runs, err = s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 || runs[0].Name != "good" {
		t.Errorf("runs = %+v, want only the complete one", runs)
	}
}

func TestListMissingBaseDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nothing-here"))
	runs, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("runs = %d, want 0", len(runs))
	}
}

func TestLoadThermoAndColumn(t *testing.T) {
	s := newTestStore(t)
	runID, _, err := s.NewRun("thermo")
	if err != nil {
		t.Fatal(err)
	}

	log := "step,kinetic_temperature,pressure\n" +
		"100,1.5,0.2\n" +
		"200,1.4,0.25\n" +
		"300,1.3,0.3\n"
	if err := os.WriteFile(s.LogPath(runID), []byte(log), 0o644); err != nil {
		t.Fatal(err)
	}

	header, rows, err := s.LoadThermo(runID)
	if err != nil {
		t.Fatalf("load thermo: %v", err)
	}
	if len(header) != 3 || header[1] != "kinetic_temperature" {
		t.Errorf("header = %v", header)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	col, err := Column(header, rows, "kinetic_temperature")
	if err != nil {
		t.Fatalf("column: %v", err)
	}
	want := []float64{1.5, 1.4, 1.3}
	for i, v := range want {
		if col[i] != v {
			t.Errorf("col[%d] = %v, want %v", i, col[i], v)
		}
	}

	if _, err := Column(header, rows, "enthalpy"); err == nil {
		t.Error("missing column should error")
	}
}
