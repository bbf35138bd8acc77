package protocol

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/softmatterlab/mdrun/internal/config"
	"github.com/softmatterlab/mdrun/internal/engine"
	"github.com/softmatterlab/mdrun/internal/sim"
)

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "init.json")
	if err := engine.CubicLattice(3, 1.2, "A", 1.0).WriteFile(path); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Snapshot = writeSnapshot(t)
	cfg.Dt = 0.001
	cfg.Forces.Pairs = []config.PairConfig{{TypeA: "A", TypeB: "A", Epsilon: 1, Sigma: 1}}
	dir := t.TempDir()
	cfg.LogFile = filepath.Join(dir, "thermo.csv")
	cfg.TrajFile = filepath.Join(dir, "trajectory.jsonl")
	return cfg
}

func TestBuildForces(t *testing.T) {
	forces := BuildForces(config.FieldConfig{})
	if forces != nil {
		t.Errorf("empty field built %d forces", len(forces))
	}

	forces = BuildForces(config.FieldConfig{
		RCut: 3.0,
		Pairs: []config.PairConfig{
			{TypeA: "A", TypeB: "A", Epsilon: 1, Sigma: 1},
			{TypeA: "A", TypeB: "B", Epsilon: 0.5, Sigma: 1.2},
		},
	})
	if len(forces) != 1 {
		t.Fatalf("forces = %d, want 1", len(forces))
	}
	lj := forces[0].(*engine.LJPair)
	if lj.RCut != 3.0 {
		t.Errorf("r_cut = %v, want 3.0", lj.RCut)
	}
	if len(lj.Params) != 2 {
		t.Errorf("pair params = %d, want 2", len(lj.Params))
	}

	// r_cut defaults when unset
	lj = BuildForces(config.FieldConfig{
		Pairs: []config.PairConfig{{TypeA: "A", TypeB: "A", Epsilon: 1, Sigma: 1}},
	})[0].(*engine.LJPair)
	if lj.RCut != 2.5 {
		t.Errorf("default r_cut = %v, want 2.5", lj.RCut)
	}
}

func TestParseAxis(t *testing.T) {
	for name, want := range map[string]engine.Axis{
		"x": engine.AxisX, "y": engine.AxisY, "z": engine.AxisZ,
	} {
		got, err := ParseAxis(name)
		if err != nil || got != want {
			t.Errorf("ParseAxis(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseAxis("q"); err == nil {
		t.Error("bad axis should error")
	}
}

func TestBuildSimulation(t *testing.T) {
	cfg := testConfig(t)
	cfg.Forces.Walls = []config.WallAxisConfig{
		{Axis: "z", Epsilon: 1, Sigma: 1, RCut: 2.5},
	}

	s, err := BuildSimulation(cfg, true)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer s.Close()

	if got := len(s.State().Positions); got != 27 {
		t.Errorf("particles = %d, want 27", got)
	}
	// LJ pairs plus the wall
	if got := len(s.Forces()); got != 2 {
		t.Errorf("forces = %d, want 2", got)
	}
	if axes := s.WallAxes(); len(axes) != 1 || axes[0] != engine.AxisZ {
		t.Errorf("wall axes = %v, want [z]", axes)
	}
}

func TestBuildSimulationBadAxis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Forces.Walls = []config.WallAxisConfig{{Axis: "diag", Epsilon: 1, Sigma: 1, RCut: 2.5}}
	if _, err := BuildSimulation(cfg, true); err == nil {
		t.Error("bad wall axis should fail the build")
	}
}

func TestRunStageKinds(t *testing.T) {
	stages := []struct {
		name  string
		stage config.EnsembleConfig
		check string // integrator method name afterwards
	}{
		{"nvt", config.EnsembleConfig{Kind: "nvt", Steps: 5, KT: 1.0, TauKT: 0.1}, "nvt"},
		{"npt", config.EnsembleConfig{Kind: "npt", Steps: 5, KT: 1.0, TauKT: 0.1, Pressure: 0.5, TauPressure: 1.0}, "npt"},
		{"nve", config.EnsembleConfig{Kind: "nve", Steps: 5}, "nve"},
		{"langevin", config.EnsembleConfig{Kind: "langevin", Steps: 5, KT: 1.0, Gamma: 1.0}, "langevin"},
		{"relax", config.EnsembleConfig{Kind: "relax", Steps: 5}, "displacement_capped"},
		{"shrink", config.EnsembleConfig{
			Kind: "shrink", Steps: 10, Period: 5, KT: 1.0, TauKT: 0.1,
			FinalBoxLengths: []float64{3.5, 3.5, 3.5},
		}, "nvt"},
	}

	for _, tt := range stages {
		t.Run(tt.name, func(t *testing.T) {
			s, err := BuildSimulation(testConfig(t), true)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			defer s.Close()

			if err := RunStage(context.Background(), s, tt.stage); err != nil {
				t.Fatalf("run stage: %v", err)
			}
			m, err := s.Method()
			if err != nil {
				t.Fatalf("method: %v", err)
			}
			if m.Name() != tt.check {
				t.Errorf("method = %s, want %s", m.Name(), tt.check)
			}
		})
	}
}

func TestRunStageShrinkBadBoxLengths(t *testing.T) {
	s, err := BuildSimulation(testConfig(t), true)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer s.Close()

	err = RunStage(context.Background(), s, config.EnsembleConfig{
		Kind: "shrink", Steps: 10, Period: 5, KT: 1.0, TauKT: 0.1,
		FinalBoxLengths: []float64{3.5, 3.5},
	})
	if err == nil || !strings.Contains(err.Error(), "final_box_lengths") {
		t.Errorf("error = %v, want final_box_lengths complaint", err)
	}
}

func TestRunStageUnknownKind(t *testing.T) {
	s, err := BuildSimulation(testConfig(t), true)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer s.Close()

	err = RunStage(context.Background(), s, config.EnsembleConfig{Kind: "mc", Steps: 5})
	if err == nil || !strings.Contains(err.Error(), "unknown ensemble") {
		t.Errorf("error = %v, want unknown ensemble", err)
	}
}

func TestKTVariantRamp(t *testing.T) {
	s, err := sim.New(engine.CubicLattice(2, 1.2, "A", 1.0), nil, sim.Options{
		Dt: 0.001, Seed: 1, DisableOutput: true, Quiet: true,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	v := kTVariant(s, config.EnsembleConfig{Kind: "nvt", Steps: 100, KT: 2.0, KTFinal: 1.0})
	if v.Value(0) != 2.0 || v.Value(100) != 1.0 {
		t.Errorf("ramp = %v..%v, want 2.0..1.0", v.Value(0), v.Value(100))
	}

	v = kTVariant(s, config.EnsembleConfig{Kind: "nvt", Steps: 100, KT: 2.0})
	if v.Value(50) != 2.0 {
		t.Errorf("constant kT = %v, want 2.0", v.Value(50))
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anneal.yaml")
	doc := `name: anneal
description: relax then quench
stages:
  - kind: relax
    steps: 1000
    max_displacement: 0.001
  - kind: nvt
    steps: 5000
    kt: 1.5
    kt_final: 0.5
    tau_kt: 0.1
    thermalize: true
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sc.Name != "anneal" || len(sc.Stages) != 2 {
		t.Fatalf("scenario = %+v", sc)
	}
	if sc.Stages[0].Kind != "relax" || sc.Stages[0].MaxDisplacement != 0.001 {
		t.Errorf("stage 0 = %+v", sc.Stages[0])
	}
	if sc.Stages[1].KTFinal != 0.5 || !sc.Stages[1].Thermalize {
		t.Errorf("stage 1 = %+v", sc.Stages[1])
	}
}

func TestLoadScenarioEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("name: hollow\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScenario(path); err == nil {
		t.Error("scenario without stages should error")
	}
}

func TestRunScenario(t *testing.T) {
	s, err := BuildSimulation(testConfig(t), true)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer s.Close()

	sc := &Scenario{
		Name: "two-step",
		Stages: []config.EnsembleConfig{
			{Kind: "relax", Steps: 5},
			{Kind: "nvt", Steps: 5, KT: 1.0, TauKT: 0.1, Thermalize: true},
		},
	}
	if err := RunScenario(context.Background(), s, sc); err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	// relax runs 5, nvt runs 5
	if s.Timestep() != 10 {
		t.Errorf("timestep = %d, want 10", s.Timestep())
	}
}

func TestRunScenarioStopsOnError(t *testing.T) {
	s, err := BuildSimulation(testConfig(t), true)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer s.Close()

	sc := &Scenario{
		Stages: []config.EnsembleConfig{
			{Kind: "bogus", Steps: 5},
			{Kind: "nve", Steps: 5},
		},
	}
	err = RunScenario(context.Background(), s, sc)
	if err == nil || !strings.Contains(err.Error(), "stage 1") {
		t.Errorf("error = %v, want stage 1 failure", err)
	}
	if s.Timestep() != 0 {
		t.Errorf("timestep = %d, want 0 after failed first stage", s.Timestep())
	}
}
