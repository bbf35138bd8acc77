package sim

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/softmatterlab/mdrun/internal/engine"
	"github.com/softmatterlab/mdrun/internal/units"
)

func TestRunUpdateVolumeValidation(t *testing.T) {
	s := newTestSim(t)
	ctx := context.Background()
	density := units.MustParse("1.0 g/cm^3")
	box := [3]float64{3, 3, 3}

	tests := []struct {
		name string
		opts UpdateVolumeOpts
		want error
	}{
		{"neither target", UpdateVolumeOpts{Steps: 10, Period: 1}, ErrNoVolumeTarget},
		{"both targets", UpdateVolumeOpts{
			Steps: 10, Period: 1, FinalBoxLengths: &box, FinalDensity: &density,
		}, ErrBothVolumeTargets},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.RunUpdateVolume(ctx, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRunUpdateVolumeDensityNeedsReferences(t *testing.T) {
	s := newTestSim(t)
	density := units.MustParse("1.0 g/cm^3")
	err := s.RunUpdateVolume(context.Background(), UpdateVolumeOpts{
		Steps: 10, Period: 1, KT: engine.Constant(1.0), TauKT: 0.1,
		FinalDensity: &density,
	})
	if !errors.Is(err, units.ErrMissingReference) {
		t.Errorf("error = %v, want ErrMissingReference", err)
	}
}

func TestRunUpdateVolumeReachesBoxTarget(t *testing.T) {
	s := newTestSim(t)
	target := [3]float64{3.4, 3.4, 3.4}
	err := s.RunUpdateVolume(context.Background(), UpdateVolumeOpts{
		Steps: 100, Period: 10,
		KT: engine.Constant(1.0), TauKT: 0.1,
		FinalBoxLengths: &target,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	got := s.BoxLengthsReduced()
	for i, l := range got {
		if math.Abs(l-3.4) > 1e-9 {
			t.Errorf("box[%d] = %v, want 3.4", i, l)
		}
	}
	// the extra step fires the final resize trigger
	if s.Timestep() != 101 {
		t.Errorf("timestep = %d, want 101", s.Timestep())
	}
}

func TestRunUpdateVolumeDensityTarget(t *testing.T) {
	s := newTestSim(t)
	if err := s.SetReferenceValues(testRefs); err != nil {
		t.Fatalf("refs: %v", err)
	}

	// Target the current density: the box must stay where it is.
	rho := s.Density()
	err := s.RunUpdateVolume(context.Background(), UpdateVolumeOpts{
		Steps: 20, Period: 5,
		KT: engine.Constant(1.0), TauKT: 0.1,
		FinalDensity: &rho,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := s.BoxLengthsReduced()[0]; math.Abs(got-3.6) > 1e-6 {
		t.Errorf("box = %v, want 3.6 (unchanged at current density)", got)
	}
}

func TestTemperatureRamp(t *testing.T) {
	s := newTestSim(t)
	r := s.TemperatureRamp(100, 2.0, 1.0)
	if r.Value(0) != 2.0 {
		t.Errorf("ramp start = %v, want 2.0", r.Value(0))
	}
	if r.Value(100) != 1.0 {
		t.Errorf("ramp end = %v, want 1.0", r.Value(100))
	}
	if got := r.Value(50); math.Abs(got-1.5) > 1e-12 {
		t.Errorf("ramp midpoint = %v, want 1.5", got)
	}
}

func TestRunNVTThermalizes(t *testing.T) {
	s := newTestSim(t)
	err := s.RunNVT(context.Background(), NVTOpts{
		Steps: 1, KT: engine.Constant(1.5), TauKT: 0.1, Thermalize: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// one weakly-coupled step barely moves the freshly thermalized value
	if got := s.State().KineticTemperature(); math.Abs(got-1.5) > 0.1 {
		t.Errorf("kT = %v, want ~1.5", got)
	}
}

func TestRunContextCancellation(t *testing.T) {
	s := newTestSim(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.RunNVE(ctx, NVEOpts{Steps: 1000})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRunStopsBeforeStateUse(t *testing.T) {
	// a caller that cancels a background run must be able to wait for the
	// step loop to return and then snapshot a quiescent state
	s := newTestSim(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.RunNVE(ctx, NVEOpts{Steps: 1 << 30})
	}()

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}

	path := filepath.Join(t.TempDir(), "restart.json")
	if err := s.SaveRestart(path); err != nil {
		t.Fatalf("save after cancel: %v", err)
	}
	snap, err := engine.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := snap.Validate(); err != nil {
		t.Errorf("restart snapshot invalid: %v", err)
	}
}

func TestRunLangevinReproducible(t *testing.T) {
	run := func() [3]float64 {
		s, err := New(engine.CubicLattice(2, 1.2, "A", 1.0), testForces(), testOptions())
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		err = s.RunLangevin(context.Background(), LangevinOpts{
			Steps: 50, KT: engine.Constant(1.0), Gamma: 1.0, Thermalize: true,
		})
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		p := s.State().Positions[0]
		return [3]float64{p.X, p.Y, p.Z}
	}

	if run() != run() {
		t.Error("same seed produced different trajectories")
	}
}

func TestRunDisplacementCapDefaults(t *testing.T) {
	s := newTestSim(t)
	if err := s.RunDisplacementCap(context.Background(), DisplacementCapOpts{Steps: 10}); err != nil {
		t.Fatalf("run: %v", err)
	}
	m, err := s.Method()
	if err != nil {
		t.Fatalf("method: %v", err)
	}
	dc, ok := m.(*engine.DisplacementCapped)
	if !ok {
		t.Fatalf("method = %T, want DisplacementCapped", m)
	}
	if dc.Max != 1e-3 {
		t.Errorf("default cap = %v, want 1e-3", dc.Max)
	}
}
