package engine

import (
	"math"
	"math/rand"
	"testing"
)

func latticeState(t *testing.T, n int) *State {
	t.Helper()
	st, err := FromSnapshot(CubicLattice(n, 1.5, "A", 1.0))
	if err != nil {
		t.Fatalf("lattice snapshot invalid: %v", err)
	}
	return st
}

func TestSnapshotValidate(t *testing.T) {
	valid := CubicLattice(2, 1.0, "A", 1.0)

	tests := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"no particles", func(s *Snapshot) { s.Positions = nil }},
		{"mass mismatch", func(s *Snapshot) { s.Masses = s.Masses[:1] }},
		{"type id mismatch", func(s *Snapshot) { s.TypeIDs = s.TypeIDs[:1] }},
		{"type id out of range", func(s *Snapshot) { s.TypeIDs[0] = 5 }},
		{"empty box", func(s *Snapshot) { s.Box = Box{} }},
		{"velocity mismatch", func(s *Snapshot) { s.Velocities = s.Velocities[:3] }},
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("valid snapshot rejected: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := CubicLattice(2, 1.0, "A", 1.0)
			tt.mutate(snap)
			if err := snap.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestThermalizeExactTemperature(t *testing.T) {
	st := latticeState(t, 4)
	rng := rand.New(rand.NewSource(7))

	for _, kT := range []float64{0.5, 1.0, 2.5} {
		st.Thermalize(kT, rng)
		if got := st.KineticTemperature(); math.Abs(got-kT) > 1e-9 {
			t.Errorf("kT = %.12f, want %.12f", got, kT)
		}
	}
}

func TestThermalizeRemovesDrift(t *testing.T) {
	st := latticeState(t, 3)
	st.Thermalize(1.0, rand.New(rand.NewSource(1)))

	var p Vec3
	for i, v := range st.Velocities {
		p = p.Add(v.Scale(st.Masses[i]))
	}
	if p.Norm() > 1e-9 {
		t.Errorf("net momentum after thermalize: %v", p)
	}
}

func TestDOF(t *testing.T) {
	st := latticeState(t, 2)
	if got := st.DOF(); got != 3*8-3 {
		t.Errorf("DOF = %v, want %v", got, 3*8-3)
	}
}

func TestWrap(t *testing.T) {
	st := &State{
		Box:       Box{Lx: 10, Ly: 10, Lz: 10},
		Positions: []Vec3{{X: 6, Y: -7, Z: 5.5}},
	}
	st.Wrap()
	p := st.Positions[0]
	if math.Abs(p.X+4) > 1e-12 || math.Abs(p.Y-3) > 1e-12 || math.Abs(p.Z+4.5) > 1e-12 {
		t.Errorf("wrapped position = %v", p)
	}
}

func TestMinImage(t *testing.T) {
	st := &State{Box: Box{Lx: 10, Ly: 10, Lz: 10}}
	d := st.MinImage(Vec3{X: 4.8}, Vec3{X: -4.8})
	if math.Abs(d.X+0.4) > 1e-12 {
		t.Errorf("min image dx = %.4f, want -0.4", d.X)
	}
}

func TestScaleTo(t *testing.T) {
	st := &State{
		Box:       Box{Lx: 10, Ly: 10, Lz: 10},
		Positions: []Vec3{{X: 2, Y: -3, Z: 4}},
	}
	st.ScaleTo(Box{Lx: 5, Ly: 5, Lz: 5})
	p := st.Positions[0]
	if math.Abs(p.X-1) > 1e-12 || math.Abs(p.Y+1.5) > 1e-12 || math.Abs(p.Z-2) > 1e-12 {
		t.Errorf("scaled position = %v", p)
	}
	if st.Box.Volume() != 125 {
		t.Errorf("volume = %v, want 125", st.Box.Volume())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	snap := CubicLattice(2, 1.3, "A", 2.0)
	path := t.TempDir() + "/snap.json"
	if err := snap.WriteFile(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Box != snap.Box {
		t.Errorf("box = %v, want %v", got.Box, snap.Box)
	}
	if len(got.Positions) != len(snap.Positions) {
		t.Errorf("n = %d, want %d", len(got.Positions), len(snap.Positions))
	}
	if got.Masses[0] != 2.0 {
		t.Errorf("mass = %v, want 2", got.Masses[0])
	}
}
