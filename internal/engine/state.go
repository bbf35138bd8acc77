package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
)

// Snapshot is a serializable particle configuration. It is the unit of
// exchange for initialization, trajectory frames and restart files.
type Snapshot struct {
	Box        Box       `json:"box"`
	Types      []string  `json:"types"`
	TypeIDs    []int     `json:"type_ids"`
	Positions  []Vec3    `json:"positions"`
	Velocities []Vec3    `json:"velocities"`
	Masses     []float64 `json:"masses"`
}

func (s *Snapshot) Validate() error {
	n := len(s.Positions)
	if n == 0 {
		return fmt.Errorf("engine: snapshot has no particles")
	}
	if len(s.Velocities) != 0 && len(s.Velocities) != n {
		return fmt.Errorf("engine: snapshot has %d velocities for %d particles", len(s.Velocities), n)
	}
	if len(s.Masses) != n {
		return fmt.Errorf("engine: snapshot has %d masses for %d particles", len(s.Masses), n)
	}
	if len(s.TypeIDs) != n {
		return fmt.Errorf("engine: snapshot has %d type ids for %d particles", len(s.TypeIDs), n)
	}
	for i, id := range s.TypeIDs {
		if id < 0 || id >= len(s.Types) {
			return fmt.Errorf("engine: particle %d has type id %d outside types table", i, id)
		}
	}
	if s.Box.Volume() <= 0 {
		return fmt.Errorf("engine: snapshot box has non-positive volume")
	}
	return nil
}

// ReadSnapshot loads a snapshot from a JSON file.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("engine: decode snapshot %s: %w", path, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// WriteFile saves the snapshot as indented JSON.
func (s *Snapshot) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// State is the live particle configuration the integrator advances.
type State struct {
	Box        Box
	Types      []string
	TypeIDs    []int
	Positions  []Vec3
	Velocities []Vec3
	Masses     []float64
	Step       uint64
}

// FromSnapshot builds a State from a validated snapshot. Particle data is
// copied; zero velocities are filled in when the snapshot omits them.
func FromSnapshot(snap *Snapshot) (*State, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	n := len(snap.Positions)
	st := &State{
		Box:        snap.Box,
		Types:      append([]string(nil), snap.Types...),
		TypeIDs:    append([]int(nil), snap.TypeIDs...),
		Positions:  append([]Vec3(nil), snap.Positions...),
		Velocities: make([]Vec3, n),
		Masses:     append([]float64(nil), snap.Masses...),
	}
	copy(st.Velocities, snap.Velocities)
	return st, nil
}

// Snapshot copies the current configuration.
func (st *State) Snapshot() *Snapshot {
	return &Snapshot{
		Box:        st.Box,
		Types:      append([]string(nil), st.Types...),
		TypeIDs:    append([]int(nil), st.TypeIDs...),
		Positions:  append([]Vec3(nil), st.Positions...),
		Velocities: append([]Vec3(nil), st.Velocities...),
		Masses:     append([]float64(nil), st.Masses...),
	}
}

func (st *State) N() int { return len(st.Positions) }

func (st *State) TotalMass() float64 {
	sum := 0.0
	for _, m := range st.Masses {
		sum += m
	}
	return sum
}

// DOF is the number of translational degrees of freedom, with the center
// of mass motion removed.
func (st *State) DOF() float64 {
	return math.Max(3*float64(st.N())-3, 1)
}

func (st *State) KineticEnergy() float64 {
	ke := 0.0
	for i, v := range st.Velocities {
		ke += 0.5 * st.Masses[i] * v.Dot(v)
	}
	return ke
}

// KineticTemperature is 2*KE/DOF in reduced units.
func (st *State) KineticTemperature() float64 {
	return 2 * st.KineticEnergy() / st.DOF()
}

// Thermalize assigns Maxwell-Boltzmann velocities at temperature kT,
// removes the center of mass drift and rescales to hit kT exactly.
func (st *State) Thermalize(kT float64, rng *rand.Rand) {
	if kT <= 0 || st.N() == 0 {
		return
	}
	for i := range st.Velocities {
		sigma := math.Sqrt(kT / st.Masses[i])
		st.Velocities[i] = Vec3{
			X: sigma * rng.NormFloat64(),
			Y: sigma * rng.NormFloat64(),
			Z: sigma * rng.NormFloat64(),
		}
	}
	st.removeDrift()
	if cur := st.KineticTemperature(); cur > 0 {
		f := math.Sqrt(kT / cur)
		for i := range st.Velocities {
			st.Velocities[i] = st.Velocities[i].Scale(f)
		}
	}
}

func (st *State) removeDrift() {
	var p Vec3
	for i, v := range st.Velocities {
		p = p.Add(v.Scale(st.Masses[i]))
	}
	m := st.TotalMass()
	if m == 0 {
		return
	}
	drift := p.Scale(1 / m)
	for i := range st.Velocities {
		st.Velocities[i] = st.Velocities[i].Sub(drift)
	}
}

// Wrap applies periodic boundary conditions, folding positions back into
// the box.
func (st *State) Wrap() {
	for i, p := range st.Positions {
		st.Positions[i] = Vec3{
			X: wrap1(p.X, st.Box.Lx),
			Y: wrap1(p.Y, st.Box.Ly),
			Z: wrap1(p.Z, st.Box.Lz),
		}
	}
}

func wrap1(x, l float64) float64 {
	if l <= 0 {
		return x
	}
	x -= l * math.Round(x/l)
	return x
}

// ScaleTo sets a new box and rescales particle positions affinely with it.
func (st *State) ScaleTo(box Box) {
	fx := box.Lx / st.Box.Lx
	fy := box.Ly / st.Box.Ly
	fz := box.Lz / st.Box.Lz
	for i, p := range st.Positions {
		st.Positions[i] = Vec3{X: p.X * fx, Y: p.Y * fy, Z: p.Z * fz}
	}
	st.Box = box
}

// MinImage returns the minimum-image separation between two positions.
func (st *State) MinImage(a, b Vec3) Vec3 {
	d := a.Sub(b)
	return Vec3{
		X: wrap1(d.X, st.Box.Lx),
		Y: wrap1(d.Y, st.Box.Ly),
		Z: wrap1(d.Z, st.Box.Lz),
	}
}
