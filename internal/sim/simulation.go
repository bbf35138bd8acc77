// Package sim is the run orchestration layer: it builds a simulation
// context from an initial configuration and a force list, keeps the
// reference-unit bookkeeping, and exposes the ensemble runners (NVT, NPT,
// NVE, Langevin, displacement-capped relaxation, volume ramps). The
// integration itself is delegated to internal/engine.
package sim

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/softmatterlab/mdrun/internal/engine"
	"github.com/softmatterlab/mdrun/internal/units"
)

// Observer receives every thermodynamic sample the log writer produces.
type Observer interface {
	OnSample(s engine.Sample)
}

type wallEntry struct {
	force  *engine.LJWall
	params engine.WallParams
}

// Simulation owns the state, the force list and the lazily created
// integrator. At most one integrator exists per Simulation; the run
// methods create it on first use and replace its method afterwards.
type Simulation struct {
	state      *engine.State
	forces     []engine.Force
	integrator *engine.Integrator
	ops        *engine.Operations
	refs       units.RefValues
	opts       Options
	rng        *rand.Rand
	log        *slog.Logger

	wallForces map[engine.Axis]wallEntry
	observers  []Observer

	trajWriter   *trajectoryWriter
	thermoWriter *thermoWriter
	statusFreq   uint64
}

// New builds a Simulation from a snapshot and a force list.
func New(snap *engine.Snapshot, forces []engine.Force, opts Options) (*Simulation, error) {
	opts.setDefaults()
	st, err := engine.FromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	s := &Simulation{
		state:      st,
		forces:     append([]engine.Force(nil), forces...),
		ops:        &engine.Operations{},
		opts:       opts,
		rng:        rand.New(rand.NewSource(opts.Seed)),
		log:        opts.Logger,
		wallForces: make(map[engine.Axis]wallEntry),
		statusFreq: (opts.TrajWrite + opts.LogWrite) / 2,
	}
	if len(opts.References) > 0 {
		if err := s.refs.SetAllStrings(opts.References); err != nil {
			return nil, err
		}
	}
	if !opts.DisableOutput {
		if err := s.attachWriters(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewFromFile builds a Simulation from a snapshot file path.
func NewFromFile(path string, forces []engine.Force, opts Options) (*Simulation, error) {
	snap, err := engine.ReadSnapshot(path)
	if err != nil {
		return nil, err
	}
	return New(snap, forces, opts)
}

func (s *Simulation) attachWriters() error {
	tw, err := newTrajectoryWriter(s.opts.TrajFile)
	if err != nil {
		return err
	}
	lw, err := newThermoWriter(s.opts.LogFile, s)
	if err != nil {
		tw.Close()
		return err
	}
	s.trajWriter = tw
	s.thermoWriter = lw
	s.ops.AddWriter(engine.Periodic{Period: s.opts.TrajWrite}, tw)
	s.ops.AddWriter(engine.Periodic{Period: s.opts.LogWrite}, lw)
	return nil
}

// Close flushes and closes the output writers.
func (s *Simulation) Close() error {
	var firstErr error
	if s.trajWriter != nil {
		if err := s.trajWriter.Close(); err != nil {
			firstErr = err
		}
	}
	if s.thermoWriter != nil {
		if err := s.thermoWriter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// State exposes the live particle state.
func (s *Simulation) State() *engine.State { return s.state }

// Timestep is the current step counter.
func (s *Simulation) Timestep() uint64 { return s.state.Step }

// AddObserver registers a thermo sample observer.
func (s *Simulation) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

func (s *Simulation) notify(sample engine.Sample) {
	for _, o := range s.observers {
		o.OnSample(sample)
	}
}

// Forces returns the active force list: the integrator's copy once it
// exists, the construction-time list before that.
func (s *Simulation) Forces() []engine.Force {
	if s.integrator != nil {
		return s.integrator.Forces()
	}
	return s.forces
}

// AddForce appends a force, keeping the integrator's list in sync.
func (s *Simulation) AddForce(f engine.Force) {
	s.forces = append(s.forces, f)
	if s.integrator != nil {
		s.integrator.AddForce(f)
	}
}

// RemoveForce detaches a force by identity from both the simulation's and
// the integrator's lists.
func (s *Simulation) RemoveForce(f engine.Force) error {
	idx := -1
	for i, have := range s.forces {
		if have == f {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrForceNotFound
	}
	s.forces = append(s.forces[:idx], s.forces[idx+1:]...)
	if s.integrator != nil {
		return s.integrator.RemoveForce(f)
	}
	return nil
}

// References returns the reference-unit manager.
func (s *Simulation) References() *units.RefValues { return &s.refs }

// SetReferenceValues assigns all three reference units at once; the map
// must contain "length", "mass" and "energy".
func (s *Simulation) SetReferenceValues(values map[string]units.Quantity) error {
	return s.refs.SetAll(values)
}

// Dt returns the reduced timestep.
func (s *Simulation) Dt() float64 { return s.opts.Dt }

// SetDt updates the timestep, propagating it to the integrator when one
// exists.
func (s *Simulation) SetDt(dt float64) {
	s.opts.Dt = dt
	if s.integrator != nil {
		s.integrator.SetDt(dt)
	}
}

// RealTimestep converts the reduced timestep to seconds via the reference
// units, warning and substituting unit factors for any missing reference.
func (s *Simulation) RealTimestep() units.Quantity {
	q, complete := s.refs.RealTimestep(s.opts.Dt)
	if !complete {
		s.log.Warn("incomplete reference units; real timestep uses unit factors for missing references")
	}
	return q
}

// Method returns the integrator method. It errors until the first run
// function has created the integrator.
func (s *Simulation) Method() (engine.Method, error) {
	if s.integrator == nil {
		return nil, ErrNoIntegrator
	}
	return s.integrator.Method(), nil
}

// BoxLengthsReduced returns the box edges in reduced units.
func (s *Simulation) BoxLengthsReduced() [3]float64 {
	return s.state.Box.Lengths()
}

// BoxLengths returns the box edges scaled by the reference length. With
// no reference length set it warns and returns the reduced values.
func (s *Simulation) BoxLengths() [3]units.Quantity {
	reduced := s.BoxLengthsReduced()
	ref, ok := s.refs.Length()
	if !ok {
		s.log.Warn("reference length not set; returning reduced box lengths")
		return [3]units.Quantity{
			units.Reduced(reduced[0]), units.Reduced(reduced[1]), units.Reduced(reduced[2]),
		}
	}
	return [3]units.Quantity{ref.Scale(reduced[0]), ref.Scale(reduced[1]), ref.Scale(reduced[2])}
}

// VolumeReduced is the box volume in reduced units.
func (s *Simulation) VolumeReduced() float64 { return s.state.Box.Volume() }

// Volume is the box volume in physical units (reference length cubed),
// falling back to the reduced value with a warning.
func (s *Simulation) Volume() units.Quantity {
	ref, ok := s.refs.Length()
	if !ok {
		s.log.Warn("reference length not set; returning reduced volume")
		return units.Reduced(s.VolumeReduced())
	}
	cube, err := units.Cube(ref)
	if err != nil {
		return units.Reduced(s.VolumeReduced())
	}
	return cube.Scale(s.VolumeReduced())
}

// MassReduced is the total particle mass in reduced units.
func (s *Simulation) MassReduced() float64 { return s.state.TotalMass() }

// Mass is the total mass scaled by the reference mass, falling back to
// the reduced value with a warning.
func (s *Simulation) Mass() units.Quantity {
	ref, ok := s.refs.Mass()
	if !ok {
		s.log.Warn("reference mass not set; returning reduced mass")
		return units.Reduced(s.MassReduced())
	}
	return ref.Scale(s.MassReduced())
}

// DensityReduced is mass over volume in reduced units.
func (s *Simulation) DensityReduced() float64 {
	return s.MassReduced() / s.VolumeReduced()
}

// Density is the system density in g/cm^3, falling back to the reduced
// value with a warning when references are incomplete.
func (s *Simulation) Density() units.Quantity {
	massRef, okM := s.refs.Mass()
	lenRef, okL := s.refs.Length()
	if !okM || !okL {
		s.log.Warn("reference mass or length not set; returning reduced density")
		return units.Reduced(s.DensityReduced())
	}
	massG, err := massRef.Scale(s.MassReduced()).To("g")
	if err != nil {
		return units.Reduced(s.DensityReduced())
	}
	cube, err := units.Cube(lenRef)
	if err != nil {
		return units.Reduced(s.DensityReduced())
	}
	volCM, err := cube.Scale(s.VolumeReduced()).To("cm^3")
	if err != nil {
		return units.Reduced(s.DensityReduced())
	}
	q, _ := units.New(massG.Value/volCM.Value, "g/cm^3")
	return q
}

// AdjustEpsilon scales or shifts the epsilon of every LJ pair parameter,
// optionally restricted to the given pair keys. A non-zero scale wins
// over shift.
func (s *Simulation) AdjustEpsilon(scaleBy, shiftBy float64, pairFilter []string) error {
	lj, err := s.ljForce()
	if err != nil {
		return err
	}
	for key, p := range lj.Params {
		if !pairMatches(key, pairFilter) {
			continue
		}
		if scaleBy != 0 {
			p.Epsilon *= scaleBy
		} else {
			p.Epsilon += shiftBy
		}
		lj.Params[key] = p
	}
	return nil
}

// AdjustSigma scales or shifts the sigma of every LJ pair parameter,
// optionally restricted to the given pair keys.
func (s *Simulation) AdjustSigma(scaleBy, shiftBy float64, pairFilter []string) error {
	lj, err := s.ljForce()
	if err != nil {
		return err
	}
	for key, p := range lj.Params {
		if !pairMatches(key, pairFilter) {
			continue
		}
		if scaleBy != 0 {
			p.Sigma *= scaleBy
		} else {
			p.Sigma += shiftBy
		}
		lj.Params[key] = p
	}
	return nil
}

func pairMatches(key string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == key {
			return true
		}
	}
	return false
}

func (s *Simulation) ljForce() (*engine.LJPair, error) {
	for _, f := range s.Forces() {
		if lj, ok := f.(*engine.LJPair); ok {
			return lj, nil
		}
	}
	return nil, ErrNoLJForce
}

// SaveRestart writes the current configuration as a snapshot file.
func (s *Simulation) SaveRestart(path string) error {
	return s.state.Snapshot().WriteFile(path)
}

// SaveForces writes the force list as a YAML document, one entry per
// force term with its kind and parameters.
func (s *Simulation) SaveForces(path string) error {
	type entry struct {
		Kind string `yaml:"kind"`
		Spec any    `yaml:"spec"`
	}
	list := make([]entry, 0, len(s.Forces()))
	for _, f := range s.Forces() {
		list = append(list, entry{Kind: f.Kind(), Spec: f})
	}
	data, err := yaml.Marshal(list)
	if err != nil {
		return fmt.Errorf("sim: marshal forces: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
