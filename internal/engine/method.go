package engine

import (
	"math"
	"math/rand"
)

// Thermo carries the energies the integrator measured on the step, for
// methods that need them (barostat pressure, reservoir tracking).
type Thermo struct {
	KineticEnergy   float64
	PotentialEnergy float64
	Virial          float64
}

// Method is an integrator method: it finalizes each velocity-Verlet step,
// applying whatever thermostat or barostat the ensemble calls for.
type Method interface {
	Name() string
	Finalize(st *State, dt float64, th Thermo)
}

// displacementLimiter is implemented by methods that cap the per-step
// particle displacement; the integrator honors it during the drift.
type displacementLimiter interface {
	MaxDisplacement() float64
}

// NVE is plain velocity-Verlet with no thermostat.
type NVE struct{}

func (NVE) Name() string                  { return "nve" }
func (NVE) Finalize(*State, float64, Thermo) {}

// NVT holds the kinetic temperature at the set point with a Berendsen
// weak-coupling thermostat of time constant Tau.
type NVT struct {
	KT  Variant
	Tau float64
}

func (m *NVT) Name() string { return "nvt" }

func (m *NVT) Finalize(st *State, dt float64, _ Thermo) {
	rescale(st, dt, m.KT, m.Tau)
}

func rescale(st *State, dt float64, kt Variant, tau float64) {
	cur := st.KineticTemperature()
	if cur <= 0 || tau <= 0 {
		return
	}
	target := kt.Value(st.Step)
	arg := 1 + dt/tau*(target/cur-1)
	if arg <= 0 {
		return
	}
	f := math.Sqrt(arg)
	for i := range st.Velocities {
		st.Velocities[i] = st.Velocities[i].Scale(f)
	}
}

// NPT couples both a Berendsen thermostat and a Berendsen barostat; the
// box is scaled isotropically toward the pressure set point with time
// constant TauS.
type NPT struct {
	KT       Variant
	Pressure Variant
	Tau      float64
	TauS     float64
}

func (m *NPT) Name() string { return "npt" }

func (m *NPT) Finalize(st *State, dt float64, th Thermo) {
	rescale(st, dt, m.KT, m.Tau)
	if m.TauS <= 0 {
		return
	}
	vol := st.Box.Volume()
	if vol <= 0 {
		return
	}
	p := (2*th.KineticEnergy + th.Virial) / (3 * vol)
	target := m.Pressure.Value(st.Step)
	mu := math.Cbrt(1 - dt/m.TauS*(target-p))
	// keep single-step box changes small
	if mu < 0.95 {
		mu = 0.95
	} else if mu > 1.05 {
		mu = 1.05
	}
	st.ScaleTo(Box{Lx: st.Box.Lx * mu, Ly: st.Box.Ly * mu, Lz: st.Box.Lz * mu})
}

// Langevin integrates with a stochastic thermostat: after the Verlet step
// velocities are damped by friction Gamma and kicked by noise consistent
// with the set-point temperature.
type Langevin struct {
	KT    Variant
	Gamma float64
	Rng   *rand.Rand

	// TallyReservoir accumulates the kinetic energy exchanged with the
	// thermal reservoir when enabled.
	TallyReservoir  bool
	ReservoirEnergy float64
}

func (m *Langevin) Name() string { return "langevin" }

func (m *Langevin) Finalize(st *State, dt float64, _ Thermo) {
	if m.Gamma <= 0 {
		return
	}
	kt := m.KT.Value(st.Step)
	c1 := math.Exp(-m.Gamma * dt)
	noise := math.Sqrt((1 - c1*c1) * kt)
	before := 0.0
	if m.TallyReservoir {
		before = st.KineticEnergy()
	}
	for i := range st.Velocities {
		sigma := noise / math.Sqrt(st.Masses[i])
		v := st.Velocities[i]
		st.Velocities[i] = Vec3{
			X: c1*v.X + sigma*m.Rng.NormFloat64(),
			Y: c1*v.Y + sigma*m.Rng.NormFloat64(),
			Z: c1*v.Z + sigma*m.Rng.NormFloat64(),
		}
	}
	if m.TallyReservoir {
		m.ReservoirEnergy += st.KineticEnergy() - before
	}
}

// DisplacementCapped is NVE with a cap on how far any particle may move in
// one step. It is meant for relaxing configurations with overlapping
// particles before handing off to another method.
type DisplacementCapped struct {
	Max float64
}

func (m *DisplacementCapped) Name() string                  { return "displacement_capped" }
func (m *DisplacementCapped) Finalize(*State, float64, Thermo) {}
func (m *DisplacementCapped) MaxDisplacement() float64      { return m.Max }
