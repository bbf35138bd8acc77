package engine

import "fmt"

// Integrator advances the state with velocity-Verlet, delegating ensemble
// behavior to its Method. The force list is owned by the caller; AddForce
// and RemoveForce keep the integrator's copy in sync.
type Integrator struct {
	dt     float64
	forces []Force
	method Method

	accel   []Vec3
	fbuf    []Vec3
	forcePE []float64
	pe      float64
	virial  float64
	fresh   bool
}

func NewIntegrator(dt float64, forces []Force) *Integrator {
	return &Integrator{
		dt:     dt,
		forces: append([]Force(nil), forces...),
	}
}

func (in *Integrator) Dt() float64      { return in.dt }
func (in *Integrator) SetDt(dt float64) { in.dt = dt }

func (in *Integrator) Forces() []Force { return in.forces }

func (in *Integrator) AddForce(f Force) {
	in.forces = append(in.forces, f)
	in.fresh = false
}

// RemoveForce detaches a force by identity.
func (in *Integrator) RemoveForce(f Force) error {
	for i, have := range in.forces {
		if have == f {
			in.forces = append(in.forces[:i], in.forces[i+1:]...)
			in.fresh = false
			return nil
		}
	}
	return fmt.Errorf("engine: force %s not attached to integrator", f.Kind())
}

func (in *Integrator) Method() Method { return in.method }

// SetMethod replaces the integrator method. Cached accelerations stay
// valid; only the step finalization changes.
func (in *Integrator) SetMethod(m Method) { in.method = m }

// PotentialEnergy is the total potential energy from the last force
// evaluation.
func (in *Integrator) PotentialEnergy() float64 { return in.pe }

// Virial is the pair virial from the last force evaluation.
func (in *Integrator) Virial() float64 { return in.virial }

// ForceEnergies returns the per-term potential energies from the last
// force evaluation, aligned with Forces().
func (in *Integrator) ForceEnergies() []float64 {
	return append([]float64(nil), in.forcePE...)
}

func (in *Integrator) ensureBuffers(n int) {
	if len(in.accel) != n {
		in.accel = make([]Vec3, n)
		in.fbuf = make([]Vec3, n)
		in.fresh = false
	}
	if len(in.forcePE) != len(in.forces) {
		in.forcePE = make([]float64, len(in.forces))
	}
}

func (in *Integrator) computeForces(st *State) {
	for i := range in.accel {
		in.accel[i] = Vec3{}
	}
	in.pe, in.virial = 0, 0
	for k, f := range in.forces {
		for i := range in.fbuf {
			in.fbuf[i] = Vec3{}
		}
		pe, vir := f.Evaluate(st, in.fbuf)
		in.forcePE[k] = pe
		in.pe += pe
		in.virial += vir
		for i := range in.accel {
			in.accel[i] = in.accel[i].Add(in.fbuf[i])
		}
	}
	for i := range in.accel {
		in.accel[i] = in.accel[i].Scale(1 / st.Masses[i])
	}
}

// Step advances the state by one timestep and increments the step counter.
func (in *Integrator) Step(st *State) {
	if in.method == nil {
		in.method = NVE{}
	}
	in.ensureBuffers(st.N())
	if !in.fresh {
		in.computeForces(st)
	}

	dt := in.dt
	half := 0.5 * dt
	for i := range st.Velocities {
		st.Velocities[i] = st.Velocities[i].Add(in.accel[i].Scale(half))
	}

	maxDisp := 0.0
	if lim, ok := in.method.(displacementLimiter); ok {
		maxDisp = lim.MaxDisplacement()
	}
	for i := range st.Positions {
		dx := st.Velocities[i].Scale(dt)
		if maxDisp > 0 {
			if n := dx.Norm(); n > maxDisp {
				dx = dx.Scale(maxDisp / n)
			}
		}
		st.Positions[i] = st.Positions[i].Add(dx)
	}
	st.Wrap()

	in.computeForces(st)
	for i := range st.Velocities {
		st.Velocities[i] = st.Velocities[i].Add(in.accel[i].Scale(half))
	}

	in.method.Finalize(st, dt, Thermo{
		KineticEnergy:   st.KineticEnergy(),
		PotentialEnergy: in.pe,
		Virial:          in.virial,
	})
	st.Step++
	in.fresh = true
}

// Invalidate forces a fresh force evaluation on the next step. Callers
// that mutate positions or the box outside the integrator should call it.
func (in *Integrator) Invalidate() { in.fresh = false }
