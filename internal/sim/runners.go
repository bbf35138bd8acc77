package sim

import (
	"context"
	"fmt"

	"github.com/softmatterlab/mdrun/internal/engine"
	"github.com/softmatterlab/mdrun/internal/units"
)

// setIntegratorMethod lazily creates the integrator on first use, seeding
// it with the current force list, or swaps the method on the existing one.
func (s *Simulation) setIntegratorMethod(m engine.Method) {
	if s.integrator == nil {
		s.integrator = engine.NewIntegrator(s.opts.Dt, s.forces)
	}
	s.integrator.SetMethod(m)
}

// thermalize assigns random velocities at the variant's current value.
func (s *Simulation) thermalize(kT engine.Variant) {
	s.state.Thermalize(kT.Value(s.state.Step), s.rng)
}

// run executes nSteps of the integrator, firing scheduled updaters and
// writers after every step. When writeAtStart is set, operations whose
// trigger matches the current step fire before the first step.
func (s *Simulation) run(ctx context.Context, nSteps uint64, writeAtStart bool) error {
	if writeAtStart {
		updated, err := s.ops.Fire(s.state)
		if err != nil {
			return err
		}
		if updated {
			s.integrator.Invalidate()
		}
	}
	for i := uint64(0); i < nSteps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.integrator.Step(s.state)
		updated, err := s.ops.Fire(s.state)
		if err != nil {
			return err
		}
		if updated {
			s.integrator.Invalidate()
		}
	}
	return nil
}

// withStatus attaches a transient console status reporter for the run and
// detaches it afterwards.
func (s *Simulation) withStatus(ctx context.Context, nSteps uint64, writeAtStart bool) error {
	if s.opts.Quiet {
		return s.run(ctx, nSteps, writeAtStart)
	}
	period := s.statusFreq
	if period == 0 {
		period = nSteps
	}
	reporter := newStatusReporter(s, nSteps)
	s.ops.AddUpdater(engine.Periodic{Period: period}, reporter)
	defer s.ops.RemoveUpdater(reporter)
	return s.run(ctx, nSteps, writeAtStart)
}

// NVTOpts configure a constant volume, constant temperature run.
type NVTOpts struct {
	Steps        uint64
	KT           engine.Variant
	TauKT        float64
	Thermalize   bool
	WriteAtStart bool
}

// RunNVT runs the simulation at fixed volume and temperature.
func (s *Simulation) RunNVT(ctx context.Context, o NVTOpts) error {
	s.setIntegratorMethod(&engine.NVT{KT: o.KT, Tau: o.TauKT})
	if o.Thermalize {
		s.thermalize(o.KT)
	}
	return s.withStatus(ctx, o.Steps, o.WriteAtStart)
}

// NPTOpts configure a constant pressure, constant temperature run.
type NPTOpts struct {
	Steps        uint64
	KT           engine.Variant
	Pressure     engine.Variant
	TauKT        float64
	TauPressure  float64
	Thermalize   bool
	WriteAtStart bool
}

// RunNPT runs the simulation at fixed pressure and temperature.
func (s *Simulation) RunNPT(ctx context.Context, o NPTOpts) error {
	s.setIntegratorMethod(&engine.NPT{
		KT:       o.KT,
		Pressure: o.Pressure,
		Tau:      o.TauKT,
		TauS:     o.TauPressure,
	})
	if o.Thermalize {
		s.thermalize(o.KT)
	}
	return s.withStatus(ctx, o.Steps, o.WriteAtStart)
}

// NVEOpts configure a constant energy run.
type NVEOpts struct {
	Steps        uint64
	WriteAtStart bool
}

// RunNVE runs the simulation at constant energy.
func (s *Simulation) RunNVE(ctx context.Context, o NVEOpts) error {
	s.setIntegratorMethod(engine.NVE{})
	return s.withStatus(ctx, o.Steps, o.WriteAtStart)
}

// LangevinOpts configure a Langevin dynamics run.
type LangevinOpts struct {
	Steps          uint64
	KT             engine.Variant
	Gamma          float64
	TallyReservoir bool
	Thermalize     bool
	WriteAtStart   bool
}

// RunLangevin runs the simulation with a Langevin thermostat.
func (s *Simulation) RunLangevin(ctx context.Context, o LangevinOpts) error {
	s.setIntegratorMethod(&engine.Langevin{
		KT:             o.KT,
		Gamma:          o.Gamma,
		Rng:            s.rng,
		TallyReservoir: o.TallyReservoir,
	})
	if o.Thermalize {
		s.thermalize(o.KT)
	}
	return s.withStatus(ctx, o.Steps, o.WriteAtStart)
}

// DisplacementCapOpts configure a capped-displacement relaxation run.
type DisplacementCapOpts struct {
	Steps uint64

	// MaxDisplacement caps how far any particle moves in one step.
	// Defaults to 1e-3 reduced length units.
	MaxDisplacement float64
	WriteAtStart    bool
}

// RunDisplacementCap relaxes the system with NVE integration whose
// per-step displacement is capped; useful for configurations with
// overlapping particles before a regular run.
func (s *Simulation) RunDisplacementCap(ctx context.Context, o DisplacementCapOpts) error {
	if o.MaxDisplacement == 0 {
		o.MaxDisplacement = 1e-3
	}
	s.setIntegratorMethod(&engine.DisplacementCapped{Max: o.MaxDisplacement})
	return s.withStatus(ctx, o.Steps, o.WriteAtStart)
}

// UpdateVolumeOpts configure an NVT run that ramps the box to a target.
// Exactly one of FinalBoxLengths and FinalDensity must be set; the
// density path needs complete reference units.
type UpdateVolumeOpts struct {
	Steps  uint64
	Period uint64
	KT     engine.Variant
	TauKT  float64

	FinalBoxLengths *[3]float64
	FinalDensity    *units.Quantity

	Thermalize   bool
	WriteAtStart bool
}

// RunUpdateVolume shrinks or expands the box linearly over the run while
// holding temperature, keeping any registered walls pinned to the moving
// boundary.
func (s *Simulation) RunUpdateVolume(ctx context.Context, o UpdateVolumeOpts) error {
	if o.FinalBoxLengths == nil && o.FinalDensity == nil {
		return ErrNoVolumeTarget
	}
	if o.FinalBoxLengths != nil && o.FinalDensity != nil {
		return ErrBothVolumeTargets
	}
	if o.Period == 0 {
		return fmt.Errorf("sim: volume update period must be positive")
	}

	var finalBox engine.Box
	if o.FinalBoxLengths != nil {
		l := *o.FinalBoxLengths
		finalBox = engine.Box{Lx: l[0], Ly: l[1], Lz: l[2]}
	} else {
		edge, err := s.edgeFromDensity(*o.FinalDensity)
		if err != nil {
			return err
		}
		finalBox = engine.Box{Lx: edge, Ly: edge, Lz: edge}
	}

	resizeTrigger := engine.Periodic{Period: o.Period}
	resizer := &engine.BoxResize{
		Box1: s.state.Box,
		Box2: finalBox,
		Variant: engine.Ramp{
			A: 0, B: 1,
			TStart: s.state.Step,
			TRamp:  o.Steps,
		},
	}
	s.ops.AddUpdater(resizeTrigger, resizer)
	defer s.ops.RemoveUpdater(resizer)

	var walls *wallUpdater
	if len(s.wallForces) > 0 {
		walls = &wallUpdater{sim: s}
		s.ops.AddUpdater(resizeTrigger, walls)
		defer s.ops.RemoveUpdater(walls)
	}

	s.setIntegratorMethod(&engine.NVT{KT: o.KT, Tau: o.TauKT})
	if o.Thermalize {
		s.thermalize(o.KT)
	}
	// one extra step so the final resize trigger fires
	return s.withStatus(ctx, o.Steps+1, o.WriteAtStart)
}

// edgeFromDensity converts a target density to a reduced cubic box edge
// using the reference units.
func (s *Simulation) edgeFromDensity(density units.Quantity) (float64, error) {
	if !s.refs.Complete() {
		return 0, &units.ReferenceError{
			Msg: "missing simulation units; provide references for mass, length and energy",
		}
	}
	edge, err := units.EdgeLength(s.Mass(), density)
	if err != nil {
		return 0, err
	}
	refLen, _ := s.refs.Length()
	edgeRef, err := edge.To(refLen.Unit.Symbol)
	if err != nil {
		return 0, err
	}
	return edgeRef.Value / refLen.Value, nil
}

// TemperatureRamp builds a kT schedule that ramps linearly over nSteps
// starting at the current timestep.
func (s *Simulation) TemperatureRamp(nSteps uint64, kTStart, kTFinal float64) engine.Ramp {
	return engine.Ramp{A: kTStart, B: kTFinal, TStart: s.state.Step, TRamp: nSteps}
}
