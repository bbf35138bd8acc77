// Package protocol builds simulations from configuration and drives
// scripted multi-stage workflows (relax, shrink, equilibrate, ...).
package protocol

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/softmatterlab/mdrun/internal/config"
	"github.com/softmatterlab/mdrun/internal/engine"
	"github.com/softmatterlab/mdrun/internal/sim"
	"github.com/softmatterlab/mdrun/internal/units"
)

// Scenario is a scripted sequence of ensemble stages applied to one
// simulation context.
type Scenario struct {
	Name        string                  `yaml:"name"`
	Description string                  `yaml:"description"`
	Stages      []config.EnsembleConfig `yaml:"stages"`
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if len(sc.Stages) == 0 {
		return nil, fmt.Errorf("protocol: scenario %q has no stages", sc.Name)
	}
	return &sc, nil
}

// BuildForces constructs the pair forces from a field config.
func BuildForces(field config.FieldConfig) []engine.Force {
	if len(field.Pairs) == 0 {
		return nil
	}
	rCut := field.RCut
	if rCut == 0 {
		rCut = 2.5
	}
	lj := engine.NewLJPair(rCut)
	for _, p := range field.Pairs {
		lj.SetParams(p.TypeA, p.TypeB, p.Epsilon, p.Sigma)
	}
	return []engine.Force{lj}
}

// BuildSimulation assembles a Simulation from a run config: snapshot,
// forces, walls, references and output options. quiet suppresses the
// console status line for callers that own the terminal.
func BuildSimulation(cfg *config.Config, quiet bool) (*sim.Simulation, error) {
	s, err := sim.NewFromFile(cfg.Snapshot, BuildForces(cfg.Forces), sim.Options{
		Dt:         cfg.Dt,
		Seed:       cfg.Seed,
		TrajWrite:  cfg.TrajWrite,
		TrajFile:   cfg.TrajFile,
		LogWrite:   cfg.LogWrite,
		LogFile:    cfg.LogFile,
		References: cfg.References,
		Quiet:      quiet,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range cfg.Forces.Walls {
		axis, err := ParseAxis(w.Axis)
		if err != nil {
			s.Close()
			return nil, err
		}
		if err := s.AddWalls(axis, w.Epsilon, w.Sigma, w.RCut, w.RExtrap); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// ParseAxis maps "x", "y" or "z" to a wall axis key.
func ParseAxis(name string) (engine.Axis, error) {
	switch name {
	case "x":
		return engine.AxisX, nil
	case "y":
		return engine.AxisY, nil
	case "z":
		return engine.AxisZ, nil
	}
	return engine.Axis{}, fmt.Errorf("protocol: bad axis %q", name)
}

// RunStage executes one ensemble stage on the simulation.
func RunStage(ctx context.Context, s *sim.Simulation, stage config.EnsembleConfig) error {
	kT := kTVariant(s, stage)
	switch stage.Kind {
	case "nvt":
		return s.RunNVT(ctx, sim.NVTOpts{
			Steps: stage.Steps, KT: kT, TauKT: stage.TauKT,
			Thermalize: stage.Thermalize, WriteAtStart: true,
		})
	case "npt":
		return s.RunNPT(ctx, sim.NPTOpts{
			Steps: stage.Steps, KT: kT,
			Pressure: engine.Constant(stage.Pressure),
			TauKT:    stage.TauKT, TauPressure: stage.TauPressure,
			Thermalize: stage.Thermalize, WriteAtStart: true,
		})
	case "nve":
		return s.RunNVE(ctx, sim.NVEOpts{Steps: stage.Steps, WriteAtStart: true})
	case "langevin":
		return s.RunLangevin(ctx, sim.LangevinOpts{
			Steps: stage.Steps, KT: kT, Gamma: stage.Gamma,
			Thermalize: stage.Thermalize, WriteAtStart: true,
		})
	case "relax":
		return s.RunDisplacementCap(ctx, sim.DisplacementCapOpts{
			Steps: stage.Steps, MaxDisplacement: stage.MaxDisplacement,
			WriteAtStart: true,
		})
	case "shrink":
		opts := sim.UpdateVolumeOpts{
			Steps: stage.Steps, Period: stage.Period,
			KT: kT, TauKT: stage.TauKT,
			Thermalize: stage.Thermalize, WriteAtStart: true,
		}
		if n := len(stage.FinalBoxLengths); n != 0 && n != 3 {
			return fmt.Errorf("protocol: final_box_lengths needs 3 elements, got %d", n)
		}
		if len(stage.FinalBoxLengths) == 3 {
			box := [3]float64{stage.FinalBoxLengths[0], stage.FinalBoxLengths[1], stage.FinalBoxLengths[2]}
			opts.FinalBoxLengths = &box
		}
		if stage.FinalDensity != "" {
			q, err := units.Parse(stage.FinalDensity)
			if err != nil {
				return err
			}
			opts.FinalDensity = &q
		}
		return s.RunUpdateVolume(ctx, opts)
	}
	return fmt.Errorf("protocol: unknown ensemble kind %q", stage.Kind)
}

func kTVariant(s *sim.Simulation, stage config.EnsembleConfig) engine.Variant {
	if stage.KTFinal != 0 && stage.KTFinal != stage.KT {
		return s.TemperatureRamp(stage.Steps, stage.KT, stage.KTFinal)
	}
	return engine.Constant(stage.KT)
}

// RunScenario runs every stage in order, stopping on the first error.
func RunScenario(ctx context.Context, s *sim.Simulation, sc *Scenario) error {
	for i, stage := range sc.Stages {
		fmt.Printf("stage %d/%d: %s (%d steps)\n", i+1, len(sc.Stages), stage.Kind, stage.Steps)
		if err := RunStage(ctx, s, stage); err != nil {
			return fmt.Errorf("stage %d (%s): %w", i+1, stage.Kind, err)
		}
	}
	return nil
}
