package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt        = 0.0001
	DefaultSeed      = 42
	DefaultTrajWrite = 10000
	DefaultLogWrite  = 1000
	DefaultKT        = 1.0
	DefaultTauKT     = 0.1
	DefaultSteps     = 100000
)

// Config describes one simulation run: where the initial configuration
// comes from, the force field, reference units, output cadence, and the
// ensemble parameters.
type Config struct {
	Snapshot  string  `yaml:"snapshot"`
	Dt        float64 `yaml:"dt"`
	Seed      int64   `yaml:"seed"`
	TrajWrite uint64  `yaml:"traj_write"`
	TrajFile  string  `yaml:"traj_file"`
	LogWrite  uint64  `yaml:"log_write"`
	LogFile   string  `yaml:"log_file"`

	// References maps length/mass/energy to "value unit" strings.
	References map[string]string `yaml:"references"`

	Forces FieldConfig `yaml:"forces"`

	Ensemble EnsembleConfig `yaml:"ensemble"`
}

// FieldConfig describes the force field.
type FieldConfig struct {
	RCut  float64          `yaml:"r_cut"`
	Pairs []PairConfig     `yaml:"pairs"`
	Walls []WallAxisConfig `yaml:"walls"`
}

// PairConfig is one LJ type-pair entry.
type PairConfig struct {
	TypeA   string  `yaml:"type_a"`
	TypeB   string  `yaml:"type_b"`
	Epsilon float64 `yaml:"epsilon"`
	Sigma   float64 `yaml:"sigma"`
}

// WallAxisConfig places paired walls on an axis ("x", "y" or "z").
type WallAxisConfig struct {
	Axis    string  `yaml:"axis"`
	Epsilon float64 `yaml:"epsilon"`
	Sigma   float64 `yaml:"sigma"`
	RCut    float64 `yaml:"r_cut"`
	RExtrap float64 `yaml:"r_extrap"`
}

// EnsembleConfig selects and parameterizes a runner. Which fields apply
// depends on Kind: nvt, npt, nve, langevin, relax, shrink.
type EnsembleConfig struct {
	Kind  string `yaml:"kind"`
	Steps uint64 `yaml:"steps"`

	KT      float64 `yaml:"kt"`
	KTFinal float64 `yaml:"kt_final"` // non-zero enables a temperature ramp
	TauKT   float64 `yaml:"tau_kt"`

	Pressure    float64 `yaml:"pressure"`
	TauPressure float64 `yaml:"tau_pressure"`

	Gamma float64 `yaml:"gamma"` // langevin friction

	MaxDisplacement float64 `yaml:"max_displacement"` // relax cap

	// shrink targets: set exactly one
	FinalBoxLengths []float64 `yaml:"final_box_lengths"`
	FinalDensity    string    `yaml:"final_density"` // "value unit", e.g. "1.1 g/cm^3"
	Period          uint64    `yaml:"period"`

	Thermalize bool `yaml:"thermalize"`
}

func DefaultConfig() *Config {
	return &Config{
		Dt:        DefaultDt,
		Seed:      DefaultSeed,
		TrajWrite: DefaultTrajWrite,
		LogWrite:  DefaultLogWrite,
		Forces:    FieldConfig{RCut: 2.5},
		Ensemble: EnsembleConfig{
			Kind:       "nvt",
			Steps:      DefaultSteps,
			KT:         DefaultKT,
			TauKT:      DefaultTauKT,
			Thermalize: true,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) Validate() error {
	switch c.Ensemble.Kind {
	case "nvt", "npt", "nve", "langevin", "relax", "shrink":
	default:
		return fmt.Errorf("config: unknown ensemble kind %q", c.Ensemble.Kind)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("config: dt must be positive, got %g", c.Dt)
	}
	if c.Ensemble.Steps == 0 {
		return fmt.Errorf("config: ensemble steps must be positive")
	}
	if n := len(c.Ensemble.FinalBoxLengths); n != 0 && n != 3 {
		return fmt.Errorf("config: final_box_lengths needs 3 elements, got %d", n)
	}
	for _, w := range c.Forces.Walls {
		switch w.Axis {
		case "x", "y", "z":
		default:
			return fmt.Errorf("config: wall axis must be x, y or z, got %q", w.Axis)
		}
	}
	return nil
}
