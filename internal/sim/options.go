package sim

import "log/slog"

// Defaults for Options fields left zero.
const (
	DefaultDt        = 0.0001
	DefaultSeed      = 42
	DefaultTrajWrite = 10000
	DefaultLogWrite  = 1000
	DefaultTrajFile  = "trajectory.jsonl"
	DefaultLogFile   = "thermo.csv"
)

// Options configure a Simulation. The zero value is usable; empty fields
// fall back to the defaults above.
type Options struct {
	// Dt is the reduced integration timestep.
	Dt float64

	// Seed feeds velocity randomization and the Langevin thermostat.
	Seed int64

	// TrajWrite is the period, in steps, for trajectory frames.
	TrajWrite uint64

	// TrajFile is the trajectory output path. Empty disables it when
	// DisableOutput is set.
	TrajFile string

	// LogWrite is the period, in steps, for thermodynamic log rows.
	LogWrite uint64

	// LogFile is the thermodynamic log path.
	LogFile string

	// References maps "length", "mass" and "energy" to "value unit"
	// strings. Either all three or none must be given.
	References map[string]string

	// DisableOutput skips attaching the trajectory and log writers; used
	// by tests and by callers that register their own writers.
	DisableOutput bool

	// Quiet suppresses the console status line during runs. Set it when
	// another surface owns the terminal.
	Quiet bool

	// Logger receives warnings about reduced-unit fallbacks. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

func (o *Options) setDefaults() {
	if o.Dt == 0 {
		o.Dt = DefaultDt
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.TrajWrite == 0 {
		o.TrajWrite = DefaultTrajWrite
	}
	if o.TrajFile == "" {
		o.TrajFile = DefaultTrajFile
	}
	if o.LogWrite == 0 {
		o.LogWrite = DefaultLogWrite
	}
	if o.LogFile == "" {
		o.LogFile = DefaultLogFile
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}
