package sim

import "errors"

// Domain errors for run orchestration.
var (
	// ErrNoIntegrator indicates a method query before any run function
	// created the integrator.
	ErrNoIntegrator = errors.New("sim: no integrator or method set yet; it is created by the first run call")

	// ErrNoVolumeTarget indicates a volume-update run with neither a final
	// box nor a final density.
	ErrNoVolumeTarget = errors.New("sim: must provide either final box lengths or final density")

	// ErrBothVolumeTargets indicates a volume-update run with conflicting
	// targets.
	ErrBothVolumeTargets = errors.New("sim: cannot provide both final box lengths and final density")

	// ErrForceNotFound indicates a remove of a force that is not attached.
	ErrForceNotFound = errors.New("sim: force not in force list")

	// ErrNoWalls indicates a wall removal on an axis without walls.
	ErrNoWalls = errors.New("sim: no walls registered on axis")

	// ErrNoLJForce indicates a pair-parameter adjustment with no LJ pair
	// force in the force list.
	ErrNoLJForce = errors.New("sim: no Lennard-Jones pair force in force list")
)
