package sim

import "github.com/softmatterlab/mdrun/internal/engine"

// AddWalls places a pair of opposing LJ walls at the box boundary along
// the given axis, with normals pointing into the box. Existing walls on
// the axis are replaced. Parameters are kept per axis so walls can be
// removed or refreshed independently.
func (s *Simulation) AddWalls(axis engine.Axis, epsilon, sigma, rCut, rExtrap float64) error {
	if _, ok := s.wallForces[axis]; ok {
		if err := s.RemoveWalls(axis); err != nil {
			return err
		}
	}
	params := engine.WallParams{Epsilon: epsilon, Sigma: sigma, RCut: rCut, RExtrap: rExtrap}
	force := engine.NewLJWall(s.wallPlanes(axis), params)
	s.AddForce(force)
	s.wallForces[axis] = wallEntry{force: force, params: params}
	return nil
}

// RemoveWalls detaches the wall pair on the given axis, restoring the
// force list to its state before AddWalls.
func (s *Simulation) RemoveWalls(axis engine.Axis) error {
	entry, ok := s.wallForces[axis]
	if !ok {
		return ErrNoWalls
	}
	if err := s.RemoveForce(entry.force); err != nil {
		return err
	}
	delete(s.wallForces, axis)
	return nil
}

// WallAxes lists the axes that currently have walls.
func (s *Simulation) WallAxes() []engine.Axis {
	axes := make([]engine.Axis, 0, len(s.wallForces))
	for a := range s.wallForces {
		axes = append(axes, a)
	}
	return axes
}

// wallPlanes builds the two opposing boundary planes for an axis at the
// current box size.
func (s *Simulation) wallPlanes(axis engine.Axis) []engine.Plane {
	half := axis.Vec()
	lengths := s.state.Box.Lengths()
	half = engine.Vec3{
		X: half.X * lengths[0] / 2,
		Y: half.Y * lengths[1] / 2,
		Z: half.Z * lengths[2] / 2,
	}
	inward := axis.Vec().Scale(-1)
	return []engine.Plane{
		{Origin: half, Normal: inward},
		{Origin: half.Scale(-1), Normal: inward.Scale(-1)},
	}
}

// refreshWalls recomputes wall plane origins from the current box; it is
// driven by an updater during box resizing.
func (s *Simulation) refreshWalls() {
	for axis, entry := range s.wallForces {
		entry.force.Walls = s.wallPlanes(axis)
	}
}

// wallUpdater keeps registered walls pinned to the box boundary while the
// box is being resized.
type wallUpdater struct {
	sim *Simulation
}

func (w *wallUpdater) Update(*engine.State) {
	w.sim.refreshWalls()
}
