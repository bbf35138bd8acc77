package engine

// Plane is a planar wall, defined by a point on the plane and a normal
// pointing into the region particles occupy.
type Plane struct {
	Origin Vec3 `yaml:"origin"`
	Normal Vec3 `yaml:"normal"`
}

// WallParams configure the 12-6 wall interaction. Below RExtrap the force
// is linearly extrapolated so overlapping particles are pushed off the
// wall instead of blowing up.
type WallParams struct {
	Epsilon float64 `yaml:"epsilon"`
	Sigma   float64 `yaml:"sigma"`
	RCut    float64 `yaml:"r_cut"`
	RExtrap float64 `yaml:"r_extrap"`
}

// LJWall applies a Lennard-Jones potential between every particle and a
// set of planar walls. Walls are external: they contribute energy but no
// pair virial.
type LJWall struct {
	Walls  []Plane    `yaml:"walls"`
	Params WallParams `yaml:"params"`
}

func NewLJWall(walls []Plane, params WallParams) *LJWall {
	normalized := make([]Plane, len(walls))
	for i, w := range walls {
		normalized[i] = Plane{Origin: w.Origin, Normal: w.Normal.Normalize()}
	}
	return &LJWall{Walls: normalized, Params: params}
}

func (w *LJWall) Kind() string { return "lj_wall" }

func (w *LJWall) Evaluate(st *State, forces []Vec3) (float64, float64) {
	pe := 0.0
	for i, p := range st.Positions {
		for _, wall := range w.Walls {
			r := p.Sub(wall.Origin).Dot(wall.Normal)
			if r >= w.Params.RCut {
				continue
			}
			e, f := w.point(r)
			pe += e
			forces[i] = forces[i].Add(wall.Normal.Scale(f))
		}
	}
	return pe, 0
}

// point evaluates energy and the force magnitude along the wall normal at
// distance r.
func (w *LJWall) point(r float64) (float64, float64) {
	rEval := r
	if w.Params.RExtrap > 0 && r < w.Params.RExtrap {
		rEval = w.Params.RExtrap
	} else if r <= 0 {
		rEval = 1e-3 * w.Params.Sigma
	}
	s := w.Params.Sigma / rEval
	s6 := s * s * s * s * s * s
	s12 := s6 * s6
	e := 4 * w.Params.Epsilon * (s12 - s6)
	f := 24 * w.Params.Epsilon * (2*s12 - s6) / rEval
	if w.Params.RExtrap > 0 && r < w.Params.RExtrap {
		// linear continuation: constant force, energy extended linearly
		e += f * (w.Params.RExtrap - r)
	}
	return e, f
}
