// Package engine is the particle engine behind the run orchestration layer:
// simulation state, force terms, integrator methods, periodic triggers, and
// the updater/writer registry. The orchestration shim in internal/sim only
// talks to the surface defined here.
package engine

import "math"

type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(f float64) Vec3 { return Vec3{v.X * f, v.Y * f, v.Z * f} }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Norm() float64        { return math.Sqrt(v.Dot(v)) }

func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n == 0 {
		return Vec3{}
	}
	return v.Scale(1 / n)
}

// Box is an orthorhombic simulation box centered on the origin.
type Box struct {
	Lx float64 `json:"lx" yaml:"lx"`
	Ly float64 `json:"ly" yaml:"ly"`
	Lz float64 `json:"lz" yaml:"lz"`
}

func (b Box) Volume() float64 { return b.Lx * b.Ly * b.Lz }

func (b Box) Lengths() [3]float64 { return [3]float64{b.Lx, b.Ly, b.Lz} }

// Axis is a 3-axis direction key, e.g. {1,0,0} for the x axis. It is used
// to index the wall registry.
type Axis [3]int

var (
	AxisX = Axis{1, 0, 0}
	AxisY = Axis{0, 1, 0}
	AxisZ = Axis{0, 0, 1}
)

func (a Axis) Vec() Vec3 {
	return Vec3{float64(a[0]), float64(a[1]), float64(a[2])}
}
