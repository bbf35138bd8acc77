package engine

// Variant is a scalar value scheduled over timesteps. Constant values and
// linear ramps cover thermostat set points, barostat set points and box
// interpolation.
type Variant interface {
	Value(step uint64) float64
}

// Constant is a step-independent variant.
type Constant float64

func (c Constant) Value(uint64) float64 { return float64(c) }

// Ramp interpolates linearly from A to B over TRamp steps starting at
// TStart. Before the start it is A, after the ramp it is B.
type Ramp struct {
	A      float64
	B      float64
	TStart uint64
	TRamp  uint64
}

func (r Ramp) Value(step uint64) float64 {
	if step <= r.TStart || r.TRamp == 0 {
		return r.A
	}
	done := step - r.TStart
	if done >= r.TRamp {
		return r.B
	}
	f := float64(done) / float64(r.TRamp)
	return r.A + f*(r.B-r.A)
}
