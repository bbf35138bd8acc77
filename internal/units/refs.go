package units

import (
	"fmt"
	"math"
)

// Reference keys accepted by RefValues.SetAll, in validation order.
var refKeys = []string{"length", "mass", "energy"}

// RefValues stores the reference length, mass and energy of a reduced-unit
// system. All three must be present before conversions to physical units
// are meaningful; accessors report whether each value has been set.
type RefValues struct {
	length *Quantity
	mass   *Quantity
	energy *Quantity
}

func (r *RefValues) SetLength(q Quantity) error {
	if q.Unit.Dim != Length {
		return fmt.Errorf("%w: reference length needs a length unit, got %s", ErrDimension, q.Unit.Symbol)
	}
	r.length = &q
	return nil
}

func (r *RefValues) SetMass(q Quantity) error {
	if q.Unit.Dim != Mass {
		return fmt.Errorf("%w: reference mass needs a mass unit, got %s", ErrDimension, q.Unit.Symbol)
	}
	r.mass = &q
	return nil
}

func (r *RefValues) SetEnergy(q Quantity) error {
	if q.Unit.Dim != Energy {
		return fmt.Errorf("%w: reference energy needs an energy unit, got %s", ErrDimension, q.Unit.Symbol)
	}
	r.energy = &q
	return nil
}

func (r *RefValues) Length() (Quantity, bool) {
	if r.length == nil {
		return Quantity{}, false
	}
	return *r.length, true
}

func (r *RefValues) Mass() (Quantity, bool) {
	if r.mass == nil {
		return Quantity{}, false
	}
	return *r.mass, true
}

func (r *RefValues) Energy() (Quantity, bool) {
	if r.energy == nil {
		return Quantity{}, false
	}
	return *r.energy, true
}

// Complete reports whether all three references are set.
func (r *RefValues) Complete() bool {
	return r.length != nil && r.mass != nil && r.energy != nil
}

// SetAll assigns all three references at once. The map must contain the
// keys "length", "mass" and "energy"; a missing key is an error naming it.
func (r *RefValues) SetAll(values map[string]Quantity) error {
	for _, k := range refKeys {
		if _, ok := values[k]; !ok {
			return fmt.Errorf("%w: missing reference for %q", ErrMissingReference, k)
		}
	}
	if err := r.SetLength(values["length"]); err != nil {
		return err
	}
	if err := r.SetMass(values["mass"]); err != nil {
		return err
	}
	return r.SetEnergy(values["energy"])
}

// SetAllStrings is SetAll for "value unit" strings, e.g. {"length": "1 nm"}.
func (r *RefValues) SetAllStrings(values map[string]string) error {
	parsed := make(map[string]Quantity, len(values))
	for k, s := range values {
		q, err := Parse(s)
		if err != nil {
			return fmt.Errorf("reference %q: %w", k, err)
		}
		parsed[k] = q
	}
	return r.SetAll(parsed)
}

// Map returns the references that have been set, keyed by name.
func (r *RefValues) Map() map[string]Quantity {
	m := make(map[string]Quantity, 3)
	if r.length != nil {
		m["length"] = *r.length
	}
	if r.mass != nil {
		m["mass"] = *r.mass
	}
	if r.energy != nil {
		m["energy"] = *r.energy
	}
	return m
}

// RealTimestep converts a reduced timestep to seconds via the reduced time
// unit tau = sqrt(m l^2 / E). Missing references fall back to 1 kg, 1 m and
// 1 J respectively; the second return reports whether all references were
// available.
func (r *RefValues) RealTimestep(dt float64) (Quantity, bool) {
	m, l, e := 1.0, 1.0, 1.0
	complete := true
	if r.mass != nil {
		m = r.mass.SI()
	} else {
		complete = false
	}
	if r.length != nil {
		l = r.length.SI()
	} else {
		complete = false
	}
	if r.energy != nil {
		e = r.energy.SI()
	} else {
		complete = false
	}
	tau := math.Sqrt(m * l * l / e)
	q, _ := New(dt*tau, "s")
	return q, complete
}
