// Package units handles the bookkeeping between reduced simulation units
// and physical quantities. A Quantity pairs a value with a named unit;
// RefValues stores the reference length, mass and energy that scale the
// reduced system back to the real world.
package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Dimension int

const (
	Length Dimension = iota
	Mass
	Energy
	Time
	Density
	Volume
	Dimensionless
)

func (d Dimension) String() string {
	switch d {
	case Length:
		return "length"
	case Mass:
		return "mass"
	case Energy:
		return "energy"
	case Time:
		return "time"
	case Density:
		return "density"
	case Volume:
		return "volume"
	case Dimensionless:
		return "dimensionless"
	}
	return "unknown"
}

// Unit is a named unit with a conversion factor to its SI base.
type Unit struct {
	Symbol string
	Dim    Dimension
	SI     float64
}

const avogadro = 6.02214076e23

var unitTable = map[string]Unit{
	// length (SI base: m)
	"m":        {"m", Length, 1},
	"cm":       {"cm", Length, 1e-2},
	"mm":       {"mm", Length, 1e-3},
	"um":       {"um", Length, 1e-6},
	"nm":       {"nm", Length, 1e-9},
	"angstrom": {"angstrom", Length, 1e-10},
	"A":        {"angstrom", Length, 1e-10},

	// mass (SI base: kg)
	"kg":  {"kg", Mass, 1},
	"g":   {"g", Mass, 1e-3},
	"amu": {"amu", Mass, 1.66053906892e-27},

	// energy (SI base: J)
	"J":        {"J", Energy, 1},
	"kJ":       {"kJ", Energy, 1e3},
	"kJ/mol":   {"kJ/mol", Energy, 1e3 / avogadro},
	"kcal/mol": {"kcal/mol", Energy, 4184.0 / avogadro},
	"eV":       {"eV", Energy, 1.602176634e-19},

	// time (SI base: s)
	"s":  {"s", Time, 1},
	"ns": {"ns", Time, 1e-9},
	"ps": {"ps", Time, 1e-12},
	"fs": {"fs", Time, 1e-15},

	// density (SI base: kg/m^3)
	"kg/m^3": {"kg/m^3", Density, 1},
	"g/cm^3": {"g/cm^3", Density, 1e3},
	"g/cm3":  {"g/cm^3", Density, 1e3},

	// volume (SI base: m^3)
	"m^3":        {"m^3", Volume, 1},
	"cm^3":       {"cm^3", Volume, 1e-6},
	"nm^3":       {"nm^3", Volume, 1e-27},
	"angstrom^3": {"angstrom^3", Volume, 1e-30},

	// reduced (unit-less) quantities
	"reduced": {"reduced", Dimensionless, 1},
}

// Reduced wraps a raw reduced-unit value in a dimensionless Quantity. It
// is the fallback when reference units needed for a physical conversion
// are missing.
func Reduced(v float64) Quantity {
	return Quantity{Value: v, Unit: unitTable["reduced"]}
}

// Cube turns a length quantity into the volume of a cube with that edge.
func Cube(q Quantity) (Quantity, error) {
	if q.Unit.Dim != Length {
		return Quantity{}, fmt.Errorf("%w: Cube needs a length, got %s", ErrDimension, q.Unit.Dim)
	}
	if cu, ok := unitTable[q.Unit.Symbol+"^3"]; ok {
		return Quantity{Value: q.Value * q.Value * q.Value, Unit: cu}, nil
	}
	si := q.SI()
	return New(si*si*si, "m^3")
}

// Lookup resolves a unit symbol.
func Lookup(symbol string) (Unit, error) {
	u, ok := unitTable[symbol]
	if !ok {
		return Unit{}, fmt.Errorf("%w: %q", ErrUnknownUnit, symbol)
	}
	return u, nil
}

// Quantity is a value tagged with a unit.
type Quantity struct {
	Value float64
	Unit  Unit
}

// New builds a Quantity from a value and unit symbol.
func New(value float64, symbol string) (Quantity, error) {
	u, err := Lookup(symbol)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: value, Unit: u}, nil
}

// Parse reads a quantity from a "value unit" string, e.g. "1.2 nm".
func Parse(s string) (Quantity, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 2 {
		return Quantity{}, fmt.Errorf("units: cannot parse %q, want \"value unit\"", s)
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Quantity{}, fmt.Errorf("units: bad value in %q: %w", s, err)
	}
	return New(v, fields[1])
}

// MustParse is Parse for static literals; it panics on error.
func MustParse(s string) Quantity {
	q, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quantity) String() string {
	return fmt.Sprintf("%g %s", q.Value, q.Unit.Symbol)
}

// SI returns the value converted to the SI base of its dimension.
func (q Quantity) SI() float64 {
	return q.Value * q.Unit.SI
}

// To converts the quantity to another unit of the same dimension.
func (q Quantity) To(symbol string) (Quantity, error) {
	u, err := Lookup(symbol)
	if err != nil {
		return Quantity{}, err
	}
	if u.Dim != q.Unit.Dim {
		return Quantity{}, fmt.Errorf("%w: cannot convert %s to %s",
			ErrDimension, q.Unit.Dim, u.Dim)
	}
	return Quantity{Value: q.SI() / u.SI, Unit: u}, nil
}

// Scale returns the quantity with its value multiplied by f.
func (q Quantity) Scale(f float64) Quantity {
	return Quantity{Value: q.Value * f, Unit: q.Unit}
}

// EdgeLength returns the edge of a cubic box holding the given mass at the
// given density.
func EdgeLength(mass, density Quantity) (Quantity, error) {
	m, err := mass.To("g")
	if err != nil {
		return Quantity{}, err
	}
	rho, err := density.To("g/cm^3")
	if err != nil {
		return Quantity{}, err
	}
	if rho.Value <= 0 {
		return Quantity{}, fmt.Errorf("units: density must be positive, got %g", rho.Value)
	}
	edge := math.Cbrt(m.Value / rho.Value)
	return New(edge, "cm")
}
