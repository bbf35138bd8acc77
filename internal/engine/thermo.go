package engine

import "fmt"

// Sample is one row of thermodynamic output, in reduced units.
type Sample struct {
	Step               uint64             `json:"step"`
	KineticTemperature float64            `json:"kinetic_temperature"`
	KineticEnergy      float64            `json:"kinetic_energy"`
	PotentialEnergy    float64            `json:"potential_energy"`
	Volume             float64            `json:"volume"`
	Pressure           float64            `json:"pressure"`
	Density            float64            `json:"density"`
	TPS                float64            `json:"tps"`
	ForceEnergies      map[string]float64 `json:"force_energies,omitempty"`
}

// ComputeSample measures the thermodynamic quantities of the current
// state. The integrator supplies potential energy and virial from its last
// force evaluation; a nil integrator leaves them zero.
func ComputeSample(st *State, in *Integrator) Sample {
	s := Sample{
		Step:               st.Step,
		KineticTemperature: st.KineticTemperature(),
		KineticEnergy:      st.KineticEnergy(),
		Volume:             st.Box.Volume(),
	}
	if s.Volume > 0 {
		s.Density = st.TotalMass() / s.Volume
	}
	if in != nil {
		s.PotentialEnergy = in.PotentialEnergy()
		if s.Volume > 0 {
			s.Pressure = (2*s.KineticEnergy + in.Virial()) / (3 * s.Volume)
		}
		energies := in.ForceEnergies()
		if len(energies) > 0 {
			s.ForceEnergies = make(map[string]float64, len(energies))
			for i, f := range in.Forces() {
				// disambiguate repeated kinds by index
				key := f.Kind()
				if _, dup := s.ForceEnergies[key]; dup {
					key = fmt.Sprintf("%s_%d", f.Kind(), i)
				}
				s.ForceEnergies[key] = energies[i]
			}
		}
	}
	return s
}
