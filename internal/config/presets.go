package config

// Presets are named ensemble configurations for common workflows.
var Presets = map[string]*EnsembleConfig{
	"relax": {
		Kind: "relax", Steps: 10000, MaxDisplacement: 1e-3,
	},
	"quench": {
		Kind: "nvt", Steps: 200000, KT: 1.2, KTFinal: 0.4, TauKT: 0.1,
		Thermalize: true,
	},
	"equilibrate": {
		Kind: "nvt", Steps: 500000, KT: 1.0, TauKT: 0.1, Thermalize: true,
	},
	"anneal": {
		Kind: "langevin", Steps: 300000, KT: 1.5, Gamma: 1.0, Thermalize: true,
	},
	"compress": {
		Kind: "npt", Steps: 500000, KT: 1.0, TauKT: 0.1,
		Pressure: 0.5, TauPressure: 1.0, Thermalize: true,
	},
	"shrink": {
		Kind: "shrink", Steps: 200000, KT: 1.5, TauKT: 0.1,
		FinalDensity: "1.0 g/cm^3", Period: 100, Thermalize: true,
	},
	"production": {
		Kind: "nve", Steps: 1000000,
	},
}

func GetPreset(name string) *EnsembleConfig {
	e, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *e
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
