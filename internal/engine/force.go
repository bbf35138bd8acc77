package engine

import (
	"sort"
	"strings"
)

// Force is one term of the force field. Evaluate accumulates forces into
// the given buffer (indexed by particle) and returns the term's potential
// energy and virial contribution.
type Force interface {
	Kind() string
	Evaluate(st *State, forces []Vec3) (pe, virial float64)
}

// LJParams are per type-pair Lennard-Jones parameters.
type LJParams struct {
	Epsilon float64 `yaml:"epsilon"`
	Sigma   float64 `yaml:"sigma"`
}

// LJPair is a truncated 12-6 Lennard-Jones pair force with minimum-image
// periodic boundaries. Parameters are keyed by sorted type pair ("A-B").
type LJPair struct {
	RCut   float64             `yaml:"r_cut"`
	Params map[string]LJParams `yaml:"params"`
}

func NewLJPair(rCut float64) *LJPair {
	return &LJPair{RCut: rCut, Params: make(map[string]LJParams)}
}

// PairKey builds the canonical parameter key for two particle types.
func PairKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "-")
}

func (lj *LJPair) SetParams(typeA, typeB string, epsilon, sigma float64) {
	lj.Params[PairKey(typeA, typeB)] = LJParams{Epsilon: epsilon, Sigma: sigma}
}

func (lj *LJPair) Kind() string { return "lj_pair" }

func (lj *LJPair) Evaluate(st *State, forces []Vec3) (float64, float64) {
	n := st.N()
	rc2 := lj.RCut * lj.RCut
	pe, virial := 0.0, 0.0

	// Parameter matrix indexed by type id, resolved once per evaluation.
	nt := len(st.Types)
	table := make([]LJParams, nt*nt)
	for i := 0; i < nt; i++ {
		for j := 0; j < nt; j++ {
			table[i*nt+j] = lj.Params[PairKey(st.Types[i], st.Types[j])]
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := st.MinImage(st.Positions[i], st.Positions[j])
			r2 := d.Dot(d)
			if r2 >= rc2 || r2 == 0 {
				continue
			}
			p := table[st.TypeIDs[i]*nt+st.TypeIDs[j]]
			if p.Epsilon == 0 {
				continue
			}
			s2 := p.Sigma * p.Sigma / r2
			s6 := s2 * s2 * s2
			s12 := s6 * s6
			pe += 4 * p.Epsilon * (s12 - s6)
			// f/r, applied along the separation vector
			fr := 24 * p.Epsilon * (2*s12 - s6) / r2
			f := d.Scale(fr)
			forces[i] = forces[i].Add(f)
			forces[j] = forces[j].Sub(f)
			virial += fr * r2
		}
	}
	return pe, virial
}
