package engine

// CubicLattice places n^3 particles of one type on a simple cubic
// lattice with the given spacing, centered on the origin. Velocities
// are zero; thermalize before integrating.
func CubicLattice(n int, spacing float64, typ string, mass float64) *Snapshot {
	count := n * n * n
	l := float64(n) * spacing
	snap := &Snapshot{
		Box:        Box{Lx: l, Ly: l, Lz: l},
		Types:      []string{typ},
		TypeIDs:    make([]int, count),
		Positions:  make([]Vec3, 0, count),
		Velocities: make([]Vec3, count),
		Masses:     make([]float64, count),
	}
	offset := (l - spacing) / 2
	for ix := 0; ix < n; ix++ {
		for iy := 0; iy < n; iy++ {
			for iz := 0; iz < n; iz++ {
				snap.Positions = append(snap.Positions, Vec3{
					X: float64(ix)*spacing - offset,
					Y: float64(iy)*spacing - offset,
					Z: float64(iz)*spacing - offset,
				})
			}
		}
	}
	for i := range snap.Masses {
		snap.Masses[i] = mass
	}
	return snap
}
