package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/softmatterlab/mdrun/internal/engine"
)

// MSD computes the mean-squared displacement against the first frame,
// one value per frame. Wrapped coordinates are unwrapped by accumulating
// minimum-image displacements between consecutive frames, so the result
// is meaningful under periodic boundaries as long as no particle crosses
// half a box length between frames.
func MSD(frames []Frame) ([]float64, error) {
	if len(frames) < 2 {
		return nil, fmt.Errorf("analysis: MSD needs at least 2 frames, got %d", len(frames))
	}
	n := len(frames[0].Positions)
	for i, fr := range frames {
		if len(fr.Positions) != n {
			return nil, fmt.Errorf("analysis: frame %d has %d particles, want %d", i, len(fr.Positions), n)
		}
	}

	disp := make([]engine.Vec3, n)
	prev := frames[0].Positions
	msd := make([]float64, len(frames))

	for fi := 1; fi < len(frames); fi++ {
		fr := frames[fi]
		st := engine.State{Box: fr.Box}
		sum := 0.0
		for i := 0; i < n; i++ {
			disp[i] = disp[i].Add(st.MinImage(fr.Positions[i], prev[i]))
			sum += disp[i].Dot(disp[i])
		}
		msd[fi] = sum / float64(n)
		prev = fr.Positions
	}
	return msd, nil
}

// SelfDiffusion estimates the self-diffusion coefficient from an MSD
// curve sampled every dt time units, via a least-squares fit of the
// second half of the curve to MSD = 6 D t.
func SelfDiffusion(msd []float64, dt float64) (float64, error) {
	if len(msd) < 4 {
		return 0, fmt.Errorf("analysis: need at least 4 MSD points, got %d", len(msd))
	}
	if dt <= 0 {
		return 0, fmt.Errorf("analysis: dt must be positive, got %g", dt)
	}
	start := len(msd) / 2
	ts := make([]float64, 0, len(msd)-start)
	ys := make([]float64, 0, len(msd)-start)
	for i := start; i < len(msd); i++ {
		ts = append(ts, float64(i)*dt)
		ys = append(ys, msd[i])
	}
	slope := slopeThroughOrigin(ts, ys)
	return slope / 6, nil
}

// slopeThroughOrigin fits y = a*t by least squares.
func slopeThroughOrigin(ts, ys []float64) float64 {
	den := floats.Dot(ts, ts)
	if den == 0 {
		return 0
	}
	return floats.Dot(ts, ys) / den
}

// Mean is the arithmetic mean of a series.
func Mean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return floats.Sum(series) / float64(len(series))
}

// StdDev is the population standard deviation of a series.
func StdDev(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	m := Mean(series)
	sum := 0.0
	for _, v := range series {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(series)))
}
