package analysis

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum computes the one-sided power spectrum of a uniformly
// sampled series. The mean is removed before the transform so the DC
// bin does not swamp the physical content. dt is the sample spacing;
// the returned frequencies run from 0 to the Nyquist frequency.
func PowerSpectrum(series []float64, dt float64) (freqs, power []float64, err error) {
	if len(series) < 4 {
		return nil, nil, fmt.Errorf("analysis: need at least 4 samples for a spectrum, got %d", len(series))
	}
	if dt <= 0 {
		return nil, nil, fmt.Errorf("analysis: dt must be positive, got %g", dt)
	}

	m := Mean(series)
	centered := make([]float64, len(series))
	for i, v := range series {
		centered[i] = v - m
	}

	spec := fft.FFTReal(centered)
	n := len(series)
	half := n/2 + 1
	freqs = make([]float64, half)
	power = make([]float64, half)
	for i := 0; i < half; i++ {
		freqs[i] = float64(i) / (float64(n) * dt)
		power[i] = cmplx.Abs(spec[i]) * cmplx.Abs(spec[i]) / float64(n)
	}
	return freqs, power, nil
}

// DominantFrequency returns the frequency of the largest non-DC peak.
func DominantFrequency(freqs, power []float64) float64 {
	best := 0.0
	bestPow := -1.0
	for i := 1; i < len(power) && i < len(freqs); i++ {
		if power[i] > bestPow {
			bestPow = power[i]
			best = freqs[i]
		}
	}
	return best
}
