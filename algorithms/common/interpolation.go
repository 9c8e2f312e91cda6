package common

import "math"

// LinearInterpolate reads a fractional index from data with linear
// interpolation, wrapping around the end. Used for wavetable lookup where
// the table represents one full cycle.
func LinearInterpolate(data []float64, index float64) float64 {
	n := len(data)
	if n == 0 {
		return 0.0
	}

	i0 := int(math.Floor(index)) % n
	if i0 < 0 {
		i0 += n
	}
	i1 := (i0 + 1) % n
	frac := index - math.Floor(index)

	return data[i0]*(1.0-frac) + data[i1]*frac
}

// ParabolicInterpolate refines the location of an extremum at peakIdx using
// its two neighbors. Returns the fractional index; falls back to the integer
// index at boundaries or when the curvature vanishes.
func ParabolicInterpolate(data []float64, peakIdx int) float64 {
	if peakIdx <= 0 || peakIdx >= len(data)-1 {
		return float64(peakIdx)
	}

	y1 := data[peakIdx-1]
	y2 := data[peakIdx]
	y3 := data[peakIdx+1]

	denom := 2.0 * (2.0*y2 - y1 - y3)
	if math.Abs(denom) < 1e-12 {
		return float64(peakIdx)
	}

	return float64(peakIdx) + (y3-y1)/denom
}
