package filters

import "math"

// DCRemoval is a first-order DC blocking filter:
//
//	y[n] = x[n] - x[n-1] + R * y[n-1]
//
// Guitar pickups and cheap audio interfaces ride on a small DC offset, which
// shifts the gate's envelope follower and biases the difference function of
// the pitch tracker. Blocking it costs three operations per sample.
//
// Reference: Julius O. Smith III, "Introduction to Digital Filters with
// Audio Applications", DC Blocker section.
type DCRemoval struct {
	pole float64 // R, in (0, 1); closer to 1 lowers the cutoff

	x1 float64
	y1 float64
}

// NewDCRemoval creates a DC blocker with the standard audio pole of 0.995,
// about an 8 Hz cutoff at 44.1 kHz.
func NewDCRemoval() *DCRemoval {
	return &DCRemoval{pole: 0.995}
}

// NewDCRemovalWithCutoff creates a DC blocker with the given -3 dB cutoff.
// The small-angle approximation R = 1 - 2*pi*fc/fs holds for cutoffs far
// below Nyquist, which is the only regime a DC blocker runs in.
func NewDCRemovalWithCutoff(sampleRate, cutoffFreq float64) *DCRemoval {
	pole := 1.0 - 2.0*math.Pi*cutoffFreq/sampleRate
	if pole >= 1.0 {
		pole = 0.999
	} else if pole <= 0.0 {
		pole = 0.001
	}
	return &DCRemoval{pole: pole}
}

// ProcessSample filters one sample
func (dc *DCRemoval) ProcessSample(input float64) float64 {
	output := input - dc.x1 + dc.pole*dc.y1
	dc.x1 = input
	dc.y1 = output
	return output
}

// ProcessTo filters src into dst without allocating. dst and src may be the
// same slice.
func (dc *DCRemoval) ProcessTo(dst, src []float64) {
	for i, sample := range src {
		output := sample - dc.x1 + dc.pole*dc.y1
		dc.x1 = sample
		dc.y1 = output
		dst[i] = output
	}
}

// Reset zeroes the filter state. Called on stream restart.
func (dc *DCRemoval) Reset() {
	dc.x1 = 0.0
	dc.y1 = 0.0
}
