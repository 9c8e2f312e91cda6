package tonal

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-bajo/algorithms/common"
)

// PitchParams contains tuning parameters for the YIN estimator
type PitchParams struct {
	WindowSize int     `json:"window_size"` // Analysis frame length in samples
	Threshold  float64 `json:"threshold"`   // Normalized-difference acceptance threshold
	MinFreq    float64 `json:"min_freq"`    // Instrument range low bound (Hz)
	MaxFreq    float64 `json:"max_freq"`    // Instrument range high bound (Hz)
}

// DefaultPitchParams returns parameters tuned for guitar-range tracking.
// The range is wider than standard tuning on both ends so detuned and
// capoed playing still registers.
func DefaultPitchParams(windowSize int) PitchParams {
	return PitchParams{
		WindowSize: windowSize,
		Threshold:  0.10,
		MinFreq:    70.0,
		MaxFreq:    500.0,
	}
}

// PitchEstimator estimates the fundamental frequency of a single analysis
// frame using the YIN cumulative-mean-normalized difference function.
//
// The lag range is sized from the configured MinFreq rather than fixed at
// half the window, so low guitar strings stay detectable in a 1024-sample
// window. The range is clamped to 3/4 of the window; on very small windows
// the effective minimum frequency rises accordingly.
//
// Reference: de Cheveigné, A., Kawahara, H. (2002). "YIN, a fundamental
// frequency estimator for speech and music"
type PitchEstimator struct {
	params     PitchParams
	sampleRate float64

	maxLag    int // Longest period searched, in samples
	sumWindow int // Samples summed per lag: WindowSize - maxLag

	// Preallocated at construction; the estimate path never allocates
	diff  []float64
	cmndf []float64
}

// NewPitchEstimator creates an estimator with default guitar-range parameters
func NewPitchEstimator(sampleRate float64, windowSize int) (*PitchEstimator, error) {
	return NewPitchEstimatorWithParams(sampleRate, DefaultPitchParams(windowSize))
}

// NewPitchEstimatorWithParams creates an estimator with custom parameters
func NewPitchEstimatorWithParams(sampleRate float64, params PitchParams) (*PitchEstimator, error) {
	if params.WindowSize < 4 {
		return nil, fmt.Errorf("window size (%d) too small for pitch analysis", params.WindowSize)
	}
	if params.MinFreq <= 0 || params.MaxFreq <= params.MinFreq {
		return nil, fmt.Errorf("invalid frequency range [%.1f, %.1f]", params.MinFreq, params.MaxFreq)
	}

	maxLag := int(math.Ceil(sampleRate/params.MinFreq)) + 1
	if limit := params.WindowSize * 3 / 4; maxLag > limit {
		maxLag = limit
	}

	return &PitchEstimator{
		params:     params,
		sampleRate: sampleRate,
		maxLag:     maxLag,
		sumWindow:  params.WindowSize - maxLag,
		diff:       make([]float64, maxLag),
		cmndf:      make([]float64, maxLag),
	}, nil
}

// Estimate returns the fundamental frequency and a confidence in [0,1] for
// one windowed frame. Returns (0, 0) when no periodicity is found or the
// detected frequency falls outside the configured instrument range; callers
// hold their previous pitch in that case.
func (pe *PitchEstimator) Estimate(windowedFrame []float64) (float64, float64) {
	if len(windowedFrame) < pe.params.WindowSize {
		return 0.0, 0.0
	}

	pe.computeDifference(windowedFrame)
	pe.computeCMNDF()

	tau := pe.absoluteThreshold()
	if tau < 0 {
		return 0.0, 0.0
	}

	period := common.ParabolicInterpolate(pe.cmndf, tau)
	if period <= 0 {
		return 0.0, 0.0
	}

	frequency := pe.sampleRate / period
	if frequency < pe.params.MinFreq || frequency > pe.params.MaxFreq {
		return 0.0, 0.0
	}

	confidence := common.Clamp(1.0-math.Min(pe.cmndf[tau], 1.0), 0.0, 1.0)
	return frequency, confidence
}

// computeDifference fills the squared-difference function d(tau)
func (pe *PitchEstimator) computeDifference(frame []float64) {
	for tau := 0; tau < pe.maxLag; tau++ {
		sum := 0.0
		for j := 0; j < pe.sumWindow; j++ {
			delta := frame[j] - frame[j+tau]
			sum += delta * delta
		}
		pe.diff[tau] = sum
	}
}

// computeCMNDF fills the cumulative-mean-normalized difference d'(tau),
// with d'(0) = 1 by convention
func (pe *PitchEstimator) computeCMNDF() {
	pe.cmndf[0] = 1.0

	runningSum := 0.0
	for tau := 1; tau < pe.maxLag; tau++ {
		runningSum += pe.diff[tau]
		if runningSum > 0 {
			pe.cmndf[tau] = pe.diff[tau] / (runningSum / float64(tau))
		} else {
			pe.cmndf[tau] = 1.0
		}
	}
}

// absoluteThreshold scans for the first lag below the threshold, then walks
// downhill to the local minimum so a shoulder crossing doesn't win. Returns
// -1 when the threshold is never crossed.
func (pe *PitchEstimator) absoluteThreshold() int {
	for tau := 2; tau < pe.maxLag-1; tau++ {
		if pe.cmndf[tau] >= pe.params.Threshold {
			continue
		}

		for tau+1 < pe.maxLag && pe.cmndf[tau+1] < pe.cmndf[tau] {
			tau++
		}
		return tau
	}
	return -1
}

// GetParams returns the estimator parameters
func (pe *PitchEstimator) GetParams() PitchParams {
	return pe.params
}
