package harmonic

import (
	"math"

	"github.com/RyanBlaney/sonido-bajo/algorithms/common"
	"github.com/RyanBlaney/sonido-bajo/algorithms/spectral"
)

// SpectralPeak represents a detected spectral peak
type SpectralPeak struct {
	Frequency float64 // Peak frequency in Hz
	Magnitude float64 // Peak magnitude
	BinIndex  int     // Original FFT bin index
}

// AnalyzerParams contains tuning parameters for chord candidate analysis
type AnalyzerParams struct {
	FFTSize           int     `json:"fft_size"`           // Transform length (power of two)
	MinFreq           float64 `json:"min_freq"`           // Instrument range low bound (Hz)
	MaxFreq           float64 `json:"max_freq"`           // Instrument range high bound (Hz)
	MinPeakHeight     float64 `json:"min_peak_height"`    // Absolute magnitude floor
	RelativeFactor    float64 `json:"relative_factor"`    // Peak floor relative to spectrum maximum
	HarmonicTolerance float64 `json:"harmonic_tolerance"` // Integer-multiple match tolerance (Hz)
	MaxFundamentals   int     `json:"max_fundamentals"`   // Candidate cap per frame
}

// DefaultAnalyzerParams returns parameters tuned for guitar-range input
func DefaultAnalyzerParams() AnalyzerParams {
	return AnalyzerParams{
		FFTSize:           1024,
		MinFreq:           70.0,
		MaxFreq:           500.0,
		MinPeakHeight:     0.5,
		RelativeFactor:    0.10,
		HarmonicTolerance: 10.0,
		MaxFundamentals:   3,
	}
}

// SpectralAnalyzer picks fundamental-frequency candidates for chordal input.
// It detects local maxima in the magnitude spectrum, discards peaks that sit
// on an integer multiple of an already-accepted fundamental, and keeps the
// strongest few survivors. Bass-root tracking rarely needs more than three.
type SpectralAnalyzer struct {
	params     AnalyzerParams
	sampleRate float64

	fft       *spectral.FFT
	magnitude []float64
	peaks     []SpectralPeak
	accepted  []float64
}

// NewSpectralAnalyzer creates an analyzer with default guitar-range parameters
func NewSpectralAnalyzer(sampleRate float64) *SpectralAnalyzer {
	return NewSpectralAnalyzerWithParams(sampleRate, DefaultAnalyzerParams())
}

// NewSpectralAnalyzerWithParams creates an analyzer with custom parameters
func NewSpectralAnalyzerWithParams(sampleRate float64, params AnalyzerParams) *SpectralAnalyzer {
	if params.FFTSize <= 0 {
		params.FFTSize = 1024
	}
	if params.MaxFundamentals <= 0 {
		params.MaxFundamentals = 3
	}

	return &SpectralAnalyzer{
		params:     params,
		sampleRate: sampleRate,
		fft:        spectral.NewFFT(params.FFTSize),
		magnitude:  make([]float64, params.FFTSize/2),
		peaks:      make([]SpectralPeak, 0, 32),
		accepted:   make([]float64, 0, params.MaxFundamentals),
	}
}

// FindCandidates returns up to MaxFundamentals candidate fundamentals (Hz)
// for the given windowed frame, strongest first. The returned slice is reused
// on the next call. An empty result means the frame has no usable peaks and
// the caller should fall back to single-pitch estimation.
func (sa *SpectralAnalyzer) FindCandidates(windowedFrame []float64) []float64 {
	if len(windowedFrame) == 0 {
		return nil
	}

	sa.magnitude = sa.fft.MagnitudeSpectrum(sa.magnitude, windowedFrame)
	sa.detectPeaks()

	// Strongest peaks first so true fundamentals claim their harmonics.
	// Insertion sort over a handful of peaks; sort.Slice would allocate
	// on the block path
	for i := 1; i < len(sa.peaks); i++ {
		peak := sa.peaks[i]
		j := i - 1
		for ; j >= 0 && sa.peaks[j].Magnitude < peak.Magnitude; j-- {
			sa.peaks[j+1] = sa.peaks[j]
		}
		sa.peaks[j+1] = peak
	}

	sa.accepted = sa.accepted[:0]
	for _, peak := range sa.peaks {
		if len(sa.accepted) >= sa.params.MaxFundamentals {
			break
		}
		if sa.isHarmonicOfAccepted(peak.Frequency) {
			continue
		}
		sa.accepted = append(sa.accepted, peak.Frequency)
	}

	return sa.accepted
}

// detectPeaks finds qualifying local maxima in the magnitude spectrum
func (sa *SpectralAnalyzer) detectPeaks() {
	sa.peaks = sa.peaks[:0]

	peakMax := 0.0
	for _, m := range sa.magnitude {
		if m > peakMax {
			peakMax = m
		}
	}

	floor := math.Max(sa.params.MinPeakHeight, peakMax*sa.params.RelativeFactor)

	for i := 2; i < len(sa.magnitude)-2; i++ {
		m := sa.magnitude[i]
		if m <= floor {
			continue
		}

		// 5-point test: a peak strictly exceeds its two neighbors on each side
		if m <= sa.magnitude[i-1] || m <= sa.magnitude[i+1] ||
			m <= sa.magnitude[i-2] || m <= sa.magnitude[i+2] {
			continue
		}

		// One raw bin spans a couple of semitones at the bottom of the
		// instrument range; refine the peak location between bins
		pos := common.ParabolicInterpolate(sa.magnitude, i)
		frequency := pos * sa.sampleRate / float64(sa.fft.Size())
		if frequency < sa.params.MinFreq || frequency > sa.params.MaxFreq {
			continue
		}

		sa.peaks = append(sa.peaks, SpectralPeak{
			Frequency: frequency,
			Magnitude: m,
			BinIndex:  i,
		})
	}
}

// isHarmonicOfAccepted reports whether freq lies within the harmonic
// tolerance of 2x, 3x or 4x any already-accepted fundamental
func (sa *SpectralAnalyzer) isHarmonicOfAccepted(freq float64) bool {
	for _, fundamental := range sa.accepted {
		for multiple := 2; multiple <= 4; multiple++ {
			if math.Abs(freq-fundamental*float64(multiple)) < sa.params.HarmonicTolerance {
				return true
			}
		}
	}
	return false
}

// GetParams returns the analyzer parameters
func (sa *SpectralAnalyzer) GetParams() AnalyzerParams {
	return sa.params
}
