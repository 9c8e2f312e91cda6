package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality backed by mjibson/go-dsp
type FFT struct {
	padded []float64
}

// NewFFT creates a new FFT calculator. size is the transform length; input
// shorter than size is zero-padded into an internal scratch buffer.
func NewFFT(size int) *FFT {
	return &FFT{
		padded: make([]float64, size),
	}
}

// Size returns the transform length
func (f *FFT) Size() int {
	return len(f.padded)
}

// Compute computes the FFT of x, zero-padded or truncated to the transform
// length. Returns the full complex spectrum.
func (f *FFT) Compute(x []float64) []complex128 {
	n := copy(f.padded, x)
	for i := n; i < len(f.padded); i++ {
		f.padded[i] = 0.0
	}

	return fft.FFTReal(f.padded)
}

// MagnitudeSpectrum computes the magnitude of the positive-frequency half of
// the spectrum of x. dst must hold Size()/2 values; the result is written
// there and returned.
func (f *FFT) MagnitudeSpectrum(dst, x []float64) []float64 {
	spectrum := f.Compute(x)

	half := len(f.padded) / 2
	if len(dst) < half {
		dst = make([]float64, half)
	}
	dst = dst[:half]

	for i := 0; i < half; i++ {
		dst[i] = cmplx.Abs(spectrum[i])
	}

	return dst
}

// BinFrequency converts an FFT bin index to frequency in Hz
func (f *FFT) BinFrequency(bin int, sampleRate float64) float64 {
	return float64(bin) * sampleRate / float64(len(f.padded))
}
