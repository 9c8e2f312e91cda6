package tonal

import (
	"math"
	"testing"
)

func generateSine(frequency, amplitude, sampleRate float64, n int) []float64 {
	signal := make([]float64, n)
	for i := range signal {
		signal[i] = amplitude * math.Sin(2.0*math.Pi*frequency*float64(i)/sampleRate)
	}
	return signal
}

func TestEstimateLowGuitarString(t *testing.T) {
	// E2 in a 1024-sample window: the period (~535 samples) is longer than
	// half the window, so the lag range sized from MinFreq must cover it
	const sampleRate = 44100.0
	pe, err := NewPitchEstimator(sampleRate, 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frame := generateSine(82.41, 0.5, sampleRate, 1024)
	frequency, confidence := pe.Estimate(frame)

	if math.Abs(frequency-82.41) > 0.4 {
		t.Fatalf("frequency mismatch: got %f want 82.41 +/- 0.4", frequency)
	}
	if confidence <= 0.6 {
		t.Fatalf("confidence too low: got %f", confidence)
	}
}

func TestEstimateAcrossGuitarRange(t *testing.T) {
	const sampleRate = 44100.0
	pe, err := NewPitchEstimator(sampleRate, 2048)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Open-string and fretted pitches across the tracking range
	for _, frequency := range []float64{82.41, 110.0, 146.83, 196.0, 246.94, 329.63, 440.0} {
		frame := generateSine(frequency, 0.3, sampleRate, 2048)
		got, confidence := pe.Estimate(frame)

		if math.Abs(got-frequency) > frequency*0.01 {
			t.Fatalf("frequency mismatch at %.2f Hz: got %f", frequency, got)
		}
		if confidence <= 0.6 {
			t.Fatalf("confidence too low at %.2f Hz: got %f", frequency, confidence)
		}
	}
}

func TestEstimateSilence(t *testing.T) {
	pe, err := NewPitchEstimator(44100, 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frequency, confidence := pe.Estimate(make([]float64, 1024))
	if frequency != 0 || confidence != 0 {
		t.Fatalf("silence should yield no pitch: got %f / %f", frequency, confidence)
	}
}

func TestEstimateOutOfRange(t *testing.T) {
	const sampleRate = 44100.0
	pe, err := NewPitchEstimator(sampleRate, 2048)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Below the range the period exceeds the searched lags entirely
	if frequency, _ := pe.Estimate(generateSine(40.0, 0.5, sampleRate, 2048)); frequency != 0 {
		t.Fatalf("40 Hz should be rejected, got %f", frequency)
	}

	// Above the range the period is found but discarded
	if frequency, _ := pe.Estimate(generateSine(700.0, 0.5, sampleRate, 2048)); frequency != 0 {
		t.Fatalf("700 Hz should be rejected, got %f", frequency)
	}
}

func TestEstimateQuietSignal(t *testing.T) {
	// The normalized difference function is amplitude-invariant, so a quiet
	// but clean signal still registers
	const sampleRate = 44100.0
	pe, err := NewPitchEstimator(sampleRate, 2048)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frequency, confidence := pe.Estimate(generateSine(196.0, 0.01, sampleRate, 2048))
	if math.Abs(frequency-196.0) > 2.0 {
		t.Fatalf("quiet signal mismatch: got %f", frequency)
	}
	if confidence <= 0.6 {
		t.Fatalf("quiet signal confidence too low: got %f", confidence)
	}
}

func TestEstimateShortFrame(t *testing.T) {
	pe, err := NewPitchEstimator(44100, 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frequency, confidence := pe.Estimate(make([]float64, 512))
	if frequency != 0 || confidence != 0 {
		t.Fatalf("short frame should yield no pitch: got %f / %f", frequency, confidence)
	}
}

func TestEstimateHarmonicRichSignal(t *testing.T) {
	// Fundamental plus decaying partials, the shape a plucked string
	// actually produces
	const sampleRate = 44100.0
	pe, err := NewPitchEstimator(sampleRate, 2048)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frame := make([]float64, 2048)
	for i := range frame {
		phase := 2.0 * math.Pi * 110.0 * float64(i) / sampleRate
		frame[i] = 0.5*math.Sin(phase) + 0.25*math.Sin(2*phase) + 0.12*math.Sin(3*phase)
	}

	frequency, confidence := pe.Estimate(frame)
	if math.Abs(frequency-110.0) > 1.1 {
		t.Fatalf("harmonic-rich mismatch: got %f want 110", frequency)
	}
	if confidence <= 0.6 {
		t.Fatalf("harmonic-rich confidence too low: got %f", confidence)
	}
}

func TestNewPitchEstimatorValidation(t *testing.T) {
	if _, err := NewPitchEstimator(44100, 2); err == nil {
		t.Fatal("expected error for tiny window")
	}
	if _, err := NewPitchEstimatorWithParams(44100, PitchParams{
		WindowSize: 1024, Threshold: 0.1, MinFreq: 500, MaxFreq: 70,
	}); err == nil {
		t.Fatal("expected error for inverted range")
	}
}
