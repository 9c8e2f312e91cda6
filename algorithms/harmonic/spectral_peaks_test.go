package harmonic

import (
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-bajo/algorithms/tonal"
	"github.com/RyanBlaney/sonido-bajo/algorithms/windowing"
	"github.com/RyanBlaney/sonido-bajo/logging"
)

const testSampleRate = 44100.0

// chordParams widens the transform so simultaneous guitar notes a few
// semitones apart land in separable bins
func chordParams() AnalyzerParams {
	params := DefaultAnalyzerParams()
	params.FFTSize = 8192
	return params
}

// generateChordFrame sums one sine per frequency/amplitude pair and applies
// a Hann window, matching what the overlap buffer hands the analyzer
func generateChordFrame(frequencies, amplitudes []float64, n int) []float64 {
	frame := make([]float64, n)
	for k, frequency := range frequencies {
		for i := range frame {
			frame[i] += amplitudes[k] * math.Sin(2.0*math.Pi*frequency*float64(i)/testSampleRate)
		}
	}
	windowing.NewHann(n).ApplyInPlace(frame)
	return frame
}

func TestFindCandidatesEMajorTriad(t *testing.T) {
	sa := NewSpectralAnalyzerWithParams(testSampleRate, chordParams())

	// E2, G#2, B2
	frame := generateChordFrame(
		[]float64{82.41, 103.83, 123.47},
		[]float64{1.0 / 3, 1.0 / 3, 1.0 / 3},
		8192,
	)

	candidates := sa.FindCandidates(frame)
	if len(candidates) != 3 {
		t.Fatalf("candidate count mismatch: got %d want 3 (%v)", len(candidates), candidates)
	}

	lowest := candidates[0]
	for _, c := range candidates {
		if c < lowest {
			lowest = c
		}
	}
	if math.Abs(lowest-82.41) > 5.0 {
		t.Fatalf("lowest candidate mismatch: got %f want 82.41 +/- 5", lowest)
	}
}

func TestFindCandidatesSuppressesHarmonics(t *testing.T) {
	sa := NewSpectralAnalyzerWithParams(testSampleRate, chordParams())

	// A single plucked note: strong fundamental with its 2nd and 3rd
	// partials clearly visible
	frame := generateChordFrame(
		[]float64{110.0, 220.0, 330.0},
		[]float64{1.0, 0.5, 0.33},
		8192,
	)

	candidates := sa.FindCandidates(frame)
	if len(candidates) != 1 {
		t.Fatalf("partials should be folded into the fundamental: got %v", candidates)
	}
	if math.Abs(candidates[0]-110.0) > 5.0 {
		t.Fatalf("fundamental mismatch: got %f want 110 +/- 5", candidates[0])
	}
}

func TestFindCandidatesRefinesBetweenBins(t *testing.T) {
	sa := NewSpectralAnalyzerWithParams(testSampleRate, chordParams())

	// 82.41 Hz sits a third of the way between bins; the raw bin center
	// alone would be off by well over a hertz
	frame := generateChordFrame([]float64{82.41}, []float64{1.0}, 8192)

	candidates := sa.FindCandidates(frame)
	if len(candidates) != 1 {
		t.Fatalf("candidate count mismatch: got %v", candidates)
	}
	if math.Abs(candidates[0]-82.41) > 0.5 {
		t.Fatalf("peak not refined between bins: got %f want 82.41 +/- 0.5", candidates[0])
	}
}

func TestFindCandidatesOrderedByStrength(t *testing.T) {
	sa := NewSpectralAnalyzerWithParams(testSampleRate, chordParams())

	// Bin order and magnitude order deliberately disagree
	binWidth := testSampleRate / 8192.0
	frame := generateChordFrame(
		[]float64{18 * binWidth, 31 * binWidth, 47 * binWidth},
		[]float64{0.5, 1.0, 0.7},
		8192,
	)

	candidates := sa.FindCandidates(frame)
	if len(candidates) != 3 {
		t.Fatalf("candidate count mismatch: got %v", candidates)
	}
	want := []float64{31 * binWidth, 47 * binWidth, 18 * binWidth}
	for i, w := range want {
		if math.Abs(candidates[i]-w) > 1.0 {
			t.Fatalf("candidate %d out of order: got %v want %v", i, candidates, want)
		}
	}
}

func TestFindCandidatesCapsFundamentals(t *testing.T) {
	sa := NewSpectralAnalyzerWithParams(testSampleRate, chordParams())

	// Four harmonically unrelated tones, descending strength; only the
	// strongest three survive the cap
	binWidth := testSampleRate / 8192.0
	frame := generateChordFrame(
		[]float64{15 * binWidth, 33 * binWidth, 50 * binWidth, 72 * binWidth},
		[]float64{1.0, 0.8, 0.6, 0.5},
		8192,
	)

	candidates := sa.FindCandidates(frame)
	if len(candidates) != 3 {
		t.Fatalf("candidate cap mismatch: got %d (%v)", len(candidates), candidates)
	}
	for _, want := range []float64{15 * binWidth, 33 * binWidth, 50 * binWidth} {
		found := false
		for _, c := range candidates {
			if math.Abs(c-want) < binWidth {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected candidate near %f, got %v", want, candidates)
		}
	}
}

func TestFindCandidatesRejectsOutOfRange(t *testing.T) {
	sa := NewSpectralAnalyzerWithParams(testSampleRate, chordParams())

	// Both tones sit outside the instrument range
	frame := generateChordFrame(
		[]float64{50.0, 1500.0},
		[]float64{1.0, 1.0},
		8192,
	)

	for _, c := range sa.FindCandidates(frame) {
		if c < 70.0 || c > 500.0 {
			t.Fatalf("out-of-range candidate survived: %f", c)
		}
	}
}

func TestFindCandidatesSilence(t *testing.T) {
	sa := NewSpectralAnalyzerWithParams(testSampleRate, chordParams())

	if candidates := sa.FindCandidates(make([]float64, 8192)); len(candidates) != 0 {
		t.Fatalf("silence should yield no candidates: %v", candidates)
	}
	if candidates := sa.FindCandidates(nil); candidates != nil {
		t.Fatalf("empty frame should yield nil: %v", candidates)
	}
}

func TestChordPipelineConvergesToRoot(t *testing.T) {
	// The analyzer and root tracker together settle on the bottom of an
	// E major triad once the stability window fills
	sa := NewSpectralAnalyzerWithParams(testSampleRate, chordParams())
	tracker := tonal.NewChordRootTracker(logging.NewNoOpLogger())

	frame := generateChordFrame(
		[]float64{82.41, 103.83, 123.47},
		[]float64{1.0 / 3, 1.0 / 3, 1.0 / 3},
		8192,
	)

	var chord tonal.ChordInfo
	for iter := 0; iter < 12; iter++ {
		chord = tracker.Observe(sa.FindCandidates(frame), 0.9)
	}

	if !chord.IsStable || !chord.Valid() {
		t.Fatalf("chord did not stabilize: %+v", chord)
	}
	if math.Abs(chord.RootNote.Frequency-82.41) > 5.0 {
		t.Fatalf("root mismatch: got %f want 82.41 +/- 5", chord.RootNote.Frequency)
	}
	if chord.RootNote.Name != "E2" {
		t.Fatalf("root name mismatch: got %q want E2", chord.RootNote.Name)
	}
}

func TestAnalyzerDefaults(t *testing.T) {
	sa := NewSpectralAnalyzer(testSampleRate)
	params := sa.GetParams()

	if params.FFTSize != 1024 || params.MaxFundamentals != 3 {
		t.Fatalf("default params mismatch: %+v", params)
	}
	if params.MinFreq >= params.MaxFreq {
		t.Fatalf("default range inverted: %+v", params)
	}
}
