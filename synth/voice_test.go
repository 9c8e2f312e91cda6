package synth

import (
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-bajo/logging"
)

const testSampleRate = 44100.0

func newTestVoice() *BassVoice {
	return NewBassVoice(testSampleRate, logging.NewNoOpLogger())
}

func maxStep(blocks ...[]float64) float64 {
	step := 0.0
	prev := math.NaN()
	for _, block := range blocks {
		for _, s := range block {
			if !math.IsNaN(prev) {
				if d := math.Abs(s - prev); d > step {
					step = d
				}
			}
			prev = s
		}
	}
	return step
}

func rms(data []float64) float64 {
	sum := 0.0
	for _, v := range data {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(data)))
}

func TestRenderProducesBoundedSignal(t *testing.T) {
	voice := newTestVoice()
	voice.SetFrequency(55.0)
	voice.SetAmplitude(1.0)

	output := make([]float64, 8192)
	voice.RenderBlock(output, len(output))

	if got := rms(output); got < 0.1 {
		t.Fatalf("voice too quiet at full amplitude: RMS %f", got)
	}
	for i, s := range output {
		if math.Abs(s) > 1.0 {
			t.Fatalf("sample %d out of range: %f", i, s)
		}
	}
}

func TestEnvelopeAttackIsClickFree(t *testing.T) {
	voice := newTestVoice()
	voice.SetFrequency(55.0)
	voice.SetAmplitude(1.0)

	output := make([]float64, 512)
	voice.RenderBlock(output, len(output))

	// The very first sample can differ from implicit silence by at most
	// one envelope step
	if math.Abs(output[0]) > DefaultVoiceParams().EnvelopeRate {
		t.Fatalf("attack clicks: first sample %f", output[0])
	}
}

func TestAmplitudeStepDoesNotClick(t *testing.T) {
	voice := newTestVoice()
	voice.SetFrequency(82.41)
	voice.SetAmplitude(0.0)

	a := make([]float64, 512)
	voice.RenderBlock(a, len(a))

	// Full-scale amplitude step between blocks
	voice.SetAmplitude(1.0)
	b := make([]float64, 512)
	voice.RenderBlock(b, len(b))

	// The oscillator swings at most ~2 peak-to-peak per cycle; at bass
	// frequencies consecutive samples move far less than this bound
	if got := maxStep(a, b); got > 0.1 {
		t.Fatalf("amplitude step clicks: max delta %f", got)
	}
}

func TestFrequencyChangeKeepsPhase(t *testing.T) {
	voice := newTestVoice()
	voice.SetFrequency(110.0)
	voice.SetAmplitude(0.8)

	warm := make([]float64, 8192)
	voice.RenderBlock(warm, len(warm))

	a := make([]float64, 256)
	voice.RenderBlock(a, len(a))

	voice.SetFrequency(55.0)
	b := make([]float64, 256)
	voice.RenderBlock(b, len(b))

	if got := maxStep(a, b); got > 0.1 {
		t.Fatalf("frequency change clicks: max delta %f", got)
	}
}

func TestResetThenRenderStartsFromSilence(t *testing.T) {
	voice := newTestVoice()
	voice.SetFrequency(110.0)
	voice.SetAmplitude(1.0)
	voice.RenderBlock(make([]float64, 8192), 8192)

	voice.Reset()

	output := make([]float64, 64)
	voice.RenderBlock(output, len(output))
	if math.Abs(output[0]) > DefaultVoiceParams().EnvelopeRate {
		t.Fatalf("first sample after reset not silent: %f", output[0])
	}
	if voice.EnvelopeLevel() > 0.01 {
		t.Fatalf("envelope did not clear: %f", voice.EnvelopeLevel())
	}
}

func TestZeroAmplitudeStaysSilent(t *testing.T) {
	voice := newTestVoice()
	voice.SetFrequency(110.0)
	voice.SetAmplitude(0.0)

	output := make([]float64, 512)
	for block := 0; block < 50; block++ {
		voice.RenderBlock(output, len(output))
		if got := rms(output); got >= 1e-4 {
			t.Fatalf("block %d audible at zero amplitude: RMS %g", block, got)
		}
	}
}

func TestReleaseDecaysToSilence(t *testing.T) {
	voice := newTestVoice()
	voice.SetFrequency(110.0)
	voice.SetAmplitude(0.8)
	voice.RenderBlock(make([]float64, 4096), 4096)

	// Releasing the note ramps the envelope down instead of cutting
	voice.SetFrequency(0)

	output := make([]float64, 512)
	voice.RenderBlock(output, len(output))
	if rms(output) < 1e-6 {
		t.Fatal("release should decay, not cut instantly")
	}

	for iter := 0; iter < 20; iter++ {
		voice.RenderBlock(output, len(output))
	}
	if got := rms(output); got > 1e-4 {
		t.Fatalf("release tail too long: RMS %g", got)
	}
}

func TestModeSwitchCrossfades(t *testing.T) {
	voice := newTestVoice()
	voice.SetFrequency(82.41)
	voice.SetAmplitude(0.8)
	voice.RenderBlock(make([]float64, 8192), 8192)

	a := make([]float64, 256)
	voice.RenderBlock(a, len(a))

	voice.SetMode(AnalogBass)
	if voice.Mode() != AnalogBass {
		t.Fatalf("mode did not switch: %v", voice.Mode())
	}

	b := make([]float64, 256)
	voice.RenderBlock(b, len(b))

	// The waveform families differ sharply; without the crossfade the
	// boundary step would approach the full peak-to-peak range
	if got := maxStep(a, b); got > 0.15 {
		t.Fatalf("mode switch clicks: max delta %f", got)
	}
}

func TestModeStrings(t *testing.T) {
	cases := map[Mode]string{
		AnalogBass: "analog",
		SynthBass:  "synth",
		Piano:      "piano",
		Mode(9):    "unknown",
	}
	for mode, want := range cases {
		if got := mode.String(); got != want {
			t.Fatalf("mode string mismatch: got %q want %q", got, want)
		}
	}
}

func TestPianoModeEmitsMIDIEvents(t *testing.T) {
	voice := newTestVoice()
	voice.SetMode(Piano)

	events := make([]MIDIEvent, maxPendingEvents)

	voice.SetFrequency(110.0)
	n := voice.DrainEvents(events)
	if n != 1 || events[0].Type != NoteOn || events[0].Note != 45 {
		t.Fatalf("note-on mismatch: %d events, first %+v", n, events[0])
	}
	if events[0].Velocity < 1 || events[0].Velocity > 127 {
		t.Fatalf("velocity out of range: %d", events[0].Velocity)
	}

	// Changing note releases the old one first
	voice.SetFrequency(123.47)
	n = voice.DrainEvents(events)
	if n != 2 {
		t.Fatalf("note change should emit off+on, got %d", n)
	}
	if events[0].Type != NoteOff || events[0].Note != 45 {
		t.Fatalf("expected note-off 45, got %+v", events[0])
	}
	if events[1].Type != NoteOn || events[1].Note != 47 {
		t.Fatalf("expected note-on 47, got %+v", events[1])
	}

	// Same note again emits nothing
	voice.SetFrequency(123.0)
	if n = voice.DrainEvents(events); n != 0 {
		t.Fatalf("repeated note should be silent on the event queue, got %d", n)
	}

	// Releasing the note emits the final off
	voice.SetFrequency(0)
	n = voice.DrainEvents(events)
	if n != 1 || events[0].Type != NoteOff || events[0].Note != 47 {
		t.Fatalf("release mismatch: %d events, first %+v", n, events[0])
	}
}

func TestLeavingPianoModeReleasesNote(t *testing.T) {
	voice := newTestVoice()
	voice.SetMode(Piano)
	voice.SetFrequency(110.0)
	voice.DrainEvents(make([]MIDIEvent, maxPendingEvents))

	voice.SetMode(SynthBass)

	events := make([]MIDIEvent, maxPendingEvents)
	n := voice.DrainEvents(events)
	if n != 1 || events[0].Type != NoteOff || events[0].Note != 45 {
		t.Fatalf("mode exit should release the note: %d events, first %+v", n, events[0])
	}
}

func TestNonPianoModeEmitsNoEvents(t *testing.T) {
	voice := newTestVoice()
	voice.SetFrequency(110.0)
	voice.SetFrequency(123.47)
	voice.SetFrequency(0)

	if n := voice.DrainEvents(make([]MIDIEvent, maxPendingEvents)); n != 0 {
		t.Fatalf("non-piano mode queued %d events", n)
	}
}

func TestEventQueueIsBounded(t *testing.T) {
	voice := newTestVoice()
	voice.SetMode(Piano)

	// Alternate two notes far beyond the queue bound
	for i := 0; i < 64; i++ {
		if i%2 == 0 {
			voice.SetFrequency(110.0)
		} else {
			voice.SetFrequency(146.83)
		}
	}

	events := make([]MIDIEvent, maxPendingEvents*2)
	if n := voice.DrainEvents(events); n > maxPendingEvents {
		t.Fatalf("queue exceeded its bound: %d", n)
	}
}

func TestWavetablesAreNormalized(t *testing.T) {
	for _, harmonics := range [][]float64{bassHarmonics, pianoHarmonics} {
		table := buildWavetable(1024, harmonics)
		peak := 0.0
		for _, v := range table {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
		if math.Abs(peak-1.0) > 1e-9 {
			t.Fatalf("table peak mismatch: got %f", peak)
		}
	}

	// Single cycle starts and ends near the same value
	table := buildWavetable(1024, bassHarmonics)
	if math.Abs(table[0]) > 0.05 {
		t.Fatalf("cycle start mismatch: %f", table[0])
	}
}
