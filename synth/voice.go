package synth

import (
	"github.com/RyanBlaney/sonido-bajo/algorithms/common"
	"github.com/RyanBlaney/sonido-bajo/algorithms/tonal"
	"github.com/RyanBlaney/sonido-bajo/logging"
)

// Mode selects the voice timbre
type Mode int

const (
	// AnalogBass is a sawtooth through a one-pole lowpass
	AnalogBass Mode = iota
	// SynthBass is a wavetable with four decaying harmonics
	SynthBass
	// Piano is a brighter wavetable that also emits MIDI note events
	Piano
)

func (m Mode) String() string {
	switch m {
	case AnalogBass:
		return "analog"
	case SynthBass:
		return "synth"
	case Piano:
		return "piano"
	default:
		return "unknown"
	}
}

// VoiceParams contains tuning parameters for the bass voice
type VoiceParams struct {
	WavetableSize int     `json:"wavetable_size"` // Single-cycle table length
	EnvelopeRate  float64 `json:"envelope_rate"`  // One-pole envelope coefficient per sample
	FilterCutoff  float64 `json:"filter_cutoff"`  // Analog-mode lowpass coefficient
	CrossfadeLen  int     `json:"crossfade_len"`  // Mode-switch crossfade length in samples
}

// DefaultVoiceParams returns the default synthesis configuration
func DefaultVoiceParams() VoiceParams {
	return VoiceParams{
		WavetableSize: 1024,
		EnvelopeRate:  0.01,
		FilterCutoff:  0.3,
		CrossfadeLen:  64,
	}
}

// BassVoice renders a monophonic bass signal at a target frequency. The
// amplitude envelope is a single one-pole smoother so note starts and stops
// never click, frequency changes keep the running phase, and switching
// timbres crossfades over a short ramp instead of swapping waveforms
// mid-sample.
type BassVoice struct {
	params     VoiceParams
	sampleRate float64
	logger     logging.Logger

	mode     Mode
	prevMode Mode
	fadePos  int // samples remaining in the mode crossfade

	frequency float64
	amplitude float64
	noteOn    bool

	// Oscillator state. Wavetable and analog phases run independently so
	// both timbres stay continuous through a crossfade.
	tablePhase   float64
	analogPhase  float64
	lowPassState float64

	envelope       float64
	envelopeTarget float64

	bassTable  []float64
	pianoTable []float64

	// Piano-mode note tracking
	activeNote int
	events     []MIDIEvent
}

// NewBassVoice creates a voice with default parameters
func NewBassVoice(sampleRate float64, logger logging.Logger) *BassVoice {
	return NewBassVoiceWithParams(sampleRate, DefaultVoiceParams(), logger)
}

// NewBassVoiceWithParams creates a voice with custom parameters
func NewBassVoiceWithParams(sampleRate float64, params VoiceParams, logger logging.Logger) *BassVoice {
	if params.WavetableSize <= 0 {
		params.WavetableSize = 1024
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &BassVoice{
		params:     params,
		sampleRate: sampleRate,
		logger:     logger.WithFields(logging.Fields{"component": "voice"}),
		mode:       SynthBass,
		prevMode:   SynthBass,
		amplitude:  0.5,
		bassTable:  buildWavetable(params.WavetableSize, bassHarmonics),
		pianoTable: buildWavetable(params.WavetableSize, pianoHarmonics),
		activeNote: -1,
		events:     make([]MIDIEvent, 0, maxPendingEvents),
	}
}

// SetFrequency sets the target frequency in Hz. A non-positive frequency
// releases the envelope. The oscillator phase is never reset here, so pitch
// changes stay continuous.
func (bv *BassVoice) SetFrequency(frequency float64) {
	if frequency > 0 {
		bv.frequency = frequency
		bv.noteOn = true
		bv.envelopeTarget = bv.amplitude
		bv.updatePianoNote(tonal.FrequencyToMIDI(frequency))
	} else {
		bv.noteOn = false
		bv.envelopeTarget = 0.0
		bv.updatePianoNote(-1)
	}
}

// SetAmplitude sets the output amplitude in [0,1]. The change glides in
// through the envelope smoother rather than stepping the gain, so even a
// full-scale jump stays click-free.
func (bv *BassVoice) SetAmplitude(amplitude float64) {
	bv.amplitude = common.Clamp(amplitude, 0.0, 1.0)
	if bv.noteOn {
		bv.envelopeTarget = bv.amplitude
	}
}

// SetMode switches the timbre. A change starts a short equal-length
// crossfade from the previous mode so the swap never clicks.
func (bv *BassVoice) SetMode(mode Mode) {
	if mode == bv.mode {
		return
	}

	// Leaving piano mode silences its MIDI note
	if bv.mode == Piano {
		bv.updatePianoNote(-1)
	}

	bv.prevMode = bv.mode
	bv.mode = mode
	bv.fadePos = bv.params.CrossfadeLen

	if bv.mode == Piano && bv.envelopeTarget > 0 {
		bv.updatePianoNote(tonal.FrequencyToMIDI(bv.frequency))
	}

	bv.logger.Debug("voice mode changed", logging.Fields{
		"mode": mode.String(),
		"from": bv.prevMode.String(),
	})
}

// Mode returns the current timbre
func (bv *BassVoice) Mode() Mode {
	return bv.mode
}

// RenderBlock fills output with n synthesized samples
func (bv *BassVoice) RenderBlock(output []float64, n int) {
	if n > len(output) {
		n = len(output)
	}

	phaseInc := bv.frequency / bv.sampleRate

	for i := 0; i < n; i++ {
		bv.envelope += (bv.envelopeTarget - bv.envelope) * bv.params.EnvelopeRate

		sample := bv.oscillatorSample(bv.mode)
		if bv.fadePos > 0 {
			mix := float64(bv.fadePos) / float64(bv.params.CrossfadeLen)
			sample = sample*(1.0-mix) + bv.oscillatorSample(bv.prevMode)*mix
			bv.fadePos--
		}

		output[i] = sample * bv.envelope

		bv.advancePhases(phaseInc)
	}
}

// oscillatorSample reads the current sample for the given mode without
// advancing any state
func (bv *BassVoice) oscillatorSample(mode Mode) float64 {
	switch mode {
	case AnalogBass:
		return bv.lowPassState
	case Piano:
		return common.LinearInterpolate(bv.pianoTable, bv.tablePhase*float64(len(bv.pianoTable)))
	default:
		return common.LinearInterpolate(bv.bassTable, bv.tablePhase*float64(len(bv.bassTable)))
	}
}

// advancePhases moves both oscillators forward one sample. The analog
// lowpass is updated here so its state is ready for the next read.
func (bv *BassVoice) advancePhases(phaseInc float64) {
	bv.tablePhase += phaseInc
	if bv.tablePhase >= 1.0 {
		bv.tablePhase -= 1.0
	}

	bv.analogPhase += phaseInc
	if bv.analogPhase >= 1.0 {
		bv.analogPhase -= 1.0
	}
	saw := 2.0*bv.analogPhase - 1.0
	bv.lowPassState += (saw - bv.lowPassState) * bv.params.FilterCutoff
}

// updatePianoNote tracks the sounding piano note and queues MIDI events on
// changes. midiNote -1 releases the active note.
func (bv *BassVoice) updatePianoNote(midiNote int) {
	if bv.mode != Piano {
		bv.activeNote = -1
		return
	}
	if midiNote == bv.activeNote {
		return
	}

	if bv.activeNote >= 0 {
		bv.queueEvent(MIDIEvent{Type: NoteOff, Note: bv.activeNote, Velocity: 0})
	}
	if midiNote >= 0 {
		bv.queueEvent(MIDIEvent{Type: NoteOn, Note: midiNote, Velocity: velocityFromAmplitude(bv.amplitude)})
	}

	bv.activeNote = midiNote
}

// queueEvent appends an event, dropping when the bounded queue is full
func (bv *BassVoice) queueEvent(event MIDIEvent) {
	if len(bv.events) >= maxPendingEvents {
		return
	}
	bv.events = append(bv.events, event)
}

// DrainEvents copies pending MIDI events into dst and clears the queue.
// Returns the number of events written.
func (bv *BassVoice) DrainEvents(dst []MIDIEvent) int {
	n := copy(dst, bv.events)
	bv.events = bv.events[:0]
	return n
}

// EnvelopeLevel returns the current envelope value, for tests and telemetry
func (bv *BassVoice) EnvelopeLevel() float64 {
	return bv.envelope
}

// Reset zeroes all oscillator, filter and envelope state. Called when input
// drops to silence so no tail or denormal drift survives.
func (bv *BassVoice) Reset() {
	bv.tablePhase = 0.0
	bv.analogPhase = 0.0
	bv.lowPassState = 0.0
	bv.envelope = 0.0
	bv.envelopeTarget = 0.0
	bv.frequency = 0.0
	bv.noteOn = false
	bv.fadePos = 0

	if bv.activeNote >= 0 {
		bv.queueEvent(MIDIEvent{Type: NoteOff, Note: bv.activeNote, Velocity: 0})
		bv.activeNote = -1
	}
}
