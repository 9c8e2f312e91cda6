package tonal

import (
	"math"

	"github.com/RyanBlaney/sonido-bajo/logging"
)

// StabilizerParams contains tuning parameters for note stabilization
type StabilizerParams struct {
	ConfidenceThreshold float64 `json:"confidence_threshold"` // Minimum confidence to count a detection
	MinConsecutive      int     `json:"min_consecutive"`      // Detections required before the held pitch moves
	Smoothing           float64 `json:"smoothing"`            // Exponential smoothing on sustained notes
	FastSmoothing       float64 `json:"fast_smoothing"`       // Smoothing used on large legitimate jumps
	JumpRatio           float64 `json:"jump_ratio"`           // Relative change treated as a note change
	OctaveGuardLow      float64 `json:"octave_guard_low"`     // Lower bound of the octave-error guard ratio
	OctaveGuardHigh     float64 `json:"octave_guard_high"`    // Upper bound of the octave-error guard ratio
	MaxNoteHoldCount    int     `json:"max_note_hold_count"`  // Blocks the held note bridges input dropouts
}

// DefaultStabilizerParams returns the default hysteresis configuration
func DefaultStabilizerParams() StabilizerParams {
	return StabilizerParams{
		ConfidenceThreshold: 0.4,
		MinConsecutive:      3,
		Smoothing:           0.8,
		FastSmoothing:       0.3,
		JumpRatio:           0.10,
		OctaveGuardLow:      0.48,
		OctaveGuardHigh:     2.1,
		MaxNoteHoldCount:    8,
	}
}

// noteCandidate accumulates consecutive support for one prospective note
type noteCandidate struct {
	midiNote         int
	frequency        float64
	confidence       float64
	consecutiveCount int
	averageFrequency float64
}

// NoteStabilizer converts the jittery stream of per-frame frequency and
// confidence observations into a single held pitch. A new note must be
// confident and persistent before it displaces the current one, the held
// pitch is exponentially smoothed, and brief input dropouts are bridged by
// holding the last note for a bounded number of blocks.
type NoteStabilizer struct {
	params StabilizerParams
	logger logging.Logger

	candidate noteCandidate
	heldPitch float64
	holdCount int
}

// NewNoteStabilizer creates a stabilizer with default parameters
func NewNoteStabilizer(logger logging.Logger) *NoteStabilizer {
	return NewNoteStabilizerWithParams(DefaultStabilizerParams(), logger)
}

// NewNoteStabilizerWithParams creates a stabilizer with custom parameters
func NewNoteStabilizerWithParams(params StabilizerParams, logger logging.Logger) *NoteStabilizer {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &NoteStabilizer{
		params: params,
		logger: logger.WithFields(logging.Fields{"component": "stabilizer"}),
	}
}

// Observe folds one frame's observation into the stabilizer and returns the
// held pitch in Hz (0 when released). A frequency of 0 marks a frame with no
// usable detection; silent marks a frame whose gated input level was below
// the floor.
func (ns *NoteStabilizer) Observe(frequency, confidence float64, silent bool) float64 {
	if silent {
		return ns.observeSilence()
	}

	ns.holdCount = 0

	if frequency <= 0 || confidence <= ns.params.ConfidenceThreshold || ns.octaveGuardRejects(frequency) {
		ns.candidate.consecutiveCount = 0
		return ns.heldPitch
	}

	midiNote := FrequencyToMIDI(frequency)
	if midiNote == ns.candidate.midiNote && ns.candidate.consecutiveCount > 0 {
		ns.candidate.consecutiveCount++
		n := float64(ns.candidate.consecutiveCount)
		ns.candidate.averageFrequency += (frequency - ns.candidate.averageFrequency) / n
		ns.candidate.frequency = frequency
		ns.candidate.confidence = confidence
	} else {
		ns.candidate = noteCandidate{
			midiNote:         midiNote,
			frequency:        frequency,
			confidence:       confidence,
			consecutiveCount: 1,
			averageFrequency: frequency,
		}
	}

	if ns.candidate.consecutiveCount >= ns.params.MinConsecutive {
		ns.commitCandidate()
	}

	return ns.heldPitch
}

// observeSilence bridges brief dropouts, then releases the held note
func (ns *NoteStabilizer) observeSilence() float64 {
	ns.candidate.consecutiveCount = 0

	if ns.heldPitch > 0 {
		ns.holdCount++
		if ns.holdCount > ns.params.MaxNoteHoldCount {
			ns.logger.Debug("note released after dropout", logging.Fields{
				"held_hz": ns.heldPitch,
			})
			ns.heldPitch = 0.0
			ns.holdCount = 0
		}
	}

	return ns.heldPitch
}

// octaveGuardRejects reports whether frequency is a gross octave error
// relative to the held pitch
func (ns *NoteStabilizer) octaveGuardRejects(frequency float64) bool {
	if ns.heldPitch <= 0 {
		return false
	}
	ratio := frequency / ns.heldPitch
	return ratio < ns.params.OctaveGuardLow || ratio > ns.params.OctaveGuardHigh
}

// commitCandidate moves the held pitch toward the confirmed candidate.
// Sustained notes smooth slowly; a jump beyond JumpRatio tracks fast so
// legitimate note changes don't lag.
func (ns *NoteStabilizer) commitCandidate() {
	target := ns.candidate.averageFrequency

	if ns.heldPitch <= 0 {
		ns.heldPitch = target
		return
	}

	alpha := ns.params.Smoothing
	if math.Abs(target-ns.heldPitch)/ns.heldPitch > ns.params.JumpRatio {
		alpha = ns.params.FastSmoothing
	}

	ns.heldPitch = ns.heldPitch*alpha + target*(1.0-alpha)
}

// HeldPitch returns the currently held pitch in Hz, 0 when released
func (ns *NoteStabilizer) HeldPitch() float64 {
	return ns.heldPitch
}

// Reset clears the held pitch and candidate state
func (ns *NoteStabilizer) Reset() {
	ns.candidate = noteCandidate{}
	ns.heldPitch = 0.0
	ns.holdCount = 0
}
