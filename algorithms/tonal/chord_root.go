package tonal

import (
	"github.com/RyanBlaney/sonido-bajo/algorithms/common"
	"github.com/RyanBlaney/sonido-bajo/logging"
)

// RootState is the chord-root tracking state
type RootState int

const (
	NoRoot RootState = iota
	PendingRoot
	StableRoot
)

func (s RootState) String() string {
	switch s {
	case NoRoot:
		return "no-root"
	case PendingRoot:
		return "pending"
	case StableRoot:
		return "stable"
	default:
		return "unknown"
	}
}

// ChordInfo is one per-frame chord observation. It is valid only when the
// root note carries a usable pitch, and stable only after the observation
// survives the agreement vote across the stability window.
type ChordInfo struct {
	RootNote      Note    `json:"root_note"`
	DetectedNotes []Note  `json:"detected_notes"`
	Confidence    float64 `json:"confidence"`
	IsStable      bool    `json:"is_stable"`
}

// Valid reports whether the observation carries a usable root
func (ci ChordInfo) Valid() bool {
	return ci.RootNote.Valid()
}

// RootParams contains tuning parameters for chord-root tracking
type RootParams struct {
	StabilityWindow      int     `json:"stability_window"`       // Ring size for the agreement vote
	AgreementRatio       float64 `json:"agreement_ratio"`        // Fraction of the window that must agree
	ChordChangeSemitones float64 `json:"chord_change_semitones"` // Root distance counted as agreement
}

// DefaultRootParams returns the default debounce configuration
func DefaultRootParams() RootParams {
	return RootParams{
		StabilityWindow:      10,
		AgreementRatio:       0.8,
		ChordChangeSemitones: 2.0,
	}
}

// maxChordNotes bounds the notes stored per observation. The spectral
// analyzer caps its candidates well below this.
const maxChordNotes = 8

// ChordRootTracker aggregates per-frame candidate frequencies into a note
// set, selects the chord root, and debounces root changes across a fixed
// stability window so a single noisy frame never flickers the bass note.
//
// Root selection is deliberately simple: the lowest-frequency candidate is
// the root. That ignores inversions, but for bass doubling the engine should
// track the bottom of the harmony, voicing be damned.
type ChordRootTracker struct {
	params RootParams
	logger logging.Logger

	// Fixed ring of recent observations, overwritten continuously. Every
	// slot keeps its own note backing so steady-state tracking stays off
	// the heap.
	history      []ChordInfo
	writeIdx     int
	filled       bool
	state        RootState
	current      ChordInfo
	currentNotes []Note
	confScr      []float64
}

// NewChordRootTracker creates a tracker with default parameters
func NewChordRootTracker(logger logging.Logger) *ChordRootTracker {
	return NewChordRootTrackerWithParams(DefaultRootParams(), logger)
}

// NewChordRootTrackerWithParams creates a tracker with custom parameters
func NewChordRootTrackerWithParams(params RootParams, logger logging.Logger) *ChordRootTracker {
	if params.StabilityWindow <= 0 {
		params.StabilityWindow = 10
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	history := make([]ChordInfo, params.StabilityWindow)
	for i := range history {
		history[i].DetectedNotes = make([]Note, 0, maxChordNotes)
	}

	return &ChordRootTracker{
		params:       params,
		logger:       logger.WithFields(logging.Fields{"component": "chord_root"}),
		history:      history,
		current:      ChordInfo{RootNote: NewNote(0, 0)},
		currentNotes: make([]Note, 0, maxChordNotes),
		confScr:      make([]float64, 0, maxChordNotes),
	}
}

// Observe folds one frame of candidate frequencies into the tracker and
// returns the chord currently driving the output. Until a new root passes
// the agreement vote, the previously committed chord keeps being returned.
// The returned chord's note slice stays valid until the next commit.
func (crt *ChordRootTracker) Observe(candidates []float64, confidence float64) ChordInfo {
	slot := &crt.history[crt.writeIdx]
	crt.fillObservation(slot, candidates, confidence)

	crt.writeIdx++
	if crt.writeIdx >= len(crt.history) {
		crt.writeIdx = 0
		crt.filled = true
	}

	if !crt.filled {
		if crt.state == NoRoot && slot.Valid() {
			crt.state = PendingRoot
		}
		return crt.current
	}

	observation := *slot
	agreement := crt.agreementWith(observation)
	if agreement >= crt.params.AgreementRatio {
		observation.IsStable = true
		if observation.Valid() && observation.Confidence < agreement {
			// Spectral candidates carry no single-pitch confidence of
			// their own; once a root survives the vote, the agreement
			// fraction stands in so a chord-only detection still drives
			// the voice
			observation.Confidence = agreement
		}
		if observation.Valid() && observation.RootNote.MIDINote != crt.current.RootNote.MIDINote {
			crt.logger.Debug("chord root committed", logging.Fields{
				"root":      observation.RootNote.Name,
				"agreement": agreement,
			})
		}
		crt.currentNotes = append(crt.currentNotes[:0], observation.DetectedNotes...)
		observation.DetectedNotes = crt.currentNotes
		crt.current = observation
		if observation.Valid() {
			crt.state = StableRoot
		} else {
			crt.state = NoRoot
		}
	} else if observation.Valid() {
		crt.state = PendingRoot
	}

	return crt.current
}

// fillObservation converts candidate frequencies into a ChordInfo with the
// lowest-frequency note as root, reusing the ring slot's note backing
func (crt *ChordRootTracker) fillObservation(slot *ChordInfo, candidates []float64, confidence float64) {
	notes := slot.DetectedNotes[:0]
	crt.confScr = crt.confScr[:0]

	lowest := -1
	for _, freq := range candidates {
		if len(notes) == maxChordNotes {
			break
		}
		if freq <= 0 {
			continue
		}
		note := NewNote(freq, confidence)
		notes = append(notes, note)
		crt.confScr = append(crt.confScr, note.Confidence)
		if lowest < 0 || note.Frequency < notes[lowest].Frequency {
			lowest = len(notes) - 1
		}
	}

	slot.DetectedNotes = notes
	slot.IsStable = false

	if lowest < 0 {
		slot.RootNote = NewNote(0, 0)
		slot.Confidence = 0.0
		return
	}

	slot.RootNote = notes[lowest]
	slot.Confidence = common.Mean(crt.confScr)
}

// agreementWith returns the fraction of the stability window whose root
// agrees with the given observation. Two silent frames agree; a silent frame
// and a voiced one do not.
func (crt *ChordRootTracker) agreementWith(observation ChordInfo) float64 {
	agreeing := 0
	for _, snapshot := range crt.history {
		switch {
		case !observation.Valid() && !snapshot.Valid():
			agreeing++
		case observation.Valid() && snapshot.Valid():
			dist := SemitoneDistance(snapshot.RootNote.Frequency, observation.RootNote.Frequency)
			if dist <= crt.params.ChordChangeSemitones {
				agreeing++
			}
		}
	}
	return float64(agreeing) / float64(len(crt.history))
}

// State returns the current tracking state
func (crt *ChordRootTracker) State() RootState {
	return crt.state
}

// CurrentChord returns the last committed stable chord
func (crt *ChordRootTracker) CurrentChord() ChordInfo {
	return crt.current
}

// Reset clears the stability window and committed chord. Called on stream
// restart.
func (crt *ChordRootTracker) Reset() {
	for i := range crt.history {
		crt.history[i].RootNote = NewNote(0, 0)
		crt.history[i].DetectedNotes = crt.history[i].DetectedNotes[:0]
		crt.history[i].Confidence = 0.0
		crt.history[i].IsStable = false
	}
	crt.writeIdx = 0
	crt.filled = false
	crt.state = NoRoot
	crt.current = ChordInfo{RootNote: NewNote(0, 0)}
	crt.currentNotes = crt.currentNotes[:0]
}
