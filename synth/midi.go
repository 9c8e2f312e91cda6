package synth

// MIDIEventType distinguishes note-on from note-off events
type MIDIEventType int

const (
	NoteOn MIDIEventType = iota
	NoteOff
)

func (t MIDIEventType) String() string {
	switch t {
	case NoteOn:
		return "note-on"
	case NoteOff:
		return "note-off"
	default:
		return "unknown"
	}
}

// MIDIEvent is one note event produced by the piano voice, timed to block
// granularity. The host is responsible for turning these into wire MIDI.
type MIDIEvent struct {
	Type     MIDIEventType `json:"type"`
	Note     int           `json:"note"`     // MIDI note number
	Velocity int           `json:"velocity"` // 1-127
}

// maxPendingEvents bounds the per-block event queue; events beyond the bound
// are dropped rather than allocating on the audio path
const maxPendingEvents = 16

// velocityFromAmplitude maps a linear amplitude in [0,1] to MIDI velocity
func velocityFromAmplitude(amplitude float64) int {
	v := int(amplitude * 127.0)
	if v < 1 {
		v = 1
	}
	if v > 127 {
		v = 127
	}
	return v
}
