package tonal

import (
	"fmt"
	"math"
)

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// midiNames caches scientific pitch names for the MIDI range so note
// construction on the audio path never formats strings
var midiNames = buildMIDINames(128)

func buildMIDINames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s%d", noteNames[i%12], i/12-1)
	}
	return names
}

// Note is a frequency observation annotated with its MIDI note number and
// name. MIDINote is -1 when the frequency is not a valid pitch.
type Note struct {
	Frequency  float64 `json:"frequency"`  // Frequency in Hz
	MIDINote   int     `json:"midi_note"`  // MIDI note number, -1 = invalid
	Confidence float64 `json:"confidence"` // Detection confidence (0-1)
	Name       string  `json:"name"`       // Human-readable name, e.g. "E2"
}

// NewNote builds a Note from a frequency and confidence. The MIDI number and
// name are derived on construction; a non-positive frequency yields an
// invalid note.
func NewNote(frequency, confidence float64) Note {
	n := Note{
		Frequency:  frequency,
		MIDINote:   -1,
		Confidence: confidence,
	}

	if frequency > 0 {
		n.MIDINote = FrequencyToMIDI(frequency)
		n.Name = MIDIToName(n.MIDINote)
	}

	return n
}

// Valid reports whether the note carries a usable pitch
func (n Note) Valid() bool {
	return n.MIDINote >= 0
}

// FrequencyToMIDI converts a frequency in Hz to the nearest MIDI note number
// (A4 = 440 Hz = 69). Returns -1 for non-positive frequencies.
func FrequencyToMIDI(frequency float64) int {
	if frequency <= 0 {
		return -1
	}
	return int(math.Round(69.0 + 12.0*math.Log2(frequency/440.0)))
}

// MIDIToFrequency converts a MIDI note number to its frequency in Hz
func MIDIToFrequency(midiNote int) float64 {
	return 440.0 * math.Pow(2.0, float64(midiNote-69)/12.0)
}

// MIDIToName converts a MIDI note number to scientific pitch notation
func MIDIToName(midiNote int) string {
	if midiNote < 0 {
		return ""
	}
	if midiNote < len(midiNames) {
		return midiNames[midiNote]
	}
	return fmt.Sprintf("%s%d", noteNames[midiNote%12], midiNote/12-1)
}

// SemitoneDistance returns the absolute distance in semitones between two
// frequencies. Returns +Inf when either frequency is non-positive.
func SemitoneDistance(f1, f2 float64) float64 {
	if f1 <= 0 || f2 <= 0 {
		return math.Inf(1)
	}
	return math.Abs(12.0 * math.Log2(f1/f2))
}

// BassString is one pitch of the standard 4-string bass tuning
type BassString struct {
	Frequency  float64 `json:"frequency"`
	MIDINote   int     `json:"midi_note"`
	Name       string  `json:"name"`
	StringName string  `json:"string_name"`
}

// BassStrings is the standard bass tuning, low to high. Built once; used for
// display telemetry, never mutated.
var BassStrings = []BassString{
	{Frequency: 41.20, MIDINote: 28, Name: "E1", StringName: "E"},
	{Frequency: 55.00, MIDINote: 33, Name: "A1", StringName: "A"},
	{Frequency: 73.42, MIDINote: 38, Name: "D2", StringName: "D"},
	{Frequency: 98.00, MIDINote: 43, Name: "G2", StringName: "G"},
}

// ClosestBassString returns the bass string nearest to the given frequency
func ClosestBassString(frequency float64) BassString {
	best := BassStrings[0]
	bestDist := math.Inf(1)

	for _, s := range BassStrings {
		dist := SemitoneDistance(frequency, s.Frequency)
		if dist < bestDist {
			bestDist = dist
			best = s
		}
	}

	return best
}
