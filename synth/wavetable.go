package synth

import (
	"math"

	"github.com/RyanBlaney/sonido-bajo/algorithms/common"
)

// bassHarmonics are the partial weights for the synth-bass wavetable:
// a strong fundamental with quickly decaying upper partials.
var bassHarmonics = []float64{1.0, 0.3, 0.15, 0.1}

// pianoHarmonics extend the stack to the 8th partial for a brighter,
// piano-like timbre.
var pianoHarmonics = []float64{1.0, 0.5, 0.33, 0.25, 0.2, 0.16, 0.14, 0.12}

// buildWavetable renders one cycle of a harmonic stack into a table of the
// given size, normalized to unit peak.
func buildWavetable(size int, harmonics []float64) []float64 {
	table := make([]float64, size)

	for i := range table {
		phase := 2.0 * math.Pi * float64(i) / float64(size)
		sample := 0.0
		for h, weight := range harmonics {
			sample += weight * math.Sin(phase*float64(h+1))
		}
		table[i] = sample
	}

	if peak := common.MaxAbs(table); peak > 0 {
		for i := range table {
			table[i] /= peak
		}
	}

	return table
}
