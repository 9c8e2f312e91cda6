package temporal

import (
	"math"

	"github.com/RyanBlaney/sonido-bajo/algorithms/common"
)

// GateParams contains tuning parameters for the input noise gate
type GateParams struct {
	ThresholdDB  float64 `json:"threshold_db"`  // Open threshold in dBFS
	HysteresisDB float64 `json:"hysteresis_db"` // Close threshold sits this far below open
	AttackTime   float64 `json:"attack_time"`   // Envelope attack in seconds
	ReleaseTime  float64 `json:"release_time"`  // Envelope release in seconds
	HoldTime     float64 `json:"hold_time"`     // Minimum open time in seconds
}

// DefaultGateParams returns gate timing suited to picked guitar input
func DefaultGateParams() GateParams {
	return GateParams{
		ThresholdDB:  -50.0,
		HysteresisDB: 6.0,
		AttackTime:   0.001,
		ReleaseTime:  0.050,
		HoldTime:     0.010,
	}
}

// NoiseGate attenuates input below a threshold so amplifier hiss and string
// handling noise never reach the pitch trackers as false notes. The gain is
// smoothed with separate attack and release coefficients, and the gate
// closes through a hysteresis band and hold window so it doesn't chatter
// around the threshold.
type NoiseGate struct {
	params     GateParams
	sampleRate float64

	attackCoeff  float64
	releaseCoeff float64
	holdSamples  int

	envelope    float64
	gateOpen    bool
	holdCounter int
	currentGain float64
}

// NewNoiseGate creates a gate with default timing
func NewNoiseGate(sampleRate float64) *NoiseGate {
	return NewNoiseGateWithParams(sampleRate, DefaultGateParams())
}

// NewNoiseGateWithParams creates a gate with custom parameters
func NewNoiseGateWithParams(sampleRate float64, params GateParams) *NoiseGate {
	ng := &NoiseGate{
		params:     params,
		sampleRate: sampleRate,
	}

	ng.attackCoeff = 1.0 - math.Exp(-1.0/(params.AttackTime*sampleRate))
	ng.releaseCoeff = 1.0 - math.Exp(-1.0/(params.ReleaseTime*sampleRate))
	ng.holdSamples = int(params.HoldTime * sampleRate)

	return ng
}

// SetThreshold updates the open threshold in dBFS. Takes effect on the next
// processed sample; safe to call between blocks.
func (ng *NoiseGate) SetThreshold(thresholdDB float64) {
	ng.params.ThresholdDB = thresholdDB
}

// Process gates the input into dst and returns true if the gate was open at
// any point during the block. dst and input must be the same length.
func (ng *NoiseGate) Process(dst, input []float64) bool {
	openThreshold := common.DBToLinear(ng.params.ThresholdDB)
	closeThreshold := common.DBToLinear(ng.params.ThresholdDB - ng.params.HysteresisDB)

	wasOpen := false
	for i, sample := range input {
		level := math.Abs(sample)

		if level > ng.envelope {
			ng.envelope += ng.attackCoeff * (level - ng.envelope)
		} else {
			ng.envelope += ng.releaseCoeff * (level - ng.envelope)
		}

		if ng.gateOpen {
			if ng.envelope < closeThreshold {
				if ng.holdCounter > 0 {
					ng.holdCounter--
				} else {
					ng.gateOpen = false
				}
			} else {
				ng.holdCounter = ng.holdSamples
			}
		} else if ng.envelope > openThreshold {
			ng.gateOpen = true
			ng.holdCounter = ng.holdSamples
		}

		targetGain := 0.0
		if ng.gateOpen {
			targetGain = 1.0
			wasOpen = true
		}

		if targetGain > ng.currentGain {
			ng.currentGain += ng.attackCoeff * (targetGain - ng.currentGain)
		} else {
			ng.currentGain += ng.releaseCoeff * (targetGain - ng.currentGain)
		}

		dst[i] = sample * ng.currentGain
	}

	return wasOpen
}

// IsOpen reports whether the gate is currently open
func (ng *NoiseGate) IsOpen() bool {
	return ng.gateOpen
}

// Reset closes the gate and zeroes the envelope follower
func (ng *NoiseGate) Reset() {
	ng.envelope = 0.0
	ng.gateOpen = false
	ng.holdCounter = 0
	ng.currentGain = 0.0
}
