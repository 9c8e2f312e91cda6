package config

import (
	"fmt"

	"github.com/RyanBlaney/sonido-bajo/algorithms/harmonic"
	"github.com/RyanBlaney/sonido-bajo/algorithms/temporal"
	"github.com/RyanBlaney/sonido-bajo/algorithms/tonal"
	"github.com/RyanBlaney/sonido-bajo/synth"
)

// EngineConfig bundles every tunable of the tracking and synthesis pipeline.
// The constants here vary between playing styles and instruments, so they
// are configuration rather than invariants; the defaults are one defensible
// choice for picked electric guitar.
type EngineConfig struct {
	// Analysis windowing
	OverlapRatio  float64 `json:"overlap_ratio"`   // Fraction of the window shared between frames
	MinWindowSize int     `json:"min_window_size"` // Analysis window lower clamp (samples)
	MaxWindowSize int     `json:"max_window_size"` // Analysis window upper clamp (samples)

	// Component parameters
	Pitch      tonal.PitchParams       `json:"pitch"`
	Analyzer   harmonic.AnalyzerParams `json:"analyzer"`
	Root       tonal.RootParams        `json:"root"`
	Stabilizer tonal.StabilizerParams  `json:"stabilizer"`
	Gate       temporal.GateParams     `json:"gate"`
	Voice      synth.VoiceParams       `json:"voice"`

	// Silence decision: gated block RMS below this floor counts as no input
	SilenceFloor float64 `json:"silence_floor"`
}

// DefaultEngineConfig returns the default pipeline configuration. The pitch
// window size is finalized by the engine at prepare time from the host block
// size; the value here only seeds the clamp range.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		OverlapRatio:  0.75,
		MinWindowSize: 512,
		MaxWindowSize: 2048,
		Pitch:         tonal.DefaultPitchParams(1024),
		Analyzer:      harmonic.DefaultAnalyzerParams(),
		Root:          tonal.DefaultRootParams(),
		Stabilizer:    tonal.DefaultStabilizerParams(),
		Gate:          temporal.DefaultGateParams(),
		Voice:         synth.DefaultVoiceParams(),
		SilenceFloor:  0.005,
	}
}

// Validate checks the configuration for values the engine cannot run with
func (c *EngineConfig) Validate() error {
	if c.OverlapRatio < 0.5 || c.OverlapRatio >= 1.0 {
		return fmt.Errorf("overlap ratio (%.2f) must be in [0.5, 1.0)", c.OverlapRatio)
	}
	if c.MinWindowSize < 64 || c.MaxWindowSize < c.MinWindowSize {
		return fmt.Errorf("invalid window clamp [%d, %d]", c.MinWindowSize, c.MaxWindowSize)
	}
	if c.Pitch.MinFreq <= 0 || c.Pitch.MaxFreq <= c.Pitch.MinFreq {
		return fmt.Errorf("invalid pitch range [%.1f, %.1f]", c.Pitch.MinFreq, c.Pitch.MaxFreq)
	}
	if c.Root.StabilityWindow <= 0 {
		return fmt.Errorf("stability window (%d) must be positive", c.Root.StabilityWindow)
	}
	if c.SilenceFloor < 0 {
		return fmt.Errorf("silence floor (%.4f) must be non-negative", c.SilenceFloor)
	}
	return nil
}
