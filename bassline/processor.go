package bassline

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/RyanBlaney/sonido-bajo/algorithms/common"
	"github.com/RyanBlaney/sonido-bajo/algorithms/filters"
	"github.com/RyanBlaney/sonido-bajo/algorithms/harmonic"
	"github.com/RyanBlaney/sonido-bajo/algorithms/temporal"
	"github.com/RyanBlaney/sonido-bajo/algorithms/tonal"
	"github.com/RyanBlaney/sonido-bajo/bassline/config"
	"github.com/RyanBlaney/sonido-bajo/logging"
	"github.com/RyanBlaney/sonido-bajo/synth"
)

// rootRefineSemitones is how far the single-pitch estimate may sit from the
// committed chord root while still being treated as the same note. Wide
// enough to absorb the spectral path's resolution limit at the bottom of
// the instrument range.
const rootRefineSemitones = 5.0

// ParamSnapshot is the read-only view of the host-exposed parameters, passed
// by value into every ProcessBlock call. The control path builds a fresh
// snapshot from its own state; nothing is shared with the audio path.
type ParamSnapshot struct {
	OctaveShift     int        // Octaves to shift down, 0-4
	Mode            synth.Mode // Voice timbre
	GateThresholdDB float64    // Noise gate threshold, -80..-20 dBFS
}

// Processor is the real-time guitar-to-bass core. The host calls Prepare at
// stream start and ProcessBlock once per audio block; telemetry flows back
// through atomically published values. ProcessBlock always fills the output,
// falling back to silence or held state on any degraded condition.
type Processor struct {
	cfg    config.EngineConfig
	logger logging.Logger

	sampleRate float64
	blockSize  int
	prepared   bool

	dcBlock     *filters.DCRemoval
	gate        *temporal.NoiseGate
	overlap     *OverlapAnalysisBuffer
	pitch       *tonal.PitchEstimator
	analyzer    *harmonic.SpectralAnalyzer
	rootTracker *tonal.ChordRootTracker
	stabilizer  *tonal.NoteStabilizer
	voice       *synth.BassVoice

	gated    []float64
	monoScr  [1]float64
	lastHeld float64

	// Telemetry, written by the audio path and read by the control path
	pitchBits  atomic.Uint64
	inRMSBits  atomic.Uint64
	outRMSBits atomic.Uint64
	rootName   atomic.Pointer[string]
}

// NewProcessor creates a processor with the given configuration. Prepare
// must be called before the first ProcessBlock.
func NewProcessor(cfg config.EngineConfig, logger logging.Logger) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	p := &Processor{
		cfg:    cfg,
		logger: logger.WithFields(logging.Fields{"component": "processor"}),
	}
	empty := ""
	p.rootName.Store(&empty)

	return p, nil
}

// Prepare (re)allocates every fixed-size buffer for the negotiated sample
// rate and block size. It is the only reconfiguration point and must never
// run concurrently with ProcessBlock.
func (p *Processor) Prepare(sampleRate float64, blockSize int) error {
	if sampleRate <= 0 || blockSize <= 0 {
		return fmt.Errorf("invalid stream format: %.1f Hz, block %d", sampleRate, blockSize)
	}

	windowSize := max(p.cfg.MinWindowSize, 2*blockSize)
	windowSize = min(windowSize, p.cfg.MaxWindowSize)

	overlap, err := NewOverlapAnalysisBuffer(windowSize, p.cfg.OverlapRatio)
	if err != nil {
		return err
	}

	pitchParams := p.cfg.Pitch
	pitchParams.WindowSize = windowSize
	estimator, err := tonal.NewPitchEstimatorWithParams(sampleRate, pitchParams)
	if err != nil {
		return err
	}

	p.sampleRate = sampleRate
	p.blockSize = blockSize
	p.overlap = overlap
	p.pitch = estimator
	p.dcBlock = filters.NewDCRemoval()
	p.gate = temporal.NewNoiseGateWithParams(sampleRate, p.cfg.Gate)
	p.analyzer = harmonic.NewSpectralAnalyzerWithParams(sampleRate, p.cfg.Analyzer)
	p.rootTracker = tonal.NewChordRootTrackerWithParams(p.cfg.Root, p.logger)
	p.stabilizer = tonal.NewNoteStabilizerWithParams(p.cfg.Stabilizer, p.logger)
	p.voice = synth.NewBassVoiceWithParams(sampleRate, p.cfg.Voice, p.logger)
	p.gated = make([]float64, blockSize)
	p.lastHeld = 0.0
	p.prepared = true

	p.logger.Info("processor prepared", logging.Fields{
		"sample_rate": sampleRate,
		"block_size":  blockSize,
		"window_size": windowSize,
		"hop_size":    overlap.HopSize(),
	})

	return nil
}

// ProcessBlock runs one block through the gate, analysis and synthesis
// pipeline. input and output must both be blockSize long; on any boundary
// violation the output is silenced and the block is otherwise skipped.
func (p *Processor) ProcessBlock(input, output []float64, params ParamSnapshot) {
	if output == nil {
		return
	}
	if !p.prepared || input == nil || len(input) != p.blockSize || len(output) != p.blockSize {
		for i := range output {
			output[i] = 0.0
		}
		return
	}

	p.applyParams(params)

	// Offset from the pickup chain would bias both the gate envelope and
	// the difference function, so it goes first
	p.dcBlock.ProcessTo(p.gated, input)
	gateOpen := p.gate.Process(p.gated, p.gated)
	inRMS := common.RMS(p.gated)
	p.inRMSBits.Store(math.Float64bits(inRMS))

	silent := !gateOpen || inRMS < p.cfg.SilenceFloor

	held := p.track(silent)
	p.drive(held, params)

	p.voice.RenderBlock(output, len(output))

	p.pitchBits.Store(math.Float64bits(held))
	p.outRMSBits.Store(math.Float64bits(common.RMS(output)))
}

// applyParams folds the per-block parameter snapshot into the components
func (p *Processor) applyParams(params ParamSnapshot) {
	threshold := common.Clamp(params.GateThresholdDB, -80.0, -20.0)
	p.gate.SetThreshold(threshold)
	p.voice.SetMode(params.Mode)
}

// track runs the analysis half of the pipeline and returns the held pitch
func (p *Processor) track(silent bool) float64 {
	if silent {
		return p.stabilizer.Observe(0, 0, true)
	}

	if !p.overlap.Push(p.gated) {
		// No analysis frame completed this block; keep the current note
		return p.stabilizer.HeldPitch()
	}

	frequency, confidence := p.pitch.Estimate(p.overlap.Frame())

	candidates := p.analyzer.FindCandidates(p.overlap.WindowedFrame())
	if len(candidates) == 0 && frequency > 0 {
		// Chord analysis found nothing usable; fall back to the
		// single-pitch estimate
		p.monoScr[0] = frequency
		candidates = p.monoScr[:]
	}

	chord := p.rootTracker.Observe(candidates, confidence)
	if chord.Valid() && chord.IsStable {
		// Publish only on change so stable blocks stay allocation-free
		if current := p.rootName.Load(); *current != chord.RootNote.Name {
			name := chord.RootNote.Name
			p.rootName.Store(&name)
		}

		// When the lag-domain estimate points at the same root it is the
		// more precise of the two and drives the stabilizer; the spectral
		// path keeps contributing the note identity.
		target := chord.RootNote.Frequency
		targetConf := chord.Confidence
		if frequency > 0 && tonal.SemitoneDistance(frequency, target) <= rootRefineSemitones {
			target = frequency
			if confidence > targetConf {
				targetConf = confidence
			}
		}
		return p.stabilizer.Observe(target, targetConf, false)
	}

	return p.stabilizer.Observe(frequency, confidence, false)
}

// drive points the synthesis voice at the held pitch, applying the octave
// shift, and resets the voice once when the note fully releases
func (p *Processor) drive(held float64, params ParamSnapshot) {
	if held <= 0 {
		if p.lastHeld > 0 {
			p.voice.Reset()
		}
		p.voice.SetFrequency(0)
		p.voice.SetAmplitude(0)
		p.lastHeld = 0.0
		return
	}

	shift := params.OctaveShift
	if shift < 0 {
		shift = 0
	}
	if shift > 4 {
		shift = 4
	}

	target := held / math.Pow(2.0, float64(shift))
	p.voice.SetFrequency(target)
	p.voice.SetAmplitude(0.8)
	p.lastHeld = held
}

// DrainMIDIEvents copies pending piano-mode MIDI events into dst and clears
// the queue. Returns the number of events written.
func (p *Processor) DrainMIDIEvents(dst []synth.MIDIEvent) int {
	if !p.prepared {
		return 0
	}
	return p.voice.DrainEvents(dst)
}

// CurrentPitch returns the held pitch in Hz for display
func (p *Processor) CurrentPitch() float64 {
	return math.Float64frombits(p.pitchBits.Load())
}

// InputRMS returns the gated input level of the last block
func (p *Processor) InputRMS() float64 {
	return math.Float64frombits(p.inRMSBits.Load())
}

// OutputRMS returns the synthesized output level of the last block
func (p *Processor) OutputRMS() float64 {
	return math.Float64frombits(p.outRMSBits.Load())
}

// CurrentRootName returns the name of the last committed stable chord root,
// empty when none has been committed
func (p *Processor) CurrentRootName() string {
	return *p.rootName.Load()
}

// CurrentBassString returns the bass string closest to the current pitch
// for display, and false when no pitch is held
func (p *Processor) CurrentBassString() (tonal.BassString, bool) {
	pitch := p.CurrentPitch()
	if pitch <= 0 {
		return tonal.BassString{}, false
	}
	return tonal.ClosestBassString(pitch), true
}

// Reset clears all tracking and synthesis state without reallocating.
// Called on stream restart.
func (p *Processor) Reset() {
	if !p.prepared {
		return
	}

	p.dcBlock.Reset()
	p.gate.Reset()
	p.overlap.Reset()
	p.rootTracker.Reset()
	p.stabilizer.Reset()
	p.voice.Reset()
	p.lastHeld = 0.0

	empty := ""
	p.rootName.Store(&empty)
	p.pitchBits.Store(0)
	p.inRMSBits.Store(0)
	p.outRMSBits.Store(0)
}
