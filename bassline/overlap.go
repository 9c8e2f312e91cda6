package bassline

import (
	"fmt"

	"github.com/RyanBlaney/sonido-bajo/algorithms/windowing"
)

// OverlapAnalysisBuffer accumulates streaming audio into fixed-size
// overlapping analysis frames. Host block size and analysis window size are
// independent: samples are appended one at a time, and each time the window
// fills, the Hann-windowed frame is captured, the stored samples slide left
// by one hop, and the write cursor resumes at windowSize-hopSize.
//
// Known limitation: when the host block spans more than one hop, only the
// newest ready frame survives a single Push. Older frames are dropped,
// never corrupted.
type OverlapAnalysisBuffer struct {
	window     []float64
	frame      []float64
	windowed   []float64
	hann       *windowing.Hann
	windowSize int
	hopSize    int
	writeIdx   int
}

// NewOverlapAnalysisBuffer creates a buffer with the given analysis window
// size and overlap ratio. overlapRatio 0.75 gives a hop of a quarter window
// for smooth continuous tracking.
func NewOverlapAnalysisBuffer(windowSize int, overlapRatio float64) (*OverlapAnalysisBuffer, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size (%d) must be positive", windowSize)
	}
	if overlapRatio < 0 || overlapRatio >= 1.0 {
		return nil, fmt.Errorf("overlap ratio (%.2f) must be in [0, 1)", overlapRatio)
	}

	hopSize := int(float64(windowSize) * (1.0 - overlapRatio))
	if hopSize < 1 {
		hopSize = 1
	}

	return &OverlapAnalysisBuffer{
		window:     make([]float64, windowSize),
		frame:      make([]float64, windowSize),
		windowed:   make([]float64, windowSize),
		hann:       windowing.NewHann(windowSize),
		windowSize: windowSize,
		hopSize:    hopSize,
	}, nil
}

// Push appends samples and reports whether a full analysis frame became
// ready. The ready frame is read with WindowedFrame; it stays valid until
// the next Push that completes a frame.
func (ob *OverlapAnalysisBuffer) Push(samples []float64) bool {
	ready := false

	for _, s := range samples {
		ob.window[ob.writeIdx] = s
		ob.writeIdx++

		if ob.writeIdx >= ob.windowSize {
			// Capture the frame before sliding; the stored samples
			// themselves are never windowed
			copy(ob.frame, ob.window)
			_ = ob.hann.ApplyTo(ob.windowed, ob.frame)
			copy(ob.window, ob.window[ob.hopSize:])
			ob.writeIdx = ob.windowSize - ob.hopSize
			ready = true
		}
	}

	return ready
}

// Frame returns the most recent raw analysis frame. The autocorrelation
// path consumes this one: windowing would modulate the signal across the
// lag range and bury the periodicity minimum. The returned slice is reused;
// it is only meaningful after Push reported ready.
func (ob *OverlapAnalysisBuffer) Frame() []float64 {
	return ob.frame
}

// WindowedFrame returns the most recent Hann-windowed analysis frame, for
// the spectral path. The returned slice is reused; it is only meaningful
// after Push reported ready.
func (ob *OverlapAnalysisBuffer) WindowedFrame() []float64 {
	return ob.windowed
}

// WindowSize returns the analysis frame length in samples
func (ob *OverlapAnalysisBuffer) WindowSize() int {
	return ob.windowSize
}

// HopSize returns the number of new samples between consecutive frames
func (ob *OverlapAnalysisBuffer) HopSize() int {
	return ob.hopSize
}

// Reset clears the stored window, captured frames, and write cursor
func (ob *OverlapAnalysisBuffer) Reset() {
	for i := range ob.window {
		ob.window[i] = 0.0
		ob.frame[i] = 0.0
		ob.windowed[i] = 0.0
	}
	ob.writeIdx = 0
}
