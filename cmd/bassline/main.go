// Command bassline runs the guitar-to-bass engine as a standalone app:
// it captures a mono input stream, tracks the played note or chord root,
// and plays the synthesized bass voice back on the default output.
package main

import (
	"flag"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/RyanBlaney/sonido-bajo/bassline"
	"github.com/RyanBlaney/sonido-bajo/bassline/config"
	"github.com/RyanBlaney/sonido-bajo/logging"
	"github.com/RyanBlaney/sonido-bajo/synth"
)

const (
	sampleRate      = 44100
	framesPerBuffer = 512
)

func parseMode(name string) synth.Mode {
	switch strings.ToLower(name) {
	case "analog":
		return synth.AnalogBass
	case "piano":
		return synth.Piano
	default:
		return synth.SynthBass
	}
}

func main() {
	octaveShift := flag.Int("octave", 1, "octaves to shift down (0-4)")
	mode := flag.String("mode", "synth", "voice mode: analog, synth, piano")
	gateDB := flag.Float64("gate", -50.0, "noise gate threshold in dBFS (-80..-20)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	logger := logging.NewDefaultLogger()
	if *verbose {
		logger.SetLevel(logging.DebugLevel)
	}
	logging.SetGlobalLogger(logger)

	processor, err := bassline.NewProcessor(config.DefaultEngineConfig(), logger)
	if err != nil {
		logger.Error(err, "failed to create processor")
		os.Exit(1)
	}

	if err := processor.Prepare(sampleRate, framesPerBuffer); err != nil {
		logger.Error(err, "failed to prepare processor")
		os.Exit(1)
	}

	if err := portaudio.Initialize(); err != nil {
		logger.Error(err, "failed to initialize portaudio")
		os.Exit(1)
	}
	defer portaudio.Terminate()

	params := bassline.ParamSnapshot{
		OctaveShift:     *octaveShift,
		Mode:            parseMode(*mode),
		GateThresholdDB: *gateDB,
	}

	input := make([]float64, framesPerBuffer)
	output := make([]float64, framesPerBuffer)
	midiEvents := make([]synth.MIDIEvent, 16)

	callback := func(in, out []float32) {
		for i, s := range in {
			input[i] = float64(s)
		}

		processor.ProcessBlock(input, output, params)

		for i := range out {
			out[i] = float32(output[i])
		}

		if n := processor.DrainMIDIEvents(midiEvents); n > 0 {
			for _, event := range midiEvents[:n] {
				logger.Debug("midi event", logging.Fields{
					"type":     event.Type.String(),
					"note":     event.Note,
					"velocity": event.Velocity,
				})
			}
		}
	}

	stream, err := portaudio.OpenDefaultStream(1, 1, sampleRate, framesPerBuffer, callback)
	if err != nil {
		logger.Error(err, "failed to open audio stream")
		os.Exit(1)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		logger.Error(err, "failed to start audio stream")
		os.Exit(1)
	}

	logger.Info("tracking", logging.Fields{
		"mode":    parseMode(*mode).String(),
		"octave":  *octaveShift,
		"gate_db": *gateDB,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pitch := processor.CurrentPitch()
			if pitch <= 0 {
				continue
			}
			fields := logging.Fields{
				"pitch_hz": pitch,
				"in_rms":   processor.InputRMS(),
				"out_rms":  processor.OutputRMS(),
			}
			if root := processor.CurrentRootName(); root != "" {
				fields["root"] = root
			}
			if bassString, ok := processor.CurrentBassString(); ok {
				fields["string"] = bassString.StringName
			}
			logger.Info("tracking", fields)
		case <-sigChan:
			if err := stream.Stop(); err != nil {
				logger.Error(err, "failed to stop audio stream")
			}
			logger.Info("stopped")
			return
		}
	}
}
