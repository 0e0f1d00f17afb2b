package main

import (
	"errors"
	"time"

	"github.com/noriah/barflow/dsp"
	"github.com/noriah/barflow/graphic"
)

// config holds the command line settings before they are turned into
// library configs.
type config struct {
	// backend is the input backend name from list-backends
	backend string
	// sampleRate is the rate at which samples are read
	sampleRate float64
	// sampleSize is the number of samples per transform
	sampleSize int
	// channelCount is the number of interleaved channels on a reader backend
	channelCount int
	// frameRate is the number of frames drawn every second
	frameRate int
	// bars is the bar count for raw output
	bars int
	// maxFreq is the highest frequency shown
	maxFreq float64
	// scale multiplies magnitudes before clamping
	scale float64
	// window is the fft window name
	window string

	// method is the smoothing method name
	method string
	// riseFactor and fallFactor drive the exponential method
	riseFactor float64
	fallFactor float64
	// stiffness and damping drive the spring method
	stiffness float64
	damping   float64
	// peakHold in milliseconds
	peakHold int
	// peakFall per frame
	peakFall float64
	// peakBlend is the weight of the block max when scaling
	peakBlend float64
	// filter is the spread filter name
	filter string
	// filterFactor is the filter strength
	filterFactor float64
	// overlay turns peak markers off
	overlay bool
	// seed starts bars at their first value
	seed bool
	// workers splits scaling
	workers int

	// baseSize number of rows the base is
	baseSize int
	// barSize is the width of bars, in columns
	barSize int
	// spaceSize is the width of spaces, in columns
	spaceSize int

	// raw prints numbers instead of drawing
	raw bool
	// float64 reads float64 samples from reader backends
	float64 bool
	// verbose logs at debug level
	verbose bool
}

func newZeroConfig() config {
	engine := dsp.DefaultEngineConfig()
	display := graphic.NewZeroConfig()

	return config{
		backend:      "synth",
		sampleRate:   44100,
		sampleSize:   2048,
		channelCount: 1,
		frameRate:    60,
		bars:         32,
		maxFreq:      12000,
		scale:        1.5,
		window:       "hann",
		method:       engine.Method.String(),
		riseFactor:   engine.RiseFactor,
		fallFactor:   engine.FallFactor,
		stiffness:    engine.Stiffness,
		damping:      engine.Damping,
		peakHold:     int(engine.PeakHold / time.Millisecond),
		peakFall:     engine.PeakFall,
		filter:       engine.Filter.String(),
		workers:      1,
		baseSize:     display.BaseThick,
		barSize:      display.BarWidth,
		spaceSize:    display.SpaceWidth,
	}
}

func (cfg *config) validate() error {
	switch {
	case cfg.bars < 1:
		return errors.New("too few bars (1 min)")

	case cfg.peakHold < 0:
		return errors.New("peak hold is negative")

	case cfg.barSize < 1:
		return errors.New("bar width too small (1 min)")

	case cfg.spaceSize < 0 || cfg.baseSize < 0:
		return errors.New("space and base sizes must not be negative")
	}

	return nil
}

// engineConfig builds the smoothing settings. the result is sanitized by
// the processor.
func (cfg *config) engineConfig() (dsp.EngineConfig, error) {
	engine := dsp.DefaultEngineConfig()

	method, err := dsp.ParseMethod(cfg.method)
	if err != nil {
		return engine, err
	}

	filter, err := dsp.ParseFilter(cfg.filter)
	if err != nil {
		return engine, err
	}

	engine.Method = method
	engine.RiseFactor = cfg.riseFactor
	engine.FallFactor = cfg.fallFactor
	engine.Stiffness = cfg.stiffness
	engine.Damping = cfg.damping
	engine.PeakHold = time.Duration(cfg.peakHold) * time.Millisecond
	engine.PeakFall = cfg.peakFall
	engine.PeakBlend = cfg.peakBlend
	engine.Filter = filter
	engine.FilterFactor = cfg.filterFactor
	engine.SeedFromFirst = cfg.seed
	engine.ScaleWorkers = cfg.workers

	if cfg.overlay {
		engine.Variant = dsp.VariantOverlay
	}

	return engine, nil
}
