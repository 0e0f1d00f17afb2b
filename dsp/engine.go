package dsp

import (
	"time"

	"github.com/noriah/barflow/util"
)

// Engine turns raw spectra into smoothed bar heights and peaks. it keeps
// per-bar state between calls and is not safe for concurrent use.
type Engine struct {
	cfg EngineConfig

	scaler   Scaler
	smoother Smoother
	custom   bool // smoother was set by SetSmoother
	peaks    PeakTracker

	state State

	scaled  []float64 // scaled targets, one per bar
	spread  []float64 // filter scratch, one per bar
	scratch []float64 // sanitized spectrum copy

	barPool  *util.BufferPool
	specPool *util.BufferPool
}

// NewEngine returns an engine drawing bar sized buffers from barPool and
// spectrum sized scratch from specPool. nil pools get private ones.
func NewEngine(cfg EngineConfig, barPool, specPool *util.BufferPool) *Engine {
	if barPool == nil {
		barPool = util.NewBufferPool(util.DefaultPoolSlots)
	}

	if specPool == nil {
		specPool = util.NewBufferPool(util.DefaultPoolSlots)
	}

	e := &Engine{
		barPool:  barPool,
		specPool: specPool,
	}

	e.Configure(cfg)

	return e
}

// Configure replaces the engine settings. per-bar state is kept unless the
// smoothing method or the variant changes, since the old values and
// velocities mean nothing to the new model.
func (e *Engine) Configure(cfg EngineConfig) {
	cfg.Sanitize()

	if cfg.Method != e.cfg.Method || cfg.Variant != e.cfg.Variant {
		e.Reset()
	}

	e.cfg = cfg
	e.scaler = Scaler{Blend: cfg.PeakBlend, Workers: cfg.ScaleWorkers}
	e.peaks = NewPeakTracker(cfg)

	if !e.custom {
		e.smoother = NewSmoother(cfg)
	}
}

// Config returns the sanitized settings in use.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// SetSmoother swaps in a custom smoothing model. it survives Configure.
// nil goes back to the configured model.
func (e *Engine) SetSmoother(sm Smoother) {
	if sm == nil {
		e.custom = false
		e.smoother = NewSmoother(e.cfg)
		return
	}

	e.custom = true
	e.smoother = sm
}

// Bars returns the bar count of the current state.
func (e *Engine) Bars() int {
	return e.state.Len()
}

// Process runs one cycle over spectrum and writes len(heights) bars into
// heights and peaks, which must have the same length.
//
// srcLen limits how much of spectrum is scanned (0 scans it all), scale
// multiplies the scaled values before they are clamped to [0, 1], and now
// is the time since the engine's owner started, used for peak hold.
func (e *Engine) Process(heights, peaks, spectrum []float64, srcLen int, scale float64, now time.Duration) {
	bars := len(heights)
	if bars == 0 {
		return
	}

	if e.state.Resize(e.barPool, bars) {
		e.barPool.Release(e.scaled)
		e.barPool.Release(e.spread)
		e.scaled = e.barPool.Acquire(bars)
		e.spread = e.barPool.Acquire(bars)
	}

	length := EffectiveLength(len(spectrum), srcLen)
	if cap(e.scratch) < length {
		e.specPool.Release(e.scratch)
		e.scratch = e.specPool.Acquire(length)
	}

	e.scaler.Scale(e.scaled, spectrum, e.scratch[:cap(e.scratch)], srcLen)
	Normalize(e.scaled, scale)
	e.cfg.Filter.Apply(e.scaled, e.spread, e.cfg.FilterFactor)

	if e.state.fresh && e.cfg.SeedFromFirst {
		copy(e.state.Values, e.scaled)
	}

	for xBar, target := range e.scaled {
		h := e.smoother.SmoothBin(&e.state, xBar, target)
		heights[xBar] = h
		peaks[xBar] = e.peaks.Track(&e.state, xBar, h, now)
	}

	e.state.fresh = false
}

// Reset forgets all per-bar state.
func (e *Engine) Reset() {
	e.state.Release(e.barPool)
}

// Release hands every buffer the engine holds back to its pools.
func (e *Engine) Release() {
	e.state.Release(e.barPool)

	for _, buf := range [...]*[]float64{&e.scaled, &e.spread} {
		if *buf != nil {
			e.barPool.Release(*buf)
			*buf = nil
		}
	}

	if e.scratch != nil {
		e.specPool.Release(e.scratch)
		e.scratch = nil
	}
}
