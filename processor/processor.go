// Package processor conditions raw spectra into bar values on a background
// worker while a render loop submits frames and reads results without
// blocking.
package processor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noriah/barflow/dsp"
	"github.com/noriah/barflow/util"
)

// DefaultPollInterval bounds how long an idle worker sleeps before checking
// for cancellation again.
const DefaultPollInterval = 50 * time.Millisecond

// FrameContext is the per-frame context sent with a spectrum.
type FrameContext struct {
	// Scale multiplies scaled values before they are clamped to [0, 1].
	// 0 means 1.
	Scale float64
	// SourceLength limits how much of the spectrum is scanned. 0 scans it
	// all.
	SourceLength int
}

// Config is the processor configuration.
type Config struct {
	Engine       dsp.EngineConfig // smoothing and peak settings
	PoolSlots    int              // idle buffers kept per pool
	PollInterval time.Duration    // worker idle wakeup

	// Smoother replaces the configured smoothing model when set.
	Smoother dsp.Smoother

	Clock        func() time.Time // time source, time.Now when nil
	Logger       *slog.Logger     // slog.Default when nil
	ErrorHandler func(error)      // called for dropped cycles, logs when nil
}

// NewZeroConfig returns the default processor config.
func NewZeroConfig() Config {
	return Config{
		Engine:       dsp.DefaultEngineConfig(),
		PoolSlots:    util.DefaultPoolSlots,
		PollInterval: DefaultPollInterval,
	}
}

// frame is one submitted spectrum. spectrum is a pooled copy.
type frame struct {
	spectrum []float64
	bars     int
	ctx      FrameContext
	seq      uint64
}

// Processor owns one conditioning pipeline: a pending frame slot, a worker
// goroutine with its engine, and the handoff to the render side.
//
// Submit and Bars belong to the render loop and must be called from one
// goroutine. Configure, Stats and Stop may be called from anywhere.
type Processor struct {
	poll  time.Duration
	clock func() time.Time
	epoch time.Time

	log     *slog.Logger
	onError func(error)

	specPool *util.BufferPool // spectrum copies and scratch
	barPool  *util.BufferPool // bar values and per-bar state

	// pending frame, latest wins
	slotMu  sync.Mutex
	slot    frame
	pending bool
	kick    chan struct{}

	handoff  *handoff
	expected atomic.Int64 // bar count of the newest submitted frame

	engine     *dsp.Engine
	pendingCfg atomic.Pointer[dsp.EngineConfig]
	latestCfg  atomic.Pointer[dsp.EngineConfig]

	// render side only. the fallback is double buffered so the slot handed
	// out by the last Bars call is never rewritten before the next one.
	seq       uint64
	current   *generation
	shown     *generation
	fallbacks [2]generation
	fbScratch []float64
	fbSpread  []float64

	stats *stats

	runMu   sync.Mutex
	started bool
	stopped atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New returns a processor. call Start to run the worker.
func New(cfg Config) *Processor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cfg.Engine.Sanitize()

	proc := &Processor{
		poll:     cfg.PollInterval,
		clock:    cfg.Clock,
		epoch:    cfg.Clock(),
		log:      cfg.Logger,
		onError:  cfg.ErrorHandler,
		specPool: util.NewBufferPool(cfg.PoolSlots),
		barPool:  util.NewBufferPool(cfg.PoolSlots),
		kick:     make(chan struct{}, 1),
		handoff:  newHandoff(),
		stats:    newStats(),
	}

	if proc.onError == nil {
		proc.onError = func(err error) {
			proc.log.Warn("dropped generation", "error", err)
		}
	}

	proc.engine = dsp.NewEngine(cfg.Engine, proc.barPool, proc.specPool)
	if cfg.Smoother != nil {
		proc.engine.SetSmoother(cfg.Smoother)
	}

	engineCfg := cfg.Engine
	proc.latestCfg.Store(&engineCfg)

	return proc
}

// Start runs the worker until ctx is done or Stop is called. the returned
// context is cancelled when the worker is told to stop. calling Start again,
// or after Stop, does nothing.
func (proc *Processor) Start(ctx context.Context) context.Context {
	proc.runMu.Lock()
	defer proc.runMu.Unlock()

	if proc.started || proc.stopped.Load() {
		if proc.ctx != nil {
			return proc.ctx
		}
		return ctx
	}

	proc.started = true
	proc.ctx, proc.cancel = context.WithCancel(ctx)

	proc.wg.Add(1)
	go proc.run(proc.ctx)

	return proc.ctx
}

// Stop shuts the worker down and waits for it to exit, which takes at most
// one poll interval plus the cycle in flight. later Submit calls are
// ignored and Bars keeps returning the last generation.
func (proc *Processor) Stop() {
	proc.stopped.Store(true)

	proc.runMu.Lock()
	cancel := proc.cancel
	proc.runMu.Unlock()

	if cancel != nil {
		cancel()
	}

	proc.wg.Wait()
	proc.stats.setState(StateStopped)
}

// Configure replaces the engine settings. the worker picks them up at the
// start of its next cycle.
func (proc *Processor) Configure(cfg dsp.EngineConfig) {
	cfg.Sanitize()

	pending := cfg
	proc.pendingCfg.Store(&pending)
	proc.latestCfg.Store(&cfg)
}

// Stats returns a snapshot of the processor counters.
func (proc *Processor) Stats() Stats {
	return proc.stats.snapshot()
}

// Submit hands a spectrum to the worker and returns at once. spectrum is
// copied, so the caller may reuse it. a frame that has not been picked up
// yet is replaced. empty spectra and bars < 1 are ignored.
func (proc *Processor) Submit(spectrum []float64, bars int, fc FrameContext) {
	if len(spectrum) == 0 || bars < 1 || proc.stopped.Load() {
		return
	}

	proc.seq++

	buf := proc.specPool.Acquire(len(spectrum))
	copy(buf, spectrum)

	next := frame{
		spectrum: buf,
		bars:     bars,
		ctx:      fc,
		seq:      proc.seq,
	}

	proc.expected.Store(int64(bars))

	proc.slotMu.Lock()
	old, hadOld := proc.slot, proc.pending
	proc.slot, proc.pending = next, true
	proc.slotMu.Unlock()

	if hadOld {
		proc.specPool.Release(old.spectrum)
		proc.stats.superseded.Add(1)
	}

	proc.stats.submitted.Add(1)

	select {
	case proc.kick <- struct{}{}:
	default:
	}

	if proc.needFallback(bars) {
		proc.computeFallback(spectrum, bars, fc)
	}
}

// Bars returns the newest bar values. it never waits on the worker: if no
// newer generation is ready the previous one is returned again. the result
// is valid until the next call to Bars.
func (proc *Processor) Bars() BarValues {
	var minSeq uint64
	if proc.current != nil {
		minSeq = proc.current.seq
	}

	if gen := proc.handoff.take(minSeq, int(proc.expected.Load())); gen != nil {
		proc.current = gen
	}

	proc.shown = proc.current

	if proc.current == nil {
		return BarValues{}
	}

	return proc.current.values
}

// needFallback reports whether the render side has nothing of the right
// size to show. that is the case before the first generation and after a
// bar count change until the worker catches up.
func (proc *Processor) needFallback(bars int) bool {
	switch {
	case proc.current == nil, proc.current.values.Len() != bars:
		return true
	case proc.isFallback(proc.current):
		return !proc.handoff.published(bars)
	default:
		return false
	}
}

func (proc *Processor) isFallback(gen *generation) bool {
	return gen == &proc.fallbacks[0] || gen == &proc.fallbacks[1]
}

// computeFallback fills a fallback generation straight from spectrum, with
// the spread filter but without smoothing. peaks sit on the bars.
func (proc *Processor) computeFallback(spectrum []float64, bars int, fc FrameContext) {
	cfg := proc.latestCfg.Load()

	length := dsp.EffectiveLength(len(spectrum), fc.SourceLength)
	if cap(proc.fbScratch) < length {
		proc.specPool.Release(proc.fbScratch)
		proc.fbScratch = proc.specPool.Acquire(length)
	}

	if cap(proc.fbSpread) < bars {
		proc.barPool.Release(proc.fbSpread)
		proc.fbSpread = proc.barPool.Acquire(bars)
	}

	gen := &proc.fallbacks[0]
	if gen == proc.shown {
		gen = &proc.fallbacks[1]
	}

	gen.resize(proc.barPool, bars)
	gen.seq = proc.seq

	sc := dsp.Scaler{Blend: cfg.PeakBlend}
	sc.Scale(gen.values.Heights, spectrum, proc.fbScratch[:cap(proc.fbScratch)], fc.SourceLength)
	dsp.Normalize(gen.values.Heights, fc.Scale)
	cfg.Filter.Apply(gen.values.Heights, proc.fbSpread[:bars], cfg.FilterFactor)
	copy(gen.values.Peaks, gen.values.Heights)

	proc.current = gen
}
