package processor

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/noriah/barflow/dsp"
	"github.com/pkg/errors"
)

const (
	BinSize = 1024
	BarSize = 64
)

func quietConfig() Config {
	cfg := NewZeroConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg
}

func startProcessor(t *testing.T, cfg Config) *Processor {
	t.Helper()

	proc := New(cfg)
	proc.Start(context.Background())
	t.Cleanup(proc.Stop)

	return proc
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitPublished(t *testing.T, proc *Processor, n uint64) {
	t.Helper()
	waitFor(t, "publish", func() bool { return proc.Stats().Published >= n })
}

func near(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-12 {
			return false
		}
	}

	return true
}

func TestProcessorColdStartAndFirstGeneration(t *testing.T) {
	t.Parallel()

	proc := startProcessor(t, quietConfig())

	spectrum := []float64{0, 0, 0, 0, 1, 1, 1, 1}
	proc.Submit(spectrum, 2, FrameContext{})

	// nothing published yet, so the render side gets the unsmoothed values
	// or, if the worker was quick, the first generation
	bars := proc.Bars()
	if !near(bars.Heights, []float64{0, 1}) && !near(bars.Heights, []float64{0, 0.3}) {
		t.Fatalf("cold Bars() = %v, want [0 1] or [0 0.3]", bars.Heights)
	}

	waitPublished(t, proc, 1)

	bars = proc.Bars()
	if !near(bars.Heights, []float64{0, 0.3}) {
		t.Errorf("Bars() = %v, want [0 0.3]", bars.Heights)
	}

	for i := 0; i < bars.Len(); i++ {
		if b := bars.At(i); b.Peak < b.Height {
			t.Errorf("bar %d: peak %v below height %v", i, b.Peak, b.Height)
		}
	}
}

func TestProcessorBarsBeforeSubmit(t *testing.T) {
	t.Parallel()

	proc := New(quietConfig())

	if got := proc.Bars(); got.Len() != 0 {
		t.Errorf("Bars() before Submit len = %d, want 0", got.Len())
	}
}

func TestProcessorEmptySpectrumKeepsGeneration(t *testing.T) {
	t.Parallel()

	proc := startProcessor(t, quietConfig())

	proc.Submit([]float64{1, 1, 1, 1}, 2, FrameContext{})
	waitPublished(t, proc, 1)

	before := append([]float64(nil), proc.Bars().Heights...)
	submitted := proc.Stats().Submitted

	proc.Submit(nil, 2, FrameContext{})
	proc.Submit([]float64{}, 2, FrameContext{})
	proc.Submit([]float64{1}, 0, FrameContext{})

	if got := proc.Stats().Submitted; got != submitted {
		t.Errorf("Submitted = %d, want %d", got, submitted)
	}

	if got := proc.Bars().Heights; !near(got, before) {
		t.Errorf("Bars() = %v, want unchanged %v", got, before)
	}
}

func TestProcessorBarCountChange(t *testing.T) {
	t.Parallel()

	proc := startProcessor(t, quietConfig())

	spectrum := make([]float64, BinSize)
	for i := range spectrum {
		spectrum[i] = float64(i%7) / 7
	}

	proc.Submit(spectrum, 64, FrameContext{})
	waitPublished(t, proc, 1)

	if got := proc.Bars().Len(); got != 64 {
		t.Fatalf("Bars() len = %d, want 64", got)
	}

	counts := []int{32, 32, 64, 17, 128, 32}

	for i := 0; i < 2000; i++ {
		n := counts[i%len(counts)]

		proc.Submit(spectrum, n, FrameContext{})

		if got := proc.Bars().Len(); got != n {
			t.Fatalf("frame %d: Bars() len = %d, want %d", i, got, n)
		}
	}

	proc.Submit(spectrum, 32, FrameContext{})
	published := proc.Stats().Published
	waitPublished(t, proc, published+1)

	if got := proc.Bars().Len(); got != 32 {
		t.Errorf("settled Bars() len = %d, want 32", got)
	}
}

func TestProcessorFreshness(t *testing.T) {
	t.Parallel()

	cfg := quietConfig()
	// slow cycles so frames pile up behind the worker
	cfg.Smoother = sleepySmoother(20 * time.Microsecond)
	proc := startProcessor(t, cfg)

	spectrum := make([]float64, 256)
	var lastSeq uint64
	var adopted int

	for i := 0; i < 3000; i++ {
		spectrum[i%len(spectrum)] = float64(i%5) / 5

		published := proc.Stats().Published
		proc.Submit(spectrum, BarSize, FrameContext{})

		// let the worker through every so often, even with one P
		if i%100 == 99 {
			waitPublished(t, proc, published+1)
		}

		proc.Bars()

		if proc.current.seq < lastSeq {
			t.Fatalf("frame %d: saw generation %d after %d", i, proc.current.seq, lastSeq)
		}

		if proc.current.seq > lastSeq && !proc.isFallback(proc.current) {
			adopted++
		}
		lastSeq = proc.current.seq
	}

	if adopted < 20 {
		t.Errorf("render side adopted %d worker generations, want at least 20", adopted)
	}
}

func TestProcessorLatestWins(t *testing.T) {
	t.Parallel()

	proc := New(quietConfig())
	t.Cleanup(proc.Stop)

	proc.Submit([]float64{0.1, 0.1}, 1, FrameContext{})
	proc.Submit([]float64{0.2, 0.2}, 1, FrameContext{})
	proc.Submit([]float64{1, 1}, 1, FrameContext{})

	if got := proc.Stats().Superseded; got != 2 {
		t.Errorf("Superseded = %d, want 2", got)
	}

	proc.Start(context.Background())
	waitPublished(t, proc, 1)

	// only the newest frame was processed: one rise step toward 1
	if got := proc.Bars().Heights; !near(got, []float64{dsp.DefaultRiseFactor}) {
		t.Errorf("Bars() = %v, want [%v]", got, dsp.DefaultRiseFactor)
	}

	if got := proc.Stats().Published; got != 1 {
		t.Errorf("Published = %d, want 1", got)
	}
}

func TestProcessorConfigure(t *testing.T) {
	t.Parallel()

	proc := startProcessor(t, quietConfig())

	cfg := dsp.DefaultEngineConfig()
	cfg.RiseFactor = 1
	proc.Configure(cfg)

	proc.Submit([]float64{0.8, 0.8}, 1, FrameContext{})
	waitPublished(t, proc, 1)

	if got := proc.Bars().Heights; !near(got, []float64{0.8}) {
		t.Errorf("Bars() = %v, want [0.8]", got)
	}
}

func TestProcessorModelChangeStartsClean(t *testing.T) {
	t.Parallel()

	cfg := quietConfig()
	cfg.Engine.RiseFactor = 1
	proc := startProcessor(t, cfg)

	proc.Submit([]float64{1, 1}, 1, FrameContext{})
	waitPublished(t, proc, 1)

	if got := proc.Bars().Heights; !near(got, []float64{1}) {
		t.Fatalf("Bars() = %v, want [1]", got)
	}

	engine := cfg.Engine
	engine.Method = dsp.MethodSpring
	proc.Configure(engine)

	proc.Submit([]float64{1, 1}, 1, FrameContext{})
	waitPublished(t, proc, 2)

	// a spring carried over from height 1 would stay at 1
	if got := proc.Bars().Heights; !near(got, []float64{0.42}) {
		t.Errorf("Bars() after switching to spring = %v, want [0.42]", got)
	}
}

func TestProcessorFallbackFilter(t *testing.T) {
	t.Parallel()

	cfg := quietConfig()
	cfg.Engine.Filter = dsp.FilterMonstercat
	cfg.Engine.FilterFactor = 2
	proc := New(cfg)
	t.Cleanup(proc.Stop)

	// no worker, so this is the fallback
	proc.Submit([]float64{1, 1, 0, 0, 0, 0}, 3, FrameContext{})

	bars := proc.Bars()
	if !near(bars.Heights, []float64{1, 0.5, 0.25}) {
		t.Errorf("fallback heights = %v, want [1 0.5 0.25]", bars.Heights)
	}

	if !near(bars.Peaks, bars.Heights) {
		t.Errorf("fallback peaks = %v, want %v", bars.Peaks, bars.Heights)
	}
}

func TestProcessorFallbackKeepsShownValues(t *testing.T) {
	t.Parallel()

	proc := New(quietConfig())
	t.Cleanup(proc.Stop)

	proc.Submit([]float64{0.2, 0.4, 0.6, 0.8}, 2, FrameContext{})
	shown := proc.Bars()

	// both refill the fallback before the next Bars call, the second one
	// at a new size
	proc.Submit([]float64{1, 1, 1, 1}, 2, FrameContext{})
	proc.Submit([]float64{1, 1, 1, 1, 1, 1, 1, 1}, 4, FrameContext{})

	// scribble over every idle bar buffer
	for proc.barPool.Idle() > 0 {
		buf := proc.barPool.Acquire(0)
		buf = buf[:cap(buf)]
		for i := range buf {
			buf[i] = 9
		}
	}

	if !near(shown.Heights, []float64{0.3, 0.7}) || !near(shown.Peaks, []float64{0.3, 0.7}) {
		t.Errorf("shown values changed before the next Bars: %v / %v", shown.Heights, shown.Peaks)
	}

	if got := proc.Bars(); !near(got.Heights, []float64{1, 1, 1, 1}) {
		t.Errorf("Bars() = %v, want [1 1 1 1]", got.Heights)
	}
}

func TestStatsRecalculatesCycleWindow(t *testing.T) {
	t.Parallel()

	s := newStats()

	// a huge cycle swallows the small ones in the running sums, so after it
	// leaves the window only a rebuild gets the mean right again
	s.observe(9e9 * time.Second)
	for i := 1; i < 2*cycleWindow; i++ {
		s.observe(100 * time.Nanosecond)
	}

	if got := s.snapshot().CycleMean; got < 99*time.Nanosecond || got > 101*time.Nanosecond {
		t.Errorf("CycleMean = %v, want about 100ns", got)
	}
}

func TestProcessorScaleContext(t *testing.T) {
	t.Parallel()

	cfg := quietConfig()
	cfg.Engine.RiseFactor = 1
	proc := startProcessor(t, cfg)

	proc.Submit([]float64{0.1, 0.2, 50, 50}, 2, FrameContext{Scale: 2, SourceLength: 2})
	waitPublished(t, proc, 1)

	if got := proc.Bars().Heights; !near(got, []float64{0.2, 0.4}) {
		t.Errorf("Bars() = %v, want [0.2 0.4]", got)
	}
}

type panicSmoother struct {
	left atomic.Int32
}

func (ps *panicSmoother) SmoothBin(st *dsp.State, idx int, target float64) float64 {
	if ps.left.Add(-1) >= 0 {
		panic("bad frame")
	}

	st.Values[idx] = target
	return target
}

func TestProcessorSurvivesFaults(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var errs []error

	ps := &panicSmoother{}
	ps.left.Store(2)

	cfg := quietConfig()
	cfg.Smoother = ps
	cfg.ErrorHandler = func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	proc := startProcessor(t, cfg)

	for i := 0; i < 3; i++ {
		proc.Submit([]float64{0.5}, 1, FrameContext{})
		waitFor(t, "cycle", func() bool {
			s := proc.Stats()
			return s.Faults+s.Published == uint64(i+1)
		})
	}

	stats := proc.Stats()
	if stats.Faults != 2 || stats.Published != 1 {
		t.Fatalf("Faults, Published = %d, %d, want 2, 1", stats.Faults, stats.Published)
	}

	mu.Lock()
	defer mu.Unlock()

	if len(errs) != 2 {
		t.Fatalf("ErrorHandler called %d times, want 2", len(errs))
	}

	for _, err := range errs {
		if !errors.Is(err, ErrCyclePanic) {
			t.Errorf("error = %v, want ErrCyclePanic", err)
		}
	}

	if got := proc.Bars().Heights; !near(got, []float64{0.5}) {
		t.Errorf("Bars() = %v, want [0.5]", got)
	}
}

func TestProcessorStop(t *testing.T) {
	t.Parallel()

	cfg := quietConfig()
	cfg.PollInterval = 20 * time.Millisecond

	proc := New(cfg)
	ctx := proc.Start(context.Background())

	proc.Submit([]float64{1, 1}, 2, FrameContext{})
	waitPublished(t, proc, 1)
	last := append([]float64(nil), proc.Bars().Heights...)

	done := make(chan struct{})
	go func() {
		proc.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() did not return")
	}

	if ctx.Err() == nil {
		t.Error("Start() context not cancelled by Stop()")
	}

	if got := proc.Stats().State; got != StateStopped {
		t.Errorf("State = %v, want stopped", got)
	}

	submitted := proc.Stats().Submitted
	proc.Submit([]float64{0, 0}, 2, FrameContext{})

	if got := proc.Stats().Submitted; got != submitted {
		t.Errorf("Submit() after Stop() was accepted")
	}

	if got := proc.Bars().Heights; !near(got, last) {
		t.Errorf("Bars() after Stop() = %v, want %v", got, last)
	}

	// idempotent
	proc.Stop()
	proc.Start(context.Background())
}

func TestProcessorParentCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	proc := New(quietConfig())
	proc.Start(ctx)
	cancel()

	waitFor(t, "worker exit", func() bool {
		return proc.Stats().State == StateStopped
	})

	proc.Stop()
}

func TestProcessorNoPoolGrowth(t *testing.T) {
	t.Parallel()

	proc := startProcessor(t, quietConfig())

	spectrum := make([]float64, BinSize)

	for i := 0; i < 500; i++ {
		spectrum[i%BinSize] = 1
		proc.Submit(spectrum, BarSize, FrameContext{})
		waitPublished(t, proc, uint64(i+1))
		proc.Bars()
	}

	if got := proc.specPool.Allocs(); got > 8 {
		t.Errorf("spectrum pool allocs = %d, want a handful", got)
	}

	if got := proc.barPool.Allocs(); got > 24 {
		t.Errorf("bar pool allocs = %d, want a handful", got)
	}
}

type sleepySmoother time.Duration

func (s sleepySmoother) SmoothBin(st *dsp.State, idx int, target float64) float64 {
	if idx == 0 {
		time.Sleep(time.Duration(s))
	}

	st.Values[idx] = target
	return target
}

func BenchmarkSubmitBars(b *testing.B) {
	proc := New(quietConfig())
	proc.Start(context.Background())
	defer proc.Stop()

	spectrum := make([]float64, BinSize)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		proc.Submit(spectrum, BarSize, FrameContext{})
		proc.Bars()
	}
}
