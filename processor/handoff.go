package processor

import (
	"sync"

	"github.com/noriah/barflow/util"
)

// Bar is one bar of a generation.
type Bar struct {
	Height float64 // smoothed height in [0, 1]
	Peak   float64 // peak marker height in [0, 1]
}

// BarValues is one generation of bar heights and peaks. the slices are
// owned by the processor and stay valid until the next call to Bars.
type BarValues struct {
	Heights []float64
	Peaks   []float64
}

// Len returns the number of bars.
func (bv BarValues) Len() int {
	return len(bv.Heights)
}

// At returns bar i.
func (bv BarValues) At(i int) Bar {
	return Bar{Height: bv.Heights[i], Peak: bv.Peaks[i]}
}

// generation is one publishable set of bar values and the sequence number
// of the submitted frame it was computed from.
type generation struct {
	values BarValues
	seq    uint64
}

// resize makes g hold bars bars, trading buffers with pool when the size
// changes.
func (g *generation) resize(pool *util.BufferPool, bars int) {
	if g.values.Len() == bars && g.values.Heights != nil {
		return
	}

	g.release(pool)
	g.values.Heights = pool.Acquire(bars)
	g.values.Peaks = pool.Acquire(bars)
}

func (g *generation) release(pool *util.BufferPool) {
	if g.values.Heights != nil {
		pool.Release(g.values.Heights)
		pool.Release(g.values.Peaks)
	}

	g.values = BarValues{}
}

// handoff passes finished generations from the worker to the render side
// without copying.
//
// there are three slots. the worker owns write, the render side owns read,
// and middle holds the newest published generation until one of them
// claims it. publishing and taking both swap pointers under mu, so the
// render side never holds a slot the worker is writing.
type handoff struct {
	mu sync.Mutex

	write  *generation
	middle *generation
	read   *generation

	// dirty is set when middle holds a generation the render side has not
	// seen yet.
	dirty bool

	// lastBars is the bar count of the newest published generation, 0 if
	// none was ever published.
	lastBars int
}

func newHandoff() *handoff {
	return &handoff{
		write:  &generation{},
		middle: &generation{},
		read:   &generation{},
	}
}

// writer returns the worker's slot. worker only.
func (h *handoff) writer() *generation {
	return h.write
}

// publish makes the worker's slot the newest generation and hands the
// worker the previous middle slot. worker only.
func (h *handoff) publish() {
	h.mu.Lock()
	h.write, h.middle = h.middle, h.write
	h.dirty = true
	h.lastBars = h.middle.values.Len()
	h.mu.Unlock()
}

// take claims the newest generation if it has bars bars and is at least as
// fresh as minSeq. a published generation that fails either check is
// discarded. returns nil when nothing was claimed. render side only.
func (h *handoff) take(minSeq uint64, bars int) *generation {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty {
		return nil
	}

	h.dirty = false

	if h.middle.seq < minSeq || h.middle.values.Len() != bars {
		return nil
	}

	h.read, h.middle = h.middle, h.read

	return h.read
}

// published reports whether the newest published generation has bars bars.
func (h *handoff) published(bars int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.lastBars == bars
}
