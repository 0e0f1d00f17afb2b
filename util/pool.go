package util

import "sync/atomic"

// DefaultPoolSlots is the number of idle buffers a pool keeps around.
const DefaultPoolSlots = 16

// BufferPool recycles float64 buffers for a single role (spectrum copies,
// bar values, per-bar state).
//
// idle buffers sit in a buffered channel. a full channel means the pool has
// no spare capacity and released buffers are left to the garbage collector.
// an empty channel means Acquire allocates. neither case is an error.
//
// the pool does not track ownership. a buffer must not be used after it has
// been released.
type BufferPool struct {
	idle chan []float64

	allocs atomic.Int64
	reuses atomic.Int64
}

// NewBufferPool returns a pool holding at most slots idle buffers.
// slots <= 0 uses DefaultPoolSlots.
func NewBufferPool(slots int) *BufferPool {
	if slots <= 0 {
		slots = DefaultPoolSlots
	}

	return &BufferPool{
		idle: make(chan []float64, slots),
	}
}

// Acquire returns a zeroed buffer of length size, reusing an idle buffer if
// one with enough capacity is available.
func (bp *BufferPool) Acquire(size int) []float64 {
	if size < 0 {
		size = 0
	}

	select {
	case buf := <-bp.idle:
		if cap(buf) >= size {
			bp.reuses.Add(1)
			buf = buf[:size]
			clear(buf)
			return buf
		}
		// too small for this request. let it go and allocate below.

	default:
	}

	bp.allocs.Add(1)
	return make([]float64, size)
}

// Release hands buf back to the pool. nil and zero capacity buffers are
// ignored.
func (bp *BufferPool) Release(buf []float64) {
	if cap(buf) == 0 {
		return
	}

	select {
	case bp.idle <- buf[:cap(buf)]:
	default:
	}
}

// Idle returns the number of buffers waiting in the pool.
func (bp *BufferPool) Idle() int {
	return len(bp.idle)
}

// Allocs returns how many times Acquire had to allocate.
func (bp *BufferPool) Allocs() int64 {
	return bp.allocs.Load()
}

// Reuses returns how many times Acquire handed out an idle buffer.
func (bp *BufferPool) Reuses() int64 {
	return bp.reuses.Load()
}
