package dsp

import "github.com/noriah/barflow/util"

// State is the per-bar memory of the engine. only the engine reads or
// writes it.
type State struct {
	Values     []float64 // last smoothed height
	Velocities []float64 // spring velocity
	Peaks      []float64 // current peak height
	PeakTimes  []float64 // time the peak was set, as a time.Duration

	// fresh is true until the first cycle after a resize completes.
	fresh bool
}

// Len returns the number of bars the state holds.
func (st *State) Len() int {
	return len(st.Values)
}

// Resize makes the state hold bars bars. buffers come from pool and the old
// ones go back to it. it does nothing if the size already matches and
// reports whether a reallocation happened.
func (st *State) Resize(pool *util.BufferPool, bars int) bool {
	if bars == len(st.Values) && st.Values != nil {
		return false
	}

	st.Release(pool)

	st.Values = pool.Acquire(bars)
	st.Velocities = pool.Acquire(bars)
	st.Peaks = pool.Acquire(bars)
	st.PeakTimes = pool.Acquire(bars)
	st.fresh = true

	return true
}

// Release hands every buffer back to pool and empties the state.
func (st *State) Release(pool *util.BufferPool) {
	for _, buf := range [...]*[]float64{&st.Values, &st.Velocities, &st.Peaks, &st.PeakTimes} {
		if *buf != nil {
			pool.Release(*buf)
			*buf = nil
		}
	}

	st.fresh = false
}
