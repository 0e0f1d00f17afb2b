package util

import "math"

// MovingWindow keeps running statistics over the last Cap() values.
//
// values live in a fixed ring; once full, each Update overwrites the oldest
// value. no allocation happens after construction.
type MovingWindow struct {
	data []float64

	head   int // index of the oldest value
	length int

	sum    float64
	sumSq  float64
	mean   float64
	stddev float64
}

// NewMovingWindow returns a new moving window holding up to size values.
func NewMovingWindow(size int) *MovingWindow {
	if size < 1 {
		size = 1
	}

	return &MovingWindow{
		data: make([]float64, size),
	}
}

func (mw *MovingWindow) calcFinal() (float64, float64) {
	if mw.length < 1 {
		mw.sum, mw.sumSq = 0, 0
		mw.mean, mw.stddev = 0, 0
		return 0, 0
	}

	n := float64(mw.length)
	mw.mean = mw.sum / n

	if mw.length > 1 {
		variance := (mw.sumSq - (mw.sum * mw.mean)) / (n - 1)
		// rounding can push a flat window slightly negative
		mw.stddev = math.Sqrt(math.Max(variance, 0))
	} else {
		mw.stddev = 0
	}

	return mw.mean, mw.stddev
}

// Update pushes value into the window, evicting the oldest value when full.
// Returns the new mean and standard deviation.
func (mw *MovingWindow) Update(value float64) (float64, float64) {
	if mw.length < len(mw.data) {
		mw.data[(mw.head+mw.length)%len(mw.data)] = value
		mw.length++
	} else {
		old := mw.data[mw.head]
		mw.sum -= old
		mw.sumSq -= old * old

		mw.data[mw.head] = value
		mw.head = (mw.head + 1) % len(mw.data)
	}

	mw.sum += value
	mw.sumSq += value * value

	return mw.calcFinal()
}

// Recalculate rebuilds the running sums from the stored values. Long runs
// accumulate rounding error in the sums; this clears it.
func (mw *MovingWindow) Recalculate() (float64, float64) {
	mw.sum, mw.sumSq = 0, 0

	for i := 0; i < mw.length; i++ {
		v := mw.data[(mw.head+i)%len(mw.data)]
		mw.sum += v
		mw.sumSq += v * v
	}

	return mw.calcFinal()
}

// Reset empties the window.
func (mw *MovingWindow) Reset() {
	mw.head, mw.length = 0, 0
	mw.calcFinal()
}

// Len returns how many values are in the window.
func (mw *MovingWindow) Len() int {
	return mw.length
}

// Cap returns the max size of the window.
func (mw *MovingWindow) Cap() int {
	return len(mw.data)
}

// Mean is the moving window average.
func (mw *MovingWindow) Mean() float64 {
	return mw.mean
}

// StdDev is the moving window sample standard deviation.
func (mw *MovingWindow) StdDev() float64 {
	return mw.stddev
}

// Stats returns the mean and standard deviation of this window.
func (mw *MovingWindow) Stats() (float64, float64) {
	return mw.mean, mw.stddev
}
