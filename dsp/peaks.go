package dsp

import (
	"math"
	"time"
)

// PeakTracker holds each bar's maximum for a while, then lets it fall back
// to the bar.
//
// a peak rises with the bar instantly. once the hold time has passed without
// a new maximum it drops by the fall rate each cycle, faster when it sits far
// above the bar, and never below the bar or zero.
type PeakTracker struct {
	Hold time.Duration // time a peak stays put
	Fall float64       // drop per cycle
	Jump float64       // gap above which the drop speeds up, 0 disables
	Off  bool          // peaks mirror the bar
}

// NewPeakTracker returns the tracker cfg asks for.
func NewPeakTracker(cfg EngineConfig) PeakTracker {
	cfg.Sanitize()

	return PeakTracker{
		Hold: cfg.PeakHold,
		Fall: cfg.PeakFall,
		Jump: cfg.JumpThreshold,
		Off:  cfg.Variant == VariantOverlay,
	}
}

// Track updates the peak of bar idx for a bar now at height, at time now
// since the engine started. Returns the peak.
func (pt PeakTracker) Track(st *State, idx int, height float64, now time.Duration) float64 {
	peak := st.Peaks[idx]
	if math.IsNaN(peak) {
		peak = 0
	}

	switch {
	case pt.Off || height > peak:
		peak = height
		st.PeakTimes[idx] = float64(now)

	case now-time.Duration(st.PeakTimes[idx]) > pt.Hold:
		fall := pt.Fall
		if gap := peak - height; pt.Jump > 0 && gap > pt.Jump {
			fall *= gap / pt.Jump
		}

		peak = math.Max(peak-fall, height)
	}

	peak = math.Max(peak, 0)
	st.Peaks[idx] = peak

	return peak
}
