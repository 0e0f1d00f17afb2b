package dsp

import "math"

// Apply runs the spread filter f on bins in place. scratch must be at least
// as long as bins.
func (f Filter) Apply(bins, scratch []float64, factor float64) {
	switch f {
	case FilterMonstercat:
		Monstercat(bins, factor)
	case FilterWaves:
		Waves(bins, scratch, factor)
	}
}

// Monstercat spreads every bar into its neighbours, dividing by factor per
// bar of distance. each bar ends up as the max over all bars j of
// bins[j] / factor^|i-j|.
//
// https://github.com/karlstav/cava/blob/master/cava.c#L157
//
// cava does this with a nested loop. one pass from each side gives the same
// result in linear time.
func Monstercat(bins []float64, factor float64) {
	if factor <= 1 || len(bins) < 2 {
		return
	}

	for xBin := 1; xBin < len(bins); xBin++ {
		bins[xBin] = math.Max(bins[xBin], bins[xBin-1]/factor)
	}

	for xBin := len(bins) - 2; xBin >= 0; xBin-- {
		bins[xBin] = math.Max(bins[xBin], bins[xBin+1]/factor)
	}
}

// Waves spreads every bar into its neighbours with a quadratic falloff of
// factor per squared bar of distance. spreading reads the values from
// before the call, held in scratch, so spread values do not spread again.
//
// https://github.com/karlstav/cava/blob/master/cava.c#L144
func Waves(bins, scratch []float64, factor float64) {
	if factor <= 0 {
		return
	}

	count := len(bins)
	orig := scratch[:count]
	copy(orig, bins)

	for xBin, src := range orig {
		for dist := 1; ; dist++ {
			v := src - factor*float64(dist*dist)
			if v <= 0 {
				break
			}

			lo, hi := xBin-dist, xBin+dist
			if lo < 0 && hi >= count {
				break
			}

			if lo >= 0 && bins[lo] < v {
				bins[lo] = v
			}

			if hi < count && bins[hi] < v {
				bins[hi] = v
			}
		}
	}
}
