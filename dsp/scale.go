package dsp

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// minParallelBars is the smallest bar count worth splitting across workers.
const minParallelBars = 32

// Scaler reduces a raw spectrum to a fixed number of bars by block
// averaging.
//
// the source range is cut into len(dst) blocks of effectiveLength/len(dst)
// samples. block edges are truncated per block, so a block may come out one
// sample short or empty. empty blocks scale to 0.
type Scaler struct {
	// Blend mixes the block max into the block average:
	// avg*(1-Blend) + max*Blend.
	Blend float64
	// Workers splits the blocks across goroutines when > 1. output is the
	// same either way; each block is reduced by one goroutine in order.
	Workers int
}

// EffectiveLength returns how many samples of a spectrum of length n are
// scanned with the given source length override. 0 means all of them.
func EffectiveLength(n, override int) int {
	if override > 0 && override < n {
		return override
	}

	return n
}

// Scale writes one value per bar into dst.
//
// src is only read. scratch must hold at least EffectiveLength(len(src),
// srcLen) values; it receives a sanitized copy of the scanned range where
// NaN, infinite and negative magnitudes read as 0.
func (sc Scaler) Scale(dst, src, scratch []float64, srcLen int) {
	bars := len(dst)
	if bars == 0 {
		return
	}

	length := EffectiveLength(len(src), srcLen)
	if length == 0 {
		clear(dst)
		return
	}

	clean := scratch[:length]
	for i, v := range src[:length] {
		if v > 0 && !math.IsInf(v, 1) {
			clean[i] = v
		} else {
			// NaN fails v > 0 as well
			clean[i] = 0
		}
	}

	blockSize := float64(length) / float64(bars)

	if sc.Workers <= 1 || bars < minParallelBars {
		sc.scaleRange(dst, clean, blockSize, 0, bars)
		return
	}

	workers := min(sc.Workers, bars/(minParallelBars/2))
	chunk := (bars + workers - 1) / workers

	var wg sync.WaitGroup

	for lo := 0; lo < bars; lo += chunk {
		hi := min(lo+chunk, bars)

		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			sc.scaleRange(dst, clean, blockSize, lo, hi)
		}(lo, hi)
	}

	wg.Wait()
}

func (sc Scaler) scaleRange(dst, clean []float64, blockSize float64, lo, hi int) {
	length := len(clean)

	for xBar := lo; xBar < hi; xBar++ {
		start := int(float64(xBar) * blockSize)
		end := int(float64(xBar+1) * blockSize)

		if end > length {
			end = length
		}

		if start >= end {
			dst[xBar] = 0
			continue
		}

		block := clean[start:end]
		avg := floats.Sum(block) / float64(len(block))

		if sc.Blend > 0 {
			avg = avg*(1-sc.Blend) + floats.Max(block)*sc.Blend
		}

		dst[xBar] = avg
	}
}

// Normalize multiplies buf by scale and clamps it to [0, 1]. a scale of 0
// or less leaves values unscaled.
func Normalize(buf []float64, scale float64) {
	if !(scale > 0) || math.IsInf(scale, 0) {
		scale = 1
	}

	for i, v := range buf {
		buf[i] = clamp(v*scale, 0, 1)
	}
}
