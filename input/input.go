// Package input provides sample sources for the spectrum pipeline.
package input

import (
	"io"

	"github.com/pkg/errors"
)

// Params are source params.
type Params struct {
	Rate     float64   // sample rate
	Channels int       // interleaved channels per frame, mixed to mono
	Reader   io.Reader // raw sample stream for reader backends
	Float64  bool      // reader samples are float64 instead of float32
}

// Source produces mono samples.
type Source interface {
	// SampleRate returns the rate Read produces samples at.
	SampleRate() float64
	// Read fills dst with the next len(dst) samples. it returns io.EOF once
	// the source is exhausted.
	Read(dst []float64) error
}

// ErrNoReader is returned by backends that need Params.Reader.
var ErrNoReader = errors.New("no reader given")

func sanitizeParams(p Params) Params {
	if p.Rate <= 0 {
		p.Rate = 44100
	}

	if p.Channels < 1 {
		p.Channels = 1
	}

	return p
}
