// Package fft turns blocks of samples into magnitude spectra.
package fft

import (
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// Window is the taper applied to a block before the transform.
type Window int

// Windows.
const (
	WindowHann Window = iota
	WindowHamming
	WindowBlackman
	WindowRectangular
)

func (w Window) String() string {
	switch w {
	case WindowHann:
		return "hann"
	case WindowHamming:
		return "hamming"
	case WindowBlackman:
		return "blackman"
	case WindowRectangular:
		return "rectangular"
	default:
		return "unknown"
	}
}

// ParseWindow returns the window called name.
func ParseWindow(name string) (Window, error) {
	for w := WindowHann; w <= WindowRectangular; w++ {
		if w.String() == name {
			return w, nil
		}
	}

	return WindowHann, errors.Errorf("unknown window %q", name)
}

// coefficients returns the taper for a block of size samples.
func (w Window) coefficients(size int) []float64 {
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1
	}

	switch w {
	case WindowHamming:
		return window.Hamming(coeffs)
	case WindowBlackman:
		return window.Blackman(coeffs)
	case WindowRectangular:
		return window.Rectangular(coeffs)
	default:
		return window.Hann(coeffs)
	}
}

// Plan holds a gonum real FFT and the buffers it works in. A Plan is not
// safe for concurrent use.
type Plan struct {
	size   int
	fft    *fourier.FFT
	taper  []float64
	gain   float64
	input  []float64
	coeffs []complex128
}

// NewPlan returns a plan for blocks of size samples.
func NewPlan(size int, w Window) (*Plan, error) {
	if size < 2 {
		return nil, errors.Errorf("fft size %d too small", size)
	}

	taper := w.coefficients(size)

	gain := floats.Sum(taper)
	if gain <= 0 {
		gain = float64(size)
	}

	return &Plan{
		size:   size,
		fft:    fourier.NewFFT(size),
		taper:  taper,
		gain:   gain,
		input:  make([]float64, size),
		coeffs: make([]complex128, size/2+1),
	}, nil
}

// Size returns the number of samples the plan takes.
func (p *Plan) Size() int {
	return p.size
}

// Bins returns the number of magnitudes the plan produces.
func (p *Plan) Bins() int {
	return p.size/2 + 1
}

// Execute tapers samples, transforms them and writes the magnitude of each
// bin into dst. magnitudes are scaled so that a full scale sine centred on a
// bin reads 1 there. samples shorter than Size are zero padded, longer ones
// are cut. dst is grown if needed and returned.
func (p *Plan) Execute(dst, samples []float64) []float64 {
	n := copy(p.input, samples)
	clear(p.input[n:])

	floats.Mul(p.input, p.taper)
	p.fft.Coefficients(p.coeffs, p.input)

	if cap(dst) < len(p.coeffs) {
		dst = make([]float64, len(p.coeffs))
	}
	dst = dst[:len(p.coeffs)]

	norm := 2 / p.gain
	for i, c := range p.coeffs {
		dst[i] = cmplx.Abs(c) * norm
	}

	// dc and nyquist have no mirror image
	dst[0] /= 2
	if p.size%2 == 0 {
		dst[len(dst)-1] /= 2
	}

	return dst
}

// Frequency returns the centre frequency of bin at the given sample rate.
func (p *Plan) Frequency(bin int, rate float64) float64 {
	return p.fft.Freq(bin) * rate
}
