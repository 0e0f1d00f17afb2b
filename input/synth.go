package input

import (
	"math"
	"time"
)

// DefaultSweepPeriod is how long a sweep takes to cross its range once.
const DefaultSweepPeriod = 8 * time.Second

// Tone is one partial of a synthetic signal.
type Tone struct {
	Freq float64 // hz
	Amp  float64 // peak amplitude
	// Pulse, when > 0, gates the tone on and off at this rate in hz so the
	// bars have something to fall from.
	Pulse float64
}

// DefaultTones is a bass line, a mid pad and a hat.
func DefaultTones() []Tone {
	return []Tone{
		{Freq: 55, Amp: 0.6, Pulse: 2},
		{Freq: 110, Amp: 0.3},
		{Freq: 440, Amp: 0.25, Pulse: 0.5},
		{Freq: 1760, Amp: 0.15, Pulse: 4},
		{Freq: 7040, Amp: 0.1, Pulse: 8},
	}
}

// Synth is a sum of tones.
type Synth struct {
	rate  float64
	tones []Tone
	n     uint64 // samples produced
}

// NewSynth returns a source summing tones at rate.
func NewSynth(rate float64, tones ...Tone) *Synth {
	return &Synth{
		rate:  rate,
		tones: append([]Tone(nil), tones...),
	}
}

func (s *Synth) SampleRate() float64 {
	return s.rate
}

// Read never fails.
func (s *Synth) Read(dst []float64) error {
	for i := range dst {
		t := float64(s.n) / s.rate
		s.n++

		var v float64
		for _, tone := range s.tones {
			if tone.Pulse > 0 && math.Mod(t*tone.Pulse, 1) >= 0.5 {
				continue
			}
			v += tone.Amp * math.Sin(2*math.Pi*tone.Freq*t)
		}

		dst[i] = v
	}

	return nil
}

// Sweep is a single tone gliding from low to high and back, exponentially.
type Sweep struct {
	rate   float64
	lo, hi float64
	period float64 // seconds per one way trip
	phase  float64
	n      uint64
}

// NewSweep returns a sweep between lo and hi hz.
func NewSweep(rate, lo, hi float64, period time.Duration) *Sweep {
	if lo <= 0 {
		lo = 20
	}

	if hi <= lo {
		hi = lo * 2
	}

	if period <= 0 {
		period = DefaultSweepPeriod
	}

	return &Sweep{
		rate:   rate,
		lo:     lo,
		hi:     hi,
		period: period.Seconds(),
	}
}

func (s *Sweep) SampleRate() float64 {
	return s.rate
}

// Freq returns the current frequency.
func (s *Sweep) Freq() float64 {
	t := float64(s.n) / s.rate

	// triangle 0..1..0
	pos := math.Mod(t/s.period, 2)
	if pos > 1 {
		pos = 2 - pos
	}

	return s.lo * math.Pow(s.hi/s.lo, pos)
}

// Read never fails.
func (s *Sweep) Read(dst []float64) error {
	for i := range dst {
		s.phase += 2 * math.Pi * s.Freq() / s.rate
		if s.phase > 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
		s.n++

		dst[i] = 0.8 * math.Sin(s.phase)
	}

	return nil
}
