package barflow

import (
	"log/slog"

	"github.com/noriah/barflow/fft"
	"github.com/noriah/barflow/input"
	"github.com/noriah/barflow/processor"
	"github.com/pkg/errors"
)

// Limits.
const (
	MaxSampleSize   = 1 << 16
	MaxChannelCount = 2
	MaxFrameRate    = 1000
	MaxBars         = 4096
)

// ErrNoOutput is returned when a config has nowhere to draw.
var ErrNoOutput = errors.New("no output configured")

type Config struct {
	// The name of the backend from the input package, ignored if Source is
	// set
	Backend string
	// Source to read from instead of opening Backend
	Source input.Source
	// The rate that samples are read
	SampleRate float64
	// The number of samples per transform
	SampleSize int
	// The number of channels in the input stream
	ChannelCount int
	// The number of frames drawn per second
	FrameRate int
	// Bars drawn when the output does not ask for a count
	Bars int
	// Highest frequency mapped onto the bars, 0 for all of them
	MaxFreq float64
	// Multiplier applied to magnitudes before clamping
	Scale float64
	// Taper applied before each transform
	Window fft.Window

	// Conditioning pipeline settings
	Processor processor.Config
	// Where to send bar values
	Output Output
	// slog.Default when nil
	Logger *slog.Logger
}

func NewZeroConfig() Config {
	return Config{
		Backend:      input.DefaultBackend(),
		SampleRate:   44100,
		SampleSize:   2048,
		ChannelCount: 1,
		FrameRate:    60,
		Bars:         64,
		MaxFreq:      12000,
		Scale:        1.5,
		Window:       fft.WindowHann,
		Processor:    processor.NewZeroConfig(),
	}
}

func (cfg *Config) Validate() error {
	if cfg.Output == nil {
		return ErrNoOutput
	}

	if cfg.SampleRate < float64(cfg.SampleSize) {
		return errors.New("sample rate lower than sample size")
	}

	if cfg.SampleSize < 4 {
		return errors.New("sample size too small (4+ required)")
	}

	switch {
	case cfg.SampleSize > MaxSampleSize:
		return errors.Errorf("sample size too large (%d max)", MaxSampleSize)

	case cfg.ChannelCount > MaxChannelCount:
		return errors.Errorf("too many channels (%d max)", MaxChannelCount)

	case cfg.ChannelCount < 1:
		return errors.New("too few channels (1 min)")

	case cfg.FrameRate < 1 || cfg.FrameRate > MaxFrameRate:
		return errors.Errorf("frame rate must be within 1 to %d", MaxFrameRate)

	case cfg.Bars < 1 || cfg.Bars > MaxBars:
		return errors.Errorf("bar count must be within 1 to %d", MaxBars)

	case cfg.MaxFreq < 0:
		return errors.New("max frequency is negative")

	case cfg.Scale < 0:
		return errors.New("scale is negative")
	}

	return nil
}

// sourceLength maps MaxFreq onto a bin count of a plan with bins bins.
func (cfg *Config) sourceLength(bins int) int {
	if cfg.MaxFreq <= 0 || cfg.MaxFreq >= cfg.SampleRate/2 {
		return 0
	}

	n := int(cfg.MaxFreq / cfg.SampleRate * float64(cfg.SampleSize))
	return min(max(n, 1), bins)
}

// hop is how many new samples each frame reads.
func (cfg *Config) hop() int {
	n := int(cfg.SampleRate / float64(cfg.FrameRate))
	return min(max(n, 1), cfg.SampleSize)
}
