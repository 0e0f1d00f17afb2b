// Package barflow reads samples, transforms them and hands the magnitude
// spectra to a conditioning pipeline whose bar values are drawn at a fixed
// frame rate.
package barflow

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/noriah/barflow/fft"
	"github.com/noriah/barflow/input"
	"github.com/noriah/barflow/processor"
	"github.com/pkg/errors"
)

// Output consumes bar values.
type Output interface {
	// Bars returns how many bars the output wants next. values below 1 use
	// Config.Bars.
	Bars() int
	// Draw is handed the newest bar values once per frame. they are valid
	// until Draw returns.
	Draw(processor.BarValues) error
}

// Run draws until ctx is done, the source runs dry or the output fails.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	src := cfg.Source
	if src == nil {
		var err error

		src, err = input.Open(cfg.Backend, input.Params{
			Rate:     cfg.SampleRate,
			Channels: cfg.ChannelCount,
		})
		if err != nil {
			return err
		}
	}

	plan, err := fft.NewPlan(cfg.SampleSize, cfg.Window)
	if err != nil {
		return errors.Wrap(err, "failed to plan transform")
	}

	if cfg.Processor.Logger == nil {
		cfg.Processor.Logger = log
	}

	proc := processor.New(cfg.Processor)
	ctx = proc.Start(ctx)
	defer proc.Stop()

	fc := processor.FrameContext{
		Scale:        cfg.Scale,
		SourceLength: cfg.sourceLength(plan.Bins()),
	}

	hop := cfg.hop()
	samples := make([]float64, cfg.SampleSize)
	mags := make([]float64, plan.Bins())

	log.Info("running",
		"rate", src.SampleRate(),
		"size", cfg.SampleSize,
		"hop", hop,
		"fps", cfg.FrameRate,
		"window", cfg.Window.String())

	ticker := time.NewTicker(time.Second / time.Duration(cfg.FrameRate))
	defer ticker.Stop()

	defer func() {
		st := proc.Stats()
		log.Info("stopped",
			"submitted", st.Submitted,
			"superseded", st.Superseded,
			"published", st.Published,
			"faults", st.Faults,
			"cycle", st.CycleMean)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		// slide the block along by one hop
		copy(samples, samples[hop:])
		if err := src.Read(samples[len(samples)-hop:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "failed to read samples")
		}

		mags = plan.Execute(mags, samples)

		bars := cfg.Output.Bars()
		if bars < 1 {
			bars = cfg.Bars
		}

		proc.Submit(mags, bars, fc)

		if err := cfg.Output.Draw(proc.Bars()); err != nil {
			return errors.Wrap(err, "failed to draw")
		}
	}
}
