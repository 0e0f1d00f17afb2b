package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/noriah/barflow"
	"github.com/noriah/barflow/fft"
	"github.com/noriah/barflow/graphic"
	"github.com/noriah/barflow/input"
	"github.com/noriah/barflow/processor"

	"github.com/integrii/flaggy"
)

// AppName is the app name
const AppName = "barflow"

// AppDesc is the app description
const AppDesc = "Terminal spectrum bars with smoothing and peak markers"

// AppSite is the app website
const AppSite = "https://github.com/noriah/barflow"

var version = "unknown"

func main() {
	log.SetFlags(0)

	cfg := newZeroConfig()

	if doFlags(&cfg) {
		return
	}

	chk(cfg.validate(), "invalid config")

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}

	// the terminal belongs to the display, so logs go to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	engine, err := cfg.engineConfig()
	chk(err, "invalid smoothing config")

	window, err := fft.ParseWindow(cfg.window)
	chk(err, "invalid window")

	procCfg := processor.NewZeroConfig()
	procCfg.Engine = engine
	procCfg.Logger = logger

	flowCfg := barflow.NewZeroConfig()
	flowCfg.Backend = cfg.backend
	flowCfg.SampleRate = cfg.sampleRate
	flowCfg.SampleSize = cfg.sampleSize
	flowCfg.ChannelCount = cfg.channelCount
	flowCfg.FrameRate = cfg.frameRate
	flowCfg.Bars = cfg.bars
	flowCfg.MaxFreq = cfg.maxFreq
	flowCfg.Scale = cfg.scale
	flowCfg.Window = window
	flowCfg.Processor = procCfg
	flowCfg.Logger = logger

	if cfg.float64 {
		src, err := input.Open(cfg.backend, input.Params{
			Rate:     cfg.sampleRate,
			Channels: cfg.channelCount,
			Float64:  true,
			Reader:   os.Stdin,
		})
		chk(err, "failed to open input")

		flowCfg.Source = src
	}

	// Root Context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if cfg.raw {
		flowCfg.Output = NewRawOutput(os.Stdout, cfg.bars, !cfg.overlay)
		chk(barflow.Run(ctx, flowCfg), "failed to run barflow")
		return
	}

	dispCfg := graphic.NewZeroConfig()
	dispCfg.BarWidth = cfg.barSize
	dispCfg.SpaceWidth = cfg.spaceSize
	dispCfg.BaseThick = cfg.baseSize
	dispCfg.Peaks = !cfg.overlay

	display := graphic.NewDisplay(dispCfg)
	chk(display.Init(), "failed to init display")

	flowCfg.Output = display
	ctx = display.Start(ctx)

	err = barflow.Run(ctx, flowCfg)
	display.Close()

	chk(err, "failed to run barflow")
}

func doFlags(cfg *config) bool {

	parser := flaggy.NewParser(AppName)
	parser.Description = AppDesc
	parser.AdditionalHelpPrepend = AppSite
	parser.Version = version

	listBackendsCmd := flaggy.Subcommand{
		Name:        "list-backends",
		ShortName:   "lb",
		Description: "list all supported backends",
	}

	parser.AttachSubcommand(&listBackendsCmd, 1)

	parser.String(&cfg.backend, "b", "backend", "backend name")
	parser.Float64(&cfg.sampleRate, "r", "rate", "sample rate")
	parser.Int(&cfg.sampleSize, "n", "samples", "sample size")
	parser.Int(&cfg.channelCount, "ch", "channels", "channel count of reader input (1 or 2)")
	parser.Bool(&cfg.float64, "f64", "float64", "reader input is float64 instead of float32")
	parser.Int(&cfg.frameRate, "f", "fps", "frame rate")
	parser.Float64(&cfg.maxFreq, "mf", "max-freq", "highest frequency shown (0 for all)")
	parser.Float64(&cfg.scale, "s", "scale", "magnitude multiplier")
	parser.String(&cfg.window, "w", "window", "fft window (hann, hamming, blackman, rectangular)")

	parser.String(&cfg.method, "m", "method", "smoothing method (exponential, spring)")
	parser.Float64(&cfg.riseFactor, "rf", "rise", "exponential rise factor (0-1]")
	parser.Float64(&cfg.fallFactor, "ff", "fall", "exponential fall factor (0-1]")
	parser.Float64(&cfg.stiffness, "st", "stiffness", "spring stiffness (0-1]")
	parser.Float64(&cfg.damping, "dm", "damping", "spring damping [0-1)")
	parser.Int(&cfg.peakHold, "ph", "peak-hold", "peak hold in milliseconds")
	parser.Float64(&cfg.peakFall, "pf", "peak-fall", "peak fall per frame")
	parser.Float64(&cfg.peakBlend, "pb", "peak-blend", "weight of block max when scaling [0-1]")
	parser.String(&cfg.filter, "fl", "filter", "spread filter (none, monstercat, waves)")
	parser.Float64(&cfg.filterFactor, "fx", "filter-factor", "spread filter strength")
	parser.Bool(&cfg.overlay, "o", "overlay", "overlay variant, no peak markers")
	parser.Bool(&cfg.seed, "sd", "seed", "start bars at their first value")
	parser.Int(&cfg.workers, "j", "workers", "goroutines used for scaling")

	parser.Int(&cfg.baseSize, "bt", "base", "base thickness [0, +Inf)")
	parser.Int(&cfg.barSize, "bw", "bar", "bar width [1, +Inf)")
	parser.Int(&cfg.spaceSize, "sw", "space", "space width [0, +Inf)")

	parser.Bool(&cfg.raw, "raw", "raw", "print numbers instead of drawing")
	parser.Int(&cfg.bars, "nb", "bars", "number of bars printed in raw mode")
	parser.Bool(&cfg.verbose, "v", "verbose", "debug logging")

	chk(parser.Parse(), "failed to parse arguments")

	if listBackendsCmd.Used {
		for _, name := range input.GetAllBackendNames() {
			fmt.Printf("- %s\n", name)
		}

		return true
	}

	return false
}

func chk(err error, wrap string) {
	if err != nil {
		log.Fatalln(wrap+": ", err)
	}
}
