// Package graphic draws bar values in a terminal with termbox.
package graphic

import (
	"context"
	"sync"

	"github.com/noriah/barflow/processor"
	"github.com/nsf/termbox-go"
	"github.com/pkg/errors"
)

// Styles.
var (
	StyleDefault     = termbox.ColorDefault
	StyleDefaultBack = termbox.ColorDefault
	StylePeak        = termbox.ColorRed | termbox.AttrBold
	StyleBase        = termbox.ColorMagenta
)

// Config is a display configuration.
type Config struct {
	BarWidth   int  // cells per bar
	SpaceWidth int  // cells between bars
	BaseThick  int  // rows of base line under the bars
	Peaks      bool // draw peak markers
}

// NewZeroConfig returns the default display config.
func NewZeroConfig() Config {
	return Config{
		BarWidth:   2,
		SpaceWidth: 1,
		BaseThick:  1,
		Peaks:      true,
	}
}

// Display draws bars into the terminal.
type Display struct {
	mu  sync.Mutex
	cfg Config

	restore func()
	started bool
}

// NewDisplay returns a display. call Init before drawing.
func NewDisplay(cfg Config) *Display {
	if cfg.BarWidth < 1 {
		cfg.BarWidth = 1
	}

	if cfg.SpaceWidth < 0 {
		cfg.SpaceWidth = 0
	}

	if cfg.BaseThick < 0 {
		cfg.BaseThick = 0
	}

	return &Display{cfg: cfg}
}

// Init takes over the terminal.
func (d *Display) Init() error {
	restore, err := normalizeTerminal()
	if err != nil {
		return errors.Wrap(err, "failed to normalize terminal")
	}

	if err := termbox.Init(); err != nil {
		restore()
		return errors.Wrap(err, "failed to init termbox")
	}

	termbox.SetInputMode(termbox.InputEsc)
	termbox.HideCursor()

	d.restore = restore
	d.started = true

	return nil
}

// Start polls terminal events. the returned context is cancelled when the
// user quits or ctx is done.
func (d *Display) Start(ctx context.Context) context.Context {
	dispCtx, dispCancel := context.WithCancel(ctx)

	done := make(chan struct{})
	go d.eventPoller(dispCtx, dispCancel, done)

	go func() {
		<-dispCtx.Done()

		// PollEvent only returns on an event
		select {
		case <-done:
		default:
			termbox.Interrupt()
		}
	}()

	return dispCtx
}

func (d *Display) eventPoller(ctx context.Context, cancel context.CancelFunc, done chan<- struct{}) {
	defer cancel()
	defer close(done)

	for {
		ev := termbox.PollEvent()

		if ctx.Err() != nil {
			return
		}

		switch ev.Type {
		case termbox.EventInterrupt, termbox.EventError:
			return

		case termbox.EventKey:
			switch ev.Key {
			case termbox.KeyCtrlC, termbox.KeyEsc:
				return

			case termbox.KeyArrowUp:
				d.SetWidths(d.cfg.BarWidth+1, d.cfg.SpaceWidth)

			case termbox.KeyArrowDown:
				d.SetWidths(d.cfg.BarWidth-1, d.cfg.SpaceWidth)

			case termbox.KeyArrowRight:
				d.SetWidths(d.cfg.BarWidth, d.cfg.SpaceWidth+1)

			case termbox.KeyArrowLeft:
				d.SetWidths(d.cfg.BarWidth, d.cfg.SpaceWidth-1)

			default:
				switch ev.Ch {
				case 'q', 'Q':
					return
				case 'p', 'P':
					d.mu.Lock()
					d.cfg.Peaks = !d.cfg.Peaks
					d.mu.Unlock()
				}
			}
		}
	}
}

// SetWidths changes bar and space widths. bars are at least one cell wide
// and spaces at least zero.
func (d *Display) SetWidths(bar, space int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cfg.BarWidth = max(bar, 1)
	d.cfg.SpaceWidth = max(space, 0)
}

// Bars returns how many bars fit the terminal at the moment.
func (d *Display) Bars() int {
	width, _ := termbox.Size()

	d.mu.Lock()
	defer d.mu.Unlock()

	count, _ := fit(width, d.cfg.BarWidth, d.cfg.SpaceWidth)
	return count
}

// Draw draws one set of bars and flushes the terminal.
func (d *Display) Draw(bars processor.BarValues) error {
	d.mu.Lock()
	cfg := d.cfg
	d.mu.Unlock()

	if err := termbox.Clear(StyleDefault, StyleDefaultBack); err != nil {
		return errors.Wrap(err, "failed to clear")
	}

	width, height := termbox.Size()

	rows := height - cfg.BaseThick
	if rows < 0 {
		rows = 0
	}

	count, xCol := fit(width, cfg.BarWidth, cfg.SpaceWidth)
	count = min(count, bars.Len())

	// base line
	for xRow := rows; xRow < height; xRow++ {
		for x := 0; x < width; x++ {
			termbox.SetCell(x, xRow, BarRune, StyleBase, StyleDefaultBack)
		}
	}

	for idx := 0; idx < count; idx++ {
		bar := bars.At(idx)
		full, top := stopAndTop(bar.Height, rows)

		peak := -1
		if cfg.Peaks {
			peak = peakRow(bar.Peak, full, top, rows)
		}

		for x := xCol; x < xCol+cfg.BarWidth; x++ {
			xRow := rows - 1

			for n := 0; n < full; n, xRow = n+1, xRow-1 {
				termbox.SetCell(x, xRow, BarRune, StyleDefault, StyleDefaultBack)
			}

			if top != partials[0] {
				termbox.SetCell(x, xRow, top, StyleDefault, StyleDefaultBack)
			}

			if peak >= 0 {
				termbox.SetCell(x, rows-1-peak, PeakRune, StylePeak, StyleDefaultBack)
			}
		}

		xCol += cfg.BarWidth + cfg.SpaceWidth
	}

	return termbox.Flush()
}

// Close gives the terminal back.
func (d *Display) Close() error {
	if !d.started {
		return nil
	}

	d.started = false
	termbox.Close()

	if d.restore != nil {
		d.restore()
	}

	return nil
}
