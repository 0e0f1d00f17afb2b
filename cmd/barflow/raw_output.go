package main

import (
	"bufio"
	"io"
	"strconv"

	"github.com/noriah/barflow"
	"github.com/noriah/barflow/processor"
)

// RawOutput prints one line of bar heights per frame, scaled to 0-100.
// peaks follow the heights after a '|' when enabled.
type RawOutput struct {
	w        *bufio.Writer
	binCount int
	peaks    bool
	invert   bool
	line     []byte
}

var _ barflow.Output = &RawOutput{}

func NewRawOutput(w io.Writer, bins int, peaks bool) *RawOutput {
	return &RawOutput{
		w:        bufio.NewWriter(w),
		binCount: bins,
		peaks:    peaks,
	}
}

func (d *RawOutput) SetInvertDraw(invert bool) {
	d.invert = invert
}

// Bars returns the number of bars we will print.
func (d *RawOutput) Bars() int {
	return d.binCount
}

// Draw prints a line.
func (d *RawOutput) Draw(bars processor.BarValues) error {
	d.line = d.line[:0]

	d.line = d.appendValues(d.line, bars.Heights)

	if d.peaks {
		d.line = append(d.line, '|', ' ')
		d.line = d.appendValues(d.line, bars.Peaks)
	}

	d.line[len(d.line)-1] = '\n'

	if _, err := d.w.Write(d.line); err != nil {
		return err
	}

	return d.w.Flush()
}

func (d *RawOutput) appendValues(line []byte, values []float64) []byte {
	for i := range values {
		xBin := i
		if d.invert {
			xBin = len(values) - 1 - i
		}

		line = strconv.AppendFloat(line, values[xBin]*100, 'f', 2, 64)
		line = append(line, ' ')
	}

	if len(values) == 0 {
		line = append(line, ' ')
	}

	return line
}
