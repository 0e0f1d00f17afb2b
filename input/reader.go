package input

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Reader reads little endian float samples from a stream, such as
// `parec --format=float32le` piped into stdin. Interleaved channels are
// averaged.
type Reader struct {
	r        io.Reader
	rate     float64
	channels int
	f64      bool
	raw      []byte
}

// NewReader returns a Reader over p.Reader.
func NewReader(p Params) (Source, error) {
	if p.Reader == nil {
		return nil, ErrNoReader
	}

	p = sanitizeParams(p)

	return &Reader{
		r:        p.Reader,
		rate:     p.Rate,
		channels: p.Channels,
		f64:      p.Float64,
	}, nil
}

func (rd *Reader) SampleRate() float64 {
	return rd.rate
}

func (rd *Reader) width() int {
	if rd.f64 {
		return 8
	}
	return 4
}

// Read returns io.EOF at the end of the stream. a trailing partial block is
// dropped.
func (rd *Reader) Read(dst []float64) error {
	size := len(dst) * rd.channels * rd.width()
	if cap(rd.raw) < size {
		rd.raw = make([]byte, size)
	}
	raw := rd.raw[:size]

	if _, err := io.ReadFull(rd.r, raw); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return io.EOF
		}
		return err
	}

	for i := range dst {
		var sum float64
		for ch := 0; ch < rd.channels; ch++ {
			sum += rd.next(&raw)
		}
		dst[i] = sum / float64(rd.channels)
	}

	return nil
}

func (rd *Reader) next(buf *[]byte) float64 {
	b := *buf

	if rd.f64 {
		*buf = b[8:]
		return math.Float64frombits(binary.LittleEndian.Uint64(b[:8]))
	}

	*buf = b[4:]
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[:4])))
}
