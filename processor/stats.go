package processor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/noriah/barflow/util"
)

// cycleWindow is the number of processing cycles timing stats cover.
const cycleWindow = 120

// WorkerState is what the worker is doing.
type WorkerState int32

// Worker states.
const (
	StateIdle WorkerState = iota
	StateDraining
	StateProcessing
	StateSignaling
	StateStopped
)

func (ws WorkerState) String() string {
	switch ws {
	case StateIdle:
		return "idle"
	case StateDraining:
		return "draining"
	case StateProcessing:
		return "processing"
	case StateSignaling:
		return "signaling"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of processor counters.
type Stats struct {
	Submitted  uint64 // frames accepted by Submit
	Superseded uint64 // frames replaced before the worker took them
	Published  uint64 // generations published
	Skipped    uint64 // generations dropped for a stale bar count
	Faults     uint64 // cycles dropped after a fault

	CycleMean   time.Duration // mean processing time
	CycleStdDev time.Duration // processing time standard deviation

	State WorkerState
}

type stats struct {
	submitted  atomic.Uint64
	superseded atomic.Uint64
	published  atomic.Uint64
	skipped    atomic.Uint64
	faults     atomic.Uint64

	state atomic.Int32

	mu       sync.Mutex
	cycles   *util.MovingWindow
	observed int
}

func newStats() *stats {
	return &stats{
		cycles: util.NewMovingWindow(cycleWindow),
	}
}

func (s *stats) setState(ws WorkerState) {
	s.state.Store(int32(ws))
}

func (s *stats) observe(d time.Duration) {
	s.mu.Lock()
	s.cycles.Update(d.Seconds())

	// rebuild the running sums once per window so rounding does not pile up
	// over a long run
	s.observed++
	if s.observed%cycleWindow == 0 {
		s.cycles.Recalculate()
	}
	s.mu.Unlock()
}

func (s *stats) snapshot() Stats {
	s.mu.Lock()
	mean, sd := s.cycles.Stats()
	s.mu.Unlock()

	return Stats{
		Submitted:   s.submitted.Load(),
		Superseded:  s.superseded.Load(),
		Published:   s.published.Load(),
		Skipped:     s.skipped.Load(),
		Faults:      s.faults.Load(),
		CycleMean:   time.Duration(mean * float64(time.Second)),
		CycleStdDev: time.Duration(sd * float64(time.Second)),
		State:       WorkerState(s.state.Load()),
	}
}
