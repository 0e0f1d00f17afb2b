package processor

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// run is the worker loop. it sleeps until kicked or the poll interval
// passes, takes the newest pending frame, processes it and publishes the
// result.
func (proc *Processor) run(ctx context.Context) {
	defer proc.wg.Done()
	defer proc.shutdown()

	ticker := time.NewTicker(proc.poll)
	defer ticker.Stop()

	for {
		proc.stats.setState(StateIdle)

		select {
		case <-ctx.Done():
			return
		case <-proc.kick:
		case <-ticker.C:
			// nothing kicked us. a pending frame can only exist if a kick is
			// queued too, but draining here is cheap.
		}

		proc.stats.setState(StateDraining)

		fr, ok := proc.drain()
		if !ok {
			continue
		}

		proc.cycle(fr)
		ticker.Reset(proc.poll)
	}
}

// drain takes ownership of the pending frame, if any.
func (proc *Processor) drain() (frame, bool) {
	proc.slotMu.Lock()
	defer proc.slotMu.Unlock()

	if !proc.pending {
		return frame{}, false
	}

	fr := proc.slot
	proc.slot, proc.pending = frame{}, false

	return fr, true
}

// cycle processes one frame and publishes the result. a failed cycle leaves
// the previous generation in place.
func (proc *Processor) cycle(fr frame) {
	defer proc.specPool.Release(fr.spectrum)

	proc.stats.setState(StateProcessing)
	start := proc.clock()

	if err := proc.process(fr); err != nil {
		proc.stats.faults.Add(1)
		proc.onError(err)
		return
	}

	proc.stats.observe(proc.clock().Sub(start))
	proc.stats.setState(StateSignaling)

	// the render side moved on to another bar count while we worked
	if int64(fr.bars) != proc.expected.Load() {
		proc.stats.skipped.Add(1)
		return
	}

	proc.handoff.publish()
	proc.stats.published.Add(1)
}

// process runs the engine into the worker's generation slot.
func (proc *Processor) process(fr frame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrCyclePanic, "frame %d: %v", fr.seq, r)
		}
	}()

	if cfg := proc.pendingCfg.Swap(nil); cfg != nil {
		proc.engine.Configure(*cfg)

		applied := proc.engine.Config()
		proc.log.Debug("engine configured",
			"method", applied.Method,
			"filter", applied.Filter,
			"variant", applied.Variant)
	}

	gen := proc.handoff.writer()
	gen.resize(proc.barPool, fr.bars)
	gen.seq = fr.seq

	now := proc.clock().Sub(proc.epoch)

	proc.engine.Process(
		gen.values.Heights, gen.values.Peaks,
		fr.spectrum, fr.ctx.SourceLength, fr.ctx.Scale, now)

	return nil
}

// shutdown returns the worker's buffers to the pools.
func (proc *Processor) shutdown() {
	proc.engine.Release()
	proc.handoff.writer().release(proc.barPool)

	if fr, ok := proc.drain(); ok {
		proc.specPool.Release(fr.spectrum)
	}

	proc.stats.setState(StateStopped)
}
