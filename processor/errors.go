package processor

import "github.com/pkg/errors"

var (
	// ErrCyclePanic marks a processing cycle that panicked. the generation
	// is dropped and the worker carries on.
	ErrCyclePanic = errors.New("processing cycle panicked")
)
