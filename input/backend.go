package input

import (
	"os"
	"sort"

	"github.com/pkg/errors"
)

// Backend opens sources.
type Backend interface {
	Open(Params) (Source, error)
}

// BackendFunc adapts a function to a Backend.
type BackendFunc func(Params) (Source, error)

// Open calls fn.
func (fn BackendFunc) Open(p Params) (Source, error) {
	return fn(p)
}

type NamedBackend struct {
	Name string
	Backend
}

var Backends []NamedBackend

func init() {
	RegisterBackend("synth", BackendFunc(func(p Params) (Source, error) {
		return NewSynth(p.Rate, DefaultTones()...), nil
	}))

	RegisterBackend("sweep", BackendFunc(func(p Params) (Source, error) {
		return NewSweep(p.Rate, 40, p.Rate/4, DefaultSweepPeriod), nil
	}))

	RegisterBackend("stdin", BackendFunc(func(p Params) (Source, error) {
		if p.Reader == nil {
			p.Reader = os.Stdin
		}
		return NewReader(p)
	}))

	RegisterBackend("reader", BackendFunc(NewReader))
}

// RegisterBackend registers a backend globally. This function is not
// thread-safe, and most packages should call it on init().
func RegisterBackend(name string, b Backend) {
	Backends = append(Backends, NamedBackend{
		Name:    name,
		Backend: b,
	})
}

// GetAllBackendNames returns the registered backend names, sorted.
func GetAllBackendNames() []string {
	out := make([]string, len(Backends))
	for i, backend := range Backends {
		out[i] = backend.Name
	}
	sort.Strings(out)
	return out
}

// DefaultBackend is the backend used when none is named.
func DefaultBackend() string {
	return "synth"
}

// FindBackend is a helper function that finds a backend. It returns nil if the
// backend is not found.
func FindBackend(name string) Backend {
	for _, backend := range Backends {
		if backend.Name == name {
			return backend.Backend
		}
	}
	return nil
}

// Open opens a source from the backend called name.
func Open(name string, p Params) (Source, error) {
	if name == "" {
		name = DefaultBackend()
	}

	backend := FindBackend(name)
	if backend == nil {
		return nil, errors.Errorf("backend not found: %q; check list-backends", name)
	}

	src, err := backend.Open(sanitizeParams(p))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s source", name)
	}

	return src, nil
}
