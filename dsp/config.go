package dsp

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// Method selects the smoothing model.
type Method int

// Smoothing methods.
const (
	// MethodExponential eases toward the target by a rise or fall factor.
	MethodExponential Method = iota
	// MethodSpring adds a damped velocity term for inertia-like motion.
	MethodSpring
)

func (m Method) String() string {
	switch m {
	case MethodExponential:
		return "exponential"
	case MethodSpring:
		return "spring"
	default:
		return "unknown"
	}
}

// Filter selects a neighbour spread filter run on scaled values.
type Filter int

// Spread filters.
const (
	FilterNone Filter = iota
	FilterMonstercat
	FilterWaves
)

func (f Filter) String() string {
	switch f {
	case FilterNone:
		return "none"
	case FilterMonstercat:
		return "monstercat"
	case FilterWaves:
		return "waves"
	default:
		return "unknown"
	}
}

// ParseMethod returns the smoothing method called name.
func ParseMethod(name string) (Method, error) {
	for m := MethodExponential; m <= MethodSpring; m++ {
		if m.String() == name {
			return m, nil
		}
	}

	return MethodExponential, errors.Errorf("unknown smoothing method %q", name)
}

// ParseFilter returns the spread filter called name.
func ParseFilter(name string) (Filter, error) {
	for f := FilterNone; f <= FilterWaves; f++ {
		if f.String() == name {
			return f, nil
		}
	}

	return FilterNone, errors.Errorf("unknown filter %q", name)
}

// Variant is the renderer variant the engine conditions values for.
type Variant int

// Variants.
const (
	VariantStandard Variant = iota
	// VariantOverlay draws no peak markers, so peaks mirror heights.
	VariantOverlay
)

func (v Variant) String() string {
	switch v {
	case VariantStandard:
		return "standard"
	case VariantOverlay:
		return "overlay"
	default:
		return "unknown"
	}
}

// Defaults.
const (
	DefaultRiseFactor    = 0.3
	DefaultFallFactor    = 0.15
	DefaultStiffness     = 0.12
	DefaultDamping       = 0.55
	DefaultAdaptive      = 0.12
	DefaultAdaptiveBoost = 2.5
	DefaultJumpThreshold = 0.35
	DefaultPeakHold      = 500 * time.Millisecond
	DefaultPeakFall      = 0.02
	DefaultMonstercat    = 1.5
	DefaultWaves         = 0.01
)

// EngineConfig holds everything the smoothing and peak engine needs.
type EngineConfig struct {
	Method Method // smoothing model

	// exponential model
	RiseFactor float64 // factor used while the bar grows
	FallFactor float64 // factor used while the bar shrinks

	// spring model
	Stiffness     float64 // pull toward target added to velocity
	Damping       float64 // velocity kept per cycle
	Adaptive      float64 // direct pull toward target
	AdaptiveBoost float64 // multiplier for Adaptive on large jumps

	// JumpThreshold is the fraction of full height above which a change
	// counts as a jump. used by the spring model and by peak decay.
	JumpThreshold float64

	PeakHold time.Duration // time a peak is held before decaying
	PeakFall float64       // peak decay per cycle, in normalized height

	PeakBlend float64 // weight of the block max in scaling, 0 to 1

	Filter       Filter  // spread filter
	FilterFactor float64 // filter strength, meaning depends on Filter

	Variant Variant

	// SeedFromFirst sets a bar's value from its first observation instead
	// of smoothing up from zero.
	SeedFromFirst bool

	// ScaleWorkers splits scaling across goroutines when > 1.
	ScaleWorkers int
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Method:        MethodExponential,
		RiseFactor:    DefaultRiseFactor,
		FallFactor:    DefaultFallFactor,
		Stiffness:     DefaultStiffness,
		Damping:       DefaultDamping,
		Adaptive:      DefaultAdaptive,
		AdaptiveBoost: DefaultAdaptiveBoost,
		JumpThreshold: DefaultJumpThreshold,
		PeakHold:      DefaultPeakHold,
		PeakFall:      DefaultPeakFall,
		Filter:        FilterNone,
		Variant:       VariantStandard,
	}
}

// Sanitize clamps every field into its legal range.
func (cfg *EngineConfig) Sanitize() {
	switch cfg.Method {
	case MethodExponential, MethodSpring:
	default:
		cfg.Method = MethodExponential
	}

	cfg.RiseFactor = clampFactor(cfg.RiseFactor, DefaultRiseFactor)
	cfg.FallFactor = clampFactor(cfg.FallFactor, DefaultFallFactor)

	cfg.Stiffness = clamp(cfg.Stiffness, 0, 1)
	cfg.Damping = clamp(cfg.Damping, 0, 0.99)
	cfg.Adaptive = clamp(cfg.Adaptive, 0, 1)

	if !(cfg.AdaptiveBoost >= 1) {
		cfg.AdaptiveBoost = 1
	}

	if !(cfg.JumpThreshold > 0) {
		cfg.JumpThreshold = DefaultJumpThreshold
	}
	cfg.JumpThreshold = math.Min(cfg.JumpThreshold, 1)

	if cfg.PeakHold < 0 {
		cfg.PeakHold = 0
	}

	if !(cfg.PeakFall > 0) {
		cfg.PeakFall = DefaultPeakFall
	}
	cfg.PeakFall = math.Min(cfg.PeakFall, 1)

	cfg.PeakBlend = clamp(cfg.PeakBlend, 0, 1)

	switch cfg.Filter {
	case FilterMonstercat:
		// a factor of 1 would flatten every bar to the loudest one
		if !(cfg.FilterFactor > 1) {
			cfg.FilterFactor = DefaultMonstercat
		}
	case FilterWaves:
		if !(cfg.FilterFactor > 0) {
			cfg.FilterFactor = DefaultWaves
		}
	default:
		cfg.Filter = FilterNone
	}

	switch cfg.Variant {
	case VariantStandard, VariantOverlay:
	default:
		cfg.Variant = VariantStandard
	}

	if cfg.ScaleWorkers < 1 {
		cfg.ScaleWorkers = 1
	}
}

// clampFactor keeps a smoothing factor in (0, 1]. NaN and non-positive
// values fall back to def.
func clampFactor(v, def float64) float64 {
	if !(v > 0) {
		return def
	}

	return math.Min(v, 1)
}

// clamp limits v to [lo, hi]. NaN becomes lo.
func clamp(v, lo, hi float64) float64 {
	switch {
	case !(v >= lo):
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
