package dsp

import "math"

// Smoother moves a bar's value toward its target once per cycle.
type Smoother interface {
	// SmoothBin advances bar idx toward target and returns the new value.
	// the value is stored in st.Values.
	SmoothBin(st *State, idx int, target float64) float64
}

// NewSmoother returns the smoother cfg asks for.
func NewSmoother(cfg EngineConfig) Smoother {
	cfg.Sanitize()

	if cfg.Method == MethodSpring {
		return &springSmoother{
			stiffness: cfg.Stiffness,
			damping:   cfg.Damping,
			adaptive:  cfg.Adaptive,
			boost:     cfg.AdaptiveBoost,
			jump:      cfg.JumpThreshold,
		}
	}

	return &expSmoother{
		rise: cfg.RiseFactor,
		fall: cfg.FallFactor,
	}
}

// expSmoother eases by a fixed fraction of the distance each cycle, faster
// on the way up than on the way down.
type expSmoother struct {
	rise float64
	fall float64
}

func (sm *expSmoother) SmoothBin(st *State, idx int, target float64) float64 {
	existing := st.Values[idx]
	if math.IsNaN(existing) {
		existing = 0
	}

	factor := sm.fall
	if target > existing {
		factor = sm.rise
	}

	value := clamp(existing+(target-existing)*factor, 0, 1)
	st.Values[idx] = value

	return value
}

// springSmoother keeps a velocity per bar. large jumps get a stronger direct
// pull so loud transients do not lag behind.
type springSmoother struct {
	stiffness float64
	damping   float64
	adaptive  float64
	boost     float64
	jump      float64
}

func (sm *springSmoother) SmoothBin(st *State, idx int, target float64) float64 {
	existing := st.Values[idx]
	velocity := st.Velocities[idx]

	if math.IsNaN(existing) {
		existing = 0
	}

	if math.IsNaN(velocity) {
		velocity = 0
	}

	diff := target - existing

	adaptive := sm.adaptive
	if math.Abs(diff) > sm.jump {
		adaptive = math.Min(1, adaptive*sm.boost)
	}

	velocity = velocity*sm.damping + diff*sm.stiffness
	value := existing + velocity + diff*adaptive

	// stop the spring at the rails instead of letting it wind up
	if value <= 0 || value >= 1 {
		value = clamp(value, 0, 1)
		velocity = 0
	}

	st.Values[idx] = value
	st.Velocities[idx] = velocity

	return value
}
