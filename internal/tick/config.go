package tick

import "time"

// MaxRateHz is the upper bound a tick rate is clamped to on validation.
const MaxRateHz = 128

// Policy decides how a scheduler recovers from a missed deadline.
type Policy struct {
	kind        policyKind
	maxCatchUp  uint32
}

type policyKind int

const (
	policySkip policyKind = iota
	policyCatchUp
	policyDrop
)

func (k policyKind) String() string {
	switch k {
	case policySkip:
		return "Skip"
	case policyCatchUp:
		return "CatchUp"
	case policyDrop:
		return "Drop"
	default:
		return "Unknown"
	}
}

// PolicySkip abandons missed ticks entirely: the next deadline is always
// now + tick_duration.
func PolicySkip() Policy { return Policy{kind: policySkip} }

// PolicyCatchUp tries to run missed ticks back-to-back, up to maxCatchUp,
// before falling back to Skip behavior.
func PolicyCatchUp(maxCatchUp uint32) Policy {
	return Policy{kind: policyCatchUp, maxCatchUp: maxCatchUp}
}

// PolicyDrop preserves the original cadence regardless of overruns: the
// next deadline is always prev_deadline + tick_duration.
func PolicyDrop() Policy { return Policy{kind: policyDrop} }

// Config controls a scheduler's rate, overrun policy, and budget alarms.
type Config struct {
	RateHz               uint32
	Policy               Policy
	BudgetWarnThreshold  float64
	BudgetCritThreshold  float64
	MetricsEnabled       bool
	InitialJitterMicros  uint64
}

// DefaultConfig returns the documented defaults: event-driven (RateHz=0),
// Skip policy, 80%/100% budget thresholds, metrics on, 2ms startup jitter
// ceiling.
func DefaultConfig() Config {
	return Config{
		RateHz:              0,
		Policy:              PolicySkip(),
		BudgetWarnThreshold: 0.80,
		BudgetCritThreshold: 1.0,
		MetricsEnabled:      true,
		InitialJitterMicros: 2000,
	}
}

// WithRate returns a copy of cfg ticking at hz.
func (cfg Config) WithRate(hz uint32) Config {
	cfg.RateHz = hz
	return cfg
}

// Validated clamps RateHz to [0, MaxRateHz], thresholds to [0, 1], and
// forces warn <= critical, returning the adjusted config and whether any
// clamping occurred (the caller logs a warning when it did).
func (cfg Config) Validated() (Config, bool) {
	clamped := false
	if cfg.RateHz > MaxRateHz {
		cfg.RateHz = MaxRateHz
		clamped = true
	}
	if cfg.BudgetWarnThreshold < 0 {
		cfg.BudgetWarnThreshold = 0
		clamped = true
	}
	if cfg.BudgetWarnThreshold > 1 {
		cfg.BudgetWarnThreshold = 1
		clamped = true
	}
	if cfg.BudgetCritThreshold < 0 {
		cfg.BudgetCritThreshold = 0
		clamped = true
	}
	if cfg.BudgetCritThreshold > 1 {
		cfg.BudgetCritThreshold = 1
		clamped = true
	}
	if cfg.BudgetWarnThreshold > cfg.BudgetCritThreshold {
		cfg.BudgetWarnThreshold = cfg.BudgetCritThreshold
		clamped = true
	}
	return cfg, clamped
}

// TickDuration returns the fixed period between ticks, or (0, false) when
// the scheduler is event-driven (RateHz == 0).
func (cfg Config) TickDuration() (time.Duration, bool) {
	if cfg.RateHz == 0 {
		return 0, false
	}
	return time.Second / time.Duration(cfg.RateHz), true
}
