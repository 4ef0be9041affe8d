package tick

import (
	"context"
	"log"
	"math/rand"
	"time"
)

// Info is the result of one resolved wait-for-tick.
type Info struct {
	Tick         uint64
	Dt           time.Duration
	Overrun      bool
	TicksSkipped uint64
}

// Metrics accumulates scheduler health across the room's lifetime.
type Metrics struct {
	TotalTicks        uint64
	TotalOverruns     uint64
	TotalSkipped      uint64
	AvgTickTime       time.Duration
	MaxTickTime       time.Duration
	BudgetUtilization float64
}

// emaAlpha is the smoothing factor for the average-tick-time EMA.
const emaAlpha = 0.1

// Scheduler drives a per-room fixed-timestep loop. A zero-rate Scheduler
// is event-driven: WaitForTick never resolves, letting the caller's select
// loop serve only its other arms (room commands).
type Scheduler struct {
	config       Config
	tickDuration time.Duration
	ticking      bool

	tickCount    uint64
	nextDeadline time.Time
	tickStart    time.Time
	paused       bool
	metrics      Metrics

	now func() time.Time
}

// New builds a scheduler from cfg, validating and clamping it first. If
// ticking, the first deadline is offset by a random jitter bounded by
// InitialJitterMicros, to desynchronize rooms spawned in a burst.
func New(cfg Config) *Scheduler {
	validated, clamped := cfg.Validated()
	if clamped {
		log.Printf("tick: config clamped to valid ranges: %+v", validated)
	}

	s := &Scheduler{config: validated, now: time.Now}
	dur, ticking := validated.TickDuration()
	s.tickDuration = dur
	s.ticking = ticking

	if !ticking {
		log.Printf("tick: scheduler is event-driven (rate_hz=0)")
		return s
	}

	jitter := time.Duration(0)
	if validated.InitialJitterMicros > 0 {
		jitter = time.Duration(rand.Int63n(int64(validated.InitialJitterMicros))) * time.Microsecond
	}
	s.nextDeadline = s.now().Add(dur).Add(jitter)

	log.Printf("tick: scheduler running at %d Hz, policy=%v, budget warn/crit=%.2f/%.2f",
		validated.RateHz, validated.Policy.kind, validated.BudgetWarnThreshold, validated.BudgetCritThreshold)
	return s
}

// WithRate is a convenience constructor for New(DefaultConfig().WithRate(hz)).
func WithRate(hz uint32) *Scheduler {
	return New(DefaultConfig().WithRate(hz))
}

// WaitForTick blocks until the next deadline (or forever, while
// event-driven or paused) and returns the fired tick's info. Callers embed
// this in a select alongside their other suspension points; ctx
// cancellation is the only way to unblock an event-driven/paused wait.
func (s *Scheduler) WaitForTick(ctx context.Context) (Info, error) {
	if !s.ticking || s.paused {
		<-ctx.Done()
		return Info{}, ctx.Err()
	}

	timer := time.NewTimer(time.Until(s.nextDeadline))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Info{}, ctx.Err()
	case now := <-timer.C:
		return s.resolveTick(now), nil
	}
}

// resolveTick advances scheduler state past a fired deadline and returns
// the resulting Info. now is the clock reading the tick actually fired at.
func (s *Scheduler) resolveTick(now time.Time) Info {
	s.tickCount++
	prevDeadline := s.nextDeadline

	lateBy := now.Sub(prevDeadline)
	overrun := lateBy > s.tickDuration/10

	var ticksSkipped uint64
	switch s.config.Policy.kind {
	case policySkip:
		s.nextDeadline = now.Add(s.tickDuration)
		if lateBy > 0 {
			ticksSkipped = uint64(lateBy / s.tickDuration)
		}
	case policyCatchUp:
		behind := uint64(0)
		if lateBy > 0 {
			behind = uint64(lateBy / s.tickDuration)
		}
		if behind <= uint64(s.config.Policy.maxCatchUp) {
			s.nextDeadline = prevDeadline.Add(s.tickDuration)
		} else {
			s.nextDeadline = now.Add(s.tickDuration)
			ticksSkipped = behind - uint64(s.config.Policy.maxCatchUp)
		}
	case policyDrop:
		s.nextDeadline = prevDeadline.Add(s.tickDuration)
	}

	if overrun {
		s.metrics.TotalOverruns++
	}
	s.metrics.TotalSkipped += ticksSkipped
	s.metrics.TotalTicks++

	s.tickStart = now

	return Info{
		Tick:         s.tickCount,
		Dt:           s.tickDuration,
		Overrun:      overrun,
		TicksSkipped: ticksSkipped,
	}
}

// RecordTickEnd is called by the room after running one tick's game logic.
// It measures elapsed time since the tick fired, warns on budget pressure,
// and (when metrics are enabled) updates MaxTickTime and the avg-tick EMA.
func (s *Scheduler) RecordTickEnd() {
	if s.tickStart.IsZero() || s.tickDuration == 0 {
		return
	}
	elapsed := s.now().Sub(s.tickStart)
	utilization := float64(elapsed) / float64(s.tickDuration)
	s.metrics.BudgetUtilization = utilization

	if utilization >= s.config.BudgetCritThreshold {
		log.Printf("tick: CRITICAL: tick exceeded budget (%.1f%% of %s)", utilization*100, s.tickDuration)
	} else if utilization >= s.config.BudgetWarnThreshold {
		log.Printf("tick: tick approaching budget limit (%.1f%% of %s)", utilization*100, s.tickDuration)
	}

	if !s.config.MetricsEnabled {
		return
	}
	if elapsed > s.metrics.MaxTickTime {
		s.metrics.MaxTickTime = elapsed
	}
	if s.metrics.AvgTickTime == 0 {
		s.metrics.AvgTickTime = elapsed
	} else {
		s.metrics.AvgTickTime = time.Duration(emaAlpha*float64(elapsed) + (1-emaAlpha)*float64(s.metrics.AvgTickTime))
	}
}

// Pause is idempotent; while paused, WaitForTick never resolves.
func (s *Scheduler) Pause() { s.paused = true }

// Resume is idempotent and, if this call actually transitions out of
// paused, resets the next deadline to now+tick_duration so no burst of
// catch-up ticks covers the paused interval.
func (s *Scheduler) Resume() {
	if !s.paused {
		return
	}
	s.paused = false
	if s.ticking {
		s.nextDeadline = s.now().Add(s.tickDuration)
	}
}

func (s *Scheduler) IsPaused() bool       { return s.paused }
func (s *Scheduler) IsEventDriven() bool  { return !s.ticking }
func (s *Scheduler) TickCount() uint64    { return s.tickCount }
func (s *Scheduler) Metrics() Metrics     { return s.metrics }
func (s *Scheduler) TickRateHz() uint32   { return s.config.RateHz }
func (s *Scheduler) TickDuration() time.Duration { return s.tickDuration }
