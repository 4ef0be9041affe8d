package tick

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigValidatedClampsRate(t *testing.T) {
	cfg := DefaultConfig().WithRate(500)
	validated, clamped := cfg.Validated()
	require.True(t, clamped)
	require.Equal(t, uint32(MaxRateHz), validated.RateHz)
}

func TestConfigValidatedForcesWarnBelowCritical(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BudgetWarnThreshold = 0.95
	cfg.BudgetCritThreshold = 0.5
	validated, clamped := cfg.Validated()
	require.True(t, clamped)
	require.LessOrEqual(t, validated.BudgetWarnThreshold, validated.BudgetCritThreshold)
}

func TestEventDrivenNeverResolves(t *testing.T) {
	s := New(DefaultConfig())
	require.True(t, s.IsEventDriven())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.WaitForTick(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTickDtIsConstant(t *testing.T) {
	s := WithRate(20)
	base := s.nextDeadline
	dur := s.tickDuration

	first := s.resolveTick(base)
	second := s.resolveTick(s.nextDeadline)

	require.Equal(t, dur, first.Dt)
	require.Equal(t, first.Dt, second.Dt)
	require.Equal(t, uint64(1), first.Tick)
	require.Equal(t, uint64(2), second.Tick)
}

func TestSkipPolicyOnOverrun(t *testing.T) {
	s := New(DefaultConfig().WithRate(20)) // 50ms ticks
	s.config.Policy = PolicySkip()
	deadline := s.nextDeadline
	s.tickDuration = 50 * time.Millisecond

	firedAt := deadline.Add(200 * time.Millisecond)
	info := s.resolveTick(firedAt)

	require.True(t, info.Overrun)
	require.GreaterOrEqual(t, info.TicksSkipped, uint64(3))
	require.LessOrEqual(t, info.TicksSkipped, uint64(4))
	require.Equal(t, firedAt.Add(50*time.Millisecond), s.nextDeadline)
}

func TestDropPolicyPreservesCadence(t *testing.T) {
	s := New(DefaultConfig().WithRate(20))
	s.config.Policy = PolicyDrop()
	s.tickDuration = 50 * time.Millisecond
	deadline := s.nextDeadline

	firedLate := deadline.Add(200 * time.Millisecond)
	s.resolveTick(firedLate)

	require.Equal(t, deadline.Add(50*time.Millisecond), s.nextDeadline)
}

func TestCatchUpPolicyWithinBudget(t *testing.T) {
	s := New(DefaultConfig().WithRate(20))
	s.config.Policy = PolicyCatchUp(5)
	s.tickDuration = 50 * time.Millisecond
	deadline := s.nextDeadline

	firedLate := deadline.Add(100 * time.Millisecond) // 2 ticks behind, within budget
	info := s.resolveTick(firedLate)

	require.Equal(t, uint64(0), info.TicksSkipped)
	require.Equal(t, deadline.Add(50*time.Millisecond), s.nextDeadline)
}

func TestCatchUpPolicyExceedsBudget(t *testing.T) {
	s := New(DefaultConfig().WithRate(20))
	s.config.Policy = PolicyCatchUp(1)
	s.tickDuration = 50 * time.Millisecond
	deadline := s.nextDeadline

	firedLate := deadline.Add(200 * time.Millisecond) // ~4 behind, exceeds max_catchup=1
	info := s.resolveTick(firedLate)

	require.Greater(t, info.TicksSkipped, uint64(0))
	require.Equal(t, firedLate.Add(50*time.Millisecond), s.nextDeadline)
}

func TestPauseResumeIdempotentAndResetsDeadline(t *testing.T) {
	s := WithRate(10)
	s.Pause()
	require.True(t, s.IsPaused())
	s.Pause() // idempotent

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.WaitForTick(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	before := time.Now()
	s.Resume()
	require.False(t, s.IsPaused())
	s.Resume() // idempotent, no-op
	require.True(t, !s.nextDeadline.Before(before))
}

func TestRecordTickEndUpdatesMetrics(t *testing.T) {
	s := WithRate(20)
	s.tickStart = s.now().Add(-10 * time.Millisecond)
	s.RecordTickEnd()

	m := s.Metrics()
	require.Greater(t, m.MaxTickTime, time.Duration(0))
	require.Greater(t, m.AvgTickTime, time.Duration(0))
}
