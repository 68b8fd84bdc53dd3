package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RearmLeavesOneTimer(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testEpoch)
	s := NewScheduler(clock)

	var first, second atomic.Int32
	s.Arm(10*time.Second, func() { first.Add(1) })
	s.Arm(20*time.Second, func() { second.Add(1) })
	assert.True(t, s.Live())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1), "exactly one timer should be pending")

	clock.Advance(15 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load(), "replaced timer must not fire")

	clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, time.Millisecond)
	assert.False(t, s.Live())
}

func TestScheduler_Cancel(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testEpoch)
	s := NewScheduler(clock)

	var fired atomic.Int32
	s.Arm(time.Second, func() { fired.Add(1) })
	s.Cancel()
	assert.False(t, s.Live())

	clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())

	// Cancelling twice is harmless.
	s.Cancel()
}

func TestScheduler_ZeroDelayFires(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testEpoch)
	s := NewScheduler(clock)

	var fired atomic.Int32
	s.Arm(-time.Second, func() { fired.Add(1) })
	clock.Advance(0)

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
}
