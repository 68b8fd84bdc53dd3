package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultRenewAt is the fraction of a pair's lifetime after which the
// scheduler triggers proactive renewal.
const DefaultRenewAt = 0.8

// Scheduler holds at most one pending one-shot timer.
type Scheduler struct {
	clock clockwork.Clock

	mu    sync.Mutex
	timer clockwork.Timer
	seq   uint64

	// pending is the sequence number of the live timer, 0 when none.
	pending atomic.Uint64
}

// NewScheduler creates a scheduler driven by clock.
func NewScheduler(clock clockwork.Clock) *Scheduler {
	return &Scheduler{clock: clock}
}

// Arm cancels any live timer and schedules fn to run once after d.
// fn runs on its own goroutine.
func (s *Scheduler) Arm(d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.seq++
	seq := s.seq
	s.pending.Store(seq)
	// The callback must not take s.mu: a fake clock may fire a zero-delay
	// timer from inside AfterFunc.
	s.timer = s.clock.AfterFunc(d, func() {
		if s.pending.CompareAndSwap(seq, 0) {
			go fn()
		}
	})
}

// Cancel stops the live timer, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Live reports whether a timer is pending.
func (s *Scheduler) Live() bool {
	return s.pending.Load() != 0
}

func (s *Scheduler) stopLocked() {
	s.pending.Store(0)
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
