package chat

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"
)

var (
	ErrTaskOutstanding   = errors.New("a reply task is already scheduled")
	ErrSchedulerDisposed = errors.New("scheduler is disposed")
)

// Delay is the simulated thinking time: Min plus a uniform random part in
// [0, Jitter).
type Delay struct {
	Min    time.Duration
	Jitter time.Duration
}

// DefaultDelay yields a total in [1s, 2s).
var DefaultDelay = Delay{Min: time.Second, Jitter: time.Second}

// Next draws one delay.
func (d Delay) Next() time.Duration {
	if d.Jitter <= 0 {
		return d.Min
	}
	return d.Min + rand.N(d.Jitter)
}

// Timer is the part of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it once wrapped.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Scheduler owns at most one single-shot deferred reply task.
type Scheduler struct {
	mu        sync.Mutex
	delay     Delay
	afterFunc AfterFunc
	timer     Timer
	gen       uint64
	disposed  bool
}

// NewScheduler returns a scheduler using the real clock.
func NewScheduler(delay Delay) *Scheduler {
	return NewSchedulerWithClock(delay, realAfterFunc)
}

// NewSchedulerWithClock lets tests control when tasks fire.
func NewSchedulerWithClock(delay Delay, afterFunc AfterFunc) *Scheduler {
	if afterFunc == nil {
		afterFunc = realAfterFunc
	}
	return &Scheduler{delay: delay, afterFunc: afterFunc}
}

// Schedule arms the deferred task. The task never runs after Dispose.
func (s *Scheduler) Schedule(task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrSchedulerDisposed
	}
	if s.timer != nil {
		return ErrTaskOutstanding
	}

	s.gen++
	gen := s.gen
	s.timer = s.afterFunc(s.delay.Next(), func() {
		s.mu.Lock()
		if s.disposed || s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()

		task()
	})
	return nil
}

// Outstanding reports whether a task is armed and has not fired yet.
func (s *Scheduler) Outstanding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Dispose stops any armed task and refuses new ones. Safe to call twice.
func (s *Scheduler) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disposed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
