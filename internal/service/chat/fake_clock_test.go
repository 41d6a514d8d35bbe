package chat

import (
	"sync"
	"time"
)

// fakeClock records scheduled callbacks so tests decide when they fire.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

// fireAll runs every armed callback, stopped ones included, the way a timer
// that already fired before Stop would.
func (c *fakeClock) fireAll() {
	c.mu.Lock()
	pending := append([]*fakeTimer(nil), c.timers...)
	c.timers = nil
	c.mu.Unlock()

	for _, t := range pending {
		t.fired = true
		t.fn()
	}
}

// fireArmed runs only callbacks that were not stopped.
func (c *fakeClock) fireArmed() {
	c.mu.Lock()
	pending := append([]*fakeTimer(nil), c.timers...)
	c.timers = nil
	c.mu.Unlock()

	for _, t := range pending {
		if t.stopped {
			continue
		}
		t.fired = true
		t.fn()
	}
}

func (c *fakeClock) armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (c *fakeClock) lastDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return 0
	}
	return c.timers[len(c.timers)-1].delay
}
