package clock

import (
	"sync"
	"time"
)

// Handle identifies a scheduled callback. The zero Handle never refers to a timer.
type Handle uint64

// Scheduler owns a set of cancellable one-shot timers. Every timer-driven
// component (heartbeat, reconnect backoff, typing expiry, ack debounce) keeps
// its timers in a Scheduler so that teardown is a single CancelAll.
type Scheduler struct {
	clock Clock

	mu     sync.Mutex
	next   Handle
	timers map[Handle]Timer
}

func NewScheduler(c Clock) *Scheduler {
	return &Scheduler{
		clock:  c,
		timers: make(map[Handle]Timer),
	}
}

// Schedule runs fn once after d unless the returned handle is cancelled first
func (s *Scheduler) Schedule(d time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	h := s.next
	s.timers[h] = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		_, live := s.timers[h]
		delete(s.timers, h)
		s.mu.Unlock()

		if live {
			fn()
		}
	})
	return h
}

// Cancel stops the timer behind h. It reports whether the timer was still pending.
func (s *Scheduler) Cancel(h Handle) bool {
	s.mu.Lock()
	t, ok := s.timers[h]
	delete(s.timers, h)
	s.mu.Unlock()

	if ok {
		t.Stop()
	}
	return ok
}

// CancelAll stops every pending timer and returns how many were cancelled
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	timers := s.timers
	s.timers = make(map[Handle]Timer)
	s.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
	return len(timers)
}

func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}
